package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

// DefaultLocationTTL bounds how long a persisted location answer is trusted
const DefaultLocationTTL = 24 * time.Hour

// SaveLocationEntry persists a positive location service answer
func (s *Store) SaveLocationEntry(ctx context.Context, entry domain.LocationEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal location entry: %w", err)
	}

	key := LocationKey(entry.RegionID, entry.ServiceCode, entry.EndpointType)
	if err := s.client.Set(ctx, key, data, DefaultLocationTTL).Err(); err != nil {
		return fmt.Errorf("failed to save location entry: %w", err)
	}
	return nil
}

// GetAllLocationEntries retrieves every persisted location answer
func (s *Store) GetAllLocationEntries(ctx context.Context) ([]domain.LocationEntry, error) {
	var entries []domain.LocationEntry

	iter := s.client.Scan(ctx, 0, KeyPrefixLocation+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between SCAN and GET
			}
			return nil, fmt.Errorf("failed to get location entry: %w", err)
		}

		var entry domain.LocationEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan location entries: %w", err)
	}

	return entries, nil
}

// FlushLocationEntries removes every persisted location answer
func (s *Store) FlushLocationEntries(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixLocation+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete location key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush location entries: %w", err)
	}
	return nil
}
