package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

// ErrEntryNotFound is returned by GetEntry for an unknown override.
var ErrEntryNotFound = errors.New("entry not found")

// Store handles Redis persistence of overrides and location answers
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveEntry stores a user override. Overrides never expire.
func (s *Store) SaveEntry(ctx context.Context, entry domain.EndpointEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	id := EntryID(entry.RegionID, entry.ProductCode)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, EntryKey(id), data, 0)
	pipe.SAdd(ctx, AllEntriesKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	return nil
}

// GetEntry retrieves an override by ID
func (s *Store) GetEntry(ctx context.Context, id string) (*domain.EndpointEntry, error) {
	data, err := s.client.Get(ctx, EntryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var entry domain.EndpointEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// GetAllEntries retrieves every stored override
func (s *Store) GetAllEntries(ctx context.Context) ([]domain.EndpointEntry, error) {
	ids, err := s.client.SMembers(ctx, AllEntriesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry IDs: %w", err)
	}

	entries := make([]domain.EndpointEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.GetEntry(ctx, id)
		if err != nil {
			// Skip entries whose data vanished
			continue
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// DeleteEntry removes one override
func (s *Store) DeleteEntry(ctx context.Context, regionID, productCode string) error {
	id := EntryID(regionID, productCode)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, EntryKey(id))
	pipe.SRem(ctx, AllEntriesKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	return nil
}

// DeleteAllEntries removes every override
func (s *Store) DeleteAllEntries(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, AllEntriesKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get entry IDs: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, EntryKey(id))
	}
	keys = append(keys, AllEntriesKey())

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}

	return nil
}

// PruneDanglingEntries removes IDs from the override set whose data key is
// gone, and returns how many were removed
func (s *Store) PruneDanglingEntries(ctx context.Context) (int, error) {
	ids, err := s.client.SMembers(ctx, AllEntriesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get entry IDs: %w", err)
	}

	pruned := 0
	for _, id := range ids {
		n, err := s.client.Exists(ctx, EntryKey(id)).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to check entry %s: %w", id, err)
		}
		if n > 0 {
			continue
		}
		if err := s.client.SRem(ctx, AllEntriesKey(), id).Err(); err != nil {
			return pruned, fmt.Errorf("failed to remove entry %s from set: %w", id, err)
		}
		pruned++
	}

	return pruned, nil
}

// AdoptOrphanEntries adds back to the override set every override key the
// set lost track of, and returns how many were adopted
func (s *Store) AdoptOrphanEntries(ctx context.Context) (int, error) {
	adopted := 0

	iter := s.client.Scan(ctx, 0, KeyPrefixEntry+"*", 0).Iterator()
	for iter.Next(ctx) {
		id, err := ExtractEntryID(iter.Val())
		if err != nil {
			continue
		}
		n, err := s.client.SAdd(ctx, AllEntriesKey(), id).Result()
		if err != nil {
			return adopted, fmt.Errorf("failed to adopt entry %s: %w", id, err)
		}
		adopted += int(n)
	}
	if err := iter.Err(); err != nil {
		return adopted, fmt.Errorf("failed to scan entry keys: %w", err)
	}

	return adopted, nil
}
