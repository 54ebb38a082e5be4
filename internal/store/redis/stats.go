package redis

import (
	"context"
	"fmt"
	"strconv"
)

// IncrementResolveCount bumps the shared resolution counter of a source
func (s *Store) IncrementResolveCount(ctx context.Context, source string) error {
	if err := s.client.HIncrBy(ctx, KeyResolveStats, source, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment resolve count: %w", err)
	}
	return nil
}

// GetResolveCounts retrieves resolution counts per source, across every
// instance sharing the Redis database
func (s *Store) GetResolveCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, KeyResolveStats).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolve counts: %w", err)
	}

	stats := make(map[string]int64, len(raw))
	for source, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		stats[source] = n
	}

	return stats, nil
}
