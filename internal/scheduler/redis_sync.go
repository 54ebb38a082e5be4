package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	redisstore "github.com/MrSnakeDoc/endpointd/internal/store/redis"
)

// RedisSyncer restores overrides and location answers from Redis on startup
type RedisSyncer struct {
	store    *redisstore.Store
	resolver *endpoint.DefaultResolver
	logger   logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store *redisstore.Store,
	resolver *endpoint.DefaultResolver,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		store:    store,
		resolver: resolver,
		logger:   log.Named("redis-sync"),
	}
}

// Sync loads overrides into the resolver and primes its location cache
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing endpoints from redis to memory")

	entries, err := rs.store.GetAllEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rs.resolver.AddEndpoint(e.RegionID, e.ProductCode, e.Hostname)
	}

	primed := 0
	if loc := rs.resolver.Location(); loc != nil {
		locEntries, err := rs.store.GetAllLocationEntries(ctx)
		if err != nil {
			return err
		}
		primed = loc.Prime(locEntries)
	}

	rs.logger.Info("synced endpoints from redis",
		logger.Int("overrides", len(entries)),
		logger.Int("location_entries", primed))

	return nil
}
