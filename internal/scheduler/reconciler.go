package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	redisstore "github.com/MrSnakeDoc/endpointd/internal/store/redis"
)

// DefaultReconcileInterval is how often overrides are reconciled with Redis
const DefaultReconcileInterval = 10 * time.Minute

// OverrideReconciler keeps the Redis copy of the overrides in line with the
// resolver: it prunes dangling IDs, adopts orphaned keys and re-saves
// overrides Redis lost.
type OverrideReconciler struct {
	store    *redisstore.Store
	resolver *endpoint.DefaultResolver
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewOverrideReconciler creates a new reconciler
func NewOverrideReconciler(
	store *redisstore.Store,
	resolver *endpoint.DefaultResolver,
	log logger.Logger,
	interval time.Duration,
) *OverrideReconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	return &OverrideReconciler{
		store:    store,
		resolver: resolver,
		logger:   log.Named("reconciler"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reconciliation
func (rc *OverrideReconciler) Start(ctx context.Context) error {
	if err := rc.Reconcile(ctx); err != nil {
		rc.logger.Warn("initial reconciliation failed", logger.Error(err))
	}

	ticker := time.NewTicker(rc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rc.Reconcile(ctx); err != nil {
					rc.logger.Error("reconciliation failed", logger.Error(err))
				}
			case <-rc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reconciler
func (rc *OverrideReconciler) Stop() {
	rc.stopOnce.Do(func() { close(rc.stopCh) })
}

// Reconcile runs one pass. An override removed or replaced while the pass
// runs is never left behind in Redis.
func (rc *OverrideReconciler) Reconcile(ctx context.Context) error {
	pruned, err := rc.store.PruneDanglingEntries(ctx)
	if err != nil {
		return err
	}

	adopted, err := rc.store.AdoptOrphanEntries(ctx)
	if err != nil {
		return err
	}

	stored, err := rc.store.GetAllEntries(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(stored))
	for _, e := range stored {
		have[redisstore.EntryID(e.RegionID, e.ProductCode)] = true
	}

	restored := 0
	for _, e := range rc.resolver.Entries() {
		if have[redisstore.EntryID(e.RegionID, e.ProductCode)] {
			continue
		}
		ok, err := rc.restore(ctx, e)
		if err != nil {
			rc.logger.Warn("failed to restore override in redis",
				logger.String("region", e.RegionID),
				logger.String("product", e.ProductCode),
				logger.Error(err))
			continue
		}
		if ok {
			restored++
		}
	}

	if pruned > 0 || adopted > 0 || restored > 0 {
		rc.logger.Info("reconciliation completed",
			logger.Int("pruned", pruned),
			logger.Int("adopted", adopted),
			logger.Int("restored", restored))
	} else {
		rc.logger.Debug("overrides already in sync")
	}

	return nil
}

// restore writes e back to Redis, then checks the resolver again: handlers
// mutate the resolver before Redis, so whatever the resolver holds after the
// write is what Redis must hold too.
func (rc *OverrideReconciler) restore(ctx context.Context, e domain.EndpointEntry) (bool, error) {
	if _, ok := rc.resolver.Entry(e.RegionID, e.ProductCode); !ok {
		return false, nil
	}
	if err := rc.store.SaveEntry(ctx, e); err != nil {
		return false, err
	}

	current, ok := rc.resolver.Entry(e.RegionID, e.ProductCode)
	switch {
	case !ok:
		return false, rc.store.DeleteEntry(ctx, e.RegionID, e.ProductCode)
	case current.Hostname != e.Hostname:
		return true, rc.store.SaveEntry(ctx, current)
	default:
		return true, nil
	}
}
