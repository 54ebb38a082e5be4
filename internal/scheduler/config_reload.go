package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	"github.com/MrSnakeDoc/endpointd/internal/metrics"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

// ConfigReloader periodically reloads the endpoint table file and swaps it
// into the resolver. A failed reload keeps the previous table.
type ConfigReloader struct {
	loader        *localconfig.Loader
	resolver      *endpoint.DefaultResolver
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}

	mu         sync.RWMutex
	lastReload time.Time
	lastErr    error
}

// NewConfigReloader creates a new config reloader
func NewConfigReloader(
	configFile string,
	resolver *endpoint.DefaultResolver,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *ConfigReloader {
	return &ConfigReloader{
		loader:        localconfig.NewLoader(configFile),
		resolver:      resolver,
		logger:        log.Named("config-reload"),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the file once and then reloads it on every tick or trigger
func (cr *ConfigReloader) Start(ctx context.Context) error {
	if err := cr.Reload(); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cr.Reload(); err != nil {
					cr.logger.Error("failed to reload endpoint config", logger.Error(err))
				}
			case <-cr.manualTrigger:
				cr.logger.Info("manual reload triggered")
				if err := cr.Reload(); err != nil {
					cr.logger.Error("failed to reload endpoint config", logger.Error(err))
				}
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (cr *ConfigReloader) Stop() {
	cr.stopOnce.Do(func() { close(cr.stopCh) })
}

// Reload reads the file and swaps the table in
func (cr *ConfigReloader) Reload() error {
	cr.logger.Info("reloading endpoint config", logger.String("file", cr.loader.Path()))

	table, err := cr.loader.Load()
	metrics.RecordConfigReload(err)

	cr.mu.Lock()
	cr.lastErr = err
	if err == nil {
		cr.lastReload = time.Now()
	}
	cr.mu.Unlock()

	if err != nil {
		return err
	}

	cr.resolver.ReloadLocalConfig(table)

	stats := table.Stats()
	cr.logger.Info("endpoint config loaded",
		logger.Int("regional_products", stats.RegionalProducts),
		logger.Int("global_products", stats.GlobalProducts),
		logger.Int("regions", stats.Regions))

	return nil
}

// Status returns the time of the last successful reload and the last error
func (cr *ConfigReloader) Status() (time.Time, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.lastReload, cr.lastErr
}
