package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/endpointd/internal/config"
	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/location"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	"github.com/MrSnakeDoc/endpointd/internal/redis"
	"github.com/MrSnakeDoc/endpointd/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/endpointd/internal/store/redis"
	"github.com/MrSnakeDoc/endpointd/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	resolver    *endpoint.DefaultResolver
	reloader    *scheduler.ConfigReloader    // nil when the bundled table is served
	reconciler  *scheduler.OverrideReconciler // nil when Redis is disabled
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it overrides live in memory only
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	if cfg.RedisEnabled() {
		client, err := redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
		store = redisstore.NewStore(client)
	} else {
		loggerClient.Info("redis not configured, overrides will not be persisted")
	}

	opts := []endpoint.Option{endpoint.WithLogger(loggerClient)}
	if store != nil && cfg.PersistLocation {
		opts = append(opts, endpoint.WithPersister(store))
	}

	var client location.Client
	if cfg.LocationDisabled {
		loggerClient.Info("location service disabled, only overrides and local tables answer")
	} else {
		client = location.NewHTTPClient(location.HTTPConfig{
			Endpoint: cfg.LocationEndpoint,
			Scheme:   cfg.LocationScheme,
			Timeout:  cfg.LocationTimeout,
		}, loggerClient)
	}

	resolver := endpoint.NewDefaultResolver(client, opts...)
	if loc := resolver.Location(); loc != nil {
		// room for the HTTP call plus persisting the answer
		loc.SetLookupTimeout(cfg.LocationTimeout + 5*time.Second)
	}

	var reconciler *scheduler.OverrideReconciler
	if store != nil {
		syncer := scheduler.NewRedisSyncer(store, resolver, loggerClient)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to sync from redis on startup, starting with no overrides",
				logger.Error(err))
		}
		reconciler = scheduler.NewOverrideReconciler(store, resolver, loggerClient, cfg.ReconcileInterval)
	}

	var (
		reloader      *scheduler.ConfigReloader
		reloadTrigger chan struct{}
		reloadStatus  deps.ReloadStatus
	)
	if cfg.ConfigFile != "" {
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewConfigReloader(
			cfg.ConfigFile,
			resolver,
			loggerClient,
			cfg.ReloadInterval,
			reloadTrigger,
		)
		reloadStatus = reloader
	}

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		ConfigFile:      cfg.ConfigFile,
		Resolver:        resolver,
		RedisClient:     redisClient,
		Store:           store,
		ReloadStatus:    reloadStatus,
		ReloadTrigger:   reloadTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		resolver:    resolver,
		reloader:    reloader,
		reconciler:  reconciler,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("starting endpointd",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("built", version.BuildDate),
		logger.String("go", version.GoVersion),
		logger.String("addr", a.cfg.ListenPort))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start config reloader: %w", err)
		}
		a.logger.Info("config reloader started",
			logger.String("file", a.cfg.ConfigFile),
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	if a.reconciler != nil {
		if err := a.reconciler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start override reconciler: %w", err)
		}
		a.logger.Info("override reconciler started",
			logger.Duration("interval", a.cfg.ReconcileInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case err := <-errCh:
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	if a.reconciler != nil {
		a.reconciler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", logger.Error(err))
		} else {
			a.logger.Info("redis closed cleanly")
		}
	}

	a.logger.Info("endpointd stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
