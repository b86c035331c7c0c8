package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/netstar-dev/advisor/internal/assess"
	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/config"
	"github.com/netstar-dev/advisor/internal/coordinator"
	"github.com/netstar-dev/advisor/internal/correlator"
	"github.com/netstar-dev/advisor/internal/gateway"
	"github.com/netstar-dev/advisor/internal/httpserver"
	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/logger"
	"github.com/netstar-dev/advisor/internal/redis"
	"github.com/netstar-dev/advisor/internal/scan"
	"github.com/netstar-dev/advisor/internal/scheduler"
	"github.com/netstar-dev/advisor/internal/sources/catalog"
	redisstore "github.com/netstar-dev/advisor/internal/store/redis"
	"github.com/netstar-dev/advisor/internal/tabs"
	"github.com/netstar-dev/advisor/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	bus         *bus.Bus
	correlator  *correlator.Correlator
	janitor     *scheduler.Janitor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
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
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Load the indicator catalog (built-in when no file is configured)
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.NewLoader(cfg.CatalogFile).Load()
		if err != nil {
			loggerClient.Errorf("Failed to load indicator catalog: %v", err)
			os.Exit(1)
		}
		cat = loaded
		loggerClient.Info("indicator catalog loaded",
			logger.String("file", cfg.CatalogFile),
			logger.Int("indicators", cat.Len()))
	}

	store := redisstore.NewStore(redisClient)

	scanClient := scan.NewClient(cfg.ScanBaseURL, cfg.ScanTimeout, cat, loggerClient)
	cache := assess.NewCache(store, scanClient, cfg.CacheTTL, cfg.SignalTTL, loggerClient, nil)

	b := bus.New()
	registry := tabs.NewRegistry()
	sessions := gateway.NewSessionTracker()
	corr := correlator.New(cfg.ReplyDeadline, loggerClient)

	alerts := gateway.NewAlertGateway(
		gateway.NewBusMessenger(b),
		sessions,
		cfg.AlertAttempts,
		cfg.AlertBackoff,
		loggerClient,
	)
	notify := gateway.NewNotificationGateway(b, store, &gateway.HostPermission{}, loggerClient)
	icons := gateway.NewIconGateway(b, cfg.HighlightDuration, loggerClient)

	coord := coordinator.New(coordinator.Options{
		Cache:     cache,
		Registry:  registry,
		Store:     store,
		Bus:       b,
		Alerts:    alerts,
		Notify:    notify,
		Icons:     icons,
		Sessions:  sessions,
		RecentCap: cfg.RecentScansCap,
		Logger:    loggerClient,
	})

	janitor := scheduler.NewJanitor(store, sessions, loggerClient, cfg.JanitorInterval, cfg.SignalTTL)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedOrigins: cfg.AllowedOrigins,
		RedisClient:    redisClient,
		Store:          store,
		Bus:            b,
		Registry:       registry,
		Coordinator:    coord,
		Correlator:     corr,
		Catalog:        cat,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		bus:         b,
		correlator:  corr,
		janitor:     janitor,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Advisor v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Advisor %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve correlated answers arriving on the broadcast bus
	go a.correlator.Listen(ctx, a.bus)

	// Start janitor (prunes stale signals and idle alert sessions)
	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	a.logger.Info("janitor started",
		logger.Duration("interval", a.cfg.JanitorInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop janitor
	a.janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Advisor stopped cleanly")
	return nil
}
