// Command server runs the TuneLease play engine: the streaming endpoint,
// play validation, and the reward ledger writer.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/tunelease/server/internal/catalog"
	"github.com/tunelease/server/internal/cron"
	"github.com/tunelease/server/internal/handler"
	"github.com/tunelease/server/internal/media"
	"github.com/tunelease/server/internal/middleware"
	"github.com/tunelease/server/internal/repository"
	"github.com/tunelease/server/internal/service"
	"github.com/tunelease/server/internal/session"
	"github.com/tunelease/server/migrations"
	"github.com/tunelease/server/pkg/config"
	"github.com/tunelease/server/pkg/db"
	"github.com/tunelease/server/pkg/limiter"
	"github.com/tunelease/server/pkg/logger"
	redispkg "github.com/tunelease/server/pkg/redis"
	"github.com/tunelease/server/pkg/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log := logger.Default()

	if err := run(*configPath, log); err != nil {
		log.Fatal("server exited", logger.Error(err))
	}
}

func run(configPath string, log logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	metrics, shutdownMetrics, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdownMetrics(context.Background())

	pool, err := db.NewPool(ctx, &db.PoolConfig{
		DSN:             cfg.Postgres.DSN(),
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected", logger.String("database", cfg.Postgres.Database))

	migrator, err := db.NewMigrator(cfg.Postgres.DSN(), migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		migrator.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}
	migrator.Close()

	var redisClient *redispkg.Client
	if cfg.Redis.Enabled {
		redisClient, err = redispkg.NewClient(&redispkg.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		log.Info("redis connected", logger.String("host", cfg.Redis.Host))
	}

	var sessionStore session.Store
	if cfg.Play.SessionBackend == "redis" {
		sessionStore = session.NewRedisStore(redisClient, cfg.Play.IdleTimeout)
	} else {
		sessionStore = session.NewMemoryStore()
	}

	tracker := session.NewTracker(sessionStore, session.Config{
		ValidityThreshold: cfg.Play.ValidityThreshold,
		IdleTimeout:       cfg.Play.IdleTimeout,
		SweepInterval:     cfg.Play.SweepInterval,
	}, log)

	budgets := repository.NewPostgresBudgetStore(pool)
	ledger := repository.NewPostgresLedgerStore(pool)

	pgCatalog := catalog.NewPostgresCatalog(pool)
	tracks := catalog.NewCachedTrackCatalog(pgCatalog, 4096, cfg.Play.ValidityThreshold)

	writer := service.NewLedgerWriter(budgets, ledger, pgCatalog, tracks, metrics, log, service.DefaultRetryConfig())
	tracker.StartSweeper(writer.Abandon)
	defer tracker.StopSweeper()

	cronManager := cron.NewManager(budgets, log)
	if err := cronManager.Start(); err != nil {
		return fmt.Errorf("start cron: %w", err)
	}
	defer cronManager.Stop()

	source := media.NewFileSource(cfg.Play.AudioDir)
	streamHandler := handler.NewStreamHandler(tracks, pgCatalog, source, tracker, writer, metrics, log)

	healthHandler := handler.NewHealthHandler(version)
	healthHandler.AddCheck("postgres", pool)
	if redisClient != nil {
		healthHandler.AddCheck("redis", redisClient)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logging(log))

	healthHandler.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, log))
	if cfg.RateLimit.Enabled && redisClient != nil {
		rl := limiter.NewRateLimiter(redisClient)
		api.Use(middleware.RateLimit(rl, cfg.RateLimit.Limit, cfg.RateLimit.Window, log))
	}
	streamHandler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.Int("port", cfg.Server.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
