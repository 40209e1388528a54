package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerOTP/config"
	appmodel "github.com/sifan077/PowerOTP/internal/app/model"
	apprepository "github.com/sifan077/PowerOTP/internal/app/repository"
	appserver "github.com/sifan077/PowerOTP/internal/app/server"
	appservice "github.com/sifan077/PowerOTP/internal/app/service"
	inthttp "github.com/sifan077/PowerOTP/internal/http/handler"
	"github.com/sifan077/PowerOTP/internal/infra/gormdb"
	"github.com/sifan077/PowerOTP/internal/infra/logger"
	infraNATS "github.com/sifan077/PowerOTP/internal/infra/nats"
	infraPostgres "github.com/sifan077/PowerOTP/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/PowerOTP/internal/infra/prometheus"
	infraRedis "github.com/sifan077/PowerOTP/internal/infra/redis"
	infraSQLite "github.com/sifan077/PowerOTP/internal/infra/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instance := uuid.NewString()
	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "powerotp",
		Instance:    instance,
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("store", cfg.Store.Type),
		zap.Int("port", cfg.Server.Port),
		zap.String("base_url", cfg.Server.BaseURL),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
		zap.Duration("freshness_horizon", cfg.Share.FreshnessHorizon),
	)

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully")
	}

	linkRepo, pool, storeCheck, closeStore := openStore(ctx, cfg, redisClient, log)
	defer closeStore()

	var metrics *infraPrometheus.Metrics
	if cfg.Prometheus.Enabled {
		metrics = infraPrometheus.NewMetrics(prometheus.DefaultRegisterer)
		promServer := infraPrometheus.NewServer(cfg.Prometheus, prometheus.DefaultGatherer)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	ids := appservice.NewIDGenerator(cfg.Share.IDLength, cfg.Share.ExpectedLinks, cfg.Share.BloomFalsePositive)

	var (
		natsConn  *nats.Conn
		publisher appservice.LinkEventPublisher
	)
	if cfg.NATS.Enabled {
		var js nats.JetStreamContext
		natsConn, js, err = infraNATS.Connect(ctx, cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		log.Info("Connected to NATS successfully")

		consumer := appservice.NewLinkEventConsumer(js, log.Named("link-events"), ids, instance)
		if err := consumer.Start(); err != nil {
			log.Fatal("Failed to start link event consumer", zap.Error(err))
		}
		defer consumer.Stop()
		publisher = appservice.NewLinkEventPublisher(js, instance)
	}

	if cfg.Share.PurgeInterval > 0 {
		purger := appservice.NewLinkPurger(log.Named("purger"), linkRepo, metrics, cfg.Share.PurgeRetention, cfg.Share.PurgeInterval)
		purger.Start()
		defer purger.Stop()
	}

	deps := appserver.Dependencies{
		Logger:   log,
		Config:   cfg,
		Postgres: pool,
		Redis:    redisClient,
		NATS:     natsConn,
		Links: appservice.NewLinkService(appservice.LinkDeps{
			Logger:    log.Named("links"),
			Repo:      linkRepo,
			IDs:       ids,
			Publisher: publisher,
			Metrics:   metrics,
			Share:     cfg.Share,
		}),
		Redemption: appservice.NewRedemptionService(linkRepo, cfg.Share.FreshnessHorizon),
		Metrics:    metrics,
		StoreCheck: storeCheck,
	}
	server := appserver.New(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Addr()))
		errCh <- server.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appserver.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down HTTP server cleanly", zap.Error(err))
		}
	}
}

// openStore builds the configured link repository. The returned pool is only
// set for the postgres store.
func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (apprepository.LinkRepository, *pgxpool.Pool, inthttp.Check, func()) {
	switch cfg.Store.Type {
	case config.StorePostgres:
		gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
		if err != nil {
			log.Fatal("Failed to open GORM connection", zap.Error(err))
		}
		migrate(ctx, gormDB, log)

		pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		log.Info("Connected to Postgres successfully")

		return apprepository.NewGormLinkRepository(gormDB), pool, nil, func() {
			pool.Close()
			closeGorm(gormDB, log)
		}

	case config.StoreSQLite:
		gormDB, err := infraSQLite.Open(cfg.SQLite.Path)
		if err != nil {
			log.Fatal("Failed to open SQLite database", zap.Error(err))
		}
		migrate(ctx, gormDB, log)
		log.Info("Opened SQLite store", zap.String("path", cfg.SQLite.Path))

		check := func(ctx context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return apprepository.NewGormLinkRepository(gormDB), nil, check, func() { closeGorm(gormDB, log) }

	case config.StoreRedis:
		return apprepository.NewRedisLinkRepository(rdb, cfg.Share.PurgeRetention), nil, nil, func() {}

	default:
		log.Warn("Using in-memory link store; links are lost on restart")
		return apprepository.NewMemoryLinkRepository(), nil, nil, func() {}
	}
}

func migrate(ctx context.Context, db *gorm.DB, log *zap.Logger) {
	if err := gormdb.AutoMigrate(ctx, db, &appmodel.ShareLink{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
}

func closeGorm(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("Failed to access underlying SQL DB", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("Failed to close SQL DB", zap.Error(err))
	}
}
