package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/idenegocios/leadpixel/config"
	appmodel "github.com/idenegocios/leadpixel/internal/app/model"
	apprepository "github.com/idenegocios/leadpixel/internal/app/repository"
	appserver "github.com/idenegocios/leadpixel/internal/app/server"
	appservice "github.com/idenegocios/leadpixel/internal/app/service"
	"github.com/idenegocios/leadpixel/internal/http/middleware"
	"github.com/idenegocios/leadpixel/internal/infra/logger"
	infraNATS "github.com/idenegocios/leadpixel/internal/infra/nats"
	infraPostgres "github.com/idenegocios/leadpixel/internal/infra/postgres"
	infraPrometheus "github.com/idenegocios/leadpixel/internal/infra/prometheus"
	infraRedis "github.com/idenegocios/leadpixel/internal/infra/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("nats_host", cfg.NATS.Host),
	)

	// The startup probe decides the data path once: store when the database
	// answers within the probe timeout, in-memory fallback otherwise.
	// Fallback data is process-scoped and never reconciled with the store.
	leadRepo, pixelRepo, mode := buildRepositories(ctx, cfg, log)

	redisClient := connectRedis(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher *appservice.EventPublisher
	natsConn, js, natsErr := infraNATS.Connect(cfg.NATS)
	if natsErr != nil {
		log.Warn("NATS unavailable, event fan-out disabled", zap.Error(natsErr))
	} else {
		defer natsConn.Drain()
		publisher = appservice.NewEventPublisher(js)
		log.Info("Connected to NATS successfully")

		if redisClient != nil && mode == middleware.DataSourceStore {
			rollup := appservice.NewVisitorRollup(js, log, pixelRepo, redisClient)
			if err := rollup.Start(); err != nil {
				log.Error("Failed to start visitor rollup", zap.Error(err))
			} else {
				defer rollup.Stop()
			}
		}
	}

	leadService := appservice.NewLeadService(leadRepo)
	pixelService := appservice.NewPixelService(appservice.PixelDeps{
		Repo:      pixelRepo,
		Logger:    log,
		Publisher: publisher,
	})

	// Seed the pixel-code filter so the ingestion path can reject junk
	// codes without a store round-trip.
	if codes, err := pixelRepo.ListCodes(ctx); err != nil {
		log.Warn("Failed to warm pixel code filter", zap.Error(err))
	} else {
		pixelService.WarmCodeFilter(codes)
	}

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	server := appserver.New(appserver.Dependencies{
		Logger:         log,
		Redis:          redisClient,
		Leads:          leadService,
		Pixels:         pixelService,
		DataSourceMode: mode,
		PublicURL:      cfg.Server.PublicURL,
	})

	go func() {
		log.Info("Server ready", zap.String("data_source", mode), zap.Int("port", cfg.Server.Port))
		if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			log.Fatal("Fiber server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down cleanly", zap.Error(err))
	}
}

func buildRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger) (apprepository.LeadRepository, apprepository.PixelRepository, string) {
	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Warn("Database unreachable, serving from in-memory fallback", zap.Error(err))
		return apprepository.NewMemoryLeadRepository(), apprepository.NewMemoryPixelRepository(), middleware.DataSourceFallback
	}
	if !infraPostgres.Probe(ctx, pool, probeTimeout(cfg)) {
		pool.Close()
		log.Warn("Database probe failed, serving from in-memory fallback")
		return apprepository.NewMemoryLeadRepository(), apprepository.NewMemoryPixelRepository(), middleware.DataSourceFallback
	}

	// The pool lives for the rest of the process: repositories ride it
	// through the GORM handle, so MaxConns caps concurrent database work.
	gormDB, err := infraPostgres.NewGorm(pool)
	if err != nil {
		pool.Close()
		log.Warn("Database handle unavailable, serving from in-memory fallback", zap.Error(err))
		return apprepository.NewMemoryLeadRepository(), apprepository.NewMemoryPixelRepository(), middleware.DataSourceFallback
	}

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Lead{},
		&appmodel.Traffic{},
		&appmodel.Interaction{},
		&appmodel.Pixel{},
		&appmodel.PixelEvent{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	log.Info("Connected to Postgres successfully")
	return apprepository.NewLeadRepository(gormDB), apprepository.NewPixelRepository(gormDB), middleware.DataSourceStore
}

func probeTimeout(cfg *config.Config) time.Duration {
	if d, err := time.ParseDuration(cfg.Postgres.ProbeTimeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func connectRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	client, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, rate limiting and visitor rollup disabled", zap.Error(err))
		return nil
	}
	log.Info("Connected to Redis successfully")
	return client
}
