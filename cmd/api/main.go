package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stagedesk/internal/cache"
	"stagedesk/internal/config"
	"stagedesk/internal/database"
	"stagedesk/internal/demo"
	"stagedesk/internal/handlers"
	"stagedesk/internal/log"
	"stagedesk/internal/platform"
	"stagedesk/internal/prefs"
	"stagedesk/internal/queue"
	"stagedesk/internal/repository"
	"stagedesk/internal/security"
	"stagedesk/internal/server"
	"stagedesk/internal/session"
	"stagedesk/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx := context.Background()

	sealer, err := security.NewSealer(cfg.Security.SealKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid seal key")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure avatar bucket failed")
	}

	platformClient := platform.NewClient(cfg.Platform)
	profileRepo := repository.NewProfileRepository(dbPool)
	authService := session.NewAuthService(platformClient, profileRepo, cfg.BaseURL)
	sessionStore := session.NewStore(redisClient, sealer, cfg.Security.SessionTTL)
	prefStore := prefs.NewStore(redisClient)
	publisher := queue.NewPublisher(redisClient, cfg.Redis.Stream)

	var demoCtrl *demo.Controller
	var demoMgr *session.Manager
	if cfg.Demo.Enabled {
		demoMgr = session.NewManager(authService, cfg.Platform.InitTimeout)
		if err := demoMgr.Start(ctx, nil); err != nil {
			logger.Error().Err(err).Msg("demo session manager start reported an error")
		}
		demoCtrl = demo.NewController(cfg.Demo, demoMgr, platformClient, publisher, logger)
		if err := demoCtrl.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("demo session start failed")
		}
	}

	handlerSet := handlers.NewHandlerSet(
		logger,
		cfg,
		authService,
		sessionStore,
		profileRepo,
		prefStore,
		objectStore,
		demoCtrl,
		dbPool,
		redisClient,
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, demoCtrl, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, demoCtrl *demo.Controller, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if demoCtrl != nil {
		demoCtrl.Stop()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
