package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisdriver "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/shopmaster/store-system/internal/api"
	"github.com/shopmaster/store-system/internal/core/ports"
	"github.com/shopmaster/store-system/internal/core/refdata"
	"github.com/shopmaster/store-system/internal/core/service"
	"github.com/shopmaster/store-system/internal/infrastructure/db/mongo"
	"github.com/shopmaster/store-system/internal/infrastructure/db/redis"
	"github.com/shopmaster/store-system/internal/infrastructure/state"
	"github.com/shopmaster/store-system/internal/pkg/config"
	"github.com/shopmaster/store-system/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		identities  ports.IdentityRepository
		stores      ports.StoreRepository
		mongoClient *mongodriver.Client
		mongoDB     *mongodriver.Database
	)
	switch cfg.Storage {
	case "mongo":
		client, db, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connect failed")
		}
		mongoClient, mongoDB = client, db

		idRepo := mongo.NewIdentityRepository(db)
		storeRepo := mongo.NewStoreRepository(db)
		if err := idRepo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("account index creation failed")
		}
		if err := storeRepo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("store index creation failed")
		}
		identities, stores = idRepo, storeRepo
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongo storage")
	default:
		fs := state.NewFileStore(cfg.DataFile, log)
		identities, stores = fs.Identities(), fs.Stores()
		log.Info().Str("path", cfg.DataFile).Msg("using file storage")
	}

	// --- Redis (optional, checkout replay protection) ---
	var (
		rdb   *redisdriver.Client
		dedup service.DedupChecker
	)
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, checkout replay protection disabled")
		} else {
			rdb = client
			dedup = redis.NewDedupChecker(client)
		}
	}

	// --- Core services ---
	brands := refdata.NewBrandCatalog()
	currencies := refdata.NewCurrencyTable()
	authService := service.NewAuthService(identities, cfg.JWTSecret, cfg.TokenTTL)
	tracker := service.NewTracker(stores, cfg.HeartbeatInterval, log)
	sessions := service.NewManager(identities, stores, brands, tracker, dedup, log)

	e := api.NewRouter(api.Deps{
		AuthService:     authService,
		Sessions:        sessions,
		Brands:          brands,
		Currencies:      currencies,
		Mongo:           mongoDB,
		Redis:           rdb,
		JWTSecret:       cfg.JWTSecret,
		OnlineThreshold: cfg.PresenceTTL,
		Log:             log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close failed")
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}
}
