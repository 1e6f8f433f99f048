package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/fandomspace/internal/bootstrap"
	"anoa.com/fandomspace/internal/config"
	commerceService "anoa.com/fandomspace/internal/modules/commerce/service"
	feedService "anoa.com/fandomspace/internal/modules/feed/service"
	"anoa.com/fandomspace/internal/scheduler"
	"anoa.com/fandomspace/internal/server"
	"anoa.com/fandomspace/internal/store"
	"anoa.com/fandomspace/pkg/database"
	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load config")
	}
	logger.Init(cfg.AppEnv)

	db, err := database.Open(database.Options{
		Driver:      cfg.DBDriver,
		DatabaseURL: cfg.DatabaseURL,
		Host:        cfg.DBHost,
		User:        cfg.DBUser,
		Password:    cfg.DBPass,
		Name:        cfg.DBName,
		Port:        cfg.DBPort,
		SQLitePath:  cfg.SQLitePath,
		Verbose:     cfg.AppEnv == "development",
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to database")
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Log.WithError(err).Fatal("migration failed")
	}
	if _, err := bootstrap.SeedAdminUser(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Log.WithError(err).Fatal("failed to seed admin user")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Log.WithError(err).Warn("redis unreachable, rate limiting and push fan-out disabled")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			logger.Log.Info("connected to redis")
		}
	}

	var images storage.ImageStorage
	if cld, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadFolder); err != nil {
		logger.Log.WithError(err).Warn("image storage disabled")
	} else {
		images = cld
	}

	st := store.New(db, store.Deps{
		Redis:  redisClient,
		Images: images,
		FeedLimits: feedService.Limits{
			Post:    cfg.RateLimitPost,
			Comment: cfg.RateLimitComment,
		},
		ReportLimit: cfg.RateLimitReport,
		Commerce: commerceService.Options{
			TaxBps:             cfg.CheckoutTaxBps,
			ShippingFee:        cfg.CheckoutShippingFee,
			SubscriptionPeriod: cfg.SubscriptionPeriod,
		},
	})

	jobs := scheduler.New()
	if err := jobs.Register(scheduler.NewSweepJob(st.Moderation, cfg.SweepSchedule, nil)); err != nil {
		logger.Log.WithError(err).Fatal("failed to register suspension sweep")
	}
	jobs.Start()

	srv := server.NewServer(cfg, st, redisClient)
	go func() {
		logger.Log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.Run(); err != nil {
			logger.Log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("server shutdown failed")
	}
	jobs.Stop()
	_ = st.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
