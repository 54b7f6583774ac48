package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"resumeforge/internal/api"
	"resumeforge/internal/auth"
	"resumeforge/internal/config"
	"resumeforge/internal/database"
	"resumeforge/internal/mailer"
	"resumeforge/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready",
		slog.String("host", cfg.Database.Host),
		slog.String("name", cfg.Database.Name),
	)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read private key: %v", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read public key: %v", err)
	}
	authService, err := auth.NewAuthService(privateKey, publicKey, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	mailSender := mailer.NewSMTPMailer(cfg.SMTP)

	router := api.NewRouter()
	api.RegisterRoutes(router, cfg, db, redisClient, authService, storageClient, mailSender, logger)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
