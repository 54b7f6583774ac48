package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeforge/internal/config"
	"resumeforge/internal/database"
	"resumeforge/internal/metrics"
	"resumeforge/internal/notify"
	"resumeforge/internal/tasks"
	"resumeforge/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
	})

	publisher := notify.NewRedisPublisher(redisClient)
	subscriptionHandler := worker.NewSubscriptionTaskHandler(db, publisher, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeSubscriptionExpire, subscriptionHandler)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	expireTask, err := tasks.NewSubscriptionExpireTask(0)
	if err != nil {
		log.Fatalf("build expire task: %v", err)
	}
	if _, err := scheduler.Register("@every 1h", expireTask); err != nil {
		log.Fatalf("register expire schedule: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler stopped", slog.Any("error", err))
		}
	}()

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
