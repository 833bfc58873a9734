package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imageUpscaler/worker/cache"
	"imageUpscaler/worker/config"
	"imageUpscaler/worker/engine"
	"imageUpscaler/worker/kafka"
	"imageUpscaler/worker/pool"
	"imageUpscaler/worker/repository"
	"imageUpscaler/worker/results"
	"imageUpscaler/worker/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker Service starting",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Int("workers", cfg.WorkerCount),
	)

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	cancel()

	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID, kafka.DescriptorSizeLimit(cfg.MaxUploadSize))
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	// The engine is initialized once, before any dequeue loop starts, and
	// shared read-only by every worker goroutine.
	upscaler := engine.NewUpscaler(logger)
	if !upscaler.Ready() {
		logger.Error("Compute engine not ready; dispatched jobs will fail until resolved")
	}

	repo := repository.NewPostgresRepo(db)
	resultStore := results.NewStore(redisClient, cfg.ResultTTL)
	statusCache := cache.NewStatusCache(redisClient)

	processor := service.NewProcessor(repo, resultStore, statusCache, upscaler, cfg.ComputeTimeout, logger)
	workerPool := pool.NewWorkerPool(cfg.WorkerCount)

	handler := func(ctx context.Context, msg *kafka.JobMessage) error {
		return workerPool.Do(ctx, msg, processor.Process)
	}

	for {
		if err := consumer.Consume(ctx, cfg.KafkaTopic, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				break
			}
			// Session aborted on an infrastructure error; the next session
			// resumes from the last committed offset.
			logger.Error("Consume session ended with error", zap.Error(err))

			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Info("Shutdown signal received, draining in-flight jobs")
	workerPool.Wait()
	logger.Info("Worker stopped")
}
