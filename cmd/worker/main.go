package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/config"
	"github.com/VK7Cuber/Room2room-Tour/internal/kafka"
	"github.com/VK7Cuber/Room2room-Tour/internal/logger"
	"github.com/VK7Cuber/Room2room-Tour/internal/outbox"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/notify"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zl.Named("producer"))
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		zl.Fatal("kafka unavailable", zap.Error(err))
	}

	txManager := repository.NewTxManager(pool)
	userRepo := repository.NewUserRepository(pool)

	sender, err := notify.ResolveSystemSender(ctx, userRepo, cfg.Platform.SystemUserID, cfg.Platform.BaseURL)
	if err != nil {
		zl.Fatal("resolve system sender", zap.Error(err))
	}

	notifier := notify.NewNotificationService(
		repository.NewMessageRepository(pool),
		userRepo,
		repository.NewInboxRepository(pool),
		txManager,
		sender,
		zl.Named("notify"),
	)

	relay := outbox.NewRelay(
		repository.NewOutboxRepository(pool),
		producer,
		cfg.Kafka.BookingEventsTopic,
		cfg.Worker.OutboxBatchSize,
		time.Duration(cfg.Worker.OutboxPollSeconds)*time.Second,
		zl.Named("outbox"),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic, zl.Named("consumer"))
	defer consumer.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := relay.Run(ctx); err != nil {
			zl.Error("outbox relay stopped", zap.Error(err))
		}
	}()

	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			return notifier.HandlePayload(ctx, msg.Value)
		}); err != nil {
			zl.Error("consumer stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down worker")
	wg.Wait()
}
