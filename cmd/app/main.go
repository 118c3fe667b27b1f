package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/config"
	"github.com/VK7Cuber/Room2room-Tour/internal/bootstrap"
	"github.com/VK7Cuber/Room2room-Tour/internal/cache"
	"github.com/VK7Cuber/Room2room-Tour/internal/logger"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/booking"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/notify"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/reviews"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/tours"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
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

	loc, err := cfg.Booking.Location()
	if err != nil {
		zl.Fatal("load booking timezone", zap.String("timezone", cfg.Booking.Timezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.OfferingCacheTTL)*time.Second)
	defer redisCache.Close()

	txManager := repository.NewTxManager(pool)
	tourRepo := repository.NewTourRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	tourService := tours.NewTourService(tourRepo, redisCache, zl.Named("tours"))
	bookingService := booking.NewBookingService(
		bookingRepo,
		tourRepo,
		outboxRepo,
		txManager,
		booking.WithLocation(loc),
		booking.WithLogger(zl.Named("booking")),
	)

	sender, err := notify.ResolveSystemSender(ctx, userRepo, cfg.Platform.SystemUserID, cfg.Platform.BaseURL)
	if err != nil {
		zl.Fatal("resolve system sender", zap.Error(err))
	}

	// Booking notifications are written by the worker; the API serves the inbox and direct chat.
	messageService := notify.NewNotificationService(
		repository.NewMessageRepository(pool),
		userRepo,
		repository.NewInboxRepository(pool),
		txManager,
		sender,
		zl.Named("messages"),
	)
	reviewService := reviews.NewReviewService(
		repository.NewReviewRepository(pool),
		tourRepo,
		userRepo,
		txManager,
		zl.Named("reviews"),
	)

	err = bootstrap.Run(ctx, cfg, bootstrap.Services{
		Tours:       tourService,
		Bookings:    bookingService,
		Messages:    messageService,
		Reviews:     reviewService,
		Idempotency: redisCache,
	}, zl)
	if err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
