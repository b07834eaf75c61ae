package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mqcontracts "fintrack/contracts/mq"
	"fintrack/internal/app"
	"fintrack/internal/config"
	"fintrack/internal/mqhandler"
	"fintrack/internal/repository"
	"fintrack/pkg/db"
	"fintrack/pkg/logger"
	"fintrack/pkg/mq"
	"fintrack/pkg/outbox"
	"fintrack/pkg/redis"
	"fintrack/pkg/util"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting worker service...")

	rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer pool.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	pipeline, err := app.NewPipeline(ctx, cfg, pool, log)
	if err != nil {
		log.Fatal("pipeline init failed", zap.Error(err))
	}

	notificationHandler := mqhandler.NewMailNotificationHandler(
		pipeline.Ingest,
		repository.NewRedisTokenStore(rdb),
		util.NewDeduper(rdb, cfg.Dedup.TTL, log),
		util.NewRetryCounter(rdb, cfg.Worker.RetryTTL),
		publisher,
		cfg.Worker.MaxRetries,
		log,
	)

	log.Info("init consumer", zap.String("queue", cfg.Worker.Queue))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, mqcontracts.RoutingKeyMailNotification, cfg.Worker.Prefetch, log)
	if err != nil {
		log.Fatal("consumer init failed", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(notificationHandler.Handle)

	dispatcher := outbox.NewDispatcher(outbox.NewRepository(pool), publisher, log).
		WithInterval(cfg.Worker.PollInterval).
		WithBatchSize(cfg.Worker.BatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.StartConsuming(gctx)
	})
	g.Go(func() error {
		dispatcher.Start(gctx)
		return nil
	})

	log.Info("worker running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("worker stopped", zap.Error(err))
	}
	log.Info("worker stopped")
}
