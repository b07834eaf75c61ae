package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/app"
	"fintrack/internal/config"
	"fintrack/internal/handler"
	"fintrack/internal/httpserver"
	"fintrack/pkg/db"
	"fintrack/pkg/logger"
	"fintrack/pkg/mq"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting api service...")

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

	router := httpserver.NewRouter(
		handler.NewWebhookHandler(publisher, cfg.Mail.ClientState, log),
		handler.NewTransactionHandler(pipeline.Ingest, pipeline.Extraction, log),
		pool,
		publisher,
		log,
	)
	srv := router.Server(cfg.Server.Port)

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down api service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
}
