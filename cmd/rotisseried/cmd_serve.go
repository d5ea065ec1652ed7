package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"rotisserie-backend/internal/api"
	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/clock"
	"rotisserie-backend/internal/db"
	"rotisserie-backend/internal/events"
	"rotisserie-backend/internal/kitchen"
	"rotisserie-backend/internal/monitor"
	"rotisserie-backend/internal/notification"
	"rotisserie-backend/internal/store"
	"rotisserie-backend/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the readiness monitor",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	metrics := telemetry.New()

	var publisher events.Publisher = events.Nop{}
	if cfg.Redis.Addr != "" {
		redisPublisher, err := events.NewRedisPublisher(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisPublisher.Close()
		publisher = redisPublisher
	}

	kitchenSvc := kitchen.NewService(board.New(), appStore, clock.System{}, publisher, metrics, cfg.Board, logger)
	if err := kitchenSvc.Load(ctx); err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	var webpushOptions *webpush.Options
	var dispatcher monitor.Dispatcher
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, metrics, logger)
		pool.Start(ctx)
		dispatcher = pool
	} else {
		logger.Warn().Msg("VAPID keys are not configured; push notifications are disabled")
	}

	if cfg.Monitor.Enabled {
		monitorSvc := monitor.NewService(kitchenSvc, cfg.Monitor.Interval, publisher, dispatcher, metrics, logger)
		monitorSvc.Seed()
		go monitorSvc.Run(ctx)
	}

	handler := api.NewHandler(appStore, kitchenSvc, clock.System{}, webpushOptions, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, metrics, cfg.Server, logger),
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("server stopped")
	return nil
}
