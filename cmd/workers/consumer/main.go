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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/config"
	"github.com/s21platform/user-stream-service/internal/consumer"
	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/repository/postgres"
)

const (
	serviceName      = "user-stream-consumer"
	handshakeTimeout = 10 * time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, serviceName, cfg.Platform.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, config.KeyLogger, logger)

	if cfg.Tracing.Enabled {
		shutdownTracing, err := infra.InitTracing(ctx, serviceName, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to init tracing: %v", err))
		} else {
			defer shutdownTracing(context.Background()) //nolint:errcheck // .
		}
	}

	dbRepo := postgres.New(cfg)
	defer dbRepo.Close()

	if stored, err := dbRepo.CountUsers(ctx); err != nil {
		logger.Warn(fmt.Sprintf("failed to count stored users: %v", err))
	} else {
		logger.Info(fmt.Sprintf("%d users already stored", stored))
	}

	userConsumer := consumer.New(cfg.Consumer.ServerURL, consumer.NewWSDialer(handshakeTimeout), dbRepo, logger,
		consumer.WithRetryDelay(cfg.Consumer.RetryDelay),
		consumer.WithMilestone(cfg.Consumer.Milestone),
	)

	router := chi.NewRouter()
	router.Handle("/metrics", infra.MetricsHandler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Metrics.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return userConsumer.Run(gCtx)
	})

	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(fmt.Sprintf("failed to shutdown metrics server: %v", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("consumer error: %v", err))
	}

	logger.Info(fmt.Sprintf("stopped after %d upserts over %d connections", userConsumer.Inserted(), userConsumer.Connections()))
}
