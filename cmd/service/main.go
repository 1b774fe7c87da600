package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/client/randomuser"
	"github.com/s21platform/user-stream-service/internal/config"
	"github.com/s21platform/user-stream-service/internal/hub"
	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/mirror/kafka"
	"github.com/s21platform/user-stream-service/internal/model"
	"github.com/s21platform/user-stream-service/internal/pump"
	"github.com/s21platform/user-stream-service/internal/rest"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, cfg.Service.Name, cfg.Platform.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := infra.InitTracing(ctx, cfg.Service.Name, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to init tracing: %v", err))
		} else {
			defer shutdownTracing(context.Background()) //nolint:errcheck // .
		}
	}

	source := randomuser.New(cfg)
	defer source.Close()

	hubOpts := []hub.Option{
		hub.WithSendTimeout(cfg.Stream.SendTimeout),
		hub.WithBufferSize(cfg.Stream.BufferSize),
		hub.WithMaxStrikes(cfg.Stream.MaxStrikes),
		hub.WithStreamRate(model.StreamRate(cfg.Stream.Interval)),
	}
	if cfg.Kafka.Enabled {
		mirror := kafka.New(cfg.Kafka, logger)
		defer mirror.Close() //nolint:errcheck // .
		hubOpts = append(hubOpts, hub.WithMirror(mirror))
	}
	broadcaster := hub.New(logger, hubOpts...)

	streamPump := pump.New(source, broadcaster, logger,
		pump.WithInterval(cfg.Stream.Interval),
		pump.WithBackoff(cfg.Stream.Backoff),
	)

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus(cfg.Service.Name, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	handler := rest.New(broadcaster.Registry(), broadcaster)
	httpServer := &http.Server{
		Handler:           rest.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Service.Port))
	if err != nil {
		logger.Error(fmt.Sprintf("failed to start TCP listener: %v", err))
		return
	}

	m := cmux.New(listener)

	grpcListener := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpListener := m.Match(cmux.HTTP1Fast())

	logger.Info(fmt.Sprintf("streaming at %s on ws://0.0.0.0:%s/ws", model.StreamRate(cfg.Stream.Interval), cfg.Service.Port))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return streamPump.Run(gCtx)
	})

	g.Go(func() error {
		return broadcaster.ReportStats(gCtx, cfg.Stream.StatsInterval)
	})

	g.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			return fmt.Errorf("gRPC server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			return fmt.Errorf("HTTP server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := m.Serve(); err != nil && gCtx.Err() == nil {
			return fmt.Errorf("cannot start service: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		healthServer.Shutdown()
		broadcaster.Registry().Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(fmt.Sprintf("failed to shutdown HTTP server: %v", err))
		}
		grpcServer.Stop()
		m.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("server error: %v", err))
	}

	s := broadcaster.Stats()
	logger.Info(fmt.Sprintf("server stopped after streaming %d users", s.TotalUsersStreamed))
}
