package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/louisbranch/moltcompany/internal/platform/timeouts"
	governancesqlite "github.com/louisbranch/moltcompany/internal/services/governance/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls governance startup and the expiry sweep.
type RuntimeConfig struct {
	Port          int
	MetricsAddr   string
	DBPath        string
	SweepInterval time.Duration
	// RedisAddr enables pub/sub notifications when set.
	RedisAddr           string
	NotifyChannelPrefix string
	Logger              zerolog.Logger
}

const (
	defaultGovernancePort = 8095
	defaultGovernanceDB   = "data/governance.db"
	defaultMetricsAddr    = ":9095"
	defaultSweepInterval  = 30 * time.Second
)

// HealthService is the gRPC health service name the runtime reports under.
const HealthService = "governance.runtime"

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.Port <= 0 {
		cfg.Port = defaultGovernancePort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultGovernanceDB
	}
	if strings.TrimSpace(cfg.MetricsAddr) == "" {
		cfg.MetricsAddr = defaultMetricsAddr
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return cfg
}

// Run opens storage, serves gRPC health and Prometheus metrics, and sweeps
// expired decisions until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()
	logger := cfg.Logger

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create governance storage dir: %w", err)
		}
	}
	store, err := governancesqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open governance sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("close governance sqlite store")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := NewMetrics(registry)
	if err != nil {
		return err
	}
	notifier, closeNotifier, err := openNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	service, err := NewService(ServiceConfig{
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on governance port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Str("addr", listener.Addr().String()).Msg("governance server listening")
		if err := grpcServer.Serve(listener); err != nil {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("governance metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return runSweep(groupCtx, service, cfg.SweepInterval, logger)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown metrics server")
		}
		return nil
	})
	return group.Wait()
}

// openNotifier connects to Redis when configured and falls back to dropping
// notifications otherwise.
func openNotifier(ctx context.Context, cfg RuntimeConfig) (Notifier, func(), error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nopNotifier{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.HealthCheck)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			cfg.Logger.Warn().Err(err).Msg("close redis client")
		}
	}
	cfg.Logger.Info().Str("addr", addr).Msg("publishing notifications to redis")
	return NewRedisNotifier(client, cfg.NotifyChannelPrefix), closeFn, nil
}

type dueSweeper interface {
	ExpireDue(ctx context.Context) (int, error)
}

// runSweep closes due decisions every interval until ctx ends.
func runSweep(ctx context.Context, sweeper dueSweeper, interval time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			closed, err := sweeper.ExpireDue(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error().Err(err).Msg("sweep due decisions")
				continue
			}
			if closed > 0 {
				logger.Info().Int("closed", closed).Msg("swept due decisions")
			}
		}
	}
}
