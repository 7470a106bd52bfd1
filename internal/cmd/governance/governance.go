// Package governance parses governance command flags and launches the
// governance runtime.
package governance

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/moltcompany/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/moltcompany/internal/platform/grpc"
	"github.com/louisbranch/moltcompany/internal/platform/timeouts"
	governanceapp "github.com/louisbranch/moltcompany/internal/services/governance/app"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every governance environment variable.
const EnvPrefix = "MOLT_COMPANY_GOVERNANCE_"

// Config holds governance command configuration.
type Config struct {
	Port          int           `env:"PORT" envDefault:"8095"`
	MetricsAddr   string        `env:"METRICS_ADDR" envDefault:":9095"`
	DBPath        string        `env:"DB_PATH" envDefault:"data/governance.db"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON       bool          `env:"LOG_JSON" envDefault:"true"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	NotifyPrefix  string        `env:"NOTIFY_CHANNEL_PREFIX" envDefault:"molt:governance:"`

	// HealthCheck checks a running server instead of starting one.
	HealthCheck bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParsePrefixedConfig(&cfg, EnvPrefix); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The governance health gRPC server port")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "The Prometheus metrics listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The governance SQLite database path")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Interval between expired decision sweeps")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Emit JSON logs instead of console output")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for notification pub/sub (disabled when empty)")
	fs.StringVar(&cfg.NotifyPrefix, "notify-channel-prefix", cfg.NotifyPrefix, "Redis channel prefix for company notifications")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Check the local governance server health and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("sweep interval must be positive, got %s", cfg.SweepInterval)
	}
	return cfg, nil
}

// Run starts the governance runtime.
func Run(ctx context.Context, cfg Config) error {
	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGovernance, func(ctx context.Context) error {
		return governanceapp.Run(ctx, governanceapp.RuntimeConfig{
			Port:                cfg.Port,
			MetricsAddr:         cfg.MetricsAddr,
			DBPath:              cfg.DBPath,
			SweepInterval:       cfg.SweepInterval,
			RedisAddr:           cfg.RedisAddr,
			NotifyChannelPrefix: cfg.NotifyPrefix,
			Logger:              logger,
		})
	})
}

// CheckHealth checks that a governance server on cfg.Port reports SERVING.
func CheckHealth(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.HealthCheck)
	defer cancel()
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port))
	if err := platformgrpc.CheckHealth(ctx, addr, governanceapp.HealthService); err != nil {
		return fmt.Errorf("health check %s: %w", addr, err)
	}
	return nil
}

func newLogger(out io.Writer, level string, json bool) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	if !json {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(parsed).With().
		Timestamp().
		Str("service", entrypoint.ServiceGovernance).
		Logger(), nil
}
