// Package grpc holds gRPC health checks used by service commands and tests.
package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	checkTimeout   = time.Second
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = time.Second
)

// CheckStage describes where a health check failed.
type CheckStage string

const (
	// CheckStageConnect indicates the client could not be created.
	CheckStageConnect CheckStage = "connect"
	// CheckStageStatus indicates the health call failed or did not report SERVING.
	CheckStageStatus CheckStage = "check"
)

// CheckError wraps health check failures with the stage that failed.
type CheckError struct {
	Stage CheckStage
	Err   error
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	if e == nil {
		return "gRPC health check error"
	}
	return fmt.Sprintf("gRPC %s error: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewHealthConn opens an insecure, trace-propagating client for addr.
func NewHealthConn(addr string) (*gogrpc.ClientConn, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, &CheckError{Stage: CheckStageConnect, Err: fmt.Errorf("address is required")}
	}
	conn, err := gogrpc.NewClient(
		addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, &CheckError{Stage: CheckStageConnect, Err: err}
	}
	return conn, nil
}

// CheckHealth makes a single health call against addr and succeeds only when
// service reports SERVING.
func CheckHealth(ctx context.Context, addr, service string) error {
	conn, err := NewHealthConn(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return checkServing(ctx, grpc_health_v1.NewHealthClient(conn), service)
}

// WaitForHealth blocks until the health check reports SERVING or ctx ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logger zerolog.Logger) error {
	if conn == nil {
		return &CheckError{Stage: CheckStageConnect, Err: fmt.Errorf("connection is not configured")}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := initialBackoff
	for {
		err := checkServing(ctx, client, service)
		if err == nil {
			logger.Debug().Str("health_service", service).Msg("gRPC health is SERVING")
			return nil
		}
		logger.Debug().Err(err).Str("health_service", service).Msg("waiting for gRPC health")

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func checkServing(ctx context.Context, client grpc_health_v1.HealthClient, service string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	response, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return &CheckError{Stage: CheckStageStatus, Err: err}
	}
	if status := response.GetStatus(); status != grpc_health_v1.HealthCheckResponse_SERVING {
		return &CheckError{Stage: CheckStageStatus, Err: fmt.Errorf("status %s", status)}
	}
	return nil
}
