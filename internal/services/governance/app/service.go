// Package app hosts the governance service: it loads ledgers and decisions
// from storage, serializes work per company and per decision, runs the pure
// domain operations and persists, audits and announces their results.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/moltcompany/internal/platform/id"
	"github.com/louisbranch/moltcompany/internal/services/governance/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/moltcompany/internal/services/governance/app"

// ServiceConfig wires the service's collaborators. Only Store is required.
type ServiceConfig struct {
	Store       storage.Store
	Audit       AuditSink
	Notifier    Notifier
	Metrics     *Metrics
	Logger      zerolog.Logger
	Clock       func() time.Time
	IDGenerator func() (string, error)
}

// Service coordinates governance operations.
type Service struct {
	store       storage.Store
	audit       AuditSink
	notifier    Notifier
	metrics     *Metrics
	logger      zerolog.Logger
	tracer      trace.Tracer
	clock       func() time.Time
	idGenerator func() (string, error)

	companyLocks  *keyedLocker
	decisionLocks *keyedLocker
}

// NewService builds a service from cfg.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("governance store is required")
	}
	service := &Service{
		store:         cfg.Store,
		audit:         cfg.Audit,
		notifier:      cfg.Notifier,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		tracer:        otel.Tracer(tracerName),
		clock:         cfg.Clock,
		idGenerator:   cfg.IDGenerator,
		companyLocks:  newKeyedLocker(),
		decisionLocks: newKeyedLocker(),
	}
	if service.audit == nil {
		service.audit = NewZerologAuditSink(cfg.Logger)
	}
	if service.notifier == nil {
		service.notifier = nopNotifier{}
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	if service.idGenerator == nil {
		service.idGenerator = id.NewID
	}
	return service, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "governance."+operation, trace.WithAttributes(attrs...))
}

// finishSpan records err on span. Rejections are expected outcomes and do
// not mark the span as failed.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		var rejection *RejectedError
		if errors.As(err, &rejection) {
			span.SetAttributes(attribute.String("governance.rejection", rejection.Code()))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func (s *Service) record(ctx context.Context, record AuditRecord) {
	if record.At.IsZero() {
		record.At = s.now()
	}
	if err := s.audit.Record(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("action", record.Action).Msg("record audit")
	}
}

func (s *Service) notify(ctx context.Context, notification Notification) {
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.Warn().Err(err).Str("type", notification.Type).Msg("send notification")
	}
}

func (s *Service) reject(operation string, err *RejectedError) error {
	s.metrics.rejection(operation, err.Code())
	s.logger.Debug().Str("operation", operation).Str("code", err.Code()).Msg(err.Error())
	return err
}

func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	var rejection *RejectedError
	if errors.As(err, &rejection) {
		return err
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func formatID(value int64) string {
	return strconv.FormatInt(value, 10)
}
