package app

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Audit actions recorded by the service.
const (
	AuditCompanyCreated    = "company.created"
	AuditEquityPrefix      = "equity."
	AuditDecisionProposed  = "decision.proposed"
	AuditDecisionActivated = "decision.activated"
	AuditDecisionResolved  = "decision.resolved"
)

// AuditRecord describes one auditable governance action.
type AuditRecord struct {
	Action     string
	ActorID    string
	CompanyID  string
	ResourceID string
	Metadata   map[string]string
	At         time.Time
}

// AuditSink receives audit records. Storage of the trail is the sink's concern.
type AuditSink interface {
	Record(ctx context.Context, record AuditRecord) error
}

// ZerologAuditSink writes audit records as structured log events.
type ZerologAuditSink struct {
	logger zerolog.Logger
}

// NewZerologAuditSink returns a sink writing to logger.
func NewZerologAuditSink(logger zerolog.Logger) *ZerologAuditSink {
	return &ZerologAuditSink{logger: logger.With().Str("component", "audit").Logger()}
}

// Record logs the record at info level.
func (s *ZerologAuditSink) Record(_ context.Context, record AuditRecord) error {
	keys := make([]string, 0, len(record.Metadata))
	for key := range record.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	metadata := zerolog.Dict()
	for _, key := range keys {
		metadata = metadata.Str(key, record.Metadata[key])
	}
	s.logger.Info().
		Str("action", record.Action).
		Str("actor_id", record.ActorID).
		Str("company_id", record.CompanyID).
		Str("resource_id", record.ResourceID).
		Time("at", record.At).
		Dict("metadata", metadata).
		Msg("audit")
	return nil
}

// Notification announces a governance change to interested parties.
type Notification struct {
	Type       string
	CompanyID  string
	ResourceID string
	Payload    map[string]string
}

// Notifier delivers notifications. Delivery transport lives outside the service.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }
