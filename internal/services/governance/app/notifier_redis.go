package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
)

// DefaultNotifyChannelPrefix prefixes the per-company pub/sub channel.
const DefaultNotifyChannelPrefix = "molt:governance:"

const (
	notifyBreakerFailures = 3
	notifyBreakerTimeout  = 30 * time.Second
)

// RedisNotifier publishes notifications as JSON on a per-company Redis
// channel. Subscribers that are not listening miss the message. After
// repeated publish failures the breaker opens and notifications are dropped
// until Redis recovers.
type RedisNotifier struct {
	client  redis.Cmdable
	prefix  string
	breaker *gobreaker.CircuitBreaker
}

type notificationMessage struct {
	Type       string            `json:"type"`
	CompanyID  string            `json:"company_id"`
	ResourceID string            `json:"resource_id,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// NewRedisNotifier builds a notifier over client. An empty prefix uses
// DefaultNotifyChannelPrefix.
func NewRedisNotifier(client redis.Cmdable, prefix string) *RedisNotifier {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultNotifyChannelPrefix
	}
	settings := gobreaker.Settings{Name: "governance-notify", Timeout: notifyBreakerTimeout}
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= notifyBreakerFailures
	}
	return &RedisNotifier{client: client, prefix: prefix, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Channel names the pub/sub channel for a company.
func (n *RedisNotifier) Channel(companyID string) string {
	return n.prefix + companyID
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notificationMessage{
		Type:       notification.Type,
		CompanyID:  notification.CompanyID,
		ResourceID: notification.ResourceID,
		Payload:    notification.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = n.breaker.Execute(func() (interface{}, error) {
		return nil, n.client.Publish(ctx, n.Channel(notification.CompanyID), string(payload)).Err()
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", notification.Type, err)
	}
	return nil
}
