package app

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/sony/gobreaker"
)

func TestRedisNotifierPublishesJSON(t *testing.T) {
	client, mock := redismock.NewClientMock()
	notifier := NewRedisNotifier(client, "")

	mock.ExpectPublish(
		"molt:governance:co-1",
		`{"type":"decision.resolved","company_id":"co-1","resource_id":"dec-1","payload":{"status":"passed","winning_option":"approve"}}`,
	).SetVal(1)

	err := notifier.Notify(context.Background(), Notification{
		Type:       "decision.resolved",
		CompanyID:  "co-1",
		ResourceID: "dec-1",
		Payload:    map[string]string{"winning_option": "approve", "status": "passed"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}

func TestRedisNotifierWrapsPublishError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	notifier := NewRedisNotifier(client, "custom:")
	if got := notifier.Channel("co-9"); got != "custom:co-9" {
		t.Fatalf("channel = %q, want %q", got, "custom:co-9")
	}

	boom := errors.New("connection refused")
	mock.ExpectPublish("custom:co-9", `{"type":"member.joined","company_id":"co-9"}`).SetErr(boom)

	err := notifier.Notify(context.Background(), Notification{Type: "member.joined", CompanyID: "co-9"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped publish error", err)
	}
}

func TestRedisNotifierOpensBreakerAfterFailures(t *testing.T) {
	client, mock := redismock.NewClientMock()
	notifier := NewRedisNotifier(client, "")
	message := `{"type":"equity.grant","company_id":"co-1"}`
	boom := errors.New("timeout")

	for i := 0; i < notifyBreakerFailures; i++ {
		mock.ExpectPublish("molt:governance:co-1", message).SetErr(boom)
	}
	for i := 0; i < notifyBreakerFailures; i++ {
		if err := notifier.Notify(context.Background(), Notification{Type: "equity.grant", CompanyID: "co-1"}); !errors.Is(err, boom) {
			t.Fatalf("attempt %d err = %v, want publish error", i, err)
		}
	}

	err := notifier.Notify(context.Background(), Notification{Type: "equity.grant", CompanyID: "co-1"})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}
