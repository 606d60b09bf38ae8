package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	ledgerKeyPrefix  = "crm_mailer:notice"
	defaultLedgerTTL = 48 * time.Hour
)

// ReminderLedger remembers which task notices were already queued on a given day.
type ReminderLedger struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewReminderLedger(client *goredis.Client, ttl time.Duration) (*ReminderLedger, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &ReminderLedger{client: client, ttl: ttl}, nil
}

// Claim returns true the first time kind/taskID is seen for day's calendar date.
func (l *ReminderLedger) Claim(ctx context.Context, kind, taskID string, day time.Time) (bool, error) {
	key, err := ledgerKey(kind, taskID, day)
	if err != nil {
		return false, err
	}

	ok, err := l.client.SetNX(ctx, key, 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim notice %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so a failed enqueue can be retried on the next scan.
func (l *ReminderLedger) Release(ctx context.Context, kind, taskID string, day time.Time) error {
	key, err := ledgerKey(kind, taskID, day)
	if err != nil {
		return err
	}
	return l.client.Del(ctx, key).Err()
}

func ledgerKey(kind, taskID string, day time.Time) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	taskID = strings.TrimSpace(taskID)
	if kind == "" || taskID == "" {
		return "", fmt.Errorf("kind and task id are required")
	}
	return fmt.Sprintf("%s:%s:%s:%s", ledgerKeyPrefix, kind, taskID, day.Format(time.DateOnly)), nil
}
