package redis

import (
	"context"
	"testing"
	"time"
)

func TestReminderLedgerClaimOncePerDay(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedis(t)
	ledger, err := NewReminderLedger(rdb, time.Hour)
	if err != nil {
		t.Fatalf("NewReminderLedger() error = %v", err)
	}

	ctx := context.Background()
	day := time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC)

	first, err := ledger.Claim(ctx, "task_overdue", "task-1", day)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !first {
		t.Fatal("first claim should succeed")
	}

	again, err := ledger.Claim(ctx, "task_overdue", "task-1", day.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if again {
		t.Fatal("second claim on the same day should be rejected")
	}

	otherTask, err := ledger.Claim(ctx, "task_overdue", "task-2", day)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !otherTask {
		t.Fatal("different task should be claimable")
	}

	nextDay, err := ledger.Claim(ctx, "task_overdue", "task-1", day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !nextDay {
		t.Fatal("next day should be claimable")
	}
}

func TestReminderLedgerReleaseAllowsReclaim(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedis(t)
	ledger, err := NewReminderLedger(rdb, 0)
	if err != nil {
		t.Fatalf("NewReminderLedger() error = %v", err)
	}

	ctx := context.Background()
	day := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	if ok, err := ledger.Claim(ctx, "task_reminder", "task-1", day); err != nil || !ok {
		t.Fatalf("Claim() = %v, %v, want true, nil", ok, err)
	}
	if err := ledger.Release(ctx, "task_reminder", "task-1", day); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, err := ledger.Claim(ctx, "task_reminder", "task-1", day); err != nil || !ok {
		t.Fatalf("Claim() after release = %v, %v, want true, nil", ok, err)
	}
}

func TestReminderLedgerKeyExpires(t *testing.T) {
	t.Parallel()

	rdb, mr := newTestRedis(t)
	ledger, err := NewReminderLedger(rdb, time.Hour)
	if err != nil {
		t.Fatalf("NewReminderLedger() error = %v", err)
	}

	ctx := context.Background()
	day := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	if ok, err := ledger.Claim(ctx, "task_overdue", "task-1", day); err != nil || !ok {
		t.Fatalf("Claim() = %v, %v, want true, nil", ok, err)
	}

	mr.FastForward(2 * time.Hour)

	if ok, err := ledger.Claim(ctx, "task_overdue", "task-1", day); err != nil || !ok {
		t.Fatalf("Claim() after expiry = %v, %v, want true, nil", ok, err)
	}
}

func TestReminderLedgerValidatesInput(t *testing.T) {
	t.Parallel()

	if _, err := NewReminderLedger(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil client")
	}

	rdb, _ := newTestRedis(t)
	ledger, err := NewReminderLedger(rdb, time.Hour)
	if err != nil {
		t.Fatalf("NewReminderLedger() error = %v", err)
	}
	if _, err := ledger.Claim(context.Background(), "", "task-1", time.Now()); err == nil {
		t.Fatal("expected error for empty kind")
	}
	if _, err := ledger.Claim(context.Background(), "task_overdue", " ", time.Now()); err == nil {
		t.Fatal("expected error for empty task id")
	}
}
