package notifications

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCooldown()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := c.Acquire(ctx, "change:vote1:COMMISSION", 30*time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}

	// Inside the window: muted.
	now = now.Add(10 * time.Minute)
	ok, err = c.Acquire(ctx, "change:vote1:COMMISSION", 30*time.Minute)
	if err != nil || ok {
		t.Fatalf("acquire inside window = %v, %v", ok, err)
	}

	// A different key is independent.
	ok, err = c.Acquire(ctx, "change:vote2:COMMISSION", 30*time.Minute)
	if err != nil || !ok {
		t.Fatalf("unrelated key = %v, %v", ok, err)
	}

	// Window elapsed: the next send goes through again.
	now = now.Add(30 * time.Minute)
	ok, err = c.Acquire(ctx, "change:vote1:COMMISSION", 30*time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after window = %v, %v", ok, err)
	}
}
