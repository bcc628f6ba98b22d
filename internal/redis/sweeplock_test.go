package redis

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSweepLock_AcquireAndRelease(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewSweepLock(client, "host-a", time.Minute, zap.NewNop())
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "escalation")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !acquired {
		t.Fatal("first acquire should succeed")
	}

	if err := lock.Release(ctx, "escalation"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	// Released lock can be re-acquired.
	acquired, err = lock.Acquire(ctx, "escalation")
	if err != nil || !acquired {
		t.Fatalf("re-acquire after release: acquired=%v err=%v", acquired, err)
	}
}

func TestSweepLock_HeldLockBlocksOtherHolder(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	lockA := NewSweepLock(client, "host-a", time.Minute, zap.NewNop())
	lockB := NewSweepLock(client, "host-b", time.Minute, zap.NewNop())

	if acquired, _ := lockA.Acquire(ctx, "escalation"); !acquired {
		t.Fatal("host-a should acquire")
	}
	if acquired, _ := lockB.Acquire(ctx, "escalation"); acquired {
		t.Fatal("host-b should be blocked while host-a holds the lock")
	}
}

func TestSweepLock_SweepKindsAreIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	lock := NewSweepLock(client, "host-a", time.Minute, zap.NewNop())

	if acquired, _ := lock.Acquire(ctx, "escalation"); !acquired {
		t.Fatal("escalation lock should acquire")
	}
	if acquired, _ := lock.Acquire(ctx, "generation"); !acquired {
		t.Fatal("generation lock should acquire independently")
	}
}

func TestSweepLock_ReleaseIgnoresForeignHolder(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	lockA := NewSweepLock(client, "host-a", time.Minute, zap.NewNop())
	lockB := NewSweepLock(client, "host-b", time.Minute, zap.NewNop())

	if acquired, _ := lockA.Acquire(ctx, "wake"); !acquired {
		t.Fatal("host-a should acquire")
	}

	// host-b releasing must not free host-a's lock.
	if err := lockB.Release(ctx, "wake"); err != nil {
		t.Fatalf("foreign release errored: %v", err)
	}
	if acquired, _ := lockB.Acquire(ctx, "wake"); acquired {
		t.Fatal("lock should still be held by host-a")
	}
}
