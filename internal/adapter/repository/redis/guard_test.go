package redis

import (
	"context"
	"testing"
	"time"
)

func TestStartGuardAcquireIsExclusive(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	first := NewStartGuard(client)
	second := NewStartGuard(client)
	ctx := context.Background()

	token, ok, err := first.TryAcquire(ctx, "reconciliation:start:bank-1", time.Minute)
	if err != nil || !ok || token == "" {
		t.Fatalf("expected first acquire to succeed, got token=%q ok=%v err=%v", token, ok, err)
	}

	token, ok, err = second.TryAcquire(ctx, "reconciliation:start:bank-1", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if ok || token != "" {
		t.Fatalf("expected second acquire to fail while key is held")
	}

	_, ok, err = second.TryAcquire(ctx, "reconciliation:start:bank-2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected other key to be free, got ok=%v err=%v", ok, err)
	}
}

func TestStartGuardRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	guard := NewStartGuard(client)
	ctx := context.Background()

	token, ok, err := guard.TryAcquire(ctx, "key", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	if err := guard.Release(ctx, "key", token); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if mr.Exists("genfin:guard:key") {
		t.Fatalf("expected key to be removed")
	}

	if _, ok, err := guard.TryAcquire(ctx, "key", time.Minute); err != nil || !ok {
		t.Fatalf("expected reacquire after release, got ok=%v err=%v", ok, err)
	}
}

func TestStartGuardStaleHolderKeepsNewLease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	guard := NewStartGuard(client)
	ctx := context.Background()

	stale, ok, err := guard.TryAcquire(ctx, "key", time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	mr.FastForward(2 * time.Second)

	current, ok, err := guard.TryAcquire(ctx, "key", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected acquire after expiry, got ok=%v err=%v", ok, err)
	}
	if current == stale {
		t.Fatalf("expected a fresh token per acquire")
	}

	if err := guard.Release(ctx, "key", stale); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !mr.Exists("genfin:guard:key") {
		t.Fatalf("expected stale release to leave the current lease")
	}

	if err := guard.Release(ctx, "key", current); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists("genfin:guard:key") {
		t.Fatalf("expected current holder release to remove the key")
	}
}
