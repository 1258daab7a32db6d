//go:build integration

package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"evo_chat_server/internal/config"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	host := os.Getenv("EVO_TEST_REDIS_HOST")
	if host == "" {
		t.Skip("EVO_TEST_REDIS_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("EVO_TEST_REDIS_PORT"))
	if port == 0 {
		port = 6379
	}
	rc, err := Init(config.RedisConfig{Host: host, Port: port, Db: 15, Workers: 2, Buffer: 16})
	if err != nil {
		t.Fatalf("redis init: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestPresenceMirrorRoundTrip(t *testing.T) {
	rc := testCache(t)
	ctx := context.Background()
	mirror := NewPresenceMirror(rc)

	if err := mirror.Set(ctx, 77, true); err != nil {
		t.Fatal(err)
	}
	ids, err := mirror.OnlineIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, id := range ids {
		found = found || id == 77
	}
	if !found {
		t.Fatalf("77 missing from %v", ids)
	}
	if err := mirror.Set(ctx, 77, false); err != nil {
		t.Fatal(err)
	}
}

func TestPresenceLedgerEdgesAcrossNodes(t *testing.T) {
	rc := testCache(t)
	ctx := context.Background()
	ledger := NewPresenceLedger(rc)
	_ = rc.Delete(ctx, connKey(88), nodeKey("it-n1"), nodeKey("it-n2"))

	if first, err := ledger.Attach(ctx, "it-n1", 88, "a"); err != nil || !first {
		t.Fatalf("first attach = %v, %v", first, err)
	}
	if first, _ := ledger.Attach(ctx, "it-n2", 88, "b"); first {
		t.Fatal("second node must not report a new ONLINE edge")
	}
	if last, _ := ledger.Detach(ctx, "it-n2", 88, "b"); last {
		t.Fatal("user still connected on it-n1")
	}
	if on, _ := ledger.Online(ctx, 88); !on {
		t.Fatal("user should still be online")
	}

	gone, err := ledger.Sweep(ctx, "it-n1")
	if err != nil || len(gone) != 1 || gone[0] != 88 {
		t.Fatalf("sweep = %v, %v", gone, err)
	}
	if on, _ := ledger.Online(ctx, 88); on {
		t.Fatal("sweep should clear the last ref")
	}
}

func TestTokenRegistryRevoke(t *testing.T) {
	rc := testCache(t)
	ctx := context.Background()
	reg := NewTokenRegistry(rc)

	if err := reg.Register(ctx, 5, "tok-a", time.Minute); err != nil {
		t.Fatal(err)
	}
	if ok, _ := reg.Valid(ctx, 5, "tok-a"); !ok {
		t.Fatal("registered token should be valid")
	}
	if err := reg.Revoke(ctx, 5, "tok-a"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := reg.Valid(ctx, 5, "tok-a"); ok {
		t.Fatal("revoked token should be invalid")
	}
}
