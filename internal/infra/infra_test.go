package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client, err := NewRedisClient(ctx, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()

	if err := client.Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := mr.Exists("k"); !got {
		t.Fatal("expected key to reach miniredis")
	}
}

func TestEmptyURLsDisableBackends(t *testing.T) {
	ctx := context.Background()

	pool, err := NewPostgresPool(ctx, "", "x")
	if err != nil || pool != nil {
		t.Fatalf("expected nil pool and no error, got %v, %v", pool, err)
	}
	client, err := NewRedisClient(ctx, "")
	if err != nil || client != nil {
		t.Fatalf("expected nil client and no error, got %v, %v", client, err)
	}
}

func TestNewPostgresPoolRejectsBadURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "postgres://%zz", "x"); err == nil {
		t.Fatal("expected parse error")
	}
}
