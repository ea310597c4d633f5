package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: server.Addr()}), "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store, server
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t)
	created := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)

	if err := store.Upsert(ctx, "r.png", ImageRecord{Width: 1024, Height: 1024, Prompt: "moon", Model: "m", GenerationTime: 2, Created: created}); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	if !server.Exists("test:metadata") {
		t.Fatal("expected hash test:metadata to exist")
	}

	got, err := store.Get(ctx, "r.png")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Filename != "r.png" || got.Prompt != "moon" || !got.Created.Equal(created) {
		t.Errorf("unexpected record %+v", got)
	}

	if _, err := store.Get(ctx, "missing.png"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRedisStore_LoadSkipsCorruptValues(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t)

	_ = store.Upsert(ctx, "good.png", ImageRecord{Prompt: "ok"})
	server.HSet("test:metadata", "bad.png", "{broken")

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 valid record, got %d", len(records))
	}
	if _, ok := records["good.png"]; !ok {
		t.Error("expected good.png to be loaded")
	}
}

func TestRedisStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Upsert(ctx, "old.png", ImageRecord{Created: base})
	_ = store.Upsert(ctx, "new.png", ImageRecord{Created: base.Add(time.Hour)})

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(records) != 2 || records[0].Filename != "new.png" {
		t.Errorf("unexpected order %+v", records)
	}
}

func TestNewRedisStoreFromURL_Invalid(t *testing.T) {
	if _, err := NewRedisStoreFromURL("", ""); err == nil {
		t.Error("expected error for empty connection string")
	}
	if _, err := NewRedisStoreFromURL("http://example.com", ""); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}

func newMiniredisAddr(t *testing.T) string {
	t.Helper()
	return miniredis.RunT(t).Addr()
}
