package cache

import (
	"context"
	"testing"
	"time"

	"taskboard/api/internal/rank"
	"taskboard/api/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestCache(t *testing.T) (*BoardCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewBoardCache("redis://"+s.Addr(), 30*time.Second)
	if err != nil {
		t.Fatalf("failed to create board cache: %v", err)
	}
	return cache, s
}

func testBoard() []store.Record {
	return []store.Record{
		{ID: 1, Title: "Intake call", Lane: rank.LaneBacklog, Rank: 1},
		{ID: 2, Title: "Draft proposal", Lane: rank.LaneBacklog, Rank: 2},
		{ID: 3, Title: "Onboard account", Lane: rank.LaneInProgress, Rank: 1},
	}
}

func TestNewBoardCache(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	cache, err := NewBoardCache("redis://"+s.Addr(), 30*time.Second)
	if err != nil {
		t.Fatalf("NewBoardCache failed: %v", err)
	}
	defer cache.Close()

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewBoardCacheWithClient(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cache := NewBoardCacheWithClient(client, 30*time.Second)
	defer cache.Close()

	ctx := context.Background()
	if err := cache.SetBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SetBoard failed: %v", err)
	}
	items, err := cache.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("cached %d records, want 3", len(items))
	}
}

func TestSetAndGetBoard(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.SetBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SetBoard failed: %v", err)
	}

	items, err := cache.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("cached %d records, want 3", len(items))
	}
	if items[0].ID != 1 || items[0].Lane != rank.LaneBacklog || items[0].Rank != 1 {
		t.Errorf("first cached record = %+v, want id=1 backlog rank=1", items[0])
	}
}

func TestGetBoardMiss(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	items, err := cache.GetBoard(context.Background())
	if err != nil {
		t.Fatalf("GetBoard on empty cache failed: %v", err)
	}
	if items != nil {
		t.Errorf("expected nil on cache miss, got %v", items)
	}
}

func TestInvalidate(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.SetBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SetBoard failed: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	items, err := cache.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard after invalidate failed: %v", err)
	}
	if items != nil {
		t.Errorf("expected miss after invalidate, got %v", items)
	}
}

func TestInvalidateEmptyCache(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	// Invalidating an empty cache should not error
	if err := cache.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate on empty cache failed: %v", err)
	}
}

func TestBoardExpires(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	cache, err := NewBoardCache("redis://"+s.Addr(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewBoardCache failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.SetBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SetBoard failed: %v", err)
	}

	// Fast-forward time in miniredis past the TTL
	s.FastForward(20 * time.Millisecond)

	items, err := cache.GetBoard(ctx)
	if err != nil {
		t.Fatalf("GetBoard after expiry failed: %v", err)
	}
	if items != nil {
		t.Errorf("expected miss after TTL expiry, got %v", items)
	}
}
