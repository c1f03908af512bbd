package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"taskboard/api/internal/rank"
)

func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping store integration test")
	}
	return databaseURL
}

func setupTestBoard(t *testing.T, ctx context.Context) *PostgresStore {
	t.Helper()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			lane TEXT NOT NULL,
			rank INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		t.Fatalf("ensure records table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE records`); err != nil {
		t.Fatalf("truncate records: %v", err)
	}

	s := NewPostgresStore(db)
	seeds := []Record{
		{ID: 1, Title: "Intake call", Lane: rank.LaneBacklog, Rank: 1},
		{ID: 2, Title: "Draft proposal", Lane: rank.LaneBacklog, Rank: 2},
		{ID: 3, Title: "Review contract", Lane: rank.LaneBacklog, Rank: 3},
		{ID: 4, Title: "Ship onboarding", Lane: rank.LaneInProgress, Rank: 1},
	}
	for _, seed := range seeds {
		if err := s.InsertRecord(ctx, seed); err != nil {
			t.Fatalf("seed record %d: %v", seed.ID, err)
		}
	}
	return s
}

func TestMoveRecordDisplacesWithinLane(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	s := setupTestBoard(t, ctx)

	if err := s.MoveRecord(ctx, 3, rank.ChangeBoth{Lane: rank.LaneBacklog, Rank: 1}, rank.Policy{}); err != nil {
		t.Fatalf("MoveRecord: %v", err)
	}

	lane := rank.LaneBacklog
	items, err := s.ListRecords(ctx, &lane)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}

	want := map[int64]int{1: 2, 2: 3, 3: 1}
	for _, item := range items {
		if want[item.ID] != item.Rank {
			t.Errorf("id=%d rank = %d, want %d", item.ID, item.Rank, want[item.ID])
		}
	}
}

func TestMoveRecordUnknownID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	s := setupTestBoard(t, ctx)

	err := s.MoveRecord(ctx, 99, rank.ChangeRank{Rank: 1}, rank.Policy{})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("MoveRecord(99) error = %v, want sql.ErrNoRows", err)
	}

	items, err := s.ListRecords(ctx, nil)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(items) != 4 {
		t.Errorf("record count = %d after failed move, want 4", len(items))
	}
}

func TestMoveRecordCancelledContextRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	s := setupTestBoard(t, ctx)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.MoveRecord(cancelled, 3, rank.ChangeRank{Rank: 1}, rank.Policy{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}

	lane := rank.LaneBacklog
	items, err := s.ListRecords(ctx, &lane)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	want := map[int64]int{1: 1, 2: 2, 3: 3}
	for _, item := range items {
		if want[item.ID] != item.Rank {
			t.Errorf("id=%d rank = %d after rollback, want %d", item.ID, item.Rank, want[item.ID])
		}
	}
}

func TestMoveRecordAcrossLanes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	s := setupTestBoard(t, ctx)

	if err := s.MoveRecord(ctx, 2, rank.ChangeBoth{Lane: rank.LaneInProgress, Rank: 1}, rank.Policy{}); err != nil {
		t.Fatalf("MoveRecord: %v", err)
	}

	lane := rank.LaneInProgress
	items, err := s.ListRecords(ctx, &lane)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	want := map[int64]int{2: 1, 4: 2}
	if len(items) != len(want) {
		t.Fatalf("inProgress has %d records, want %d", len(items), len(want))
	}
	for _, item := range items {
		if want[item.ID] != item.Rank {
			t.Errorf("id=%d rank = %d, want %d", item.ID, item.Rank, want[item.ID])
		}
	}

	// The vacated backlog rank is not compacted.
	lane = rank.LaneBacklog
	backlog, err := s.ListRecords(ctx, &lane)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	ranks := map[int64]int{}
	for _, item := range backlog {
		ranks[item.ID] = item.Rank
	}
	if ranks[1] != 1 || ranks[3] != 3 {
		t.Errorf("backlog ranks = %v, want 1→1 and 3→3 with a gap at 2", ranks)
	}
}
