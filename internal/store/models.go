package store

import (
	"time"

	"taskboard/api/internal/rank"
)

// Record is one client record moving through the board. Title and Notes are
// opaque to the rank logic; only Lane and Rank are ever mutated, and only by
// MoveRecord.
type Record struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
	Lane      rank.Lane `json:"lane"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SnapshotInfo describes one committed board snapshot in the history log.
type SnapshotInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
