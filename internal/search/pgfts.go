package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements record search using PostgreSQL full-text search as a
// fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches records via plainto_tsquery against the generated fts
// column, with ts_headline snippets and ts_rank ordering.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "fts @@ plainto_tsquery('english', $1)"
	args := []any{q.Text}
	if q.FilterLane != "" {
		where += " AND lane = $2"
		args = append(args, q.FilterLane)
	}

	ctx := context.Background()

	var total int
	countSQL := "SELECT count(*) FROM records WHERE " + where
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, title,
			ts_headline('english', coalesce(notes, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			lane, rank
		FROM records
		WHERE %s
		ORDER BY ts_rank(fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Lane, &r.Rank); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every record for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]RecordDoc, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, notes, lane, rank
		FROM records
	`)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	docs := make([]RecordDoc, 0)
	for rows.Next() {
		var d RecordDoc
		if err := rows.Scan(&d.ID, &d.Title, &d.Notes, &d.Lane, &d.Rank); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return docs, nil
}
