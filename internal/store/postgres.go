package store

import (
	"context"
	"database/sql"
	"fmt"

	"taskboard/api/internal/rank"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetRecord(ctx context.Context, id int64) (Record, error) {
	var item Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, notes, lane, rank, created_at, updated_at
		FROM records
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Title, &item.Notes, &item.Lane, &item.Rank, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	return item, nil
}

// ListRecords returns the board ordered by lane then rank. A nil lane filter
// returns every record.
func (s *PostgresStore) ListRecords(ctx context.Context, lane *rank.Lane) ([]Record, error) {
	const listAll = `
		SELECT id, title, notes, lane, rank, created_at, updated_at
		FROM records
		ORDER BY lane ASC, rank ASC, id ASC
	`
	const listLane = `
		SELECT id, title, notes, lane, rank, created_at, updated_at
		FROM records
		WHERE lane=$1
		ORDER BY rank ASC, id ASC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if lane == nil {
		rows, err = s.db.QueryContext(ctx, listAll)
	} else {
		rows, err = s.db.QueryContext(ctx, listLane, string(*lane))
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0)
	for rows.Next() {
		var item Record
		if err := rows.Scan(&item.ID, &item.Title, &item.Notes, &item.Lane, &item.Rank, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// InsertRecord exists for bootstrap seeding only; there is no creation
// endpoint.
func (s *PostgresStore) InsertRecord(ctx context.Context, item Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, title, notes, lane, rank)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Title, item.Notes, string(item.Lane), item.Rank)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// MoveRecord applies a validated move as one serializable transaction: the
// target row and the destination lane's rows are locked, the mutation set is
// planned from the locked state, and every update commits together or not at
// all. Two concurrent moves into the same lane serialize on the row locks.
// A missing id surfaces as sql.ErrNoRows.
func (s *PostgresStore) MoveRecord(ctx context.Context, id int64, move rank.Move, policy rank.Policy) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin move tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		currentLane rank.Lane
		currentRank int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT lane, rank FROM records WHERE id=$1 FOR UPDATE
	`, id).Scan(&currentLane, &currentRank)
	if err != nil {
		return fmt.Errorf("resolve record %d: %w", id, err)
	}

	destLane := currentLane
	switch m := move.(type) {
	case rank.ChangeLane:
		destLane = m.Lane
	case rank.ChangeBoth:
		destLane = m.Lane
	}

	var mates []rank.Slot
	if _, laneOnly := move.(rank.ChangeLane); !laneOnly {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, rank FROM records
			WHERE lane=$1 AND id<>$2
			ORDER BY rank ASC
			FOR UPDATE
		`, string(destLane), id)
		if err != nil {
			return fmt.Errorf("lock lane %s: %w", destLane, err)
		}
		for rows.Next() {
			var slot rank.Slot
			if err := rows.Scan(&slot.ID, &slot.Rank); err != nil {
				rows.Close()
				return fmt.Errorf("scan lane mate: %w", err)
			}
			mates = append(mates, slot)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate lane mates: %w", err)
		}
		rows.Close()
	}

	for _, mutation := range rank.Plan(id, currentLane, currentRank, mates, move, policy) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE records SET lane=$2, rank=$3, updated_at=NOW() WHERE id=$1
		`, mutation.ID, string(mutation.Lane), mutation.Rank); err != nil {
			return fmt.Errorf("apply rank mutation id=%d: %w", mutation.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
