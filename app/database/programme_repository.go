package database

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const insertBatchSize = 500

var _ ProgrammeStore = (*ProgrammeRepository)(nil)

// ProgrammeRepository handles database operations for the epg table.
//
// The epg columns are timestamps without a zone, so times are stored as
// wall-clock values in the repository location and read back into it.
type ProgrammeRepository struct {
	db       *DB
	location *time.Location
}

// NewProgrammeRepository creates a new programme repository
func NewProgrammeRepository(db *DB, location *time.Location) *ProgrammeRepository {
	if location == nil {
		location = time.Local
	}
	return &ProgrammeRepository{db: db, location: location}
}

// ReplaceChannelProgrammes deletes every stored row of the channel and inserts
// programmes in the same transaction. On failure the previous rows are kept.
func (r *ProgrammeRepository) ReplaceChannelProgrammes(ctx context.Context, channel string, programmes []Programme) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StoreError{Op: "begin", Channel: channel, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM epg WHERE channel = ?`), channel); err != nil {
		return 0, &StoreError{Op: "delete", Channel: channel, Err: err}
	}

	for start := 0; start < len(programmes); start += insertBatchSize {
		end := min(start+insertBatchSize, len(programmes))
		if err := r.insertBatch(ctx, tx, channel, programmes[start:end]); err != nil {
			return 0, &StoreError{Op: "insert", Channel: channel, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StoreError{Op: "commit", Channel: channel, Err: err}
	}

	return len(programmes), nil
}

func (r *ProgrammeRepository) insertBatch(ctx context.Context, tx *sql.Tx, channel string, programmes []Programme) error {
	var query strings.Builder
	query.WriteString(`INSERT INTO epg (start, stop, title, channel, description) VALUES `)

	args := make([]any, 0, len(programmes)*5)
	for i, p := range programmes {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, r.toWallClock(p.Start), r.toWallClock(p.Stop), p.Title, channel, p.Description)
	}

	_, err := tx.ExecContext(ctx, r.db.Rebind(query.String()), args...)
	return err
}

// ListChannelProgrammes returns up to limit programmes of the channel starting
// at or after from, ordered by start. A limit of zero or less returns all of them.
func (r *ProgrammeRepository) ListChannelProgrammes(ctx context.Context, channel string, from time.Time, limit int) ([]Programme, error) {
	query := `
		SELECT start, stop, title, channel, description
		FROM epg
		WHERE channel = ? AND start >= ?
		ORDER BY start`
	args := []any{channel, r.toWallClock(from)}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, &StoreError{Op: "list", Channel: channel, Err: err}
	}
	defer rows.Close()

	var programmes []Programme
	for rows.Next() {
		var (
			p                  Programme
			title, description sql.NullString
		)

		if err := rows.Scan(&p.Start, &p.Stop, &title, &p.Channel, &description); err != nil {
			return nil, &StoreError{Op: "list", Channel: channel, Err: err}
		}

		p.Start = r.fromWallClock(p.Start)
		p.Stop = r.fromWallClock(p.Stop)
		p.Title = title.String
		p.Description = description.String

		programmes = append(programmes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Channel: channel, Err: err}
	}

	return programmes, nil
}

func (r *ProgrammeRepository) CountChannelProgrammes(ctx context.Context, channel string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM epg WHERE channel = ?`), channel).Scan(&count)
	if err != nil {
		return 0, &StoreError{Op: "count", Channel: channel, Err: err}
	}
	return count, nil
}

func (r *ProgrammeRepository) toWallClock(t time.Time) time.Time {
	t = t.In(r.location)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func (r *ProgrammeRepository) fromWallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), r.location)
}
