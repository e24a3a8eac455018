// Package store is the SQLite repository behind the saved video slot and the trim journal.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a journal row does not exist.
var ErrNotFound = errors.New("not found")

// KV is the key/value slot surface.
type KV interface {
	// GetValue returns ok=false when the key has never been written.
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)
	SetValue(ctx context.Context, key, value string) error
}

type Repository interface {
	KV

	CreateTrim(ctx context.Context, rec *TrimRecord) error
	GetTrim(ctx context.Context, id string) (*TrimRecord, error)
	ListTrims(ctx context.Context, limit int) ([]*TrimRecord, error)
	FinishTrim(ctx context.Context, id string, outcome TrimOutcome) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetValue(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (r *SQLiteRepository) CreateTrim(ctx context.Context, t *TrimRecord) error {
	if t.Status == "" {
		t.Status = TrimStatusRunning
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trims (id, session_id, source_path, start_seconds, end_seconds, output_path, status, exit_code, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SessionID, t.SourcePath, t.StartSeconds, t.EndSeconds,
		nullString(t.OutputPath), t.Status, nullInt(t.ExitCode), nullString(t.Error),
		t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

const trimColumns = `id, session_id, source_path, start_seconds, end_seconds, output_path, status, exit_code, error, created_at, updated_at`

func (r *SQLiteRepository) GetTrim(ctx context.Context, id string) (*TrimRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+trimColumns+` FROM trims WHERE id = ?`, id)
	t, err := scanTrim(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func (r *SQLiteRepository) ListTrims(ctx context.Context, limit int) ([]*TrimRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+trimColumns+`
		FROM trims ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trims []*TrimRecord
	for rows.Next() {
		t, err := scanTrim(rows)
		if err != nil {
			return nil, err
		}
		trims = append(trims, t)
	}
	return trims, rows.Err()
}

func (r *SQLiteRepository) FinishTrim(ctx context.Context, id string, o TrimOutcome) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE trims SET status = ?, output_path = ?, exit_code = ?, error = ?, updated_at = datetime('now')
		WHERE id = ?
	`, o.Status, nullString(o.OutputPath), nullInt(o.ExitCode), nullString(o.Error), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrim(s scanner) (*TrimRecord, error) {
	var t TrimRecord
	var output, errMsg sql.NullString
	var exitCode sql.NullInt64
	var createdAt, updatedAt string

	if err := s.Scan(&t.ID, &t.SessionID, &t.SourcePath, &t.StartSeconds, &t.EndSeconds,
		&output, &t.Status, &exitCode, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	t.OutputPath = output.String
	t.Error = errMsg.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		t.ExitCode = &code
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

// parseTime accepts both RFC3339 and sqlite's datetime('now') layout.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
