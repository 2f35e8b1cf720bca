package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the history database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL keeps concurrent history reads cheap while a batch is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the history table and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Append inserts a record, filling ID, Status, and CreatedAt when unset.
func (s *SQLiteStore) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "rec_" + uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = StatusSubmitted
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "history", "id", rec.ID, "kind", rec.Kind)

	var confirmedAt any
	if rec.ConfirmedAt != nil {
		confirmedAt = rec.ConfirmedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, kind, signature, sender, recipient, amount, status, created_at, confirmed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.Signature, rec.From, rec.To, rec.Amount,
		string(rec.Status), rec.CreatedAt.Format(time.RFC3339Nano), confirmedAt,
	)
	return err
}

// MarkStatus updates the status of the record with the given signature,
// stamping the confirmation time for confirmed and finalized states.
func (s *SQLiteStore) MarkStatus(ctx context.Context, signature string, status Status) error {
	s.logger.Debug("sql", "op", "update", "table", "history", "signature", signature, "status", status)

	var confirmedAt any
	if status == StatusConfirmed || status == StatusFinalized {
		confirmedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE history SET status = ?, confirmed_at = COALESCE(?, confirmed_at) WHERE signature = ?`,
		string(status), confirmedAt, signature,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no history record with signature %s", signature)
	}
	return nil
}

// List returns the newest records first, up to limit (0 means all).
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "history", "limit", limit)

	q := `SELECT id, kind, signature, sender, recipient, amount, status, created_at, confirmed_at
	      FROM history ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		var (
			rec         Record
			kind        string
			status      string
			createdAt   string
			confirmedAt sql.NullString
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Signature, &rec.From, &rec.To,
			&rec.Amount, &status, &createdAt, &confirmedAt); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		rec.Status = Status(status)
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if confirmedAt.Valid {
			ts, err := time.Parse(time.RFC3339Nano, confirmedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse confirmed_at: %w", err)
			}
			rec.ConfirmedAt = &ts
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// schema is the DDL; IF NOT EXISTS keeps Migrate idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS history (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		signature    TEXT NOT NULL DEFAULT '',
		sender       TEXT NOT NULL DEFAULT '',
		recipient    TEXT NOT NULL DEFAULT '',
		amount       INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL DEFAULT 'SUBMITTED',
		created_at   TEXT NOT NULL,
		confirmed_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_signature ON history(signature)`,
	`CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at)`,
}
