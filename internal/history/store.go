package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Batch is one feed run.
type Batch struct {
	ID         string
	Source     string
	Filter     string
	TimeRange  string
	Requested  int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Record is the outcome of one post.
type Record struct {
	BatchID    string
	PostIndex  int
	Title      string
	Permalink  string
	MediaKind  string
	Status     string
	Reason     string
	Detail     string
	Bytes      int64
	RecordedAt time.Time
}

// BatchSummary aggregates a batch's outcomes by status.
type BatchSummary struct {
	Batch
	Counts map[string]int
}

// Store manages the ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a new ledger)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginBatch records the start of a feed run.
func (s *Store) BeginBatch(ctx context.Context, b Batch) error {
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, source, filter, time_range, requested, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Source, b.Filter, nullableString(b.TimeRange), b.Requested, formatTime(b.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// FinishBatch stamps the completion time of a feed run.
func (s *Store) FinishBatch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE batches SET finished_at = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish batch: unknown batch %q", id)
	}
	return nil
}

// Record appends one post outcome.
func (s *Store) Record(ctx context.Context, r Record) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (
            batch_id, post_index, title, permalink, media_kind, status, reason, detail, bytes, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BatchID, r.PostIndex, r.Title, nullableString(r.Permalink), r.MediaKind, r.Status,
		nullableString(r.Reason), nullableString(r.Detail), r.Bytes, formatTime(r.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Recent returns the latest outcomes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, post_index, title, permalink, media_kind, status, reason, detail, bytes, recorded_at
         FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r                         Record
			permalink, reason, detail sql.NullString
			recordedAt                string
		)
		if err := rows.Scan(&r.BatchID, &r.PostIndex, &r.Title, &permalink, &r.MediaKind, &r.Status,
			&reason, &detail, &r.Bytes, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		r.Permalink = permalink.String
		r.Reason = reason.String
		r.Detail = detail.String
		r.RecordedAt = parseTime(recordedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Batches returns the latest runs with per-status counts, newest first.
func (s *Store) Batches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, filter, time_range, requested, started_at, finished_at
         FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	var summaries []BatchSummary
	for rows.Next() {
		var (
			b                   BatchSummary
			timeRange, finished sql.NullString
			started             string
		)
		if err := rows.Scan(&b.ID, &b.Source, &b.Filter, &timeRange, &b.Requested, &started, &finished); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.TimeRange = timeRange.String
		b.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			b.FinishedAt = &t
		}
		b.Counts = map[string]int{}
		summaries = append(summaries, b)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range summaries {
		if err := s.fillCounts(ctx, &summaries[i]); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func (s *Store) fillCounts(ctx context.Context, b *BatchSummary) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM outcomes WHERE batch_id = ? GROUP BY status", b.ID)
	if err != nil {
		return fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("scan count: %w", err)
		}
		b.Counts[status] = count
	}
	return rows.Err()
}

// Prune deletes batches (and their outcomes) started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM batches WHERE started_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
