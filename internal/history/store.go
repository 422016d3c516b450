package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped on incompatible schema changes.
const schemaVersion = 1

// Key identifies a track for duplicate correlation: the folded (title, artist)
// pair.
type Key struct {
	Title  string
	Artist string
}

// Record is one accepted scrobble. Immutable after insertion.
type Record struct {
	ID              int64
	Key             Key
	Title           string
	Artist          string
	Album           string
	DurationSeconds int
	ScrobbledAt     time.Time
}

// Store manages scrobble history persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the history database. A missing file is
// created empty; an unreadable or corrupt file is renamed aside and replaced
// with a fresh store, logged as a warning rather than failing the pass.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	store, err := open(path, logger)
	if err == nil {
		return store, nil
	}

	asidePath := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405Z"))
	if renameErr := os.Rename(path, asidePath); renameErr != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	logger.Warn("history store unreadable, starting with empty history",
		slog.String("path", path),
		slog.String("moved_to", asidePath),
		slog.Any("error", err))

	return open(path, logger)
}

func open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	var integrity string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&integrity); err != nil || !strings.EqualFold(integrity, "ok") {
		_ = db.Close()
		if err == nil {
			err = fmt.Errorf("integrity check reported %q", integrity)
		}
		return nil, fmt.Errorf("history integrity: %w", err)
	}

	store := &Store{db: db, path: path, logger: logger}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("history schema version %d, expected %d", version, schemaVersion)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert appends a record and assigns its ID. Records are never overwritten.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is required")
	}
	if rec.Key.Title == "" && rec.Key.Artist == "" {
		return errors.New("record key is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scrobbles (title, artist, album, title_key, artist_key, duration_seconds, scrobbled_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Title,
		rec.Artist,
		rec.Album,
		rec.Key.Title,
		rec.Key.Artist,
		rec.DurationSeconds,
		rec.ScrobbledAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert scrobble: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// MostRecent returns the latest record for the key by scrobble time, or nil
// when the key has never been scrobbled.
func (s *Store) MostRecent(ctx context.Context, key Key) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, artist, album, title_key, artist_key, duration_seconds, scrobbled_at
         FROM scrobbles
         WHERE title_key = ? AND artist_key = ?
         ORDER BY scrobbled_at DESC, id DESC
         LIMIT 1`,
		key.Title, key.Artist,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent scrobble: %w", err)
	}
	return rec, nil
}

// All returns every record ordered by scrobble time ascending.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	return s.query(ctx,
		`SELECT id, title, artist, album, title_key, artist_key, duration_seconds, scrobbled_at
         FROM scrobbles ORDER BY scrobbled_at ASC, id ASC`)
}

// Search returns records whose title or artist contains the query substring,
// case-insensitively, newest first.
func (s *Store) Search(ctx context.Context, query string) ([]Record, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.query(ctx,
		`SELECT id, title, artist, album, title_key, artist_key, duration_seconds, scrobbled_at
         FROM scrobbles
         WHERE lower(title) LIKE ? OR lower(artist) LIKE ?
         ORDER BY scrobbled_at DESC, id DESC`,
		pattern, pattern)
}

// Since returns records scrobbled at or after the cutoff, newest first.
func (s *Store) Since(ctx context.Context, cutoff time.Time) ([]Record, error) {
	return s.query(ctx,
		`SELECT id, title, artist, album, title_key, artist_key, duration_seconds, scrobbled_at
         FROM scrobbles
         WHERE scrobbled_at >= ?
         ORDER BY scrobbled_at DESC, id DESC`,
		cutoff.UTC().Format(time.RFC3339))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query scrobbles: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var scrobbledAt string
	if err := row.Scan(
		&rec.ID, &rec.Title, &rec.Artist, &rec.Album,
		&rec.Key.Title, &rec.Key.Artist,
		&rec.DurationSeconds, &scrobbledAt,
	); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, scrobbledAt)
	if err != nil {
		return nil, fmt.Errorf("parse scrobbled_at %q: %w", scrobbledAt, err)
	}
	rec.ScrobbledAt = ts
	return &rec, nil
}
