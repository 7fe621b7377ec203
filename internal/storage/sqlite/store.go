// Package sqlite provides the local lottery record store: one JSON blob kept
// under a fixed key in a SQLite key-value table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/logger"
	"luckydraw/internal/models"
	"luckydraw/internal/storage"
	"luckydraw/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// DefaultKey is the key the record is stored under.
const DefaultKey = "cypresstel_lottery_data_v1"

// Store persists the lottery record in SQLite.
type Store struct {
	sqlDB *sql.DB
	key   string
}

// Open opens a SQLite store at path and applies embedded migrations.
// An empty key selects DefaultKey.
func Open(path, key string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, key: key}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load reads and decodes the stored blob.
func (s *Store) Load(ctx context.Context) (models.AppState, error) {
	raw, err := readBlob(ctx, s.sqlDB, s.key)
	if err != nil {
		return models.AppState{}, err
	}
	return decode(raw)
}

// Save overwrites the stored blob.
func (s *Store) Save(ctx context.Context, state models.AppState) error {
	return writeBlob(ctx, s.sqlDB, s.key, state)
}

// Patch applies patch to the stored blob inside one transaction. A missing or
// corrupt blob is patched on top of the default state.
func (s *Store) Patch(ctx context.Context, patch models.StatePatch) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := models.DefaultState()
	raw, err := readBlob(ctx, tx, s.key)
	switch {
	case err == nil:
		decoded, derr := decode(raw)
		if derr != nil {
			logger.Warningf("Patching over corrupt record %q: %v", s.key, derr)
		} else {
			current = decoded
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return err
	}

	if err := writeBlob(ctx, tx, s.key, patch.Apply(current)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patch: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readBlob(ctx context.Context, q querier, key string) (string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read record %q: %w", key, err)
	}
	return raw, nil
}

func writeBlob(ctx context.Context, q querier, key string, state models.AppState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write record %q: %w", key, err)
	}
	return nil
}

func decode(raw string) (models.AppState, error) {
	var state models.AppState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return models.AppState{}, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	return state, nil
}
