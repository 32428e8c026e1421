package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
)

const settingsRowID = "default"

// SQLiteRepository stores the settings document as a JSON payload in a
// single-row table.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the settings database at
// dbPath and ensures the schema exists.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	normalizedPath := normalizeSQLitePath(dbPath)
	if err := ensureSQLiteDir(normalizedPath); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_mode=rwc", normalizedPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

func ensureSQLiteDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func normalizeSQLitePath(dbPath string) string {
	if dbPath == "" {
		return dbPath
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return dbPath
	}
	return abs
}

func (r *SQLiteRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS app_settings (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL DEFAULT '{}',
		updated_at DATETIME NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Get returns the stored settings, or the zero value when nothing has been
// saved yet.
func (r *SQLiteRepository) Get(ctx context.Context) (settings.Settings, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `
		SELECT payload FROM app_settings WHERE id = ?
	`, settingsRowID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Settings{}, nil
	}
	if err != nil {
		return settings.Settings{}, err
	}

	var s settings.Settings
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return settings.Settings{}, fmt.Errorf("corrupt settings payload: %w", err)
	}
	return s, nil
}

// Put replaces the stored settings document.
func (r *SQLiteRepository) Put(ctx context.Context, s settings.Settings) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO app_settings (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, settingsRowID, string(payload), time.Now().UTC())
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
