package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// SQLiteStore persists fallback configs in SQLite as JSON blobs keyed by id.
// Suitable for single-instance deployments where configs must survive
// restarts.
//
// The store uses a write-ahead log (WAL) for better concurrent performance.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	mu        sync.RWMutex
	closeOnce sync.Once

	putStmt    *sql.Stmt
	getStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite config store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite config store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{
		DBPath:      dbPath,
		BusyTimeout: 5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig creates a SQLite config store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		dbPath: cfg.DBPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fallback_configs (
		id           TEXT PRIMARY KEY,
		config_json  TEXT NOT NULL,
		updated_at   INTEGER NOT NULL,
		created_at   INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO fallback_configs (id, config_json, updated_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT config_json FROM fallback_configs WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM fallback_configs WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT config_json FROM fallback_configs ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Get returns the config with the given id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*config.FallbackConfig, error) {
	if id == "" {
		return nil, fmt.Errorf("config id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob string
	err := s.getStmt.QueryRowContext(ctx, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", id, err)
	}

	var fc config.FallbackConfig
	if err := json.Unmarshal([]byte(blob), &fc); err != nil {
		return nil, fmt.Errorf("failed to decode config %q: %w", id, err)
	}
	return &fc, nil
}

// Put creates or replaces a config.
func (s *SQLiteStore) Put(ctx context.Context, fc *config.FallbackConfig) error {
	if fc == nil || fc.ID == "" {
		return fmt.Errorf("config id cannot be empty")
	}

	blob, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to encode config %q: %w", fc.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	if _, err := s.putStmt.ExecContext(ctx, fc.ID, string(blob), now, now); err != nil {
		return fmt.Errorf("failed to save config %q: %w", fc.ID, err)
	}
	return nil
}

// Delete removes a config, returning ErrNotFound when it does not exist.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("config id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete config %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete config %q: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all stored configs.
func (s *SQLiteStore) List(ctx context.Context) ([]*config.FallbackConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	var configs []*config.FallbackConfig
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var fc config.FallbackConfig
		if err := json.Unmarshal([]byte(blob), &fc); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		configs = append(configs, &fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return configs, nil
}

// Close releases the prepared statements and database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.putStmt, s.getStmt, s.deleteStmt, s.listStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}
