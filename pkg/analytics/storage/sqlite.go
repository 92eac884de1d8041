package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
)

// SQLiteConfig contains configuration for the SQLite event store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/events.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the event store on SQLite. Events are indexed by
// (chain_id, timestamp) so recency-bounded listing stays cheap as the log
// grows.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS fallback_events (
	id         TEXT PRIMARY KEY,
	chain_id   TEXT NOT NULL,
	type       TEXT NOT NULL,
	provider   TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL DEFAULT 0,
	impact     TEXT NOT NULL DEFAULT '',
	resolved   INTEGER NOT NULL DEFAULT 0,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fallback_events_chain_time
	ON fallback_events (chain_id, timestamp DESC);
`

// NewSQLiteStore creates a SQLite event store, initializing the schema and
// enabling WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Err: err}
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "analytics.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite event store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return &StorageError{Backend: "sqlite", Op: "enable WAL", Err: err}
		}
	}
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return &StorageError{Backend: "sqlite", Op: "set busy timeout", Err: err}
		}
	}
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create schema", Err: err}
	}
	return nil
}

// Append persists one event.
func (s *SQLiteStore) Append(ctx context.Context, event *analytics.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fallback_events
			(id, chain_id, type, provider, target, reason, duration_ns, impact, resolved, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ChainID,
		string(event.Type),
		event.Provider,
		event.Target,
		event.Reason,
		event.Duration.Nanoseconds(),
		event.Impact,
		boolToInt(event.Resolved),
		event.Timestamp.UnixNano(),
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Err: err}
	}
	return nil
}

// List returns the most recent events for a chain, newest first.
func (s *SQLiteStore) List(ctx context.Context, chainID string, limit int) ([]*analytics.Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chain_id, type, provider, target, reason, duration_ns, impact, resolved, timestamp
		FROM fallback_events
		WHERE chain_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		chainID, limit,
	)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	defer rows.Close()

	var events []*analytics.Event
	for rows.Next() {
		var e analytics.Event
		var eventType string
		var durationNs, timestampNs int64
		var resolved int

		if err := rows.Scan(&e.ID, &e.ChainID, &eventType, &e.Provider, &e.Target,
			&e.Reason, &durationNs, &e.Impact, &resolved, &timestampNs); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan", Err: err}
		}
		e.Type = analytics.EventType(eventType)
		e.Duration = time.Duration(durationNs)
		e.Resolved = resolved != 0
		e.Timestamp = time.Unix(0, timestampNs)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	return events, nil
}

// Prune deletes events older than the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM fallback_events WHERE timestamp < ?`,
		cutoff.UnixNano(),
	)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Err: err}
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
