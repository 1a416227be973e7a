package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds SQLite connection parameters.
type Config struct {
	// Path is the database file location (required). ":memory:" opens an
	// in-process database, useful in tests.
	Path string

	// BusyTimeout is how long a writer waits on a locked database before
	// giving up. Default 5 seconds.
	BusyTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

// Open opens the SQLite database, creating parent directories as needed,
// and verifies the connection with a ping.
//
// WAL journaling is enabled for concurrent readers. SQLite serializes
// writers internally, so the pool is capped at a single connection: the
// busy-timeout then applies inside the process instead of surfacing
// SQLITE_BUSY to handlers.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg.applyDefaults()
	if cfg.Path == "" {
		return nil, ErrEmptyPath
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errors.Join(ErrFailedToOpenDBConnection, err)
		}
	}

	// modernc's driver takes pragmas as _pragma=name(value) query
	// parameters; the mattn-style _journal_mode form is silently ignored.
	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(" +
		strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10) + ")"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	return conn, nil
}

// Healthcheck returns a closure that pings the database.
func Healthcheck(conn *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := conn.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown returns a function that closes the database connection.
// Use as a shutdown hook during graceful termination.
func Shutdown(conn *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return conn.Close()
	}
}
