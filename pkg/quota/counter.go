package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Day formats a point in time as the counter's calendar-day bucket.
// Days are bucketed in UTC so every process agrees on the boundary.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Counter atomically increments a per-key daily usage count.
//
// Incr must create the (apiKey, day) bucket on first use and return the
// post-increment count as a single atomic unit: two concurrent callers
// for the same key must observe distinct counts.
type Counter interface {
	Incr(ctx context.Context, apiKey, day string) (int64, error)

	// Current reads the bucket without incrementing. Missing buckets
	// read as zero.
	Current(ctx context.Context, apiKey, day string) (int64, error)
}

// SQLiteCounter implements Counter on the embedded database.
type SQLiteCounter struct {
	db *sql.DB
}

// NewSQLiteCounter creates the counter and its backing table.
func NewSQLiteCounter(db *sql.DB) (*SQLiteCounter, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY,
		api_key TEXT NOT NULL,
		day TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(api_key, day)
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("quota: migrate usage: %w", err)
	}
	return &SQLiteCounter{db: db}, nil
}

// Incr bumps the bucket and returns the new count. The upsert makes
// create-if-absent plus increment one atomic statement, so concurrent
// increments for the same key cannot both read the pre-increment value.
func (c *SQLiteCounter) Incr(ctx context.Context, apiKey, day string) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx,
		`INSERT INTO usage (api_key, day, count) VALUES (?, ?, 1)
		 ON CONFLICT(api_key, day) DO UPDATE SET count = count + 1
		 RETURNING count`,
		apiKey, day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("quota: increment usage: %w", err)
	}
	return count, nil
}

// Current reads the bucket's count without incrementing.
func (c *SQLiteCounter) Current(ctx context.Context, apiKey, day string) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx,
		`SELECT count FROM usage WHERE api_key = ? AND day = ?`,
		apiKey, day,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: read usage: %w", err)
	}
	return count, nil
}

// Ensure SQLiteCounter implements Counter.
var _ Counter = (*SQLiteCounter)(nil)
