package tags

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
)

// Store persists tag sets in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates the Store and its backing table.
func NewStore(db *sql.DB) (*Store, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS file_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		tags TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("tags: migrate file_tags: %w", err)
	}
	return &Store{db: db}, nil
}

// Set replaces the address's tag set. A nil or empty set is stored as an
// empty list, not a deletion.
func (s *Store) Set(ctx context.Context, address string, tagSet []string) error {
	if tagSet == nil {
		tagSet = []string{}
	}
	encoded, err := json.Marshal(tagSet)
	if err != nil {
		return fmt.Errorf("tags: encode: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO file_tags (path, tags, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(path) DO UPDATE SET tags = excluded.tags, updated_at = CURRENT_TIMESTAMP`,
		address, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("tags: upsert: %w", err)
	}
	return nil
}

// Get returns the address's tag set, empty when none was ever stored.
func (s *Store) Get(ctx context.Context, address string) ([]string, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT tags FROM file_tags WHERE path = ?`, address,
	).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tags: read: %w", err)
	}

	var tagSet []string
	if err := json.Unmarshal([]byte(encoded), &tagSet); err != nil {
		return nil, fmt.Errorf("tags: decode: %w", err)
	}
	if tagSet == nil {
		tagSet = []string{}
	}
	return tagSet, nil
}

// samplePool is the fixed label pool the demo tagger draws from.
var samplePool = []string{
	"portrait", "blurry", "out-of-focus", "text", "document", "dark", "low-light",
	"bright", "overexposed", "underexposed", "contains-face", "landscape", "partial",
}

// Random picks between minTags and maxTags distinct labels from the demo
// pool. Stand-in for a real classifier feeding the tag store.
func Random(minTags, maxTags int) []string {
	if minTags < 1 {
		minTags = 1
	}
	if maxTags > len(samplePool) {
		maxTags = len(samplePool)
	}
	if maxTags < minTags {
		maxTags = minTags
	}

	n := minTags + rand.Intn(maxTags-minTags+1)
	picked := rand.Perm(len(samplePool))[:n]

	out := make([]string, 0, n)
	for _, i := range picked {
		out = append(out, samplePool[i])
	}
	return out
}
