package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultDailyLimit is the allowance assigned to newly registered keys.
const DefaultDailyLimit int64 = 1000

// TenantKey binds one company namespace to its API key.
type TenantKey struct {
	Company    string
	APIKey     string
	DailyLimit int64
	CreatedAt  time.Time
}

// Keyring persists tenant/key bindings in SQLite.
type Keyring struct {
	db           *sql.DB
	defaultLimit int64
}

// KeyringOption configures a Keyring.
type KeyringOption func(*Keyring)

// WithDefaultDailyLimit sets the allowance assigned to newly registered
// keys. Existing keys are not touched.
func WithDefaultDailyLimit(limit int64) KeyringOption {
	return func(k *Keyring) {
		if limit > 0 {
			k.defaultLimit = limit
		}
	}
}

// NewKeyring creates the Keyring and its backing table.
func NewKeyring(db *sql.DB, opts ...KeyringOption) (*Keyring, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS api_keys (
		id INTEGER PRIMARY KEY,
		company TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL UNIQUE,
		daily_limit INTEGER NOT NULL DEFAULT 1000,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("quota: migrate api_keys: %w", err)
	}
	k := &Keyring{db: db, defaultLimit: DefaultDailyLimit}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Register returns the company's key, minting one on first registration.
// Registration is idempotent per company: a second call never produces a
// second key.
func (k *Keyring) Register(ctx context.Context, company string) (*TenantKey, error) {
	if company == "" {
		return nil, ErrEmptyCompany
	}

	// The unique constraint makes the insert a no-op when the company is
	// already registered; the follow-up select returns whichever key won.
	_, err := k.db.ExecContext(ctx,
		`INSERT INTO api_keys (company, api_key, daily_limit) VALUES (?, ?, ?)
		 ON CONFLICT(company) DO NOTHING`,
		company, uuid.NewString(), k.defaultLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("quota: register company: %w", err)
	}

	return k.byCompany(ctx, company)
}

// Lookup resolves an API key to its tenant binding.
func (k *Keyring) Lookup(ctx context.Context, apiKey string) (*TenantKey, error) {
	row := k.db.QueryRowContext(ctx,
		`SELECT company, api_key, daily_limit, created_at FROM api_keys WHERE api_key = ?`,
		apiKey,
	)
	return scanKey(row)
}

// SetDailyLimit updates a key's allowance. Admin-only operation.
func (k *Keyring) SetDailyLimit(ctx context.Context, apiKey string, limit int64) error {
	if limit < 0 {
		return fmt.Errorf("quota: negative daily limit %d", limit)
	}
	res, err := k.db.ExecContext(ctx,
		`UPDATE api_keys SET daily_limit = ? WHERE api_key = ?`, limit, apiKey)
	if err != nil {
		return fmt.Errorf("quota: set daily limit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("quota: set daily limit: %w", err)
	}
	if n == 0 {
		return ErrUnknownKey
	}
	return nil
}

func (k *Keyring) byCompany(ctx context.Context, company string) (*TenantKey, error) {
	row := k.db.QueryRowContext(ctx,
		`SELECT company, api_key, daily_limit, created_at FROM api_keys WHERE company = ?`,
		company,
	)
	return scanKey(row)
}

func scanKey(row *sql.Row) (*TenantKey, error) {
	var tk TenantKey
	err := row.Scan(&tk.Company, &tk.APIKey, &tk.DailyLimit, &tk.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownKey
	}
	if err != nil {
		return nil, fmt.Errorf("quota: scan key row: %w", err)
	}
	return &tk, nil
}
