package quota

import (
	"context"
	"time"
)

// Usage is the post-authorization snapshot of a key's daily counter.
type Usage struct {
	// Used is today's count including the current request.
	Used int64

	// Limit is the key's daily allowance.
	Limit int64
}

// Gate validates an API key against a tenant and enforces the daily
// allowance. It is the single entry point every tenant-scoped operation
// passes through.
type Gate struct {
	keys    *Keyring
	counter Counter
	now     func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock overrides the gate's time source. Test hook for exercising
// day-boundary behavior.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a Gate over a keyring and a counter.
func NewGate(keys *Keyring, counter Counter, opts ...GateOption) *Gate {
	g := &Gate{keys: keys, counter: counter, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize validates the key, charges today's counter and compares the
// result against the key's limit.
//
// The increment commits before the comparison: quota is consumed on
// authorization, not on downstream success, and the request that crosses
// the limit is itself counted (its Usage reports Used == Limit+1).
// On ErrQuotaExceeded the returned Usage is still populated so callers
// can report the snapshot.
func (g *Gate) Authorize(ctx context.Context, tenant, apiKey string) (Usage, error) {
	tk, err := g.keys.Lookup(ctx, apiKey)
	if err != nil {
		return Usage{}, err
	}
	if tk.Company != tenant {
		return Usage{}, ErrTenantMismatch
	}

	count, err := g.counter.Incr(ctx, apiKey, Day(g.now()))
	if err != nil {
		return Usage{}, err
	}

	usage := Usage{Used: count, Limit: tk.DailyLimit}
	if count > tk.DailyLimit {
		return usage, ErrQuotaExceeded
	}
	return usage, nil
}
