// Package quota gates tenant-scoped requests behind per-tenant API keys
// with a daily request allowance.
//
// A Keyring persists the tenant/key bindings, a Counter atomically
// increments the per-key daily usage, and the Gate composes the two:
//
//	gate := quota.NewGate(keyring, counter)
//	usage, err := gate.Authorize(ctx, "acme", apiKey)
//
// Authorization consumes quota unconditionally: the counter is bumped
// before the limit comparison, so the request that tips a key over its
// limit is still counted and every same-day request after it observes a
// monotonically growing count. Days roll over at UTC midnight.
//
// Two Counter implementations are provided: SQLite (default, shares the
// service's embedded database) and Redis (for multi-process deployments
// where the counter must be shared).
package quota
