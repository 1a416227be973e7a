package quota

import "errors"

// Sentinel errors for quota operations.
var (
	// ErrUnknownKey means the API key is not registered.
	ErrUnknownKey = errors.New("quota: unknown api key")

	// ErrTenantMismatch means the key exists but is bound to a different
	// tenant than the one addressed by the request.
	ErrTenantMismatch = errors.New("quota: api key not valid for tenant")

	// ErrQuotaExceeded means the key's daily allowance is spent. The
	// rejecting increment is already persisted.
	ErrQuotaExceeded = errors.New("quota: daily limit exceeded")

	// ErrEmptyCompany rejects registration without a company name.
	ErrEmptyCompany = errors.New("quota: company name is empty")
)
