package derive

import "errors"

// Sentinel errors for derivation operations.
var (
	// ErrSourceNotFound means the original object does not exist.
	ErrSourceNotFound = errors.New("derive: source object not found")

	// ErrFailed covers decode errors, missing external tools, non-zero
	// tool exits and timeouts. The message carries a bounded diagnostic.
	ErrFailed = errors.New("derive: derivation failed")
)

// maxDiagnosticLen bounds tool output embedded in error messages so a
// chatty encoder cannot flood logs or responses.
const maxDiagnosticLen = 512

// truncateDiagnostic clips s to maxDiagnosticLen bytes.
func truncateDiagnostic(s string) string {
	if len(s) <= maxDiagnosticLen {
		return s
	}
	return s[:maxDiagnosticLen] + "... (truncated)"
}
