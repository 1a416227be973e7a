package service

import "fmt"

// ValidationError reports a rejected upload parameter. Field names the
// offending input, Code is a stable machine-readable reason used by the HTTP
// layer for status mapping.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service: invalid %s (%s): %s", e.Field, e.Code, e.Message)
}

// Validation codes.
const (
	CodeEmptyPayload    = "empty_payload"
	CodeTooLarge        = "too_large"
	CodeUnsupportedType = "unsupported_type"
	CodeMissingSegment  = "missing_segment"
)
