package storage

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for storage operations.
var (
	// Configuration errors.
	ErrInvalidConfig = errors.New("storage: invalid configuration")

	// Addressing errors. ErrInvalidRef covers malformed refs including
	// path-confinement violations; it is validation, not infrastructure.
	ErrInvalidRef = errors.New("storage: invalid object reference")
	ErrPathEscape = errors.New("storage: path escapes collection root")

	// Object errors.
	ErrNotFound          = errors.New("storage: object not found")
	ErrAccessDenied      = errors.New("storage: access denied")
	ErrTooManyCollisions = errors.New("storage: collision suffix attempts exhausted")

	// Backend errors. ErrBackend marks infrastructure failures (remote
	// connectivity, credentials, bucket misconfiguration) so callers can
	// tell them apart from a genuinely missing object.
	ErrBackend       = errors.New("storage: backend failure")
	ErrUploadFailed  = errors.New("storage: upload failed")
	ErrPresignFailed = errors.New("storage: presign failed")
)

// wrapS3Error wraps S3 errors with appropriate sentinel errors.
// It checks both API error codes and typed errors.
// Note: uses %v (not %w) for the original error to normalize error types -
// callers should use errors.Is() with sentinel errors, not errors.As() for
// AWS types.
func wrapS3Error(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}

// isNotFound reports whether err resolves to the ErrNotFound sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
