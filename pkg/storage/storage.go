package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/surveylens/mediastore/pkg/safename"
)

// derivedSegment is the reserved namespace segment holding derivatives.
// It is excluded from List results and cannot be used as a collection name.
const derivedSegment = "derived"

// ObjectRef addresses one stored object inside a tenant's namespace.
type ObjectRef struct {
	// Tenant is the company-level namespace.
	Tenant string

	// Collection is the second namespace level (a "survey" upstream).
	Collection string

	// Name is the sanitized object file name.
	Name string

	// Derived marks the object as a cached derivative. Derivatives live
	// under a reserved sub-namespace of the collection and never collide
	// with originals.
	Derived bool
}

// Key returns the backend-independent storage key for the ref.
// Format: {tenant}/{collection}/{name} or {tenant}/{collection}/derived/{name}.
func (r ObjectRef) Key() string {
	if r.Derived {
		return strings.Join([]string{r.Tenant, r.Collection, derivedSegment, r.Name}, "/")
	}
	return strings.Join([]string{r.Tenant, r.Collection, r.Name}, "/")
}

// Validate checks that every segment of the ref is a non-empty, already
// sanitized path segment. It is the shared defense-in-depth gate both
// backends run before touching the key: a segment that survives
// safename.Clean unchanged cannot contain separators or traversal dots.
func (r ObjectRef) Validate() error {
	for _, seg := range []string{r.Tenant, r.Collection, r.Name} {
		if seg == "" {
			return fmt.Errorf("%w: empty path segment", ErrInvalidRef)
		}
		if safename.Clean(seg) != seg {
			return fmt.Errorf("%w: unsafe path segment %q", ErrInvalidRef, seg)
		}
	}
	if r.Collection == derivedSegment {
		return fmt.Errorf("%w: collection name %q is reserved", ErrInvalidRef, derivedSegment)
	}
	return nil
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	// Ref is the object's address. For local Puts the name may differ
	// from the requested one when a collision suffix was applied.
	Ref ObjectRef

	// Address is the backend-specific location string: an absolute file
	// path for the local backend, "s3://bucket/key" for S3.
	Address string

	// ContentType is the stored content type, when the backend knows it.
	ContentType string

	// Size is the object size in bytes.
	Size int64

	// ModTime is the object's last modification time.
	ModTime time.Time
}

// Storage is the uniform object-store interface both backends implement.
// Higher components hold exactly one Storage for the process lifetime.
type Storage interface {
	// Put writes content at the ref's address. The local backend never
	// overwrites (collision suffixing); the S3 backend overwrites at the
	// deterministic key. The returned ObjectInfo carries the final ref.
	Put(ctx context.Context, ref ObjectRef, r io.Reader, size int64, opts ...Option) (*ObjectInfo, error)

	// Get opens the object for reading. The caller closes the reader.
	// Returns ErrNotFound when the object does not exist.
	Get(ctx context.Context, ref ObjectRef) (io.ReadCloser, error)

	// Exists reports whether the object exists. Backend failures are
	// returned as errors, never conflated with a missing object.
	Exists(ctx context.Context, ref ObjectRef) (bool, error)

	// List returns the original (non-derived) objects in a collection,
	// sorted by modification time descending. A collection that was
	// never written to yields an empty slice, not an error.
	List(ctx context.Context, tenant, collection string) ([]ObjectInfo, error)

	// URL returns a URL granting read access to the object: a signed,
	// time-limited URL for S3, an internal download-route path for local.
	URL(ctx context.Context, ref ObjectRef, opts ...URLOption) (string, error)
}
