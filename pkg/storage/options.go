package storage

// Option configures Put operations.
type Option func(*putOptions)

// putOptions holds configuration for Put operations.
type putOptions struct {
	contentType string // Stored content type (S3 metadata; informational for local)
}

// WithContentType records the content type of the uploaded object.
// The S3 backend stores it as object metadata; the local backend carries
// it through to the returned ObjectInfo.
func WithContentType(ct string) Option {
	return func(o *putOptions) {
		o.contentType = ct
	}
}
