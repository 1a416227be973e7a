package storage

import "time"

// URLOption configures URL generation.
type URLOption func(*urlOptions)

// urlOptions holds configuration for URL generation.
type urlOptions struct {
	downloadName string        // Filename for Content-Disposition: attachment
	expiry       time.Duration // Signed URL expiry duration
}

// DefaultURLExpiry is the default expiry for signed URLs.
const DefaultURLExpiry = time.Hour

// WithExpiry sets the expiry duration for signed URLs.
// Default is one hour. The local backend ignores it: download-route paths
// carry no signature and do not expire.
func WithExpiry(d time.Duration) URLOption {
	return func(o *urlOptions) {
		if d > 0 {
			o.expiry = d
		}
	}
}

// WithDownload sets the filename for the Content-Disposition: attachment
// header on signed URLs. The local download route forces attachment
// disposition on its own, so this is a no-op for the local backend.
func WithDownload(filename string) URLOption {
	return func(o *urlOptions) {
		o.downloadName = filename
	}
}
