package derive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/singleflight"

	"github.com/surveylens/mediastore/pkg/storage"
)

// Transcoder converts source media bytes into reduced derivative bytes.
// sourceName carries the original file name so implementations can use
// the extension; implementations must be safe for concurrent use.
type Transcoder interface {
	Transcode(ctx context.Context, src []byte, sourceName string) ([]byte, error)
}

// Derivative content types, fixed per media kind.
const (
	imageDerivativeContentType = "image/jpeg"
	videoDerivativeContentType = "video/mp4"
)

// Cache produces and caches derivatives in the object store.
type Cache struct {
	store  storage.Storage
	images Transcoder
	videos Transcoder
	group  singleflight.Group
}

// NewCache creates a Cache over the store with one transcoder per media
// kind.
func NewCache(store storage.Storage, images, videos Transcoder) *Cache {
	return &Cache{store: store, images: images, videos: videos}
}

// GetOrCreate returns the ref of the derivative for sourceName, creating
// it on first request.
//
// An existing derivative short-circuits: it is trusted as complete by
// name alone, with no content verification and no source-freshness check.
// On a miss the source is fetched, transcoded and published through the
// store's Put, so a failed or interrupted derivation never leaves a
// partial derivative visible. Concurrent misses for the same derivative
// are collapsed to a single transcode.
func (c *Cache) GetOrCreate(ctx context.Context, tenant, collection, sourceName string) (*storage.ObjectRef, error) {
	srcRef := storage.ObjectRef{Tenant: tenant, Collection: collection, Name: sourceName}
	if err := srcRef.Validate(); err != nil {
		return nil, err
	}

	derRef := storage.ObjectRef{
		Tenant:     tenant,
		Collection: collection,
		Name:       DerivativeName(sourceName),
		Derived:    true,
	}

	_, err, _ := c.group.Do(derRef.Key(), func() (any, error) {
		return nil, c.create(ctx, srcRef, derRef)
	})
	if err != nil {
		return nil, err
	}
	return &derRef, nil
}

// create performs the exists-check and, on a miss, the full derivation.
// Runs inside the singleflight group.
func (c *Cache) create(ctx context.Context, srcRef, derRef storage.ObjectRef) error {
	exists, err := c.store.Exists(ctx, derRef)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	rc, err := c.store.Get(ctx, srcRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrSourceNotFound, srcRef.Key())
		}
		return err
	}
	src, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: read source: %v", ErrFailed, err)
	}

	transcoder := c.images
	contentType := imageDerivativeContentType
	if KindOf(srcRef.Name) == KindVideo {
		transcoder = c.videos
		contentType = videoDerivativeContentType
	}

	out, err := transcoder.Transcode(ctx, src, srcRef.Name)
	if err != nil {
		if errors.Is(err, ErrFailed) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}

	_, err = c.store.Put(ctx, derRef, bytes.NewReader(out), int64(len(out)),
		storage.WithContentType(contentType))
	return err
}
