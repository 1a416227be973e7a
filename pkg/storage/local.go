package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxCollisionAttempts bounds the suffix search in Put. Hitting it means
// ten thousand objects share one stem; fail closed instead of spinning.
const maxCollisionAttempts = 10_000

// LocalConfig holds local filesystem storage configuration.
type LocalConfig struct {
	// BaseDir is the root directory for all tenant namespaces (required).
	// Created on demand if missing.
	BaseDir string

	// DownloadRoutePattern is a fmt pattern with three %s verbs
	// (tenant, collection, name) producing the internal download path
	// that URL returns. Defaults to the service's v1 download route.
	DownloadRoutePattern string

	// DerivedRoutePattern is the same for derived objects.
	DerivedRoutePattern string
}

const (
	defaultDownloadRoutePattern = "/api/v1/%s/collections/%s/download/%s"
	defaultDerivedRoutePattern  = "/api/v1/%s/collections/%s/derived/%s"
)

func (c *LocalConfig) applyDefaults() {
	if c.DownloadRoutePattern == "" {
		c.DownloadRoutePattern = defaultDownloadRoutePattern
	}
	if c.DerivedRoutePattern == "" {
		c.DerivedRoutePattern = defaultDerivedRoutePattern
	}
}

func (c *LocalConfig) validate() error {
	if c.BaseDir == "" {
		return ErrInvalidConfig
	}
	return nil
}

// LocalStorage implements Storage on the local filesystem.
//
// Layout mirrors the key scheme: {base}/{tenant}/{collection}/{name} with
// derivatives under {base}/{tenant}/{collection}/derived/{name}. Writes
// are staged to a temp file and published with a hard link, so readers
// never observe a partial object and a concurrent Put can never clobber
// an existing one.
type LocalStorage struct {
	cfg  LocalConfig
	base string // absolute BaseDir
}

// NewLocal creates a LocalStorage rooted at cfg.BaseDir.
func NewLocal(cfg LocalConfig) (*LocalStorage, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return &LocalStorage{cfg: cfg, base: base}, nil
}

// resolve maps a ref to an absolute file path, enforcing that the result
// stays inside the tenant+collection root. Validation rejects unsafe
// segments before any path math; the Rel check is defense in depth against
// anything that still slips through.
func (l *LocalStorage) resolve(ref ObjectRef) (dir, path string, err error) {
	if err := ref.Validate(); err != nil {
		return "", "", err
	}

	dir = filepath.Join(l.base, ref.Tenant, ref.Collection)
	if ref.Derived {
		dir = filepath.Join(dir, derivedSegment)
	}
	path = filepath.Join(dir, ref.Name)

	root := filepath.Join(l.base, ref.Tenant, ref.Collection)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q", ErrPathEscape, ref.Key())
	}

	return dir, path, nil
}

// Put writes the object, suffixing the name on collision.
func (l *LocalStorage) Put(ctx context.Context, ref ObjectRef, r io.Reader, size int64, opts ...Option) (*ObjectInfo, error) {
	o := &putOptions{}
	for _, opt := range opts {
		opt(o)
	}

	dir, path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	// Stage the full content first so the publish step is atomic.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	// Publish with a hard link: it fails with EEXIST instead of
	// overwriting, which makes the collision-suffix loop race-free.
	finalName := ref.Name
	finalPath := path
	stem, ext := splitExt(ref.Name)
	for attempt := 0; ; attempt++ {
		if attempt > maxCollisionAttempts {
			return nil, fmt.Errorf("%w: %q", ErrTooManyCollisions, ref.Key())
		}
		if attempt > 0 {
			finalName = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
			finalPath = filepath.Join(dir, finalName)
		}
		err := os.Link(tmp.Name(), finalPath)
		if err == nil {
			break
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	finalRef := ref
	finalRef.Name = finalName

	st, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return &ObjectInfo{
		Ref:         finalRef,
		Address:     finalPath,
		ContentType: o.contentType,
		Size:        written,
		ModTime:     st.ModTime(),
	}, nil
}

// Get opens the object for reading.
func (l *LocalStorage) Get(ctx context.Context, ref ObjectRef) (io.ReadCloser, error) {
	_, path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, ref.Key())
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return f, nil
}

// Exists reports whether the object exists.
func (l *LocalStorage) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	_, path, err := l.resolve(ref)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return st.Mode().IsRegular(), nil
}

// List returns the originals in a collection, newest first. Derivatives
// live in the reserved subdirectory and are skipped along with any other
// directory entry.
func (l *LocalStorage) List(ctx context.Context, tenant, collection string) ([]ObjectInfo, error) {
	probe := ObjectRef{Tenant: tenant, Collection: collection, Name: "probe"}
	dir, _, err := l.resolve(probe)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	infos := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		// Skip stale staging files from interrupted uploads.
		if strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}
		ref := ObjectRef{Tenant: tenant, Collection: collection, Name: e.Name()}
		infos = append(infos, ObjectInfo{
			Ref:     ref,
			Address: filepath.Join(dir, e.Name()),
			Size:    st.Size(),
			ModTime: st.ModTime(),
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].ModTime.After(infos[j].ModTime)
	})
	return infos, nil
}

// URL returns the internal download-route path for the object. There is
// no signature; the route itself re-validates the ref before serving.
func (l *LocalStorage) URL(_ context.Context, ref ObjectRef, opts ...URLOption) (string, error) {
	o := &urlOptions{expiry: DefaultURLExpiry}
	for _, opt := range opts {
		opt(o)
	}

	if err := ref.Validate(); err != nil {
		return "", err
	}

	pattern := l.cfg.DownloadRoutePattern
	if ref.Derived {
		pattern = l.cfg.DerivedRoutePattern
	}
	return fmt.Sprintf(pattern, ref.Tenant, ref.Collection, ref.Name), nil
}

// splitExt splits a file name into stem and extension ("a.tar.gz" ->
// "a.tar", ".gz"), returning an empty extension when there is none.
func splitExt(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// Ensure LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)
