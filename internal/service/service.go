package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/surveylens/mediastore/pkg/derive"
	"github.com/surveylens/mediastore/pkg/logger"
	"github.com/surveylens/mediastore/pkg/quota"
	"github.com/surveylens/mediastore/pkg/safename"
	"github.com/surveylens/mediastore/pkg/storage"
	"github.com/surveylens/mediastore/pkg/tags"
)

// DefaultListLimit caps listing page size when the caller does not set one.
const DefaultListLimit = 100

// Deps carries the collaborators the media service composes over.
type Deps struct {
	Store   storage.Storage
	Tags    *tags.Store
	Derive  *derive.Cache
	Keyring *quota.Keyring
	Logger  *slog.Logger

	MaxUploadBytes      int64
	AllowedTypePrefixes []string
}

// MediaService implements the tenant-facing operation set: upload, list,
// download, derivative, and tenant registration.
type MediaService struct {
	store   storage.Storage
	tags    *tags.Store
	derive  *derive.Cache
	keyring *quota.Keyring
	log     *slog.Logger

	maxUploadBytes  int64
	allowedPrefixes []string
}

func New(deps Deps) *MediaService {
	log := deps.Logger
	if log == nil {
		log = logger.NewNope()
	}
	return &MediaService{
		store:           deps.Store,
		tags:            deps.Tags,
		derive:          deps.Derive,
		keyring:         deps.Keyring,
		log:             log,
		maxUploadBytes:  deps.MaxUploadBytes,
		allowedPrefixes: deps.AllowedTypePrefixes,
	}
}

// UploadResult describes a stored object. Name is the final stored name,
// which may carry a collision suffix on the local backend.
type UploadResult struct {
	Name        string   `json:"filename"`
	Address     string   `json:"address"`
	ContentType string   `json:"content_type"`
	Size        int64    `json:"size"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
}

// Upload validates and stores one object under tenant/collection. The final
// object name is "{owner}_{name}" after sanitizing every segment; when the
// name has no extension one is appended from the content type subtype.
// Random demo tags are attached best-effort and never fail the upload.
func (s *MediaService) Upload(ctx context.Context, tenant, collection, ownerID, desiredName string, content []byte, contentType string) (*UploadResult, error) {
	if len(content) == 0 {
		return nil, &ValidationError{Field: "file", Code: CodeEmptyPayload, Message: "empty upload payload"}
	}
	if int64(len(content)) > s.maxUploadBytes {
		return nil, &ValidationError{
			Field:   "file",
			Code:    CodeTooLarge,
			Message: fmt.Sprintf("payload exceeds %d bytes", s.maxUploadBytes),
		}
	}
	if !s.typeAllowed(contentType) {
		return nil, &ValidationError{
			Field:   "content_type",
			Code:    CodeUnsupportedType,
			Message: fmt.Sprintf("content type %q is not accepted", contentType),
		}
	}

	if ownerID == "" || desiredName == "" {
		return nil, &ValidationError{Field: "name", Code: CodeMissingSegment, Message: "owner and file name are required"}
	}

	tenant = safename.Clean(tenant)
	collection = safename.Clean(collection)
	owner := safename.Clean(ownerID)
	name := safename.Clean(desiredName)

	name = withExtension(name, contentType)

	ref := storage.ObjectRef{
		Tenant:     tenant,
		Collection: collection,
		Name:       owner + "_" + name,
	}

	info, err := s.store.Put(ctx, ref, bytes.NewReader(content), int64(len(content)), storage.WithContentType(contentType))
	if err != nil {
		s.log.ErrorContext(ctx, "upload failed",
			"tenant", tenant, "collection", collection, "object", ref.Name, "error", err)
		return nil, err
	}

	tagSet := s.attachTags(ctx, info.Address)

	url, err := s.store.URL(ctx, info.Ref)
	if err != nil {
		s.log.WarnContext(ctx, "download url unavailable",
			"tenant", tenant, "collection", collection, "object", info.Ref.Name, "error", err)
		url = ""
	}

	s.log.InfoContext(ctx, "object uploaded",
		"tenant", tenant, "collection", collection, "object", info.Ref.Name,
		"size", info.Size, "content_type", contentType)

	return &UploadResult{
		Name:        info.Ref.Name,
		Address:     info.Address,
		ContentType: contentType,
		Size:        info.Size,
		URL:         url,
		Tags:        tagSet,
	}, nil
}

func (s *MediaService) typeAllowed(contentType string) bool {
	for _, prefix := range s.allowedPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// withExtension appends the content-type subtype as extension when the name
// has none, mirroring how browser uploads without extensions are repaired.
// The result is cleaned again: subtypes like "svg+xml" carry characters the
// object namespace does not allow.
func withExtension(name, contentType string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if _, subtype, ok := strings.Cut(contentType, "/"); ok && subtype != "" {
		return safename.Clean(name + "." + subtype)
	}
	return name
}

// attachTags stores random demo tags for the address. Failures are logged
// and swallowed; tagging never fails an upload.
func (s *MediaService) attachTags(ctx context.Context, address string) []string {
	tagSet := tags.Random(1, 4)
	if err := s.tags.Set(ctx, address, tagSet); err != nil {
		s.log.WarnContext(ctx, "tagging failed", "address", address, "error", err)
		return []string{}
	}
	return tagSet
}

// Entry is one listing row.
type Entry struct {
	Name        string   `json:"filename"`
	Address     string   `json:"address"`
	Size        int64    `json:"size"`
	ModTime     string   `json:"modified_at"`
	ContentType string   `json:"content_type"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
}

// ListObjects returns original objects (derivatives excluded) newest first,
// optionally filtered to one owner, paginated by offset/limit.
func (s *MediaService) ListObjects(ctx context.Context, tenant, collection, ownerFilter string, limit, offset int) ([]Entry, error) {
	tenant = safename.Clean(tenant)
	collection = safename.Clean(collection)

	infos, err := s.store.List(ctx, tenant, collection)
	if err != nil {
		return nil, err
	}

	if ownerFilter != "" {
		prefix := safename.Clean(ownerFilter) + "_"
		filtered := infos[:0]
		for _, info := range infos {
			if strings.HasPrefix(info.Ref.Name, prefix) {
				filtered = append(filtered, info)
			}
		}
		infos = filtered
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(infos) {
		return []Entry{}, nil
	}
	infos = infos[offset:]
	if len(infos) > limit {
		infos = infos[:limit]
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		url, err := s.store.URL(ctx, info.Ref)
		if err != nil {
			s.log.WarnContext(ctx, "download url unavailable",
				"tenant", tenant, "collection", collection, "object", info.Ref.Name, "error", err)
		}

		tagSet, err := s.tags.Get(ctx, info.Address)
		if err != nil {
			s.log.WarnContext(ctx, "tag lookup failed", "address", info.Address, "error", err)
			tagSet = []string{}
		}

		entries = append(entries, Entry{
			Name:        info.Ref.Name,
			Address:     info.Address,
			Size:        info.Size,
			ModTime:     info.ModTime.UTC().Format("2006-01-02T15:04:05Z"),
			ContentType: contentTypeFor(info.Ref.Name, info.ContentType),
			URL:         url,
			Tags:        tagSet,
		})
	}
	return entries, nil
}

// Download opens an original object for streaming. The returned info carries
// the ref and a content type guessed from the name when the backend did not
// record one.
func (s *MediaService) Download(ctx context.Context, tenant, collection, name string) (io.ReadCloser, *storage.ObjectInfo, error) {
	ref := storage.ObjectRef{
		Tenant:     safename.Clean(tenant),
		Collection: safename.Clean(collection),
		Name:       safename.Clean(name),
	}

	rc, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return rc, &storage.ObjectInfo{
		Ref:         ref,
		ContentType: contentTypeFor(ref.Name, ""),
	}, nil
}

// DerivativeResult names a web-optimized derivative and where to fetch it.
type DerivativeResult struct {
	Name string `json:"filename"`
	URL  string `json:"url"`
}

// Derivative returns the web-optimized rendition of an original, producing
// it on first request. Repeated calls for the same source are cheap.
func (s *MediaService) Derivative(ctx context.Context, tenant, collection, name string) (*DerivativeResult, error) {
	tenant = safename.Clean(tenant)
	collection = safename.Clean(collection)
	name = safename.Clean(name)

	ref, err := s.derive.GetOrCreate(ctx, tenant, collection, name)
	if err != nil {
		s.log.ErrorContext(ctx, "derivation failed",
			"tenant", tenant, "collection", collection, "object", name, "error", err)
		return nil, err
	}

	url, err := s.store.URL(ctx, *ref)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "derivative ready",
		"tenant", tenant, "collection", collection, "object", ref.Name)

	return &DerivativeResult{Name: ref.Name, URL: url}, nil
}

// OpenDerived streams an already-produced derivative. It does not trigger
// derivation; a missing derivative is a not-found error.
func (s *MediaService) OpenDerived(ctx context.Context, tenant, collection, name string) (io.ReadCloser, string, error) {
	ref := storage.ObjectRef{
		Tenant:     safename.Clean(tenant),
		Collection: safename.Clean(collection),
		Name:       safename.Clean(name),
		Derived:    true,
	}

	rc, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	return rc, contentTypeFor(ref.Name, ""), nil
}

// RegisterTenant mints (or returns the existing) API key for a company.
func (s *MediaService) RegisterTenant(ctx context.Context, company string) (*quota.TenantKey, error) {
	key, err := s.keyring.Register(ctx, company)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "tenant registered", "tenant", key.Company)
	return key, nil
}

func contentTypeFor(name, recorded string) string {
	if recorded != "" {
		return recorded
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
