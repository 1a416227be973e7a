package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveylens/mediastore/internal/service"
	"github.com/surveylens/mediastore/pkg/db"
	"github.com/surveylens/mediastore/pkg/derive"
	"github.com/surveylens/mediastore/pkg/quota"
	"github.com/surveylens/mediastore/pkg/storage"
	"github.com/surveylens/mediastore/pkg/tags"
)

type stubTranscoder struct {
	out []byte
	err error
}

func (s *stubTranscoder) Transcode(_ context.Context, _ []byte, _ string) ([]byte, error) {
	return s.out, s.err
}

func newTestService(t *testing.T) *service.MediaService {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewLocal(storage.LocalConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	conn, err := db.Open(ctx, db.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	tagStore, err := tags.NewStore(conn)
	require.NoError(t, err)

	keyring, err := quota.NewKeyring(conn)
	require.NoError(t, err)

	cache := derive.NewCache(store, &stubTranscoder{out: []byte("derived-bytes")}, &stubTranscoder{out: []byte("derived-video")})

	svc := service.New(service.Deps{
		Store:               store,
		Tags:                tagStore,
		Derive:              cache,
		Keyring:             keyring,
		MaxUploadBytes:      1 << 20,
		AllowedTypePrefixes: []string{"image/", "video/"},
	})
	return svc
}

func TestUpload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores under owner-prefixed name", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		res, err := svc.Upload(ctx, "acme", "s1", "u42", "photo.jpg", []byte("jpegdata"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "u42_photo.jpg", res.Name)
		assert.Equal(t, int64(len("jpegdata")), res.Size)
		assert.NotEmpty(t, res.Address)
		assert.Equal(t, "/api/v1/acme/collections/s1/download/u42_photo.jpg", res.URL)
		assert.NotEmpty(t, res.Tags, "random demo tags are attached")
	})

	t.Run("appends extension from content type", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		res, err := svc.Upload(ctx, "acme", "s1", "u1", "snapshot", []byte("x"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "u1_snapshot.png", res.Name)
	})

	t.Run("structured subtype extension is sanitized", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		res, err := svc.Upload(ctx, "acme", "s1", "u1", "vector", []byte("<svg/>"), "image/svg+xml")
		require.NoError(t, err)
		assert.Equal(t, "u1_vector.svg_xml", res.Name)
	})

	t.Run("sanitizes hostile names", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		res, err := svc.Upload(ctx, "acme", "s1", "u1", "../../etc/passwd", []byte("x"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "u1_passwd.png", res.Name)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Upload(ctx, "acme", "s1", "u1", "a.jpg", nil, "image/jpeg")
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, service.CodeEmptyPayload, verr.Code)
	})

	t.Run("rejects oversized payload", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Upload(ctx, "acme", "s1", "u1", "a.jpg", make([]byte, (1<<20)+1), "image/jpeg")
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, service.CodeTooLarge, verr.Code)
	})

	t.Run("rejects disallowed content type", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Upload(ctx, "acme", "s1", "u1", "a.exe", []byte("MZ"), "application/octet-stream")
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, service.CodeUnsupportedType, verr.Code)
	})

	t.Run("same name twice keeps both copies", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		first, err := svc.Upload(ctx, "acme", "s1", "u1", "a.jpg", []byte("one"), "image/jpeg")
		require.NoError(t, err)
		second, err := svc.Upload(ctx, "acme", "s1", "u1", "a.jpg", []byte("two"), "image/jpeg")
		require.NoError(t, err)

		assert.Equal(t, "u1_a.jpg", first.Name)
		assert.Equal(t, "u1_a_1.jpg", second.Name)
	})
}

func TestListObjects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("owner filter and pagination", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		for _, up := range []struct{ owner, name string }{
			{"u1", "a.jpg"}, {"u1", "b.jpg"}, {"u2", "c.jpg"},
		} {
			_, err := svc.Upload(ctx, "acme", "s1", up.owner, up.name, []byte("x"), "image/jpeg")
			require.NoError(t, err)
		}

		all, err := svc.ListObjects(ctx, "acme", "s1", "", 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		u1, err := svc.ListObjects(ctx, "acme", "s1", "u1", 0, 0)
		require.NoError(t, err)
		require.Len(t, u1, 2)
		for _, e := range u1 {
			assert.True(t, strings.HasPrefix(e.Name, "u1_"))
			assert.NotEmpty(t, e.URL)
			assert.NotNil(t, e.Tags)
		}

		page, err := svc.ListObjects(ctx, "acme", "s1", "", 2, 1)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		past, err := svc.ListObjects(ctx, "acme", "s1", "", 10, 99)
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("empty collection lists empty", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		entries, err := svc.ListObjects(ctx, "acme", "nothing", "", 0, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("streams stored bytes", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Upload(ctx, "acme", "s1", "u1", "a.jpg", []byte("payload"), "image/jpeg")
		require.NoError(t, err)

		rc, info, err := svc.Download(ctx, "acme", "s1", "u1_a.jpg")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		assert.Equal(t, "image/jpeg", info.ContentType)
	})

	t.Run("missing object is not found", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, _, err := svc.Download(ctx, "acme", "s1", "nope.jpg")
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestDerivative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("produces and serves derivative", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Upload(ctx, "acme", "s1", "u1", "photo.png", []byte("source"), "image/png")
		require.NoError(t, err)

		res, err := svc.Derivative(ctx, "acme", "s1", "u1_photo.png")
		require.NoError(t, err)
		assert.Equal(t, "opt_u1_photo.jpg", res.Name)
		assert.Equal(t, "/api/v1/acme/collections/s1/derived/opt_u1_photo.jpg", res.URL)

		rc, contentType, err := svc.OpenDerived(ctx, "acme", "s1", res.Name)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "derived-bytes", string(data))
		assert.Equal(t, "image/jpeg", contentType)
	})

	t.Run("missing source fails", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Derivative(ctx, "acme", "s1", "ghost.png")
		require.Error(t, err)
		assert.True(t, errors.Is(err, derive.ErrSourceNotFound))
	})

	t.Run("derivatives do not appear in listings", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, err := svc.Upload(ctx, "acme", "s1", "u1", "photo.png", []byte("source"), "image/png")
		require.NoError(t, err)
		_, err = svc.Derivative(ctx, "acme", "s1", "u1_photo.png")
		require.NoError(t, err)

		entries, err := svc.ListObjects(ctx, "acme", "s1", "", 0, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "u1_photo.png", entries[0].Name)
	})
}

func TestRegisterTenant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.RegisterTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", first.Company)
	assert.NotEmpty(t, first.APIKey)

	again, err := svc.RegisterTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first.APIKey, again.APIKey, "registration is idempotent")

	_, err = svc.RegisterTenant(ctx, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quota.ErrEmptyCompany))
}
