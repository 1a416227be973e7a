package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveylens/mediastore/internal/httpapi"
	"github.com/surveylens/mediastore/internal/service"
	"github.com/surveylens/mediastore/pkg/db"
	"github.com/surveylens/mediastore/pkg/derive"
	"github.com/surveylens/mediastore/pkg/health"
	"github.com/surveylens/mediastore/pkg/quota"
	"github.com/surveylens/mediastore/pkg/storage"
	"github.com/surveylens/mediastore/pkg/tags"
)

type stubTranscoder struct {
	out []byte
}

func (s *stubTranscoder) Transcode(_ context.Context, _ []byte, _ string) ([]byte, error) {
	return s.out, nil
}

type testAPI struct {
	handler http.Handler
	keyring *quota.Keyring
}

func newTestAPI(t *testing.T) *testAPI {
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

	counter, err := quota.NewSQLiteCounter(conn)
	require.NoError(t, err)

	svc := service.New(service.Deps{
		Store:               store,
		Tags:                tagStore,
		Derive:              derive.NewCache(store, &stubTranscoder{out: []byte("derived")}, &stubTranscoder{out: []byte("video")}),
		Keyring:             keyring,
		MaxUploadBytes:      1 << 20,
		AllowedTypePrefixes: []string{"image/", "video/"},
	})

	handler := httpapi.New(httpapi.Deps{
		Service:        svc,
		Gate:           quota.NewGate(keyring, counter),
		MaxUploadBytes: 1 << 20,
		HealthChecks:   health.Checks{"db": db.Healthcheck(conn)},
	})

	return &testAPI{handler: handler, keyring: keyring}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, company string) string {
	t.Helper()
	body := fmt.Sprintf(`{"company": %q}`, company)
	rec := a.do(t, httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		APIKey string `json:"api_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.APIKey)
	return resp.APIKey
}

func multipartUpload(t *testing.T, url, key, userID, filename, contentType string, payload []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("user_id", userID))

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	return req
}

func TestRegister(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	first := api.register(t, "acme")
	second := api.register(t, "acme")
	assert.Equal(t, first, second, "registration is idempotent")

	rec := api.do(t, httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(`{"company": ""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload(t *testing.T) {
	t.Parallel()

	const uploadURL = "/api/v1/acme/collections/s1/upload"

	t.Run("authenticated upload succeeds", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		key := api.register(t, "acme")

		rec := api.do(t, multipartUpload(t, uploadURL, key, "u1", "photo.jpg", "image/jpeg", []byte("jpegdata")))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			Filename string   `json:"filename"`
			URL      string   `json:"url"`
			Tags     []string `json:"tags"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "u1_photo.jpg", resp.Filename)
		assert.Equal(t, "/api/v1/acme/collections/s1/download/u1_photo.jpg", resp.URL)
		assert.NotEmpty(t, resp.Tags)

		assert.Equal(t, "1", rec.Header().Get("X-Quota-Used"))
		assert.Equal(t, "1000", rec.Header().Get("X-Quota-Limit"))
	})

	t.Run("missing key is unauthorized", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.register(t, "acme")

		rec := api.do(t, multipartUpload(t, uploadURL, "", "u1", "photo.jpg", "image/jpeg", []byte("x")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("key of another tenant is unauthorized", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		otherKey := api.register(t, "globex")

		rec := api.do(t, multipartUpload(t, uploadURL, otherKey, "u1", "photo.jpg", "image/jpeg", []byte("x")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token works too", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		key := api.register(t, "acme")

		req := multipartUpload(t, uploadURL, "", "u1", "photo.jpg", "image/jpeg", []byte("x"))
		req.Header.Set("Authorization", "Bearer "+key)
		rec := api.do(t, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("disallowed content type", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		key := api.register(t, "acme")

		rec := api.do(t, multipartUpload(t, uploadURL, key, "u1", "tool.exe", "application/octet-stream", []byte("MZ")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized payload", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		key := api.register(t, "acme")

		rec := api.do(t, multipartUpload(t, uploadURL, key, "u1", "big.jpg", "image/jpeg", make([]byte, (1<<20)+1)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		key := api.register(t, "acme")

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("user_id", "u1"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, uploadURL, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-API-Key", key)

		rec := api.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQuotaEnforcement(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	key := api.register(t, "acme")
	require.NoError(t, api.keyring.SetDailyLimit(context.Background(), key, 2))

	listURL := "/api/v1/acme/collections/s1/files"

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, listURL, nil)
		req.Header.Set("X-API-Key", key)
		rec := api.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d within quota", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, listURL, nil)
	req.Header.Set("X-API-Key", key)
	rec := api.do(t, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp struct {
		Used  int64 `json:"used"`
		Limit int64 `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Used)
	assert.Equal(t, int64(2), resp.Limit)
}

func TestListDownloadDerive(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	key := api.register(t, "acme")

	rec := api.do(t, multipartUpload(t, "/api/v1/acme/collections/s1/upload", key, "u1", "photo.png", "image/png", []byte("source")))
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/acme/collections/s1/files?user_id=u1", nil)
		req.Header.Set("X-API-Key", key)
		rec := api.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Files []struct {
				Filename string `json:"filename"`
			} `json:"files"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Files, 1)
		assert.Equal(t, "u1_photo.png", resp.Files[0].Filename)
	})

	t.Run("download", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/acme/collections/s1/download/u1_photo.png", nil)
		req.Header.Set("X-API-Key", key)
		rec := api.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)

		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, "source", string(body))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "u1_photo.png")
	})

	t.Run("optimize then fetch derived", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/acme/collections/s1/optimize/u1_photo.png", nil)
		req.Header.Set("X-API-Key", key)
		rec := api.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Filename string `json:"filename"`
			URL      string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "opt_u1_photo.jpg", resp.Filename)

		req = httptest.NewRequest(http.MethodGet, resp.URL, nil)
		req.Header.Set("X-API-Key", key)
		rec = api.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, "derived", string(body))
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	})

	t.Run("download of missing object is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/acme/collections/s1/download/nope.png", nil)
		req.Header.Set("X-API-Key", key)
		rec := api.do(t, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("optimize of missing source is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/acme/collections/s1/optimize/ghost.png", nil)
		req.Header.Set("X-API-Key", key)
		rec := api.do(t, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthAndCORS(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/acme/collections/s1/files", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = api.do(t, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
