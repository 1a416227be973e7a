package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/surveylens/mediastore/internal/service"
	"github.com/surveylens/mediastore/pkg/derive"
	"github.com/surveylens/mediastore/pkg/quota"
	"github.com/surveylens/mediastore/pkg/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

type quotaBody struct {
	Error string `json:"error"`
	Used  int64  `json:"used"`
	Limit int64  `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// renderError maps domain errors onto HTTP statuses. Derivation diagnostics
// are already bounded at the source, so the message is safe to return.
func (a *api) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.Code == service.CodeTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Error: verr.Message})
	case errors.Is(err, storage.ErrInvalidRef), errors.Is(err, storage.ErrPathEscape):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid object reference"})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "object not found"})
	case errors.Is(err, derive.ErrSourceNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "source object not found"})
	case errors.Is(err, derive.ErrFailed):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		a.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type registerRequest struct {
	Company string `json:"company"`
}

type registerResponse struct {
	Company    string `json:"company"`
	APIKey     string `json:"api_key"`
	DailyLimit int64  `json:"daily_limit"`
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	key, err := a.svc.RegisterTenant(r.Context(), req.Company)
	if err != nil {
		if errors.Is(err, quota.ErrEmptyCompany) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "company is required"})
			return
		}
		a.renderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Company:    key.Company,
		APIKey:     key.APIKey,
		DailyLimit: key.DailyLimit,
	})
}

// multipartOverhead leaves room for form boundaries and fields beyond the
// file payload itself.
const multipartOverhead = 1 << 20

func (a *api) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error: fmt.Sprintf("request body exceeds %d bytes", a.maxUploadBytes),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read upload"})
		return
	}

	res, err := a.svc.Upload(
		r.Context(),
		chi.URLParam(r, "tenant"),
		chi.URLParam(r, "collection"),
		r.FormValue("user_id"),
		header.Filename,
		content,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *api) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	entries, err := a.svc.ListObjects(
		r.Context(),
		chi.URLParam(r, "tenant"),
		chi.URLParam(r, "collection"),
		q.Get("user_id"),
		limit,
		offset,
	)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": entries})
}

func (a *api) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rc, info, err := a.svc.Download(r.Context(), chi.URLParam(r, "tenant"), chi.URLParam(r, "collection"), name)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Ref.Name))
	if _, err := io.Copy(w, rc); err != nil {
		a.log.WarnContext(r.Context(), "download interrupted", "object", info.Ref.Name, "error", err)
	}
}

func (a *api) handleOptimize(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Derivative(
		r.Context(),
		chi.URLParam(r, "tenant"),
		chi.URLParam(r, "collection"),
		chi.URLParam(r, "name"),
	)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleDerived(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := a.svc.OpenDerived(
		r.Context(),
		chi.URLParam(r, "tenant"),
		chi.URLParam(r, "collection"),
		chi.URLParam(r, "name"),
	)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, rc); err != nil {
		a.log.WarnContext(r.Context(), "derived download interrupted", "error", err)
	}
}
