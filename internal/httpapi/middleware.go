package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/surveylens/mediastore/pkg/quota"
)

// cors is a permissive CORS layer for browser-based upload tooling. Echoing
// "*" is acceptable here because the API authenticates with explicit headers,
// never cookies.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")
		h.Set("Access-Control-Max-Age", strconv.Itoa(12*60*60))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// apiKey pulls the caller's key from X-API-Key or an Authorization bearer token.
func apiKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireQuota authorizes the request against the tenant in the URL and
// consumes one unit of the key's daily quota. The consumed unit is not
// refunded when the request later fails.
func (a *api) requireQuota(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		key := apiKey(r)
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing API key"})
			return
		}

		usage, err := a.gate.Authorize(r.Context(), tenant, key)
		switch {
		case err == nil:
			w.Header().Set("X-Quota-Used", strconv.FormatInt(usage.Used, 10))
			w.Header().Set("X-Quota-Limit", strconv.FormatInt(usage.Limit, 10))
			next.ServeHTTP(w, r)
		case errors.Is(err, quota.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, quotaBody{
				Error: "daily quota exceeded",
				Used:  usage.Used,
				Limit: usage.Limit,
			})
		case errors.Is(err, quota.ErrUnknownKey), errors.Is(err, quota.ErrTenantMismatch):
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid API key"})
		default:
			a.log.ErrorContext(r.Context(), "quota check failed", "tenant", tenant, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		}
	})
}
