package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/surveylens/mediastore/internal/service"
	"github.com/surveylens/mediastore/pkg/health"
	"github.com/surveylens/mediastore/pkg/logger"
	"github.com/surveylens/mediastore/pkg/quota"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Service *service.MediaService
	Gate    *quota.Gate
	Logger  *slog.Logger

	// MaxUploadBytes bounds the multipart request body.
	MaxUploadBytes int64

	// HealthChecks feed the readiness probe (db ping, redis ping).
	HealthChecks health.Checks
}

type api struct {
	svc            *service.MediaService
	gate           *quota.Gate
	log            *slog.Logger
	maxUploadBytes int64
}

// New builds the router with quota enforcement on all tenant routes.
func New(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNope()
	}
	a := &api{
		svc:            deps.Service,
		gate:           deps.Gate,
		log:            log,
		maxUploadBytes: deps.MaxUploadBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(deps.HealthChecks, health.WithLogger(log)))

	r.Post("/register", a.handleRegister)

	r.Route("/api/v1/{tenant}/collections/{collection}", func(r chi.Router) {
		r.Use(a.requireQuota)
		r.Post("/upload", a.handleUpload)
		r.Get("/files", a.handleList)
		r.Get("/download/{name}", a.handleDownload)
		r.Get("/optimize/{name}", a.handleOptimize)
		r.Get("/derived/{name}", a.handleDerived)
	})

	return r
}
