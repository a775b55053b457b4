package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/mediaforge/internal/api/middleware"
	"github.com/kiranshivaraju/mediaforge/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	// MaxBodyBytes caps request bodies; images arrive inline as data URLs.
	MaxBodyBytes int64

	HealthHandler http.HandlerFunc

	TriggerVideoHandler http.HandlerFunc
	GetVideoHandler     http.HandlerFunc
	CancelVideoHandler  http.HandlerFunc
	ArtifactHandler     http.HandlerFunc
	ListJobsHandler     http.HandlerFunc

	GenerateImagesHandler http.HandlerFunc
	EditImageHandler      http.HandlerFunc

	GetSessionHandler http.HandlerFunc
	PutSessionHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if deps.MaxBodyBytes > 0 {
		r.Use(mw.MaxBody(deps.MaxBodyBytes))
	}

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)
		r.Use(mw.Session)

		r.Get("/api/v1/videos/{jobID}", orNotImplemented(deps.GetVideoHandler))
		r.Get("/api/v1/videos/{jobID}/artifact", orNotImplemented(deps.ArtifactHandler))
		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/{jobID}/artifact", orNotImplemented(deps.ArtifactHandler))
		r.Get("/api/v1/sessions/{sessionID}", orNotImplemented(deps.GetSessionHandler))

		// Routes that start, stop or change work
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("write"))

			r.With(deps.RateLimit.Generations(mw.KindVideo)).
				Post("/api/v1/videos", orNotImplemented(deps.TriggerVideoHandler))
			r.Delete("/api/v1/videos/{jobID}", orNotImplemented(deps.CancelVideoHandler))
			r.With(deps.RateLimit.Generations(mw.KindImage)).
				Post("/api/v1/images", orNotImplemented(deps.GenerateImagesHandler))
			r.With(deps.RateLimit.Generations(mw.KindEdit)).
				Post("/api/v1/images/edit", orNotImplemented(deps.EditImageHandler))
			r.Put("/api/v1/sessions/{sessionID}", orNotImplemented(deps.PutSessionHandler))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
