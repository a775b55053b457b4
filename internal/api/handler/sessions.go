package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
)

// NewGetSessionHandler returns an http.HandlerFunc for GET /api/v1/sessions/{sessionID}.
func NewGetSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		sess, err := svc.GetSession(r.Context(), tenantID, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, sess)
	}
}

// NewPutSessionHandler returns an http.HandlerFunc for PUT /api/v1/sessions/{sessionID}.
// The body replaces the stored images; the active job is kept.
func NewPutSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			ReferenceImage string `json:"reference_image"`
			LastImage      string `json:"last_image"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		sess := &studio.Session{
			ID:             chi.URLParam(r, "sessionID"),
			ReferenceImage: req.ReferenceImage,
			LastImage:      req.LastImage,
		}
		if existing, err := svc.GetSession(r.Context(), tenantID, sess.ID); err == nil {
			sess.ActiveJobID = existing.ActiveJobID
		}

		if err := svc.PutSession(r.Context(), tenantID, sess); err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, sess)
	}
}
