// Package handler holds the HTTP handlers. Each constructor takes the narrow
// interface it needs so tests can substitute fakes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/mediaforge/internal/api/middleware"
	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
)

// VideoService is the video side of studio.Service.
type VideoService interface {
	TriggerVideo(ctx context.Context, in studio.VideoInput) (*models.Job, error)
	GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
	Cancel(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error)
	Artifact(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Artifact, error)
}

// ImageService is the image side of studio.Service.
type ImageService interface {
	GenerateImages(ctx context.Context, in studio.ImageInput) (*studio.ImageResult, error)
	EditImage(ctx context.Context, in studio.EditInput) (*studio.ImageResult, error)
}

// SessionService stores cross-page handoff state.
type SessionService interface {
	GetSession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*studio.Session, error)
	PutSession(ctx context.Context, tenantID uuid.UUID, sess *studio.Session) error
}

var (
	_ VideoService   = (*studio.Service)(nil)
	_ ImageService   = (*studio.Service)(nil)
	_ SessionService = (*studio.Service)(nil)
)

func tenantFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, ok := mw.GetTenantID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
	}
	return tenantID, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE",
				"Request body exceeds the size limit", map[string]any{"limit_bytes": maxErr.Limit})
			return false
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", "jobID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
