package handler

import (
	"net/http"
	"strconv"

	mw "github.com/kiranshivaraju/mediaforge/internal/api/middleware"
	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
)

type videoRequest struct {
	Prompt      string `json:"prompt"`
	Image       string `json:"image"`
	AspectRatio string `json:"aspect_ratio"`
	SessionID   string `json:"session_id"`
}

// NewTriggerVideoHandler returns an http.HandlerFunc for POST /api/v1/videos.
// It answers 202 with the pending job; clients poll GET /api/v1/videos/{jobID}.
func NewTriggerVideoHandler(svc VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		var req videoRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			req.SessionID = mw.SessionID(r.Context())
		}
		if req.Image == "" && req.SessionID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "image or session_id is required", nil)
			return
		}

		job, err := svc.TriggerVideo(r.Context(), studio.VideoInput{
			TenantID:    tenantID,
			SessionID:   req.SessionID,
			Prompt:      req.Prompt,
			Image:       req.Image,
			AspectRatio: req.AspectRatio,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.AcceptedAt(w, "/api/v1/videos/"+job.ID.String(), job)
	}
}

// NewGetVideoHandler returns an http.HandlerFunc for GET /api/v1/videos/{jobID}.
func NewGetVideoHandler(svc VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := jobIDParam(w, r)
		if !ok {
			return
		}

		job, err := svc.GetJob(r.Context(), tenantID, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewCancelVideoHandler returns an http.HandlerFunc for DELETE /api/v1/videos/{jobID}.
func NewCancelVideoHandler(svc VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := jobIDParam(w, r)
		if !ok {
			return
		}

		job, err := svc.Cancel(r.Context(), tenantID, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewArtifactHandler returns an http.HandlerFunc for GET /api/v1/videos/{jobID}/artifact
// and GET /api/v1/jobs/{jobID}/artifact.
// The body is the raw media with its stored Content-Type.
func NewArtifactHandler(svc VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		jobID, ok := jobIDParam(w, r)
		if !ok {
			return
		}

		art, err := svc.Artifact(r.Context(), tenantID, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Artifact(w, r, art)
	}
}

var validStatuses = map[string]bool{
	models.JobStatusPending:   true,
	models.JobStatusRunning:   true,
	models.JobStatusCompleted: true,
	models.JobStatusFailed:    true,
	models.JobStatusCancelled: true,
}

var validKinds = map[string]bool{
	models.JobKindVideo: true,
	models.JobKindImage: true,
	models.JobKindEdit:  true,
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := store.JobFilter{
			TenantID: tenantID,
			Kind:     q.Get("kind"),
			Status:   q.Get("status"),
			Page:     queryInt(q.Get("page"), 1),
			Limit:    queryInt(q.Get("limit"), 20),
		}
		if filter.Kind != "" && !validKinds[filter.Kind] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "kind must be one of video, image, edit", nil)
			return
		}
		if filter.Status != "" && !validStatuses[filter.Status] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown status filter", nil)
			return
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Limit < 1 || filter.Limit > 100 {
			filter.Limit = 20
		}

		jobs, total, err := svc.ListJobs(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Collection(w, jobs, response.Page(filter.Page, filter.Limit, total))
	}
}

func queryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
