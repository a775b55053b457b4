package handler

import (
	"net/http"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/mediaforge/internal/api/middleware"
	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
	"github.com/kiranshivaraju/mediaforge/pkg/dataurl"
)

type imageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Count       int    `json:"count"`
	Reference   string `json:"reference"`
	SessionID   string `json:"session_id"`
}

type editRequest struct {
	Prompt    string `json:"prompt"`
	Image     string `json:"image"`
	Object    string `json:"object"`
	SessionID string `json:"session_id"`
}

type imageOut struct {
	DataURL  string `json:"data_url"`
	MIMEType string `json:"mime_type"`
}

type imageResponse struct {
	JobID  uuid.UUID  `json:"job_id"`
	Images []imageOut `json:"images"`
}

func toImageResponse(res *studio.ImageResult) imageResponse {
	out := imageResponse{JobID: res.Job.ID, Images: make([]imageOut, 0, len(res.Images))}
	for _, img := range res.Images {
		out.Images = append(out.Images, imageOut{
			DataURL:  dataurl.Encode(img.MIMEType, img.Data),
			MIMEType: img.MIMEType,
		})
	}
	return out
}

// NewGenerateImagesHandler returns an http.HandlerFunc for POST /api/v1/images.
// Image generation is synchronous; the response carries the images inline.
func NewGenerateImagesHandler(svc ImageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		var req imageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			req.SessionID = mw.SessionID(r.Context())
		}

		res, err := svc.GenerateImages(r.Context(), studio.ImageInput{
			TenantID:    tenantID,
			SessionID:   req.SessionID,
			Prompt:      req.Prompt,
			AspectRatio: req.AspectRatio,
			Count:       req.Count,
			Reference:   req.Reference,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, toImageResponse(res))
	}
}

// NewEditImageHandler returns an http.HandlerFunc for POST /api/v1/images/edit.
func NewEditImageHandler(svc ImageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		var req editRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			req.SessionID = mw.SessionID(r.Context())
		}

		res, err := svc.EditImage(r.Context(), studio.EditInput{
			TenantID:  tenantID,
			SessionID: req.SessionID,
			Prompt:    req.Prompt,
			Image:     req.Image,
			Object:    req.Object,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, toImageResponse(res))
	}
}
