package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/media"
	"github.com/kiranshivaraju/mediaforge/internal/media/gemini"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
)

// writeError maps service errors onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		submitErr   *media.SubmissionError
		jobErr      *media.JobFailedError
		pollErr     *media.PollError
		downloadErr *media.DownloadError
	)

	switch {
	case errors.As(err, &submitErr):
		msg := "The generation service rejected the request"
		if submitErr.Err != nil {
			msg = submitErr.Err.Error()
		}
		switch submitErr.Reason {
		case media.ReasonQuotaExceeded:
			response.Error(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED",
				"The generation service quota is exhausted; try again later", nil)
		case media.ReasonUnauthorized:
			response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAUTHORIZED",
				"The generation service rejected the server's credentials", nil)
		case media.ReasonInvalidInput:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
		default:
			response.Error(w, http.StatusBadRequest, "SUBMISSION_REJECTED", msg, nil)
		}
	case errors.Is(err, media.ErrQuotaExceeded):
		response.Error(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED",
			"The generation service quota is exhausted; try again later", nil)
	case errors.Is(err, media.ErrInvalidImage), errors.Is(err, media.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, media.ErrNoImages):
		response.Error(w, http.StatusUnprocessableEntity, "NO_IMAGES", "No images were generated", nil)
	case errors.Is(err, studio.ErrAlreadyRunning):
		response.Error(w, http.StatusConflict, "ALREADY_RUNNING",
			"A video is already being generated from this image", nil)
	case errors.Is(err, studio.ErrNotCancellable):
		response.Error(w, http.StatusConflict, "NOT_CANCELLABLE", "Job is not running", nil)
	case errors.Is(err, studio.ErrArtifactNotReady):
		response.Error(w, http.StatusConflict, "ARTIFACT_NOT_READY", "Job has not produced an artifact", nil)
	case errors.Is(err, studio.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
	case errors.Is(err, studio.ErrSessionNotFound):
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	case errors.As(err, &jobErr):
		response.Error(w, http.StatusBadGateway, "GENERATION_FAILED", jobErr.Error(), nil)
	case errors.As(err, &pollErr), errors.As(err, &downloadErr):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "The generation service request failed", nil)
	case errors.Is(err, media.ErrPollTimeout), errors.Is(err, gemini.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, "GENERATION_TIMEOUT", "The generation service took too long", nil)
	case errors.Is(err, media.ErrUnauthorized):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAUTHORIZED",
			"The generation service rejected the server's credentials", nil)
	case errors.Is(err, gemini.ErrUnreachable), errors.Is(err, gemini.ErrInvalidResponse):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "The generation service is not available", nil)
	default:
		slog.Error("unhandled request error", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
