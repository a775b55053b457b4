package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

const (
	JobKindVideo = "video"
	JobKindImage = "image"
	JobKindEdit  = "edit"
)

// Job tracks one generation request. Video jobs are asynchronous: the API returns
// the job on POST /api/v1/videos and the client polls GET /api/v1/videos/{job_id}
// until status is completed, failed or cancelled.
type Job struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	TenantID       uuid.UUID  `db:"tenant_id"       json:"tenant_id"`
	Kind           string     `db:"kind"            json:"kind"`
	Status         string     `db:"status"          json:"status"`
	Prompt         string     `db:"prompt"          json:"prompt"`
	AspectRatio    string     `db:"aspect_ratio"    json:"aspect_ratio,omitempty"`
	OperationName  *string    `db:"operation_name"  json:"operation_name,omitempty"`
	ArtifactID     *uuid.UUID `db:"artifact_id"     json:"artifact_id,omitempty"`
	ErrorMessage   *string    `db:"error_message"   json:"error_message,omitempty"`
	ElapsedSeconds int        `db:"elapsed_seconds" json:"elapsed_seconds"`
	StartedAt      *time.Time `db:"started_at"      json:"started_at,omitempty"`
	CompletedAt    *time.Time `db:"completed_at"    json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// IsTerminal reports whether the job can no longer change status.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
