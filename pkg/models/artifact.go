package models

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is the downloaded media produced by a completed job.
type Artifact struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	JobID     uuid.UUID `db:"job_id"     json:"job_id"`
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	MIMEType  string    `db:"mime_type"  json:"mime_type"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	Data      []byte    `db:"data"       json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
