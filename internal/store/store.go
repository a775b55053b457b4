package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, elapsedSeconds int) error
	FailUnfinishedJobs(ctx context.Context, reason string) (int64, error)

	CreateArtifact(ctx context.Context, artifact *models.Artifact) error
	GetArtifact(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Artifact, error)
}

type JobFilter struct {
	TenantID uuid.UUID
	Kind     string
	Status   string
	Page     int
	Limit    int
}

// JobUpdate is the set of optional columns written alongside a status change.
type JobUpdate struct {
	ErrorMessage   *string
	OperationName  *string
	ArtifactID     *uuid.UUID
	ElapsedSeconds *int
}

type JobUpdateOption func(*JobUpdate)

// ApplyJobUpdateOptions collects opts into a JobUpdate.
func ApplyJobUpdateOptions(opts ...JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.ErrorMessage = &msg
	}
}

func WithOperationName(name string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.OperationName = &name
	}
}

func WithArtifactID(id uuid.UUID) JobUpdateOption {
	return func(p *JobUpdate) {
		p.ArtifactID = &id
	}
}

func WithElapsedSeconds(secs int) JobUpdateOption {
	return func(p *JobUpdate) {
		p.ElapsedSeconds = &secs
	}
}
