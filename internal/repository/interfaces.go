package repository

import (
	"context"

	"github.com/iconidentify/ytmux/internal/domain"
)

// JobRepository tracks in-flight jobs. Jobs are removed once they finish;
// nothing is persisted.
type JobRepository interface {
	// Add registers a new job. Adding an existing ID is an error.
	Add(ctx context.Context, job *domain.Job) error

	// Update replaces the stored state of a registered job.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a copy of a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// Remove forgets a job. Removing an unknown ID is not an error.
	Remove(ctx context.Context, id domain.JobID) error

	// List returns copies of all registered jobs, oldest first.
	List(ctx context.Context) ([]*domain.Job, error)

	// Stats returns per-stage counts.
	Stats(ctx context.Context) (*JobStats, error)
}

// JobStats contains in-flight job statistics.
type JobStats struct {
	Total   int                  `json:"total"`
	ByStage map[domain.Stage]int `json:"by_stage"`
}
