package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iconidentify/ytmux/internal/domain"
)

// InMemoryJobRepository implements JobRepository using in-memory storage.
// Stored jobs are copies, so callers can keep mutating their own *Job.
type InMemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[domain.JobID]domain.Job
}

// NewInMemoryJobRepository creates a new in-memory job repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobs: make(map[domain.JobID]domain.Job),
	}
}

// Add registers a new job.
func (r *InMemoryJobRepository) Add(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already registered", job.ID)
	}
	r.jobs[job.ID] = job.Snapshot()

	return nil
}

// Update replaces the stored state of a registered job.
func (r *InMemoryJobRepository) Update(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	r.jobs[job.ID] = job.Snapshot()

	return nil
}

// Get retrieves a job by ID.
func (r *InMemoryJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	return &job, nil
}

// Remove forgets a job.
func (r *InMemoryJobRepository) Remove(ctx context.Context, id domain.JobID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, id)
	return nil
}

// List returns all registered jobs, oldest first.
func (r *InMemoryJobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	r.mu.RLock()
	result := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		job := job
		result = append(result, &job)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Stats returns per-stage counts.
func (r *InMemoryJobRepository) Stats(ctx context.Context) (*JobStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &JobStats{
		Total:   len(r.jobs),
		ByStage: make(map[domain.Stage]int),
	}
	for _, job := range r.jobs {
		stats.ByStage[job.Stage]++
	}

	return stats, nil
}

// Clear removes all jobs (useful for testing).
func (r *InMemoryJobRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = make(map[domain.JobID]domain.Job)
}
