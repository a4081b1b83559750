package data

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
)

// JobRegistry is an in-memory, concurrency-safe job store keyed by job id.
// Readers always receive clones so a poller can never observe a torn write.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

var (
	_ core.JobRegistry = (*JobRegistry)(nil)
	_ core.JobEvictor  = (*JobRegistry)(nil)
)

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*model.Job)}
}

// Create stores a new queued job.
func (r *JobRegistry) Create(job *model.Job) error {
	if job == nil {
		return apperrors.InvalidRequest("job is required")
	}
	if job.Status != model.JobStatusQueued {
		return apperrors.InvalidRequest("new jobs must start queued")
	}
	if err := job.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidRequest, "invalid job")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return apperrors.Conflictf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a snapshot of the job.
func (r *JobRegistry) Get(id string) (*model.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Mutate applies fn to a copy of the job and stores it when the result is a
// legal successor. Returning core.ErrNoChange from fn skips the write.
func (r *JobRegistry) Mutate(id string, fn func(job *model.Job) error) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, core.ErrNoChange) {
			return current.Clone(), nil
		}
		return nil, err
	}

	if err := model.ValidateTransition(current, next); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeConflict, "job %s", id)
	}

	r.jobs[id] = next
	return next.Clone(), nil
}

// List returns snapshots of all jobs, newest first.
func (r *JobRegistry) List() []*model.Job {
	r.mu.RLock()
	out := make([]*model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes a job regardless of state.
func (r *JobRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// Len returns the number of tracked jobs.
func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// EvictFinished removes terminal jobs that finished before cutoff, then trims
// the remaining terminal jobs to keep (oldest first) when keep > 0. A zero
// cutoff disables the age rule. Active jobs are never evicted.
func (r *JobRegistry) EvictFinished(cutoff time.Time, keep int) []*model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*model.Job
	finished := make([]*model.Job, 0)
	for id, job := range r.jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		if !cutoff.IsZero() && finishedAt(job).Before(cutoff) {
			evicted = append(evicted, job)
			delete(r.jobs, id)
			continue
		}
		finished = append(finished, job)
	}

	if keep > 0 && len(finished) > keep {
		sort.Slice(finished, func(i, j int) bool {
			return finishedAt(finished[i]).Before(finishedAt(finished[j]))
		})
		for _, job := range finished[:len(finished)-keep] {
			evicted = append(evicted, job)
			delete(r.jobs, job.ID)
		}
	}

	return evicted
}

// EvictExpired removes jobs in the given terminal status that finished
// before cutoff. Non-terminal statuses evict nothing.
func (r *JobRegistry) EvictExpired(status model.JobStatus, cutoff time.Time) []*model.Job {
	if !status.IsTerminal() || cutoff.IsZero() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*model.Job
	for id, job := range r.jobs {
		if job.Status == status && finishedAt(job).Before(cutoff) {
			evicted = append(evicted, job)
			delete(r.jobs, id)
		}
	}
	return evicted
}

func finishedAt(job *model.Job) time.Time {
	if job.FinishedAt != nil {
		return *job.FinishedAt
	}
	return job.CreatedAt
}
