package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
)

// MemoryEmailJobRepo keeps jobs in insertion order. Jobs are copied in and
// out so callers never share state with the store.
type MemoryEmailJobRepo struct {
	mu   sync.RWMutex
	jobs []*domain.EmailJob
}

func NewMemoryEmailJobRepo() *MemoryEmailJobRepo {
	return &MemoryEmailJobRepo{}
}

func (r *MemoryEmailJobRepo) Create(ctx context.Context, job *domain.EmailJob) error {
	if job == nil {
		return fmt.Errorf("%w: email job is nil", domain.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.jobs {
		if existing.ID == job.ID {
			return fmt.Errorf("%w: duplicate email job id %s", domain.ErrValidation, job.ID)
		}
	}
	r.jobs = append(r.jobs, job.Clone())
	return nil
}

func (r *MemoryEmailJobRepo) GetByID(ctx context.Context, id string) (*domain.EmailJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if job.ID == id {
			return job.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryEmailJobRepo) ListDeliverable(ctx context.Context) ([]*domain.EmailJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.EmailJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.Status.IsDeliverable() {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (r *MemoryEmailJobRepo) Update(ctx context.Context, job *domain.EmailJob) error {
	if job == nil {
		return fmt.Errorf("%w: email job is nil", domain.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.jobs {
		if existing.ID == job.ID {
			r.jobs[i] = job.Clone()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MemoryEmailJobRepo) CountByStatus(ctx context.Context) (domain.QueueStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.QueueStats{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.QueueStats
	for _, job := range r.jobs {
		stats.Add(job.Status, 1)
	}
	return stats, nil
}

func (r *MemoryEmailJobRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.jobs[:0]
	var removed int64
	for _, job := range r.jobs {
		if job.CreatedAt.After(cutoff) || job.Status.IsDeliverable() {
			kept = append(kept, job)
			continue
		}
		removed++
	}
	for i := len(kept); i < len(r.jobs); i++ {
		r.jobs[i] = nil
	}
	r.jobs = kept
	return removed, nil
}
