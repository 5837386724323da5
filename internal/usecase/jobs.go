package usecase

import (
	"sync"
	"time"

	"converter-service/internal/service"

	"github.com/google/uuid"
)

type job struct {
	pending   *service.PendingConversion
	createdAt time.Time
}

// jobRegistry keeps background conversions until their result is read once
// or they outlive the TTL.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*job
	ttl  time.Duration
	now  func() time.Time
}

func newJobRegistry(ttl time.Duration) *jobRegistry {
	return &jobRegistry{
		jobs: make(map[string]*job),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (r *jobRegistry) add(p *service.PendingConversion) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpiredLocked()

	id := uuid.NewString()
	r.jobs[id] = &job{pending: p, createdAt: r.now()}
	return id
}

func (r *jobRegistry) get(id string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpiredLocked()

	j, ok := r.jobs[id]
	return j, ok
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *jobRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *jobRegistry) evictExpiredLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, j := range r.jobs {
		if j.createdAt.Before(cutoff) {
			j.pending.Cancel()
			delete(r.jobs, id)
		}
	}
}
