package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one live job-group: a download, a queued batch or a compression.
// It exists from the moment the request is accepted until its terminal
// event fires, at which point the owner must Release it.
type Job struct {
	ID        string
	Kind      string
	Token     *Token
	StartedAt time.Time
}

// Registry is an in-memory thread-safe table of live jobs keyed by a
// caller-visible identifier, so cancelling one job cannot race with
// another started right after it.
type Registry struct {
	table map[string]*Job
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{table: make(map[string]*Job)}
}

// Register creates a job with a fresh token and stores it.
func (r *Registry) Register(kind string) *Job {
	j := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Token:     NewToken(),
		StartedAt: time.Now(),
	}

	r.mu.Lock()
	r.table[j.ID] = j
	r.mu.Unlock()

	return j
}

// Get returns the job for the given id, or nil.
func (r *Registry) Get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table[id]
}

// Cancel flips the token of the job with the given id. It reports false
// when no such job is live. The entry stays in the table until the worker
// observes the token and releases it.
func (r *Registry) Cancel(id string) bool {
	r.mu.RLock()
	j := r.table[id]
	r.mu.RUnlock()

	if j == nil {
		return false
	}

	j.Token.Cancel()
	return true
}

// CancelAny cancels every live job. It reports false when none is live.
// Kept for the single cancel button of the original frontend, which does
// not track job ids.
func (r *Registry) CancelAny() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.table) == 0 {
		return false
	}

	for _, j := range r.table {
		j.Token.Cancel()
	}

	return true
}

// Release removes a job once its terminal event fired. Safe to call on an
// already released id.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.table, id)
	r.mu.Unlock()
}

// Live returns the number of currently registered jobs.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.table)
}
