// internal/browser/registry.go
package browser

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps job ids to their live browser sessions. It is the only
// structure touched by both the driver (launch, complete) and the
// orchestrator (manual close), so every mutation happens under the lock.
//
// A job id is present here exactly while its job is suspended with an open
// browser; the orchestrator's waiting_for_human invariant leans on that.
type Registry struct {
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]Page
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger.Named("session_registry"),
		sessions: make(map[string]Page),
	}
}

// Store records the live session for a job. Last writer wins; a displaced
// session is closed so the browser process cannot leak.
func (r *Registry) Store(jobID string, page Page) {
	r.mu.Lock()
	prior, had := r.sessions[jobID]
	r.sessions[jobID] = page
	r.mu.Unlock()

	if had && prior != page {
		r.logger.Warn("Displacing a live session for job; closing the old one.", zap.String("job_id", jobID))
		_ = prior.Close()
	}
	r.logger.Debug("Session stored.", zap.String("job_id", jobID))
}

// Lookup returns the live session for a job, if any. The session is shared,
// not copied; callers must not close it directly, only via Release.
func (r *Registry) Lookup(jobID string) (Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, ok := r.sessions[jobID]
	return page, ok
}

// Has reports whether a live session exists for the job.
func (r *Registry) Has(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[jobID]
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Release closes the job's session if present and removes the entry.
// Idempotent: releasing twice, or releasing an unknown id, is a no-op.
// Returns whether a session was actually released.
func (r *Registry) Release(jobID string) bool {
	r.mu.Lock()
	page, ok := r.sessions[jobID]
	delete(r.sessions, jobID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := page.Close(); err != nil {
		r.logger.Warn("Error closing session during release.", zap.String("job_id", jobID), zap.Error(err))
	}
	r.logger.Info("Session released.", zap.String("job_id", jobID))
	return true
}

// ReleaseAll tears down every live session; used during shutdown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	pages := make(map[string]Page, len(r.sessions))
	for id, p := range r.sessions {
		pages[id] = p
	}
	r.sessions = make(map[string]Page)
	r.mu.Unlock()

	for id, p := range pages {
		if err := p.Close(); err != nil {
			r.logger.Warn("Error closing session during shutdown.", zap.String("job_id", id), zap.Error(err))
		}
	}
}
