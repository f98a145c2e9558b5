// internal/orchestrator/orchestrator.go

// Package orchestrator owns the job table and the worker pool. It is the
// single writer of job state; the HTTP layer only ever reads snapshots or
// enqueues transitions through it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/api/schemas"
	"github.com/xkilldash9x/signupd/internal/browser"
	"github.com/xkilldash9x/signupd/internal/config"
	"github.com/xkilldash9x/signupd/internal/joblog"
	"github.com/xkilldash9x/signupd/internal/signup"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidJobState = errors.New("job is not in a resumable state")
	ErrQueueFull       = errors.New("job queue is full")
)

// Driver is the signup state machine the workers execute. Satisfied by
// *signup.Driver; tests substitute their own.
type Driver interface {
	Run(ctx context.Context, jobID string, account schemas.Credentials, jlog *joblog.Log) signup.Outcome
	Resume(ctx context.Context, jobID string, jlog *joblog.Log) signup.Outcome
}

type task struct {
	jobID  string
	resume bool
}

// record is the orchestrator's private per-job state. The schemas.Job held
// inside is the canonical copy; reads hand out snapshots of it.
type record struct {
	job   schemas.Job
	creds schemas.Credentials
	jlog  *joblog.Log
}

// Orchestrator runs signup jobs on a bounded worker pool and serves the job
// read-model.
type Orchestrator struct {
	cfg      config.EngineConfig
	storage  string
	driver   Driver
	registry *browser.Registry
	newCreds CredentialFactory
	logger   *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*record

	tasks chan task
	wg    sync.WaitGroup

	stateLock sync.Mutex
	started   bool
	stopped   bool
}

// CredentialFactory derives the account identity for a submission.
type CredentialFactory func(curp string) schemas.Credentials

// New builds an orchestrator around a driver, a session registry and a
// credential factory.
func New(
	cfg config.EngineConfig,
	storageDir string,
	driver Driver,
	registry *browser.Registry,
	newCreds CredentialFactory,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		storage:  storageDir,
		driver:   driver,
		registry: registry,
		newCreds: newCreds,
		logger:   logger.Named("orchestrator"),
		jobs:     make(map[string]*record),
		tasks:    make(chan task, cfg.QueueDepth),
	}
}

// Start launches the worker pool. Idempotent; a second call is a no-op.
// Workers exit when ctx is canceled or Stop closes the queue.
func (o *Orchestrator) Start(ctx context.Context) {
	o.stateLock.Lock()
	defer o.stateLock.Unlock()
	if o.started {
		o.logger.Warn("Start called on an already-running orchestrator.")
		return
	}
	o.started = true

	for i := 0; i < o.cfg.WorkerConcurrency; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
	o.logger.Info("Worker pool started.", zap.Int("workers", o.cfg.WorkerConcurrency))
}

// Stop closes the queue and waits for in-flight jobs to finish. Idempotent.
func (o *Orchestrator) Stop() {
	o.stateLock.Lock()
	if o.stopped || !o.started {
		o.stateLock.Unlock()
		return
	}
	o.stopped = true
	o.stateLock.Unlock()

	close(o.tasks)
	o.wg.Wait()
	o.logger.Info("Worker pool drained.")
}

func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.wg.Done()
	log := o.logger.With(zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-o.tasks:
			if !ok {
				return
			}
			o.execute(ctx, t, log)
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, t task, log *zap.Logger) {
	rec, ok := o.lookup(t.jobID)
	if !ok {
		log.Error("Dequeued a task for an unknown job.", zap.String("job_id", t.jobID))
		return
	}

	runCtx := ctx
	if o.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.JobTimeout)
		defer cancel()
	}

	var outcome signup.Outcome
	if t.resume {
		log.Info("Resuming job.", zap.String("job_id", t.jobID))
		outcome = o.driver.Resume(runCtx, t.jobID, rec.jlog)
	} else {
		o.setStatus(t.jobID, schemas.StatusRunning)
		log.Info("Running job.", zap.String("job_id", t.jobID))
		outcome = o.driver.Run(runCtx, t.jobID, rec.creds, rec.jlog)
	}

	o.apply(t.jobID, outcome)
	log.Info("Job settled.",
		zap.String("job_id", t.jobID),
		zap.String("status", string(outcome.Status)),
		zap.String("reason", string(outcome.Reason)))
}

// Submit registers a new job and enqueues it. Credentials are derived once
// here and never regenerated, even across resumes.
func (o *Orchestrator) Submit(curp string) (schemas.Job, error) {
	if o.newCreds == nil {
		return schemas.Job{}, fmt.Errorf("orchestrator has no credential factory")
	}

	jobID := uuid.NewString()
	account := o.newCreds(curp)

	jlog, err := joblog.New(o.storage, jobID, o.logger)
	if err != nil {
		return schemas.Job{}, fmt.Errorf("open job log: %w", err)
	}

	now := time.Now().UTC()
	rec := &record{
		job: schemas.Job{
			JobID:       jobID,
			CURP:        curp,
			Email:       account.Email,
			Status:      schemas.StatusQueued,
			UserDataDir: filepath.Join(o.storage, jobID+"_profile"),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		creds: account,
		jlog:  jlog,
	}

	o.mu.Lock()
	o.jobs[jobID] = rec
	o.mu.Unlock()

	// The queued entry goes in before the task is visible to a worker, so
	// the trace always starts with it.
	jlog.Append("queued", true, "job accepted for "+account.Email, map[string]any{"curp": curp})

	// Snapshot before the task is enqueued. Once a worker can see the task
	// it can also flip the status, and the caller was promised "queued".
	snapshot, err := o.snapshotLocked(jobID)
	if err != nil {
		return schemas.Job{}, err
	}

	select {
	case o.tasks <- task{jobID: jobID}:
	default:
		o.mu.Lock()
		delete(o.jobs, jobID)
		o.mu.Unlock()
		return schemas.Job{}, ErrQueueFull
	}

	o.logger.Info("Job submitted.", zap.String("job_id", jobID), zap.String("email", account.Email))
	return snapshot, nil
}

// Resume transitions a suspended job to resuming and enqueues the resume.
// The status flips before this returns, so a poll issued right after the
// call already sees "resuming".
func (o *Orchestrator) Resume(jobID string) (schemas.Job, error) {
	o.mu.Lock()
	rec, ok := o.jobs[jobID]
	if !ok {
		o.mu.Unlock()
		return schemas.Job{}, ErrJobNotFound
	}
	if rec.job.Status != schemas.StatusWaitingForHuman {
		status := rec.job.Status
		o.mu.Unlock()
		return schemas.Job{}, fmt.Errorf("%w: status is %q", ErrInvalidJobState, status)
	}
	rec.job.Status = schemas.StatusResuming
	rec.job.UpdatedAt = time.Now().UTC()
	o.mu.Unlock()

	rec.jlog.Append("resume_requested", true, "operator requested resume", nil)

	select {
	case o.tasks <- task{jobID: jobID, resume: true}:
	default:
		// Revert so the operator can retry once the pool drains.
		o.mu.Lock()
		rec.job.Status = schemas.StatusWaitingForHuman
		rec.job.UpdatedAt = time.Now().UTC()
		o.mu.Unlock()
		rec.jlog.Append("resume_requested", false, "worker queue full, resume rejected", nil)
		return schemas.Job{}, ErrQueueFull
	}

	return o.snapshotLocked(jobID)
}

// CloseBrowser force-releases the job's live session, if any. Idempotent;
// the job record itself is untouched, so a suspended job stays suspended
// and a later resume reports the missing session.
func (o *Orchestrator) CloseBrowser(jobID string) (bool, error) {
	rec, ok := o.lookup(jobID)
	if !ok {
		return false, ErrJobNotFound
	}
	released := o.registry.Release(jobID)
	if released {
		rec.jlog.Append("browser_closed", true, "browser session closed by operator", nil)
	}
	return released, nil
}

// Get returns a snapshot of one job, logs included.
func (o *Orchestrator) Get(jobID string) (schemas.Job, error) {
	return o.snapshotLocked(jobID)
}

// List returns compact summaries of every job, oldest first.
func (o *Orchestrator) List() []schemas.JobSummary {
	o.mu.RLock()
	recs := make([]*record, 0, len(o.jobs))
	for _, rec := range o.jobs {
		recs = append(recs, rec)
	}
	o.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].job.CreatedAt.Equal(recs[j].job.CreatedAt) {
			return recs[i].job.JobID < recs[j].job.JobID
		}
		return recs[i].job.CreatedAt.Before(recs[j].job.CreatedAt)
	})

	out := make([]schemas.JobSummary, 0, len(recs))
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, rec := range recs {
		creation := schemas.CreationPending
		if rec.job.CreatedAccount != nil {
			creation = rec.job.CreatedAccount.CreationStatus
		}
		out = append(out, schemas.JobSummary{
			JobID:          rec.job.JobID,
			Status:         rec.job.Status,
			Email:          rec.job.Email,
			BrowserOpen:    o.registry.Has(rec.job.JobID),
			CreationStatus: creation,
		})
	}
	return out
}

func (o *Orchestrator) lookup(jobID string) (*record, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rec, ok := o.jobs[jobID]
	return rec, ok
}

func (o *Orchestrator) setStatus(jobID string, status schemas.JobStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec, ok := o.jobs[jobID]; ok {
		rec.job.Status = status
		rec.job.UpdatedAt = time.Now().UTC()
	}
}

// apply folds a driver outcome into the job record. This is the only place
// run results touch job state.
func (o *Orchestrator) apply(jobID string, outcome signup.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.jobs[jobID]
	if !ok {
		return
	}

	rec.job.Status = outcome.Status
	rec.job.UpdatedAt = time.Now().UTC()
	if outcome.Screenshot != "" {
		rec.job.Screenshot = outcome.Screenshot
	}

	creation := creationFor(outcome.Status)
	if creation != schemas.CreationPending {
		rec.job.CreatedAccount = &schemas.CreatedAccount{
			Email:             rec.creds.Email,
			Password:          rec.creds.Password,
			CreationStatus:    creation,
			CreationTimestamp: rec.job.UpdatedAt,
		}
	}
}

func creationFor(status schemas.JobStatus) schemas.CreationStatus {
	switch status {
	case schemas.StatusCompleted:
		return schemas.CreationSuccess
	case schemas.StatusWaitingForHuman:
		return schemas.CreationBlocked
	case schemas.StatusFailed:
		return schemas.CreationFailed
	case schemas.StatusError:
		return schemas.CreationErrored
	}
	return schemas.CreationPending
}

// snapshotLocked copies the job for external consumption. BrowserOpen is
// derived from the session registry at read time, so it is always accurate
// no matter which component last touched the session.
func (o *Orchestrator) snapshotLocked(jobID string) (schemas.Job, error) {
	o.mu.RLock()
	rec, ok := o.jobs[jobID]
	if !ok {
		o.mu.RUnlock()
		return schemas.Job{}, ErrJobNotFound
	}
	job := rec.job
	if rec.job.CreatedAccount != nil {
		account := *rec.job.CreatedAccount
		job.CreatedAccount = &account
	}
	o.mu.RUnlock()

	job.Logs = rec.jlog.Entries()
	job.BrowserOpen = o.registry.Has(jobID)
	return job, nil
}
