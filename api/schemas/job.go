// api/schemas/job.go
package schemas

import "time"

// JobStatus is the lifecycle state of a signup job.
//
// NOTE: These values appear verbatim in API responses and per-job log files;
// treat them as a stable contract.
type JobStatus string

const (
	StatusQueued          JobStatus = "queued"
	StatusRunning         JobStatus = "running"
	StatusWaitingForHuman JobStatus = "waiting_for_human"
	StatusResuming        JobStatus = "resuming"
	StatusCompleted       JobStatus = "completed"
	StatusFailed          JobStatus = "failed"
	StatusError           JobStatus = "error"
)

// Terminal reports whether no further automated transition can occur
// without external action (a resume or a manual close).
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusError, StatusWaitingForHuman:
		return true
	}
	return false
}

// CreationStatus summarizes the account-creation outcome on the Job view.
type CreationStatus string

const (
	CreationPending CreationStatus = "pending"
	CreationSuccess CreationStatus = "success"
	CreationBlocked CreationStatus = "blocked_by_captcha"
	CreationFailed  CreationStatus = "failed"
	CreationErrored CreationStatus = "error"
)

// Credentials holds the generated account identity for one job.
// Generated once at submission and immutable afterwards.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogEntry is one immutable record in a job's execution trace. Entries are
// strictly append-ordered; consumers replay them as the job's history.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Step      string         `json:"step"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// CreatedAccount describes the account a job attempted to provision.
type CreatedAccount struct {
	Email             string         `json:"email"`
	Password          string         `json:"password"`
	CreationStatus    CreationStatus `json:"creation_status"`
	CreationTimestamp time.Time      `json:"creation_timestamp"`
}

// Job is the full read-model for one signup attempt, as returned by
// GET /jobs/{id}. It is a snapshot copy; mutating it has no effect on the
// orchestrator's state.
type Job struct {
	JobID          string          `json:"job_id"`
	CURP           string          `json:"curp"`
	Email          string          `json:"email"`
	Status         JobStatus       `json:"status"`
	BrowserOpen    bool            `json:"browser_open"`
	Logs           []LogEntry      `json:"logs"`
	CreatedAccount *CreatedAccount `json:"created_account,omitempty"`
	Screenshot     string          `json:"captcha_screenshot,omitempty"`
	UserDataDir    string          `json:"user_data_dir,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// JobSummary is the compact listing row for GET /jobs.
type JobSummary struct {
	JobID          string         `json:"job_id"`
	Status         JobStatus      `json:"status"`
	Email          string         `json:"email"`
	BrowserOpen    bool           `json:"browser_open"`
	CreationStatus CreationStatus `json:"creation_status"`
}
