// internal/signup/outcome.go
package signup

import "github.com/xkilldash9x/signupd/api/schemas"

// Reason pins down why the driver landed where it did. Several reasons map
// to the same external status (waiting_for_human covers protection, captcha
// and unknown-state pages), so consumers that need to tell them apart read
// the reason, not the status.
type Reason string

const (
	ReasonProtection    Reason = "protection"
	ReasonCaptcha       Reason = "captcha"
	ReasonUnknownState  Reason = "unknown_state"
	ReasonSuccess       Reason = "success"
	ReasonLaunchFailure Reason = "launch_failure"
	// ReasonSessionNotFound: a resume was requested but no live session
	// exists for the job.
	ReasonSessionNotFound Reason = "session_not_found"
	// ReasonSessionClosed: the session vanished under the driver, e.g. an
	// operator closed the browser mid-run.
	ReasonSessionClosed Reason = "session_closed"
)

// Outcome is the driver's verdict for one run or resume.
type Outcome struct {
	Status schemas.JobStatus
	Reason Reason
	Detail string
	// Screenshot is the artifact path of the most recent capture, if any.
	Screenshot string
}
