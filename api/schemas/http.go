// api/schemas/http.go
package schemas

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	CURP string `json:"curp"`
}

// CreateJobResponse acknowledges an accepted submission (202).
type CreateJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Email  string    `json:"email"`
}

// ResumeJobResponse acknowledges an accepted resume (202).
type ResumeJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// CloseBrowserResponse is returned by DELETE /jobs/{id}/browser.
type CloseBrowserResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ErrorResponse is the uniform error body for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
