package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/api/schemas"
	"github.com/xkilldash9x/signupd/internal/config"
	"github.com/xkilldash9x/signupd/internal/orchestrator"
)

// fakeJobs scripts the orchestrator surface for handler tests.
type fakeJobs struct {
	submitFunc func(curp string) (schemas.Job, error)
	getFunc    func(jobID string) (schemas.Job, error)
	listFunc   func() []schemas.JobSummary
	resumeFunc func(jobID string) (schemas.Job, error)
	closeFunc  func(jobID string) (bool, error)
}

func (f *fakeJobs) Submit(curp string) (schemas.Job, error) { return f.submitFunc(curp) }

func (f *fakeJobs) Get(jobID string) (schemas.Job, error) { return f.getFunc(jobID) }

func (f *fakeJobs) List() []schemas.JobSummary { return f.listFunc() }

func (f *fakeJobs) Resume(jobID string) (schemas.Job, error) { return f.resumeFunc(jobID) }

func (f *fakeJobs) CloseBrowser(jobID string) (bool, error) { return f.closeFunc(jobID) }

func newTestServer(t *testing.T, jobs JobService, staticDir string) *httptest.Server {
	t.Helper()
	srv := New(
		config.ServerConfig{Addr: ":0"},
		NewHandlers(zap.NewNop(), jobs),
		staticDir,
		zap.NewNop(),
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateJobAccepted(t *testing.T) {
	jobs := &fakeJobs{
		submitFunc: func(curp string) (schemas.Job, error) {
			assert.Equal(t, "ABCD123456HDFZRL09", curp)
			return schemas.Job{JobID: "job-1", Status: schemas.StatusQueued, Email: "abcd123@outlook.com"}, nil
		},
	}
	ts := newTestServer(t, jobs, "")

	resp := postJSON(t, ts.URL+"/jobs", schemas.CreateJobRequest{CURP: "ABCD123456HDFZRL09"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody[schemas.CreateJobResponse](t, resp)
	assert.Equal(t, "job-1", body.JobID)
	assert.Equal(t, schemas.StatusQueued, body.Status)
	assert.Equal(t, "abcd123@outlook.com", body.Email)
}

func TestCreateJobValidation(t *testing.T) {
	ts := newTestServer(t, &fakeJobs{}, "")

	resp := postJSON(t, ts.URL+"/jobs", schemas.CreateJobRequest{CURP: "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[schemas.ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "curp")

	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateJobQueueFull(t *testing.T) {
	jobs := &fakeJobs{
		submitFunc: func(string) (schemas.Job, error) {
			return schemas.Job{}, orchestrator.ErrQueueFull
		},
	}
	ts := newTestServer(t, jobs, "")

	resp := postJSON(t, ts.URL+"/jobs", schemas.CreateJobRequest{CURP: "X"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestGetJob(t *testing.T) {
	jobs := &fakeJobs{
		getFunc: func(jobID string) (schemas.Job, error) {
			if jobID != "job-1" {
				return schemas.Job{}, orchestrator.ErrJobNotFound
			}
			return schemas.Job{
				JobID:      "job-1",
				Status:     schemas.StatusWaitingForHuman,
				Screenshot: "/storage/job-1_captcha.png",
				Logs:       []schemas.LogEntry{{Step: "goto", Success: true}},
			}, nil
		},
	}
	ts := newTestServer(t, jobs, "")

	resp, err := http.Get(ts.URL + "/jobs/job-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[schemas.Job](t, resp)
	assert.Equal(t, schemas.StatusWaitingForHuman, body.Status)
	assert.Len(t, body.Logs, 1)

	resp, err = http.Get(ts.URL + "/jobs/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListJobs(t *testing.T) {
	jobs := &fakeJobs{
		listFunc: func() []schemas.JobSummary {
			return []schemas.JobSummary{
				{JobID: "job-1", Status: schemas.StatusCompleted, CreationStatus: schemas.CreationSuccess},
				{JobID: "job-2", Status: schemas.StatusWaitingForHuman, BrowserOpen: true, CreationStatus: schemas.CreationBlocked},
			}
		},
	}
	ts := newTestServer(t, jobs, "")

	resp, err := http.Get(ts.URL + "/jobs")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]schemas.JobSummary](t, resp)
	require.Len(t, body, 2)
	assert.True(t, body[1].BrowserOpen)
}

func TestResumeJob(t *testing.T) {
	jobs := &fakeJobs{
		resumeFunc: func(jobID string) (schemas.Job, error) {
			switch jobID {
			case "job-1":
				return schemas.Job{JobID: "job-1", Status: schemas.StatusResuming}, nil
			case "job-2":
				return schemas.Job{}, orchestrator.ErrInvalidJobState
			}
			return schemas.Job{}, orchestrator.ErrJobNotFound
		},
	}
	ts := newTestServer(t, jobs, "")

	resp := postJSON(t, ts.URL+"/jobs/job-1/resume", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decodeBody[schemas.ResumeJobResponse](t, resp)
	assert.Equal(t, schemas.StatusResuming, body.Status)

	resp = postJSON(t, ts.URL+"/jobs/job-2/resume", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/jobs/missing/resume", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCloseBrowser(t *testing.T) {
	released := true
	jobs := &fakeJobs{
		closeFunc: func(jobID string) (bool, error) {
			if jobID != "job-1" {
				return false, orchestrator.ErrJobNotFound
			}
			r := released
			released = false
			return r, nil
		},
	}
	ts := newTestServer(t, jobs, "")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/jobs/job-1/browser", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[schemas.CloseBrowserResponse](t, resp)
	assert.Equal(t, "browser closed", body.Message)

	// Second close is still 200, with the no-op message.
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody[schemas.CloseBrowserResponse](t, resp)
	assert.Equal(t, "no live browser for job", body.Message)

	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/jobs/missing/browser", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestStaticArtifactsServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-1_captcha.png"), []byte("png-bytes"), 0o644))

	ts := newTestServer(t, &fakeJobs{}, dir)

	resp, err := http.Get(ts.URL + "/static/job-1_captcha.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeJobs{}, "")
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
