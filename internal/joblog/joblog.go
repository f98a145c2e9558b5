// internal/joblog/joblog.go

// Package joblog persists the append-only execution trace of one signup
// job. Every entry is mirrored three ways: kept in memory for the job read
// model, appended to a per-job JSONL file for postmortems, and echoed to
// the service logger. The package also owns screenshot artifacts, which are
// keyed by job id plus a classification suffix and overwritten on repeat
// captures of the same kind.
package joblog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/json-iterator/go" // Use json-iterator for consistency and performance
	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/api/schemas"
)

// Log is the append-only sink for a single job.
type Log struct {
	jobID  string
	dir    string
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	entries []schemas.LogEntry
}

// New opens (or reopens, on resume) the log for the given job id under dir.
// The JSONL file is append-only; reopening continues the same trace.
func New(dir, jobID string, logger *zap.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Log{
		jobID:  jobID,
		dir:    dir,
		path:   filepath.Join(dir, jobID+".log.jsonl"),
		logger: logger.Named("joblog").With(zap.String("job_id", jobID)),
	}, nil
}

// Path returns the JSONL file location.
func (l *Log) Path() string { return l.path }

// Append records one step. Entries are timestamped here, under the lock, so
// the in-memory order and the timestamp order cannot diverge.
func (l *Log) Append(step string, success bool, message string, extra map[string]any) schemas.LogEntry {
	entry := schemas.LogEntry{
		Step:    step,
		Success: success,
		Message: message,
		Extra:   extra,
	}

	l.mu.Lock()
	entry.Timestamp = time.Now().UTC()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if err := l.appendFile(entry); err != nil {
		l.logger.Warn("Failed to append job log entry to file.", zap.Error(err))
	}

	if success {
		l.logger.Info(message, zap.String("step", step))
	} else {
		l.logger.Warn(message, zap.String("step", step))
	}
	return entry
}

// Entries returns a copy of the in-memory trace.
func (l *Log) Entries() []schemas.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schemas.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// SaveScreenshot writes a capture artifact named by job id and kind, e.g.
// <dir>/<job_id>_captcha.png. Repeat captures of the same kind overwrite.
func (l *Log) SaveScreenshot(data []byte, kind string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty screenshot payload")
	}
	path := filepath.Join(l.dir, fmt.Sprintf("%s_%s.png", l.jobID, kind))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot %s: %w", path, err)
	}
	l.logger.Debug("Screenshot saved.", zap.String("kind", kind), zap.String("path", path))
	return path, nil
}

func (l *Log) appendFile(entry schemas.LogEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open job log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write job log: %w", err)
	}
	return nil
}
