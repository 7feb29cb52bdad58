// Audit logging: structured JSONL events for each run, one file per day
// under the logs directory. Unlike category logs these are meant for
// machine consumption, so a run's history can be tallied or diffed after
// the fact without scraping log text.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType tags one audit record.
type AuditEventType string

const (
	AuditRunStart   AuditEventType = "run_start"
	AuditRunFinish  AuditEventType = "run_finish"
	AuditTaskResult AuditEventType = "task_result"
)

// AuditEvent is one JSONL record in the audit file.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	EventType  AuditEventType `json:"event"`
	RunID      string         `json:"run"`
	TaskKey    string         `json:"task,omitempty"`
	TaskType   string         `json:"type,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Success    bool           `json:"success"`
	Attempts   int            `json:"attempts,omitempty"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"msg,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit file. A no-op unless debug mode is on, same
// as the category loggers.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.jsonl", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

func writeAudit(ev AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

// AuditRunStarted records the beginning of a solving run.
func AuditRunStarted(runID string, taskCount int) {
	writeAudit(AuditEvent{
		EventType: AuditRunStart,
		RunID:     runID,
		Success:   true,
		Message:   fmt.Sprintf("%d task(s)", taskCount),
	})
}

// AuditRunFinished records the end of a solving run.
func AuditRunFinished(runID string, summary string) {
	writeAudit(AuditEvent{
		EventType: AuditRunFinish,
		RunID:     runID,
		Success:   true,
		Message:   summary,
	})
}

// AuditTaskResulted records one task's terminal state.
func AuditTaskResulted(runID, taskKey, taskType, outcome string, success bool, attempts int, dur time.Duration, errMsg string) {
	writeAudit(AuditEvent{
		EventType:  AuditTaskResult,
		RunID:      runID,
		TaskKey:    taskKey,
		TaskType:   taskType,
		Outcome:    outcome,
		Success:    success,
		Attempts:   attempts,
		DurationMs: dur.Milliseconds(),
		Error:      errMsg,
	})
}
