// Package types holds the data model shared across the orchestration core:
// tasks, sessions, settings and subscribers, and the small enums that key
// their behavior.
package types

import "time"

// TaskStatus is the Task State Machine's state (§4.7).
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskInProgress  TaskStatus = "in_progress"
	TaskInReviewing TaskStatus = "in_reviewing"
	TaskCompleted   TaskStatus = "completed"
	TaskFailed      TaskStatus = "failed"
)

// ReviewToggle is a per-task override of the global review_enabled setting.
type ReviewToggle string

const (
	ReviewInherit  ReviewToggle = "inherit"
	ReviewForceOn  ReviewToggle = "force_on"
	ReviewForceOff ReviewToggle = "force_off"
)

// CLIKind identifies a supported interactive CLI assistant.
type CLIKind string

const (
	CLIClaudeCode CLIKind = "claude_code"
	CLICodex      CLIKind = "codex"
	CLIGemini     CLIKind = "gemini"
)

// TerminalKind identifies a supported terminal emulator family.
type TerminalKind string

const (
	TermITerm            TerminalKind = "iterm"
	TermKitty            TerminalKind = "kitty"
	TermWindowsTerminal   TerminalKind = "windows_terminal"
)

// RunPhase is a Session's run-phase.
type RunPhase string

const (
	RunRunning  RunPhase = "running"
	RunPaused   RunPhase = "paused"
	RunStopping RunPhase = "stopping"
)

// Task is the persisted work item the core shadows in memory.
type Task struct {
	ID              string
	ProjectDir      string
	DocPath         string
	Status          TaskStatus
	PreferredCLI    CLIKind // empty means "use the system default"
	ReviewOverride  ReviewToggle
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	FailureReason   string
	LogsPointer     string
}

// EffectiveReview resolves the per-task override against the global flag.
func (t *Task) EffectiveReview(globalEnabled bool) bool {
	switch t.ReviewOverride {
	case ReviewForceOn:
		return true
	case ReviewForceOff:
		return false
	default:
		return globalEnabled
	}
}

// Session is the Session Manager's in-memory process supervision record.
// Exactly one Session exists per task id while that task is in_progress or
// in_reviewing; never persisted.
type Session struct {
	TaskID          string
	CLIKind         CLIKind
	TerminalKind    TerminalKind
	StartedAt       time.Time
	PID             int // 0 when the terminal hides the child process
	LastPercent     *int
	LastLiveness    time.Time
	Phase           RunPhase
	Counter         uint64 // incarnation number set at spawn; callbacks are not checked against it
	Handle          any    // opaque terminal-adapter handle
	TaskStatus      TaskStatus
}

// Settings is the process-wide, read-copy-update settings snapshot the core
// consults. A new snapshot replaces the old one atomically; readers keep
// whichever snapshot they started an operation with.
type Settings struct {
	DefaultCLI            CLIKind
	ReviewCLI             CLIKind
	ReviewEnabled         bool
	TerminalPreference    TerminalKind // empty means "auto by platform"
	MaxConcurrent         int
	WatchdogInterval      time.Duration
	HeartbeatTimeout      time.Duration
	ContextRestartPercent int
	MinimumRunDuration    time.Duration
}

// SessionSnapshotEntry is one row of a broadcast snapshot (§6 push channel).
type SessionSnapshotEntry struct {
	TaskID         string     `json:"task_id"`
	Status         TaskStatus `json:"status"`
	PID            int        `json:"pid,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	ContextPercent *int       `json:"context_usage,omitempty"`
}

// Snapshot is the full state pushed to subscribers.
type Snapshot struct {
	Sessions      []SessionSnapshotEntry `json:"sessions"`
	Count         int                    `json:"count"`
	MaxConcurrent int                    `json:"max_concurrent"`
	PublishedAt   time.Time              `json:"-"`
}

// StatusPayload is the body of the CLI callback (`notify_status`, §6).
type StatusPayload struct {
	Status         string `json:"status"` // "in_progress" | "completed" | "failed"
	ContextPercent *int   `json:"context_percent,omitempty"`
	Message        string `json:"message,omitempty"`
}
