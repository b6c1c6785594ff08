// Package state persists pipeline run history in a SQLite database.
package state

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SessionRunStatus is the lifecycle status of one session within a run.
type SessionRunStatus string

// Session run statuses.
const (
	SessionRunStatusPending SessionRunStatus = "pending"
	SessionRunStatusRunning SessionRunStatus = "running"
	SessionRunStatusSuccess SessionRunStatus = "success"
	SessionRunStatusFailed  SessionRunStatus = "failed"
	SessionRunStatusSkipped SessionRunStatus = "skipped"
)

// Run is one invocation of the preprocessing pipeline.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// SessionRun records the outcome of processing a single session.
type SessionRun struct {
	ID        string
	RunID     string
	Session   string // session key, e.g. "WhippingCream/session_01"
	Status    SessionRunStatus
	Rows      int64
	Error     string
	IngestMS  int64
	ProcessMS int64
}

// Store is the persistence interface for run state.
type Store interface {
	// Open opens the store at the given path (":memory:" for in-memory).
	Open(path string) error

	// Close releases the underlying database.
	Close() error

	// Migrate brings the schema up to date.
	Migrate() error

	// CreateRun starts a new run in the given environment.
	CreateRun(env string) (*Run, error)

	// GetRun retrieves a run by ID.
	GetRun(id string) (*Run, error)

	// GetLatestRun retrieves the most recent run for an environment,
	// or nil when none exists.
	GetLatestRun(env string) (*Run, error)

	// CompleteRun marks a run finished with the given status.
	CompleteRun(id string, status RunStatus, errMsg string) error

	// RecordSessionRun inserts a session run, assigning its ID.
	RecordSessionRun(sr *SessionRun) error

	// UpdateSessionRun updates the status and metrics of a session run.
	UpdateSessionRun(id string, status SessionRunStatus, rows int64, errMsg string, ingestMS, processMS int64) error

	// GetSessionRunsForRun lists the session runs belonging to a run.
	GetSessionRunsForRun(runID string) ([]*SessionRun, error)
}
