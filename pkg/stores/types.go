package stores

import "time"

// RunStatus is the lifecycle status of one execution run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one sequence execution against a part.
type Run struct {
	ID          string     `json:"id"`
	Part        string     `json:"part"`
	IntentHash  string     `json:"intent_hash"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RunEvent records the progress of one operation within a run.
type RunEvent struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	OperationID string    `json:"operation_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
