package model

import "time"

// RunStatus tracks the lifecycle of a persisted intake run.
type RunStatus string

const (
	RunStatusActive    RunStatus = "active"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IntakeRun is the persisted audit record of one intake session.
type IntakeRun struct {
	ID           string            `json:"id"`
	SessionID    string            `json:"session_id,omitempty"`
	DocumentType string            `json:"document_type"`
	TemplateID   string            `json:"template_id"`
	Stage        Stage             `json:"stage"`
	Status       RunStatus         `json:"status"`
	Strategy     string            `json:"strategy,omitempty"`
	Completion   float64           `json:"completion_percent"`
	Result       *GenerationResult `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// RunEvent records one stage transition or notable action within a run.
type RunEvent struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
