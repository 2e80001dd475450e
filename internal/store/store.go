// Package store persists the audit trail of intake runs.
package store

import (
	"context"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	DocumentType string          `json:"document_type,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for intake runs.
type Store interface {
	CreateRun(ctx context.Context, run *model.IntakeRun) error
	UpdateRunStage(ctx context.Context, runID string, stage model.Stage, completion float64) error
	UpdateRunResult(ctx context.Context, runID string, result *model.GenerationResult) error
	GetRun(ctx context.Context, runID string) (*model.IntakeRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.IntakeRun, error)

	RecordEvent(ctx context.Context, runID, kind, detail string) error
	ListEvents(ctx context.Context, runID string) ([]model.RunEvent, error)

	Migrate(ctx context.Context) error
	Close() error
}
