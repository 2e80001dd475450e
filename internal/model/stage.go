package model

// Stage is a step of the intake workflow. The workflow is linear:
// upload -> edit -> preview -> complete, with no cycles other than an
// explicit reset back to upload.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageEdit     Stage = "edit"
	StagePreview  Stage = "preview"
	StageComplete Stage = "complete"
)

// Next returns the stage that follows s, or s itself when terminal.
func (s Stage) Next() Stage {
	switch s {
	case StageUpload:
		return StageEdit
	case StageEdit:
		return StagePreview
	case StagePreview:
		return StageComplete
	default:
		return s
	}
}

// Prev returns the stage that precedes s, or s itself at the start.
func (s Stage) Prev() Stage {
	switch s {
	case StageComplete:
		return StagePreview
	case StagePreview:
		return StageEdit
	case StageEdit:
		return StageUpload
	default:
		return s
	}
}

// Valid reports whether s is one of the four workflow stages.
func (s Stage) Valid() bool {
	switch s {
	case StageUpload, StageEdit, StagePreview, StageComplete:
		return true
	}
	return false
}

// ProcessingState labels what the extraction orchestrator is doing so the
// caller can present the right progress label.
type ProcessingState string

const (
	ProcessingIdle ProcessingState = "idle"
	ProcessingOCR  ProcessingState = "ocr"
	ProcessingAI   ProcessingState = "ai"
)
