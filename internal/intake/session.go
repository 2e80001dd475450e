// Package intake implements the document intake pipeline: categorized
// upload, extraction, operator editing, fill preview and final generation,
// sequenced by a linear workflow controller.
package intake

import (
	"context"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/review"
)

// Session is the explicitly owned state of one intake workflow. It is
// created by Pipeline.NewSession, mutated only by pipeline operations, and
// discarded on reset. Callers must not share a Session across goroutines
// without external locking.
type Session struct {
	RunID        string
	SessionID    string
	DocumentType string
	TemplateID   string
	Files        *model.CategorizedFileSet

	Stage      model.Stage
	Processing model.ProcessingState
	Strategy   Strategy
	LastError  string

	FieldMeta []model.FieldMetadata

	// Extracted is immutable once set; Edited is the operator's working copy.
	Extracted        model.ExtractedData
	Edited           model.EditedData
	Confidence       map[string]float64
	FieldValidations map[string]model.FieldValidation
	Quality          *model.QualityReport
	Validation       *model.ValidationReport

	Preview *model.FillPreview
	Result  *model.GenerationResult

	cancelInFlight context.CancelFunc
}

// CancelInFlight cancels the session's in-flight service call, if any.
// Abandoning a stage deterministically stops its work.
func (s *Session) CancelInFlight() {
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
}

// clear discards all per-session data, returning the session to a blank
// upload stage. Document type and template selection survive a clear only
// when keepSelection is true.
func (s *Session) clear(keepSelection bool) {
	s.CancelInFlight()
	if !keepSelection {
		s.DocumentType = ""
		s.TemplateID = ""
	}
	s.SessionID = ""
	s.Files.Clear()
	s.FieldMeta = nil
	s.Extracted = nil
	s.Edited = nil
	s.Confidence = nil
	s.FieldValidations = nil
	s.Quality = nil
	s.Validation = nil
	s.Preview = nil
	s.Result = nil
	s.Processing = model.ProcessingIdle
	s.LastError = ""
	s.Stage = model.StageUpload
}

// Status is the read-only view the surrounding application sees. Everything
// else in the session stays private to the pipeline's lifetime.
type Status struct {
	RunID             string                    `json:"run_id"`
	Stage             model.Stage               `json:"stage"`
	Processing        model.ProcessingState     `json:"processing"`
	DocumentType      string                    `json:"document_type,omitempty"`
	Completion        *CompletionStats          `json:"completion,omitempty"`
	ValidationSummary *review.ValidationSummary `json:"validation_summary,omitempty"`
	QualitySummary    *review.QualitySummary    `json:"quality_summary,omitempty"`
	LastError         string                    `json:"last_error,omitempty"`
	Result            *model.GenerationResult   `json:"result,omitempty"`
}

// Status returns the externally visible snapshot of the session.
func (s *Session) Status() Status {
	st := Status{
		RunID:             s.RunID,
		Stage:             s.Stage,
		Processing:        s.Processing,
		DocumentType:      s.DocumentType,
		ValidationSummary: review.SummarizeValidation(s.Validation),
		QualitySummary:    review.SummarizeQuality(s.Quality),
		LastError:         s.LastError,
		Result:            s.Result,
	}
	if s.Extracted != nil {
		stats := ComputeCompletion(s.FieldMeta, s.Edited)
		st.Completion = &stats
	}
	return st
}
