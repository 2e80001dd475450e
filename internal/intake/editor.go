package intake

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

// CompletionStats reports filled counts separately for required and optional
// fields. Required completion drives the edit->preview gate; the optional
// missing count is informational only.
type CompletionStats struct {
	RequiredTotal   int     `json:"required_total"`
	RequiredFilled  int     `json:"required_filled"`
	RequiredPercent float64 `json:"required_percent"`
	OptionalTotal   int     `json:"optional_total"`
	OptionalFilled  int     `json:"optional_filled"`
	OptionalMissing int     `json:"optional_missing"`
}

// ComputeCompletion evaluates the filled predicate over every known field.
func ComputeCompletion(fieldMeta []model.FieldMetadata, data model.EditedData) CompletionStats {
	var stats CompletionStats
	for _, f := range fieldMeta {
		filled := IsFilled(data[f.Name])
		if f.Required {
			stats.RequiredTotal++
			if filled {
				stats.RequiredFilled++
			}
		} else {
			stats.OptionalTotal++
			if filled {
				stats.OptionalFilled++
			}
		}
	}
	stats.OptionalMissing = stats.OptionalTotal - stats.OptionalFilled
	if stats.RequiredTotal == 0 {
		stats.RequiredPercent = 100
	} else {
		stats.RequiredPercent = 100 * float64(stats.RequiredFilled) / float64(stats.RequiredTotal)
	}
	return stats
}

// SetField overwrites one edited value. The field must be known to the
// document type so EditedData keys stay a subset of the field metadata.
// No cross-field validation or derived computation happens here.
func (s *Session) SetField(name string, value any) error {
	if s.Extracted == nil {
		return eris.New("intake: no extracted data to edit")
	}
	known := false
	for _, f := range s.FieldMeta {
		if f.Name == name {
			known = true
			break
		}
	}
	if !known {
		return eris.Errorf("intake: unknown field %q for document type %s", name, s.DocumentType)
	}
	if s.Edited == nil {
		s.Edited = make(model.EditedData, len(s.FieldMeta))
	}
	s.Edited[name] = value
	return nil
}

// ResetEdits restores EditedData to a deep copy of ExtractedData. Calling it
// twice yields the same result as calling it once.
func (s *Session) ResetEdits() {
	s.Edited = s.Extracted.Clone()
}

// Dirty reports whether the operator has diverged from the extraction,
// by structural comparison.
func (s *Session) Dirty() bool {
	if s.Extracted == nil {
		return false
	}
	return !reflect.DeepEqual(map[string]any(s.Extracted), map[string]any(s.Edited))
}

// Completion returns the current completion statistics for the session.
func (s *Session) Completion() CompletionStats {
	return ComputeCompletion(s.FieldMeta, s.Edited)
}
