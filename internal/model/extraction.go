package model

// ExtractedData is the flat field -> raw value map returned by extraction.
// Immutable once set for a session; it serves as the original for diffing.
type ExtractedData map[string]any

// EditedData is the operator's working copy of ExtractedData.
type EditedData map[string]any

// Clone returns a deep copy of d. Values are raw scalars (string, number,
// bool, nil) so a per-key copy is sufficient.
func (d ExtractedData) Clone() EditedData {
	if d == nil {
		return nil
	}
	out := make(EditedData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ValidationStatus classifies the content plausibility of one extracted
// field, independent of confidence.
type ValidationStatus string

const (
	ValidationValid        ValidationStatus = "valid"
	ValidationSuspicious   ValidationStatus = "suspicious"
	ValidationInvalid      ValidationStatus = "invalid"
	ValidationNotValidated ValidationStatus = "not_validated"
)

// FieldValidation is the per-field plausibility verdict from extraction.
type FieldValidation struct {
	Status ValidationStatus `json:"status"`
	Issues []string         `json:"issues,omitempty"`
}

// QualityLevel is the overall image-quality verdict for a session.
type QualityLevel string

const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
	QualityReject QualityLevel = "reject"
)

// QualityReport is the per-session image-quality assessment. Scores are
// 0-100. Purely advisory: it never gates workflow progress.
type QualityReport struct {
	OverallLevel    QualityLevel `json:"overall_level"`
	BlurScore       float64      `json:"blur_score"`
	ContrastScore   float64      `json:"contrast_score"`
	BrightnessScore float64      `json:"brightness_score"`
	ResolutionScore float64      `json:"resolution_score"`
	Recommendations []string     `json:"recommendations,omitempty"`
}

// ValidationReport aggregates per-field validation counts. Computed by the
// extraction service; never recomputed client-side.
type ValidationReport struct {
	OverallConfidence float64 `json:"overall_confidence"`
	ValidFields       int     `json:"valid_fields"`
	SuspiciousFields  int     `json:"suspicious_fields"`
	InvalidFields     int     `json:"invalid_fields"`
}

// ExtractionResult is the normalized output of either extraction strategy.
type ExtractionResult struct {
	Data                ExtractedData              `json:"extracted_data"`
	CompletenessPercent float64                    `json:"completeness_percent"`
	Confidence          map[string]float64         `json:"confidence,omitempty"`
	FieldValidations    map[string]FieldValidation `json:"field_validations,omitempty"`
	Quality             *QualityReport             `json:"quality_report,omitempty"`
	Validation          *ValidationReport          `json:"validation_report,omitempty"`
}
