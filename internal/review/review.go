// Package review turns server-reported confidence scores, validation
// statuses and image-quality reports into operator-facing signals. It is
// purely presentational: nothing here ever changes extracted values or
// gates workflow progress.
package review

import (
	"fmt"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

// ConfidenceBucket is a four-way color-coding category for a per-field
// confidence score.
type ConfidenceBucket string

const (
	ConfidenceHigh       ConfidenceBucket = "high"
	ConfidenceMediumHigh ConfidenceBucket = "medium-high"
	ConfidenceMediumLow  ConfidenceBucket = "medium-low"
	ConfidenceLow        ConfidenceBucket = "low"
)

// BucketConfidence maps a [0,1] confidence score to its display bucket.
func BucketConfidence(score float64) ConfidenceBucket {
	switch {
	case score >= 0.9:
		return ConfidenceHigh
	case score >= 0.7:
		return ConfidenceMediumHigh
	case score >= 0.5:
		return ConfidenceMediumLow
	default:
		return ConfidenceLow
	}
}

// Color is the four-way scale used for quality scores.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
)

// QualityColor maps a 0-100 quality score to its display color.
func QualityColor(score float64) Color {
	switch {
	case score >= 80:
		return ColorGreen
	case score >= 60:
		return ColorYellow
	case score >= 40:
		return ColorOrange
	default:
		return ColorRed
	}
}

// FieldSignal is the rendered annotation for one field.
type FieldSignal struct {
	Field            string                 `json:"field"`
	ConfidenceBucket ConfidenceBucket       `json:"confidence_bucket,omitempty"`
	Validation       *model.FieldValidation `json:"validation,omitempty"`
}

// FieldSignals merges confidence buckets and validation verdicts into the
// per-field annotations the editor displays. Fields whose validation status
// is the not_validated sentinel carry no validation annotation.
func FieldSignals(confidence map[string]float64, validations map[string]model.FieldValidation) map[string]FieldSignal {
	signals := make(map[string]FieldSignal, len(confidence)+len(validations))
	for name, score := range confidence {
		s := signals[name]
		s.Field = name
		s.ConfidenceBucket = BucketConfidence(score)
		signals[name] = s
	}
	for name, v := range validations {
		if v.Status == model.ValidationNotValidated {
			continue
		}
		s := signals[name]
		s.Field = name
		s.Validation = &v
		signals[name] = s
	}
	return signals
}

// ValidationSummary is the rendered aggregate over a ValidationReport.
type ValidationSummary struct {
	OverallConfidence float64 `json:"overall_confidence"`
	ValidFields       int     `json:"valid_fields"`
	SuspiciousFields  int     `json:"suspicious_fields"`
	InvalidFields     int     `json:"invalid_fields"`
	Recommendation    string  `json:"recommendation,omitempty"`
}

// SummarizeValidation renders the service-computed aggregate counts and
// derives a review recommendation when any field needs attention. Counts
// are never recomputed client-side.
func SummarizeValidation(report *model.ValidationReport) *ValidationSummary {
	if report == nil {
		return nil
	}
	s := &ValidationSummary{
		OverallConfidence: report.OverallConfidence,
		ValidFields:       report.ValidFields,
		SuspiciousFields:  report.SuspiciousFields,
		InvalidFields:     report.InvalidFields,
	}
	if report.SuspiciousFields+report.InvalidFields > 0 {
		s.Recommendation = fmt.Sprintf(
			"revise los %d campos marcados en amarillo o rojo antes de continuar",
			report.SuspiciousFields+report.InvalidFields,
		)
	}
	return s
}

// QualitySummary is the rendered per-session image-quality report.
type QualitySummary struct {
	OverallLevel    model.QualityLevel `json:"overall_level"`
	BlurColor       Color              `json:"blur_color"`
	ContrastColor   Color              `json:"contrast_color"`
	BrightnessColor Color              `json:"brightness_color"`
	ResolutionColor Color              `json:"resolution_color"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// SummarizeQuality maps a QualityReport's scores onto the color scale.
func SummarizeQuality(report *model.QualityReport) *QualitySummary {
	if report == nil {
		return nil
	}
	return &QualitySummary{
		OverallLevel:    report.OverallLevel,
		BlurColor:       QualityColor(report.BlurScore),
		ContrastColor:   QualityColor(report.ContrastScore),
		BrightnessColor: QualityColor(report.BrightnessScore),
		ResolutionColor: QualityColor(report.ResolutionScore),
		Recommendations: report.Recommendations,
	}
}
