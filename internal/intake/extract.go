package intake

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
)

// Extract runs the extraction strategy for the session's document type and,
// on success, seeds the editor and advances the workflow to edit. At most
// one extraction is in flight per session; a second call while one is
// running is rejected. Any failure returns the session to idle and keeps
// the workflow at upload.
func (p *Pipeline) Extract(ctx context.Context, s *Session) error {
	if s.Stage != model.StageUpload {
		return eris.Errorf("intake: extract not allowed at stage %s", s.Stage)
	}
	if s.SessionID == "" {
		return eris.New("intake: no uploaded session to extract")
	}
	if s.Processing != model.ProcessingIdle {
		return eris.New("intake: extraction already in flight")
	}

	profile := p.strategies.Resolve(s.DocumentType)
	s.Strategy = profile.Strategy

	ctx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel
	defer func() { s.cancelInFlight = nil }()

	log := zap.L().With(
		zap.String("run_id", s.RunID),
		zap.String("session_id", s.SessionID),
		zap.String("strategy", string(profile.Strategy)),
	)
	log.Info("intake: extraction started")

	var (
		result *model.ExtractionResult
		err    error
	)
	switch profile.Strategy {
	case StrategyLegacyOCR:
		result, err = p.extractLegacy(ctx, s, profile)
	default:
		result, err = p.extractVision(ctx, s)
	}

	s.Processing = model.ProcessingIdle
	if err != nil {
		s.LastError = resilience.UserMessage(err)
		p.recordEvent(ctx, s, "extract_failed", s.LastError)
		log.Error("intake: extraction failed", zap.Error(err))
		return err
	}

	s.Extracted = result.Data
	s.Edited = result.Data.Clone()
	s.Confidence = result.Confidence
	s.FieldValidations = result.FieldValidations
	s.Quality = result.Quality
	s.Validation = result.Validation
	s.LastError = ""

	// Extraction completion is what drives upload->edit, not a manual
	// advance.
	s.Stage = model.StageEdit
	p.recordStage(ctx, s)
	p.recordEvent(ctx, s, "extracted", string(profile.Strategy))

	log.Info("intake: extraction complete",
		zap.Int("fields", len(result.Data)),
		zap.Float64("completeness", result.CompletenessPercent),
	)
	return nil
}

func (p *Pipeline) extractVision(ctx context.Context, s *Session) (*model.ExtractionResult, error) {
	s.Processing = model.ProcessingAI

	resp, err := p.docai.ExtractVision(ctx, docai.VisionRequest{
		SessionID:        s.SessionID,
		DocumentType:     s.DocumentType,
		QualityLevel:     p.cfg.DocAI.QualityLevel,
		EnableValidation: p.cfg.DocAI.EnableValidation,
	})
	if err != nil {
		return nil, eris.Wrap(err, "intake: vision extraction")
	}

	result := &model.ExtractionResult{
		Data:                model.ExtractedData(resp.ExtractedData),
		CompletenessPercent: resp.CompletenessPercent,
		Confidence:          resp.Confidence,
	}
	if len(resp.FieldValidations) > 0 {
		result.FieldValidations = make(map[string]model.FieldValidation, len(resp.FieldValidations))
		for name, v := range resp.FieldValidations {
			result.FieldValidations[name] = model.FieldValidation{
				Status: model.ValidationStatus(v.Status),
				Issues: v.Issues,
			}
		}
	}
	if q := resp.QualityReport; q != nil {
		result.Quality = &model.QualityReport{
			OverallLevel:    model.QualityLevel(q.OverallLevel),
			BlurScore:       q.BlurScore,
			ContrastScore:   q.ContrastScore,
			BrightnessScore: q.BrightnessScore,
			ResolutionScore: q.ResolutionScore,
			Recommendations: q.Recommendations,
		}
	}
	if v := resp.ValidationReport; v != nil {
		result.Validation = &model.ValidationReport{
			OverallConfidence: v.OverallConfidence,
			ValidFields:       v.ValidFields,
			SuspiciousFields:  v.SuspiciousFields,
			InvalidFields:     v.InvalidFields,
		}
	}
	return result, nil
}

func (p *Pipeline) extractLegacy(ctx context.Context, s *Session, profile Profile) (*model.ExtractionResult, error) {
	s.Processing = model.ProcessingOCR

	ocrResp, err := p.docai.ExtractOCR(ctx, s.SessionID)
	if err != nil {
		return nil, eris.Wrap(err, "intake: ocr pass")
	}

	text := concatOCRText(ocrResp, s.Files.Categories())
	if text == "" {
		return nil, eris.New("intake: ocr produced no usable text")
	}

	s.Processing = model.ProcessingAI

	legacyResp, err := p.docai.ExtractLegacy(ctx, docai.LegacyRequest{
		Text:        text,
		Temperature: profile.Temperature,
		MaxTokens:   profile.MaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "intake: legacy extraction")
	}

	return &model.ExtractionResult{
		Data:                model.ExtractedData(legacyResp.ExtractedData),
		CompletenessPercent: legacyResp.Stats.SuccessRatePercent,
	}, nil
}

// concatOCRText joins per-image OCR outputs per category in array order,
// discarding failed pages. Categories follow the upload bucket order; any
// category the service returned beyond those is appended in sorted order so
// no text is silently dropped.
func concatOCRText(resp *docai.OCRResponse, categoryOrder []string) string {
	seen := make(map[string]bool, len(categoryOrder))
	order := make([]string, 0, len(resp.ResultsByCategory))
	for _, c := range categoryOrder {
		if _, ok := resp.ResultsByCategory[c]; ok {
			order = append(order, c)
			seen[c] = true
		}
	}
	var rest []string
	for c := range resp.ResultsByCategory {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var sb strings.Builder
	for _, category := range order {
		for _, page := range resp.ResultsByCategory[category] {
			if !page.Success || page.Text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(page.Text)
		}
	}
	return sb.String()
}
