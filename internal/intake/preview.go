package intake

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
)

// ApprovalAction is how the approval control should be framed. Generation
// is never blocked on fill percentage; only the wording changes.
type ApprovalAction string

const (
	ApprovalApprove        ApprovalAction = "approve"
	ApprovalGenerateAnyway ApprovalAction = "generate_anyway"
)

// PreviewFill asks the renderer to trial-fill the template with the edited
// data. A failure is terminal for the preview step: the operator re-enters
// the stage or navigates back, there is no retry loop.
func (p *Pipeline) PreviewFill(ctx context.Context, s *Session) (*model.FillPreview, error) {
	if s.Stage != model.StagePreview {
		return nil, eris.Errorf("intake: preview not allowed at stage %s", s.Stage)
	}
	if len(s.Edited) == 0 {
		return nil, eris.New("intake: no edited data to preview")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel
	defer func() { s.cancelInFlight = nil }()

	resp, err := p.render.Preview(ctx, render.PreviewRequest{
		TemplateID: s.TemplateID,
		Data:       map[string]any(s.Edited),
		SessionID:  s.SessionID,
	})
	if err != nil {
		s.Preview = nil
		s.LastError = resilience.UserMessage(err)
		p.recordEvent(ctx, s, "preview_failed", s.LastError)
		return nil, eris.Wrap(err, "intake: preview")
	}

	s.Preview = &model.FillPreview{
		TotalPlaceholders:   resp.TotalPlaceholders,
		FilledPlaceholders:  resp.FilledPlaceholders,
		MissingPlaceholders: resp.MissingPlaceholders,
		Warnings:            resp.Warnings,
		FillPercentage:      resp.FillPercentage,
		HTMLContent:         resp.HTMLContent,
	}
	s.LastError = ""

	zap.L().Info("intake: preview computed",
		zap.String("run_id", s.RunID),
		zap.Float64("fill_percentage", resp.FillPercentage),
		zap.Int("missing", len(resp.MissingPlaceholders)),
	)
	return s.Preview, nil
}

// Approval returns how the approval control should be framed for a preview.
func (p *Pipeline) Approval(preview *model.FillPreview) ApprovalAction {
	if preview != nil && preview.FillPercentage >= p.cfg.Intake.ApprovalThresholdPercent {
		return ApprovalApprove
	}
	return ApprovalGenerateAnyway
}

// MissingForDisplay truncates the missing-placeholder list for the UI,
// summarizing the remainder as a count. The full list stays in the
// FillPreview value.
func MissingForDisplay(preview *model.FillPreview, cap int) []string {
	if preview == nil || len(preview.MissingPlaceholders) == 0 {
		return nil
	}
	if cap <= 0 || len(preview.MissingPlaceholders) <= cap {
		return preview.MissingPlaceholders
	}
	shown := make([]string, cap, cap+1)
	copy(shown, preview.MissingPlaceholders[:cap])
	shown = append(shown, fmt.Sprintf("… y %d más", len(preview.MissingPlaceholders)-cap))
	return shown
}
