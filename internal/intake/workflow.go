package intake

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

// CanAdvance reports whether the session may move to the next stage, and if
// not, why. It is the single gate the UI consults to enable the continue
// control.
func (p *Pipeline) CanAdvance(s *Session) (bool, string) {
	switch s.Stage {
	case model.StageUpload:
		if s.Extracted == nil {
			return false, "la extracción no ha terminado"
		}
		return true, ""
	case model.StageEdit:
		stats := s.Completion()
		if stats.RequiredFilled < stats.RequiredTotal {
			return false, "faltan campos obligatorios por completar"
		}
		return true, ""
	case model.StagePreview:
		// Approval is always available; low fill only changes the wording.
		return true, ""
	default:
		return false, "el trámite ya está completo"
	}
}

// Advance moves the session to the next stage. The upload->edit transition
// is normally driven by Extract itself; calling Advance from upload only
// succeeds once extraction has completed. The edit->preview gate is strict:
// every required field must pass the filled predicate.
func (p *Pipeline) Advance(ctx context.Context, s *Session) error {
	ok, reason := p.CanAdvance(s)
	if !ok {
		return eris.Errorf("intake: cannot advance from %s: %s", s.Stage, reason)
	}

	from := s.Stage
	s.Stage = s.Stage.Next()

	if from == model.StagePreview && s.Preview != nil && s.Preview.FillPercentage < 100 {
		zap.L().Warn("intake: approved with incomplete fill",
			zap.String("run_id", s.RunID),
			zap.Float64("fill_percentage", s.Preview.FillPercentage),
		)
	}

	zap.L().Info("intake: stage advanced",
		zap.String("run_id", s.RunID),
		zap.String("from", string(from)),
		zap.String("to", string(s.Stage)),
	)
	p.recordStage(ctx, s)
	p.recordEvent(ctx, s, "advance", string(from)+"->"+string(s.Stage))
	return nil
}

// Back moves the session to the previous, adjacent stage. Leaving a stage
// cancels its in-flight work. complete->upload is forbidden; only Reset can
// reach upload from the terminal stage.
func (p *Pipeline) Back(ctx context.Context, s *Session) error {
	if s.Stage == model.StageUpload {
		return eris.New("intake: already at the first stage")
	}

	s.CancelInFlight()
	from := s.Stage
	s.Stage = s.Stage.Prev()

	zap.L().Info("intake: stage reverted",
		zap.String("run_id", s.RunID),
		zap.String("from", string(from)),
		zap.String("to", string(s.Stage)),
	)
	p.recordStage(ctx, s)
	p.recordEvent(ctx, s, "back", string(from)+"->"+string(s.Stage))
	return nil
}

// Reset discards the session's data and returns it to the upload stage.
// From the terminal stage this requires explicit confirmation, since it
// throws away a finished document's working data.
func (p *Pipeline) Reset(ctx context.Context, s *Session, confirmed bool) error {
	if s.Stage == model.StageComplete && !confirmed {
		return eris.New("intake: resetting a completed session requires confirmation")
	}

	s.clear(false)
	zap.L().Info("intake: session reset", zap.String("run_id", s.RunID))
	p.recordStage(ctx, s)
	p.recordEvent(ctx, s, "reset", "")
	return nil
}
