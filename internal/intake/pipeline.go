package intake

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/config"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/fields"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/store"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/notify"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
)

// Mailer delivers a generated document directly, used when no remote
// delivery endpoint is configured.
type Mailer interface {
	Send(to, subject, body, downloadURL string) error
}

// Pipeline orchestrates the intake workflow against the extraction and
// rendering services. It owns no global state; each workflow lives in a
// Session the caller holds.
type Pipeline struct {
	cfg        *config.Config
	docai      docai.Client
	render     render.Client
	notify     notify.Client
	mailer     Mailer
	store      store.Store
	fields     *fields.Provider
	strategies *StrategyTable
}

// New creates a Pipeline. notifyClient, mailer and st may be nil; delivery
// and the audit trail degrade gracefully without them.
func New(
	cfg *config.Config,
	docaiClient docai.Client,
	renderClient render.Client,
	notifyClient notify.Client,
	mailer Mailer,
	st store.Store,
	fieldProvider *fields.Provider,
	strategies *StrategyTable,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		docai:      docaiClient,
		render:     renderClient,
		notify:     notifyClient,
		mailer:     mailer,
		store:      st,
		fields:     fieldProvider,
		strategies: strategies,
	}
}

// NewSession creates a blank session at the upload stage.
func (p *Pipeline) NewSession() *Session {
	return &Session{
		RunID:      uuid.NewString(),
		Files:      model.NewCategorizedFileSet(),
		Stage:      model.StageUpload,
		Processing: model.ProcessingIdle,
	}
}

// Strategies exposes the resolved strategy table (read-only use).
func (p *Pipeline) Strategies() *StrategyTable {
	return p.strategies
}

func (p *Pipeline) recordStage(ctx context.Context, s *Session) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateRunStage(ctx, s.RunID, s.Stage, s.Completion().RequiredPercent); err != nil {
		zap.L().Warn("intake: failed to persist stage",
			zap.String("run_id", s.RunID),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) recordEvent(ctx context.Context, s *Session, kind, detail string) {
	if p.store == nil {
		return
	}
	if err := p.store.RecordEvent(ctx, s.RunID, kind, detail); err != nil {
		zap.L().Warn("intake: failed to persist event",
			zap.String("run_id", s.RunID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
