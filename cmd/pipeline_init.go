package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/fields"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/intake"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/mailer"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/store"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/notify"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
)

// pipelineEnv holds the initialized store, clients, and pipeline shared by
// the run/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *intake.Pipeline
	Fields   *fields.Provider
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "controlnot.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, the service clients, and the intake
// pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	docaiOpts := []docai.Option{
		docai.WithTimeouts(docai.Timeouts{
			Upload: time.Duration(cfg.DocAI.UploadTimeoutSecs) * time.Second,
			OCR:    time.Duration(cfg.DocAI.OCRTimeoutSecs) * time.Second,
			Legacy: time.Duration(cfg.DocAI.LegacyTimeoutSecs) * time.Second,
			Vision: time.Duration(cfg.DocAI.VisionTimeoutSecs) * time.Second,
		}),
	}
	if cfg.DocAI.BaseURL != "" {
		docaiOpts = append(docaiOpts, docai.WithBaseURL(cfg.DocAI.BaseURL))
	}
	if cfg.DocAI.RequestsPerSecond > 0 {
		docaiOpts = append(docaiOpts, docai.WithLimiter(rate.NewLimiter(rate.Limit(cfg.DocAI.RequestsPerSecond), 1)))
	}
	docaiClient := docai.NewClient(cfg.DocAI.Key, docaiOpts...)

	renderOpts := []render.Option{}
	if cfg.Render.BaseURL != "" {
		renderOpts = append(renderOpts, render.WithBaseURL(cfg.Render.BaseURL))
	}
	renderClient := render.NewClient(cfg.Render.Key, renderOpts...)

	// The remote delivery endpoint is optional; SMTP takes over when it is
	// absent, and sending fails cleanly when neither is configured.
	var notifyClient notify.Client
	if cfg.Notify.BaseURL != "" {
		notifyClient = notify.NewClient(cfg.Notify.Key, notify.WithBaseURL(cfg.Notify.BaseURL))
		zap.L().Info("delivery endpoint enabled")
	}

	var smtp intake.Mailer
	if m := mailer.New(cfg.SMTP); m != nil {
		smtp = m
		zap.L().Info("smtp delivery enabled", zap.String("host", cfg.SMTP.Host))
	}

	table, err := loadStrategyTable()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	provider := fields.NewProvider(docaiClient, time.Duration(cfg.Fields.CacheTTLMins)*time.Minute)

	p := intake.New(cfg, docaiClient, renderClient, notifyClient, smtp, st, provider, table)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Fields:   provider,
	}, nil
}

func loadStrategyTable() (*intake.StrategyTable, error) {
	if cfg.DocAI.StrategyTablePath != "" {
		table, err := intake.LoadStrategyTable(cfg.DocAI.StrategyTablePath)
		if err != nil {
			return nil, eris.Wrap(err, "load strategy table")
		}
		zap.L().Info("strategy table loaded", zap.String("path", cfg.DocAI.StrategyTablePath))
		return table, nil
	}
	return intake.DefaultStrategyTable()
}
