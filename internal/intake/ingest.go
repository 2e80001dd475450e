package intake

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
)

// Upload transmits the session's categorized files and obtains the server
// session handle. Preconditions are checked before any network call; on
// failure no partial session is retained and the workflow stays at upload.
func (p *Pipeline) Upload(ctx context.Context, s *Session) error {
	if s.Stage != model.StageUpload {
		return eris.Errorf("intake: upload not allowed at stage %s", s.Stage)
	}

	var missing []string
	if s.DocumentType == "" {
		missing = append(missing, "tipo de documento")
	}
	if s.TemplateID == "" {
		missing = append(missing, "plantilla")
	}
	if s.Files.Total() == 0 {
		missing = append(missing, "archivos")
	}
	if len(missing) > 0 {
		err := resilience.NewPrecondition(missing...)
		s.LastError = resilience.UserMessage(err)
		return eris.Wrap(err, "intake: upload")
	}

	// Field metadata is needed from the edit stage on; fetch it up front so
	// a metadata failure surfaces before the large payload is sent.
	meta, err := p.fields.Get(ctx, s.DocumentType)
	if err != nil {
		s.LastError = resilience.UserMessage(err)
		return eris.Wrap(err, "intake: fetch field metadata")
	}

	req := docai.UploadRequest{
		DocumentType:    s.DocumentType,
		TemplateID:      s.TemplateID,
		Categories:      s.Files.Categories(),
		FilesByCategory: make(map[string][]docai.UploadFile, len(s.Files.Categories())),
	}
	for _, category := range s.Files.Categories() {
		for _, f := range s.Files.Files(category) {
			req.FilesByCategory[category] = append(req.FilesByCategory[category], docai.UploadFile{
				Name:        f.Name,
				ContentType: f.ContentType,
				Content:     f.Content,
			})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel
	defer func() { s.cancelInFlight = nil }()

	resp, err := p.docai.UploadCategorized(ctx, req)
	if err != nil {
		s.SessionID = ""
		s.LastError = resilience.UserMessage(err)
		return eris.Wrap(err, "intake: upload")
	}

	s.SessionID = resp.SessionID
	s.FieldMeta = meta
	s.LastError = ""

	zap.L().Info("intake: upload complete",
		zap.String("run_id", s.RunID),
		zap.String("session_id", s.SessionID),
		zap.Int("total_files", resp.TotalFiles),
	)

	if p.store != nil {
		if err := p.store.CreateRun(ctx, &model.IntakeRun{
			ID:           s.RunID,
			SessionID:    s.SessionID,
			DocumentType: s.DocumentType,
			TemplateID:   s.TemplateID,
			Stage:        s.Stage,
			Status:       model.RunStatusActive,
		}); err != nil {
			zap.L().Warn("intake: failed to persist run", zap.String("run_id", s.RunID), zap.Error(err))
		}
	}
	return nil
}
