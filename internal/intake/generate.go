package intake

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/notify"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
)

// Generate produces the final document from the edited data. When
// outputFilename is empty a unique name is synthesized from the document
// type and a timestamp.
func (p *Pipeline) Generate(ctx context.Context, s *Session, outputFilename string) (*model.GenerationResult, error) {
	if s.Stage != model.StageComplete {
		return nil, eris.Errorf("intake: generate not allowed at stage %s", s.Stage)
	}
	if len(s.Edited) == 0 {
		return nil, eris.New("intake: no edited data to generate from")
	}

	if outputFilename == "" {
		outputFilename = fmt.Sprintf("%s-%s-%s.docx",
			s.DocumentType,
			time.Now().Format("20060102-150405"),
			uuid.NewString()[:8],
		)
	}

	placeholders := make([]string, 0, len(s.FieldMeta))
	for _, f := range s.FieldMeta {
		placeholders = append(placeholders, f.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel
	defer func() { s.cancelInFlight = nil }()

	resp, err := p.render.Generate(ctx, render.GenerateRequest{
		TemplateID:     s.TemplateID,
		Responses:      StringifyResponses(s.Edited),
		Placeholders:   placeholders,
		OutputFilename: outputFilename,
	})
	if err != nil {
		s.LastError = resilience.UserMessage(err)
		p.recordEvent(ctx, s, "generate_failed", s.LastError)
		return nil, eris.Wrap(err, "intake: generate")
	}

	s.Result = &model.GenerationResult{
		DocumentID:  resp.DocumentID,
		Filename:    resp.Filename,
		DownloadURL: resp.DownloadURL,
		SizeBytes:   resp.SizeBytes,
		Stats: model.GenerationStats{
			PlaceholdersReplaced: resp.Stats.PlaceholdersReplaced,
			PlaceholdersMissing:  resp.Stats.PlaceholdersMissing,
			MissingList:          resp.Stats.MissingList,
			ReplacedInBody:       resp.Stats.ReplacedInBody,
			ReplacedInTables:     resp.Stats.ReplacedInTables,
			BoldConversions:      resp.Stats.BoldConversions,
		},
	}
	s.LastError = ""

	zap.L().Info("intake: document generated",
		zap.String("run_id", s.RunID),
		zap.String("document_id", resp.DocumentID),
		zap.String("filename", resp.Filename),
	)

	if p.store != nil {
		if err := p.store.UpdateRunResult(ctx, s.RunID, s.Result); err != nil {
			zap.L().Warn("intake: failed to persist result", zap.String("run_id", s.RunID), zap.Error(err))
		}
	}
	return s.Result, nil
}

// SendEmail delivers the generated document. Delivery failure never rolls
// back generation; the result stays on the session and delivery can be
// retried by the operator.
func (p *Pipeline) SendEmail(ctx context.Context, s *Session, toEmail, subject, body string) error {
	if s.Result == nil {
		return eris.New("intake: no generated document to send")
	}

	switch {
	case p.notify != nil:
		resp, err := p.notify.SendEmail(ctx, notify.SendEmailRequest{
			DocumentID: s.Result.DocumentID,
			ToEmail:    toEmail,
			Subject:    subject,
			Body:       body,
		})
		if err != nil {
			p.recordEvent(ctx, s, "email_failed", resilience.UserMessage(err))
			return eris.Wrap(err, "intake: send email")
		}
		if !resp.Success {
			p.recordEvent(ctx, s, "email_failed", resp.Message)
			return eris.Errorf("intake: delivery rejected: %s", resp.Message)
		}
	case p.mailer != nil:
		if err := p.mailer.Send(toEmail, subject, body, s.Result.DownloadURL); err != nil {
			p.recordEvent(ctx, s, "email_failed", err.Error())
			return eris.Wrap(err, "intake: smtp delivery")
		}
	default:
		return eris.New("intake: no delivery channel configured")
	}

	p.recordEvent(ctx, s, "email_sent", toEmail)
	zap.L().Info("intake: document delivered",
		zap.String("run_id", s.RunID),
		zap.String("to", toEmail),
	)
	return nil
}

// StringifyResponses coerces edited values to the string map the renderer
// expects: nil becomes the empty string, everything else its literal form.
func StringifyResponses(data model.EditedData) map[string]string {
	out := make(map[string]string, len(data))
	for name, v := range data {
		out[name] = stringifyValue(v)
	}
	return out
}

func stringifyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}
