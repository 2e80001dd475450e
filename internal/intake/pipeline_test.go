package intake

import (
	"testing"
	"time"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/config"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/fields"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	docaimocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/docai/mocks"
	notifymocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/notify/mocks"
	rendermocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/render/mocks"
)

type testClients struct {
	docai  *docaimocks.MockClient
	render *rendermocks.MockClient
	notify *notifymocks.MockClient
}

func newTestPipeline(t *testing.T) (*Pipeline, testClients) {
	t.Helper()
	clients := testClients{
		docai:  docaimocks.NewMockClient(t),
		render: rendermocks.NewMockClient(t),
		notify: notifymocks.NewMockClient(t),
	}

	cfg := &config.Config{}
	cfg.DocAI.QualityLevel = "high"
	cfg.DocAI.EnableValidation = true
	cfg.Intake.ApprovalThresholdPercent = 90
	cfg.Intake.MissingDisplayCap = 10

	table, err := DefaultStrategyTable()
	if err != nil {
		t.Fatalf("load strategy table: %v", err)
	}

	provider := fields.NewProvider(clients.docai, time.Minute)
	return New(cfg, clients.docai, clients.render, clients.notify, nil, nil, provider, table), clients
}

func testFieldMeta() []model.FieldMetadata {
	return []model.FieldMetadata{
		{Name: "vendedor_nombre", Label: "Nombre del vendedor", Category: "vendedor", Required: true},
		{Name: "comprador_nombre", Label: "Nombre del comprador", Category: "comprador", Required: true},
		{Name: "precio", Label: "Precio", Category: "otros", Required: true},
		{Name: "observaciones", Label: "Observaciones", Category: "otros", Optional: true},
	}
}

// editSession fabricates a session that already went through extraction.
func editSession(p *Pipeline) *Session {
	s := p.NewSession()
	s.DocumentType = "compraventa"
	s.TemplateID = "tpl-1"
	s.SessionID = "sess-1"
	s.FieldMeta = testFieldMeta()
	s.Extracted = model.ExtractedData{
		"vendedor_nombre":  "Juan Pérez",
		"comprador_nombre": "María López",
		"precio":           "NO ENCONTRADO",
		"observaciones":    nil,
	}
	s.Edited = s.Extracted.Clone()
	s.Stage = model.StageEdit
	return s
}
