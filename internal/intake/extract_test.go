package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
)

// uploadedSession fabricates a session right after a successful upload.
func uploadedSession(p *Pipeline, docType string) *Session {
	s := p.NewSession()
	s.DocumentType = docType
	s.TemplateID = "tpl-1"
	s.SessionID = "sess-1"
	s.FieldMeta = testFieldMeta()
	s.Files.Add("vendedor", model.File{Name: "ine_v.jpg", Content: []byte("v")})
	s.Files.Add("comprador", model.File{Name: "ine_c.jpg", Content: []byte("c")})
	return s
}

func TestExtractVisionDirect(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := uploadedSession(p, "testamento")

	clients.docai.On("ExtractVision", mock.Anything, mock.MatchedBy(func(req docai.VisionRequest) bool {
		return req.SessionID == "sess-1" && req.DocumentType == "testamento" &&
			req.QualityLevel == "high" && req.EnableValidation
	})).Return(&docai.VisionResponse{
		ExtractedData:       map[string]any{"vendedor_nombre": "Juan Pérez", "precio": "NO ENCONTRADO"},
		CompletenessPercent: 50,
		Confidence:          map[string]float64{"vendedor_nombre": 0.95},
		FieldValidations: map[string]docai.FieldValidation{
			"vendedor_nombre": {Status: "valid"},
		},
		QualityReport:    &docai.QualityReport{OverallLevel: "high", BlurScore: 82},
		ValidationReport: &docai.ValidationReport{OverallConfidence: 0.91, ValidFields: 1},
	}, nil).Once()

	require.NoError(t, p.Extract(context.Background(), s))

	assert.Equal(t, model.StageEdit, s.Stage)
	assert.Equal(t, model.ProcessingIdle, s.Processing)
	assert.Equal(t, StrategyVisionDirect, s.Strategy)
	assert.Equal(t, "Juan Pérez", s.Extracted["vendedor_nombre"])
	assert.Equal(t, model.ValidationValid, s.FieldValidations["vendedor_nombre"].Status)
	require.NotNil(t, s.Quality)
	assert.Equal(t, model.QualityHigh, s.Quality.OverallLevel)
	require.NotNil(t, s.Validation)
	assert.Equal(t, 1, s.Validation.ValidFields)

	// Edited starts as an independent copy of the extraction.
	s.Edited["vendedor_nombre"] = "otro"
	assert.Equal(t, "Juan Pérez", s.Extracted["vendedor_nombre"])
}

func TestExtractLegacyRunsOCRThenTextExtraction(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := uploadedSession(p, "compraventa")

	clients.docai.On("ExtractOCR", mock.Anything, "sess-1").
		Return(&docai.OCRResponse{ResultsByCategory: map[string][]docai.OCRPageResult{
			"vendedor":  {{Success: true, Text: "texto vendedor"}},
			"comprador": {{Success: true, Text: "texto comprador"}},
		}}, nil).Once()
	clients.docai.On("ExtractLegacy", mock.Anything, mock.MatchedBy(func(req docai.LegacyRequest) bool {
		// The tuned profile travels with the request verbatim.
		return req.Temperature == 0.4 && req.MaxTokens == 6000 &&
			req.Text == "texto vendedor\n\ntexto comprador"
	})).Return(&docai.LegacyResponse{
		ExtractedData: map[string]any{"precio": "$2,000,000"},
		Stats:         docai.LegacyStats{FieldsFound: 1, SuccessRatePercent: 100},
	}, nil).Once()

	require.NoError(t, p.Extract(context.Background(), s))

	assert.Equal(t, StrategyLegacyOCR, s.Strategy)
	assert.Equal(t, model.StageEdit, s.Stage)
	assert.Equal(t, "$2,000,000", s.Extracted["precio"])
	clients.docai.AssertNotCalled(t, "ExtractVision", mock.Anything, mock.Anything)
}

func TestExtractVisionNeverCallsOCR(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := uploadedSession(p, "poder")

	clients.docai.On("ExtractVision", mock.Anything, mock.Anything).
		Return(&docai.VisionResponse{ExtractedData: map[string]any{"x": "y"}}, nil).Once()

	require.NoError(t, p.Extract(context.Background(), s))
	clients.docai.AssertNotCalled(t, "ExtractOCR", mock.Anything, mock.Anything)
	clients.docai.AssertNotCalled(t, "ExtractLegacy", mock.Anything, mock.Anything)
}

func TestExtractFailureReturnsToIdleAtUpload(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := uploadedSession(p, "donacion")

	clients.docai.On("ExtractVision", mock.Anything, mock.Anything).
		Return(nil, resilience.NewServerError(503, "modelo sobrecargado")).Once()

	err := p.Extract(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, model.StageUpload, s.Stage)
	assert.Equal(t, model.ProcessingIdle, s.Processing)
	assert.Nil(t, s.Extracted)
	assert.Contains(t, s.LastError, "modelo sobrecargado")
}

func TestExtractTimeoutReportsTimedOutMessage(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := uploadedSession(p, "donacion")

	clients.docai.On("ExtractVision", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).Once()

	err := p.Extract(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, model.StageUpload, s.Stage)
	assert.Equal(t, model.ProcessingIdle, s.Processing)
	assert.Equal(t, "request timed out", s.LastError)
}

func TestExtractGuards(t *testing.T) {
	p, _ := newTestPipeline(t)

	s := p.NewSession()
	assert.Error(t, p.Extract(context.Background(), s), "no uploaded session")

	s.SessionID = "sess-1"
	s.Processing = model.ProcessingOCR
	assert.Error(t, p.Extract(context.Background(), s), "already in flight")

	s.Processing = model.ProcessingIdle
	s.Stage = model.StageEdit
	assert.Error(t, p.Extract(context.Background(), s), "wrong stage")
}

func TestExtractLegacyEmptyOCRText(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := uploadedSession(p, "compraventa")

	clients.docai.On("ExtractOCR", mock.Anything, "sess-1").
		Return(&docai.OCRResponse{ResultsByCategory: map[string][]docai.OCRPageResult{
			"vendedor": {{Success: false, Text: ""}},
		}}, nil).Once()

	err := p.Extract(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, model.StageUpload, s.Stage)
	clients.docai.AssertNotCalled(t, "ExtractLegacy", mock.Anything, mock.Anything)
}

func TestConcatOCRText(t *testing.T) {
	resp := &docai.OCRResponse{ResultsByCategory: map[string][]docai.OCRPageResult{
		"vendedor":  {{Success: true, Text: "pagina 1"}, {Success: false, Text: "ruido"}, {Success: true, Text: "pagina 2"}},
		"comprador": {{Success: true, Text: "ine comprador"}},
		"zextra":    {{Success: true, Text: "anexo"}},
	}}

	got := concatOCRText(resp, []string{"vendedor", "comprador"})
	assert.Equal(t, "pagina 1\n\npagina 2\n\nine comprador\n\nanexo", got)
}
