package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
)

func TestPreviewFill(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StagePreview

	clients.render.On("Preview", mock.Anything, mock.MatchedBy(func(req render.PreviewRequest) bool {
		return req.TemplateID == "tpl-1" && req.SessionID == "sess-1" &&
			req.Data["vendedor_nombre"] == "Juan Pérez"
	})).Return(&render.PreviewResponse{
		TotalPlaceholders:   10,
		FilledPlaceholders:  9,
		MissingPlaceholders: []string{"precio"},
		FillPercentage:      90,
		HTMLContent:         "<p>borrador</p>",
	}, nil).Once()

	preview, err := p.PreviewFill(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 90.0, preview.FillPercentage)
	assert.Equal(t, preview, s.Preview)
	assert.Empty(t, s.LastError)
}

func TestPreviewFillFailureIsTerminal(t *testing.T) {
	p, clients := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StagePreview
	s.Preview = &model.FillPreview{FillPercentage: 50}

	clients.render.On("Preview", mock.Anything, mock.Anything).
		Return(nil, resilience.NewServerError(500, "plantilla corrupta")).Once()

	_, err := p.PreviewFill(context.Background(), s)
	require.Error(t, err)
	assert.Nil(t, s.Preview)
	assert.Contains(t, s.LastError, "plantilla corrupta")
	// The stage does not move; the operator re-enters or goes back.
	assert.Equal(t, model.StagePreview, s.Stage)
}

func TestPreviewFillStageGuard(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)

	_, err := p.PreviewFill(context.Background(), s)
	assert.Error(t, err)
}

func TestApprovalThresholdIsInclusive(t *testing.T) {
	p, _ := newTestPipeline(t)

	assert.Equal(t, ApprovalApprove, p.Approval(&model.FillPreview{FillPercentage: 100}))
	assert.Equal(t, ApprovalApprove, p.Approval(&model.FillPreview{FillPercentage: 90}))
	assert.Equal(t, ApprovalGenerateAnyway, p.Approval(&model.FillPreview{FillPercentage: 89.9}))
	assert.Equal(t, ApprovalGenerateAnyway, p.Approval(nil))
}

func TestMissingForDisplay(t *testing.T) {
	missing := make([]string, 14)
	for i := range missing {
		missing[i] = "campo"
	}
	preview := &model.FillPreview{MissingPlaceholders: missing}

	shown := MissingForDisplay(preview, 10)
	require.Len(t, shown, 11)
	assert.Equal(t, "… y 4 más", shown[10])

	// Under the cap the list passes through untouched.
	short := &model.FillPreview{MissingPlaceholders: []string{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, MissingForDisplay(short, 10))
	assert.Nil(t, MissingForDisplay(nil, 10))
}
