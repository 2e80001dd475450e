package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

func TestCanAdvanceFromUpload(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := p.NewSession()

	ok, reason := p.CanAdvance(s)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	s.Extracted = model.ExtractedData{"x": "y"}
	ok, _ = p.CanAdvance(s)
	assert.True(t, ok)
}

func TestEditGateRequiresAllRequiredFields(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)

	// precio still holds the sentinel.
	ok, reason := p.CanAdvance(s)
	assert.False(t, ok)
	assert.Contains(t, reason, "obligatorios")
	require.Error(t, p.Advance(context.Background(), s))
	assert.Equal(t, model.StageEdit, s.Stage)

	// Filling the last required field flips the gate. The optional field
	// stays empty and does not block.
	require.NoError(t, s.SetField("precio", "$1,500,000"))
	ok, _ = p.CanAdvance(s)
	assert.True(t, ok)
	require.NoError(t, p.Advance(context.Background(), s))
	assert.Equal(t, model.StagePreview, s.Stage)
}

func TestAdvanceFromPreviewAlwaysAllowed(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StagePreview
	s.Preview = &model.FillPreview{FillPercentage: 40}

	require.NoError(t, p.Advance(context.Background(), s))
	assert.Equal(t, model.StageComplete, s.Stage)
}

func TestAdvanceFromCompleteRejected(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StageComplete

	assert.Error(t, p.Advance(context.Background(), s))
}

func TestBackMovesOneStage(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StagePreview

	require.NoError(t, p.Back(context.Background(), s))
	assert.Equal(t, model.StageEdit, s.Stage)

	require.NoError(t, p.Back(context.Background(), s))
	assert.Equal(t, model.StageUpload, s.Stage)

	assert.Error(t, p.Back(context.Background(), s))
}

func TestBackCancelsInFlightWork(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StagePreview

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelInFlight = cancel

	require.NoError(t, p.Back(context.Background(), s))
	assert.Error(t, ctx.Err())
}

func TestResetFromCompleteRequiresConfirmation(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)
	s.Stage = model.StageComplete
	s.Result = &model.GenerationResult{DocumentID: "doc-1"}

	require.Error(t, p.Reset(context.Background(), s, false))
	assert.Equal(t, model.StageComplete, s.Stage)
	assert.NotNil(t, s.Result)

	require.NoError(t, p.Reset(context.Background(), s, true))
	assert.Equal(t, model.StageUpload, s.Stage)
	assert.Nil(t, s.Result)
	assert.Nil(t, s.Extracted)
	assert.Empty(t, s.SessionID)
	assert.Empty(t, s.DocumentType)
	assert.Equal(t, 0, s.Files.Total())
}

func TestResetFromEarlierStageNeedsNoConfirmation(t *testing.T) {
	p, _ := newTestPipeline(t)
	s := editSession(p)

	require.NoError(t, p.Reset(context.Background(), s, false))
	assert.Equal(t, model.StageUpload, s.Stage)
}
