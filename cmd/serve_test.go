package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/config"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/fields"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/intake"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
	docaimocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/docai/mocks"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
	rendermocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/render/mocks"
)

func newTestServer(t *testing.T) (*httptest.Server, *docaimocks.MockClient, *rendermocks.MockClient) {
	t.Helper()

	docaiMock := docaimocks.NewMockClient(t)
	renderMock := rendermocks.NewMockClient(t)

	c := &config.Config{}
	c.Intake.ApprovalThresholdPercent = 90
	c.Intake.MissingDisplayCap = 10

	table, err := intake.DefaultStrategyTable()
	require.NoError(t, err)

	provider := fields.NewProvider(docaiMock, time.Minute)
	p := intake.New(c, docaiMock, renderMock, nil, nil, nil, provider, table)

	ts := httptest.NewServer(newIntakeRouter(p, c))
	t.Cleanup(ts.Close)
	return ts, docaiMock, renderMock
}

func postMultipart(t *testing.T, url string, docType, templateID string, files map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_type", docType))
	require.NoError(t, mw.WriteField("template_id", templateID))
	for key, name := range files {
		part, err := mw.CreateFormFile(key, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("scan"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/intake/sessions", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestUnknownSessionReturns404(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/intake/sessions/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateSessionRejectsMissingSelection(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postMultipart(t, ts.URL, "", "", map[string]string{"files[otros]": "acta.jpg"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "tipo de documento")
}

func TestIntakeFlowOverHTTP(t *testing.T) {
	ts, docaiMock, renderMock := newTestServer(t)

	docaiMock.On("Fields", mock.Anything, "poder").
		Return(&docai.FieldsResponse{Fields: []docai.Field{
			{Name: "otorgante", Label: "Otorgante", Category: "otros", Required: true},
		}}, nil).Once()
	docaiMock.On("UploadCategorized", mock.Anything, mock.Anything).
		Return(&docai.UploadResponse{SessionID: "sess-1", TotalFiles: 1}, nil).Once()
	docaiMock.On("ExtractVision", mock.Anything, mock.Anything).
		Return(&docai.VisionResponse{
			ExtractedData:       map[string]any{"otorgante": "NO ENCONTRADO"},
			CompletenessPercent: 0,
		}, nil).Once()

	resp := postMultipart(t, ts.URL, "poder", "tpl-9", map[string]string{"files[otros]": "acta.jpg"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	runID := decodeBody(t, resp)["run_id"].(string)
	require.NotEmpty(t, runID)

	// Extraction runs in the background; wait for the stage to flip to edit.
	var status map[string]any
	require.Eventually(t, func() bool {
		r, err := http.Get(ts.URL + "/intake/sessions/" + runID)
		if err != nil {
			return false
		}
		status = decodeBody(t, r)
		return status["stage"] == "edit"
	}, 2*time.Second, 10*time.Millisecond)

	// The required field holds the sentinel, so advancing is rejected.
	r, err := http.Post(ts.URL+"/intake/sessions/"+runID+"/advance", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, r.StatusCode)
	r.Body.Close()

	// Fill it and advance to preview.
	r, err = http.Post(ts.URL+"/intake/sessions/"+runID+"/fields", "application/json",
		strings.NewReader(`{"name":"otorgante","value":"Ana Ruiz"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, r.StatusCode)
	fieldBody := decodeBody(t, r)
	assert.Equal(t, true, fieldBody["dirty"])

	r, err = http.Post(ts.URL+"/intake/sessions/"+runID+"/advance", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "preview", decodeBody(t, r)["stage"])

	renderMock.On("Preview", mock.Anything, mock.Anything).
		Return(&render.PreviewResponse{TotalPlaceholders: 1, FilledPlaceholders: 1, FillPercentage: 100}, nil).Once()

	r, err = http.Post(ts.URL+"/intake/sessions/"+runID+"/preview", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, r.StatusCode)
	previewBody := decodeBody(t, r)
	assert.Equal(t, "approve", previewBody["approval"])

	r, err = http.Post(ts.URL+"/intake/sessions/"+runID+"/advance", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, r.StatusCode)
	r.Body.Close()

	renderMock.On("Generate", mock.Anything, mock.Anything).
		Return(&render.GenerateResponse{DocumentID: "doc-1", Filename: "poder.docx"}, nil).Once()

	r, err = http.Post(ts.URL+"/intake/sessions/"+runID+"/generate", "application/json",
		strings.NewReader(`{"output_filename":"poder.docx"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, r.StatusCode)
	genBody := decodeBody(t, r)
	result := genBody["result"].(map[string]any)
	assert.Equal(t, "doc-1", result["document_id"])
}

func TestCreateReportsUploadStageWhileExtractionRuns(t *testing.T) {
	ts, docaiMock, _ := newTestServer(t)

	docaiMock.On("Fields", mock.Anything, "poder").
		Return(&docai.FieldsResponse{Fields: []docai.Field{
			{Name: "otorgante", Label: "Otorgante", Category: "otros", Required: true},
		}}, nil).Once()
	docaiMock.On("UploadCategorized", mock.Anything, mock.Anything).
		Return(&docai.UploadResponse{SessionID: "sess-1", TotalFiles: 1}, nil).Once()

	release := make(chan struct{})
	docaiMock.On("ExtractVision", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&docai.VisionResponse{ExtractedData: map[string]any{"otorgante": "Ana Ruiz"}}, nil).Once()

	// The 202 reports the stage at creation time; the session itself now
	// belongs to the extraction goroutine.
	resp := postMultipart(t, ts.URL, "poder", "tpl-9", map[string]string{"files[otros]": "acta.jpg"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "upload", body["stage"])
	runID := body["run_id"].(string)

	close(release)
	require.Eventually(t, func() bool {
		r, err := http.Get(ts.URL + "/intake/sessions/" + runID)
		if err != nil {
			return false
		}
		return decodeBody(t, r)["stage"] == "edit"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResetCancelsInFlightExtraction(t *testing.T) {
	ts, docaiMock, _ := newTestServer(t)

	docaiMock.On("Fields", mock.Anything, "poder").
		Return(&docai.FieldsResponse{Fields: []docai.Field{
			{Name: "otorgante", Label: "Otorgante", Category: "otros", Required: true},
		}}, nil).Once()
	docaiMock.On("UploadCategorized", mock.Anything, mock.Anything).
		Return(&docai.UploadResponse{SessionID: "sess-1", TotalFiles: 1}, nil).Once()

	// The extraction blocks until its context is cancelled, standing in for
	// a slow service call.
	started := make(chan struct{})
	cancelled := make(chan struct{})
	docaiMock.On("ExtractVision", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
			close(cancelled)
		}).
		Return(nil, context.Canceled).Once()

	resp := postMultipart(t, ts.URL, "poder", "tpl-9", map[string]string{"files[otros]": "acta.jpg"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	runID := decodeBody(t, resp)["run_id"].(string)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("extraction never started")
	}

	// Reset must cancel the in-flight call and return promptly rather than
	// waiting for the extraction to finish on its own.
	begin := time.Now()
	r, err := http.Post(ts.URL+"/intake/sessions/"+runID+"/reset", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, r.StatusCode)
	assert.Less(t, time.Since(begin), time.Second)
	assert.Equal(t, "upload", decodeBody(t, r)["stage"])

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight extraction was never cancelled")
	}
}

func TestSetFieldValidation(t *testing.T) {
	ts, _, _ := newTestServer(t)

	// Unknown session first, then malformed body on a real route shape.
	r, err := http.Post(ts.URL+"/intake/sessions/nope/fields", "application/json",
		strings.NewReader(`{"value":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
	r.Body.Close()
}

func TestParseCategoryKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"files[vendedor]", "vendedor", true},
		{"files[otros]", "otros", true},
		{"files[]", "", false},
		{"files", "", false},
		{"attachments[x]", "", false},
	}
	for _, tt := range tests {
		got, ok := parseCategoryKey(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}
