package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
)

func TestPreview_ReturnsFillStatistics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/preview", r.URL.Path)

		var req PreviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tpl-9", req.TemplateID)
		assert.Equal(t, "Juan Pérez", req.Data["nombre_vendedor"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PreviewResponse{
			TotalPlaceholders:   20,
			FilledPlaceholders:  18,
			MissingPlaceholders: []string{"rfc_comprador", "precio_letra"},
			FillPercentage:      90,
			HTMLContent:         "<p>...</p>",
		})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	resp, err := client.Preview(context.Background(), PreviewRequest{
		TemplateID: "tpl-9",
		Data:       map[string]any{"nombre_vendedor": "Juan Pérez"},
		SessionID:  "sess-123",
	})

	require.NoError(t, err)
	assert.Equal(t, 20, resp.TotalPlaceholders)
	assert.Equal(t, 18, resp.FilledPlaceholders)
	assert.InDelta(t, 90, resp.FillPercentage, 1e-9)
	assert.Len(t, resp.MissingPlaceholders, 2)
}

func TestGenerate_ReturnsArtifact(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "compraventa-20240101.docx", req.OutputFilename)
		assert.Equal(t, "1250000", req.Responses["precio"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(GenerateResponse{
			DocumentID:  "doc-77",
			Filename:    "compraventa-20240101.docx",
			DownloadURL: "https://plantillas.controlnot.mx/d/doc-77",
			SizeBytes:   48211,
			Stats:       GenerateStats{PlaceholdersReplaced: 19, PlaceholdersMissing: 1, MissingList: []string{"precio_letra"}},
		})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	resp, err := client.Generate(context.Background(), GenerateRequest{
		TemplateID:     "tpl-9",
		Responses:      map[string]string{"precio": "1250000"},
		OutputFilename: "compraventa-20240101.docx",
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-77", resp.DocumentID)
	assert.Equal(t, 19, resp.Stats.PlaceholdersReplaced)
	assert.Equal(t, []string{"precio_letra"}, resp.Stats.MissingList)
}

func TestPreview_ServerErrorCarriesDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "plantilla no encontrada"})
	}))
	defer ts.Close()

	client := NewClient("k", WithBaseURL(ts.URL))
	_, err := client.Preview(context.Background(), PreviewRequest{TemplateID: "missing"})

	require.Error(t, err)
	var se *resilience.ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "plantilla no encontrada", se.Detail)
}
