// Package render provides a client for the template-rendering service:
// placeholder fill preview and final document generation.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
)

// Client defines the template-rendering operations.
type Client interface {
	// Preview substitutes data into the template and reports fill statistics
	// without producing the final artifact.
	Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error)
	// Generate produces the final document from the template and responses.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// PreviewRequest asks the renderer to trial-fill a template.
type PreviewRequest struct {
	TemplateID string         `json:"templateId"`
	Data       map[string]any `json:"data"`
	SessionID  string         `json:"sessionId,omitempty"`
}

// PreviewResponse reports fill statistics for a trial substitution.
type PreviewResponse struct {
	TotalPlaceholders   int      `json:"total_placeholders"`
	FilledPlaceholders  int      `json:"filled_placeholders"`
	MissingPlaceholders []string `json:"missing_placeholders,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
	FillPercentage      float64  `json:"fill_percentage"`
	HTMLContent         string   `json:"htmlContent,omitempty"`
}

// GenerateRequest asks the renderer to produce the final document.
type GenerateRequest struct {
	TemplateID     string            `json:"templateId"`
	Responses      map[string]string `json:"responses"`
	Placeholders   []string          `json:"placeholders,omitempty"`
	OutputFilename string            `json:"outputFilename"`
}

// GenerateStats details what the renderer substituted.
type GenerateStats struct {
	PlaceholdersReplaced int      `json:"placeholders_replaced"`
	PlaceholdersMissing  int      `json:"placeholders_missing"`
	MissingList          []string `json:"missing_list,omitempty"`
	ReplacedInBody       int      `json:"replaced_in_body"`
	ReplacedInTables     int      `json:"replaced_in_tables"`
	BoldConversions      int      `json:"bold_conversions"`
}

// GenerateResponse is the parsed generate response.
type GenerateResponse struct {
	DocumentID  string        `json:"documentId"`
	Filename    string        `json:"filename"`
	DownloadURL string        `json:"downloadUrl"`
	SizeBytes   int64         `json:"sizeBytes"`
	Stats       GenerateStats `json:"stats"`
}

// Option configures the render client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a template-rendering client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://plantillas.controlnot.mx/api/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "render: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "render: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "render: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "render: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ed struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &ed)
		return eris.Wrap(resilience.NewServerError(resp.StatusCode, ed.Detail), "render: request rejected")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "render: unmarshal response")
	}
	return nil
}

func (c *httpClient) Preview(ctx context.Context, r PreviewRequest) (*PreviewResponse, error) {
	var out PreviewResponse
	if err := c.post(ctx, "/preview", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Generate(ctx context.Context, r GenerateRequest) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := c.post(ctx, "/generate", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
