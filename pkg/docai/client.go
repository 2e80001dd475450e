// Package docai provides a client for the document-AI extraction service:
// categorized upload, vision extraction, OCR, legacy text extraction, and
// field metadata.
package docai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/resilience"
)

// Client defines the extraction-service operations.
type Client interface {
	// UploadCategorized uploads the session's files grouped by category and
	// returns the server-side session handle.
	UploadCategorized(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	// ExtractVision runs the vision-direct extraction over a session's images.
	ExtractVision(ctx context.Context, req VisionRequest) (*VisionResponse, error)
	// ExtractOCR runs the per-image OCR pass over a session.
	ExtractOCR(ctx context.Context, sessionID string) (*OCRResponse, error)
	// ExtractLegacy runs the text-only extraction over concatenated OCR text
	// using a fixed model-parameter profile.
	ExtractLegacy(ctx context.Context, req LegacyRequest) (*LegacyResponse, error)
	// Fields returns the field metadata for a document type.
	Fields(ctx context.Context, documentType string) (*FieldsResponse, error)
}

// UploadFile is one file in an upload request.
type UploadFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// UploadRequest carries the categorized files for one session.
type UploadRequest struct {
	DocumentType string
	TemplateID   string
	// Categories preserves bucket order; FilesByCategory holds the files.
	Categories      []string
	FilesByCategory map[string][]UploadFile
}

// UploadResponse is the parsed upload-categorized response.
type UploadResponse struct {
	SessionID        string         `json:"sessionId"`
	DocumentType     string         `json:"documentType"`
	CategorizedFiles map[string]int `json:"categorizedFiles"`
	TotalFiles       int            `json:"totalFiles"`
}

// VisionRequest configures a vision-direct extraction call.
type VisionRequest struct {
	SessionID        string   `json:"sessionId"`
	DocumentType     string   `json:"documentType"`
	QualityLevel     string   `json:"qualityLevel,omitempty"`
	DocumentHints    []string `json:"documentHints,omitempty"`
	EnableValidation bool     `json:"enableValidation"`
}

// FieldValidation is the per-field plausibility verdict.
type FieldValidation struct {
	Status string   `json:"status"`
	Issues []string `json:"issues,omitempty"`
}

// QualityReport is the per-session image-quality assessment.
type QualityReport struct {
	OverallLevel    string   `json:"overall_level"`
	BlurScore       float64  `json:"blur_score"`
	ContrastScore   float64  `json:"contrast_score"`
	BrightnessScore float64  `json:"brightness_score"`
	ResolutionScore float64  `json:"resolution_score"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ValidationReport aggregates per-field validation counts.
type ValidationReport struct {
	OverallConfidence float64 `json:"overall_confidence"`
	ValidFields       int     `json:"valid_fields"`
	SuspiciousFields  int     `json:"suspicious_fields"`
	InvalidFields     int     `json:"invalid_fields"`
}

// VisionResponse is the parsed extract-vision response.
type VisionResponse struct {
	ExtractedData       map[string]any             `json:"extractedData"`
	CompletenessPercent float64                    `json:"completenessPercent"`
	Confidence          map[string]float64         `json:"confidence,omitempty"`
	FieldValidations    map[string]FieldValidation `json:"fieldValidations,omitempty"`
	QualityReport       *QualityReport             `json:"qualityReport,omitempty"`
	ValidationReport    *ValidationReport          `json:"validationReport,omitempty"`
}

// OCRPageResult is the OCR outcome for one uploaded image.
type OCRPageResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// OCRResponse is the parsed extract-ocr response.
type OCRResponse struct {
	ResultsByCategory map[string][]OCRPageResult `json:"resultsByCategory"`
	ExtractedText     string                     `json:"extractedText"`
}

// LegacyRequest carries concatenated OCR text plus the fixed model-parameter
// profile for the legacy extraction call.
type LegacyRequest struct {
	Text        string  `json:"text"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// LegacyStats reports legacy extraction coverage.
type LegacyStats struct {
	FieldsFound        int     `json:"fieldsFound"`
	SuccessRatePercent float64 `json:"successRatePercent"`
}

// LegacyResponse is the parsed extract-legacy response.
type LegacyResponse struct {
	ExtractedData map[string]any `json:"extractedData"`
	Stats         LegacyStats    `json:"stats"`
}

// Field describes one field a document type needs.
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Required bool   `json:"required"`
	Optional bool   `json:"optional"`
	Type     string `json:"type"`
	HelpText string `json:"help_text,omitempty"`
}

// FieldsResponse is the parsed fields response.
type FieldsResponse struct {
	Fields      []Field  `json:"fields"`
	Categories  []string `json:"categories"`
	TotalFields int      `json:"totalFields"`
}

// Timeouts holds the per-operation call deadlines.
type Timeouts struct {
	Upload time.Duration
	OCR    time.Duration
	Legacy time.Duration
	Vision time.Duration
}

// DefaultTimeouts mirrors the service contract: uploads carry large
// payloads, OCR and extraction run over variable image counts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Upload: 60 * time.Second,
		OCR:    120 * time.Second,
		Legacy: 180 * time.Second,
		Vision: 300 * time.Second,
	}
}

// Option configures the docai client.
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

// WithTimeouts overrides the per-operation deadlines.
func WithTimeouts(t Timeouts) Option {
	return func(c *httpClient) {
		c.timeouts = t
	}
}

// WithLimiter sets a client-side rate limiter for extraction calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	timeouts Timeouts
	limiter  *rate.Limiter
}

// NewClient creates an extraction-service client. The underlying HTTP client
// carries no global timeout; deadlines are set per call because they differ
// by an order of magnitude between operations.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://docai.controlnot.mx/api/v1",
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorDetail is the error envelope the service returns on 4xx/5xx.
type errorDetail struct {
	Detail string `json:"detail"`
}

// do executes one request and decodes into out. No retries: the pipeline
// surfaces failures to the operator instead of retrying behind their back.
func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "docai: rate limit wait")
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "docai: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "docai: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ed errorDetail
		_ = json.Unmarshal(body, &ed)
		return eris.Wrap(resilience.NewServerError(resp.StatusCode, ed.Detail), "docai: request rejected")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "docai: unmarshal response")
	}
	return nil
}

func (c *httpClient) postJSON(ctx context.Context, path string, timeout time.Duration, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "docai: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "docai: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, req, out)
}

func (c *httpClient) UploadCategorized(ctx context.Context, r UploadRequest) (*UploadResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Upload)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("documentType", r.DocumentType); err != nil {
		return nil, eris.Wrap(err, "docai: write documentType field")
	}
	if err := mw.WriteField("templateId", r.TemplateID); err != nil {
		return nil, eris.Wrap(err, "docai: write templateId field")
	}
	for _, category := range r.Categories {
		for _, f := range r.FilesByCategory[category] {
			part, err := mw.CreateFormFile(fmt.Sprintf("files[%s]", category), f.Name)
			if err != nil {
				return nil, eris.Wrapf(err, "docai: create form file %s", f.Name)
			}
			if _, err := part.Write(f.Content); err != nil {
				return nil, eris.Wrapf(err, "docai: write form file %s", f.Name)
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "docai: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-categorized", &buf)
	if err != nil {
		return nil, eris.Wrap(err, "docai: create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ExtractVision(ctx context.Context, r VisionRequest) (*VisionResponse, error) {
	var out VisionResponse
	if err := c.postJSON(ctx, "/extract-vision", c.timeouts.Vision, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ExtractOCR(ctx context.Context, sessionID string) (*OCRResponse, error) {
	in := map[string]string{"sessionId": sessionID}
	var out OCRResponse
	if err := c.postJSON(ctx, "/extract-ocr", c.timeouts.OCR, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ExtractLegacy(ctx context.Context, r LegacyRequest) (*LegacyResponse, error) {
	var out LegacyResponse
	if err := c.postJSON(ctx, "/extract-legacy", c.timeouts.Legacy, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Fields(ctx context.Context, documentType string) (*FieldsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fields/"+documentType, nil)
	if err != nil {
		return nil, eris.Wrap(err, "docai: create request")
	}

	var out FieldsResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
