// Package notify provides a client for the delivery endpoint that emails a
// generated document to a recipient.
package notify

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

// Client defines the delivery operations.
type Client interface {
	// SendEmail emails a previously generated document. Failure never rolls
	// back generation; the caller may simply retry delivery.
	SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error)
}

// SendEmailRequest identifies the document and recipient.
type SendEmailRequest struct {
	DocumentID string `json:"documentId"`
	ToEmail    string `json:"toEmail"`
	Subject    string `json:"subject"`
	Body       string `json:"body,omitempty"`
}

// SendEmailResponse is the parsed send-email response.
type SendEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Option configures the notify client.
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

// NewClient creates a delivery client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://docai.controlnot.mx/api/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendEmail(ctx context.Context, r SendEmailRequest) (*SendEmailResponse, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "notify: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send-email", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "notify: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "notify: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ed struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &ed)
		return nil, eris.Wrap(resilience.NewServerError(resp.StatusCode, ed.Detail), "notify: request rejected")
	}

	var out SendEmailResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "notify: unmarshal response")
	}
	return &out, nil
}
