// Package workersai converts documents to markdown via the Cloudflare
// Workers AI toMarkdown endpoint.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/miklbjorn/email-summerhouse/internal/config"
	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
)

const apiURLTemplate = "https://api.cloudflare.com/client/v4/accounts/%s/ai/tomarkdown"

// Client implements port.DocumentConverter against the Workers AI API.
type Client struct {
	endpoint string
	apiToken string
	client   *http.Client
}

// NewClient creates a Workers AI converter client.
func NewClient(cfg *config.ConverterConfig) *Client {
	return newClient(cfg, fmt.Sprintf(apiURLTemplate, cfg.AccountID))
}

// NewClientWithEndpoint creates a client pointing at a custom endpoint (for
// testing).
func NewClientWithEndpoint(cfg *config.ConverterConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.ConverterConfig, endpoint string) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: timeout},
	}
}

// apiResponse models the toMarkdown batch response. Results come back in
// request order, one entry per submitted file.
type apiResponse struct {
	Success bool `json:"success"`
	Result  []struct {
		Name   string `json:"name"`
		Format string `json:"format"`
		Data   string `json:"data"`
		Error  string `json:"error,omitempty"`
	} `json:"result"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ConvertBatch submits all documents as one multipart request and returns
// per-document results aligned with the input.
func (c *Client) ConvertBatch(ctx context.Context, docs []domain.Attachment) ([]port.ConvertResult, error) {
	if len(docs) == 0 {
		return []port.ConvertResult{}, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, doc := range docs {
		part, err := mw.CreateFormFile("files", doc.Filename)
		if err != nil {
			return nil, fmt.Errorf("building multipart body: %w", err)
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, fmt.Errorf("building multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling workers AI: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workers AI error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if !parsed.Success {
		msg := "conversion rejected"
		if len(parsed.Errors) > 0 {
			msg = parsed.Errors[0].Message
		}
		return nil, fmt.Errorf("workers AI error: %s", msg)
	}
	if len(parsed.Result) != len(docs) {
		return nil, fmt.Errorf("workers AI returned %d results for %d documents", len(parsed.Result), len(docs))
	}

	results := make([]port.ConvertResult, len(docs))
	for i, r := range parsed.Result {
		if r.Error != "" {
			results[i] = port.ConvertResult{Err: r.Error}
			continue
		}
		results[i] = port.ConvertResult{Markdown: r.Data}
	}
	return results, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Compile-time check.
var _ port.DocumentConverter = (*Client)(nil)
