package workersai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miklbjorn/email-summerhouse/internal/config"
	"github.com/miklbjorn/email-summerhouse/internal/convert/workersai"
	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

func testConfig() *config.ConverterConfig {
	return &config.ConverterConfig{
		AccountID:   "acct-1",
		APIToken:    "cf-token",
		TimeoutSecs: 5,
	}
}

func docs() []domain.Attachment {
	return []domain.Attachment{
		{Filename: "email_body", ContentType: "text/html", Data: []byte("<p>hi</p>")},
		{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
	}
}

func TestConvertBatch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cf-token", r.Header.Get("Authorization"))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		assert.Len(t, files, 2)
		assert.Equal(t, "email_body", files[0].Filename)
		assert.Equal(t, "invoice.pdf", files[1].Filename)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result": []map[string]string{
				{"name": "email_body", "format": "markdown", "data": "hi"},
				{"name": "invoice.pdf", "format": "markdown", "data": "# Invoice"},
			},
		})
	}))
	defer server.Close()

	client := workersai.NewClientWithEndpoint(testConfig(), server.URL)
	results, err := client.ConvertBatch(context.Background(), docs())

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "hi", results[0].Markdown)
	assert.Equal(t, "# Invoice", results[1].Markdown)
}

func TestConvertBatch_PerDocumentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result": []map[string]string{
				{"name": "email_body", "data": "hi"},
				{"name": "invoice.pdf", "error": "unsupported format"},
			},
		})
	}))
	defer server.Close()

	client := workersai.NewClientWithEndpoint(testConfig(), server.URL)
	results, err := client.ConvertBatch(context.Background(), docs())

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Empty(t, results[0].Err)
	assert.Equal(t, "unsupported format", results[1].Err)
}

func TestConvertBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result":  []map[string]string{{"name": "email_body", "data": "hi"}},
		})
	}))
	defer server.Close()

	client := workersai.NewClientWithEndpoint(testConfig(), server.URL)
	_, err := client.ConvertBatch(context.Background(), docs())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1 results for 2 documents")
}

func TestConvertBatch_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"errors":  []map[string]string{{"message": "invalid token"}},
		})
	}))
	defer server.Close()

	client := workersai.NewClientWithEndpoint(testConfig(), server.URL)
	_, err := client.ConvertBatch(context.Background(), docs())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestConvertBatch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := workersai.NewClientWithEndpoint(testConfig(), server.URL)
	_, err := client.ConvertBatch(context.Background(), docs())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestConvertBatch_EmptyInput(t *testing.T) {
	client := workersai.NewClientWithEndpoint(testConfig(), "http://unused.example")
	results, err := client.ConvertBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, results)
}
