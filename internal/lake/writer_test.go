package lake_test

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/lake"
	"github.com/miklbjorn/email-summerhouse/internal/port"
	"github.com/miklbjorn/email-summerhouse/mocks"
)

const testBucket = "test-lake"

// capturedUpload records one storage write for assertions.
type capturedUpload struct {
	Key         string
	ContentType string
	Body        []byte
}

func captureUploads(storage *mocks.MockObjectStorage) *[]capturedUpload {
	var captured []capturedUpload
	storage.On("Upload", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		input := args.Get(1).(port.UploadInput)
		body, _ := io.ReadAll(input.Body)
		captured = append(captured, capturedUpload{
			Key:         input.Key,
			ContentType: input.ContentType,
			Body:        body,
		})
	}).Return(&port.UploadOutput{Location: "loc"}, nil)
	return &captured
}

func testEmail() *domain.InboundEmail {
	return &domain.InboundEmail{
		MessageID:  "abc-123@mail.example.com",
		From:       "owner@example.com",
		To:         []string{"invoices@summerhouse.example"},
		Subject:    "March invoice",
		ReceivedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Raw:        []byte("raw email bytes"),
	}
}

func TestNewTimestampToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)

	token := lake.NewTimestampToken(now)

	assert.Regexp(t, regexp.MustCompile(`^20260301T123045Z-[0-9a-f-]{8}$`), token)
	assert.NotEqual(t, token, lake.NewTimestampToken(now))
}

func TestWriteBronze(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	captured := captureUploads(storage)
	w := lake.NewWriter(storage, testBucket)

	result, err := w.WriteBronze(context.Background(), "ts-token", testEmail(), []domain.Attachment{
		{Filename: "invoice march.pdf", ContentType: "application/pdf", Data: []byte("pdf bytes")},
	})

	assert.NoError(t, err)
	assert.Len(t, *captured, 3)

	prefix := "bronze/ts-token/abc123mailexamplecom/"
	assert.Equal(t, prefix+"raw.eml", (*captured)[0].Key)
	assert.Equal(t, "message/rfc822", (*captured)[0].ContentType)
	assert.Equal(t, []byte("raw email bytes"), (*captured)[0].Body)

	assert.Equal(t, prefix+"metadata.json", (*captured)[1].Key)
	assert.JSONEq(t, `{
		"message_id": "abc-123@mail.example.com",
		"from": "owner@example.com",
		"to": ["invoices@summerhouse.example"],
		"subject": "March invoice",
		"date": "2026-03-01T12:00:00Z"
	}`, string((*captured)[1].Body))

	assert.Equal(t, prefix+"invoicemarch.pdf", (*captured)[2].Key)
	assert.Equal(t, []byte("pdf bytes"), (*captured)[2].Body)

	// The result maps original filenames to archived paths.
	assert.Len(t, result.Attachments, 1)
	assert.Equal(t, "invoice march.pdf", result.Attachments[0].Filename)
	assert.Equal(t, prefix+"invoicemarch.pdf", result.Attachments[0].Path)
	assert.Len(t, result.Paths, 3)
}

func TestWriteBronze_UploadFailureAborts(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("bucket gone"))
	w := lake.NewWriter(storage, testBucket)

	_, err := w.WriteBronze(context.Background(), "ts", testEmail(), nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestWriteSilver(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	captured := captureUploads(storage)
	w := lake.NewWriter(storage, testBucket)

	err := w.WriteSilver(context.Background(), "ts-token", "abc-123", []domain.NormalizedDocument{
		{Filename: "email_body", Markdown: "# Body"},
		{Filename: "invoice.pdf", Markdown: "# Invoice"},
	})

	assert.NoError(t, err)
	assert.Len(t, *captured, 2)
	assert.Equal(t, "silver/ts-token/abc123/email_body.md", (*captured)[0].Key)
	assert.Equal(t, "text/markdown", (*captured)[0].ContentType)
	assert.Equal(t, "silver/ts-token/abc123/invoice.pdf.md", (*captured)[1].Key)
	assert.Equal(t, []byte("# Invoice"), (*captured)[1].Body)
}

func TestWriteGold(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	captured := captureUploads(storage)
	w := lake.NewWriter(storage, testBucket)

	supplier := "Acme"
	ext := domain.EmptyExtraction()
	ext.Supplier = &supplier

	err := w.WriteGold(context.Background(), "ts-token", "abc-123", ext)

	assert.NoError(t, err)
	assert.Len(t, *captured, 1)
	assert.Equal(t, "gold/ts-token/abc123/extracted.json", (*captured)[0].Key)
	assert.Equal(t, "application/json", (*captured)[0].ContentType)

	// Null fields serialize explicitly and items is always a list.
	body := string((*captured)[0].Body)
	assert.Contains(t, body, `"supplier":"Acme"`)
	assert.Contains(t, body, `"amount":null`)
	assert.Contains(t, body, `"items":[]`)
}

func TestSanitizeMessageID(t *testing.T) {
	assert.Equal(t, "abc123mailexamplecom", lake.SanitizeMessageID("abc-123@mail.example.com"))
	assert.Equal(t, "", lake.SanitizeMessageID("<>@.//"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "invoice_2026-03.pdf", lake.SanitizeFilename("invoice_2026-03.pdf"))
	assert.Equal(t, "invoicemarch.pdf", lake.SanitizeFilename("invoice march?.pdf"))
}
