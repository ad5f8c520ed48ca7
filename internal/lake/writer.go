// Package lake persists the three successive representations of one inbound
// message: raw bytes (bronze), normalized markdown (silver), and the final
// structured extraction (gold). Layers are append-only; repeated writes with
// the same timestamp and message id overwrite rather than append.
package lake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
)

const (
	rawEmailFilename = "raw.eml"
	metadataFilename = "metadata.json"
	goldFilename     = "extracted.json"
)

// NewTimestampToken generates the shared URL-safe token for one inbound
// unit. The random suffix keeps concurrent ingestions from colliding; the
// token is informative, not strictly monotonic.
func NewTimestampToken(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// AttachmentRef records where one attachment's raw bytes were archived.
type AttachmentRef struct {
	Filename string
	Path     string
}

// BronzeResult lists everything written to the bronze layer.
type BronzeResult struct {
	Paths       []string
	Attachments []AttachmentRef
}

// Writer is the only component that calls the storage backend's write
// primitive.
type Writer struct {
	storage port.ObjectStorage
	bucket  string
}

// NewWriter creates a layered persistence writer over the given bucket.
func NewWriter(storage port.ObjectStorage, bucket string) *Writer {
	return &Writer{storage: storage, bucket: bucket}
}

// bronzeMetadata is the JSON blob stored next to the raw email.
type bronzeMetadata struct {
	MessageID string   `json:"message_id"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	Date      string   `json:"date"`
}

// WriteBronze archives the raw email, its metadata, and each attachment's
// raw bytes under bronze/{ts}/{sanitized_message_id}/.
func (w *Writer) WriteBronze(ctx context.Context, ts string, email *domain.InboundEmail, attachments []domain.Attachment) (*BronzeResult, error) {
	prefix := fmt.Sprintf("bronze/%s/%s", ts, SanitizeMessageID(email.MessageID))
	result := &BronzeResult{}

	rawPath := fmt.Sprintf("%s/%s", prefix, rawEmailFilename)
	if err := w.put(ctx, rawPath, email.Raw, "message/rfc822"); err != nil {
		return nil, fmt.Errorf("lake.WriteBronze raw email: %w", err)
	}
	result.Paths = append(result.Paths, rawPath)

	meta, err := json.Marshal(bronzeMetadata{
		MessageID: email.MessageID,
		From:      email.From,
		To:        email.To,
		Subject:   email.Subject,
		Date:      email.ReceivedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("lake.WriteBronze metadata: %w", err)
	}
	metaPath := fmt.Sprintf("%s/%s", prefix, metadataFilename)
	if err := w.put(ctx, metaPath, meta, "application/json"); err != nil {
		return nil, fmt.Errorf("lake.WriteBronze metadata: %w", err)
	}
	result.Paths = append(result.Paths, metaPath)

	for _, att := range attachments {
		path := fmt.Sprintf("%s/%s", prefix, SanitizeFilename(att.Filename))
		if err := w.put(ctx, path, att.Data, att.ContentType); err != nil {
			return nil, fmt.Errorf("lake.WriteBronze attachment %q: %w", att.Filename, err)
		}
		result.Paths = append(result.Paths, path)
		result.Attachments = append(result.Attachments, AttachmentRef{
			Filename: att.Filename,
			Path:     path,
		})
	}

	return result, nil
}

// WriteSilver stores one markdown blob per normalized document under
// silver/{ts}/{sanitized_message_id}/.
func (w *Writer) WriteSilver(ctx context.Context, ts, messageID string, docs []domain.NormalizedDocument) error {
	prefix := fmt.Sprintf("silver/%s/%s", ts, SanitizeMessageID(messageID))
	for _, doc := range docs {
		path := fmt.Sprintf("%s/%s.md", prefix, SanitizeFilename(doc.Filename))
		if err := w.put(ctx, path, []byte(doc.Markdown), "text/markdown"); err != nil {
			return fmt.Errorf("lake.WriteSilver %q: %w", doc.Filename, err)
		}
	}
	return nil
}

// WriteGold stores the final extraction as one JSON blob under
// gold/{ts}/{sanitized_message_id}/extracted.json.
func (w *Writer) WriteGold(ctx context.Context, ts, messageID string, extraction domain.Extraction) error {
	data, err := json.Marshal(extraction)
	if err != nil {
		return fmt.Errorf("lake.WriteGold marshal: %w", err)
	}
	path := fmt.Sprintf("gold/%s/%s/%s", ts, SanitizeMessageID(messageID), goldFilename)
	if err := w.put(ctx, path, data, "application/json"); err != nil {
		return fmt.Errorf("lake.WriteGold: %w", err)
	}
	return nil
}

func (w *Writer) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := w.storage.Upload(ctx, port.UploadInput{
		Bucket:      w.bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
	})
	return err
}

// Bucket returns the bucket the writer archives into. Source file records
// store bare keys; readers need the bucket to resolve them.
func (w *Writer) Bucket() string {
	return w.bucket
}
