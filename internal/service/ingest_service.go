package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/extractor"
	"github.com/miklbjorn/email-summerhouse/internal/lake"
	"github.com/miklbjorn/email-summerhouse/internal/mail"
	"github.com/miklbjorn/email-summerhouse/internal/port"
)

// IngestInput is the DTO for one inbound email delivery.
type IngestInput struct {
	MessageIDHeader string
	From            string
	To              []string
	Subject         string
	ReceivedAt      time.Time
	Raw             []byte
	BodyText        string
	BodyHTML        string
	Attachments     []mail.AttachmentDescriptor
}

// IngestResult reports the outcome of a processed delivery. InvoiceID is zero
// when no new record was created (duplicate message or insert failure).
type IngestResult struct {
	MessageID string `json:"message_id"`
	InvoiceID int64  `json:"invoice_id"`
	Duplicate bool   `json:"duplicate"`
}

// IngestService defines the inbound email processing contract.
type IngestService interface {
	Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error)
}

type ingestService struct {
	policy  *mail.Policy
	writer  *lake.Writer
	engine  *extractor.Engine
	repo    port.InvoiceRepository
	replies port.ReplySender
	now     func() time.Time
}

// NewIngestService creates the ingestion orchestrator.
func NewIngestService(
	policy *mail.Policy,
	writer *lake.Writer,
	engine *extractor.Engine,
	repo port.InvoiceRepository,
	replies port.ReplySender,
) IngestService {
	return &ingestService{
		policy:  policy,
		writer:  writer,
		engine:  engine,
		repo:    repo,
		replies: replies,
		now:     time.Now,
	}
}

// Ingest runs the full pipeline for one delivery: validate, archive raw
// bytes, normalize to markdown, extract fields, and create the invoice
// record. Validation failures reject before any side effect. Archival
// failures abort with a best-effort failure reply. Conversion, extraction,
// and record insertion failures degrade so the sender still gets a reply.
func (s *ingestService) Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error) {
	if err := s.policy.Validate(input.From, input.To); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	messageID := mail.DeriveMessageID(input.MessageIDHeader, now)

	email := &domain.InboundEmail{
		MessageID:  messageID,
		From:       input.From,
		To:         input.To,
		Subject:    input.Subject,
		ReceivedAt: receivedAt,
		Raw:        input.Raw,
	}

	// A decode failure on one attachment must not sink the whole delivery,
	// so failed descriptors become placeholder payloads carrying the error.
	attachments := make([]domain.Attachment, 0, len(input.Attachments))
	for _, desc := range input.Attachments {
		att, err := mail.NormalizeAttachment(desc)
		if err != nil {
			log.Printf("ingest: attachment %q failed to normalize: %v", desc.Filename, err)
			att = placeholderAttachment(desc, err)
		}
		attachments = append(attachments, att)
	}

	ts := lake.NewTimestampToken(now)

	bronze, err := s.writer.WriteBronze(ctx, ts, email, attachments)
	if err != nil {
		s.sendFailure(ctx, input.From, input.Subject, err)
		return nil, fmt.Errorf("ingest: bronze write: %w", err)
	}

	docs := s.engine.Normalize(ctx, input.BodyText, input.BodyHTML, attachments)

	if err := s.writer.WriteSilver(ctx, ts, messageID, docs); err != nil {
		s.sendFailure(ctx, input.From, input.Subject, err)
		return nil, fmt.Errorf("ingest: silver write: %w", err)
	}

	ext := s.engine.Extract(ctx, docs)

	if err := s.writer.WriteGold(ctx, ts, messageID, ext); err != nil {
		s.sendFailure(ctx, input.From, input.Subject, err)
		return nil, fmt.Errorf("ingest: gold write: %w", err)
	}

	inv := domain.NewInvoiceFromExtraction(messageID, ext)
	files := make([]domain.SourceFile, 0, len(bronze.Attachments))
	for _, ref := range bronze.Attachments {
		files = append(files, domain.SourceFile{
			Filename: ref.Filename,
			BlobURI:  ref.Path,
		})
	}

	result := &IngestResult{MessageID: messageID}

	// The archive is already committed at this point. A record insert
	// failure, including a replayed message id, is logged and the sender
	// still gets a reply.
	created, err := s.repo.Insert(ctx, inv, files)
	switch {
	case errors.Is(err, domain.ErrDuplicateMessage):
		log.Printf("ingest: message %s already has a record, skipping insert", messageID)
		result.Duplicate = true
	case err != nil:
		log.Printf("ingest: record insert for message %s failed: %v", messageID, err)
	default:
		result.InvoiceID = created.ID
	}

	if err := s.replies.SendConfirmation(ctx, input.From, input.Subject, result.InvoiceID); err != nil {
		log.Printf("ingest: confirmation reply to %s failed: %v", input.From, err)
	}

	return result, nil
}

func (s *ingestService) sendFailure(ctx context.Context, toEmail, subject string, cause error) {
	if err := s.replies.SendFailure(ctx, toEmail, subject, cause); err != nil {
		log.Printf("ingest: failure reply to %s failed: %v", toEmail, err)
	}
}

// placeholderAttachment stands in for an attachment whose content could not
// be decoded, so downstream layers still see one entry per inbound payload.
func placeholderAttachment(desc mail.AttachmentDescriptor, cause error) domain.Attachment {
	filename := desc.Filename
	if filename == "" {
		filename = mail.DefaultFilename
	}
	return domain.Attachment{
		Filename:    filename,
		ContentType: "text/plain",
		Data:        []byte(fmt.Sprintf("Attachment could not be decoded: %v\n", cause)),
	}
}
