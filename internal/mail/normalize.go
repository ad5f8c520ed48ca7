// Package mail handles the inbound side of ingestion: attachment
// normalization, sender/recipient validation, and message identity.
package mail

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

const (
	// DefaultFilename substitutes a missing attachment name.
	DefaultFilename = "unnamed"
	// DefaultContentType substitutes a missing declared content type.
	DefaultContentType = "application/octet-stream"
)

// AttachmentDescriptor is one inbound attachment as delivered by the
// transport. Exactly one of the content representations should be set:
// Data (byte buffer), Text (plain string), Base64 (transport encoding),
// or Reader (streamed blob).
type AttachmentDescriptor struct {
	Filename    string
	ContentType string
	Data        []byte
	Text        *string
	Base64      *string
	Reader      io.Reader
}

// ConversionError reports a descriptor whose content could not be converted
// to canonical bytes, identifying the declared content type.
type ConversionError struct {
	ContentType string
	Err         error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert attachment content (declared type %q): %v", e.ContentType, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// NormalizeAttachment converts one descriptor into a canonical attachment.
// The descriptor's content is copied, never aliased, so the source is safe
// to reuse after the call.
func NormalizeAttachment(desc AttachmentDescriptor) (domain.Attachment, error) {
	att := domain.Attachment{
		Filename:    desc.Filename,
		ContentType: desc.ContentType,
	}
	if att.Filename == "" {
		att.Filename = DefaultFilename
	}
	if att.ContentType == "" {
		att.ContentType = DefaultContentType
	}

	switch {
	case desc.Data != nil:
		att.Data = make([]byte, len(desc.Data))
		copy(att.Data, desc.Data)
	case desc.Text != nil:
		att.Data = []byte(*desc.Text)
	case desc.Base64 != nil:
		data, err := base64.StdEncoding.DecodeString(*desc.Base64)
		if err != nil {
			return domain.Attachment{}, &ConversionError{ContentType: att.ContentType, Err: err}
		}
		att.Data = data
	case desc.Reader != nil:
		data, err := io.ReadAll(desc.Reader)
		if err != nil {
			return domain.Attachment{}, &ConversionError{ContentType: att.ContentType, Err: err}
		}
		att.Data = data
	default:
		return domain.Attachment{}, &ConversionError{
			ContentType: att.ContentType,
			Err:         fmt.Errorf("no content representation provided"),
		}
	}

	return att, nil
}

// NormalizeAttachments converts a batch of descriptors. Empty input produces
// empty output; the first failing descriptor aborts with its ConversionError.
func NormalizeAttachments(descs []AttachmentDescriptor) ([]domain.Attachment, error) {
	out := make([]domain.Attachment, 0, len(descs))
	for _, desc := range descs {
		att, err := NormalizeAttachment(desc)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}
