// Package extractor turns an inbound email's payloads into normalized
// markdown documents and one structured extraction. Failures degrade:
// conversion errors become placeholder documents and extraction errors
// become an all-null extraction, so ingestion always has something to
// persist.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
)

// Engine wraps the external markdown conversion and LLM completion calls.
type Engine struct {
	converter port.DocumentConverter
	completer port.Completer
}

// NewEngine creates an extraction engine.
func NewEngine(converter port.DocumentConverter, completer port.Completer) *Engine {
	return &Engine{converter: converter, completer: completer}
}

// Normalize builds the document list for one inbound email: the body first
// (HTML preferred over plain text when both exist), then one entry per
// attachment, converted to markdown in a single batch call. A document that
// fails conversion is represented by a placeholder stub carrying the
// filename and error text, so the output length always equals the input
// count.
func (e *Engine) Normalize(ctx context.Context, emailText, emailHTML string, attachments []domain.Attachment) []domain.NormalizedDocument {
	inputs := make([]domain.Attachment, 0, len(attachments)+1)

	if emailHTML != "" {
		inputs = append(inputs, domain.Attachment{
			Filename:    domain.EmailBodyFilename,
			ContentType: "text/html",
			Data:        []byte(emailHTML),
		})
	} else if emailText != "" {
		inputs = append(inputs, domain.Attachment{
			Filename:    domain.EmailBodyFilename,
			ContentType: "text/plain",
			Data:        []byte(emailText),
		})
	}
	inputs = append(inputs, attachments...)

	if len(inputs) == 0 {
		return []domain.NormalizedDocument{}
	}

	// One batch call for all documents rather than one call each.
	results, err := e.converter.ConvertBatch(ctx, inputs)
	if err != nil || len(results) != len(inputs) {
		if err == nil {
			err = fmt.Errorf("converter returned %d results for %d documents", len(results), len(inputs))
		}
		log.Printf("extractor.Normalize: batch conversion failed, substituting stubs: %v", err)
		docs := make([]domain.NormalizedDocument, len(inputs))
		for i, in := range inputs {
			docs[i] = conversionStub(in.Filename, err)
		}
		return docs
	}

	docs := make([]domain.NormalizedDocument, len(inputs))
	for i, in := range inputs {
		if results[i].Err != "" {
			docs[i] = conversionStub(in.Filename, fmt.Errorf("%s", results[i].Err))
			continue
		}
		docs[i] = domain.NormalizedDocument{Filename: in.Filename, Markdown: results[i].Markdown}
	}
	return docs
}

func conversionStub(filename string, err error) domain.NormalizedDocument {
	return domain.NormalizedDocument{
		Filename: filename,
		Markdown: fmt.Sprintf("# %s\n\nConversion to markdown failed: %v\n", filename, err),
	}
}

// Extract issues one completion request over the full document set and
// coerces the response into an Extraction. Any failure resolves to the
// all-null extraction with the first document's filename as the source
// reference; errors never propagate past this boundary.
func (e *Engine) Extract(ctx context.Context, docs []domain.NormalizedDocument) domain.Extraction {
	fallback := domain.EmptyExtraction()
	if len(docs) > 0 {
		name := docs[0].Filename
		fallback.SourceFileReference = &name
	}

	if len(docs) == 0 {
		return fallback
	}

	response, err := e.completer.Complete(ctx, BuildPrompt(docs))
	if err != nil {
		log.Printf("extractor.Extract: completion failed, falling back to null extraction: %v", err)
		return fallback
	}

	obj, ok := FirstJSONObject(response)
	if !ok {
		log.Printf("extractor.Extract: no JSON object in model response, falling back to null extraction")
		return fallback
	}

	ext := decodeExtraction(obj)
	if ext.SourceFileReference == nil {
		ext.SourceFileReference = fallback.SourceFileReference
	}
	return ext
}

// decodeExtraction parses the model's JSON object field by field so one
// malformed field nulls out alone instead of discarding the rest.
func decodeExtraction(obj string) domain.Extraction {
	ext := domain.EmptyExtraction()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return ext
	}

	decodeString(fields, "supplier", &ext.Supplier)
	decodeNumber(fields, "amount", &ext.Amount)
	decodeString(fields, "currency", &ext.Currency)
	decodeString(fields, "invoiceId", &ext.InvoiceID)
	decodeString(fields, "accountIBAN", &ext.AccountIBAN)
	decodeString(fields, "accountBIC", &ext.AccountBIC)
	decodeString(fields, "accountREG", &ext.AccountREG)
	decodeString(fields, "accountNumber", &ext.AccountNumber)
	decodeString(fields, "lastPaymentDate", &ext.LastPaymentDate)
	decodeString(fields, "sourceFileReference", &ext.SourceFileReference)

	if raw, ok := fields["items"]; ok {
		var items []string
		if err := json.Unmarshal(raw, &items); err == nil && items != nil {
			ext.Items = items
		}
	}

	return ext
}

func decodeString(fields map[string]json.RawMessage, key string, dst **string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func decodeNumber(fields map[string]json.RawMessage, key string, dst **float64) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}
