package port

import (
	"context"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

// ConvertResult is the outcome of converting one document to markdown.
// Err is set when that document failed while the batch succeeded.
type ConvertResult struct {
	Markdown string
	Err      string
}

// DocumentConverter renders raw documents to markdown in a single batch call.
// The result slice is index-aligned with the input.
type DocumentConverter interface {
	ConvertBatch(ctx context.Context, docs []domain.Attachment) ([]ConvertResult, error)
}
