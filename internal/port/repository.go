package port

import (
	"context"
	"time"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

// ListFilter restricts and pages the invoice list. Limit and Offset are
// independently optional; nil means unbounded.
type ListFilter struct {
	UnpaidOnly bool
	Limit      *int
	Offset     *int
}

// InvoiceUpdate is the fully-resolved persistence input for one update call.
// The patch supplies the column assignments, the provenance set is already
// merged, and the paid_at effect is already decided by the policy layer.
type InvoiceUpdate struct {
	Patch            *domain.Patch
	EditedFieldsJSON string
	PaidAt           *time.Time
	ApplyPaidAt      bool
}

// InvoiceRepository owns the durable invoice records and their child source
// file records.
type InvoiceRepository interface {
	// Insert creates the invoice row and its source file rows in one batch.
	// An already-used message id yields domain.ErrDuplicateMessage.
	Insert(ctx context.Context, inv *domain.Invoice, files []domain.SourceFile) (*domain.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Invoice, error)
	// GetByID returns the invoice with its source files, or
	// domain.ErrInvoiceNotFound.
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	// Update performs one atomic multi-column update and returns the
	// reloaded record.
	Update(ctx context.Context, id int64, update InvoiceUpdate) (*domain.Invoice, error)
	// Delete removes the invoice and its source files, children first.
	// Returns false without error when the id does not exist.
	Delete(ctx context.Context, id int64) (bool, error)
	GetSourceFile(ctx context.Context, invoiceID, fileID int64) (*domain.SourceFile, error)
}
