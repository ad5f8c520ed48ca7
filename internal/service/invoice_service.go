package service

import (
	"context"
	"time"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
	"github.com/miklbjorn/email-summerhouse/internal/provenance"
)

// InvoiceService defines the record management contract.
type InvoiceService interface {
	List(ctx context.Context, filter port.ListFilter) ([]domain.Invoice, error)
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	Update(ctx context.Context, id int64, patch *domain.Patch) (*domain.Invoice, error)
	Delete(ctx context.Context, id int64) error
	SourceFileURL(ctx context.Context, invoiceID, fileID int64) (string, error)
}

type invoiceService struct {
	repo          port.InvoiceRepository
	storage       port.ObjectStorage
	bucket        string
	presignExpiry int64
	now           func() time.Time
}

// NewInvoiceService creates the record management service. Presigned source
// file URLs are issued against the given bucket.
func NewInvoiceService(repo port.InvoiceRepository, storage port.ObjectStorage, bucket string, presignExpiry int64) InvoiceService {
	if presignExpiry <= 0 {
		presignExpiry = 3600
	}
	return &invoiceService{
		repo:          repo,
		storage:       storage,
		bucket:        bucket,
		presignExpiry: presignExpiry,
		now:           time.Now,
	}
}

func (s *invoiceService) List(ctx context.Context, filter port.ListFilter) ([]domain.Invoice, error) {
	return s.repo.List(ctx, filter)
}

func (s *invoiceService) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a parsed patch: the provenance set is merged with the
// patched fields and the paid_at effect of any status transition is
// computed against the current record. An empty patch is legal and only
// re-serializes the provenance set.
func (s *invoiceService) Update(ctx context.Context, id int64, patch *domain.Patch) (*domain.Invoice, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := provenance.Merge(current.ManuallyEditedFields, patch.Fields())
	paidAt, apply := provenance.PaidAtEffect(current.Status, patch, s.now().UTC())

	return s.repo.Update(ctx, id, port.InvoiceUpdate{
		Patch:            patch,
		EditedFieldsJSON: provenance.Serialize(merged),
		PaidAt:           paidAt,
		ApplyPaidAt:      apply,
	})
}

func (s *invoiceService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// SourceFileURL resolves a source file to a short-lived presigned download URL.
func (s *invoiceService) SourceFileURL(ctx context.Context, invoiceID, fileID int64) (string, error) {
	file, err := s.repo.GetSourceFile(ctx, invoiceID, fileID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, s.bucket, file.BlobURI, s.presignExpiry)
}
