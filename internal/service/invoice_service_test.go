package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
	"github.com/miklbjorn/email-summerhouse/internal/service"
	"github.com/miklbjorn/email-summerhouse/mocks"
)

func setupInvoiceService() (service.InvoiceService, *mocks.MockInvoiceRepo, *mocks.MockObjectStorage) {
	repo := new(mocks.MockInvoiceRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewInvoiceService(repo, storage, "test-lake", 900)
	return svc, repo, storage
}

func parsePatch(t *testing.T, body string) *domain.Patch {
	t.Helper()
	var raw map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal([]byte(body), &raw))
	patch, err := domain.ParsePatch(raw)
	assert.NoError(t, err)
	return patch
}

func strPtr(s string) *string { return &s }

func TestInvoiceService_List(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	limit := 10
	filter := port.ListFilter{UnpaidOnly: true, Limit: &limit}
	repo.On("List", mock.Anything, filter).Return([]domain.Invoice{{ID: 1}, {ID: 2}}, nil)

	invoices, err := svc.List(context.Background(), filter)

	assert.NoError(t, err)
	assert.Len(t, invoices, 2)
}

func TestInvoiceService_Update_MergesProvenance(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	current := &domain.Invoice{
		ID:                   1,
		Status:               domain.StatusUnpaid,
		ManuallyEditedFields: strPtr(`["amount"]`),
	}
	repo.On("GetByID", mock.Anything, int64(1)).Return(current, nil)

	repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u port.InvoiceUpdate) bool {
		return u.EditedFieldsJSON == `["amount","supplier"]` && !u.ApplyPaidAt
	})).Return(&domain.Invoice{ID: 1}, nil)

	_, err := svc.Update(context.Background(), 1, parsePatch(t, `{"supplier": "Acme"}`))

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestInvoiceService_Update_TransitionToPaidSetsPaidAt(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.Invoice{ID: 1, Status: domain.StatusUnpaid}, nil)
	repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u port.InvoiceUpdate) bool {
		return u.ApplyPaidAt && u.PaidAt != nil
	})).Return(&domain.Invoice{ID: 1, Status: domain.StatusPaid}, nil)

	_, err := svc.Update(context.Background(), 1, parsePatch(t, `{"status": "paid"}`))

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestInvoiceService_Update_LeavingPaidClearsPaidAt(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.Invoice{ID: 1, Status: domain.StatusPaid}, nil)
	repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u port.InvoiceUpdate) bool {
		return u.ApplyPaidAt && u.PaidAt == nil
	})).Return(&domain.Invoice{ID: 1, Status: domain.StatusUnpaid}, nil)

	_, err := svc.Update(context.Background(), 1, parsePatch(t, `{"status": "unpaid"}`))

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestInvoiceService_Update_NonStatusEditLeavesPaidAtAlone(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.Invoice{ID: 1, Status: domain.StatusPaid}, nil)
	repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u port.InvoiceUpdate) bool {
		return !u.ApplyPaidAt
	})).Return(&domain.Invoice{ID: 1}, nil)

	_, err := svc.Update(context.Background(), 1, parsePatch(t, `{"supplier": "Acme"}`))

	assert.NoError(t, err)
}

func TestInvoiceService_Update_EmptyPatchReserializesProvenance(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.Invoice{ID: 1, Status: domain.StatusUnpaid, ManuallyEditedFields: strPtr(`["status"]`)}, nil)
	repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u port.InvoiceUpdate) bool {
		return u.Patch.Len() == 0 && u.EditedFieldsJSON == `["status"]` && !u.ApplyPaidAt
	})).Return(&domain.Invoice{ID: 1}, nil)

	_, err := svc.Update(context.Background(), 1, parsePatch(t, `{}`))

	assert.NoError(t, err)
}

func TestInvoiceService_Update_NotFound(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("GetByID", mock.Anything, int64(99)).Return(nil, domain.ErrInvoiceNotFound)

	_, err := svc.Update(context.Background(), 99, parsePatch(t, `{"supplier": "Acme"}`))

	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	repo.AssertNotCalled(t, "Update")
}

func TestInvoiceService_Delete(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("Delete", mock.Anything, int64(1)).Return(true, nil)

	assert.NoError(t, svc.Delete(context.Background(), 1))
}

func TestInvoiceService_Delete_MissingIsNotFound(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("Delete", mock.Anything, int64(99)).Return(false, nil)

	err := svc.Delete(context.Background(), 99)

	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestInvoiceService_SourceFileURL(t *testing.T) {
	svc, repo, storage := setupInvoiceService()

	repo.On("GetSourceFile", mock.Anything, int64(1), int64(2)).Return(&domain.SourceFile{
		ID:      2,
		BlobURI: "bronze/ts/msg/invoice.pdf",
	}, nil)
	storage.On("GetPresignedURL", mock.Anything, "test-lake", "bronze/ts/msg/invoice.pdf", int64(900)).
		Return("https://signed.example/url", nil)

	url, err := svc.SourceFileURL(context.Background(), 1, 2)

	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example/url", url)
}

func TestInvoiceService_SourceFileURL_NotFound(t *testing.T) {
	svc, repo, storage := setupInvoiceService()

	repo.On("GetSourceFile", mock.Anything, int64(1), int64(9)).
		Return(nil, domain.ErrSourceFileNotFound)

	_, err := svc.SourceFileURL(context.Background(), 1, 9)

	assert.ErrorIs(t, err, domain.ErrSourceFileNotFound)
	storage.AssertNotCalled(t, "GetPresignedURL")
}

func TestInvoiceService_GetByID_PropagatesError(t *testing.T) {
	svc, repo, _ := setupInvoiceService()

	repo.On("GetByID", mock.Anything, int64(5)).Return(nil, errors.New("db down"))

	_, err := svc.GetByID(context.Background(), 5)

	assert.Error(t, err)
}
