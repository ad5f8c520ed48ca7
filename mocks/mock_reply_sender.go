package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockReplySender is a mock implementation of port.ReplySender.
type MockReplySender struct {
	mock.Mock
}

func (m *MockReplySender) SendConfirmation(ctx context.Context, toEmail, subject string, invoiceID int64) error {
	args := m.Called(ctx, toEmail, subject, invoiceID)
	return args.Error(0)
}

func (m *MockReplySender) SendFailure(ctx context.Context, toEmail, subject string, cause error) error {
	args := m.Called(ctx, toEmail, subject, cause)
	return args.Error(0)
}
