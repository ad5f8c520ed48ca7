package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
)

// MockDocumentConverter is a mock implementation of port.DocumentConverter.
type MockDocumentConverter struct {
	mock.Mock
}

func (m *MockDocumentConverter) ConvertBatch(ctx context.Context, docs []domain.Attachment) ([]port.ConvertResult, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.ConvertResult), args.Error(1)
}
