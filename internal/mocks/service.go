package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMissedPaymentMarker struct {
	mock.Mock
}

func (m *MockMissedPaymentMarker) MarkMissedPayments(ctx context.Context, asOf time.Time) (int, error) {
	args := m.Called(ctx, asOf)
	return args.Int(0), args.Error(1)
}

// NewMockMissedPaymentMarker creates a new mock instance
func NewMockMissedPaymentMarker() *MockMissedPaymentMarker {
	return &MockMissedPaymentMarker{}
}
