package exception

import (
	"context"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/mock"
)

// MockExceptionChecker is a mock implementation of ExceptionChecker for testing.
type MockExceptionChecker struct {
	mock.Mock
}

var _ contract.ExceptionChecker = &MockExceptionChecker{} // Compile-time check

// CheckException implements the ExceptionChecker interface.
func (m *MockExceptionChecker) CheckException(ctx context.Context, gate schema.GateID) (schema.ExceptionApproval, error) {
	args := m.Called(ctx, gate)
	approval, _ := args.Get(0).(schema.ExceptionApproval)
	return approval, args.Error(1)
}
