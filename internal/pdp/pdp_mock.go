package pdp

import (
	"context"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/mock"
)

// MockPolicyDecider is a mock implementation of PolicyDecider for testing.
type MockPolicyDecider struct {
	mock.Mock
}

var _ contract.PolicyDecider = &MockPolicyDecider{} // Compile-time check

// WaitReady implements the PolicyDecider interface.
func (m *MockPolicyDecider) WaitReady(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Decide implements the PolicyDecider interface.
func (m *MockPolicyDecider) Decide(ctx context.Context, req schema.PolicyRequest) (schema.PolicyDecision, error) {
	args := m.Called(ctx, req)
	decision, _ := args.Get(0).(schema.PolicyDecision)
	return decision, args.Error(1)
}
