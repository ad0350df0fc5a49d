package history

import (
	"context"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/mock"
)

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// RecordRun implements the HistoryStore interface.
func (m *MockHistoryStore) RecordRun(ctx context.Context, doc *schema.DecisionDocument, run schema.RunContext) error {
	args := m.Called(ctx, doc, run)
	return args.Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns() ([]schema.HistoryRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.HistoryRunRecord)
	return runs, args.Error(1)
}

// GetAllGateResults implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllGateResults() ([]schema.HistoryGateRecord, error) {
	args := m.Called()
	gates, _ := args.Get(0).([]schema.HistoryGateRecord)
	return gates, args.Error(1)
}

// Clear implements the HistoryStore interface.
func (m *MockHistoryStore) Clear() error {
	return m.Called().Error(0)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	return m.Called().Error(0)
}
