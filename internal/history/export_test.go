package history

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHistory(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.RecordRun(context.Background(), sampleDocument("r-1", schema.DecisionPass, baseTime), sampleRun()))

	out := filepath.Join(t.TempDir(), "audit")
	var buf bytes.Buffer
	require.NoError(t, ExportHistory(store, out, &buf))

	assert.FileExists(t, out+".runs.parquet")
	assert.FileExists(t, out+".gate_results.parquet")
	assert.Contains(t, buf.String(), "Exported 1 runs to:")
	assert.Contains(t, buf.String(), "Exported 2 gate records to:")
}

func TestExportHistoryRequiresOutputFile(t *testing.T) {
	store := &MockHistoryStore{}
	err := ExportHistory(store, "", &bytes.Buffer{})
	assert.ErrorContains(t, err, "--output-file is required")
	store.AssertNotCalled(t, "GetStatus")
}

func TestExportHistoryEmpty(t *testing.T) {
	store := &MockHistoryStore{}
	store.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite", Connected: true}, nil)

	err := ExportHistory(store, filepath.Join(t.TempDir(), "x"), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestExportHistoryStoreError(t *testing.T) {
	store := &MockHistoryStore{}
	store.On("GetStatus").Return(schema.HistoryStatus{TotalRuns: 1}, nil)
	store.On("GetAllRuns").Return(nil, errors.New("boom"))

	err := ExportHistory(store, filepath.Join(t.TempDir(), "x"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to retrieve runs")
	store.AssertExpectations(t)
}
