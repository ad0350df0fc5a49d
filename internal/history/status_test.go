package history

import (
	"bytes"
	"testing"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
)

func TestWriteHistoryStatusDisconnected(t *testing.T) {
	var buf bytes.Buffer
	WriteHistoryStatus(&buf, schema.HistoryStatus{Backend: "none"})
	assert.Equal(t, "History Backend: none\nConnected: false\n", buf.String())
}

func TestWriteHistoryStatus(t *testing.T) {
	var buf bytes.Buffer
	WriteHistoryStatus(&buf, schema.HistoryStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     3,
		LastRunID:     "r-3",
		LastRunTime:   baseTime,
		OldestRunTime: baseTime,
		Decisions:     map[schema.Decision]int{schema.DecisionFail: 2, schema.DecisionPass: 1},
		TableSizes:    map[string]int64{gateResultsTable: 27, runsTable: 3},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Run ID: r-3\n")
	assert.Contains(t, out, "Last Run: 2026-10-16 12:00:00\n")
	assert.Contains(t, out, "  PASS: 1\n  WARN: 0\n  FAIL: 2\n")
	assert.Contains(t, out, "  gatekeeper_gate_results: 27 rows\n  gatekeeper_runs: 3 rows\n")
}
