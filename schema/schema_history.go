package schema

import "time"

// HistoryStatus represents the status of the evaluation history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     string           `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	Decisions     map[Decision]int `json:"decisions"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// HistoryRunRecord represents a row from the gatekeeper_runs table.
type HistoryRunRecord struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Repository    string
	Commit        string
	Branch        string
	Environment   string
	FinalDecision Decision
	Document      *string
}

// HistoryGateRecord represents a row from the gatekeeper_gate_results table.
type HistoryGateRecord struct {
	RunID    string
	Position int32
	GateID   GateID
	Category GateCategory
	Status   GateStatus
}
