// Package parquet exports gate evaluation history to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/parquet-go/parquet-go"
)

// GateRun is a single evaluation run.
// This struct maps to the gatekeeper_runs database table.
type GateRun struct {
	// RunID is the UUID assigned to the evaluation
	RunID string `parquet:"run_id,snappy"`

	// StartedAt is when the evaluation began
	StartedAt time.Time `parquet:"started_at,snappy"`

	// FinishedAt is when the decision was produced
	FinishedAt time.Time `parquet:"finished_at,snappy"`

	Repository  string `parquet:"repository,snappy"`
	Commit      string `parquet:"commit_sha,snappy"`
	Branch      string `parquet:"branch,snappy"`
	Environment string `parquet:"environment,snappy"`

	// FinalDecision is PASS, WARN or FAIL
	FinalDecision string `parquet:"final_decision,snappy"`

	// Document is the decision document JSON (nullable)
	Document *string `parquet:"document,optional,snappy"`
}

// GateResultRow is one gate outcome inside a run.
// This struct maps to the gatekeeper_gate_results database table.
type GateResultRow struct {
	RunID    string `parquet:"run_id,snappy"`
	Position int32  `parquet:"position,snappy"`
	GateID   string `parquet:"gate_id,snappy"`
	Category string `parquet:"category,snappy"`
	Status   string `parquet:"status,snappy"`
}

// WriteGateRunsParquet writes a slice of GateRun structs to a Parquet file.
func WriteGateRunsParquet(data []GateRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteGateResultsParquet writes a slice of GateResultRow structs to a Parquet file.
func WriteGateResultsParquet(data []GateResultRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet infers the schema from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	// Close flushes the footer; a failure here leaves an unreadable file
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// ConvertRunRecords converts schema.HistoryRunRecord to GateRun for Parquet export.
func ConvertRunRecords(records []schema.HistoryRunRecord) []GateRun {
	result := make([]GateRun, len(records))
	for i, record := range records {
		result[i] = GateRun{
			RunID:         record.RunID,
			StartedAt:     record.StartedAt,
			FinishedAt:    record.FinishedAt,
			Repository:    record.Repository,
			Commit:        record.Commit,
			Branch:        record.Branch,
			Environment:   record.Environment,
			FinalDecision: string(record.FinalDecision),
			Document:      record.Document,
		}
	}
	return result
}

// ConvertGateRecords converts schema.HistoryGateRecord to GateResultRow for Parquet export.
func ConvertGateRecords(records []schema.HistoryGateRecord) []GateResultRow {
	result := make([]GateResultRow, len(records))
	for i, record := range records {
		result[i] = GateResultRow{
			RunID:    record.RunID,
			Position: record.Position,
			GateID:   string(record.GateID),
			Category: string(record.Category),
			Status:   string(record.Status),
		}
	}
	return result
}
