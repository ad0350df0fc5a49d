package history

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/parquet"
)

// ErrNoHistory is returned when an export finds nothing to write.
var ErrNoHistory = errors.New("no evaluation history found to export")

// ExportHistory writes every recorded run and gate row to Parquet files
// named <outputFile>.runs.parquet and <outputFile>.gate_results.parquet.
func ExportHistory(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return ErrNoHistory
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total gate records: %d\n", status.TableSizes[gateResultsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	gates, err := store.GetAllGateResults()
	if err != nil {
		return fmt.Errorf("failed to retrieve gate results: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteGateRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	gatesFile := outputFile + ".gate_results.parquet"
	parquetGates := parquet.ConvertGateRecords(gates)
	if err := parquet.WriteGateResultsParquet(parquetGates, gatesFile); err != nil {
		return fmt.Errorf("failed to write gate results: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d gate records to: %s\n", len(parquetGates), gatesFile)

	return nil
}
