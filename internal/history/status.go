package history

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/gatekeeper/schema"
)

const statusTimeLayout = "2006-01-02 15:04:05"

// WriteHistoryStatus prints history status information.
func WriteHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %s\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintln(w, "Decisions:")
		for _, d := range []schema.Decision{schema.DecisionPass, schema.DecisionWarn, schema.DecisionFail} {
			_, _ = fmt.Fprintf(w, "  %s: %d\n", d, status.Decisions[d])
		}
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
