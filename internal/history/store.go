package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for evaluation history.
const (
	runsTable        = "gatekeeper_runs"
	gateResultsTable = "gatekeeper_gate_results"
)

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// storedTimeLayouts are the text layouts a timestamp may come back in.
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999",
}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// driverFor maps a backend to its database/sql driver name.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// openDatabase opens and pings the database for a backend.
func openDatabase(backend schema.DatabaseBackend, connStr string) (*sql.DB, string, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, "", err
	}

	dsn := connStr
	if backend == schema.SQLiteBackend && dsn == "" {
		dsn = contract.GetHistoryDBFilePath()
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		switch backend {
		case schema.SQLiteBackend:
			return nil, "", fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dsn, err)
		case schema.MySQLBackend:
			return nil, "", fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		default:
			return nil, "", fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=...", err)
		}
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, "", fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, driverName, nil
}

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend || backend == "" {
		// Return a no-op store for disabled history
		return &HistoryStoreImpl{backend: schema.NoneBackend}, nil
	}

	db, driverName, err := openDatabase(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{
		db:         db,
		backend:    backend,
		driverName: driverName,
	}, nil
}

// createHistoryTables creates the history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{gateResultsTable, getCreateGateResultsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for gatekeeper_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(64) PRIMARY KEY,
				started_at DATETIME(6) NOT NULL,
				finished_at DATETIME(6) NOT NULL,
				repository VARCHAR(255) NOT NULL,
				commit_sha VARCHAR(64) NOT NULL,
				branch VARCHAR(255) NOT NULL,
				environment VARCHAR(64) NOT NULL,
				final_decision VARCHAR(8) NOT NULL,
				document MEDIUMTEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(64) PRIMARY KEY,
				started_at TIMESTAMPTZ NOT NULL,
				finished_at TIMESTAMPTZ NOT NULL,
				repository VARCHAR(255) NOT NULL,
				commit_sha VARCHAR(64) NOT NULL,
				branch VARCHAR(255) NOT NULL,
				environment VARCHAR(64) NOT NULL,
				final_decision VARCHAR(8) NOT NULL,
				document TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				repository TEXT NOT NULL,
				commit_sha TEXT NOT NULL,
				branch TEXT NOT NULL,
				environment TEXT NOT NULL,
				final_decision TEXT NOT NULL,
				document TEXT
			);
		`, quotedTableName)
	}
}

// getCreateGateResultsQuery returns the CREATE TABLE query for gatekeeper_gate_results.
func getCreateGateResultsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(gateResultsTable, backend)

	switch backend {
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(64) NOT NULL,
				position INT NOT NULL,
				gate_id VARCHAR(32) NOT NULL,
				category VARCHAR(32) NOT NULL,
				status VARCHAR(8) NOT NULL,
				PRIMARY KEY (run_id, gate_id)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				gate_id TEXT NOT NULL,
				category TEXT NOT NULL,
				status TEXT NOT NULL,
				PRIMARY KEY (run_id, gate_id)
			);
		`, quotedTableName)
	}
}

// RecordRun stores the run and its gate rows in one transaction.
func (hs *HistoryStoreImpl) RecordRun(ctx context.Context, doc *schema.DecisionDocument, run schema.RunContext) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}
	if doc == nil {
		return fmt.Errorf("cannot record a nil decision document")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode decision document: %w", err)
	}
	document := string(payload)

	tx, err := hs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runQuery := fmt.Sprintf(`
		INSERT INTO %s (run_id, started_at, finished_at, repository, commit_sha,
		                branch, environment, final_decision, document)
		VALUES (%s)
	`, quoteTableName(runsTable, hs.backend), placeholders(hs.backend, 9))
	if _, err := tx.ExecContext(ctx, runQuery,
		doc.RunID,
		formatTime(doc.StartedAt, hs.backend),
		formatTime(doc.EvaluatedAt, hs.backend),
		run.Repository,
		run.Commit,
		schema.NormalizeBranch(run.Branch),
		strings.ToUpper(run.Environment),
		string(doc.FinalDecision),
		document,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", doc.RunID, err)
	}

	gateQuery := fmt.Sprintf(`
		INSERT INTO %s (run_id, position, gate_id, category, status)
		VALUES (%s)
	`, quoteTableName(gateResultsTable, hs.backend), placeholders(hs.backend, 5))
	stmt, err := tx.PrepareContext(ctx, gateQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare gate insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, g := range doc.Gates {
		if _, err := stmt.ExecContext(ctx, doc.RunID, i, string(g.ID), string(g.Category), string(g.Status)); err != nil {
			return fmt.Errorf("failed to insert gate %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history transaction: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// Clear deletes every recorded run and gate row.
func (hs *HistoryStoreImpl) Clear() error {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}
	for _, table := range []string{gateResultsTable, runsTable} {
		query := fmt.Sprintf("DELETE FROM %s", quoteTableName(table, hs.backend))
		if _, err := hs.db.Exec(query); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		Decisions:  make(map[schema.Decision]int),
		TableSizes: make(map[string]int64),
	}

	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, hs.backend)
	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRaw any
		row = hs.db.QueryRow(fmt.Sprintf("SELECT run_id, started_at FROM %s ORDER BY started_at DESC, run_id DESC LIMIT 1", quotedRuns))
		if err := row.Scan(&status.LastRunID, &lastRaw); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastRunTime, err := parseStoredTime(lastRaw)
		if err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		status.LastRunTime = lastRunTime

		var oldestRaw any
		row = hs.db.QueryRow(fmt.Sprintf("SELECT started_at FROM %s ORDER BY started_at ASC LIMIT 1", quotedRuns))
		if err := row.Scan(&oldestRaw); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		oldestRunTime, err := parseStoredTime(oldestRaw)
		if err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime

		rows, err := hs.db.Query(fmt.Sprintf("SELECT final_decision, COUNT(*) FROM %s GROUP BY final_decision", quotedRuns))
		if err != nil {
			return status, fmt.Errorf("failed to count decisions: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var decision string
			var count int
			if err := rows.Scan(&decision, &count); err != nil {
				return status, fmt.Errorf("failed to scan decision count: %w", err)
			}
			status.Decisions[schema.Decision(decision)] = count
		}
		if err := rows.Err(); err != nil {
			return status, fmt.Errorf("error iterating decision counts: %w", err)
		}
	}

	for _, table := range []string{runsTable, gateResultsTable} {
		var count int64
		row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all runs ordered by start time.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.HistoryRunRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, started_at, finished_at, repository, commit_sha,
	    branch, environment, final_decision, document
	    FROM %s ORDER BY started_at, run_id`, quoteTableName(runsTable, hs.backend))

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.HistoryRunRecord
	for rows.Next() {
		var record schema.HistoryRunRecord
		var startedRaw, finishedRaw any
		var decision string
		var document sql.NullString
		if err := rows.Scan(&record.RunID, &startedRaw, &finishedRaw, &record.Repository, &record.Commit,
			&record.Branch, &record.Environment, &decision, &document); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartedAt, err = parseStoredTime(startedRaw); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if record.FinishedAt, err = parseStoredTime(finishedRaw); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		record.FinalDecision = schema.Decision(decision)
		if document.Valid {
			record.Document = &document.String
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllGateResults retrieves all gate rows ordered by run and position.
func (hs *HistoryStoreImpl) GetAllGateResults() ([]schema.HistoryGateRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT g.run_id, g.position, g.gate_id, g.category, g.status
	    FROM %s g JOIN %s r ON r.run_id = g.run_id
	    ORDER BY r.started_at, g.run_id, g.position`,
		quoteTableName(gateResultsTable, hs.backend), quoteTableName(runsTable, hs.backend))

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query gate results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.HistoryGateRecord
	for rows.Next() {
		var record schema.HistoryGateRecord
		var gateID, category, status string
		if err := rows.Scan(&record.RunID, &record.Position, &gateID, &category, &status); err != nil {
			return nil, fmt.Errorf("failed to scan gate result: %w", err)
		}
		record.GateID = schema.GateID(gateID)
		record.Category = schema.GateCategory(category)
		record.Status = schema.GateStatus(status)
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gate results: %w", err)
	}
	return results, nil
}

// quoteTableName quotes a table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// placeholders returns n bind parameters in the dialect of the backend.
func placeholders(backend schema.DatabaseBackend, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if backend == schema.PostgreSQLBackend {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(sqliteTimeLayout)
	default:
		return t.UTC()
	}
}

// parseStoredTime accepts native timestamps and the text forms drivers return.
func parseStoredTime(v any) (time.Time, error) {
	var text string
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		text = t
	case []byte:
		text = string(t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
	for _, layout := range storedTimeLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", text)
}
