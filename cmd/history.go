package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/history"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyStore is opened by historySetup for the history subcommands.
var historyStore contract.HistoryStore

// historyBackendSetup loads the minimal configuration history commands need.
// It avoids the full evaluate validation so history can be managed without scan inputs.
func historyBackendSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backendStr := strings.ToLower(strings.TrimSpace(viper.GetString("history-backend")))
	connStr := viper.GetString("history-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("%w: invalid history backend '%s'. must be sqlite, mysql, postgresql, none", contract.ErrInvalidConfig, backendStr)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	level, err := contract.ParseLogLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	contract.SetupLogging(os.Stderr, level)

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetupWrapper opens the history store for status, clear and export.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	if err := historyBackendSetup(); err != nil {
		return err
	}
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	historyStore = store
	return nil
}

// historyTeardown closes the history store opened in PreRunE.
func historyTeardown(_ *cobra.Command, _ []string) {
	if historyStore != nil {
		_ = historyStore.Close()
	}
}

// historyMigrateSetupWrapper validates the backend without creating tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return historyBackendSetup()
}

// historyCmd focused on evaluation history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the audit history of gate evaluations",
	Long: `Manage recorded gate evaluations.

When a history backend is configured, every evaluate run stores:
- Run metadata (run id, timestamps, repository, commit, branch, environment)
- The final decision and the full decision document
- One row per gate with its category and status

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status  - Show history statistics
  export  - Export history to Parquet
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Check recorded runs
  gatekeeper history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  gatekeeper history export --history-backend sqlite --output-file audit`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show backend, connection state, run counts per decision, the newest and
oldest run and table sizes.`,
	PreRunE: historySetupWrapper,
	PostRun: historyTeardown,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := historyStore.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		history.WriteHistoryStatus(os.Stdout, status)
	},
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded gate evaluations",
	Long: `Delete every recorded run and gate row.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  gatekeeper history export --output-file backup
  gatekeeper history clear`,
	PreRunE: historySetupWrapper,
	PostRun: historyTeardown,
	Run: func(_ *cobra.Command, _ []string) {
		if err := historyStore.Clear(); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyExportCmd exports history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded gate evaluations to Parquet files",
	Long: `Write two Parquet files using --output-file as prefix:
  <prefix>.runs.parquet          one row per evaluation run
  <prefix>.gate_results.parquet  one row per gate per run

The files can be read with DuckDB, pandas (pyarrow), Spark or Arrow.`,
	PreRunE: historySetupWrapper,
	PostRun: historyTeardown,
	Run: func(_ *cobra.Command, _ []string) {
		if err := history.ExportHistory(historyStore, cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs schema migrations.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run history database schema migrations",
	Long: `Apply or roll back the embedded schema migrations.

  --target-version -1  migrate to the latest version (default)
  --target-version 0   roll back every migration
  --target-version N   migrate up or down to version N`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		target := viper.GetInt("target-version")
		if err := history.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, target); err != nil {
			contract.LogFatal("Failed to migrate history", err)
		}
	},
}
