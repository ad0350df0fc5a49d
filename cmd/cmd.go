// Package cmd defines the command-line interface for gatekeeper.
package cmd

import (
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or json")
	rootCmd.PersistentFlags().String("output-file", contract.DefaultOutputFile, "Path of the decision document (history export uses it as a prefix)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "History backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql history (prefer GATEKEEPER_HISTORY_DB_CONNECT)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of evaluateCmd to Viper
	flags := evaluateCmd.Flags()
	flags.String("snyk-dir", "", "Directory holding the Snyk JSON results")
	flags.String("sonar-dir", "", "Directory holding the SonarQube JSON results")
	flags.String("thresholds-file", "", "Developer threshold document (JSON or YAML)")
	flags.String("thresholds-override", "", "Threshold overrides (format: 'high:5,coverage:75,express_security_rating:C')")
	flags.String("quality-params", "", "Comma-separated analysis parameters passed to the scanner")
	flags.String("quality-properties", "", "Scanner properties file to read analysis parameters from")
	flags.String("environment", "", "Target environment (DEV, UAT, PROD, ...)")
	flags.String("branch", "", "Branch or ref being deployed")
	flags.String("repository", "", "Repository in owner/name form")
	flags.String("commit", "", "Commit SHA being deployed")
	flags.String("repo-path", ".", "Working copy used to detect branch, commit and repository when not given (empty disables)")
	flags.String("workflow", "", "Workflow name of the pipeline run")
	flags.String("actor", "", "User who triggered the pipeline run")
	flags.String("role", "", "Role claimed by the actor")
	flags.String("protected-environments", "", "Comma-separated environments that only accept main or release/* (default UAT,PROD)")
	flags.String("privileged-roles", "", "Comma-separated roles whose denial suggests a role mismatch")
	flags.String("pdp-url", "", "Base URL of the policy decision point (empty skips the policy gate)")
	flags.String("pdp-token", "", "Bearer token for the policy decision point (prefer GATEKEEPER_PDP_TOKEN)")
	flags.String("pdp-tenant", contract.DefaultPolicyTenant, "Policy decision point tenant")
	flags.String("pdp-timeout", "", "Timeout of each policy decision point request (e.g. 10s)")
	flags.Int("pdp-ready-attempts", contract.DefaultReadyAttempts, "Health probe attempts before giving up")
	flags.String("pdp-ready-interval", "", "Pause between health probe attempts (e.g. 2s)")
	flags.Int("pdp-attempts", contract.DefaultDecideAttempts, "Attempts for the authorization request")
	flags.String("jira-url", "", "Base URL of the exception tracker (empty disables exceptions)")
	flags.String("jira-user", "", "Exception tracker user")
	flags.String("jira-token", "", "Exception tracker API token (prefer GATEKEEPER_JIRA_TOKEN)")
	flags.String("jira-timeout", "", "Timeout of exception tracker requests (e.g. 15s)")
	flags.String("app-id", "", "Application id that exceptions must reference")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding evaluate flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
