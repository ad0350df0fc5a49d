package cmd

import (
	"github.com/huangsam/gatekeeper/core"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/history"
	"github.com/spf13/cobra"
)

// evaluateCmd focused on CI/CD deployment gating.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate deployment gates and block the pipeline on enforcing failures",
	Long: `Read Snyk and SonarQube results, apply every deployment gate, consult the
policy decision point and write an auditable decision document.

Exit codes:
  0 - PASS or WARN, the deployment may proceed
  1 - FAIL, an enforcing gate blocked the deployment
  2 - configuration or infrastructure error

Gates that block (ENFORCING):
- gatr-08 code quality gate status and blocker issues
- gatr-09 approved analysis parameters only
- gatr-14 main or release/* branch for protected environments
- gatr-pdp policy decision point outcome

Advisory gates (NON_ENFORCING) only ever raise WARN, including critical findings.

Examples:
  # Evaluate a production deployment
  gatekeeper evaluate --snyk-dir scans/snyk --sonar-dir scans/sonar \
    --environment PROD --branch "$GITHUB_REF" --repository "$GITHUB_REPOSITORY"

  # Skip the policy gate and relax the high severity limit
  gatekeeper evaluate --environment DEV --branch feature/x --thresholds-override "high:10"

  # Record the run for auditing
  GATEKEEPER_HISTORY_BACKEND=sqlite gatekeeper evaluate --environment UAT --branch main`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := history.OpenFromConfig(cfg)
		if err != nil {
			contract.LogWarn("History store unavailable, run will not be recorded", err)
		}

		err = core.ExecuteEvaluation(rootCtx, cfg, store)
		if store != nil {
			_ = store.Close()
		}
		if err != nil {
			contract.LogFatal("Gate evaluation failed", err)
		}
	},
}
