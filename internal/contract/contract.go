// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/gatekeeper/schema"
)

// GitClient reads the run context of a local working copy.
// This allows run context detection to be tested without a real git executable.
type GitClient interface {
	// Run executes a git command in repoPath and returns its stdout.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoRoot returns the top-level directory of the working copy containing contextPath.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetBranch returns the checked out branch, or an error on a detached HEAD.
	GetBranch(ctx context.Context, repoPath string) (string, error)

	// GetHeadCommit returns the full hash of HEAD.
	GetHeadCommit(ctx context.Context, repoPath string) (string, error)

	// GetRemoteRepository returns the owner/name slug of the origin remote.
	GetRemoteRepository(ctx context.Context, repoPath string) (string, error)
}

// PolicyDecider talks to the external policy decision point.
// This allows the evaluation pipeline to be tested without a live PDP.
type PolicyDecider interface {
	// WaitReady blocks until the PDP reports healthy or the attempt budget is spent.
	WaitReady(ctx context.Context) error

	// Decide posts an authorization request and returns the decoded response.
	Decide(ctx context.Context, req schema.PolicyRequest) (schema.PolicyDecision, error)
}

// ExceptionChecker looks up approved exceptions for failing enforcing gates.
type ExceptionChecker interface {
	CheckException(ctx context.Context, gate schema.GateID) (schema.ExceptionApproval, error)
}

// HistoryStore records evaluation runs for later audit.
type HistoryStore interface {
	// RecordRun stores the decision document and one row per gate.
	RecordRun(ctx context.Context, doc *schema.DecisionDocument, run schema.RunContext) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run ordered by start time.
	GetAllRuns() ([]schema.HistoryRunRecord, error)

	// GetAllGateResults returns every recorded gate row ordered by run and position.
	GetAllGateResults() ([]schema.HistoryGateRecord, error)

	// Clear removes every recorded run.
	Clear() error

	// Close closes the underlying connection
	Close() error
}
