package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/exception"
	"github.com/huangsam/gatekeeper/internal/outwriter"
	"github.com/huangsam/gatekeeper/internal/pdp"
	"github.com/huangsam/gatekeeper/schema"
)

// NewEvaluationDeps wires the external collaborators enabled by cfg.
func NewEvaluationDeps(cfg *contract.Config, logger *slog.Logger) EvaluationDeps {
	if logger == nil {
		logger = slog.Default()
	}
	deps := EvaluationDeps{Logger: logger}
	if cfg.Policy.Enabled() {
		deps.Decider = pdp.NewClient(cfg.Policy, logger)
	} else {
		logger.Info("policy decision point not configured, skipping policy gate")
	}
	if cfg.Exception.Enabled() {
		deps.Checker = exception.NewJiraChecker(cfg.Exception, logger)
	}
	return deps
}

// EvaluateGates runs every evaluation step and returns the decision document.
// It performs no output and does not touch the history store.
func EvaluateGates(ctx context.Context, cfg *contract.Config, deps EvaluationDeps) (*schema.DecisionDocument, schema.RunContext, error) {
	builder := NewEvaluationBuilder(ctx, cfg, deps)

	if _, err := builder.LoadInputs(); err != nil {
		return nil, schema.RunContext{}, err
	}
	if _, err := builder.ResolveThresholds(); err != nil {
		return nil, schema.RunContext{}, err
	}
	builder.Normalize()
	if _, err := builder.RunGates(); err != nil {
		return nil, schema.RunContext{}, err
	}
	builder.ApplyExceptions().Aggregate().BuildDocument()

	return builder.GetResult(), builder.RunContext(), nil
}

// ExecuteEvaluation runs the evaluate command for CI/CD gating.
// It writes the decision document, prints the report, records history when a store is given,
// and returns an exit-coded error when an enforcing gate failed.
func ExecuteEvaluation(ctx context.Context, cfg *contract.Config, store contract.HistoryStore) error {
	start := time.Now()
	logger := slog.Default()

	doc, run, err := EvaluateGates(ctx, cfg, NewEvaluationDeps(cfg, logger))
	if err != nil {
		return err
	}

	ow := outwriter.NewOutWriter()
	if err := ow.WriteDocument(doc, cfg); err != nil {
		return fmt.Errorf("failed to write decision document: %w", err)
	}
	if err := ow.WriteReport(doc, cfg, time.Since(start)); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if store != nil {
		if err := store.RecordRun(ctx, doc, run); err != nil {
			contract.LogWarn("Failed to record evaluation history", err)
		}
	}

	if doc.FinalDecision == schema.DecisionFail {
		return &contract.ExitError{
			Code: contract.ExitCodeBlocked,
			Err:  fmt.Errorf("deployment blocked: %d enforcing gate(s) failed", countEnforcingFailures(doc.Gates)),
		}
	}
	return nil
}

func countEnforcingFailures(gates []schema.GateResult) int {
	n := 0
	for _, g := range gates {
		if g.Category == schema.Enforcing && g.Status == schema.StatusFail {
			n++
		}
	}
	return n
}
