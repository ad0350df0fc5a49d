package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/loader"
	"github.com/huangsam/gatekeeper/internal/pdp"
	"github.com/huangsam/gatekeeper/schema"
	"golang.org/x/sync/errgroup"
)

// exceptionGates are the enforcing gates whose failures may be waived by an approved exception.
var exceptionGates = []schema.GateID{schema.GateCodeQuality, schema.GateApprovedParameters, schema.GateReleaseBranch}

// EvaluationDeps are the external collaborators of an evaluation run.
// A nil Decider skips the policy gate; a nil Checker skips exception lookups.
type EvaluationDeps struct {
	Logger  *slog.Logger
	Decider contract.PolicyDecider
	Checker contract.ExceptionChecker
	Clock   func() time.Time
}

// EvaluationBuilder builds the decision document using a builder pattern.
type EvaluationBuilder struct {
	ctx    context.Context
	cfg    *contract.Config
	deps   EvaluationDeps
	loader *loader.Loader

	runID      string
	startedAt  time.Time
	run        schema.RunContext
	snykDoc    any
	sonarDoc   any
	records    []schema.VulnerabilityRecord
	counts     *schema.SeverityCounts
	metrics    *schema.QualityMetrics
	thresholds schema.ThresholdSet
	gates      []schema.GateResult
	role       *schema.RoleAlignment
	final      schema.FinalDecision
	result     *schema.DecisionDocument
}

// NewEvaluationBuilder creates a new builder for one evaluation run.
func NewEvaluationBuilder(ctx context.Context, cfg *contract.Config, deps EvaluationDeps) *EvaluationBuilder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &EvaluationBuilder{
		ctx:       ctx,
		cfg:       cfg,
		deps:      deps,
		loader:    loader.New(deps.Logger),
		runID:     uuid.NewString(),
		startedAt: deps.Clock().UTC(),
		run:       cfg.Run,
	}
}

// LoadInputs reads both scan directories and the quality parameters in use.
// Missing scans are not errors; an unreadable properties file is.
func (b *EvaluationBuilder) LoadInputs() (*EvaluationBuilder, error) {
	b.snykDoc = b.loader.Load(b.cfg.SnykDir, b.cfg.SnykCandidates)
	b.sonarDoc = b.loader.Load(b.cfg.SonarDir, b.cfg.SonarCandidates)
	if b.snykDoc == nil {
		b.deps.Logger.Info("no vulnerability scan found", "dir", b.cfg.SnykDir)
	}
	if b.sonarDoc == nil {
		b.deps.Logger.Info("no quality scan found", "dir", b.cfg.SonarDir)
	}

	if len(b.run.QualityParameters) == 0 && b.cfg.QualityPropertiesFile != "" {
		params, err := loader.ReadQualityParameters(b.cfg.QualityPropertiesFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", contract.ErrInvalidConfig, err)
		}
		b.run.QualityParameters = params
	}
	return b, nil
}

// ResolveThresholds builds the effective threshold set for the run.
func (b *EvaluationBuilder) ResolveThresholds() (*EvaluationBuilder, error) {
	set, err := LoadThresholds(b.deps.Logger, b.cfg.ThresholdsFile, b.run.ProjectKey(), b.cfg.ThresholdsOverride)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contract.ErrInvalidConfig, err)
	}
	b.thresholds = set
	return b, nil
}

// Normalize turns the raw scan documents into counts and metrics.
func (b *EvaluationBuilder) Normalize() *EvaluationBuilder {
	if b.snykDoc != nil {
		b.records = ParseVulnerabilities(b.snykDoc)
		b.counts = ClassifySeverities(b.snykDoc)
		b.deps.Logger.Debug("classified vulnerabilities",
			"critical", b.counts.Critical, "high", b.counts.High,
			"medium", b.counts.Medium, "low", b.counts.Low, "unknown", b.counts.Unknown)
	}
	b.metrics = ExtractMetrics(b.sonarDoc)
	if b.sonarDoc != nil && b.metrics == nil {
		b.deps.Logger.Warn("quality scan did not match any known shape", "dir", b.cfg.SonarDir)
	}
	return b
}

// RunGates evaluates local rules and the policy gate concurrently.
// Any policy decision point failure aborts the run.
func (b *EvaluationBuilder) RunGates() (*EvaluationBuilder, error) {
	in := Inputs{
		Counts:                b.counts,
		Metrics:               b.metrics,
		Thresholds:            b.thresholds,
		Run:                   b.run,
		ProtectedEnvironments: b.cfg.ProtectedEnvironments,
	}

	var local []schema.GateResult
	var policy *schema.GateResult

	g, ctx := errgroup.WithContext(b.ctx)
	g.Go(func() error {
		res, err := EvaluateLocalGates(ctx, in)
		local = res
		return err
	})
	if b.deps.Decider != nil {
		g.Go(func() error {
			res, err := b.runPolicyGate(ctx)
			policy = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.gates = local
	if policy != nil {
		b.gates = append(b.gates, *policy)
	}
	SortGates(b.gates)
	return b, nil
}

func (b *EvaluationBuilder) runPolicyGate(ctx context.Context) (*schema.GateResult, error) {
	if err := b.deps.Decider.WaitReady(ctx); err != nil {
		return nil, err
	}
	req := pdp.BuildRequest(b.records, b.counts, pdp.RequestOptions{
		Tenant: b.cfg.Policy.Tenant,
		Run:    b.run,
		Now:    b.deps.Clock(),
	})
	decision, err := b.deps.Decider.Decide(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := pdp.Classify(decision, b.counts)
	b.deps.Logger.Info("policy decision", "outcome", outcome)

	alignment := pdp.ValidateRole(b.run.Role, decision, b.cfg.PrivilegedRoles)
	b.role = &alignment
	if !alignment.Aligned {
		b.deps.Logger.Warn("role mismatch", "intended", alignment.IntendedRole, "actual", alignment.ActualRole, "source", alignment.Source)
	}

	res := PolicyGateResult(outcome, decision)
	return &res, nil
}

// ApplyExceptions downgrades failing waivable gates that have an approved exception.
// Tracker errors leave the gate failing.
func (b *EvaluationBuilder) ApplyExceptions() *EvaluationBuilder {
	if b.deps.Checker == nil {
		return b
	}
	for i, gate := range b.gates {
		if gate.Status != schema.StatusFail || !slices.Contains(exceptionGates, gate.ID) {
			continue
		}
		approval, err := b.deps.Checker.CheckException(b.ctx, gate.ID)
		if err != nil {
			b.deps.Logger.Warn("exception lookup failed", "gate", gate.ID, "error", err)
			continue
		}
		b.gates[i] = withException(gate, approval)
	}
	return b
}

// withException records the approval on a copy of gate, downgrading it when approved.
func withException(gate schema.GateResult, approval schema.ExceptionApproval) schema.GateResult {
	details := make(map[string]any, len(gate.Details)+1)
	for k, v := range gate.Details {
		details[k] = v
	}
	details["exception"] = approval
	gate.Details = details
	if approval.Approved {
		gate.Status = schema.StatusWarn
	}
	return gate
}

// Aggregate computes the final decision.
func (b *EvaluationBuilder) Aggregate() *EvaluationBuilder {
	b.final = Aggregate(b.gates)
	return b
}

// BuildDocument constructs the final DecisionDocument.
func (b *EvaluationBuilder) BuildDocument() *EvaluationBuilder {
	b.result = &schema.DecisionDocument{
		RunID:         b.runID,
		FinalDecision: b.final.Decision,
		Gates:         b.final.Gates,
		Ref:           b.run.Branch,
		Target:        b.run.Environment,
		Repository:    b.run.Repository,
		Commit:        b.run.Commit,
		StartedAt:     b.startedAt,
		EvaluatedAt:   b.deps.Clock().UTC(),
		Thresholds:    b.thresholds,
		RoleAlignment: b.role,
	}
	return b
}

// GetResult returns the built DecisionDocument.
func (b *EvaluationBuilder) GetResult() *schema.DecisionDocument {
	return b.result
}

// RunContext returns the run context after quality parameters were resolved.
func (b *EvaluationBuilder) RunContext() schema.RunContext {
	return b.run
}
