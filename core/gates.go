package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/huangsam/gatekeeper/schema"
	"golang.org/x/sync/errgroup"
)

// localRules maps every locally evaluated gate to its rule.
var localRules = map[schema.GateID]Rule{
	schema.GateHighVulnerability:     highVulnerabilityRule,
	schema.GateMediumVulnerability:   mediumVulnerabilityRule,
	schema.GateCriticalVulnerability: criticalVulnerabilityRule,
	schema.GateDeveloperThresholds:   developerThresholdsRule,
	schema.GateCodeQuality:           codeQualityRule,
	schema.GateApprovedParameters:    approvedParametersRule,
	schema.GateExpressLane:           expressLaneRule,
	schema.GateReleaseBranch:         releaseBranchRule,
}

// LocalGateIDs returns the locally evaluated gates in catalog order.
func LocalGateIDs() []schema.GateID {
	ids := make([]schema.GateID, 0, len(localRules))
	for _, id := range schema.AllGateIDs {
		if _, ok := localRules[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// EvaluateGate runs a single local rule.
func EvaluateGate(id schema.GateID, in Inputs) (schema.GateResult, error) {
	rule, ok := localRules[id]
	if !ok {
		return schema.GateResult{}, fmt.Errorf("gate %s has no local rule", id)
	}
	return rule(in), nil
}

// EvaluateLocalGates runs every local rule concurrently and returns results in catalog order.
func EvaluateLocalGates(ctx context.Context, in Inputs) ([]schema.GateResult, error) {
	ids := LocalGateIDs()
	results := make([]schema.GateResult, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := EvaluateGate(id, in)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// PolicyGateStatus maps a classified policy outcome onto a gate status.
func PolicyGateStatus(outcome schema.PolicyOutcome) schema.GateStatus {
	switch outcome {
	case schema.PolicyPass, schema.PolicyPassWithInfo:
		return schema.StatusPass
	case schema.PolicyPassWithWarnings, schema.PolicyPassOverride:
		return schema.StatusWarn
	default:
		return schema.StatusFail
	}
}

// PolicyGateResult builds the delegated gate result from a classified outcome.
func PolicyGateResult(outcome schema.PolicyOutcome, decision schema.PolicyDecision) schema.GateResult {
	details := map[string]any{"policy_outcome": outcome}
	if decision.Allow != nil {
		details["allow"] = *decision.Allow
	}
	if len(decision.Violations) > 0 {
		details["violations"] = decision.Violations
	}
	return newResult(schema.GatePolicyDecision, PolicyGateStatus(outcome), details)
}

// SortGates orders results by catalog position. Unknown gates go last.
func SortGates(gates []schema.GateResult) {
	slices.SortStableFunc(gates, func(a, b schema.GateResult) int {
		pa, pb := a.ID.Position(), b.ID.Position()
		if pa < 0 {
			pa = len(schema.GateCatalog)
		}
		if pb < 0 {
			pb = len(schema.GateCatalog)
		}
		return pa - pb
	})
}
