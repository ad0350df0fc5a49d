package pdp

import "github.com/huangsam/gatekeeper/schema"

// Classify maps a decision and the scan counts onto a policy outcome.
// An allowed deployment is graded by the most severe tier that still has findings.
func Classify(decision schema.PolicyDecision, counts *schema.SeverityCounts) schema.PolicyOutcome {
	if decision.Allow == nil {
		return schema.PolicyUnknown
	}
	if !*decision.Allow {
		return schema.PolicyFail
	}
	if counts == nil {
		return schema.PolicyPass
	}
	switch {
	case counts.Critical > 0:
		return schema.PolicyPassOverride
	case counts.High > 0:
		return schema.PolicyPassWithWarnings
	case counts.Medium > 0:
		return schema.PolicyPassWithInfo
	default:
		return schema.PolicyPass
	}
}
