package core

import (
	"slices"

	"github.com/huangsam/gatekeeper/schema"
)

// Aggregate computes the final decision over gates in their given order.
// FAIL requires an enforcing failure. Advisory failures do not raise the decision.
func Aggregate(gates []schema.GateResult) schema.FinalDecision {
	ordered := slices.Clone(gates)
	decision := schema.DecisionPass
	for _, g := range ordered {
		if g.Category == schema.Enforcing && g.Status == schema.StatusFail {
			return schema.FinalDecision{Decision: schema.DecisionFail, Gates: ordered}
		}
		if g.Status == schema.StatusWarn {
			decision = schema.DecisionWarn
		}
	}
	return schema.FinalDecision{Decision: decision, Gates: ordered}
}
