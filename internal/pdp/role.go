package pdp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/gatekeeper/schema"
)

// UnprivilegedRole is inferred when a privileged caller is denied without a role in the trace.
const UnprivilegedRole = "unprivileged"

// Role sources reported in the alignment.
const (
	sourceHeuristic = "heuristic"
	sourceNone      = "none"
)

// rolePaths are the debug trace locations that may carry the effective role, in priority order.
// A numeric segment indexes into a list.
var rolePaths = [][]string{
	{"rbac", "allowing_roles", "0", "role"},
	{"rbac", "user", "roles", "0"},
	{"user", "roles", "0"},
	{"user", "attributes", "role"},
	{"request", "user", "attributes", "role"},
	{"role"},
}

// ValidateRole compares the declared role with the role the decision point actually used.
// The result is advisory and never changes the gate outcome.
func ValidateRole(intendedRole string, decision schema.PolicyDecision, privileged []string) schema.RoleAlignment {
	intended := strings.TrimSpace(intendedRole)
	a := schema.RoleAlignment{IntendedRole: intended, Source: sourceNone}

	actual, source := extractRole(decision.Debug)
	if actual == "" && decision.Allow != nil && !*decision.Allow && isPrivileged(intended, privileged) {
		actual, source = UnprivilegedRole, sourceHeuristic
	}
	a.ActualRole = actual
	if actual != "" {
		a.Source = source
	}

	switch {
	case actual == "":
		a.Aligned = true
		a.Message = "Policy response did not report an effective role"
		a.Consequence = "No action required"
	case intended == "":
		a.Aligned = false
		a.Message = fmt.Sprintf("No role was declared; policy evaluated as %q", actual)
		a.Consequence = "The role configured in the policy decision point is authoritative"
	case strings.EqualFold(intended, actual):
		a.Aligned = true
		a.Message = fmt.Sprintf("Declared role %q matches the effective role", intended)
		a.Consequence = "No action required"
	default:
		a.Aligned = false
		a.Message = fmt.Sprintf("Declared role %q but policy evaluated as %q", intended, actual)
		a.Consequence = "The role configured in the policy decision point is authoritative; update the pipeline role or the policy assignment"
	}
	return a
}

// extractRole walks rolePaths and returns the first non-empty role with its dotted path.
func extractRole(debug map[string]any) (string, string) {
	if debug == nil {
		return "", ""
	}
	for _, path := range rolePaths {
		if role, ok := lookupString(debug, path); ok {
			return role, "debug." + strings.Join(path, ".")
		}
	}
	return "", ""
}

func lookupString(root map[string]any, path []string) (string, bool) {
	var cur any = root
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			if seg != "0" || len(node) == 0 {
				return "", false
			}
			cur = node[0]
		default:
			return "", false
		}
	}
	s, ok := cur.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func isPrivileged(role string, privileged []string) bool {
	return slices.ContainsFunc(privileged, func(p string) bool {
		return strings.EqualFold(p, role)
	})
}
