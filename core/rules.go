package core

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
)

const dataUnavailableNote = "data unavailable"

// Release branches accepted for protected environments.
var releaseBranchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^main$`),
	regexp.MustCompile(`^release/.*$`),
}

// Inputs is everything a local gate rule may read.
type Inputs struct {
	Counts                *schema.SeverityCounts // nil when no vulnerability report was found
	Metrics               *schema.QualityMetrics // nil when no quality report was found
	Thresholds            schema.ThresholdSet
	Run                   schema.RunContext
	ProtectedEnvironments []string
}

// Rule is a pure gate evaluation.
type Rule func(in Inputs) schema.GateResult

// newResult builds a result whose category comes from the catalog.
func newResult(id schema.GateID, status schema.GateStatus, details map[string]any) schema.GateResult {
	if details == nil {
		details = map[string]any{}
	}
	return schema.GateResult{ID: id, Category: id.Category(), Status: status, Details: details}
}

func unavailable(id schema.GateID, source string) schema.GateResult {
	return newResult(id, schema.StatusPass, map[string]any{
		"data_available": false,
		"note":           fmt.Sprintf("%s %s", source, dataUnavailableNote),
	})
}

// criticalVulnerabilityRule warns on any critical finding. It never blocks.
func criticalVulnerabilityRule(in Inputs) schema.GateResult {
	if in.Counts == nil {
		return unavailable(schema.GateCriticalVulnerability, "vulnerability scan")
	}
	details := map[string]any{
		"found":   in.Counts.Critical,
		"allowed": in.Thresholds.VulnerabilitySeverityLimits.Critical,
	}
	if in.Counts.Critical > 0 {
		details["reason"] = fmt.Sprintf("%d critical vulnerabilities found", in.Counts.Critical)
		return newResult(schema.GateCriticalVulnerability, schema.StatusWarn, details)
	}
	return newResult(schema.GateCriticalVulnerability, schema.StatusPass, details)
}

func highVulnerabilityRule(in Inputs) schema.GateResult {
	if in.Counts == nil {
		return unavailable(schema.GateHighVulnerability, "vulnerability scan")
	}
	return severityLimitResult(schema.GateHighVulnerability, schema.SeverityHigh, in.Counts.High, in.Thresholds.VulnerabilitySeverityLimits.High)
}

func mediumVulnerabilityRule(in Inputs) schema.GateResult {
	if in.Counts == nil {
		return unavailable(schema.GateMediumVulnerability, "vulnerability scan")
	}
	return severityLimitResult(schema.GateMediumVulnerability, schema.SeverityMedium, in.Counts.Medium, in.Thresholds.VulnerabilitySeverityLimits.Medium)
}

func severityLimitResult(id schema.GateID, sev schema.Severity, found, allowed int) schema.GateResult {
	details := map[string]any{"found": found, "allowed": allowed}
	if found > allowed {
		details["reason"] = fmt.Sprintf("%d %s vulnerabilities exceed the limit of %d", found, sev, allowed)
		return newResult(id, schema.StatusWarn, details)
	}
	return newResult(id, schema.StatusPass, details)
}

// developerThresholdsRule lists every quality metric outside the developer thresholds.
func developerThresholdsRule(in Inputs) schema.GateResult {
	if in.Metrics == nil {
		return unavailable(schema.GateDeveloperThresholds, "quality scan")
	}
	m, q := in.Metrics, in.Thresholds.Quality
	var breaches, missing []string

	if m.Coverage == nil {
		missing = append(missing, "coverage")
	} else if *m.Coverage < q.Coverage {
		breaches = append(breaches, fmt.Sprintf("coverage %.1f%% is below %.1f%%", *m.Coverage, q.Coverage))
	}
	counts := []struct {
		name  string
		value *int
		limit int
	}{
		{"bugs", m.Bugs, q.Bugs},
		{"vulnerabilities", m.Vulnerabilities, q.Vulnerabilities},
		{"code_smells", m.CodeSmells, q.CodeSmells},
	}
	for _, c := range counts {
		switch {
		case c.value == nil:
			missing = append(missing, c.name)
		case *c.value > c.limit:
			breaches = append(breaches, fmt.Sprintf("%s %d exceeds %d", c.name, *c.value, c.limit))
		}
	}

	details := map[string]any{}
	if len(missing) > 0 {
		details["unavailable"] = missing
	}
	if len(breaches) > 0 {
		details["breaches"] = breaches
		return newResult(schema.GateDeveloperThresholds, schema.StatusWarn, details)
	}
	return newResult(schema.GateDeveloperThresholds, schema.StatusPass, details)
}

// codeQualityRule blocks on a failed quality gate or a failed blocker condition.
func codeQualityRule(in Inputs) schema.GateResult {
	if in.Metrics == nil {
		return unavailable(schema.GateCodeQuality, "quality scan")
	}
	details := map[string]any{}
	status := ""
	if in.Metrics.QualityGateStatus != nil {
		status = strings.ToUpper(*in.Metrics.QualityGateStatus)
		details["quality_gate_status"] = status
	} else {
		details["quality_gate_status"] = dataUnavailableNote
	}

	var blockers []string
	for _, c := range in.Metrics.Conditions {
		if strings.Contains(c.MetricKey, "blocker") && strings.EqualFold(c.Status, "ERROR") {
			blockers = append(blockers, c.MetricKey)
		}
	}

	switch {
	case len(blockers) > 0:
		details["blocker_conditions"] = blockers
		details["reason"] = "Blocker issues detected"
		return newResult(schema.GateCodeQuality, schema.StatusFail, details)
	case status == "ERROR":
		details["reason"] = "Quality gate failed"
		return newResult(schema.GateCodeQuality, schema.StatusFail, details)
	}
	return newResult(schema.GateCodeQuality, schema.StatusPass, details)
}

// approvedParametersRule blocks when a used quality tool parameter is not on the allow-list.
func approvedParametersRule(in Inputs) schema.GateResult {
	seen := slices.Clone(in.Run.QualityParameters)
	if seen == nil {
		seen = []string{}
	}
	var disallowed []string
	for _, p := range seen {
		if !in.Thresholds.IsApproved(p) && !slices.Contains(disallowed, p) {
			disallowed = append(disallowed, p)
		}
	}
	if len(disallowed) > 0 {
		return newResult(schema.GateApprovedParameters, schema.StatusFail, map[string]any{
			"disallowed_parameters": disallowed,
			"reason":                "Disallowed Sonar parameters detected",
		})
	}
	return newResult(schema.GateApprovedParameters, schema.StatusPass, map[string]any{
		"parameters_seen": seen,
	})
}

// expressLaneRule compares metrics with the looser express lane thresholds.
func expressLaneRule(in Inputs) schema.GateResult {
	if in.Metrics == nil {
		return unavailable(schema.GateExpressLane, "quality scan")
	}
	m, e := in.Metrics, in.Thresholds.Quality.ExpressLane
	var breaches, missing []string

	floats := []struct {
		name  string
		value *float64
		min   float64
	}{
		{"coverage", m.Coverage, e.CoverageThreshold},
		{"test_success", m.TestSuccess, e.TestSuccessThreshold},
	}
	for _, f := range floats {
		switch {
		case f.value == nil:
			missing = append(missing, f.name)
		case *f.value < f.min:
			breaches = append(breaches, fmt.Sprintf("%s %.1f%% is below %.1f%%", f.name, *f.value, f.min))
		}
	}

	ratings := []struct {
		name  string
		value *schema.Rating
		max   schema.Rating
	}{
		{"security_rating", m.Ratings.Security, e.MaxSecurityRating},
		{"reliability_rating", m.Ratings.Reliability, e.MaxReliabilityRating},
	}
	for _, r := range ratings {
		switch {
		case r.value == nil:
			missing = append(missing, r.name)
		case r.value.Worse(r.max):
			breaches = append(breaches, fmt.Sprintf("%s %s is worse than %s", r.name, *r.value, r.max))
		}
	}

	details := map[string]any{}
	if len(missing) > 0 {
		details["unavailable"] = missing
	}
	if len(breaches) > 0 {
		details["breaches"] = breaches
		return newResult(schema.GateExpressLane, schema.StatusWarn, details)
	}
	return newResult(schema.GateExpressLane, schema.StatusPass, details)
}

// releaseBranchRule restricts protected environments to main and release/* branches.
func releaseBranchRule(in Inputs) schema.GateResult {
	branch := schema.NormalizeBranch(in.Run.Branch)
	details := map[string]any{
		"branch":      branch,
		"environment": in.Run.Environment,
	}
	protected := in.ProtectedEnvironments
	if len(protected) == 0 {
		protected = contract.DefaultProtectedEnvironments
	}
	if !isProtected(in.Run.Environment, protected) {
		return newResult(schema.GateReleaseBranch, schema.StatusPass, details)
	}
	for _, p := range releaseBranchPatterns {
		if p.MatchString(branch) {
			return newResult(schema.GateReleaseBranch, schema.StatusPass, details)
		}
	}
	details["reason"] = "Only main or release/* allowed for UAT/PROD"
	return newResult(schema.GateReleaseBranch, schema.StatusFail, details)
}

func isProtected(env string, protected []string) bool {
	env = strings.TrimSpace(env)
	for _, p := range protected {
		if strings.EqualFold(env, p) {
			return true
		}
	}
	return false
}
