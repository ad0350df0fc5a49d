package core

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/gatekeeper/schema"
)

// CVSS breakpoints used when a finding carries a score but no usable label.
const (
	criticalScore = 9.0
	highScore     = 7.0
	mediumScore   = 4.0
)

// entryListKeys are probed in order for the list of findings.
var entryListKeys = []string{"vulnerabilities", "issues", "data"}

// ClassifySeverities counts findings per tier. It returns nil when there is no document.
func ClassifySeverities(parsed any) *schema.SeverityCounts {
	if parsed == nil {
		return nil
	}
	counts := CountSeverities(ParseVulnerabilities(parsed))
	return &counts
}

// CountSeverities tallies records. Unknown findings are excluded from the total.
func CountSeverities(records []schema.VulnerabilityRecord) schema.SeverityCounts {
	var c schema.SeverityCounts
	for _, r := range records {
		switch r.Severity {
		case schema.SeverityCritical:
			c.Critical++
		case schema.SeverityHigh:
			c.High++
		case schema.SeverityMedium:
			c.Medium++
		case schema.SeverityLow:
			c.Low++
		default:
			c.Unknown++
			continue
		}
		c.Total++
	}
	return c
}

// ParseVulnerabilities normalizes the findings of a vulnerability report.
// Entries that are not objects are skipped.
func ParseVulnerabilities(parsed any) []schema.VulnerabilityRecord {
	var records []schema.VulnerabilityRecord
	for _, raw := range findEntries(parsed) {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, toRecord(entry))
	}
	return records
}

// findEntries locates the list of findings in the known report shapes.
func findEntries(parsed any) []any {
	switch doc := parsed.(type) {
	case []any:
		// Multi-project reports are a list of objects that each carry their own findings.
		var out []any
		for _, item := range doc {
			if m, ok := item.(map[string]any); ok {
				if nested, ok := m["vulnerabilities"].([]any); ok {
					out = append(out, nested...)
					continue
				}
			}
			out = append(out, item)
		}
		return out
	case map[string]any:
		for _, key := range entryListKeys {
			if list, ok := doc[key].([]any); ok {
				return list
			}
		}
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if list, ok := doc[k].([]any); ok {
				return list
			}
		}
	}
	return nil
}

func toRecord(entry map[string]any) schema.VulnerabilityRecord {
	r := schema.VulnerabilityRecord{
		ID:          firstString(entry, "id", "ruleId"),
		PackageName: firstString(entry, "packageName", "package", "moduleName"),
		Version:     firstString(entry, "version"),
		Title:       firstString(entry, "title", "message"),
		Severity:    schema.SeverityUnknown,
	}

	attrs, _ := entry["attributes"].(map[string]any)

	if score, ok := firstNumber(entry, "cvssScore", "cvss_score", "score"); ok {
		r.Score = &score
	} else if score, ok := firstNumber(attrs, "score"); ok {
		r.Score = &score
	}

	label := firstString(entry, "severity")
	if label == "" {
		label = firstString(attrs, "severity")
	}
	if label == "" {
		label = firstString(entry, "level")
	}
	if sev, ok := schema.ParseSeverity(label); ok {
		r.Severity = sev
	} else if r.Score != nil {
		r.Severity = SeverityFromScore(*r.Score)
	}
	return r
}

// SeverityFromScore maps a CVSS score onto a severity tier.
func SeverityFromScore(score float64) schema.Severity {
	switch {
	case score >= criticalScore:
		return schema.SeverityCritical
	case score >= highScore:
		return schema.SeverityHigh
	case score >= mediumScore:
		return schema.SeverityMedium
	default:
		return schema.SeverityLow
	}
}

// firstString returns the first non-empty string value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// firstNumber returns the first numeric value among keys. Numeric strings are accepted.
func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// toFloat reads a finite number. NaN and infinities are treated as unusable.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
