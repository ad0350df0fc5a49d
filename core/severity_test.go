package core

import (
	"encoding/json"
	"testing"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestClassifySeveritiesLabels(t *testing.T) {
	doc := decode(t, `{"vulnerabilities": [
		{"id": "A", "severity": "critical"},
		{"id": "B", "severity": "HIGH"},
		{"id": "C", "severity": "high"},
		{"id": "D", "severity": "Medium"},
		{"id": "E", "severity": "low"}
	]}`)
	counts := ClassifySeverities(doc)
	require.NotNil(t, counts)
	assert.Equal(t, schema.SeverityCounts{Critical: 1, High: 2, Medium: 1, Low: 1, Total: 5}, *counts)
}

func TestClassifySeveritiesScoreFallback(t *testing.T) {
	doc := decode(t, `{"vulnerabilities": [
		{"id": "A", "cvssScore": 9.8},
		{"id": "B", "severity": "bogus", "cvssScore": 7.0},
		{"id": "C", "attributes": {"score": "5.5"}},
		{"id": "D", "score": 1.2},
		{"id": "E"},
		{"id": "F", "severity": "none"},
		"not an object",
		42
	]}`)
	counts := ClassifySeverities(doc)
	require.NotNil(t, counts)
	assert.Equal(t, 1, counts.Critical)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 1, counts.Medium)
	assert.Equal(t, 1, counts.Low)
	assert.Equal(t, 2, counts.Unknown)
	assert.Equal(t, 4, counts.Total)
}

func TestClassifySeveritiesNonFiniteScore(t *testing.T) {
	doc := decode(t, `{"vulnerabilities": [
		{"id": "A", "cvssScore": "NaN"},
		{"id": "B", "cvssScore": "Inf"},
		{"id": "C", "cvssScore": "-Inf", "score": 8.1}
	]}`)
	counts := ClassifySeverities(doc)
	require.NotNil(t, counts)
	assert.Equal(t, 2, counts.Unknown)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 1, counts.Total)

	records := ParseVulnerabilities(doc)
	require.Len(t, records, 3)
	assert.Nil(t, records[0].Score)
}

func TestClassifySeveritiesShapes(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		total int
	}{
		{"issues key", `{"issues": [{"severity": "high"}]}`, 1},
		{"data key", `{"data": [{"severity": "low"}, {"severity": "low"}]}`, 2},
		{"first list under sorted keys", `{"zeta": [{"severity": "low"}], "alpha": [{"severity": "high"}, {"severity": "high"}]}`, 2},
		{"multi project list", `[{"vulnerabilities": [{"severity": "high"}]}, {"vulnerabilities": [{"severity": "low"}, {"severity": "medium"}]}]`, 3},
		{"flat list", `[{"severity": "critical"}]`, 1},
		{"empty list", `{"vulnerabilities": []}`, 0},
		{"no list", `{"ok": true}`, 0},
		{"scalar document", `"text"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := ClassifySeverities(decode(t, tt.doc))
			require.NotNil(t, counts)
			assert.Equal(t, tt.total, counts.Total)
		})
	}
}

func TestClassifySeveritiesNoDocument(t *testing.T) {
	assert.Nil(t, ClassifySeverities(nil))
}

func TestCountSeveritiesTotalExcludesUnknown(t *testing.T) {
	records := []schema.VulnerabilityRecord{
		{Severity: schema.SeverityHigh},
		{Severity: schema.SeverityUnknown},
		{Severity: schema.SeverityUnknown},
	}
	c := CountSeverities(records)
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 2, c.Unknown)
	assert.Equal(t, c.Critical+c.High+c.Medium+c.Low, c.Total)
}

func TestParseVulnerabilitiesFields(t *testing.T) {
	doc := decode(t, `{"vulnerabilities": [
		{"id": "SNYK-1", "packageName": "lodash", "version": "4.17.0", "title": "Prototype Pollution", "cvssScore": 7.5},
		{"ruleId": "R-2", "moduleName": "left-pad", "message": "Bad pad", "attributes": {"severity": "medium"}}
	]}`)
	records := ParseVulnerabilities(doc)
	require.Len(t, records, 2)

	assert.Equal(t, "SNYK-1", records[0].ID)
	assert.Equal(t, "lodash", records[0].PackageName)
	assert.Equal(t, "4.17.0", records[0].Version)
	assert.Equal(t, "Prototype Pollution", records[0].Title)
	assert.Equal(t, schema.SeverityHigh, records[0].Severity)
	require.NotNil(t, records[0].Score)
	assert.InDelta(t, 7.5, *records[0].Score, 0.001)

	assert.Equal(t, "R-2", records[1].ID)
	assert.Equal(t, "left-pad", records[1].PackageName)
	assert.Equal(t, "Bad pad", records[1].Title)
	assert.Equal(t, schema.SeverityMedium, records[1].Severity)
	assert.Nil(t, records[1].Score)
}

func TestSeverityFromScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected schema.Severity
	}{
		{10, schema.SeverityCritical},
		{9.0, schema.SeverityCritical},
		{8.9, schema.SeverityHigh},
		{7.0, schema.SeverityHigh},
		{6.9, schema.SeverityMedium},
		{4.0, schema.SeverityMedium},
		{3.9, schema.SeverityLow},
		{0, schema.SeverityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SeverityFromScore(tt.score), "score %.1f", tt.score)
	}
}

func FuzzClassifySeverities(f *testing.F) {
	f.Add(`{"vulnerabilities": [{"severity": "high", "cvssScore": 7.1}]}`)
	f.Add(`[{"vulnerabilities": [{"score": "x"}]}, 1, null]`)
	f.Add(`{"data": [{"attributes": {"severity": 3}}]}`)
	f.Fuzz(func(t *testing.T, input string) {
		var doc any
		if err := json.Unmarshal([]byte(input), &doc); err != nil || doc == nil {
			return
		}
		counts := ClassifySeverities(doc)
		if counts == nil {
			t.Fatal("counts must not be nil for a parsed document")
		}
		if counts.Total != counts.Critical+counts.High+counts.Medium+counts.Low {
			t.Fatalf("total %d does not match buckets %+v", counts.Total, *counts)
		}
	})
}
