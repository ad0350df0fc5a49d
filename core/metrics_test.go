package core

import (
	"testing"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetricsProjectStatus(t *testing.T) {
	doc := decode(t, `{"projectStatus": {
		"status": "ERROR",
		"conditions": [
			{"metricKey": "new_coverage", "status": "ERROR", "actualValue": "61.5", "errorThreshold": "80"},
			{"metricKey": "bugs", "status": "OK", "actualValue": "2"},
			{"metricKey": "new_blocker_violations", "status": "ERROR", "actualValue": "1"},
			{"metricKey": "new_security_rating", "status": "OK", "actualValue": "1"}
		]
	}}`)
	m := ExtractMetrics(doc)
	require.NotNil(t, m)
	require.NotNil(t, m.QualityGateStatus)
	assert.Equal(t, "ERROR", *m.QualityGateStatus)
	require.NotNil(t, m.Coverage)
	assert.InDelta(t, 61.5, *m.Coverage, 0.001)
	require.NotNil(t, m.Bugs)
	assert.Equal(t, 2, *m.Bugs)
	require.NotNil(t, m.Ratings.Security)
	assert.Equal(t, schema.RatingA, *m.Ratings.Security)
	assert.Len(t, m.Conditions, 4)
	assert.Equal(t, "80", m.Conditions[0].ErrorThreshold)

	assert.Nil(t, m.Vulnerabilities)
	assert.Nil(t, m.CodeSmells)
	assert.Nil(t, m.TestSuccess)
}

func TestExtractMetricsFlat(t *testing.T) {
	doc := decode(t, `{"metrics": {
		"coverage": 82.4,
		"new_coverage": 10,
		"bugs": 0,
		"vulnerabilities": "3",
		"code_smells": 12,
		"test_success_density": 99.1,
		"reliability_rating": "B",
		"sqale_rating": 2.0
	}}`)
	m := ExtractMetrics(doc)
	require.NotNil(t, m)
	assert.InDelta(t, 82.4, *m.Coverage, 0.001)
	assert.Equal(t, 0, *m.Bugs)
	assert.Equal(t, 3, *m.Vulnerabilities)
	assert.Equal(t, 12, *m.CodeSmells)
	assert.InDelta(t, 99.1, *m.TestSuccess, 0.001)
	assert.Equal(t, schema.RatingB, *m.Ratings.Reliability)
	assert.Equal(t, schema.RatingB, *m.Ratings.Maintainability)
	assert.Nil(t, m.QualityGateStatus)
}

func TestExtractMetricsQualityGate(t *testing.T) {
	m := ExtractMetrics(decode(t, `{"qualityGate": {"status": "OK"}}`))
	require.NotNil(t, m)
	assert.Equal(t, "OK", *m.QualityGateStatus)
	assert.Nil(t, m.Coverage)
}

func TestExtractMetricsComponentMeasures(t *testing.T) {
	m := ExtractMetrics(decode(t, `{"component": {"measures": [
		{"metric": "coverage", "value": "77.0"},
		{"metric": "code_smells", "value": "4"},
		{"metric": "security_rating", "value": "3.0"},
		{"metric": "unrelated", "value": "x"}
	]}}`))
	require.NotNil(t, m)
	assert.InDelta(t, 77.0, *m.Coverage, 0.001)
	assert.Equal(t, 4, *m.CodeSmells)
	assert.Equal(t, schema.RatingC, *m.Ratings.Security)
}

func TestExtractMetricsPriority(t *testing.T) {
	doc := decode(t, `{
		"projectStatus": {"status": "OK", "conditions": [{"metricKey": "coverage", "actualValue": "90"}]},
		"metrics": {"coverage": 50, "bugs": 4},
		"qualityGate": {"status": "ERROR"}
	}`)
	m := ExtractMetrics(doc)
	require.NotNil(t, m)
	assert.Equal(t, "OK", *m.QualityGateStatus)
	assert.InDelta(t, 90.0, *m.Coverage, 0.001)
	// fields the first shape lacks are filled from later shapes
	assert.Equal(t, 4, *m.Bugs)
}

func TestExtractMetricsUnavailable(t *testing.T) {
	assert.Nil(t, ExtractMetrics(nil))
	assert.Nil(t, ExtractMetrics(decode(t, `[1, 2]`)))
	assert.Nil(t, ExtractMetrics(decode(t, `{"unrelated": true}`)))
	assert.Nil(t, ExtractMetrics(decode(t, `{"metrics": {"coverage": "n/a"}}`)))
}

func TestExtractMetricsOverallBeforeNewCode(t *testing.T) {
	m := ExtractMetrics(decode(t, `{"projectStatus": {"status": "OK", "conditions": [
		{"metricKey": "new_coverage", "actualValue": "10"},
		{"metricKey": "coverage", "actualValue": "90"},
		{"metricKey": "new_bugs", "actualValue": "7"},
		{"metricKey": "bugs", "actualValue": "1"}
	]}}`))
	require.NotNil(t, m)
	assert.InDelta(t, 90.0, *m.Coverage, 0.001)
	assert.Equal(t, 1, *m.Bugs)
	// conditions keep report order
	require.Len(t, m.Conditions, 4)
	assert.Equal(t, "new_coverage", m.Conditions[0].MetricKey)

	m = ExtractMetrics(decode(t, `{"component": {"measures": [
		{"metric": "new_coverage", "value": "12"},
		{"metric": "coverage", "value": "64"}
	]}}`))
	require.NotNil(t, m)
	assert.InDelta(t, 64.0, *m.Coverage, 0.001)
}

func TestExtractMetricsNonFinite(t *testing.T) {
	assert.Nil(t, ExtractMetrics(decode(t, `{"metrics": {"coverage": "NaN", "bugs": "Inf"}}`)))

	m := ExtractMetrics(decode(t, `{"metrics": {"coverage": "NaN", "new_coverage": "55", "bugs": "+Inf"}}`))
	require.NotNil(t, m)
	assert.InDelta(t, 55.0, *m.Coverage, 0.001)
	assert.Nil(t, m.Bugs)
}
