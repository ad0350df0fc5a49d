package pdp

import (
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allow(v bool) schema.PolicyDecision {
	return schema.PolicyDecision{Allow: &v}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		decision schema.PolicyDecision
		counts   *schema.SeverityCounts
		expected schema.PolicyOutcome
	}{
		{"denied", allow(false), &schema.SeverityCounts{}, schema.PolicyFail},
		{"denied without findings", allow(false), nil, schema.PolicyFail},
		{"allowed with critical", allow(true), &schema.SeverityCounts{Critical: 2, High: 3}, schema.PolicyPassOverride},
		{"allowed with high", allow(true), &schema.SeverityCounts{High: 1, Medium: 4}, schema.PolicyPassWithWarnings},
		{"allowed with medium", allow(true), &schema.SeverityCounts{Medium: 1, Low: 9}, schema.PolicyPassWithInfo},
		{"allowed clean", allow(true), &schema.SeverityCounts{Low: 3}, schema.PolicyPass},
		{"allowed without data", allow(true), nil, schema.PolicyPass},
		{"no allow field", schema.PolicyDecision{}, &schema.SeverityCounts{}, schema.PolicyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.decision, tt.counts))
		})
	}
}

func TestBuildRequestSamplesPerTier(t *testing.T) {
	var records []schema.VulnerabilityRecord
	for i := range 7 {
		records = append(records, schema.VulnerabilityRecord{ID: fmt.Sprintf("C-%d", i), Severity: schema.SeverityCritical})
	}
	records = append(records,
		schema.VulnerabilityRecord{ID: "H-1", Severity: schema.SeverityHigh},
		schema.VulnerabilityRecord{ID: "L-1", Severity: schema.SeverityLow},
		schema.VulnerabilityRecord{ID: "U-1", Severity: schema.SeverityUnknown},
	)
	counts := &schema.SeverityCounts{Critical: 7, High: 1, Low: 1, Unknown: 1, Total: 9}

	req := BuildRequest(records, counts, RequestOptions{Tenant: "acme", Now: time.Now()})
	attrs := req.Resource.Attributes

	require.Len(t, attrs.Vulnerabilities[schema.SeverityCritical], SampleLimit)
	assert.Len(t, attrs.Vulnerabilities[schema.SeverityHigh], 1)
	assert.Empty(t, attrs.Vulnerabilities[schema.SeverityMedium])
	assert.NotContains(t, attrs.Vulnerabilities, schema.SeverityLow)
	assert.Equal(t, "C-0", attrs.Vulnerabilities[schema.SeverityCritical][0].ID)

	assert.Equal(t, 2, attrs.Summary.TruncatedCount)
	assert.True(t, attrs.Summary.HasCritical)
	assert.True(t, attrs.Summary.DataAvailable)
	assert.Equal(t, 9, attrs.Summary.Total)
	assert.Equal(t, "acme", req.Resource.Tenant)
	assert.Equal(t, DefaultResourceType, req.Resource.Type)
	assert.Equal(t, "pipeline", req.User.Key)
}

func TestBuildRequestWithoutScan(t *testing.T) {
	req := BuildRequest(nil, nil, RequestOptions{
		Run: schema.RunContext{Actor: "octocat", Role: "deployer", Workflow: "release"},
		Now: time.Now(),
	})
	assert.False(t, req.Resource.Attributes.Summary.DataAvailable)
	assert.Equal(t, "octocat", req.User.Key)
	assert.Equal(t, "deployer", req.User.Attributes["role"])
	assert.Equal(t, "unknown", req.Resource.Key)
}
