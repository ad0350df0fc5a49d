package pdp

import (
	"time"

	"github.com/huangsam/gatekeeper/schema"
)

// Request defaults.
const (
	SampleLimit          = 5
	DefaultAction        = "deploy"
	DefaultResourceType  = "deployment"
	defaultResourceKey   = "unknown"
	defaultUserKey       = "pipeline"
	scanTimestampLayout  = time.RFC3339
	roleAttributeKey     = "role"
	actorAttributeKey    = "actor"
	workflowAttributeKey = "workflow"
)

// RequestOptions are the caller-provided parts of a policy request.
type RequestOptions struct {
	Tenant string
	Run    schema.RunContext
	Now    time.Time
}

// BuildRequest assembles the authorization payload. Records may be nil when no scan was found.
func BuildRequest(records []schema.VulnerabilityRecord, counts *schema.SeverityCounts, opts RequestOptions) schema.PolicyRequest {
	dataAvailable := counts != nil
	var c schema.SeverityCounts
	if counts != nil {
		c = *counts
	}
	sampled, truncated := sampleVulnerabilities(records, SampleLimit)

	userKey := opts.Run.Actor
	if userKey == "" {
		userKey = defaultUserKey
	}
	resourceKey := opts.Run.Repository
	if resourceKey == "" {
		resourceKey = defaultResourceKey
	}
	userAttrs := map[string]any{roleAttributeKey: opts.Run.Role}
	if opts.Run.Actor != "" {
		userAttrs[actorAttributeKey] = opts.Run.Actor
	}
	if opts.Run.Workflow != "" {
		userAttrs[workflowAttributeKey] = opts.Run.Workflow
	}

	return schema.PolicyRequest{
		User:   schema.PolicyUser{Key: userKey, Attributes: userAttrs},
		Action: DefaultAction,
		Resource: schema.PolicyResource{
			Type:   DefaultResourceType,
			Key:    resourceKey,
			Tenant: opts.Tenant,
			Attributes: schema.PolicyResourceAttributes{
				CriticalCount:   c.Critical,
				HighCount:       c.High,
				MediumCount:     c.Medium,
				LowCount:        c.Low,
				Vulnerabilities: sampled,
				Summary: schema.PolicySummary{
					Total:          c.Total,
					Unknown:        c.Unknown,
					HasCritical:    c.Critical > 0,
					HasHigh:        c.High > 0,
					SampleLimit:    SampleLimit,
					DataAvailable:  dataAvailable,
					TruncatedCount: truncated,
				},
				ScanTimestamp: opts.Now.UTC().Format(scanTimestampLayout),
			},
		},
		Context: schema.PolicyContext{
			Environment: opts.Run.Environment,
			Repository:  opts.Run.Repository,
			Commit:      opts.Run.Commit,
			Workflow:    opts.Run.Workflow,
		},
	}
}

// sampleVulnerabilities keeps at most limit records for each sampled tier.
func sampleVulnerabilities(records []schema.VulnerabilityRecord, limit int) (map[schema.Severity][]schema.VulnerabilityRecord, int) {
	out := make(map[schema.Severity][]schema.VulnerabilityRecord, len(schema.SampledSeverities))
	for _, sev := range schema.SampledSeverities {
		out[sev] = []schema.VulnerabilityRecord{}
	}
	truncated := 0
	for _, r := range records {
		list, ok := out[r.Severity]
		if !ok {
			continue
		}
		if len(list) >= limit {
			truncated++
			continue
		}
		out[r.Severity] = append(list, r)
	}
	return out, truncated
}
