package schema

// PolicyRequest is the body posted to the policy decision point.
type PolicyRequest struct {
	User     PolicyUser     `json:"user"`
	Action   string         `json:"action"`
	Resource PolicyResource `json:"resource"`
	Context  PolicyContext  `json:"context"`
}

// PolicyUser identifies the caller.
type PolicyUser struct {
	Key        string         `json:"key"`
	Attributes map[string]any `json:"attributes"`
}

// PolicyResource describes the deployment being authorized.
type PolicyResource struct {
	Type       string                   `json:"type"`
	Key        string                   `json:"key"`
	Tenant     string                   `json:"tenant"`
	Attributes PolicyResourceAttributes `json:"attributes"`
}

// PolicyResourceAttributes carries the scan evidence.
type PolicyResourceAttributes struct {
	CriticalCount   int                                `json:"criticalCount"`
	HighCount       int                                `json:"highCount"`
	MediumCount     int                                `json:"mediumCount"`
	LowCount        int                                `json:"lowCount"`
	Vulnerabilities map[Severity][]VulnerabilityRecord `json:"vulnerabilities"`
	Summary         PolicySummary                      `json:"summary"`
	ScanTimestamp   string                             `json:"scanTimestamp"`
}

// PolicySummary is a compact digest of the scan.
type PolicySummary struct {
	Total          int  `json:"total"`
	Unknown        int  `json:"unknown"`
	HasCritical    bool `json:"hasCritical"`
	HasHigh        bool `json:"hasHigh"`
	SampleLimit    int  `json:"sampleLimit"`
	DataAvailable  bool `json:"dataAvailable"`
	TruncatedCount int  `json:"truncatedCount"`
}

// PolicyContext carries the pipeline context.
type PolicyContext struct {
	Environment string `json:"environment"`
	Repository  string `json:"repository"`
	Commit      string `json:"commit"`
	Workflow    string `json:"workflow"`
}

// PolicyDecision is the decoded response of the policy decision point.
// Allow is nil when the response did not carry the field.
type PolicyDecision struct {
	Allow      *bool          `json:"allow"`
	Debug      map[string]any `json:"debug,omitempty"`
	Violations []any          `json:"violations,omitempty"`
}

// RoleAlignment reports how the declared role compares with the role the PDP used.
type RoleAlignment struct {
	IntendedRole string `json:"intended_role"`
	ActualRole   string `json:"actual_role,omitempty"`
	Source       string `json:"source"`
	Aligned      bool   `json:"aligned"`
	Message      string `json:"message"`
	Consequence  string `json:"consequence"`
}
