// Package schema has the models, enums and gate catalog shared by all parts of gatekeeper.
package schema

import "time"

// GateResult is the verdict of one gate.
type GateResult struct {
	ID       GateID         `json:"id"`
	Category GateCategory   `json:"category"`
	Status   GateStatus     `json:"status"`
	Details  map[string]any `json:"details"`
}

// FinalDecision combines every gate verdict into one outcome.
type FinalDecision struct {
	Decision Decision     `json:"decision"`
	Gates    []GateResult `json:"gates"`
}

// DecisionDocument is the auditable output of an evaluation run.
type DecisionDocument struct {
	RunID         string         `json:"run_id"`
	FinalDecision Decision       `json:"final_decision"`
	Gates         []GateResult   `json:"gates"`
	Ref           string         `json:"ref"`
	Target        string         `json:"target"`
	Repository    string         `json:"repository,omitempty"`
	Commit        string         `json:"commit,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	EvaluatedAt   time.Time      `json:"evaluated_at"`
	Thresholds    ThresholdSet   `json:"thresholds"`
	RoleAlignment *RoleAlignment `json:"role_alignment,omitempty"`
}

// RunContext is the immutable description of the pipeline run being gated.
type RunContext struct {
	Environment       string
	Branch            string
	Repository        string
	Commit            string
	Workflow          string
	Actor             string
	Role              string
	QualityParameters []string
}

// ProjectKey returns the repository name in the form used to key threshold overrides.
func (rc RunContext) ProjectKey() string {
	return ProjectKey(rc.Repository)
}
