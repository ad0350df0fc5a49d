package outwriter

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *schema.DecisionDocument {
	started := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return &schema.DecisionDocument{
		RunID:         "run-1",
		FinalDecision: schema.DecisionFail,
		Gates: []schema.GateResult{
			{ID: schema.GateHighVulnerability, Category: schema.NonEnforcing, Status: schema.StatusWarn,
				Details: map[string]any{"found": 3, "allowed": 0, "reason": "3 high vulnerabilities exceed the limit of 0"}},
			{ID: schema.GateCodeQuality, Category: schema.Enforcing, Status: schema.StatusWarn,
				Details: map[string]any{"reason": "Quality gate failed", "exception": schema.ExceptionApproval{Key: "GATR-08", Approved: true}}},
			{ID: schema.GateReleaseBranch, Category: schema.Enforcing, Status: schema.StatusFail,
				Details: map[string]any{"branch": "feature/x", "environment": "PROD", "reason": "Only main or release/* allowed for UAT/PROD"}},
		},
		Ref:         "feature/x",
		Target:      "PROD",
		Repository:  "acme/app",
		StartedAt:   started,
		EvaluatedAt: started.Add(time.Second),
		Thresholds:  schema.DefaultThresholds(),
		RoleAlignment: &schema.RoleAlignment{
			IntendedRole: "admin",
			ActualRole:   "viewer",
			Source:       "debug.role",
			Message:      "declared role admin but the PDP evaluated viewer",
			Consequence:  "the PDP decision is authoritative",
		},
	}
}

func TestWriteDecisionReportText(t *testing.T) {
	cfg := &contract.Config{Output: schema.TextOut, Width: 160}
	var buf bytes.Buffer
	require.NoError(t, WriteDecisionReport(&buf, sampleDocument(), cfg, 150*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "Gate Evaluation Results:")
	assert.Contains(t, out, "acme/app")
	assert.Contains(t, out, "Release Branch")
	assert.Contains(t, out, "exception GATR-08 approved")
	assert.Contains(t, out, "Role mismatch:")
	assert.Contains(t, out, "❌ Final decision: FAIL (3 gates, 1 failing, 2 warning)")
	assert.Contains(t, out, "Evaluated in 150ms")
}

func TestWriteDecisionReportJSON(t *testing.T) {
	cfg := &contract.Config{Output: schema.JSONOut}
	var buf bytes.Buffer
	require.NoError(t, WriteDecisionReport(&buf, sampleDocument(), cfg, time.Second))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "FAIL", decoded["final_decision"])
	assert.Equal(t, "feature/x", decoded["ref"])
	assert.Len(t, decoded["gates"], 3)
}

func TestDecisionDocumentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gate-result.json")
	doc := sampleDocument()
	require.NoError(t, WriteDecisionDocument(path, doc))

	got, err := ReadDecisionDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc.RunID, got.RunID)
	assert.Equal(t, doc.FinalDecision, got.FinalDecision)
	assert.Equal(t, doc.Thresholds, got.Thresholds)
	assert.True(t, doc.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Gates, 3)
	assert.Equal(t, schema.GateReleaseBranch, got.Gates[2].ID)
	assert.Equal(t, "PROD", got.Gates[2].Details["environment"])

	// details lose their Go types after decoding but still summarize the same way
	assert.Equal(t, GateSummary(doc.Gates[1]), GateSummary(got.Gates[1]))
}

func TestWriteDecisionReportColoredRoleMismatch(t *testing.T) {
	noColor := color.NoColor
	t.Cleanup(func() { color.NoColor = noColor })

	cfg := &contract.Config{Output: schema.TextOut, Width: 160, UseColors: true}
	var buf bytes.Buffer
	require.NoError(t, WriteDecisionReport(&buf, sampleDocument(), cfg, time.Second))
	assert.Contains(t, buf.String(), "\x1b[36mthe PDP decision is authoritative")
}

func TestDecodeDecisionDocumentRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"final decision", `{"run_id": "r", "final_decision": "MAYBE", "gates": []}`, "MAYBE"},
		{"missing final decision", `{"run_id": "r", "gates": []}`, "final decision"},
		{"gate status", `{"run_id": "r", "final_decision": "PASS", "gates": [{"id": "gatr-08", "status": "SKIPPED"}]}`, "gatr-08"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDecisionDocument(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	doc, err := DecodeDecisionDocument(strings.NewReader(`{"run_id": "r", "final_decision": "WARN", "gates": [{"id": "gatr-01", "status": "WARN"}]}`))
	require.NoError(t, err)
	assert.Equal(t, schema.DecisionWarn, doc.FinalDecision)
}

func TestWriteDecisionDocumentEmptyPath(t *testing.T) {
	assert.Error(t, WriteDecisionDocument("", sampleDocument()))
}

func TestGateSummary(t *testing.T) {
	tests := []struct {
		name     string
		gate     schema.GateResult
		expected string
	}{
		{"note", schema.GateResult{Details: map[string]any{"note": "quality scan data unavailable"}}, "quality scan data unavailable"},
		{"counts", schema.GateResult{Details: map[string]any{"found": 0, "allowed": 2}}, "found 0, allowed 2"},
		{"policy", schema.GateResult{Details: map[string]any{"policy_outcome": schema.PolicyPassWithInfo}}, "policy PASS_WITH_INFO"},
		{"breaches", schema.GateResult{Details: map[string]any{"breaches": []string{"bugs 3 exceeds 0", "code_smells 9 exceeds 5"}}}, "bugs 3 exceeds 0, code_smells 9 exceeds 5"},
		{"rejected exception", schema.GateResult{Details: map[string]any{
			"reason":    "Disallowed Sonar parameters detected",
			"exception": schema.ExceptionApproval{Key: "GATR-09", Reason: "exception expired on 2026-01-01"},
		}}, "Disallowed Sonar parameters detected; exception GATR-09 rejected: exception expired on 2026-01-01"},
		{"empty", schema.GateResult{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GateSummary(tt.gate))
		})
	}
}

func TestWriteGateCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGateCatalog(&buf, &contract.Config{Output: schema.TextOut}))
	out := buf.String()
	for _, id := range schema.AllGateIDs {
		assert.Contains(t, out, string(id))
	}
	assert.Contains(t, out, "Deployment Policy")

	buf.Reset()
	require.NoError(t, WriteGateCatalog(&buf, &contract.Config{Output: schema.JSONOut}))
	var infos []schema.GateInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &infos))
	assert.Len(t, infos, len(schema.GateCatalog))
}

func TestGetMaxDetailWidth(t *testing.T) {
	assert.Equal(t, 20, GetMaxDetailWidth(&contract.Config{Width: 40}))
	assert.Equal(t, 38, GetMaxDetailWidth(&contract.Config{Width: 100}))
	assert.Equal(t, 90, GetMaxDetailWidth(&contract.Config{Width: 400}))
}
