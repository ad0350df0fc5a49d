package exception

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedFields() map[string]any {
	return map[string]any{
		"project":             map[string]any{"key": "GATR"},
		FieldGateID:           "GATR-08",
		FieldApplicationID:    map[string]any{"value": "app-42"},
		FieldApprovalStatus:   map[string]any{"value": "Decision Made"},
		FieldApprovalDecision: []any{map[string]any{"value": "Approved"}},
		FieldExpiryDate:       "2026-12-31T00:00:00.000+0000",
	}
}

func newFakeJira(t *testing.T, issues map[string]map[string]any) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/rest/api/3/issue/{key}", func(w http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		if !ok || user != "bot" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"unauthorized"}})
			return
		}
		key := chi.URLParam(req, "key")
		fields, found := issues[key]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"Issue does not exist"}})
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"key": key, "fields": fields}))
	})
	return httptest.NewServer(r)
}

func newChecker(url, token string) *JiraChecker {
	j := NewJiraChecker(contract.ExceptionConfig{
		URL:   url,
		User:  "bot",
		Token: token,
		AppID: "APP-42",
	}, contract.DiscardLogger())
	j.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	return j
}

func TestCheckExceptionApproved(t *testing.T) {
	srv := newFakeJira(t, map[string]map[string]any{"GATR-08": approvedFields()})
	defer srv.Close()

	res, err := newChecker(srv.URL, "secret").CheckException(context.Background(), schema.GateCodeQuality)
	require.NoError(t, err)
	assert.True(t, res.Approved, res.Reason)
	assert.Equal(t, "GATR-08", res.Key)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), res.ExpiresAt)
}

func TestCheckExceptionRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		reason string
	}{
		{"wrong project", func(f map[string]any) { f["project"] = map[string]any{"key": "OPS"} }, "project mismatch"},
		{"wrong gate", func(f map[string]any) { f[FieldGateID] = "GATR-09" }, "gate mismatch"},
		{"wrong application", func(f map[string]any) { f[FieldApplicationID] = "other" }, "application mismatch"},
		{"pending approval", func(f map[string]any) { f[FieldApprovalStatus] = "Waiting" }, "approval status"},
		{"declined", func(f map[string]any) { f[FieldApprovalDecision] = "Declined" }, "approval decision"},
		{"no expiry", func(f map[string]any) { delete(f, FieldExpiryDate) }, "missing expiry"},
		{"bad expiry", func(f map[string]any) { f[FieldExpiryDate] = "soon" }, "invalid expiry"},
		{"expired", func(f map[string]any) { f[FieldExpiryDate] = "2026-10-15" }, "expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := approvedFields()
			tt.mutate(fields)
			srv := newFakeJira(t, map[string]map[string]any{"GATR-08": fields})
			defer srv.Close()

			res, err := newChecker(srv.URL, "secret").CheckException(context.Background(), schema.GateCodeQuality)
			require.NoError(t, err)
			assert.False(t, res.Approved)
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

func TestCheckExceptionExpiresToday(t *testing.T) {
	fields := approvedFields()
	fields[FieldExpiryDate] = "2026-10-16"
	srv := newFakeJira(t, map[string]map[string]any{"GATR-08": fields})
	defer srv.Close()

	res, err := newChecker(srv.URL, "secret").CheckException(context.Background(), schema.GateCodeQuality)
	require.NoError(t, err)
	assert.True(t, res.Approved)
}

func TestCheckExceptionTrackerErrors(t *testing.T) {
	srv := newFakeJira(t, map[string]map[string]any{})
	defer srv.Close()

	_, err := newChecker(srv.URL, "secret").CheckException(context.Background(), schema.GateReleaseBranch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATR-14")
	assert.Contains(t, err.Error(), "404")

	_, err = newChecker(srv.URL, "wrong").CheckException(context.Background(), schema.GateCodeQuality)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCustomValue(t *testing.T) {
	fields := map[string]any{
		"a": "plain",
		"b": 42.0,
		"c": map[string]any{"child": map[string]any{"value": "nested"}},
		"d": map[string]any{"id": "10001"},
		"e": []any{},
	}
	assert.Equal(t, "plain", customValue(fields, "a"))
	assert.Equal(t, "42", customValue(fields, "b"))
	assert.Equal(t, "nested", customValue(fields, "c"))
	assert.Equal(t, "10001", customValue(fields, "d"))
	assert.Empty(t, customValue(fields, "e"))
	assert.Empty(t, customValue(fields, "missing"))
}
