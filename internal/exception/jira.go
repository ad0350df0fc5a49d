// Package exception looks up approved gate exceptions in the issue tracker.
package exception

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
)

// Issue fields that describe an exception request.
const (
	ProjectKey             = "GATR"
	FieldExpiryDate        = "customfield_10105"
	FieldApprovalStatus    = "customfield_10106"
	FieldGateID            = "customfield_10107"
	FieldApplicationID     = "customfield_10109"
	FieldApprovalDecision  = "customfield_10110"
	approvalStatusDecided  = "DECISION MADE"
	approvalDecisionPassed = "APPROVED"
	expiryLayout           = "2006-01-02"
	maxBodySize            = 4 << 20
)

// JiraChecker reads exception tickets through the Jira REST API.
type JiraChecker struct {
	baseURL    string
	user       string
	token      string
	appID      string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

var _ contract.ExceptionChecker = &JiraChecker{}

// NewJiraChecker creates a checker from validated exception settings.
func NewJiraChecker(cfg contract.ExceptionConfig, logger *slog.Logger) *JiraChecker {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = contract.DefaultExceptionTimeout
	}
	return &JiraChecker{
		baseURL:    cfg.URL,
		user:       cfg.User,
		token:      cfg.Token,
		appID:      cfg.AppID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

type issueResponse struct {
	Key           string         `json:"key"`
	Fields        map[string]any `json:"fields"`
	ErrorMessages []string       `json:"errorMessages"`
}

// IssueKey returns the ticket key that holds exceptions for a gate, e.g. GATR-08.
func IssueKey(gate schema.GateID) string {
	return strings.ToUpper(string(gate))
}

// CheckException fetches the ticket for gate and validates it.
// Tracker and transport failures are returned as errors; a ticket that does not
// qualify is reported with Approved false and a reason.
func (j *JiraChecker) CheckException(ctx context.Context, gate schema.GateID) (schema.ExceptionApproval, error) {
	key := IssueKey(gate)
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s", j.baseURL, url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return schema.ExceptionApproval{}, err
	}
	req.SetBasicAuth(j.user, j.token)
	req.Header.Set("Accept", "application/json")

	j.logger.Debug("looking up gate exception", "gate", gate, "issue", key)
	resp, err := j.httpClient.Do(req)
	if err != nil {
		return schema.ExceptionApproval{}, fmt.Errorf("exception lookup for %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var issue issueResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&issue); err != nil {
		return schema.ExceptionApproval{}, fmt.Errorf("exception lookup for %s: status %d: invalid body: %w", key, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.ExceptionApproval{}, fmt.Errorf("exception lookup for %s: status %d: %s", key, resp.StatusCode, strings.Join(issue.ErrorMessages, "; "))
	}
	if len(issue.ErrorMessages) > 0 {
		return schema.ExceptionApproval{}, fmt.Errorf("exception lookup for %s: %s", key, strings.Join(issue.ErrorMessages, "; "))
	}

	if issue.Key == "" {
		issue.Key = key
	}
	return j.evaluate(issue, key), nil
}

// evaluate applies the approval rules to a fetched ticket.
func (j *JiraChecker) evaluate(issue issueResponse, gateKey string) schema.ExceptionApproval {
	res := schema.ExceptionApproval{Key: issue.Key}
	fields := issue.Fields

	project := ""
	if p, ok := fields["project"].(map[string]any); ok {
		project, _ = p["key"].(string)
	}
	if !strings.EqualFold(project, ProjectKey) {
		res.Reason = fmt.Sprintf("project mismatch: expected %q, got %q", ProjectKey, project)
		return res
	}
	if v := customValue(fields, FieldGateID); !strings.EqualFold(strings.TrimSpace(v), gateKey) {
		res.Reason = fmt.Sprintf("gate mismatch: expected %q, got %q", gateKey, v)
		return res
	}
	if v := customValue(fields, FieldApplicationID); !strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(j.appID)) {
		res.Reason = fmt.Sprintf("application mismatch: expected %q, got %q", j.appID, v)
		return res
	}
	if !strings.EqualFold(customValue(fields, FieldApprovalStatus), approvalStatusDecided) {
		res.Reason = "approval status must be 'Decision Made'"
		return res
	}
	if !strings.EqualFold(customValue(fields, FieldApprovalDecision), approvalDecisionPassed) {
		res.Reason = "approval decision must be 'Approved'"
		return res
	}

	raw := customValue(fields, FieldExpiryDate)
	if raw == "" {
		res.Reason = "missing expiry date"
		return res
	}
	if len(raw) > len(expiryLayout) {
		raw = raw[:len(expiryLayout)]
	}
	expiry, err := time.Parse(expiryLayout, raw)
	if err != nil {
		res.Reason = fmt.Sprintf("invalid expiry date: %v", err)
		return res
	}
	res.ExpiresAt = expiry
	now := j.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if expiry.Before(today) {
		res.Reason = fmt.Sprintf("exception expired on %s", expiry.Format(expiryLayout))
		return res
	}

	res.Approved = true
	res.Reason = "approved exception"
	return res
}

// customValue flattens the shapes Jira uses for custom fields:
// scalars, option objects with value or id, cascading options with child, and lists of those.
func customValue(fields map[string]any, id string) string {
	v, ok := fields[id]
	if !ok || v == nil {
		return ""
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		v = list[0]
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case map[string]any:
		if child, ok := val["child"].(map[string]any); ok {
			if s := scalarString(child["value"]); s != "" {
				return s
			}
			return scalarString(child["id"])
		}
		if s := scalarString(val["value"]); s != "" {
			return s
		}
		return scalarString(val["id"])
	}
	return ""
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%g", s)
	}
	return ""
}
