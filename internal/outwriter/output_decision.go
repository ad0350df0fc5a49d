package outwriter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
)

// PrintDecisionReport prints the evaluation outcome to stdout using the configured output format.
func PrintDecisionReport(doc *schema.DecisionDocument, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile("", func(w io.Writer) error {
		return WriteDecisionReport(w, doc, cfg, duration)
	}, "Wrote report")
}

// WriteDecisionReport writes the evaluation outcome to w.
func WriteDecisionReport(w io.Writer, doc *schema.DecisionDocument, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, doc)
	}
	color.NoColor = !cfg.UseColors
	return writeDecisionText(w, doc, cfg, duration)
}

func writeDecisionText(w io.Writer, doc *schema.DecisionDocument, cfg *contract.Config, duration time.Duration) error {
	if _, err := fmt.Fprintln(w, "Gate Evaluation Results:"); err != nil {
		return err
	}
	labels := []string{"Run:", "Ref:", "Target:", "Repository:", "Commit:"}
	values := []any{doc.RunID, orDash(doc.Ref), orDash(doc.Target), orDash(doc.Repository), orDash(doc.Commit)}
	if err := printLabeled(w, labels, values); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	maxWidth := GetMaxDetailWidth(cfg)
	rows := make([][]string, 0, len(doc.Gates))
	for _, g := range doc.Gates {
		name := string(g.ID)
		if info, ok := schema.LookupGate(g.ID); ok {
			name = info.Name
		}
		rows = append(rows, []string{
			string(g.ID),
			name,
			string(g.Category),
			contract.GetColorStatus(g.Status),
			contract.TruncateText(GateSummary(g), maxWidth),
		})
	}
	if err := renderTable(w, []string{"Gate", "Name", "Category", "Status", "Detail"}, rows); err != nil {
		return err
	}

	if doc.RoleAlignment != nil && !doc.RoleAlignment.Aligned {
		if _, err := fmt.Fprintf(w, "%s %s\n  %s\n", contract.WarnColor.Sprint("Role mismatch:"),
			doc.RoleAlignment.Message, contract.AdvisoryNote.Sprint(doc.RoleAlignment.Consequence)); err != nil {
			return err
		}
	}

	failing, warning := 0, 0
	for _, g := range doc.Gates {
		switch g.Status {
		case schema.StatusFail:
			failing++
		case schema.StatusWarn:
			warning++
		}
	}

	icon := "✅"
	switch doc.FinalDecision {
	case schema.DecisionFail:
		icon = "❌"
	case schema.DecisionWarn:
		icon = "⚠️ "
	}
	if _, err := fmt.Fprintf(w, "%s Final decision: %s (%d gates, %d failing, %d warning)\n",
		icon, contract.GetColorDecision(doc.FinalDecision), len(doc.Gates), failing, warning); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Evaluated in %v\n", duration)
	return err
}

// GateSummary condenses the details of a gate into one line.
func GateSummary(g schema.GateResult) string {
	var parts []string
	switch {
	case g.Details["reason"] != nil:
		parts = append(parts, fmt.Sprint(g.Details["reason"]))
	case g.Details["note"] != nil:
		parts = append(parts, fmt.Sprint(g.Details["note"]))
	case g.Details["policy_outcome"] != nil:
		parts = append(parts, fmt.Sprintf("policy %v", g.Details["policy_outcome"]))
	case g.Details["found"] != nil:
		parts = append(parts, fmt.Sprintf("found %v, allowed %v", g.Details["found"], g.Details["allowed"]))
	}
	if breaches := joinList(g.Details["breaches"]); breaches != "" {
		parts = append(parts, breaches)
	}
	if disallowed := joinList(g.Details["disallowed_parameters"]); disallowed != "" {
		parts = append(parts, disallowed)
	}
	if ex := exceptionSummary(g.Details["exception"]); ex != "" {
		parts = append(parts, ex)
	}
	return strings.Join(parts, "; ")
}

func exceptionSummary(v any) string {
	switch ex := v.(type) {
	case schema.ExceptionApproval:
		if ex.Approved {
			return fmt.Sprintf("exception %s approved", ex.Key)
		}
		return fmt.Sprintf("exception %s rejected: %s", ex.Key, ex.Reason)
	case map[string]any:
		if approved, _ := ex["approved"].(bool); approved {
			return fmt.Sprintf("exception %v approved", ex["key"])
		}
		return fmt.Sprintf("exception %v rejected: %v", ex["key"], ex["reason"])
	}
	return ""
}

func joinList(v any) string {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, ", ")
	case []any:
		items := make([]string, 0, len(list))
		for _, item := range list {
			items = append(items, fmt.Sprint(item))
		}
		return strings.Join(items, ", ")
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
