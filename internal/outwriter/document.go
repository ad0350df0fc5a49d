package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/gatekeeper/schema"
)

// WriteDecisionDocument writes the decision document as indented JSON.
// The file is written next to its final location and renamed into place.
func WriteDecisionDocument(path string, doc *schema.DecisionDocument) error {
	if path == "" {
		return fmt.Errorf("decision document path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".gate-result-*.json")
	if err != nil {
		return fmt.Errorf("failed to create decision document: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := writeJSON(tmp, doc); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write decision document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write decision document: %w", err)
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote decision document to %s\n", path)
	return nil
}

// ReadDecisionDocument reads a decision document written by WriteDecisionDocument.
func ReadDecisionDocument(path string) (*schema.DecisionDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return DecodeDecisionDocument(f)
}

// DecodeDecisionDocument decodes a decision document from r.
// Unknown decisions or gate statuses are rejected.
func DecodeDecisionDocument(r io.Reader) (*schema.DecisionDocument, error) {
	var doc schema.DecisionDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode decision document: %w", err)
	}
	if _, ok := schema.ValidDecisions[doc.FinalDecision]; !ok {
		return nil, fmt.Errorf("invalid final decision '%s' in decision document", doc.FinalDecision)
	}
	for _, g := range doc.Gates {
		if _, ok := schema.ValidGateStatuses[g.Status]; !ok {
			return nil, fmt.Errorf("invalid status '%s' for gate %s in decision document", g.Status, g.ID)
		}
	}
	return &doc, nil
}
