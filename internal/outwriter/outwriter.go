// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteDocument persists the decision document to the configured output file.
func (ow *OutWriter) WriteDocument(doc *schema.DecisionDocument, cfg *contract.Config) error {
	return WriteDecisionDocument(cfg.OutputFile, doc)
}

// WriteReport prints the evaluation outcome using the configured output format.
func (ow *OutWriter) WriteReport(doc *schema.DecisionDocument, cfg *contract.Config, duration time.Duration) error {
	return PrintDecisionReport(doc, cfg, duration)
}

// WriteCatalog prints the gate catalog using the configured output format.
func (ow *OutWriter) WriteCatalog(cfg *contract.Config) error {
	return PrintGateCatalog(cfg)
}
