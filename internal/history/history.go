// Package history records gate evaluation runs in SQLite, MySQL or PostgreSQL
// so that deployment decisions can be audited after the fact.
package history

import (
	"github.com/huangsam/gatekeeper/internal/contract"
)

// OpenFromConfig opens the history store configured for this run.
func OpenFromConfig(cfg *contract.Config) (contract.HistoryStore, error) {
	return NewHistoryStore(cfg.HistoryBackend, cfg.HistoryDBConnect)
}
