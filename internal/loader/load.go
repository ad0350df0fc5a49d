// Package loader locates and decodes scan result files produced by CI tooling.
package loader

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var errNullDocument = errors.New("document is null")

// Loader probes a directory for the first readable JSON document matching a candidate list.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader that reports skipped files on logger.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns the decoded JSON of the best matching file in dir, or nil.
//
// Candidates are tried in order with a case-insensitive exact name match, then
// by checking whether an entry name contains the candidate stem, and finally any
// *.json entry in name order. Missing directories and unparsable files are not errors.
func (l *Loader) Load(dir string, candidates []string) any {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Debug("scan directory unavailable", "dir", dir, "error", err)
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		l.logger.Debug("scan directory empty", "dir", dir)
		return nil
	}

	tried := make(map[string]bool, len(files))
	attempt := func(name string) (any, bool) {
		if tried[name] {
			return nil, false
		}
		tried[name] = true
		doc, err := readJSON(filepath.Join(dir, name))
		if err != nil {
			l.logger.Debug("skipping unparsable scan file", "file", name, "error", err)
			return nil, false
		}
		l.logger.Debug("loaded scan file", "file", filepath.Join(dir, name))
		return doc, true
	}

	for _, candidate := range candidates {
		for _, name := range files {
			if strings.EqualFold(name, candidate) {
				if doc, ok := attempt(name); ok {
					return doc
				}
			}
		}
	}

	for _, candidate := range candidates {
		stem := candidateStem(candidate)
		if stem == "" {
			continue
		}
		for _, name := range files {
			if strings.Contains(strings.ToLower(name), stem) {
				if doc, ok := attempt(name); ok {
					return doc
				}
			}
		}
	}

	// os.ReadDir returns entries sorted by filename.
	for _, name := range files {
		if strings.EqualFold(filepath.Ext(name), ".json") {
			if doc, ok := attempt(name); ok {
				return doc
			}
		}
	}

	l.logger.Debug("no scan file matched", "dir", dir, "candidates", candidates)
	return nil
}

// candidateStem lowercases a candidate and drops its extension.
func candidateStem(candidate string) string {
	c := strings.ToLower(strings.TrimSpace(candidate))
	return strings.TrimSuffix(c, filepath.Ext(c))
}

// readJSON decodes a whole file. Empty documents and JSON null are rejected.
func readJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNullDocument
	}
	return doc, nil
}
