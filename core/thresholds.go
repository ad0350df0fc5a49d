package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/huangsam/gatekeeper/schema"
	"gopkg.in/yaml.v3"
)

// defaultEntryKey selects the shared entry of a per-project override document.
const defaultEntryKey = "default"

// thresholdKeys are the top-level keys of a flat override document.
var thresholdKeys = []string{"vulnerabilitySeverityLimits", "quality", "approvedQualityParameters"}

// ResolveThresholds merges overrides onto the built-in defaults in order.
// A later override wins key by key; nil overrides are ignored.
func ResolveThresholds(overrides ...*schema.ThresholdOverride) schema.ThresholdSet {
	set := schema.DefaultThresholds()
	for _, o := range overrides {
		set = applyOverride(set, o)
	}
	return set
}

// applyOverride copies every non-nil field of o onto set.
func applyOverride(set schema.ThresholdSet, o *schema.ThresholdOverride) schema.ThresholdSet {
	if o == nil {
		return set
	}
	if l := o.VulnerabilitySeverityLimits; l != nil {
		assign(&set.VulnerabilitySeverityLimits.Critical, l.Critical)
		assign(&set.VulnerabilitySeverityLimits.High, l.High)
		assign(&set.VulnerabilitySeverityLimits.Medium, l.Medium)
	}
	if q := o.Quality; q != nil {
		dst := &set.Quality
		assign(&dst.Coverage, q.Coverage)
		assign(&dst.Bugs, q.Bugs)
		assign(&dst.Vulnerabilities, q.Vulnerabilities)
		assign(&dst.CodeSmells, q.CodeSmells)
		assign(&dst.SecurityRating, q.SecurityRating)
		assign(&dst.ReliabilityRating, q.ReliabilityRating)
		assign(&dst.MaintainabilityRating, q.MaintainabilityRating)
		assign(&dst.TechDebtMinutes, q.TechDebtMinutes)
		if e := q.ExpressLane; e != nil {
			assign(&dst.ExpressLane.CoverageThreshold, e.CoverageThreshold)
			assign(&dst.ExpressLane.TestSuccessThreshold, e.TestSuccessThreshold)
			assign(&dst.ExpressLane.MaxSecurityRating, e.MaxSecurityRating)
			assign(&dst.ExpressLane.MaxReliabilityRating, e.MaxReliabilityRating)
		}
	}
	if o.ApprovedQualityParameters != nil {
		set.ApprovedQualityParameters = slices.Clone(o.ApprovedQualityParameters)
	}
	return set
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ParseThresholdDocument decodes a YAML or JSON override document.
// Per-project documents return the default entry followed by the project entry.
func ParseThresholdDocument(data []byte, projectKey string) ([]*schema.ThresholdOverride, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parsing threshold document: %w", err)
	}
	if len(top) == 0 {
		return nil, nil
	}

	flat := false
	for _, k := range thresholdKeys {
		if _, ok := top[k]; ok {
			flat = true
			break
		}
	}
	if _, ok := top[defaultEntryKey]; !ok && !flat {
		if _, ok := top[projectKey]; !ok || projectKey == "" {
			if perProjectShape(top) {
				return nil, nil
			}
			flat = true
		}
	}

	if flat {
		o, err := decodeOverride(data)
		if err != nil {
			return nil, err
		}
		return []*schema.ThresholdOverride{o}, nil
	}

	var out []*schema.ThresholdOverride
	for _, key := range []string{defaultEntryKey, projectKey} {
		node, ok := top[key]
		if !ok || key == "" {
			continue
		}
		entry, err := yaml.Marshal(&node)
		if err != nil {
			return nil, fmt.Errorf("parsing threshold entry %q: %w", key, err)
		}
		o, err := decodeOverride(entry)
		if err != nil {
			return nil, fmt.Errorf("threshold entry %q: %w", key, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// perProjectShape reports whether every top-level value is a mapping of threshold sections.
func perProjectShape(top map[string]yaml.Node) bool {
	for _, node := range top {
		if node.Kind != yaml.MappingNode {
			return false
		}
		for i := 0; i < len(node.Content); i += 2 {
			if !slices.Contains(thresholdKeys, node.Content[i].Value) {
				return false
			}
		}
	}
	return true
}

// decodeOverride rejects keys the override type does not declare.
func decodeOverride(data []byte) (*schema.ThresholdOverride, error) {
	o := &schema.ThresholdOverride{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing threshold document: %w", err)
	}
	if err := normalizeOverrideRatings(o); err != nil {
		return nil, err
	}
	return o, nil
}

// normalizeOverrideRatings rewrites ratings given as lowercase letters or 1..5.
func normalizeOverrideRatings(o *schema.ThresholdOverride) error {
	var ratings []**schema.Rating
	if q := o.Quality; q != nil {
		ratings = append(ratings, &q.SecurityRating, &q.ReliabilityRating, &q.MaintainabilityRating)
		if e := q.ExpressLane; e != nil {
			ratings = append(ratings, &e.MaxSecurityRating, &e.MaxReliabilityRating)
		}
	}
	for _, r := range ratings {
		if *r == nil {
			continue
		}
		parsed, ok := schema.ParseRating(string(**r))
		if !ok {
			return fmt.Errorf("invalid rating %q, expected A-E or 1-5", **r)
		}
		*r = &parsed
	}
	return nil
}

// LoadThresholds resolves the effective threshold set for a run.
// A missing file falls back to defaults; a malformed file or invalid result is an error.
// The cli override is applied last.
func LoadThresholds(logger *slog.Logger, path, projectKey string, cli *schema.ThresholdOverride) (schema.ThresholdSet, error) {
	var overrides []*schema.ThresholdOverride
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("threshold override file not found, using defaults", "path", path)
		case err != nil:
			return schema.ThresholdSet{}, fmt.Errorf("reading threshold file %s: %w", path, err)
		default:
			overrides, err = ParseThresholdDocument(data, projectKey)
			if err != nil {
				return schema.ThresholdSet{}, fmt.Errorf("%s: %w", path, err)
			}
			if len(overrides) == 0 {
				logger.Warn("threshold file has no entry for this project, using defaults", "path", path, "project", projectKey)
			} else {
				logger.Debug("loaded threshold overrides", "path", path, "entries", len(overrides))
			}
		}
	}
	overrides = append(overrides, cli)

	set := ResolveThresholds(overrides...)
	if err := set.Validate(); err != nil {
		return schema.ThresholdSet{}, err
	}
	return set, nil
}
