package core

import (
	"fmt"

	"github.com/huangsam/gatekeeper/schema"
)

// MetricStrategy extracts metrics from one known report shape.
// It reports false when the shape is not present.
type MetricStrategy func(doc map[string]any) (schema.QualityMetrics, bool)

// metricStrategies are tried in priority order. Earlier strategies win per field.
var metricStrategies = []MetricStrategy{
	fromProjectStatus,
	fromFlatMetrics,
	fromQualityGate,
	fromComponentMeasures,
}

// ExtractMetrics normalizes a quality report. It returns nil when no field could be read.
func ExtractMetrics(parsed any) *schema.QualityMetrics {
	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil
	}
	var merged schema.QualityMetrics
	for _, strategy := range metricStrategies {
		if m, ok := strategy(doc); ok {
			mergeMetrics(&merged, m)
		}
	}
	if merged.IsEmpty() {
		return nil
	}
	return &merged
}

// fromProjectStatus reads the quality gate API shape: projectStatus.status and conditions.
func fromProjectStatus(doc map[string]any) (schema.QualityMetrics, bool) {
	ps, ok := doc["projectStatus"].(map[string]any)
	if !ok {
		return schema.QualityMetrics{}, false
	}
	var m schema.QualityMetrics
	if status := firstString(ps, "status"); status != "" {
		m.QualityGateStatus = &status
	}
	conditions, _ := ps["conditions"].([]any)
	values := make(map[string]any, len(conditions))
	for _, raw := range conditions {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cond := schema.QualityCondition{
			MetricKey:      firstString(c, "metricKey"),
			Status:         firstString(c, "status"),
			ActualValue:    stringValue(c["actualValue"]),
			ErrorThreshold: stringValue(c["errorThreshold"]),
		}
		m.Conditions = append(m.Conditions, cond)
		indexMeasure(values, cond.MetricKey, c["actualValue"])
	}
	applyMeasures(&m, values)
	return m, true
}

// fromFlatMetrics reads a flat {"metrics": {"coverage": 81.2, ...}} object.
func fromFlatMetrics(doc map[string]any) (schema.QualityMetrics, bool) {
	flat, ok := doc["metrics"].(map[string]any)
	if !ok {
		return schema.QualityMetrics{}, false
	}
	var m schema.QualityMetrics
	applyMeasures(&m, flat)
	return m, true
}

// fromQualityGate reads {"qualityGate": {"status": "OK"}}.
func fromQualityGate(doc map[string]any) (schema.QualityMetrics, bool) {
	qg, ok := doc["qualityGate"].(map[string]any)
	if !ok {
		return schema.QualityMetrics{}, false
	}
	status := firstString(qg, "status")
	if status == "" {
		return schema.QualityMetrics{}, false
	}
	return schema.QualityMetrics{QualityGateStatus: &status}, true
}

// fromComponentMeasures reads the measures API shape: component.measures[{metric, value}].
func fromComponentMeasures(doc map[string]any) (schema.QualityMetrics, bool) {
	comp, ok := doc["component"].(map[string]any)
	if !ok {
		return schema.QualityMetrics{}, false
	}
	measures, ok := comp["measures"].([]any)
	if !ok {
		return schema.QualityMetrics{}, false
	}
	values := make(map[string]any, len(measures))
	for _, raw := range measures {
		measure, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		indexMeasure(values, firstString(measure, "metric", "name"), measure["value"])
	}
	var m schema.QualityMetrics
	applyMeasures(&m, values)
	return m, true
}

// measureKeys lists every recognized metric key, overall values before new-code values.
var measureKeys = []string{
	"coverage", "new_coverage",
	"bugs", "new_bugs",
	"vulnerabilities", "new_vulnerabilities",
	"code_smells", "codeSmells", "new_code_smells",
	"test_success_density", "test_success", "testSuccess",
	"security_rating", "new_security_rating",
	"reliability_rating", "new_reliability_rating",
	"sqale_rating", "maintainability_rating", "new_maintainability_rating",
}

// indexMeasure records the first value reported for key.
func indexMeasure(values map[string]any, key string, value any) {
	if key == "" {
		return
	}
	if _, seen := values[key]; !seen {
		values[key] = value
	}
}

// applyMeasures fills m from values in measureKeys order, regardless of report order.
func applyMeasures(m *schema.QualityMetrics, values map[string]any) {
	for _, key := range measureKeys {
		if v, ok := values[key]; ok {
			applyMeasure(m, key, v)
		}
	}
}

// applyMeasure stores value under the field named by key unless the field is already set.
// Values that do not parse leave the field unset.
func applyMeasure(m *schema.QualityMetrics, key string, value any) {
	switch key {
	case "coverage", "new_coverage":
		setFloatOnce(&m.Coverage, value)
	case "bugs", "new_bugs":
		setIntOnce(&m.Bugs, value)
	case "vulnerabilities", "new_vulnerabilities":
		setIntOnce(&m.Vulnerabilities, value)
	case "code_smells", "codeSmells", "new_code_smells":
		setIntOnce(&m.CodeSmells, value)
	case "test_success_density", "test_success", "testSuccess":
		setFloatOnce(&m.TestSuccess, value)
	case "security_rating", "new_security_rating":
		setRatingOnce(&m.Ratings.Security, value)
	case "reliability_rating", "new_reliability_rating":
		setRatingOnce(&m.Ratings.Reliability, value)
	case "sqale_rating", "maintainability_rating", "new_maintainability_rating":
		setRatingOnce(&m.Ratings.Maintainability, value)
	}
}

func setFloatOnce(dst **float64, value any) {
	if *dst != nil {
		return
	}
	if f, ok := toFloat(value); ok {
		*dst = &f
	}
}

func setIntOnce(dst **int, value any) {
	if *dst != nil {
		return
	}
	if f, ok := toFloat(value); ok && f >= 0 {
		n := int(f)
		*dst = &n
	}
}

func setRatingOnce(dst **schema.Rating, value any) {
	if *dst != nil {
		return
	}
	if r, ok := schema.ParseRating(stringValue(value)); ok {
		*dst = &r
	}
}

// mergeMetrics copies every field of src that dst does not have yet.
func mergeMetrics(dst *schema.QualityMetrics, src schema.QualityMetrics) {
	assignOnce(&dst.Coverage, src.Coverage)
	assignOnce(&dst.Bugs, src.Bugs)
	assignOnce(&dst.Vulnerabilities, src.Vulnerabilities)
	assignOnce(&dst.CodeSmells, src.CodeSmells)
	assignOnce(&dst.TestSuccess, src.TestSuccess)
	assignOnce(&dst.QualityGateStatus, src.QualityGateStatus)
	assignOnce(&dst.Ratings.Security, src.Ratings.Security)
	assignOnce(&dst.Ratings.Reliability, src.Ratings.Reliability)
	assignOnce(&dst.Ratings.Maintainability, src.Ratings.Maintainability)
	if len(dst.Conditions) == 0 {
		dst.Conditions = src.Conditions
	}
}

func assignOnce[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

// stringValue renders a scalar JSON value as text.
func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%g", s)
	case bool:
		return fmt.Sprintf("%t", s)
	default:
		return ""
	}
}
