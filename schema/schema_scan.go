package schema

// VulnerabilityRecord is one normalized dependency finding.
type VulnerabilityRecord struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	PackageName string   `json:"packageName"`
	Version     string   `json:"version"`
	Title       string   `json:"title"`
	Score       *float64 `json:"score,omitempty"`
}

// SeverityCounts aggregates findings per severity bucket.
// Unknown findings are tracked separately and excluded from Total.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Unknown  int `json:"unknown"`
	Total    int `json:"total"`
}

// QualityCondition is one condition of a quality gate report.
type QualityCondition struct {
	MetricKey      string `json:"metricKey"`
	Status         string `json:"status"`
	ActualValue    string `json:"actualValue,omitempty"`
	ErrorThreshold string `json:"errorThreshold,omitempty"`
}

// QualityRatings holds the categorical ratings of a quality report.
type QualityRatings struct {
	Security        *Rating `json:"security,omitempty"`
	Reliability     *Rating `json:"reliability,omitempty"`
	Maintainability *Rating `json:"maintainability,omitempty"`
}

// QualityMetrics is the canonical record extracted from a quality report.
// A nil field means the report did not carry it.
type QualityMetrics struct {
	Coverage          *float64           `json:"coverage,omitempty"`
	Bugs              *int               `json:"bugs,omitempty"`
	Vulnerabilities   *int               `json:"vulnerabilities,omitempty"`
	CodeSmells        *int               `json:"codeSmells,omitempty"`
	TestSuccess       *float64           `json:"testSuccess,omitempty"`
	QualityGateStatus *string            `json:"qualityGateStatus,omitempty"`
	Conditions        []QualityCondition `json:"conditions,omitempty"`
	Ratings           QualityRatings     `json:"ratings"`
}

// IsEmpty reports whether no field was extracted.
func (m QualityMetrics) IsEmpty() bool {
	return m.Coverage == nil && m.Bugs == nil && m.Vulnerabilities == nil &&
		m.CodeSmells == nil && m.TestSuccess == nil && m.QualityGateStatus == nil &&
		len(m.Conditions) == 0 && m.Ratings.Security == nil &&
		m.Ratings.Reliability == nil && m.Ratings.Maintainability == nil
}
