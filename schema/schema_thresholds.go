package schema

import (
	"fmt"
	"math"
	"slices"
)

// ThresholdSet is the complete set of limits applied during one evaluation run.
type ThresholdSet struct {
	VulnerabilitySeverityLimits SeverityLimits    `json:"vulnerabilitySeverityLimits"`
	Quality                     QualityThresholds `json:"quality"`
	ApprovedQualityParameters   []string          `json:"approvedQualityParameters"`
}

// SeverityLimits caps the number of findings tolerated per tier.
type SeverityLimits struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
}

// QualityThresholds are the developer-facing static analysis limits.
type QualityThresholds struct {
	Coverage              float64               `json:"coverage"`
	Bugs                  int                   `json:"bugs"`
	Vulnerabilities       int                   `json:"vulnerabilities"`
	CodeSmells            int                   `json:"codeSmells"`
	SecurityRating        Rating                `json:"securityRating"`
	ReliabilityRating     Rating                `json:"reliabilityRating"`
	MaintainabilityRating Rating                `json:"maintainabilityRating"`
	TechDebtMinutes       int                   `json:"techDebtMinutes"`
	ExpressLane           ExpressLaneThresholds `json:"expressLane"`
}

// ExpressLaneThresholds is the looser set used for low-risk changes.
type ExpressLaneThresholds struct {
	CoverageThreshold    float64 `json:"coverageThreshold"`
	TestSuccessThreshold float64 `json:"testSuccessThreshold"`
	MaxSecurityRating    Rating  `json:"maxSecurityRating"`
	MaxReliabilityRating Rating  `json:"maxReliabilityRating"`
}

// ThresholdOverride mirrors ThresholdSet with optional fields.
// A nil field keeps the value it is merged onto.
type ThresholdOverride struct {
	VulnerabilitySeverityLimits *SeverityLimitsOverride `yaml:"vulnerabilitySeverityLimits"`
	Quality                     *QualityOverride        `yaml:"quality"`
	ApprovedQualityParameters   []string                `yaml:"approvedQualityParameters"`
}

// SeverityLimitsOverride holds optional severity limits.
type SeverityLimitsOverride struct {
	Critical *int `yaml:"critical"`
	High     *int `yaml:"high"`
	Medium   *int `yaml:"medium"`
}

// QualityOverride holds optional quality limits.
type QualityOverride struct {
	Coverage              *float64             `yaml:"coverage"`
	Bugs                  *int                 `yaml:"bugs"`
	Vulnerabilities       *int                 `yaml:"vulnerabilities"`
	CodeSmells            *int                 `yaml:"codeSmells"`
	SecurityRating        *Rating              `yaml:"securityRating"`
	ReliabilityRating     *Rating              `yaml:"reliabilityRating"`
	MaintainabilityRating *Rating              `yaml:"maintainabilityRating"`
	TechDebtMinutes       *int                 `yaml:"techDebtMinutes"`
	ExpressLane           *ExpressLaneOverride `yaml:"expressLane"`
}

// ExpressLaneOverride holds optional express lane limits.
type ExpressLaneOverride struct {
	CoverageThreshold    *float64 `yaml:"coverageThreshold"`
	TestSuccessThreshold *float64 `yaml:"testSuccessThreshold"`
	MaxSecurityRating    *Rating  `yaml:"maxSecurityRating"`
	MaxReliabilityRating *Rating  `yaml:"maxReliabilityRating"`
}

// DefaultThresholds returns the built-in threshold set.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		VulnerabilitySeverityLimits: SeverityLimits{
			Critical: 0,
			High:     5,
			Medium:   10,
		},
		Quality: QualityThresholds{
			Coverage:              80,
			Bugs:                  0,
			Vulnerabilities:       0,
			CodeSmells:            50,
			SecurityRating:        RatingA,
			ReliabilityRating:     RatingA,
			MaintainabilityRating: RatingA,
			TechDebtMinutes:       480,
			ExpressLane: ExpressLaneThresholds{
				CoverageThreshold:    60,
				TestSuccessThreshold: 95,
				MaxSecurityRating:    RatingB,
				MaxReliabilityRating: RatingB,
			},
		},
		ApprovedQualityParameters: []string{"sonar.coverage.exclusions", "sonar.cpd.exclusions"},
	}
}

// IsApproved reports whether a quality tool parameter is on the allow-list.
func (t ThresholdSet) IsApproved(param string) bool {
	return slices.Contains(t.ApprovedQualityParameters, param)
}

// Validate checks that numeric limits are non-negative and ratings are known.
func (t ThresholdSet) Validate() error {
	limits := t.VulnerabilitySeverityLimits
	q := t.Quality
	ints := map[string]int{
		"vulnerabilitySeverityLimits.critical": limits.Critical,
		"vulnerabilitySeverityLimits.high":     limits.High,
		"vulnerabilitySeverityLimits.medium":   limits.Medium,
		"quality.bugs":                         q.Bugs,
		"quality.vulnerabilities":              q.Vulnerabilities,
		"quality.codeSmells":                   q.CodeSmells,
		"quality.techDebtMinutes":              q.TechDebtMinutes,
	}
	for name, v := range ints {
		if v < 0 {
			return fmt.Errorf("threshold %s must not be negative (received %d)", name, v)
		}
	}

	floats := map[string]float64{
		"quality.coverage":                         q.Coverage,
		"quality.expressLane.coverageThreshold":    q.ExpressLane.CoverageThreshold,
		"quality.expressLane.testSuccessThreshold": q.ExpressLane.TestSuccessThreshold,
	}
	for name, v := range floats {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("threshold %s must be between 0 and 100 (received %.2f)", name, v)
		}
	}

	ratings := map[string]Rating{
		"quality.securityRating":                   q.SecurityRating,
		"quality.reliabilityRating":                q.ReliabilityRating,
		"quality.maintainabilityRating":            q.MaintainabilityRating,
		"quality.expressLane.maxSecurityRating":    q.ExpressLane.MaxSecurityRating,
		"quality.expressLane.maxReliabilityRating": q.ExpressLane.MaxReliabilityRating,
	}
	for name, r := range ratings {
		if r.Ordinal() == 0 {
			return fmt.Errorf("threshold %s must be one of A, B, C, D, E (received %q)", name, r)
		}
	}
	return nil
}
