package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the console output.
	OutputMode string

	// DatabaseBackend represents the database backend for evaluation history.
	DatabaseBackend string

	// GateID is the stable identifier of a gate.
	GateID string

	// GateCategory tells whether a gate can block the aggregate decision.
	GateCategory string

	// GateStatus is the verdict of a single gate.
	GateStatus string

	// Decision is the aggregate verdict of an evaluation run.
	Decision string

	// PolicyOutcome is the classified answer of the policy decision point.
	PolicyOutcome string

	// Severity is a vulnerability severity bucket.
	Severity string

	// Rating is an ordered quality rating where A is best and E is worst.
	Rating string
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// Gate identifiers. The numbering follows the governance catalog.
const (
	GateHighVulnerability     GateID = "gatr-01"
	GateMediumVulnerability   GateID = "gatr-02"
	GateCriticalVulnerability GateID = "gatr-03"
	GateDeveloperThresholds   GateID = "gatr-07"
	GateCodeQuality           GateID = "gatr-08"
	GateApprovedParameters    GateID = "gatr-09"
	GateExpressLane           GateID = "gatr-10"
	GateReleaseBranch         GateID = "gatr-14"
	GatePolicyDecision        GateID = "gatr-pdp"
)

// Gate categories.
const (
	Enforcing    GateCategory = "ENFORCING"
	NonEnforcing GateCategory = "NON_ENFORCING"
)

// Gate statuses.
const (
	StatusPass GateStatus = "PASS"
	StatusWarn GateStatus = "WARN"
	StatusFail GateStatus = "FAIL"
)

// Aggregate decisions.
const (
	DecisionPass Decision = "PASS"
	DecisionWarn Decision = "WARN"
	DecisionFail Decision = "FAIL"
)

// Policy outcomes.
const (
	PolicyPass             PolicyOutcome = "PASS"
	PolicyPassWithWarnings PolicyOutcome = "PASS_WITH_WARNINGS"
	PolicyPassWithInfo     PolicyOutcome = "PASS_WITH_INFO"
	PolicyPassOverride     PolicyOutcome = "PASS_OVERRIDE"
	PolicyFail             PolicyOutcome = "FAIL"
	PolicyUnknown          PolicyOutcome = "UNKNOWN"
)

// Severity buckets.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// Quality ratings.
const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingE Rating = "E"
)

// AllRatings lists ratings from best to worst.
var AllRatings = []Rating{RatingA, RatingB, RatingC, RatingD, RatingE}

// SampledSeverities lists the tiers sampled into policy requests, most severe first.
var SampledSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidSeverities lists the recognized severity labels.
var ValidSeverities = map[Severity]struct{}{
	SeverityCritical: {},
	SeverityHigh:     {},
	SeverityMedium:   {},
	SeverityLow:      {},
}

// ValidGateStatuses lists all valid gate statuses.
var ValidGateStatuses = map[GateStatus]struct{}{
	StatusPass: {},
	StatusWarn: {},
	StatusFail: {},
}

// ValidDecisions lists all valid aggregate decisions.
var ValidDecisions = map[Decision]struct{}{
	DecisionPass: {},
	DecisionWarn: {},
	DecisionFail: {},
}
