package contract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/gatekeeper/schema"
)

// Default values for configuration.
const (
	DefaultOutputFile       = "gate-result.json"
	DefaultPolicyTenant     = "default"
	DefaultPolicyTimeout    = 10 * time.Second
	DefaultReadyAttempts    = 30
	DefaultReadyInterval    = 2 * time.Second
	DefaultDecideAttempts   = 3
	DefaultExceptionTimeout = 15 * time.Second
	MaxReadyAttempts        = 300
)

// DefaultProtectedEnvironments are the tiers that only accept main or release/* branches.
var DefaultProtectedEnvironments = []string{"UAT", "PROD"}

// DefaultPrivilegedRoles are roles whose denial hints at a role mismatch.
var DefaultPrivilegedRoles = []string{"admin", "deployer", "release-manager"}

// DefaultSnykCandidates are probed in order inside the vulnerability scan directory.
var DefaultSnykCandidates = []string{"snyk-code-results.json", "snyk-report.json", "snyk-results.json", "snyk"}

// DefaultSonarCandidates are probed in order inside the quality scan directory.
var DefaultSonarCandidates = []string{"sonar-results.json", "sonar-report.json", "sonar"}

// PolicyConfig configures the policy decision point client.
type PolicyConfig struct {
	URL            string
	Token          string // Please use env var as this is plaintext
	Tenant         string
	Timeout        time.Duration
	ReadyAttempts  int
	ReadyInterval  time.Duration
	DecideAttempts int
}

// Enabled reports whether the delegated gate should run.
func (p PolicyConfig) Enabled() bool {
	return p.URL != ""
}

// ExceptionConfig configures the exception tracker lookup.
type ExceptionConfig struct {
	URL     string
	User    string
	Token   string // Please use env var as this is plaintext
	AppID   string
	Timeout time.Duration
}

// Enabled reports whether failing enforcing gates are checked for exceptions.
func (e ExceptionConfig) Enabled() bool {
	return e.URL != ""
}

// Config holds the runtime configuration for an evaluation.
// This struct remains the "final, validated" config.
type Config struct {
	SnykDir         string
	SonarDir        string
	SnykCandidates  []string
	SonarCandidates []string

	ThresholdsFile     string
	ThresholdsOverride *schema.ThresholdOverride // from --thresholds-override, applied last

	QualityPropertiesFile string

	Run schema.RunContext

	ProtectedEnvironments []string
	PrivilegedRoles       []string

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	LogLevel   slog.Level

	Policy    PolicyConfig
	Exception ExceptionConfig

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	LogLevel         string `mapstructure:"log-level"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from evaluateCmd.Flags() ---
	SnykDir           string `mapstructure:"snyk-dir"`
	SonarDir          string `mapstructure:"sonar-dir"`
	ThresholdsFile    string `mapstructure:"thresholds-file"`
	ThresholdsStr     string `mapstructure:"thresholds-override"`
	QualityParams     string `mapstructure:"quality-params"`
	QualityProperties string `mapstructure:"quality-properties"`

	Environment string `mapstructure:"environment"`
	Branch      string `mapstructure:"branch"`
	Repository  string `mapstructure:"repository"`
	Commit      string `mapstructure:"commit"`
	Workflow    string `mapstructure:"workflow"`
	Actor       string `mapstructure:"actor"`
	Role        string `mapstructure:"role"`
	RepoPath    string `mapstructure:"repo-path"`

	ProtectedEnvironments string `mapstructure:"protected-environments"`
	PrivilegedRoles       string `mapstructure:"privileged-roles"`

	PDPURL           string `mapstructure:"pdp-url"`
	PDPToken         string `mapstructure:"pdp-token"`
	PDPTenant        string `mapstructure:"pdp-tenant"`
	PDPTimeout       string `mapstructure:"pdp-timeout"`
	PDPReadyAttempts int    `mapstructure:"pdp-ready-attempts"`
	PDPReadyInterval string `mapstructure:"pdp-ready-interval"`
	PDPAttempts      int    `mapstructure:"pdp-attempts"`

	JiraURL     string `mapstructure:"jira-url"`
	JiraUser    string `mapstructure:"jira-user"`
	JiraToken   string `mapstructure:"jira-token"`
	JiraTimeout string `mapstructure:"jira-timeout"`
	AppID       string `mapstructure:"app-id"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.SnykCandidates = slices.Clone(c.SnykCandidates)
	clone.SonarCandidates = slices.Clone(c.SonarCandidates)
	clone.ProtectedEnvironments = slices.Clone(c.ProtectedEnvironments)
	clone.PrivilegedRoles = slices.Clone(c.PrivilegedRoles)
	clone.Run.QualityParameters = slices.Clone(c.Run.QualityParameters)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processRunContext(cfg, input); err != nil {
		return err
	}
	resolveRunFromGit(ctx, cfg, client, input.RepoPath)
	if err := processScanInputs(cfg, input); err != nil {
		return err
	}
	if err := processPolicyConfig(cfg, input); err != nil {
		return err
	}
	if err := processExceptionConfig(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the history backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend := strings.ToLower(strings.TrimSpace(input.HistoryBackend))
	if backend == "" {
		backend = string(schema.NoneBackend)
	}
	cfg.HistoryBackend = schema.DatabaseBackend(backend)
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// validateSimpleInputs processes and validates output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = strings.TrimSpace(input.OutputFile)
	if cfg.OutputFile == "" {
		cfg.OutputFile = DefaultOutputFile
	}

	if input.Width < 0 {
		return fmt.Errorf("width must not be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	cfg.UseColors = true
	if input.Color != "" {
		colors, err := ParseBoolString(input.Color)
		if err != nil {
			return fmt.Errorf("invalid --color value: %w", err)
		}
		cfg.UseColors = colors
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, json", input.Output)
	}

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	return nil
}

// processRunContext builds the immutable run context from pipeline inputs.
func processRunContext(cfg *Config, input *ConfigRawInput) error {
	cfg.Run = schema.RunContext{
		Environment:       strings.TrimSpace(input.Environment),
		Branch:            schema.NormalizeBranch(input.Branch),
		Repository:        strings.TrimSpace(input.Repository),
		Commit:            strings.TrimSpace(input.Commit),
		Workflow:          strings.TrimSpace(input.Workflow),
		Actor:             strings.TrimSpace(input.Actor),
		Role:              strings.TrimSpace(input.Role),
		QualityParameters: SplitList(input.QualityParams),
	}

	cfg.ProtectedEnvironments = SplitList(input.ProtectedEnvironments)
	if len(cfg.ProtectedEnvironments) == 0 {
		cfg.ProtectedEnvironments = slices.Clone(DefaultProtectedEnvironments)
	}
	cfg.PrivilegedRoles = SplitList(input.PrivilegedRoles)
	if len(cfg.PrivilegedRoles) == 0 {
		cfg.PrivilegedRoles = slices.Clone(DefaultPrivilegedRoles)
	}
	return nil
}

// resolveRunFromGit fills the branch, commit and repository left empty
// from the working copy at repoPath. A path outside any working copy is skipped.
func resolveRunFromGit(ctx context.Context, cfg *Config, client GitClient, repoPath string) {
	repoPath = strings.TrimSpace(repoPath)
	if client == nil || repoPath == "" {
		return
	}
	if cfg.Run.Branch != "" && cfg.Run.Commit != "" && cfg.Run.Repository != "" {
		return
	}
	root, err := client.GetRepoRoot(ctx, repoPath)
	if err != nil {
		slog.Debug("run context not detected from git", "path", repoPath, "error", err)
		return
	}
	if cfg.Run.Branch == "" {
		if branch, err := client.GetBranch(ctx, root); err == nil {
			cfg.Run.Branch = schema.NormalizeBranch(branch)
		}
	}
	if cfg.Run.Commit == "" {
		if commit, err := client.GetHeadCommit(ctx, root); err == nil {
			cfg.Run.Commit = commit
		}
	}
	if cfg.Run.Repository == "" {
		if repo, err := client.GetRemoteRepository(ctx, root); err == nil {
			cfg.Run.Repository = repo
		}
	}
	slog.Debug("run context detected from git", "root", root, "branch", cfg.Run.Branch, "commit", cfg.Run.Commit)
}

// processScanInputs handles scan directories, threshold sources and the properties file.
func processScanInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.SnykDir = strings.TrimSpace(input.SnykDir)
	cfg.SonarDir = strings.TrimSpace(input.SonarDir)
	cfg.SnykCandidates = slices.Clone(DefaultSnykCandidates)
	cfg.SonarCandidates = slices.Clone(DefaultSonarCandidates)
	cfg.ThresholdsFile = strings.TrimSpace(input.ThresholdsFile)
	cfg.QualityPropertiesFile = strings.TrimSpace(input.QualityProperties)

	cfg.ThresholdsOverride = nil
	if input.ThresholdsStr != "" {
		override, err := ParseThresholdsOverrideString(input.ThresholdsStr)
		if err != nil {
			return invalidConfig("invalid --thresholds-override format: %v", err)
		}
		cfg.ThresholdsOverride = override
	}
	return nil
}

// processPolicyConfig validates the PDP endpoint and credential.
func processPolicyConfig(cfg *Config, input *ConfigRawInput) error {
	p := PolicyConfig{
		URL:            strings.TrimRight(strings.TrimSpace(input.PDPURL), "/"),
		Token:          strings.TrimSpace(input.PDPToken),
		Tenant:         strings.TrimSpace(input.PDPTenant),
		Timeout:        DefaultPolicyTimeout,
		ReadyAttempts:  input.PDPReadyAttempts,
		ReadyInterval:  DefaultReadyInterval,
		DecideAttempts: input.PDPAttempts,
	}
	if p.Tenant == "" {
		p.Tenant = DefaultPolicyTenant
	}
	if p.ReadyAttempts == 0 {
		p.ReadyAttempts = DefaultReadyAttempts
	}
	if p.DecideAttempts == 0 {
		p.DecideAttempts = DefaultDecideAttempts
	}

	var err error
	if input.PDPTimeout != "" {
		if p.Timeout, err = time.ParseDuration(input.PDPTimeout); err != nil || p.Timeout <= 0 {
			return invalidConfig("invalid --pdp-timeout '%s'", input.PDPTimeout)
		}
	}
	if input.PDPReadyInterval != "" {
		if p.ReadyInterval, err = time.ParseDuration(input.PDPReadyInterval); err != nil || p.ReadyInterval < 0 {
			return invalidConfig("invalid --pdp-ready-interval '%s'", input.PDPReadyInterval)
		}
	}
	if p.ReadyAttempts < 1 || p.ReadyAttempts > MaxReadyAttempts {
		return invalidConfig("pdp-ready-attempts must be between 1 and %d (received %d)", MaxReadyAttempts, p.ReadyAttempts)
	}
	if p.DecideAttempts < 1 {
		return invalidConfig("pdp-attempts must be at least 1 (received %d)", p.DecideAttempts)
	}

	if p.Enabled() {
		if err := validateEndpoint(p.URL); err != nil {
			return invalidConfig("invalid --pdp-url: %v", err)
		}
		if p.Token == "" {
			return invalidConfig("pdp-token is required when pdp-url is set")
		}
	}

	cfg.Policy = p
	return nil
}

// processExceptionConfig validates the exception tracker settings.
func processExceptionConfig(cfg *Config, input *ConfigRawInput) error {
	e := ExceptionConfig{
		URL:     strings.TrimRight(strings.TrimSpace(input.JiraURL), "/"),
		User:    strings.TrimSpace(input.JiraUser),
		Token:   strings.TrimSpace(input.JiraToken),
		AppID:   strings.TrimSpace(input.AppID),
		Timeout: DefaultExceptionTimeout,
	}
	if input.JiraTimeout != "" {
		d, err := time.ParseDuration(input.JiraTimeout)
		if err != nil || d <= 0 {
			return invalidConfig("invalid --jira-timeout '%s'", input.JiraTimeout)
		}
		e.Timeout = d
	}

	if e.Enabled() {
		if err := validateEndpoint(e.URL); err != nil {
			return invalidConfig("invalid --jira-url: %v", err)
		}
		if e.User == "" || e.Token == "" {
			return invalidConfig("jira-user and jira-token are required when jira-url is set")
		}
		if e.AppID == "" {
			return invalidConfig("app-id is required when jira-url is set")
		}
	}

	cfg.Exception = e
	return nil
}

// validateEndpoint accepts absolute http(s) URLs with a host.
func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (received %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// ParseLogLevel parses debug, info, warn or error. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", s)
	}
	return level, nil
}

// ParseThresholdsOverrideString parses a string like "high:3,coverage:70,express_security_rating:C"
// into a threshold override.
func ParseThresholdsOverrideString(s string) (*schema.ThresholdOverride, error) {
	override := &schema.ThresholdOverride{}

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		keyValue := strings.Split(part, ":")
		if len(keyValue) != 2 {
			return nil, fmt.Errorf("invalid threshold format '%s', expected 'key:value'", part)
		}

		key := strings.ToLower(strings.TrimSpace(keyValue[0]))
		value := strings.TrimSpace(keyValue[1])
		if err := applyThresholdPair(override, key, value); err != nil {
			return nil, err
		}
	}

	return override, nil
}

// applyThresholdPair sets one key of the override.
func applyThresholdPair(o *schema.ThresholdOverride, key, value string) error {
	limits := func() *schema.SeverityLimitsOverride {
		if o.VulnerabilitySeverityLimits == nil {
			o.VulnerabilitySeverityLimits = &schema.SeverityLimitsOverride{}
		}
		return o.VulnerabilitySeverityLimits
	}
	quality := func() *schema.QualityOverride {
		if o.Quality == nil {
			o.Quality = &schema.QualityOverride{}
		}
		return o.Quality
	}
	express := func() *schema.ExpressLaneOverride {
		q := quality()
		if q.ExpressLane == nil {
			q.ExpressLane = &schema.ExpressLaneOverride{}
		}
		return q.ExpressLane
	}

	switch key {
	case "critical":
		return setInt(&limits().Critical, key, value)
	case "high":
		return setInt(&limits().High, key, value)
	case "medium":
		return setInt(&limits().Medium, key, value)
	case "coverage":
		return setFloat(&quality().Coverage, key, value)
	case "bugs":
		return setInt(&quality().Bugs, key, value)
	case "vulnerabilities":
		return setInt(&quality().Vulnerabilities, key, value)
	case "code_smells":
		return setInt(&quality().CodeSmells, key, value)
	case "tech_debt_minutes":
		return setInt(&quality().TechDebtMinutes, key, value)
	case "security_rating":
		return setRating(&quality().SecurityRating, key, value)
	case "reliability_rating":
		return setRating(&quality().ReliabilityRating, key, value)
	case "maintainability_rating":
		return setRating(&quality().MaintainabilityRating, key, value)
	case "express_coverage":
		return setFloat(&express().CoverageThreshold, key, value)
	case "express_test_success":
		return setFloat(&express().TestSuccessThreshold, key, value)
	case "express_security_rating":
		return setRating(&express().MaxSecurityRating, key, value)
	case "express_reliability_rating":
		return setRating(&express().MaxReliabilityRating, key, value)
	default:
		return fmt.Errorf("unknown threshold key '%s'", key)
	}
}

func setInt(dst **int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid threshold value '%s' for %s: %w", value, key, err)
	}
	*dst = &v
	return nil
}

func setFloat(dst **float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid threshold value '%s' for %s: %w", value, key, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid threshold value '%s' for %s: not a finite number", value, key)
	}
	*dst = &v
	return nil
}

func setRating(dst **schema.Rating, key, value string) error {
	r, ok := schema.ParseRating(value)
	if !ok {
		return fmt.Errorf("invalid rating '%s' for %s, expected A-E", value, key)
	}
	*dst = &r
	return nil
}
