package contract

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/huangsam/gatekeeper/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       *ConfigRawInput
		expectError bool
		isConfigErr bool
	}{
		{
			name:  "valid minimal config",
			input: &ConfigRawInput{Output: "text"},
		},
		{
			name:        "invalid output",
			input:       &ConfigRawInput{Output: "csv"},
			expectError: true,
		},
		{
			name:        "invalid color",
			input:       &ConfigRawInput{Color: "maybe"},
			expectError: true,
		},
		{
			name:        "negative width",
			input:       &ConfigRawInput{Width: -1},
			expectError: true,
		},
		{
			name:        "invalid log level",
			input:       &ConfigRawInput{LogLevel: "loud"},
			expectError: true,
		},
		{
			name:        "pdp url without token",
			input:       &ConfigRawInput{PDPURL: "http://pdp:7766"},
			expectError: true,
			isConfigErr: true,
		},
		{
			name:  "pdp url with token",
			input: &ConfigRawInput{PDPURL: "http://pdp:7766/", PDPToken: "secret"},
		},
		{
			name:        "pdp url without scheme",
			input:       &ConfigRawInput{PDPURL: "pdp:7766", PDPToken: "secret"},
			expectError: true,
			isConfigErr: true,
		},
		{
			name:        "bad pdp timeout",
			input:       &ConfigRawInput{PDPTimeout: "soon"},
			expectError: true,
			isConfigErr: true,
		},
		{
			name:        "too many ready attempts",
			input:       &ConfigRawInput{PDPReadyAttempts: MaxReadyAttempts + 1},
			expectError: true,
			isConfigErr: true,
		},
		{
			name:        "jira url without credentials",
			input:       &ConfigRawInput{JiraURL: "https://jira.example.com"},
			expectError: true,
			isConfigErr: true,
		},
		{
			name: "jira fully configured",
			input: &ConfigRawInput{
				JiraURL:   "https://jira.example.com",
				JiraUser:  "bot",
				JiraToken: "token",
				AppID:     "APP-1",
			},
		},
		{
			name:        "bad thresholds override",
			input:       &ConfigRawInput{ThresholdsStr: "high=3"},
			expectError: true,
			isConfigErr: true,
		},
		{
			name:        "invalid history backend",
			input:       &ConfigRawInput{HistoryBackend: "redis"},
			expectError: true,
		},
		{
			name:        "mysql without connection string",
			input:       &ConfigRawInput{HistoryBackend: "mysql"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := ProcessAndValidate(context.Background(), cfg, nil, tt.input)
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.isConfigErr, errors.Is(err, ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	input := &ConfigRawInput{
		Branch:        "refs/heads/release/1.2",
		Environment:   " PROD ",
		QualityParams: "sonar.coverage.exclusions, ,sonar.exclusions",
	}
	require.NoError(t, ProcessAndValidate(context.Background(), cfg, nil, input))

	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, DefaultOutputFile, cfg.OutputFile)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)

	assert.Equal(t, "release/1.2", cfg.Run.Branch)
	assert.Equal(t, "PROD", cfg.Run.Environment)
	assert.Equal(t, []string{"sonar.coverage.exclusions", "sonar.exclusions"}, cfg.Run.QualityParameters)
	assert.Equal(t, DefaultProtectedEnvironments, cfg.ProtectedEnvironments)
	assert.Equal(t, DefaultPrivilegedRoles, cfg.PrivilegedRoles)
	assert.Equal(t, DefaultSnykCandidates, cfg.SnykCandidates)

	assert.False(t, cfg.Policy.Enabled())
	assert.Equal(t, DefaultPolicyTenant, cfg.Policy.Tenant)
	assert.Equal(t, DefaultReadyAttempts, cfg.Policy.ReadyAttempts)
	assert.Equal(t, DefaultReadyInterval, cfg.Policy.ReadyInterval)
	assert.Equal(t, DefaultDecideAttempts, cfg.Policy.DecideAttempts)
	assert.Equal(t, DefaultPolicyTimeout, cfg.Policy.Timeout)
	assert.False(t, cfg.Exception.Enabled())
}

func TestProcessPolicyConfigTrimsURL(t *testing.T) {
	cfg := &Config{}
	input := &ConfigRawInput{
		PDPURL:           "https://pdp.internal/",
		PDPToken:         "abc",
		PDPTimeout:       "3s",
		PDPReadyInterval: "0s",
		PDPReadyAttempts: 2,
	}
	require.NoError(t, ProcessAndValidate(context.Background(), cfg, nil, input))
	assert.Equal(t, "https://pdp.internal", cfg.Policy.URL)
	assert.Equal(t, 3*time.Second, cfg.Policy.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Policy.ReadyInterval)
	assert.Equal(t, 2, cfg.Policy.ReadyAttempts)
	assert.True(t, cfg.Policy.Enabled())
}

func TestParseThresholdsOverrideString(t *testing.T) {
	t.Run("valid keys", func(t *testing.T) {
		o, err := ParseThresholdsOverrideString("high:3, coverage:72.5,express_security_rating:c,tech_debt_minutes:10")
		require.NoError(t, err)
		require.NotNil(t, o.VulnerabilitySeverityLimits)
		require.NotNil(t, o.Quality)
		require.NotNil(t, o.Quality.ExpressLane)

		assert.Equal(t, 3, *o.VulnerabilitySeverityLimits.High)
		assert.Nil(t, o.VulnerabilitySeverityLimits.Critical)
		assert.InDelta(t, 72.5, *o.Quality.Coverage, 0.001)
		assert.Equal(t, 10, *o.Quality.TechDebtMinutes)
		assert.Equal(t, schema.RatingC, *o.Quality.ExpressLane.MaxSecurityRating)
	})

	t.Run("empty string", func(t *testing.T) {
		o, err := ParseThresholdsOverrideString("")
		require.NoError(t, err)
		assert.Nil(t, o.Quality)
	})

	errCases := []string{
		"high",
		"high:three",
		"nonsense:1",
		"security_rating:Z",
		"coverage:1:2",
		"coverage:NaN",
		"coverage:Inf",
		"express_test_success:-Inf",
	}
	for _, s := range errCases {
		t.Run("error "+s, func(t *testing.T) {
			_, err := ParseThresholdsOverrideString(s)
			assert.Error(t, err)
		})
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/gatekeeper", false},
		{schema.MySQLBackend, "user:pass@localhost/gatekeeper", true},
		{schema.PostgreSQLBackend, "host=localhost port=5432 dbname=gatekeeper", false},
		{schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
		if tt.wantErr {
			assert.Error(t, err, "%s %q", tt.backend, tt.conn)
		} else {
			assert.NoError(t, err, "%s %q", tt.backend, tt.conn)
		}
	}
}

type fakeGit struct {
	root, branch, commit, repo string
	err                        error
}

func (f fakeGit) Run(context.Context, string, ...string) ([]byte, error) { return nil, f.err }

func (f fakeGit) GetRepoRoot(context.Context, string) (string, error) { return f.root, f.err }

func (f fakeGit) GetBranch(context.Context, string) (string, error) { return f.branch, f.err }

func (f fakeGit) GetHeadCommit(context.Context, string) (string, error) { return f.commit, f.err }

func (f fakeGit) GetRemoteRepository(context.Context, string) (string, error) { return f.repo, f.err }

func TestResolveRunFromGit(t *testing.T) {
	git := fakeGit{root: "/src/app", branch: "release/1.2", commit: "deadbeef", repo: "acme/app"}

	cfg := &Config{}
	resolveRunFromGit(context.Background(), cfg, git, ".")
	assert.Equal(t, "release/1.2", cfg.Run.Branch)
	assert.Equal(t, "deadbeef", cfg.Run.Commit)
	assert.Equal(t, "acme/app", cfg.Run.Repository)

	// explicit values win
	cfg = &Config{Run: schema.RunContext{Branch: "main", Repository: "acme/other"}}
	resolveRunFromGit(context.Background(), cfg, git, ".")
	assert.Equal(t, "main", cfg.Run.Branch)
	assert.Equal(t, "deadbeef", cfg.Run.Commit)
	assert.Equal(t, "acme/other", cfg.Run.Repository)

	cfg = &Config{}
	resolveRunFromGit(context.Background(), cfg, fakeGit{err: errors.New("not a git repository")}, ".")
	assert.Empty(t, cfg.Run.Branch)

	resolveRunFromGit(context.Background(), cfg, git, "")
	assert.Empty(t, cfg.Run.Branch)
	resolveRunFromGit(context.Background(), cfg, nil, ".")
	assert.Empty(t, cfg.Run.Commit)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		SnykCandidates: []string{"a"},
		Run:            schema.RunContext{QualityParameters: []string{"p"}},
	}
	clone := cfg.Clone()
	clone.SnykCandidates[0] = "b"
	clone.Run.QualityParameters[0] = "q"
	assert.Equal(t, "a", cfg.SnykCandidates[0])
	assert.Equal(t, "p", cfg.Run.QualityParameters[0])
}

func FuzzParseThresholdsOverrideString(f *testing.F) {
	for _, seed := range []string{"high:3", "coverage:80,bugs:0", "security_rating:A", "", ",,", "x:y:z"} {
		f.Add(seed)
	}
	f.Fuzz(func(_ *testing.T, s string) {
		_, _ = ParseThresholdsOverrideString(s)
	})
}
