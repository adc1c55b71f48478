package release

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ddworken/hishtory-release/internal/audit"
)

// JobConfig configures a validation run. Non-secret settings come from
// a YAML file checked into the release repository; secrets (the polling
// token, signing material) come only from the environment so they never
// land on disk.
type JobConfig struct {
	// Version is the release tag being validated. When set and no
	// explicit URLs are configured, asset URLs are derived from it.
	Version string `yaml:"version"`

	// WorkDir is the directory holding (or receiving) the artifacts.
	// Defaults to the current directory.
	WorkDir string `yaml:"work_dir"`

	// VerifierPath is the trusted binary whose embedded verifier checks
	// attestations.
	VerifierPath string `yaml:"verifier_path"`

	// RetryBudgetMinutes bounds the publish-wait poll per artifact
	// file. Historically 10 or 20; a tuning choice, not a protocol
	// requirement.
	RetryBudgetMinutes int `yaml:"retry_budget_minutes"`

	// FetchArtifacts controls whether the run polls for artifacts first
	// or expects them already present in WorkDir.
	FetchArtifacts bool `yaml:"fetch_artifacts"`

	// ExpectedCommit is the commit hash a strict metadata audit must
	// see. Overridden by GITHUB_SHA.
	ExpectedCommit string `yaml:"expected_commit"`

	// ExpectedVersion is the full version string a strict metadata
	// audit must see, e.g. "v0.295".
	ExpectedVersion string `yaml:"expected_version"`

	// Expected signing identity lines; all four empty selects the
	// default release identity.
	ExpectedSigner         string `yaml:"expected_signer"`
	ExpectedIntermediateCA string `yaml:"expected_intermediate_ca"`
	ExpectedRootCA         string `yaml:"expected_root_ca"`
	ExpectedTeamID         string `yaml:"expected_team_id"`

	// Token authenticates publish-wait polls against private release
	// assets. Environment only, never the YAML file.
	Token string `yaml:"-"`
}

// LoadJobConfig reads a YAML job configuration and applies environment
// overrides and defaults.
func LoadJobConfig(path string) (*JobConfig, error) {
	var cfg JobConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read job config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse job config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv pulls CI-provided values from the environment.
func (c *JobConfig) applyEnv() {
	if sha := os.Getenv("GITHUB_SHA"); sha != "" {
		c.ExpectedCommit = sha
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.Token = token
	}
}

func (c *JobConfig) applyDefaults() {
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.RetryBudgetMinutes <= 0 {
		c.RetryBudgetMinutes = 10
	}
}

// RetryBudget returns the publish-wait budget as a duration.
func (c *JobConfig) RetryBudget() time.Duration {
	return time.Duration(c.RetryBudgetMinutes) * time.Minute
}

// SigningIdentity returns the expected identity, falling back to the
// default release identity when none is configured.
func (c *JobConfig) SigningIdentity() audit.Identity {
	id := audit.Identity{
		Signer:         c.ExpectedSigner,
		IntermediateCA: c.ExpectedIntermediateCA,
		RootCA:         c.ExpectedRootCA,
		TeamID:         c.ExpectedTeamID,
	}
	if id == (audit.Identity{}) {
		return audit.DefaultIdentity
	}
	return id
}

// ReadVersionFile derives the expected version string from a VERSION
// file, which by convention holds the part after the fixed "v0."
// prefix.
func ReadVersionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read version file: %w", err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", fmt.Errorf("version file %s is empty", path)
	}
	return "v0." + version, nil
}
