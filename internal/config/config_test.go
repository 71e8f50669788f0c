package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		CompaniesHouse: SourceConfig{
			APIKey:       "ch-test-key-123456",
			BaseURL:      "https://api.company-information.service.gov.uk",
			RateInterval: DefaultCompaniesHouseInterval,
		},
		Retry: RetryConfig{
			TransientRetries: 2,
			TransientDelay:   time.Second,
			RateLimitWindow:  30 * time.Second,
			MaxRateLimitWait: time.Minute,
		},
		Mapping: MappingConfig{
			MaxDepth:                2,
			MaxCompaniesPerLevel:    20,
			Timeout:                 time.Minute,
			MaxCandidatesPerOfficer: 20,
			MatchStrategy:           MatchStrategyName,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("COMPANIES_HOUSE_API_KEY", "")
	t.Setenv("OPENCORPORATES_API_KEY", "")
	t.Chdir(dir)
	return dir
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validCfg().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero depth", func(c *Config) { c.Mapping.MaxDepth = 0 }, "max_depth"},
		{"zero cap", func(c *Config) { c.Mapping.MaxCompaniesPerLevel = 0 }, "max_companies_per_level"},
		{"no timeout", func(c *Config) { c.Mapping.Timeout = 0 }, "mapping.timeout"},
		{"zero candidates", func(c *Config) { c.Mapping.MaxCandidatesPerOfficer = 0 }, "max_candidates_per_officer"},
		{"bad strategy", func(c *Config) { c.Mapping.MatchStrategy = "fuzzy" }, "match_strategy"},
		{"negative retries", func(c *Config) { c.Retry.TransientRetries = -1 }, "transient_retries"},
		{"no rate limit cap", func(c *Config) { c.Retry.MaxRateLimitWait = 0 }, "max_rate_limit_wait"},
		{"missing base url", func(c *Config) { c.CompaniesHouse.BaseURL = "" }, "companies_house.base_url"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCfg()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_DisabledSourceNeedsNoBaseURL(t *testing.T) {
	cfg := validCfg()
	cfg.OpenCorporates = SourceConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxDepth, cfg.Mapping.MaxDepth)
	assert.Equal(t, DefaultMaxCompaniesPerLevel, cfg.Mapping.MaxCompaniesPerLevel)
	assert.Equal(t, DefaultMapTimeout, cfg.Mapping.Timeout)
	assert.True(t, cfg.Mapping.ControlRolesOnly)
	assert.True(t, cfg.Mapping.UnknownRoleIsControl)
	assert.Equal(t, MatchStrategyName, cfg.Mapping.MatchStrategy)
	assert.Equal(t, 2, cfg.Retry.TransientRetries)
	assert.Equal(t, DefaultCompaniesHouseInterval, cfg.CompaniesHouse.RateInterval)
	assert.False(t, cfg.CompaniesHouse.Enabled())
	assert.False(t, cfg.OpenCorporates.Enabled())
}

func TestLoad_RegistryKeysFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("COMPANIES_HOUSE_API_KEY", "ch-key")
	t.Setenv("OPENCORPORATES_API_KEY", "oc-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ch-key", cfg.CompaniesHouse.APIKey)
	assert.Equal(t, "oc-key", cfg.OpenCorporates.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	yaml := `mapping:
  max_depth: 3
  max_companies_per_level: 5
  timeout: 45s
  match_strategy: name_birth
companies_house:
  rate_interval: 250ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Mapping.MaxDepth)
	assert.Equal(t, 5, cfg.Mapping.MaxCompaniesPerLevel)
	assert.Equal(t, 45*time.Second, cfg.Mapping.Timeout)
	assert.Equal(t, MatchStrategyNameBirth, cfg.Mapping.MatchStrategy)
	assert.Equal(t, 250*time.Millisecond, cfg.CompaniesHouse.RateInterval)
}

func TestLoad_InvalidFileValue(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("mapping:\n  max_depth: 0\n"), 0o600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "", MaskAPIKey(""))
	assert.Equal(t, "***", MaskAPIKey("short"))
	assert.Equal(t, "abcd****wxyz", MaskAPIKey("abcdefghijklmnopqrstuvwxyz"))

	s := SourceConfig{APIKey: "abcdefghijklmnop"}.String()
	assert.NotContains(t, s, "efghijkl")
}
