package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxDepth is the default number of officer hops explored from the root.
	DefaultMaxDepth = 2

	// DefaultMaxCompaniesPerLevel caps new companies admitted at any one level.
	DefaultMaxCompaniesPerLevel = 20

	// DefaultMapTimeout bounds a whole mapping run.
	DefaultMapTimeout = 2 * time.Minute

	// DefaultCompaniesHouseInterval keeps under 600 requests per 5 minutes.
	DefaultCompaniesHouseInterval = 500 * time.Millisecond

	// DefaultOpenCorporatesInterval is conservative for the free tier.
	DefaultOpenCorporatesInterval = 2 * time.Second

	// MatchStrategyName matches officers by normalized name only.
	MatchStrategyName = "name"

	// MatchStrategyNameBirth also requires equal birth month when both are known.
	MatchStrategyNameBirth = "name_birth"
)

// Config holds all configuration for groupmapper.
type Config struct {
	CompaniesHouse SourceConfig  `mapstructure:"companies_house"`
	OpenCorporates SourceConfig  `mapstructure:"opencorporates"`
	Retry          RetryConfig   `mapstructure:"retry"`
	Mapping        MappingConfig `mapstructure:"mapping"`
	Logging        LoggingConfig `mapstructure:"logging"`
	API            APIConfig     `mapstructure:"api"`
	Neo4j          Neo4jConfig   `mapstructure:"neo4j"`
}

// SourceConfig holds the credentials and pacing for one registry source.
// A source without an API key is not queryable.
type SourceConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

// Enabled reports whether the source has credentials.
func (s SourceConfig) Enabled() bool {
	return s.APIKey != ""
}

// String returns a safe representation of SourceConfig with the API key masked.
func (s SourceConfig) String() string {
	return fmt.Sprintf("SourceConfig{APIKey:%s, BaseURL:%s, RateInterval:%s}", MaskAPIKey(s.APIKey), s.BaseURL, s.RateInterval)
}

// RetryConfig bounds every blocking wait in the registry client.
type RetryConfig struct {
	TransientRetries int           `mapstructure:"transient_retries"`
	TransientDelay   time.Duration `mapstructure:"transient_delay"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
	MaxRateLimitWait time.Duration `mapstructure:"max_rate_limit_wait"`
}

// MappingConfig holds traversal bounds and officer policy.
type MappingConfig struct {
	MaxDepth                int           `mapstructure:"max_depth"`
	MaxCompaniesPerLevel    int           `mapstructure:"max_companies_per_level"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	MaxCandidatesPerOfficer int           `mapstructure:"max_candidates_per_officer"`
	ControlRolesOnly        bool          `mapstructure:"control_roles_only"`
	UnknownRoleIsControl    bool          `mapstructure:"unknown_role_is_control"`
	IncludeResigned         bool          `mapstructure:"include_resigned"`
	MatchStrategy           string        `mapstructure:"match_strategy"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Neo4jConfig holds the optional graph export target.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String masks the password.
func (n Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}", n.URI, n.Username, MaskAPIKey(n.Password), n.Database)
}

// MaskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func MaskAPIKey(key string) string {
	const visible = 4
	if key == "" {
		return ""
	}
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".groupmapper"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("GROUPMAPPER")
	v.AutomaticEnv()

	// Registry keys keep the names the registries document.
	_ = v.BindEnv("companies_house.api_key", "COMPANIES_HOUSE_API_KEY", "GROUPMAPPER_COMPANIES_HOUSE_API_KEY")
	_ = v.BindEnv("opencorporates.api_key", "OPENCORPORATES_API_KEY", "GROUPMAPPER_OPENCORPORATES_API_KEY")
	_ = v.BindEnv("mapping.max_depth", "GROUPMAPPER_MAPPING_MAX_DEPTH")
	_ = v.BindEnv("mapping.max_companies_per_level", "GROUPMAPPER_MAPPING_MAX_COMPANIES_PER_LEVEL")
	_ = v.BindEnv("mapping.timeout", "GROUPMAPPER_MAPPING_TIMEOUT")
	_ = v.BindEnv("api.listen_addr", "GROUPMAPPER_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "GROUPMAPPER_API_AUTH_TOKEN")
	_ = v.BindEnv("neo4j.uri", "GROUPMAPPER_NEO4J_URI")
	_ = v.BindEnv("neo4j.password", "GROUPMAPPER_NEO4J_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("companies_house.base_url", "https://api.company-information.service.gov.uk")
	v.SetDefault("companies_house.rate_interval", DefaultCompaniesHouseInterval)
	v.SetDefault("opencorporates.base_url", "https://api.opencorporates.com/v0.4")
	v.SetDefault("opencorporates.rate_interval", DefaultOpenCorporatesInterval)

	v.SetDefault("retry.transient_retries", 2)
	v.SetDefault("retry.transient_delay", time.Second)
	v.SetDefault("retry.rate_limit_window", 30*time.Second)
	v.SetDefault("retry.max_rate_limit_wait", 5*time.Minute)

	v.SetDefault("mapping.max_depth", DefaultMaxDepth)
	v.SetDefault("mapping.max_companies_per_level", DefaultMaxCompaniesPerLevel)
	v.SetDefault("mapping.timeout", DefaultMapTimeout)
	v.SetDefault("mapping.max_candidates_per_officer", 20)
	v.SetDefault("mapping.control_roles_only", true)
	v.SetDefault("mapping.unknown_role_is_control", true)
	v.SetDefault("mapping.include_resigned", true)
	v.SetDefault("mapping.match_strategy", MatchStrategyName)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.CompaniesHouse.Enabled() && c.CompaniesHouse.BaseURL == "" {
		return fmt.Errorf("companies_house.base_url must not be empty")
	}
	if c.OpenCorporates.Enabled() && c.OpenCorporates.BaseURL == "" {
		return fmt.Errorf("opencorporates.base_url must not be empty")
	}
	if c.CompaniesHouse.RateInterval < 0 || c.OpenCorporates.RateInterval < 0 {
		return fmt.Errorf("rate_interval must be >= 0")
	}
	if c.Retry.TransientRetries < 0 {
		return fmt.Errorf("retry.transient_retries must be >= 0")
	}
	if c.Retry.TransientDelay < 0 {
		return fmt.Errorf("retry.transient_delay must be >= 0")
	}
	if c.Retry.MaxRateLimitWait <= 0 {
		return fmt.Errorf("retry.max_rate_limit_wait must be greater than 0")
	}
	if c.Mapping.MaxDepth < 1 {
		return fmt.Errorf("mapping.max_depth must be at least 1")
	}
	if c.Mapping.MaxCompaniesPerLevel < 1 {
		return fmt.Errorf("mapping.max_companies_per_level must be at least 1")
	}
	if c.Mapping.Timeout <= 0 {
		return fmt.Errorf("mapping.timeout must be greater than 0")
	}
	if c.Mapping.MaxCandidatesPerOfficer < 1 {
		return fmt.Errorf("mapping.max_candidates_per_officer must be at least 1")
	}
	switch c.Mapping.MatchStrategy {
	case MatchStrategyName, MatchStrategyNameBirth:
	default:
		return fmt.Errorf("mapping.match_strategy %q must be %q or %q", c.Mapping.MatchStrategy, MatchStrategyName, MatchStrategyNameBirth)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
