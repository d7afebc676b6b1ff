package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source types
const (
	SourceTypeFeed    = "feed"
	SourceTypeFixture = "fixture"
)

const weightSumTolerance = 1e-6

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	Countries []CountryConfig `mapstructure:"countries"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
	LogFormat      string   `mapstructure:"log_format"` // "json" or "text"
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// SearchConfig holds dispatch and result-size configuration
type SearchConfig struct {
	SourceTimeout     time.Duration `mapstructure:"source_timeout"`
	MinRelevance      float64       `mapstructure:"min_relevance"`
	DefaultMaxResults int           `mapstructure:"default_max_results"`
	MaxResultsCap     int           `mapstructure:"max_results_cap"`
	DefaultCountry    string        `mapstructure:"default_country"`
}

// RankingConfig holds the composite score weights and the source trust table.
// SourceTrust entries are merged over the built-in table.
type RankingConfig struct {
	WeightRelevance float64       `mapstructure:"weight_relevance"`
	WeightPrice     float64       `mapstructure:"weight_price"`
	WeightTrust     float64       `mapstructure:"weight_trust"`
	DefaultTrust    float64       `mapstructure:"default_trust"`
	SourceTrust     []TrustConfig `mapstructure:"source_trust"`
}

// TrustConfig is one source trust entry
type TrustConfig struct {
	Source string  `mapstructure:"source"`
	Score  float64 `mapstructure:"score"`
}

// MatchingConfig overrides the relevance tables. Empty tables keep the
// built-in defaults.
type MatchingConfig struct {
	StopWords              []string         `mapstructure:"stop_words"`
	Categories             []CategoryConfig `mapstructure:"categories"`
	MainCategories         []string         `mapstructure:"main_categories"`
	AccessoryKeywords      []string         `mapstructure:"accessory_keywords"`
	AccessoryQueryKeywords []string         `mapstructure:"accessory_query_keywords"`
	ModelPatterns          []string         `mapstructure:"model_patterns"`
	Debug                  bool             `mapstructure:"debug"`
}

// CategoryConfig is one product category and its keywords
type CategoryConfig struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// SourceConfig describes one listing source
type SourceConfig struct {
	Name          string  `mapstructure:"name"`
	Type          string  `mapstructure:"type"`
	Enabled       *bool   `mapstructure:"enabled"`
	BaseURL       string  `mapstructure:"base_url"`
	SearchPath    string  `mapstructure:"search_path"`
	APIKey        string  `mapstructure:"api_key"`
	Currency      string  `mapstructure:"currency"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
	MaxRetries    int     `mapstructure:"max_retries"`
	MaxResults    int     `mapstructure:"max_results"`
	Path          string  `mapstructure:"path"`
}

// IsEnabled reports whether the source takes part in searches (default true)
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// CountryConfig groups the sources searched for one country
type CountryConfig struct {
	Code     string   `mapstructure:"code"`
	Name     string   `mapstructure:"name"`
	Currency string   `mapstructure:"currency"`
	Sources  []string `mapstructure:"sources"`
}

// DefaultCountries returns the built-in country table
func DefaultCountries() []CountryConfig {
	return []CountryConfig{
		{Code: "US", Name: "United States", Currency: "USD", Sources: []string{"eBay.com", "Walmart"}},
		{Code: "IN", Name: "India", Currency: "INR", Sources: []string{"Amazon.in", "Flipkart", "eBay.in", "Snapdeal", "Shopsy"}},
		{Code: "UK", Name: "United Kingdom", Currency: "GBP", Sources: []string{"eBay.co.uk"}},
		{Code: "DE", Name: "Germany", Currency: "EUR", Sources: []string{"eBay.de"}},
		{Code: "CA", Name: "Canada", Currency: "CAD", Sources: []string{"eBay.ca"}},
	}
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// PRICELENS_SEARCH_SOURCE_TIMEOUT -> search.source_timeout
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if len(config.Countries) == 0 {
		config.Countries = DefaultCountries()
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*", "chrome-extension://*"})
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")

	// Search defaults
	v.SetDefault("search.source_timeout", "10s")
	v.SetDefault("search.min_relevance", 0.2)
	v.SetDefault("search.default_max_results", 50)
	v.SetDefault("search.max_results_cap", 100)
	v.SetDefault("search.default_country", "IN")

	// Ranking defaults
	v.SetDefault("ranking.weight_relevance", 0.75)
	v.SetDefault("ranking.weight_price", 0.20)
	v.SetDefault("ranking.weight_trust", 0.05)
	v.SetDefault("ranking.default_trust", 0.5)

	v.SetDefault("matching.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.LogFormat != "json" && config.Server.LogFormat != "text" {
		return fmt.Errorf("log format must be 'json' or 'text', got: %s", config.Server.LogFormat)
	}

	if config.Cache.Enabled && config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %v", config.Cache.TTL)
	}

	if err := validateSearch(&config.Search); err != nil {
		return err
	}
	if err := validateRanking(&config.Ranking); err != nil {
		return err
	}

	for _, pattern := range config.Matching.ModelPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("model pattern %q does not compile: %w", pattern, err)
		}
	}

	enabled, err := validateSources(config.Sources)
	if err != nil {
		return err
	}

	return validateCountries(config.Countries, enabled, config.Search.DefaultCountry)
}

func validateSearch(search *SearchConfig) error {
	if search.SourceTimeout <= 0 {
		return fmt.Errorf("source timeout must be positive, got: %v", search.SourceTimeout)
	}
	if search.MinRelevance < 0 || search.MinRelevance > 1 {
		return fmt.Errorf("min relevance must be in [0,1], got: %v", search.MinRelevance)
	}
	if search.DefaultMaxResults <= 0 || search.MaxResultsCap <= 0 {
		return fmt.Errorf("result limits must be positive")
	}
	if search.DefaultMaxResults > search.MaxResultsCap {
		return fmt.Errorf("default max results %d exceeds cap %d", search.DefaultMaxResults, search.MaxResultsCap)
	}
	if search.DefaultCountry == "" {
		return fmt.Errorf("default country is required")
	}
	return nil
}

func validateRanking(ranking *RankingConfig) error {
	weights := map[string]float64{
		"relevance": ranking.WeightRelevance,
		"price":     ranking.WeightPrice,
		"trust":     ranking.WeightTrust,
	}
	sum := 0.0
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s weight must be in [0,1], got: %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("ranking weights must sum to 1.0, got: %v", sum)
	}

	if ranking.DefaultTrust < 0 || ranking.DefaultTrust > 1 {
		return fmt.Errorf("default trust must be in [0,1], got: %v", ranking.DefaultTrust)
	}
	for _, entry := range ranking.SourceTrust {
		if entry.Source == "" {
			return fmt.Errorf("source trust entry without source name")
		}
		if entry.Score < 0 || entry.Score > 1 {
			return fmt.Errorf("trust score for %s must be in [0,1], got: %v", entry.Source, entry.Score)
		}
	}
	return nil
}

// validateSources checks every source and returns the names of enabled ones
func validateSources(sources []SourceConfig) (map[string]bool, error) {
	enabled := make(map[string]bool)
	seen := make(map[string]bool)

	for i, source := range sources {
		if source.Name == "" {
			return nil, fmt.Errorf("source %d has no name", i)
		}
		if seen[source.Name] {
			return nil, fmt.Errorf("duplicate source name: %s", source.Name)
		}
		seen[source.Name] = true

		switch source.Type {
		case SourceTypeFeed:
			if source.BaseURL == "" {
				return nil, fmt.Errorf("feed source %s requires base_url", source.Name)
			}
		case SourceTypeFixture:
			if source.Path == "" {
				return nil, fmt.Errorf("fixture source %s requires path", source.Name)
			}
		default:
			return nil, fmt.Errorf("source %s has unknown type %q (want 'feed' or 'fixture')", source.Name, source.Type)
		}

		if source.Currency == "" {
			return nil, fmt.Errorf("source %s requires currency", source.Name)
		}

		if source.IsEnabled() {
			enabled[source.Name] = true
		}
	}

	if len(enabled) == 0 {
		return nil, fmt.Errorf("at least one enabled source is required (see config.yaml)")
	}
	return enabled, nil
}

// validateCountries checks an explicitly configured country table. An empty
// table falls back to DefaultCountries, filtered at startup.
func validateCountries(countries []CountryConfig, enabled map[string]bool, defaultCountry string) error {
	if len(countries) == 0 {
		return nil
	}

	hasDefault := false
	for _, country := range countries {
		if country.Code == "" || country.Currency == "" {
			return fmt.Errorf("country entries require code and currency")
		}
		if strings.EqualFold(country.Code, defaultCountry) {
			hasDefault = true
		}

		configured := 0
		for _, name := range country.Sources {
			if enabled[name] {
				configured++
			}
		}
		if configured == 0 {
			return fmt.Errorf("country %s references no enabled source", country.Code)
		}
	}

	if !hasDefault {
		return fmt.Errorf("default country %s is not in the country table", defaultCountry)
	}
	return nil
}
