package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Source names known to the parsers.
const (
	SourceForexFactory = "forexfactory"
	SourceInvesting    = "investing"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Metadata  MetadataConfig  `yaml:"metadata" mapstructure:"metadata"`
	Refresh   RefreshConfig   `yaml:"refresh" mapstructure:"refresh"`
	Lookup    LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit   CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. DatabaseURL is a Postgres
// connection string or a SQLite file path, depending on Driver.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourceConfig describes one calendar site.
type SourceConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	DetailBaseURL string `yaml:"detail_base_url" mapstructure:"detail_base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SourcesConfig holds both calendar sites and the order they are tried in.
type SourcesConfig struct {
	Order        []string     `yaml:"order" mapstructure:"order"`
	ForexFactory SourceConfig `yaml:"forexfactory" mapstructure:"forexfactory"`
	Investing    SourceConfig `yaml:"investing" mapstructure:"investing"`
}

// NamedSource is a SourceConfig with its name attached.
type NamedSource struct {
	Name string
	SourceConfig
}

// Ordered returns the configured sources in fallback order. Unknown names
// and sources without a URL are skipped.
func (s SourcesConfig) Ordered() []NamedSource {
	var out []NamedSource
	for _, name := range s.Order {
		name = strings.ToLower(strings.TrimSpace(name))
		sc, ok := s.byName(name)
		if !ok || sc.URL == "" {
			continue
		}
		out = append(out, NamedSource{Name: name, SourceConfig: sc})
	}
	return out
}

func (s SourcesConfig) byName(name string) (SourceConfig, bool) {
	switch name {
	case SourceForexFactory:
		return s.ForexFactory, true
	case SourceInvesting:
		return s.Investing, true
	}
	return SourceConfig{}, false
}

// ScrapeConfig configures direct page fetches.
type ScrapeConfig struct {
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// FirecrawlConfig holds Firecrawl API settings. The proxy is used only when
// a key is set.
type FirecrawlConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	WaitForMs   int    `yaml:"wait_for_ms" mapstructure:"wait_for_ms"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MetadataConfig configures detail-page fallback and metadata reuse.
type MetadataConfig struct {
	DetailGroupSize   int `yaml:"detail_group_size" mapstructure:"detail_group_size"`
	DetailPauseMs     int `yaml:"detail_pause_ms" mapstructure:"detail_pause_ms"`
	DetailTimeoutSecs int `yaml:"detail_timeout_secs" mapstructure:"detail_timeout_secs"`
	CacheTTLMins      int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// RefreshConfig configures the orchestrator.
type RefreshConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BatchSize   int `yaml:"batch_size" mapstructure:"batch_size"`
}

// LookupConfig configures the single-event gateway.
type LookupConfig struct {
	FreshnessSecs int    `yaml:"freshness_secs" mapstructure:"freshness_secs"`
	PrimarySource string `yaml:"primary_source" mapstructure:"primary_source"`
}

// RetryConfig configures store write retries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the per-scraper circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxBodyMB      int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ECONCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sources.order", []string{SourceForexFactory, SourceInvesting})
	v.SetDefault("sources.forexfactory.url", "https://www.forexfactory.com/calendar?week=this")
	v.SetDefault("sources.forexfactory.detail_base_url", "https://www.forexfactory.com")
	v.SetDefault("sources.forexfactory.timeout_secs", 45)
	v.SetDefault("sources.investing.url", "https://www.investing.com/economic-calendar/")
	v.SetDefault("sources.investing.detail_base_url", "https://www.investing.com")
	v.SetDefault("sources.investing.timeout_secs", 45)
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.rate_per_second", 2.0)
	v.SetDefault("scrape.burst", 2)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.wait_for_ms", 2000)
	v.SetDefault("firecrawl.timeout_secs", 45)
	v.SetDefault("metadata.detail_group_size", 5)
	v.SetDefault("metadata.detail_pause_ms", 500)
	v.SetDefault("metadata.detail_timeout_secs", 5)
	v.SetDefault("metadata.cache_ttl_mins", 30)
	v.SetDefault("refresh.max_attempts", 5)
	v.SetDefault("refresh.batch_size", 200)
	v.SetDefault("lookup.freshness_secs", 300)
	v.SetDefault("lookup.primary_source", SourceForexFactory)
	v.SetDefault("retry.max_attempts", 2)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_mb", 16)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "serve",
// "bootstrap", "parse" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "migrate":
	case "parse":
		errs = append(errs, c.validatePipeline()...)
	case "bootstrap":
		errs = append(errs, c.validatePipeline()...)
		errs = append(errs, c.validateSources()...)
	case "serve":
		errs = append(errs, c.validatePipeline()...)
		errs = append(errs, c.validateSources()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		names := make([]string, 0, 2)
		for _, s := range c.Sources.Ordered() {
			names = append(names, s.Name)
		}
		if !slices.Contains(names, c.Lookup.PrimarySource) {
			errs = append(errs, "lookup.primary_source must name a configured source")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePipeline() []string {
	var errs []string
	if c.Refresh.MaxAttempts < 1 || c.Refresh.MaxAttempts > 20 {
		errs = append(errs, "refresh.max_attempts must be between 1 and 20")
	}
	if c.Refresh.BatchSize < 1 || c.Refresh.BatchSize > 1000 {
		errs = append(errs, "refresh.batch_size must be between 1 and 1000")
	}
	if c.Metadata.DetailGroupSize < 1 || c.Metadata.DetailGroupSize > 50 {
		errs = append(errs, "metadata.detail_group_size must be between 1 and 50")
	}
	return errs
}

func (c *Config) validateSources() []string {
	if len(c.Sources.Ordered()) == 0 {
		return []string{"sources: at least one source with a url is required"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
