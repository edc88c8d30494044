// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Scoring    ScoringConfig           `mapstructure:"scoring"`
	Ensemble   EnsembleConfig          `mapstructure:"ensemble"`
	Cache      CacheConfig             `mapstructure:"cache"`
	Experiment ExperimentConfig        `mapstructure:"experiment"`
	Alerts     AlertsConfig            `mapstructure:"alerts"`
	Tracing    TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	URL         string   `mapstructure:"url"` // Single URL for backwards compatibility
	ReviewIndex string   `mapstructure:"review_index"`
	MaxReviews  int      `mapstructure:"max_reviews"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// --- Engine Configuration ---

// ScoringConfig holds the rule-based scoring and review analysis settings.
type ScoringConfig struct {
	WindowMonths int            `mapstructure:"window_months"`
	DefaultLimit int            `mapstructure:"default_limit"`
	Weights      WeightsConfig  `mapstructure:"weights"`
	Cascade      CascadeConfig  `mapstructure:"cascade"`
	FakeSignal   FakeSignalConf `mapstructure:"fake_signal"`
}

// WeightsConfig mirrors recommendation.Weights so it can be set from yaml.
type WeightsConfig struct {
	Preference float64 `mapstructure:"preference"`
	Emotional  float64 `mapstructure:"emotional"`
	Negative   float64 `mapstructure:"negative"`
	Contextual float64 `mapstructure:"contextual"`
	History    float64 `mapstructure:"history"`
}

// CascadeConfig holds the ensemble confidence gates.
type CascadeConfig struct {
	HighConfidence   float64 `mapstructure:"high_confidence"`
	LowConfidence    float64 `mapstructure:"low_confidence"`
	MLBlendWeight    float64 `mapstructure:"ml_blend_weight"`
	OneSidedPenalty  float64 `mapstructure:"one_sided_penalty"`
	RuleOnlyPenalty  float64 `mapstructure:"rule_only_penalty"`
	SourceCountBonus float64 `mapstructure:"source_count_bonus"`
}

// FakeSignalConf holds fake-review heuristics that operators tune.
type FakeSignalConf struct {
	GenericPhrases []string `mapstructure:"generic_phrases"`
}

// EnsembleConfig holds the external ML prediction sources.
type EnsembleConfig struct {
	Enabled        bool             `mapstructure:"enabled"`
	Timeout        int              `mapstructure:"timeout"`         // milliseconds, per source
	AttemptTimeout int              `mapstructure:"attempt_timeout"` // milliseconds, per HTTP attempt
	MaxRetries     int              `mapstructure:"max_retries"`
	HealthCacheTTL int              `mapstructure:"health_cache_ttl"` // seconds
	Sources        []MLSourceConfig `mapstructure:"sources"`
}

// MLSourceConfig describes one external prediction endpoint.
type MLSourceConfig struct {
	Name           string  `mapstructure:"name"`
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
	BreakerTimeout int     `mapstructure:"breaker_timeout"` // seconds
}

// CacheConfig holds recommendation cache settings.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // redis | memory
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// ExperimentConfig controls the ML ensemble A/B assignment.
type ExperimentConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TestID       string `mapstructure:"test_id"`
	TrafficSplit int    `mapstructure:"traffic_split"` // percent of users in treatment
}

// AlertsConfig holds SNS alerting settings.
type AlertsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter    string `mapstructure:"exporter"` // stdout | none
	ServiceName string `mapstructure:"service_name"`
}
