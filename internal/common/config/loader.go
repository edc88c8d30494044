// internal/common/config/loader.go
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like CACHE_TTL_MINUTES
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1. base config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2. environment overlay
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3. ${VAR} placeholders
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if secrets are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Alerts.TopicARN == "" {
		if val := os.Getenv("ALERTS_SNS_TOPIC_ARN"); val != "" {
			cfg.Alerts.TopicARN = val
		}
	}
	for i := range cfg.Ensemble.Sources {
		src := &cfg.Ensemble.Sources[i]
		if src.APIKey != "" {
			continue
		}
		envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(src.Name)) + "_API_KEY"
		if val := os.Getenv(envKey); val != "" {
			src.APIKey = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "venue-signals"
	}
	if cfg.App.HTTPAddress == "" {
		cfg.App.HTTPAddress = ":8080"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.ReviewIndex == "" {
		cfg.Database.Elasticsearch.ReviewIndex = "venue-reviews"
	}
	if cfg.Database.Elasticsearch.MaxReviews == 0 {
		cfg.Database.Elasticsearch.MaxReviews = 1000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Scoring defaults
	if cfg.Scoring.WindowMonths == 0 {
		cfg.Scoring.WindowMonths = 6
	}
	if cfg.Scoring.DefaultLimit == 0 {
		cfg.Scoring.DefaultLimit = 10
	}
	if cfg.Scoring.Weights == (WeightsConfig{}) {
		cfg.Scoring.Weights = WeightsConfig{
			Preference: 0.30,
			Emotional:  0.20,
			Negative:   0.25,
			Contextual: 0.15,
			History:    0.10,
		}
	}
	c := &cfg.Scoring.Cascade
	if c.HighConfidence == 0 {
		c.HighConfidence = 0.7
	}
	if c.LowConfidence == 0 {
		c.LowConfidence = 0.4
	}
	if c.MLBlendWeight == 0 {
		c.MLBlendWeight = 0.6
	}
	if c.OneSidedPenalty == 0 {
		c.OneSidedPenalty = 0.9
	}
	if c.RuleOnlyPenalty == 0 {
		c.RuleOnlyPenalty = 0.85
	}
	if c.SourceCountBonus == 0 {
		c.SourceCountBonus = 0.05
	}

	// Ensemble defaults
	if cfg.Ensemble.Timeout == 0 {
		cfg.Ensemble.Timeout = 8000
	}
	if cfg.Ensemble.AttemptTimeout == 0 || cfg.Ensemble.AttemptTimeout > 5000 {
		cfg.Ensemble.AttemptTimeout = 5000
	}
	if cfg.Ensemble.MaxRetries == 0 {
		cfg.Ensemble.MaxRetries = 2
	}
	if cfg.Ensemble.HealthCacheTTL == 0 {
		cfg.Ensemble.HealthCacheTTL = 300
	}
	for i := range cfg.Ensemble.Sources {
		src := &cfg.Ensemble.Sources[i]
		if src.RatePerSecond == 0 {
			src.RatePerSecond = 20
		}
		if src.Burst == 0 {
			src.Burst = 5
		}
		if src.BreakerTimeout == 0 {
			src.BreakerTimeout = 30
		}
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "redis"
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 30
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "reco"
	}

	// Experiment defaults
	if cfg.Experiment.TestID == "" {
		cfg.Experiment.TestID = "ml-ensemble"
	}

	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "none"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	switch cfg.Cache.Backend {
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis cache backend")
		}
	case "memory":
	default:
		return fmt.Errorf("cache.backend must be redis or memory, got %q", cfg.Cache.Backend)
	}

	w := cfg.Scoring.Weights
	for name, val := range map[string]float64{
		"preference": w.Preference,
		"emotional":  w.Emotional,
		"negative":   w.Negative,
		"contextual": w.Contextual,
		"history":    w.History,
	} {
		if val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("scoring.weights.%s must be a finite non-negative number", name)
		}
	}

	if cfg.Scoring.Cascade.LowConfidence >= cfg.Scoring.Cascade.HighConfidence {
		return fmt.Errorf("scoring.cascade.low_confidence must be below high_confidence")
	}

	if cfg.Experiment.TrafficSplit < 0 || cfg.Experiment.TrafficSplit > 100 {
		return fmt.Errorf("experiment.traffic_split must be within 0-100")
	}

	seen := make(map[string]bool, len(cfg.Ensemble.Sources))
	for _, src := range cfg.Ensemble.Sources {
		if src.Name == "" || src.BaseURL == "" {
			return fmt.Errorf("ensemble.sources entries need name and base_url")
		}
		if seen[src.Name] {
			return fmt.Errorf("ensemble source %q is declared twice", src.Name)
		}
		seen[src.Name] = true
	}

	if cfg.Alerts.Enabled && cfg.Alerts.TopicARN == "" {
		return fmt.Errorf("alerts.topic_arn is required when alerts are enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
