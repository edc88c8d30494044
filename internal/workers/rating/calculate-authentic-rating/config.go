// internal/workers/rating/calculate-authentic-rating/config.go
package calculateauthenticrating

import (
	"fmt"
	"time"

	"venue-signals/internal/common/config"
	"venue-signals/internal/rating"
)

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	WindowMonths   int           `mapstructure:"window_months"`
	// PeerFetchLimit caps concurrent peer review loads.
	PeerFetchLimit int           `mapstructure:"peer_fetch_limit"`
	PeerTimeout    time.Duration `mapstructure:"peer_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        30 * time.Second,
		WindowMonths:   rating.DefaultWindowMonths,
		PeerFetchLimit: 4,
		PeerTimeout:    10 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.WindowMonths <= 0 {
		return fmt.Errorf("window_months must be positive")
	}
	if c.PeerFetchLimit <= 0 {
		return fmt.Errorf("peer_fetch_limit must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	if workerCfg, exists := appConfig.Workers[TaskType]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}
	if appConfig.Scoring.WindowMonths > 0 {
		cfg.WindowMonths = appConfig.Scoring.WindowMonths
	}
	return cfg
}
