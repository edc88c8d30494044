// cmd/worker-manager/components.go
package main

import (
	"context"
	"time"

	"venue-signals/internal/alerts"
	"venue-signals/internal/cache"
	"venue-signals/internal/common/aws"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/database"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/ensemble"
	"venue-signals/internal/models"
	"venue-signals/internal/recommendation"
	"venue-signals/internal/repository"
)

func buildAlertPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (*alerts.Publisher, error) {
	if !cfg.Alerts.Enabled {
		return alerts.NewNoopPublisher(log), nil
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Alerts.Region)
	if err != nil {
		return nil, err
	}
	return alerts.NewPublisher(snsClient, cfg.Alerts.TopicARN, log), nil
}

func buildReviewSource(cfg *config.Config, es *database.ElasticsearchClient) repository.ReviewSource {
	return repository.NewESReviewSource(es.Client, cfg.Database.Elasticsearch.ReviewIndex, cfg.Database.Elasticsearch.MaxReviews)
}

func buildProfileStore(pg *database.PostgresClient) repository.ProfileStore {
	return repository.NewPostgresProfileStore(pg.DB)
}

// buildCache picks the store by cfg.Cache.Backend. A nil redis client
// means the memory backend was selected.
func buildCache(cfg *config.Config, rc *database.RedisClient, log logger.Logger) *cache.RecommendationCache {
	var store cache.Store
	if rc != nil {
		store = cache.NewRedisStore(rc.GetClient())
	} else {
		store = cache.NewMemoryStore(nil)
	}
	return cache.New(store, cache.Config{
		TTL:       time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		KeyPrefix: cfg.Cache.KeyPrefix,
	}, log)
}

// buildEnsemble returns nil when the ensemble is disabled or has no
// sources, which makes the scorer rule-only.
func buildEnsemble(cfg *config.Config, notifier ensemble.Notifier, log logger.Logger) *ensemble.Ensemble {
	if !cfg.Ensemble.Enabled || len(cfg.Ensemble.Sources) == 0 {
		return nil
	}

	sources := make([]ensemble.Source, 0, len(cfg.Ensemble.Sources))
	for _, src := range cfg.Ensemble.Sources {
		breaker := ensemble.DefaultBreakerSettings()
		if src.BreakerTimeout > 0 {
			breaker.OpenTimeout = time.Duration(src.BreakerTimeout) * time.Second
		}
		sources = append(sources, ensemble.NewHTTPSource(ensemble.HTTPSourceConfig{
			Name:           src.Name,
			BaseURL:        src.BaseURL,
			APIKey:         src.APIKey,
			MaxRetries:     cfg.Ensemble.MaxRetries,
			AttemptTimeout: config.GetDuration(cfg.Ensemble.AttemptTimeout),
			RatePerSecond:  src.RatePerSecond,
			Burst:          src.Burst,
			Breaker:        breaker,
		}, nil, notifier, log))
	}

	health := ensemble.NewHealthCache(time.Duration(cfg.Ensemble.HealthCacheTTL)*time.Second, nil)
	return ensemble.New(sources, health, ensemble.Config{
		Timeout:        config.GetDuration(cfg.Ensemble.Timeout),
		ResponderBonus: cfg.Scoring.Cascade.SourceCountBonus,
	}, log)
}

func buildScorer(cfg *config.Config, ens *ensemble.Ensemble, log logger.Logger) *recommendation.Scorer {
	s := cfg.Scoring
	return recommendation.NewScorer(ens, recommendation.Config{
		Cascade: recommendation.CascadeConfig{
			HighConfidence:  s.Cascade.HighConfidence,
			LowConfidence:   s.Cascade.LowConfidence,
			MLBlendWeight:   s.Cascade.MLBlendWeight,
			OneSidedPenalty: s.Cascade.OneSidedPenalty,
			RuleOnlyPenalty: s.Cascade.RuleOnlyPenalty,
		},
		Experiment: recommendation.ExperimentConfig{
			Enabled:      cfg.Experiment.Enabled,
			TestID:       cfg.Experiment.TestID,
			TrafficSplit: cfg.Experiment.TrafficSplit,
		},
		DefaultLimit: s.DefaultLimit,
		Weights: models.Weights{
			Preference: s.Weights.Preference,
			Emotional:  s.Weights.Emotional,
			Negative:   s.Weights.Negative,
			Contextual: s.Weights.Contextual,
			History:    s.Weights.History,
		},
	}, log)
}
