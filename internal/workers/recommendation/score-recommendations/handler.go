// internal/workers/recommendation/score-recommendations/handler.go
package scorerecommendations

import (
	"context"
	"fmt"
	"time"

	"venue-signals/internal/cache"
	"venue-signals/internal/common/camunda"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/models"
	"venue-signals/internal/recommendation"
	"venue-signals/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const TaskType = "score-recommendations"

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	scorer       *recommendation.Scorer
	cache        *cache.RecommendationCache
	profiles     repository.ProfileStore
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Scorer       *recommendation.Scorer
	Cache        *cache.RecommendationCache
	Profiles     repository.ProfileStore
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("scorer is required for %s", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		scorer:       opts.Scorer,
		cache:        opts.Cache,
		profiles:     opts.Profiles,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing recommendation scoring", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var input Input
	if err := camunda.DecodeVariables(job, inputSchema, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute scores the candidates, serving and filling the recommendation
// cache when one is configured. Only malformed input fails.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req := recommendation.ScoreRequest{
		User:       h.resolveProfile(ctx, input.User),
		Candidates: input.Candidates,
		Context:    input.Context,
		Weights:    input.Weights,
		Limit:      input.Limit,
	}
	if err := h.scorer.Validate(req); err != nil {
		return nil, err
	}

	if h.cache == nil || !h.config.UseCache {
		res, err := h.scorer.Score(ctx, req)
		if err != nil {
			return nil, err
		}
		return outputFromResult(res), nil
	}

	if input.BypassCache {
		res, err := h.scorer.Score(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := h.cache.Set(ctx, req.User.UserID, req.Context, res.Ranked); err != nil {
			h.logger.Warn("Cache refresh failed", map[string]interface{}{
				"userId": req.User.UserID,
				"error":  err.Error(),
			})
		}
		return outputFromResult(res), nil
	}

	var fresh *recommendation.ScoreResult
	candidates, hit, err := h.cache.GetOrCompute(ctx, req.User.UserID, req.Context, func(ctx context.Context) ([]models.RecommendationCandidate, error) {
		res, err := h.scorer.Score(ctx, req)
		if err != nil {
			return nil, err
		}
		fresh = res
		return res.Ranked, nil
	})
	if err != nil {
		return nil, err
	}

	if fresh != nil {
		return outputFromResult(fresh), nil
	}

	// Served from the cache, or by a concurrent identical request. The
	// cache holds the full ranking so every caller gets its own limit.
	return &Output{
		Recommendations: recommendation.TopN(candidates, h.scorer.EffectiveLimit(input.Limit)),
		FromCache:       hit,
	}, nil
}

// resolveProfile fills a profile that carries only the user id from the
// profile store. A store failure scores with the bare profile.
func (h *Handler) resolveProfile(ctx context.Context, user models.UserProfile) models.UserProfile {
	if h.profiles == nil || user.UserID == "" || !isBareProfile(user) {
		return user
	}

	stored, err := h.profiles.GetProfile(ctx, user.UserID)
	if err != nil {
		h.logger.Warn("Profile lookup failed, scoring without preferences", map[string]interface{}{
			"userId": user.UserID,
			"error":  err.Error(),
		})
		return user
	}
	if stored == nil {
		return user
	}
	profile := *stored
	profile.UserID = user.UserID
	return profile
}

func isBareProfile(u models.UserProfile) bool {
	return len(u.PreferredCuisines) == 0 &&
		len(u.PreferredAtmospheres) == 0 &&
		u.PriceRange == nil &&
		u.Emotional == nil &&
		len(u.History) == 0 &&
		u.HomeLocation == ""
}

func outputFromResult(res *recommendation.ScoreResult) *Output {
	candidates := res.Candidates
	if candidates == nil {
		candidates = []models.RecommendationCandidate{}
	}
	return &Output{
		Recommendations:    candidates,
		RequestID:          res.RequestID,
		Tier:               res.Tier,
		Variant:            res.Variant,
		EnsembleConfidence: res.EnsembleConfidence,
		Sources:            res.Sources,
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errors.CodeOf(err)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register(client zbc.Client) {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return
	}
	h.jobWorker = camunda.OpenWorker(client, camunda.JobWorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h.Handle, h.logger)
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
