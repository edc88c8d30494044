// internal/workers/rating/calculate-authentic-rating/handler.go
package calculateauthenticrating

import (
	"context"
	"fmt"
	"time"

	"venue-signals/internal/common/camunda"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/common/validation"
	"venue-signals/internal/ensemble"
	"venue-signals/internal/models"
	"venue-signals/internal/rating"
	"venue-signals/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const TaskType = "calculate-authentic-rating"

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	calculator   *rating.Calculator
	reviews      repository.ReviewSource
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig         *config.Config
	CustomConfig      *Config
	Reviews           repository.ReviewSource
	Logger            logger.Logger
	// CalculatorOptions are passed through to rating.NewCalculator.
	CalculatorOptions []rating.Option
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"taskType": TaskType})

	calcOpts := append([]rating.Option{rating.WithWindowMonths(workerConfig.WindowMonths)}, opts.CalculatorOptions...)

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		calculator:   rating.NewCalculator(loggerInstance, calcOpts...),
		reviews:      opts.Reviews,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing authentic rating calculation", map[string]interface{}{
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

// Execute rates the venue. Peer venues that cannot be loaded are skipped
// and reported, they never fail the calculation.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.VenueID == "" {
		return nil, errors.NewValidationError("venueId", "is required")
	}

	reviews, err := repository.ResolveReviews(ctx, h.reviews, input.VenueID, input.Reviews)
	if err != nil {
		return nil, err
	}

	peers, skipped := h.peerSets(ctx, input)

	result, err := h.calculator.Calculate(input.VenueID, reviews, peers)
	if err != nil {
		return nil, err
	}

	if len(reviews) == 0 {
		h.logger.Info("Neutral rating returned", map[string]interface{}{
			"venueId": input.VenueID,
			"reason":  errors.NewInsufficientDataError("venue has no reviews").Error(),
		})
	}

	return &Output{
		Rating:           result,
		SkippedPeerIDs:   skipped,
		InsufficientData: len(reviews) == 0,
	}, nil
}

func (h *Handler) peerSets(ctx context.Context, input *Input) ([][]models.Review, []string) {
	peers := make([][]models.Review, 0, len(input.PeerReviewSets)+len(input.PeerVenueIDs))
	peers = append(peers, input.PeerReviewSets...)

	ids := make([]string, 0, len(input.PeerVenueIDs))
	for _, id := range input.PeerVenueIDs {
		if id != input.VenueID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return peers, nil
	}
	if h.reviews == nil {
		h.logger.Warn("Peer venues requested without a review source", map[string]interface{}{
			"peerVenueIds": ids,
		})
		return peers, ids
	}

	tasks := make([]ensemble.Task[[]models.Review], 0, len(ids))
	for _, id := range ids {
		id := id
		tasks = append(tasks, ensemble.Task[[]models.Review]{
			Name: id,
			Run: func(ctx context.Context) ([]models.Review, error) {
				set, err := h.reviews.ReviewsForVenue(ctx, id)
				if err != nil {
					return nil, err
				}
				if err := validation.Reviews(set); err != nil {
					return nil, err
				}
				return set, nil
			},
		})
	}

	var skipped []string
	for _, res := range ensemble.RunAll(ctx, h.config.PeerTimeout, h.config.PeerFetchLimit, tasks) {
		if res.Err != nil {
			h.logger.Warn("Peer venue skipped", map[string]interface{}{
				"peerVenueId": res.Name,
				"error":       res.Err.Error(),
			})
			skipped = append(skipped, res.Name)
			continue
		}
		peers = append(peers, res.Value)
	}
	return peers, skipped
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
