// internal/workers/feedback/analyze-negative-feedback/handler.go
package analyzenegativefeedback

import (
	"context"
	"fmt"
	"time"

	"venue-signals/internal/alerts"
	"venue-signals/internal/common/camunda"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/feedback"
	"venue-signals/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const TaskType = "analyze-negative-feedback"

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	analyzer     *feedback.Analyzer
	reviews      repository.ReviewSource
	alerts       *alerts.Publisher
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Analyzer     *feedback.Analyzer
	Reviews      repository.ReviewSource
	Alerts       *alerts.Publisher
	Logger       logger.Logger
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

	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = feedback.NewAnalyzer(loggerInstance)
	}
	publisher := opts.Alerts
	if publisher == nil {
		publisher = alerts.NewNoopPublisher(loggerInstance)
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		analyzer:     analyzer,
		reviews:      opts.Reviews,
		alerts:       publisher,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing negative feedback analysis", map[string]interface{}{
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

// Execute loads the reviews if needed, scores the venue and raises the
// critical-tier alert. An alert failure does not fail the analysis.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	reviews, err := repository.ResolveReviews(ctx, h.reviews, input.VenueID, input.Reviews)
	if err != nil {
		return nil, err
	}

	window := input.WindowMonths
	if window <= 0 {
		window = h.config.WindowMonths
	}

	risk, patterns, err := h.analyzer.AnalyzeNegativeFeedback(input.VenueID, reviews, window)
	if err != nil {
		return nil, err
	}

	sent, err := h.alerts.VenueRisk(ctx, risk)
	if err != nil {
		h.logger.Warn("Risk alert not delivered", map[string]interface{}{
			"venueId": input.VenueID,
			"error":   err.Error(),
		})
	}

	return &Output{
		RiskScore:     risk,
		Patterns:      patterns,
		ReviewCount:   len(reviews),
		RiskAlertSent: sent,
	}, nil
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
		h.logger.Info("Shutting down worker gracefully", nil)
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
