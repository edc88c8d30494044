// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"venue-signals/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "venue-signals/camunda"

// JobWorkerOptions are the polling settings every worker registers with.
type JobWorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// OpenWorker registers handler for the task type and starts polling.
func OpenWorker(client zbc.Client, opts JobWorkerOptions, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(instrument(opts.TaskType, handler)).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType)).
		Open()

	logger.ForComponent(log, "camunda").Info("worker registered with Camunda", map[string]interface{}{
		"taskType":      opts.TaskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return jobWorker
}

// instrument wraps handler with a span per job and records its duration
// on the global meter.
func instrument(taskType string, handler worker.JobHandler) worker.JobHandler {
	tracer := otel.Tracer(instrumentationName)
	duration, _ := otel.Meter(instrumentationName).Float64Histogram(
		"jobs.duration",
		metric.WithDescription("Job handling duration"),
		metric.WithUnit("ms"),
	)
	attrs := attribute.String("task_type", taskType)

	return func(client worker.JobClient, job entities.Job) {
		ctx, span := tracer.Start(context.Background(), taskType, trace.WithAttributes(
			attrs,
			attribute.Int64("job_key", job.GetKey()),
			attribute.Int64("retries", int64(job.GetRetries())),
		))
		start := time.Now()
		defer func() {
			span.End()
			if duration != nil {
				duration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs))
			}
		}()
		handler(client, job)
	}
}

// CompleteJob completes the job with the given output as process variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete command: %w", err)
	}
	return nil
}
