package ensemble

import (
	"context"
	"errors"
	"time"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/models"
)

const (
	DefaultTimeout        = 8 * time.Second
	DefaultResponderBonus = 0.05
)

// Outcome is the settled result of one source call.
type Outcome struct {
	Source      string
	Predictions []models.EnsemblePrediction
	Err         error
	Latency     time.Duration
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Result aggregates every source outcome of one request. A source that
// panicked is an ordinary failed Outcome; Panicked is only set when the
// ensemble call itself blew up.
type Result struct {
	Outcomes    []Outcome
	Predictions []models.EnsemblePrediction
	Confidence  float64
	Responded   int
	Degraded    bool
	Panicked    bool
}

// Exhausted reports that no source produced a usable answer.
func (r *Result) Exhausted() bool {
	return r.Responded == 0
}

// VenueScores combines predictions per venue as a confidence-weighted mean.
// Venues whose predictions all carry zero confidence get the plain mean.
func (r *Result) VenueScores() map[string]float64 {
	type acc struct {
		weighted, weight, sum float64
		n                     int
	}
	accs := make(map[string]*acc)
	for _, p := range r.Predictions {
		a, ok := accs[p.VenueID]
		if !ok {
			a = &acc{}
			accs[p.VenueID] = a
		}
		a.weighted += p.Score * p.Confidence
		a.weight += p.Confidence
		a.sum += p.Score
		a.n++
	}

	out := make(map[string]float64, len(accs))
	for id, a := range accs {
		if a.weight > 0 {
			out[id] = a.weighted / a.weight
		} else {
			out[id] = a.sum / float64(a.n)
		}
	}
	return out
}

type Config struct {
	Timeout        time.Duration
	Concurrency    int
	// ResponderBonus is added to the confidence per responding source.
	ResponderBonus float64
}

// Ensemble queries every configured source concurrently. A failing source
// becomes a failed Outcome and never aborts the others.
type Ensemble struct {
	sources []Source
	health  *HealthCache
	config  Config
	logger  logger.Logger
}

func New(sources []Source, health *HealthCache, cfg Config, log logger.Logger) *Ensemble {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ResponderBonus <= 0 {
		cfg.ResponderBonus = DefaultResponderBonus
	}
	if health == nil {
		health = NewHealthCache(DefaultHealthTTL, nil)
	}
	return &Ensemble{
		sources: sources,
		health:  health,
		config:  cfg,
		logger:  logger.ForComponent(log, "ensemble"),
	}
}

func (e *Ensemble) Len() int {
	return len(e.sources)
}

// SourceNames lists the configured sources. A nil ensemble has none.
func (e *Ensemble) SourceNames() []string {
	if e == nil {
		return nil
	}
	names := make([]string, len(e.sources))
	for i, s := range e.sources {
		names[i] = s.Name()
	}
	return names
}

func (e *Ensemble) Predict(ctx context.Context, req *PredictionRequest) *Result {
	tasks := make([]Task[[]models.EnsemblePrediction], len(e.sources))
	for i, src := range e.sources {
		src := src
		tasks[i] = Task[[]models.EnsemblePrediction]{
			Name: src.Name(),
			Run: func(ctx context.Context) ([]models.EnsemblePrediction, error) {
				return e.callSource(ctx, src, req)
			},
		}
	}

	settled := RunAll(ctx, e.config.Timeout, e.config.Concurrency, tasks)

	res := &Result{Outcomes: make([]Outcome, len(settled))}
	var confidenceSum float64
	for i, s := range settled {
		out := Outcome{Source: s.Name, Predictions: s.Value, Err: s.Err, Latency: s.Latency}
		if out.Err != nil {
			out.Predictions = nil
			out.Err = e.normalizeErr(s.Name, out.Err)
		}
		res.Outcomes[i] = out
		e.record(out)

		if !out.OK() {
			continue
		}
		res.Responded++
		res.Predictions = append(res.Predictions, out.Predictions...)

		var c float64
		for _, p := range out.Predictions {
			c += p.Confidence
			if p.Degraded {
				res.Degraded = true
			}
		}
		confidenceSum += c / float64(len(out.Predictions))
	}

	if res.Responded > 0 {
		res.Confidence = clamp01(confidenceSum/float64(res.Responded) + e.config.ResponderBonus*float64(res.Responded))
	}

	e.logger.Debug("ensemble settled", map[string]interface{}{
		"requestId":  req.RequestID,
		"sources":    len(e.sources),
		"responded":  res.Responded,
		"confidence": res.Confidence,
		"degraded":   res.Degraded,
	})
	return res
}

func (e *Ensemble) callSource(ctx context.Context, src Source, req *PredictionRequest) ([]models.EnsemblePrediction, error) {
	if !e.health.Healthy(ctx, src) {
		return nil, ErrUnhealthy
	}
	preds, err := src.Predict(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, ErrNoPredictions
	}
	return preds, nil
}

func (e *Ensemble) normalizeErr(source string, err error) error {
	if _, ok := apperrors.AsStandard(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewSourceTimeoutError(source, e.config.Timeout)
	}
	return apperrors.NewSourceUnavailableError(source, err)
}

func (e *Ensemble) record(o Outcome) {
	outcome := "ok"
	switch {
	case apperrors.HasCode(o.Err, apperrors.ErrCodeSourceTimeout):
		outcome = "timeout"
	case o.Err != nil:
		outcome = "error"
	}
	metrics.MLSourceCalls.WithLabelValues(o.Source, outcome).Inc()
	metrics.MLSourceLatency.WithLabelValues(o.Source).Observe(o.Latency.Seconds())

	if o.Err != nil {
		e.logger.Warn("prediction source failed", map[string]interface{}{
			"source":    o.Source,
			"error":     o.Err.Error(),
			"latencyMs": o.Latency.Milliseconds(),
		})
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
