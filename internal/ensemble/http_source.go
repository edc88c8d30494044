package ensemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "venue-signals/internal/common/errors"
	apphttp "venue-signals/internal/common/http"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const predictionResponseSchema = `{
	"type": "object",
	"required": ["predictions"],
	"properties": {
		"model": {"type": "string"},
		"degraded": {"type": "boolean"},
		"predictions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["venueId", "score", "confidence"],
				"properties": {
					"venueId": {"type": "string", "minLength": 1},
					"score": {"type": "number", "minimum": 0, "maximum": 1},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1},
					"features": {"type": "object", "additionalProperties": {"type": "number"}}
				}
			}
		}
	}
}`

var responseSchema = validation.MustSchema("prediction-response", predictionResponseSchema)

type predictionResponse struct {
	Model       string                      `json:"model"`
	Degraded    bool                        `json:"degraded"`
	Predictions []models.EnsemblePrediction `json:"predictions"`
}

// errPermanent marks responses that another attempt will not fix.
var errPermanent = errors.New("permanent source error")

type HTTPSourceConfig struct {
	Name           string
	BaseURL        string
	APIKey         string
	MaxRetries     int
	AttemptTimeout time.Duration
	RatePerSecond  float64
	Burst          int
	Breaker        BreakerSettings
}

// HTTPSource calls a prediction service over HTTP with rate limiting,
// bounded retries and a circuit breaker.
type HTTPSource struct {
	config  HTTPSourceConfig
	client  *apphttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]models.EnsemblePrediction]
	logger  logger.Logger
}

func NewHTTPSource(cfg HTTPSourceConfig, client *apphttp.Client, notifier Notifier, log logger.Logger) *HTTPSource {
	if cfg.AttemptTimeout <= 0 || cfg.AttemptTimeout > 5*time.Second {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Breaker == (BreakerSettings{}) {
		cfg.Breaker = DefaultBreakerSettings()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = apphttp.NewClient(cfg.AttemptTimeout + time.Second)
	}

	l := logger.ForComponent(log, "ml-source").WithFields(map[string]interface{}{"source": cfg.Name})
	return &HTTPSource{
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: newBreaker(cfg.Name, cfg.Breaker, l, notifier),
		logger:  l,
	}
}

func (s *HTTPSource) Name() string {
	return s.config.Name
}

func (s *HTTPSource) Predict(ctx context.Context, req *PredictionRequest) ([]models.EnsemblePrediction, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewSourceUnavailableError(s.config.Name, fmt.Errorf("rate limited: %w", err))
	}

	preds, err := s.breaker.Execute(func() ([]models.EnsemblePrediction, error) {
		return s.predictWithRetry(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewSourceUnavailableError(s.config.Name, err)
		}
		if ctx.Err() != nil {
			return nil, apperrors.NewSourceTimeoutError(s.config.Name, s.config.AttemptTimeout)
		}
		return nil, apperrors.NewSourceUnavailableError(s.config.Name, err)
	}
	return preds, nil
}

func (s *HTTPSource) predictWithRetry(ctx context.Context, req *PredictionRequest) ([]models.EnsemblePrediction, error) {
	headers := map[string]string{}
	if s.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + s.config.APIKey
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		preds, err := s.attempt(ctx, req, headers)
		if err == nil {
			return preds, nil
		}
		lastErr = err
		if errors.Is(err, errPermanent) || ctx.Err() != nil {
			break
		}
		s.logger.Debug("prediction attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return nil, lastErr
}

func (s *HTTPSource) attempt(ctx context.Context, req *PredictionRequest, headers map[string]string) ([]models.EnsemblePrediction, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.config.AttemptTimeout)
	defer cancel()

	resp, err := s.client.PostJSON(attemptCtx, s.config.BaseURL+"/predict", headers, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if !resp.IsRetryable() {
			err = fmt.Errorf("%w: %v", errPermanent, err)
		}
		return nil, err
	}

	if res := responseSchema.ValidateBytes(resp.Body); !res.Valid {
		return nil, fmt.Errorf("%w: invalid response: %s", errPermanent, strings.Join(res.GetErrorMessages(), "; "))
	}

	var out predictionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", errPermanent, err)
	}

	source := s.config.Name
	if out.Model != "" {
		source = s.config.Name + "/" + out.Model
	}
	for i := range out.Predictions {
		out.Predictions[i].Source = source
		if out.Degraded {
			out.Predictions[i].Degraded = true
		}
	}
	return out.Predictions, nil
}

func (s *HTTPSource) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := s.client.Get(ctx, s.config.BaseURL+"/health", nil)
	if err != nil {
		s.logger.Warn("health check failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return resp.StatusCode == 200
}

// BreakerState exposes the breaker state for health reporting.
func (s *HTTPSource) BreakerState() string {
	return stateToString(s.breaker.State())
}
