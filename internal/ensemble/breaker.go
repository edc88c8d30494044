package ensemble

import (
	"context"
	"time"

	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/models"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Notifier hears about prediction sources whose breaker changed state.
type Notifier interface {
	SourceStateChanged(ctx context.Context, source, from, to string) error
}

type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	OpenTimeout  time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  2,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

func newBreaker(name string, s BreakerSettings, log logger.Logger, notifier Notifier) *gobreaker.CircuitBreaker[[]models.EnsemblePrediction] {
	metrics.MLSourceBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]models.EnsemblePrediction](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			log.Warn("prediction source breaker state change", map[string]interface{}{
				"source": name,
				"from":   fromStr,
				"to":     toStr,
			})
			metrics.MLSourceBreakerState.WithLabelValues(name).Set(stateToFloat(to))

			if notifier != nil && to == gobreaker.StateOpen {
				// called under the breaker lock
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := notifier.SourceStateChanged(ctx, name, fromStr, toStr); err != nil {
						log.Error("breaker alert failed", map[string]interface{}{"source": name, "error": err})
					}
				}()
			}
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
