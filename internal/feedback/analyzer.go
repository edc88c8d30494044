// Package feedback derives complaint patterns and negative-feedback risk from venue reviews.
package feedback

import (
	"time"

	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"
)

const (
	DefaultWindowMonths = 6

	declineRatio = 1.2
	improveRatio = 0.8
	rateFloor    = 0.1
)

type Analyzer struct {
	logger logger.Logger
	now    func() time.Time
}

type Option func(*Analyzer)

// WithClock fixes the "now" that trailing windows end at.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(log logger.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		logger: logger.ForComponent(log, "feedback-analyzer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type categoryStats struct {
	incidents    int
	severitySum  int
	recentCount  int
	recentWeight float64
	olderWeight  float64
}

// Analyze returns one pattern per category that has at least one incident,
// in the fixed category order. windowMonths <= 0 uses the default window.
func (a *Analyzer) Analyze(reviews []models.Review, windowMonths int) ([]models.FeedbackPattern, error) {
	if err := validation.Reviews(reviews); err != nil {
		return nil, err
	}
	if windowMonths <= 0 {
		windowMonths = DefaultWindowMonths
	}
	if len(reviews) == 0 {
		return []models.FeedbackPattern{}, nil
	}

	now := a.now()
	windowStart := now.AddDate(0, -windowMonths, 0)
	midpoint := windowStart.Add(now.Sub(windowStart) / 2)

	stats := make(map[models.Category]*categoryStats, len(models.Categories))
	for _, r := range reviews {
		inWindow := !r.CreatedAt.Before(windowStart) && !r.CreatedAt.After(now)
		recentHalf := inWindow && !r.CreatedAt.Before(midpoint)

		for _, tag := range r.Categories {
			s, ok := stats[tag.Category]
			if !ok {
				s = &categoryStats{}
				stats[tag.Category] = s
			}
			s.incidents++
			s.severitySum += tag.Severity
			if !inWindow {
				continue
			}
			s.recentCount++
			if recentHalf {
				s.recentWeight += float64(tag.Severity)
			} else {
				s.olderWeight += float64(tag.Severity)
			}
		}
	}

	total := float64(len(reviews))
	patterns := make([]models.FeedbackPattern, 0, len(stats))
	for _, cat := range models.Categories {
		s, ok := stats[cat]
		if !ok || s.incidents == 0 {
			continue
		}
		patterns = append(patterns, models.FeedbackPattern{
			Category:        cat,
			Frequency:       clamp(float64(s.incidents)/total, 0, 1),
			AverageSeverity: float64(s.severitySum) / float64(s.incidents),
			Trend:           classifyTrend(s.recentWeight, s.olderWeight),
			RecentIncidents: s.recentCount,
			TotalIncidents:  s.incidents,
		})
	}

	a.logger.Debug("feedback patterns analyzed", map[string]interface{}{
		"reviews":      len(reviews),
		"categories":   len(patterns),
		"windowMonths": windowMonths,
	})

	return patterns, nil
}

// classifyTrend compares severity-weighted incident rates of the two window halves.
func classifyTrend(recent, older float64) models.Trend {
	if recent == 0 && older == 0 {
		return models.TrendStable
	}
	if older < rateFloor {
		older = rateFloor
	}
	ratio := recent / older
	switch {
	case ratio > declineRatio:
		return models.TrendDeclining
	case ratio < improveRatio:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
