package feedback

import (
	"sort"

	"venue-signals/internal/common/metrics"
	"venue-signals/internal/models"
)

const (
	decliningMultiplier = 1.5
	improvingMultiplier = 0.7
	criticalMultiplier  = 1.3
	primaryIssueCutoff  = 30.0
	impactMultiplier    = 1.2
)

// ScoreRisk aggregates patterns into a venue risk score. Multipliers stack
// and the category score is clamped only after all of them are applied.
func ScoreRisk(venueID string, patterns []models.FeedbackPattern) models.RiskScore {
	scores := make(map[models.Category]float64, len(models.Categories))
	for _, cat := range models.Categories {
		scores[cat] = 0
	}

	for _, p := range patterns {
		score := p.Frequency * p.AverageSeverity * 100
		switch p.Trend {
		case models.TrendDeclining:
			score *= decliningMultiplier
		case models.TrendImproving:
			score *= improvingMultiplier
		}
		if p.Category.IsCritical() {
			score *= criticalMultiplier
		}
		scores[p.Category] = clamp(score, 0, 100)
	}

	var sum float64
	for _, cat := range models.Categories {
		sum += scores[cat]
	}
	overall := clamp(sum/float64(len(models.Categories)), 0, 100)

	issues := make([]models.Category, 0)
	for _, cat := range models.Categories {
		if scores[cat] > primaryIssueCutoff {
			issues = append(issues, cat)
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return scores[issues[i]] > scores[issues[j]]
	})
	names := make([]string, len(issues))
	for i, cat := range issues {
		names[i] = string(cat)
	}

	return models.RiskScore{
		VenueID:              venueID,
		Overall:              overall,
		CategoryScores:       scores,
		Tier:                 models.TierForScore(overall),
		PrimaryIssues:        names,
		RecommendationImpact: clamp(overall*impactMultiplier, 0, 100),
	}
}

// AnalyzeNegativeFeedback runs pattern analysis and risk scoring for one venue.
func (a *Analyzer) AnalyzeNegativeFeedback(venueID string, reviews []models.Review, windowMonths int) (models.RiskScore, []models.FeedbackPattern, error) {
	patterns, err := a.Analyze(reviews, windowMonths)
	if err != nil {
		return models.RiskScore{}, nil, err
	}

	risk := ScoreRisk(venueID, patterns)
	metrics.VenueRiskTier.WithLabelValues(string(risk.Tier)).Inc()

	a.logger.Info("negative feedback analyzed", map[string]interface{}{
		"venueId":       venueID,
		"overallScore":  risk.Overall,
		"riskTier":      risk.Tier,
		"primaryIssues": risk.PrimaryIssues,
	})

	return risk, patterns, nil
}
