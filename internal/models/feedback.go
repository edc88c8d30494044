// internal/models/feedback.go
package models

// Trend classifies how a signal moved across a time window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// FeedbackPattern summarises one complaint category across a review set.
type FeedbackPattern struct {
	Category        Category `json:"category"`
	Frequency       float64  `json:"frequency"`
	AverageSeverity float64  `json:"averageSeverity"`
	Trend           Trend    `json:"trend"`
	RecentIncidents int      `json:"recentIncidentCount"`
	TotalIncidents  int      `json:"totalIncidentCount"`
}

type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// Rank orders tiers low < medium < high < critical.
func (t RiskTier) Rank() int {
	switch t {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 0
}

// TierForScore maps an overall risk score onto its tier.
func TierForScore(score float64) RiskTier {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

type RiskScore struct {
	VenueID              string               `json:"venueId"`
	Overall              float64              `json:"overallScore"`
	CategoryScores       map[Category]float64 `json:"categoryScores"`
	Tier                 RiskTier             `json:"riskTier"`
	PrimaryIssues        []string             `json:"primaryIssues"`
	RecommendationImpact float64              `json:"recommendationImpact"`
}
