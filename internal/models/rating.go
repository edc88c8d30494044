// internal/models/rating.go
package models

type PeerPerformance string

const (
	PeerAboveAverage PeerPerformance = "above_average"
	PeerAverage      PeerPerformance = "average"
	PeerBelowAverage PeerPerformance = "below_average"
)

// RatingBreakdown exposes the four weighting components of an authentic rating.
type RatingBreakdown struct {
	PositiveWeighted       float64 `json:"positiveWeighted"`
	NegativeWeighted       float64 `json:"negativeWeighted"`
	AuthenticityAdjustment float64 `json:"authenticityAdjustment"`
	TemporalAdjustment     float64 `json:"temporalAdjustment"`
}

type PeerComparison struct {
	PeerAverage float64         `json:"peerAverage"`
	Performance PeerPerformance `json:"performance"`
	PeerCount   int             `json:"peerCount"`
}

type AuthenticRatingResult struct {
	VenueID               string          `json:"venueId"`
	AuthenticRating       float64         `json:"authenticRating"`
	TraditionalRating     float64         `json:"traditionalRating"`
	NegativeWeightedScore float64         `json:"negativeWeightedScore"`
	Trend                 Trend           `json:"temporalTrend"`
	Confidence            float64         `json:"confidence"`
	Breakdown             RatingBreakdown `json:"breakdown"`
	Peer                  PeerComparison  `json:"peerComparison"`
	ReviewCount           int             `json:"reviewCount"`
}
