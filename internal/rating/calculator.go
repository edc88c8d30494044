// Package rating computes authenticity- and recency-weighted venue ratings.
package rating

import (
	"math"
	"time"

	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"
)

const (
	DefaultWindowMonths = 6

	neutralRating     = 3.0
	defaultPeerMean   = 3.5
	peerBand          = 0.3
	negativeRatingMax = 3
	positiveRatingMin = 4
)

type Calculator struct {
	logger       logger.Logger
	now          func() time.Time
	windowMonths int
}

type Option func(*Calculator)

func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// WithWindowMonths sets how many monthly buckets the temporal trend looks at.
func WithWindowMonths(months int) Option {
	return func(c *Calculator) {
		if months > 0 {
			c.windowMonths = months
		}
	}
}

func NewCalculator(log logger.Logger, opts ...Option) *Calculator {
	c := &Calculator{
		logger:       logger.ForComponent(log, "authentic-rating"),
		now:          time.Now,
		windowMonths: DefaultWindowMonths,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate fuses a review set into one authentic rating. Peer sets are rated
// the same way and only feed the comparison; an empty subject set always
// compares as average against the default peer mean.
func (c *Calculator) Calculate(venueID string, reviews []models.Review, peerSets [][]models.Review) (models.AuthenticRatingResult, error) {
	if err := validation.Reviews(reviews); err != nil {
		return models.AuthenticRatingResult{}, err
	}
	for _, peers := range peerSets {
		if err := validation.Reviews(peers); err != nil {
			return models.AuthenticRatingResult{}, err
		}
	}

	now := c.now()
	result := c.rate(venueID, reviews, now)

	peerRatings := make([]float64, 0, len(peerSets))
	for _, peers := range peerSets {
		if len(peers) == 0 {
			continue
		}
		peerRatings = append(peerRatings, c.rate("", peers, now).AuthenticRating)
	}
	result.Peer = comparePeers(result.AuthenticRating, peerRatings, len(reviews) > 0)

	c.logger.Debug("authentic rating calculated", map[string]interface{}{
		"venueId":         venueID,
		"reviews":         len(reviews),
		"authenticRating": result.AuthenticRating,
		"confidence":      result.Confidence,
		"trend":           result.Trend,
		"peers":           result.Peer.PeerCount,
	})

	return result, nil
}

func (c *Calculator) rate(venueID string, reviews []models.Review, now time.Time) models.AuthenticRatingResult {
	if len(reviews) == 0 {
		return models.AuthenticRatingResult{
			VenueID:         venueID,
			AuthenticRating: neutralRating,
			Trend:           models.TrendStable,
		}
	}

	var ratingSum, authSum float64
	for _, r := range reviews {
		ratingSum += float64(r.Rating)
		authSum += r.AuthenticityScore
	}
	n := float64(len(reviews))
	traditional := ratingSum / n
	meanAuth := authSum / n

	positive, hasPositive := positiveWeighted(reviews)
	negative, hasNegative := negativeWeighted(reviews)

	base := neutralRating
	switch {
	case hasPositive && hasNegative:
		base = (positive + 3*negative) / 4
	case hasPositive:
		base = positive
	case hasNegative:
		base = negative
	}

	authAdj := (meanAuth - 50) / 100
	trend, tempAdj := temporalTrend(reviews, now, c.windowMonths)

	return models.AuthenticRatingResult{
		VenueID:               venueID,
		AuthenticRating:       clamp(base+authAdj+tempAdj, 1, 5),
		TraditionalRating:     traditional,
		NegativeWeightedScore: negative,
		Trend:                 trend,
		Confidence:            confidence(reviews, meanAuth),
		Breakdown: models.RatingBreakdown{
			PositiveWeighted:       positive,
			NegativeWeighted:       negative,
			AuthenticityAdjustment: authAdj,
			TemporalAdjustment:     tempAdj,
		},
		ReviewCount: len(reviews),
	}
}

func positiveWeighted(reviews []models.Review) (float64, bool) {
	var weighted, weights float64
	for _, r := range reviews {
		if r.Rating < positiveRatingMin {
			continue
		}
		w := float64(r.Rating) * math.Max(0.3, r.AuthenticityScore/100)
		if r.Verified {
			w *= 1.1
		}
		if r.HasPhoto() {
			w *= 1.05
		}
		if r.ContentLength() > 150 {
			w *= 1.05
		}
		weighted += w * float64(r.Rating)
		weights += w
	}
	if weights == 0 {
		return 0, false
	}
	return weighted / weights, true
}

func negativeWeighted(reviews []models.Review) (float64, bool) {
	var weighted, weights float64
	for _, r := range reviews {
		if r.Rating > negativeRatingMax {
			continue
		}
		w := float64(6-r.Rating) * 2 * math.Max(0.5, r.AuthenticityScore/100)
		if r.HasCategories() {
			w *= 1.3
		}
		if r.HasSevereCriticalTag() {
			w *= 2.0
		}
		if r.Verified {
			w *= 1.2
		}
		if r.HasPhoto() {
			w *= 1.3
		}
		if r.ContentLength() > 100 {
			w *= 1.2
		}
		weighted += w * float64(r.Rating)
		weights += w
	}
	if weights == 0 {
		return 0, false
	}
	return weighted / weights, true
}

type halfStats struct {
	count     int
	ratingSum float64
	negatives int
}

func (h halfStats) meanRating() float64 { return h.ratingSum / float64(h.count) }
func (h halfStats) negRate() float64    { return float64(h.negatives) / float64(h.count) }

// temporalTrend buckets reviews into months ending at now and compares the
// newest half of the buckets against the older half.
func temporalTrend(reviews []models.Review, now time.Time, months int) (models.Trend, float64) {
	recentBuckets := (months + 1) / 2

	var recent, older halfStats
	for _, r := range reviews {
		bucket := monthBucket(r.CreatedAt, now, months)
		if bucket < 0 {
			continue
		}
		h := &older
		if bucket < recentBuckets {
			h = &recent
		}
		h.count++
		h.ratingSum += float64(r.Rating)
		if r.Rating <= negativeRatingMax {
			h.negatives++
		}
	}

	if recent.count == 0 || older.count == 0 {
		return models.TrendStable, 0
	}

	negDelta := recent.negRate() - older.negRate()
	ratingDelta := recent.meanRating() - older.meanRating()

	switch {
	case negDelta > 0.05 || ratingDelta < -0.2:
		return models.TrendDeclining, -0.5 * math.Min(1, 0.5+recent.negRate())
	case negDelta < -0.05 && ratingDelta > 0.15:
		return models.TrendImproving, 0.3 * (1 - recent.negRate())
	}
	return models.TrendStable, 0
}

// monthBucket returns 0 for the newest month, months-1 for the oldest,
// and -1 outside the window.
func monthBucket(at, now time.Time, months int) int {
	if at.After(now) {
		return -1
	}
	for k := 0; k < months; k++ {
		if !at.Before(now.AddDate(0, -(k + 1), 0)) {
			return k
		}
	}
	return -1
}

func confidence(reviews []models.Review, meanAuth float64) float64 {
	n := len(reviews)
	score := 50.0
	switch {
	case n >= 20:
		score += 20
	case n >= 10:
		score += 10
	case n >= 5:
		score += 5
	case n == 1:
		score -= 20
	}

	score += (meanAuth - 50) / 5

	var verified, photos, negatives, specific int
	for _, r := range reviews {
		if r.Verified {
			verified++
		}
		if r.HasPhoto() {
			photos++
		}
		if r.Rating <= negativeRatingMax {
			negatives++
			if r.HasCategories() {
				specific++
			}
		}
	}
	score += 15 * float64(verified) / float64(n)
	score += 10 * float64(photos) / float64(n)
	if negatives > 0 {
		score += 10 * float64(specific) / float64(negatives)
	}

	return clamp(score, 0, 100)
}

func comparePeers(subject float64, peerRatings []float64, hasReviews bool) models.PeerComparison {
	if len(peerRatings) == 0 || !hasReviews {
		return models.PeerComparison{PeerAverage: defaultPeerMean, Performance: models.PeerAverage}
	}

	var sum float64
	for _, r := range peerRatings {
		sum += r
	}
	mean := sum / float64(len(peerRatings))

	perf := models.PeerAverage
	switch diff := subject - mean; {
	case diff > peerBand:
		perf = models.PeerAboveAverage
	case diff < -peerBand:
		perf = models.PeerBelowAverage
	}

	return models.PeerComparison{
		PeerAverage: mean,
		Performance: perf,
		PeerCount:   len(peerRatings),
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
