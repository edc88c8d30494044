package rating

import (
	"strings"
	"testing"
	"time"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestCalculator(t *testing.T) *Calculator {
	return NewCalculator(logger.NewTestLogger(t), WithClock(func() time.Time { return testNow }))
}

func review(rating int, auth float64, at time.Time) models.Review {
	return models.Review{
		VenueID:           "venue-1",
		Rating:            rating,
		Content:           "ok",
		AuthenticityScore: auth,
		CreatedAt:         at,
	}
}

func daysAgo(d int) time.Time {
	return testNow.AddDate(0, 0, -d)
}

// ==========================
// Core Calculation Tests
// ==========================

func TestCalculate_EmptySetIsNeutral(t *testing.T) {
	res, err := newTestCalculator(t).Calculate("venue-1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "venue-1", res.VenueID)
	assert.Equal(t, 3.0, res.AuthenticRating)
	assert.Equal(t, 0.0, res.TraditionalRating)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, models.TrendStable, res.Trend)
	assert.Equal(t, 3.5, res.Peer.PeerAverage)
	assert.Equal(t, models.PeerAverage, res.Peer.Performance)
}

func TestCalculate_DetailedNegativeDominates(t *testing.T) {
	lazyPraise := review(5, 30, daysAgo(10))
	detailed := models.Review{
		VenueID:           "venue-1",
		Rating:            1,
		Content:           strings.Repeat("Found hair in the soup and the kitchen floor was visibly dirty. ", 3),
		PhotoCount:        2,
		Verified:          true,
		AuthenticityScore: 95,
		Categories: []models.CategoryTag{
			{Category: models.CategoryCleanliness, Severity: 5, Confidence: 95},
		},
		CreatedAt: daysAgo(8),
	}

	res, err := newTestCalculator(t).Calculate("venue-1", []models.Review{lazyPraise, detailed}, nil)
	require.NoError(t, err)

	assert.Less(t, res.AuthenticRating, 2.5)
	assert.InDelta(t, 2.125, res.AuthenticRating, 1e-9)
	assert.InDelta(t, 3.0, res.TraditionalRating, 1e-9)
	assert.InDelta(t, 5.0, res.Breakdown.PositiveWeighted, 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.NegativeWeighted, 1e-9)
	assert.InDelta(t, 0.125, res.Breakdown.AuthenticityAdjustment, 1e-9)
	assert.Equal(t, models.TrendStable, res.Trend)
}

func TestCalculate_AuthenticityAdjustmentMonotonic(t *testing.T) {
	ratings := []int{5, 4, 2, 1, 3}
	c := newTestCalculator(t)

	prev := -1.0
	for auth := 0.0; auth <= 100; auth += 10 {
		reviews := make([]models.Review, len(ratings))
		for i, r := range ratings {
			reviews[i] = review(r, auth, daysAgo(5+i))
		}
		res, err := c.Calculate("venue-1", reviews, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Breakdown.AuthenticityAdjustment, prev)
		prev = res.Breakdown.AuthenticityAdjustment
	}
}

func TestCalculate_TemporalTrend(t *testing.T) {
	recent := testNow.AddDate(0, 0, -16)
	older := testNow.AddDate(0, -5, 0).AddDate(0, 0, 10)

	tests := []struct {
		name           string
		reviews        []models.Review
		expectedTrend  models.Trend
		validateOutput func(t *testing.T, res models.AuthenticRatingResult)
	}{
		{
			name: "ratings collapse recently",
			reviews: []models.Review{
				review(5, 50, older), review(5, 50, older),
				review(2, 50, recent), review(1, 50, recent),
			},
			expectedTrend: models.TrendDeclining,
			validateOutput: func(t *testing.T, res models.AuthenticRatingResult) {
				assert.InDelta(t, -0.5, res.Breakdown.TemporalAdjustment, 1e-9)
				assert.InDelta(t, 13.0/9.0, res.Breakdown.NegativeWeighted, 1e-9)
				assert.InDelta(t, (5+3*13.0/9.0)/4-0.5, res.AuthenticRating, 1e-9)
			},
		},
		{
			name: "ratings recover recently",
			reviews: []models.Review{
				review(2, 50, older), review(2, 50, older),
				review(5, 50, recent), review(5, 50, recent),
			},
			expectedTrend: models.TrendImproving,
			validateOutput: func(t *testing.T, res models.AuthenticRatingResult) {
				assert.InDelta(t, 0.3, res.Breakdown.TemporalAdjustment, 1e-9)
			},
		},
		{
			name: "flat history",
			reviews: []models.Review{
				review(4, 50, older), review(4, 50, recent),
			},
			expectedTrend: models.TrendStable,
		},
		{
			name: "nothing in the older half",
			reviews: []models.Review{
				review(1, 50, recent), review(5, 50, recent),
			},
			expectedTrend: models.TrendStable,
		},
		{
			name: "older reviews outside the window are ignored",
			reviews: []models.Review{
				review(5, 50, testNow.AddDate(-2, 0, 0)),
				review(1, 50, recent),
			},
			expectedTrend: models.TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestCalculator(t).Calculate("venue-1", tt.reviews, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTrend, res.Trend)
			if tt.validateOutput != nil {
				tt.validateOutput(t, res)
			}
		})
	}
}

func TestCalculate_Confidence(t *testing.T) {
	t.Run("single review penalty", func(t *testing.T) {
		res, err := newTestCalculator(t).Calculate("v", []models.Review{review(4, 50, daysAgo(3))}, nil)
		require.NoError(t, err)
		assert.InDelta(t, 30, res.Confidence, 1e-9)
	})

	t.Run("mixed signals", func(t *testing.T) {
		reviews := []models.Review{
			review(5, 50, daysAgo(1)),
			review(4, 50, daysAgo(2)),
			review(4, 50, daysAgo(3)),
			review(2, 50, daysAgo(4)),
			review(1, 50, daysAgo(5)),
		}
		reviews[0].Verified = true
		reviews[1].Verified = true
		reviews[2].PhotoCount = 1
		reviews[3].Categories = []models.CategoryTag{{Category: models.CategoryValue, Severity: 2, Confidence: 60}}

		res, err := newTestCalculator(t).Calculate("v", reviews, nil)
		require.NoError(t, err)
		assert.InDelta(t, 68, res.Confidence, 1e-9)
	})

	t.Run("clamped at 100", func(t *testing.T) {
		reviews := make([]models.Review, 20)
		for i := range reviews {
			reviews[i] = review(5, 100, daysAgo(i+1))
			reviews[i].Verified = true
			reviews[i].PhotoCount = 3
		}
		res, err := newTestCalculator(t).Calculate("v", reviews, nil)
		require.NoError(t, err)
		assert.Equal(t, 100.0, res.Confidence)
		assert.Equal(t, 5.0, res.AuthenticRating)
	})
}

func TestCalculate_PeerComparison(t *testing.T) {
	subject := []models.Review{review(2, 50, daysAgo(4)), review(2, 50, daysAgo(5))}

	tests := []struct {
		name      string
		peers     [][]models.Review
		wantMean  float64
		wantPerf  models.PeerPerformance
		wantCount int
	}{
		{
			name:     "no peers",
			peers:    nil,
			wantMean: 3.5,
			wantPerf: models.PeerAverage,
		},
		{
			name:      "stronger peers",
			peers:     [][]models.Review{{review(5, 50, daysAgo(3))}, {review(4, 50, daysAgo(3))}},
			wantMean:  4.5,
			wantPerf:  models.PeerBelowAverage,
			wantCount: 2,
		},
		{
			name:      "weaker peer",
			peers:     [][]models.Review{{review(1, 50, daysAgo(3))}},
			wantMean:  1.0,
			wantPerf:  models.PeerAboveAverage,
			wantCount: 1,
		},
		{
			name:      "empty peer sets are skipped",
			peers:     [][]models.Review{{}, {review(2, 50, daysAgo(3))}},
			wantMean:  2.0,
			wantPerf:  models.PeerAverage,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestCalculator(t).Calculate("venue-1", subject, tt.peers)
			require.NoError(t, err)
			assert.InDelta(t, 2.0, res.AuthenticRating, 1e-9)
			assert.InDelta(t, tt.wantMean, res.Peer.PeerAverage, 1e-9)
			assert.Equal(t, tt.wantPerf, res.Peer.Performance)
			assert.Equal(t, tt.wantCount, res.Peer.PeerCount)
		})
	}
}

func TestCalculate_BoundsHold(t *testing.T) {
	c := newTestCalculator(t)
	for rating := 1; rating <= 5; rating++ {
		for _, auth := range []float64{0, 50, 100} {
			reviews := []models.Review{review(rating, auth, daysAgo(2)), review(rating, auth, daysAgo(150))}
			res, err := c.Calculate("v", reviews, nil)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.AuthenticRating, 1.0)
			assert.LessOrEqual(t, res.AuthenticRating, 5.0)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 100.0)
		}
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	c := newTestCalculator(t)

	_, err := c.Calculate("v", []models.Review{review(0, 50, daysAgo(1))}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = c.Calculate("v", nil, [][]models.Review{{review(3, 50, time.Time{})}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}
