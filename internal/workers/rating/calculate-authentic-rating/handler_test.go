package calculateauthenticrating

import (
	"context"
	"strings"
	"testing"
	"time"

	"venue-signals/internal/common/camunda"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/models"
	"venue-signals/internal/rating"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Definitions
// ==========================

type MockReviewSource struct {
	mock.Mock
}

func (m *MockReviewSource) ReviewsForVenue(ctx context.Context, venueID string) ([]models.Review, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

var testNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, src *MockReviewSource) *Handler {
	opts := HandlerOptions{
		CustomConfig:      DefaultConfig(),
		Logger:            logger.NewTestLogger(t),
		CalculatorOptions: []rating.Option{rating.WithClock(func() time.Time { return testNow })},
	}
	if src != nil {
		opts.Reviews = src
	}
	h, err := NewHandler(opts)
	require.NoError(t, err)
	return h
}

func review(venueID string, stars int, auth float64, daysAgo int) models.Review {
	return models.Review{
		VenueID:           venueID,
		Rating:            stars,
		Content:           "fine",
		AuthenticityScore: auth,
		CreatedAt:         testNow.AddDate(0, 0, -daysAgo),
	}
}

func createMockJob(variables map[string]interface{}) entities.Job {
	data, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       42,
		Type:      TaskType,
		Retries:   3,
		Variables: string(data),
	}}
}

// ==========================
// Configuration Tests
// ==========================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "no timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "no window", mutate: func(c *Config) { c.WindowMonths = -1 }, wantErr: "window_months must be positive"},
		{name: "no peer limit", mutate: func(c *Config) { c.PeerFetchLimit = 0 }, wantErr: "peer_fetch_limit must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, cfg.Validate())
				return
			}
			assert.EqualError(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	cfg := createConfigFromAppConfig(&config.Config{
		Workers: map[string]config.WorkerConfig{TaskType: {Enabled: true, Timeout: 2000}},
		Scoring: config.ScoringConfig{WindowMonths: 12},
	}, nil)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 12, cfg.WindowMonths)
	assert.Equal(t, 5, cfg.MaxJobsActive)
}

func TestInputSchema(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{name: "venue only", variables: map[string]interface{}{"venueId": "v1"}},
		{name: "missing venue", variables: map[string]interface{}{"reviews": []interface{}{}}, wantErr: true},
		{name: "empty venue", variables: map[string]interface{}{"venueId": ""}, wantErr: true},
		{name: "peer ids", variables: map[string]interface{}{"venueId": "v1", "peerVenueIds": []interface{}{"v2", "v3"}}},
		{name: "blank peer id", variables: map[string]interface{}{"venueId": "v1", "peerVenueIds": []interface{}{""}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Input
			err := camunda.DecodeVariables(createMockJob(tt.variables), inputSchema, &in)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_EmptyReviewsIsNeutral(t *testing.T) {
	h := newTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{VenueID: "v1", Reviews: []models.Review{}})
	require.NoError(t, err)

	assert.True(t, out.InsufficientData)
	assert.Equal(t, 3.0, out.Rating.AuthenticRating)
	assert.Equal(t, 0.0, out.Rating.Confidence)
	assert.Equal(t, models.TrendStable, out.Rating.Trend)
}

func TestHandler_Execute_DetailedNegativeDominates(t *testing.T) {
	h := newTestHandler(t, nil)

	detailed := models.Review{
		VenueID:           "v1",
		Rating:            1,
		Content:           strings.Repeat("The kitchen floor was dirty and the fish smelled off. ", 3),
		PhotoCount:        1,
		Verified:          true,
		AuthenticityScore: 95,
		Categories: []models.CategoryTag{
			{Category: models.CategoryFoodQuality, Severity: 5, Confidence: 90},
		},
		CreatedAt: testNow.AddDate(0, 0, -4),
	}

	out, err := h.Execute(context.Background(), &Input{
		VenueID: "v1",
		Reviews: []models.Review{review("v1", 5, 30, 6), detailed},
	})
	require.NoError(t, err)
	assert.Less(t, out.Rating.AuthenticRating, 2.5)
	assert.False(t, out.InsufficientData)
}

func TestHandler_Execute_PeerVenues(t *testing.T) {
	src := new(MockReviewSource)
	src.On("ReviewsForVenue", mock.Anything, "v1").
		Return([]models.Review{review("v1", 5, 90, 3), review("v1", 5, 90, 10)}, nil).Once()
	src.On("ReviewsForVenue", mock.Anything, "peer-ok").
		Return([]models.Review{review("peer-ok", 2, 90, 5)}, nil).Once()
	src.On("ReviewsForVenue", mock.Anything, "peer-down").
		Return(nil, errors.NewSearchQueryFailedError("reviews", assert.AnError)).Once()
	src.On("ReviewsForVenue", mock.Anything, "peer-bad").
		Return([]models.Review{{VenueID: "peer-bad", Rating: 9, CreatedAt: testNow}}, nil).Once()

	h := newTestHandler(t, src)

	out, err := h.Execute(context.Background(), &Input{
		VenueID:        "v1",
		PeerReviewSets: [][]models.Review{{review("inline", 3, 90, 2)}},
		PeerVenueIDs:   []string{"peer-ok", "v1", "peer-down", "peer-bad"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Rating.Peer.PeerCount)
	assert.Equal(t, models.PeerAboveAverage, out.Rating.Peer.Performance)
	assert.ElementsMatch(t, []string{"peer-down", "peer-bad"}, out.SkippedPeerIDs)
	src.AssertExpectations(t)
}

func TestHandler_Execute_PeerIDsWithoutSource(t *testing.T) {
	h := newTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{
		VenueID:      "v1",
		Reviews:      []models.Review{review("v1", 4, 80, 1)},
		PeerVenueIDs: []string{"peer-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"peer-1"}, out.SkippedPeerIDs)
	assert.Equal(t, 0, out.Rating.Peer.PeerCount)
}

func TestHandler_Execute_MalformedReview(t *testing.T) {
	h := newTestHandler(t, nil)

	bad := review("v1", 4, 80, 1)
	bad.CreatedAt = time.Time{}

	_, err := h.Execute(context.Background(), &Input{VenueID: "v1", Reviews: []models.Review{bad}})
	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidation, stdErr.Code)
}
