package detectfakereviews

import (
	"context"
	"testing"
	"time"

	"venue-signals/internal/common/config"
	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/fakesignal"
	"venue-signals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func newTestHandler(t *testing.T, src *MockReviewSource) *Handler {
	opts := HandlerOptions{CustomConfig: DefaultConfig(), Logger: logger.NewTestLogger(t)}
	if src != nil {
		opts.Reviews = src
	}
	h, err := NewHandler(opts)
	require.NoError(t, err)
	return h
}

func genuine(id string) models.Review {
	return models.Review{
		ID:                id,
		VenueID:           "venue-1",
		Rating:            5,
		Content:           "Review " + id + ": the braised short rib was tender and the staff remembered our order.",
		PhotoCount:        2,
		Verified:          true,
		AuthenticityScore: 85,
		CreatedAt:         time.Now().Add(-72 * time.Hour),
	}
}

func suspect(id string) models.Review {
	return models.Review{
		ID:                id,
		VenueID:           "venue-1",
		Rating:            1,
		Content:           "Worst place ever",
		AuthenticityScore: 20,
		CreatedAt:         time.Now().Add(-2 * time.Hour),
	}
}

// ==========================
// Configuration Tests
// ==========================

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		Workers: map[string]config.WorkerConfig{
			TaskType: {Enabled: true, MaxJobsActive: 2, Timeout: 1500},
		},
		Scoring: config.ScoringConfig{
			FakeSignal: config.FakeSignalConf{GenericPhrases: []string{"overrated"}},
		},
	}

	cfg := createConfigFromAppConfig(appCfg, nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, []string{"overrated"}, cfg.Detector.GenericPhrases)
	assert.Equal(t, fakesignal.DefaultConfig().LowRatingMax, cfg.Detector.LowRatingMax)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.MaxJobsActive = 0
	assert.EqualError(t, cfg.Validate(), "max_jobs_active must be positive")
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_PartitionsReviews(t *testing.T) {
	h := newTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{
		Reviews: []models.Review{genuine("g1"), suspect("d1"), genuine("g2")},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.AuthenticCount)
	assert.Equal(t, 1, out.SuspiciousCount)
	assert.Equal(t, 3, out.AuthenticCount+out.SuspiciousCount)
	require.Contains(t, out.Reasons, "d1")
	assert.Contains(t, out.Reasons["d1"], fakesignal.ReasonShortContent)
	assert.Contains(t, out.Reasons["d1"], fakesignal.ReasonLowAuthenticity)
	assert.NotContains(t, out.Reasons, "g1")
}

func TestHandler_Execute_LoadsReviewsFromSource(t *testing.T) {
	src := new(MockReviewSource)
	src.On("ReviewsForVenue", mock.Anything, "venue-1").Return([]models.Review{genuine("g1")}, nil).Once()

	h := newTestHandler(t, src)

	out, err := h.Execute(context.Background(), &Input{VenueID: "venue-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.AuthenticCount)
	assert.Empty(t, out.Suspicious)
	src.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		wantCode errors.ErrorCode
	}{
		{
			name:     "no reviews and no source",
			input:    &Input{VenueID: "venue-1"},
			wantCode: errors.ErrCodeValidation,
		},
		{
			name: "malformed review",
			input: &Input{Reviews: []models.Review{
				{ID: "x", Rating: 3, AuthenticityScore: 150, CreatedAt: time.Now()},
			}},
			wantCode: errors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, nil)
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))
		})
	}
}
