package invalidateusercache

import (
	"context"
	"testing"
	"time"

	"venue-signals/internal/cache"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) (int, error) {
	args := m.Called(ctx, keys)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestHandler(t *testing.T, c *cache.RecommendationCache) *Handler {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Cache:        c,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		Workers: map[string]config.WorkerConfig{
			TaskType: {Enabled: false, MaxJobsActive: 3, Timeout: 2000},
		},
	}

	cfg := createConfigFromAppConfig(appCfg, nil)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))
}

func TestHandler_Execute_RemovesOnlyThatUser(t *testing.T) {
	c := cache.New(cache.NewMemoryStore(nil), cache.Config{}, logger.NewTestLogger(t))
	h := newTestHandler(t, c)
	ctx := context.Background()

	dinner := models.RequestContext{TimeOfDay: "dinner"}
	lunch := models.RequestContext{TimeOfDay: "lunch"}
	cands := []models.RecommendationCandidate{{VenueID: "v1", MatchScore: 0.8}}

	require.NoError(t, c.Set(ctx, "user-1", dinner, cands))
	require.NoError(t, c.Set(ctx, "user-1", lunch, cands))
	require.NoError(t, c.Set(ctx, "user-10", dinner, cands))

	out, err := h.Execute(ctx, &Input{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Invalidated)

	_, hit, err := c.Get(ctx, "user-1", dinner)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = c.Get(ctx, "user-10", dinner)
	require.NoError(t, err)
	assert.True(t, hit)

	out, err = h.Execute(ctx, &Input{UserID: "user-1"})
	require.NoError(t, err)
	assert.Zero(t, out.Invalidated)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		setup    func(*MockStore)
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing user",
			userID:   "",
			setup:    func(*MockStore) {},
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:   "store down",
			userID: "user-1",
			setup: func(s *MockStore) {
				s.On("Keys", mock.Anything, mock.Anything).Return(nil, assert.AnError)
			},
			wantCode: errors.ErrCodeCacheUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			tt.setup(store)
			h := newTestHandler(t, cache.New(store, cache.Config{}, logger.NewTestLogger(t)))

			_, err := h.Execute(context.Background(), &Input{UserID: tt.userID})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))
			store.AssertExpectations(t)
		})
	}
}
