//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-signals/internal/alerts"
	"venue-signals/internal/cache"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/database"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/models"
	"venue-signals/internal/recommendation"
	"venue-signals/internal/repository"

	anf "venue-signals/internal/workers/feedback/analyze-negative-feedback"
	dfr "venue-signals/internal/workers/feedback/detect-fake-reviews"
	car "venue-signals/internal/workers/rating/calculate-authentic-rating"
	gcr "venue-signals/internal/workers/recommendation/get-cached-recommendations"
	iuc "venue-signals/internal/workers/recommendation/invalidate-user-cache"
	scr "venue-signals/internal/workers/recommendation/score-recommendations"
)

const (
	e2eUser      = "e2e-user-1"
	e2eVenue     = "e2e-venue-main"
	e2ePeerVenue = "e2e-venue-peer"
)

var zeebeClient zbc.Client

func TestMain(m *testing.M) {
	var err error

	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         envOr("ZEEBE_ADDRESS", "localhost:26500"),
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// stack holds the live clients every worker test shares.
type stack struct {
	cfg     *config.Config
	log     logger.Logger
	pg      *database.PostgresClient
	es      *elasticsearch.Client
	redis   *database.RedisClient
	reviews repository.ReviewSource
	cache   *cache.RecommendationCache
}

func TestFullE2E(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	// Services run on the host when the suite is driven from a laptop.
	cfg.Database.Postgres.Host = envOr("E2E_POSTGRES_HOST", "localhost")
	cfg.Database.Redis.Address = envOr("E2E_REDIS_ADDRESS", "localhost:6379")
	cfg.Database.Elasticsearch.URL = envOr("E2E_ES_URL", "http://localhost:9200")
	cfg.Database.Elasticsearch.ReviewIndex = "venue-reviews-e2e"

	s := connect(t, cfg)
	defer s.pg.Close()
	defer s.redis.Close()

	seedProfiles(t, s)
	seedReviews(t, s)
	deployAllBPMN(t)

	t.Run("register workers", func(t *testing.T) { testRegisterWorkers(t, s) })
	t.Run("analyze-negative-feedback", func(t *testing.T) { testAnalyzeNegativeFeedback(t, s) })
	t.Run("detect-fake-reviews", func(t *testing.T) { testDetectFakeReviews(t, s) })
	t.Run("calculate-authentic-rating", func(t *testing.T) { testCalculateAuthenticRating(t, s) })
	t.Run("recommendation cache round trip", func(t *testing.T) { testRecommendationCacheRoundTrip(t, s) })
}

// ==========================
// 1. Connectivity
// ==========================

func connect(t *testing.T, cfg *config.Config) *stack {
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	t.Log("PostgreSQL connected")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")
	t.Log("Redis connected")

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err, "Elasticsearch client creation failed")
	require.NoError(t, esClient.Ping(ctx), "Elasticsearch ping failed")
	t.Log("Elasticsearch connected")

	_, err = zeebeClient.NewTopologyCommand().Send(ctx)
	require.NoError(t, err, "Zeebe topology request failed")
	t.Log("Zeebe connected")

	return &stack{
		cfg:     cfg,
		log:     log,
		pg:      pg,
		es:      esClient.Client,
		redis:   rdb,
		reviews: repository.NewESReviewSource(esClient.Client, cfg.Database.Elasticsearch.ReviewIndex, 100),
		cache: cache.New(cache.NewRedisStore(rdb.GetClient()), cache.Config{
			TTL:       30 * time.Minute,
			KeyPrefix: "reco-e2e",
		}, log),
	}
}

// ==========================
// 2. Test Data
// ==========================

func seedProfiles(t *testing.T, s *stack) {
	ctx := context.Background()
	queries := []string{
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id VARCHAR(255) PRIMARY KEY,
			preferred_cuisines TEXT[],
			preferred_atmospheres TEXT[],
			price_min INTEGER,
			price_max INTEGER,
			emotional_state VARCHAR(50),
			mood_intensity INTEGER,
			home_location VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS user_visits (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			venue_id VARCHAR(255) NOT NULL,
			cuisine VARCHAR(100),
			rating NUMERIC,
			visited_at TIMESTAMPTZ NOT NULL
		)`,
		`DELETE FROM user_visits WHERE user_id = '` + e2eUser + `'`,
	}
	for _, q := range queries {
		_, err := s.pg.Exec(ctx, q)
		require.NoError(t, err)
	}

	_, err := s.pg.Exec(ctx, `
		INSERT INTO user_preferences (user_id, preferred_cuisines, preferred_atmospheres, price_min, price_max, emotional_state, mood_intensity, home_location)
		VALUES ($1, $2, $3, 1, 3, 'celebratory', 4, 'downtown')
		ON CONFLICT (user_id) DO UPDATE SET preferred_cuisines = EXCLUDED.preferred_cuisines`,
		e2eUser, pq.Array([]string{"thai", "japanese"}), pq.Array([]string{"lively"}))
	require.NoError(t, err)

	_, err = s.pg.Exec(ctx,
		`INSERT INTO user_visits (user_id, venue_id, cuisine, rating, visited_at) VALUES ($1, 'e2e-past', 'thai', 5, NOW() - INTERVAL '10 days')`,
		e2eUser)
	require.NoError(t, err)
	t.Log("Profile tables seeded")
}

func seedReviews(t *testing.T, s *stack) {
	ctx := context.Background()
	index := s.cfg.Database.Elasticsearch.ReviewIndex

	del, err := esapi.IndicesDeleteRequest{Index: []string{index}}.Do(ctx, s.es)
	require.NoError(t, err)
	del.Body.Close()

	mapping := `{"mappings":{"properties":{"venueId":{"type":"keyword"},"createdAt":{"type":"date"}}}}`
	res, err := esapi.IndicesCreateRequest{Index: index, Body: strings.NewReader(mapping)}.Do(ctx, s.es)
	require.NoError(t, err)
	require.False(t, res.IsError(), res.String())
	res.Body.Close()

	now := time.Now().UTC()
	var docs []models.Review
	for i := 0; i < 12; i++ {
		r := models.Review{
			ID:                fmt.Sprintf("main-%02d", i),
			VenueID:           e2eVenue,
			Rating:            5,
			Content:           fmt.Sprintf("Visit %d: the green curry was rich and the staff remembered our order.", i),
			PhotoCount:        1,
			Verified:          true,
			AuthenticityScore: 85,
			CreatedAt:         now.AddDate(0, 0, -10*i-3),
		}
		if i%3 == 0 {
			r.Rating = 2
			r.Content = fmt.Sprintf("Visit %d: waited forty minutes for a table and the rice came out cold.", i)
			r.Categories = []models.CategoryTag{
				{Category: models.CategoryWaitTime, Severity: 3, Confidence: 80},
				{Category: models.CategoryFoodQuality, Severity: 2, Confidence: 70},
			}
		}
		docs = append(docs, r)
	}
	docs = append(docs, models.Review{
		ID:                "main-fake",
		VenueID:           e2eVenue,
		Rating:            1,
		Content:           "worst",
		AuthenticityScore: 10,
		CreatedAt:         now.Add(-time.Hour),
	})
	for i := 0; i < 6; i++ {
		docs = append(docs, models.Review{
			ID:                fmt.Sprintf("peer-%02d", i),
			VenueID:           e2ePeerVenue,
			Rating:            3,
			Content:           fmt.Sprintf("Peer visit %d: decent noodles, nothing memorable about the room.", i),
			Verified:          true,
			AuthenticityScore: 70,
			CreatedAt:         now.AddDate(0, 0, -15*i-1),
		})
	}

	for _, d := range docs {
		body, err := json.Marshal(d)
		require.NoError(t, err)
		res, err := esapi.IndexRequest{
			Index:      index,
			DocumentID: d.ID,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		}.Do(ctx, s.es)
		require.NoError(t, err)
		require.False(t, res.IsError(), res.String())
		res.Body.Close()
	}
	t.Logf("Indexed %d reviews into %s", len(docs), index)
}

func deployAllBPMN(t *testing.T) {
	var bpmnDir string
	for _, path := range []string{"bpmn", "../bpmn", "../../bpmn"} {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			bpmnDir = path
			break
		}
	}
	if bpmnDir == "" {
		t.Log("BPMN directory not found, skipping deployment")
		return
	}

	files, err := os.ReadDir(bpmnDir)
	require.NoError(t, err)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(strings.ToLower(f.Name()), ".bpmn") {
			continue
		}
		path := filepath.Join(bpmnDir, f.Name())
		if _, err := zeebeClient.NewDeployResourceCommand().AddResourceFile(path).Send(context.Background()); err != nil {
			t.Logf("failed to deploy %s: %v", f.Name(), err)
			continue
		}
		t.Logf("Deployed %s", f.Name())
	}
}

// ==========================
// 3. Workers
// ==========================

func testRegisterWorkers(t *testing.T, s *stack) {
	scorer := recommendation.NewScorer(nil, recommendation.Config{}, s.log)

	handlers := []interface {
		Register(zbc.Client)
		Close()
	}{}
	a, err := anf.NewHandler(anf.HandlerOptions{AppConfig: s.cfg, Reviews: s.reviews, Logger: s.log})
	require.NoError(t, err)
	d, err := dfr.NewHandler(dfr.HandlerOptions{AppConfig: s.cfg, Reviews: s.reviews, Logger: s.log})
	require.NoError(t, err)
	c, err := car.NewHandler(car.HandlerOptions{AppConfig: s.cfg, Reviews: s.reviews, Logger: s.log})
	require.NoError(t, err)
	sc, err := scr.NewHandler(scr.HandlerOptions{AppConfig: s.cfg, Scorer: scorer, Cache: s.cache, Logger: s.log})
	require.NoError(t, err)
	g, err := gcr.NewHandler(gcr.HandlerOptions{AppConfig: s.cfg, Cache: s.cache, Logger: s.log})
	require.NoError(t, err)
	i, err := iuc.NewHandler(iuc.HandlerOptions{AppConfig: s.cfg, Cache: s.cache, Logger: s.log})
	require.NoError(t, err)
	handlers = append(handlers, a, d, c, sc, g, i)

	for _, h := range handlers {
		h.Register(zeebeClient)
	}
	for _, h := range handlers {
		h.Close()
	}
}

func testAnalyzeNegativeFeedback(t *testing.T, s *stack) {
	h, err := anf.NewHandler(anf.HandlerOptions{
		AppConfig: s.cfg,
		Reviews:   s.reviews,
		Alerts:    alerts.NewNoopPublisher(s.log),
		Logger:    s.log,
	})
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &anf.Input{VenueID: e2eVenue})
	require.NoError(t, err)

	assert.Equal(t, 13, out.ReviewCount)
	assert.Equal(t, e2eVenue, out.RiskScore.VenueID)
	assert.NotEmpty(t, out.Patterns)
	assert.False(t, out.RiskAlertSent)
}

func testDetectFakeReviews(t *testing.T, s *stack) {
	h, err := dfr.NewHandler(dfr.HandlerOptions{AppConfig: s.cfg, Reviews: s.reviews, Logger: s.log})
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &dfr.Input{VenueID: e2eVenue})
	require.NoError(t, err)

	assert.Equal(t, 13, out.AuthenticCount+out.SuspiciousCount)
	assert.Contains(t, out.Reasons, "main-fake")
}

func testCalculateAuthenticRating(t *testing.T, s *stack) {
	h, err := car.NewHandler(car.HandlerOptions{AppConfig: s.cfg, Reviews: s.reviews, Logger: s.log})
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &car.Input{
		VenueID:      e2eVenue,
		PeerVenueIDs: []string{e2ePeerVenue, "e2e-venue-missing"},
	})
	require.NoError(t, err)

	assert.Equal(t, e2eVenue, out.Rating.VenueID)
	assert.Greater(t, out.Rating.AuthenticRating, 1.0)
	assert.LessOrEqual(t, out.Rating.AuthenticRating, 5.0)
	assert.Empty(t, out.SkippedPeerIDs, "a venue without reviews is an empty peer, not a failed one")
}

func testRecommendationCacheRoundTrip(t *testing.T, s *stack) {
	ctx := context.Background()
	scorer := recommendation.NewScorer(nil, recommendation.Config{}, s.log)

	_, err := s.cache.InvalidateUser(ctx, e2eUser)
	require.NoError(t, err)

	score, err := scr.NewHandler(scr.HandlerOptions{
		AppConfig: s.cfg,
		Scorer:    scorer,
		Cache:     s.cache,
		Profiles:  repository.NewPostgresProfileStore(s.pg.DB),
		Logger:    s.log,
	})
	require.NoError(t, err)
	lookup, err := gcr.NewHandler(gcr.HandlerOptions{AppConfig: s.cfg, Cache: s.cache, Logger: s.log})
	require.NoError(t, err)
	invalidate, err := iuc.NewHandler(iuc.HandlerOptions{AppConfig: s.cfg, Cache: s.cache, Logger: s.log})
	require.NoError(t, err)

	rc := models.RequestContext{TimeOfDay: "dinner", GroupSize: 2}
	input := &scr.Input{
		User: models.UserProfile{UserID: e2eUser},
		Candidates: []models.Venue{
			{ID: "e2e-thai", Name: "Baan Suan", Cuisine: "thai", Atmosphere: "lively", PriceLevel: 2},
			{ID: "e2e-steak", Name: "Iron Grill", Cuisine: "steakhouse", Atmosphere: "formal", PriceLevel: 4},
		},
		Context: rc,
	}

	first, err := score.Execute(ctx, input)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, first.Recommendations, 2)
	assert.Equal(t, "e2e-thai", first.Recommendations[0].VenueID, "stored profile prefers thai")

	second, err := score.Execute(ctx, input)
	require.NoError(t, err)
	assert.True(t, second.FromCache)

	hit, err := lookup.Execute(ctx, &gcr.Input{UserID: e2eUser, Context: rc})
	require.NoError(t, err)
	assert.True(t, hit.Hit)
	assert.Len(t, hit.Recommendations, 2)

	gone, err := invalidate.Execute(ctx, &iuc.Input{UserID: e2eUser})
	require.NoError(t, err)
	assert.Equal(t, 1, gone.Invalidated)

	miss, err := lookup.Execute(ctx, &gcr.Input{UserID: e2eUser, Context: rc})
	require.NoError(t, err)
	assert.False(t, miss.Hit)
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkHandler_ScoreRecommendations(b *testing.B) {
	log := logger.NewNoOpLogger()
	h, err := scr.NewHandler(scr.HandlerOptions{
		CustomConfig: scr.DefaultConfig(),
		Scorer:       recommendation.NewScorer(nil, recommendation.Config{}, log),
		Logger:       log,
	})
	require.NoError(b, err)

	candidates := make([]models.Venue, 50)
	for i := range candidates {
		candidates[i] = models.Venue{ID: fmt.Sprintf("v-%d", i), Name: "Venue", Cuisine: "thai", PriceLevel: i%4 + 1}
	}
	input := &scr.Input{
		User:       models.UserProfile{UserID: "bench", PreferredCuisines: []string{"thai"}},
		Candidates: candidates,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Execute(context.Background(), input)
	}
}

func BenchmarkHandler_AnalyzeNegativeFeedback(b *testing.B) {
	log := logger.NewNoOpLogger()
	h, err := anf.NewHandler(anf.HandlerOptions{CustomConfig: anf.DefaultConfig(), Logger: log})
	require.NoError(b, err)

	now := time.Now()
	reviews := make([]models.Review, 200)
	for i := range reviews {
		reviews[i] = models.Review{
			ID:        fmt.Sprintf("r-%d", i),
			Rating:    i%5 + 1,
			Content:   "Service was slow but the food held up well enough.",
			CreatedAt: now.AddDate(0, 0, -i),
			Categories: []models.CategoryTag{
				{Category: models.CategoryService, Severity: i%5 + 1, Confidence: 80},
			},
		}
	}
	input := &anf.Input{VenueID: "bench", Reviews: reviews}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Execute(context.Background(), input)
	}
}
