package validation

import (
	"math"
	"testing"
	"time"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func validReview() models.Review {
	return models.Review{
		ID:                "r-1",
		VenueID:           "venue-1",
		Rating:            2,
		Content:           "slow service and the soup was cold",
		AuthenticityScore: 80,
		CreatedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Categories: []models.CategoryTag{
			{Category: models.CategoryService, Severity: 3, Confidence: 90},
		},
	}
}

// ==========================
// Review Validation Tests
// ==========================

func TestReview(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *models.Review)
		wantField string
	}{
		{name: "valid review", mutate: func(r *models.Review) {}},
		{name: "missing timestamp", mutate: func(r *models.Review) { r.CreatedAt = time.Time{} }, wantField: "reviews[r-1].createdAt"},
		{name: "rating too low", mutate: func(r *models.Review) { r.Rating = 0 }, wantField: "reviews[r-1].rating"},
		{name: "rating too high", mutate: func(r *models.Review) { r.Rating = 6 }, wantField: "reviews[r-1].rating"},
		{name: "authenticity out of range", mutate: func(r *models.Review) { r.AuthenticityScore = 101 }, wantField: "reviews[r-1].authenticityScore"},
		{name: "authenticity NaN", mutate: func(r *models.Review) { r.AuthenticityScore = math.NaN() }, wantField: "reviews[r-1].authenticityScore"},
		{name: "negative photo count", mutate: func(r *models.Review) { r.PhotoCount = -1 }, wantField: "reviews[r-1].photoCount"},
		{name: "unknown category", mutate: func(r *models.Review) { r.Categories[0].Category = "parking" }, wantField: "reviews[r-1].categories[0].category"},
		{name: "severity out of range", mutate: func(r *models.Review) { r.Categories[0].Severity = 7 }, wantField: "reviews[r-1].categories[0].severity"},
		{name: "tag confidence out of range", mutate: func(r *models.Review) { r.Categories[0].Confidence = -5 }, wantField: "reviews[r-1].categories[0].confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReview()
			tt.mutate(&r)

			err := Review(0, r)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
			stdErr, ok := apperrors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, stdErr.Metadata["field"])
		})
	}
}

func TestReviews_UsesIndexWhenIDMissing(t *testing.T) {
	good := validReview()
	bad := validReview()
	bad.ID = ""
	bad.Rating = 9

	err := Reviews([]models.Review{good, bad})
	require.Error(t, err)
	stdErr, _ := apperrors.AsStandard(err)
	assert.Equal(t, "reviews[1].rating", stdErr.Metadata["field"])
}

// ==========================
// Weights Validation Tests
// ==========================

func TestWeights(t *testing.T) {
	assert.NoError(t, Weights(models.DefaultWeights()))
	assert.NoError(t, Weights(models.Weights{Preference: 2, Emotional: 2}), "sums above 1 are accepted")

	assert.Error(t, Weights(models.Weights{Preference: -0.1}))
	assert.Error(t, Weights(models.Weights{History: math.Inf(1)}))
	assert.Error(t, Weights(models.Weights{Contextual: math.NaN()}))
}

// ==========================
// Schema Tests
// ==========================

func TestSchema_ValidateBytes(t *testing.T) {
	schema := MustSchema("prediction", `{
		"type": "object",
		"required": ["score"],
		"properties": {"score": {"type": "number", "minimum": 0, "maximum": 1}}
	}`)

	res := schema.ValidateBytes([]byte(`{"score": 0.4}`))
	assert.True(t, res.Valid)

	res = schema.ValidateBytes([]byte(`{"score": 1.4}`))
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("score"))
	assert.NotEmpty(t, res.GetErrorMessages())

	res = schema.ValidateBytes([]byte(`{}`))
	assert.False(t, res.Valid)

	res = schema.ValidateBytes([]byte(`not json`))
	assert.False(t, res.Valid)
	assert.Equal(t, "INVALID_DOCUMENT", res.Errors[0].Code)
}

func TestNewSchema_InvalidSchema(t *testing.T) {
	_, err := NewSchema("broken", `{"type": 12}`)
	assert.Error(t, err)
}
