package validation

import (
	"fmt"
	"math"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/models"
)

// Review rejects malformed reviews instead of defaulting their fields.
func Review(i int, r models.Review) error {
	field := func(name string) string {
		if r.ID != "" {
			return fmt.Sprintf("reviews[%s].%s", r.ID, name)
		}
		return fmt.Sprintf("reviews[%d].%s", i, name)
	}

	if r.CreatedAt.IsZero() {
		return apperrors.NewValidationError(field("createdAt"), "timestamp is missing or not a valid time")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return apperrors.NewValidationError(field("rating"), fmt.Sprintf("must be 1-5, got %d", r.Rating))
	}
	if !inRange(r.AuthenticityScore, 0, 100) {
		return apperrors.NewValidationError(field("authenticityScore"), fmt.Sprintf("must be 0-100, got %v", r.AuthenticityScore))
	}
	if r.PhotoCount < 0 {
		return apperrors.NewValidationError(field("photoCount"), "must not be negative")
	}
	for j, tag := range r.Categories {
		if !tag.Category.Valid() {
			return apperrors.NewValidationError(field(fmt.Sprintf("categories[%d].category", j)), fmt.Sprintf("unknown category %q", tag.Category))
		}
		if tag.Severity < 1 || tag.Severity > 5 {
			return apperrors.NewValidationError(field(fmt.Sprintf("categories[%d].severity", j)), fmt.Sprintf("must be 1-5, got %d", tag.Severity))
		}
		if !inRange(tag.Confidence, 0, 100) {
			return apperrors.NewValidationError(field(fmt.Sprintf("categories[%d].confidence", j)), fmt.Sprintf("must be 0-100, got %v", tag.Confidence))
		}
	}
	return nil
}

// Reviews validates every review, stopping at the first problem.
func Reviews(reviews []models.Review) error {
	for i, r := range reviews {
		if err := Review(i, r); err != nil {
			return err
		}
	}
	return nil
}

// Weights rejects negative or non-finite weights. Sums other than 1 are allowed.
func Weights(w models.Weights) error {
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"preference", w.Preference},
		{"emotional", w.Emotional},
		{"negative", w.Negative},
		{"contextual", w.Contextual},
		{"history", w.History},
	} {
		if !isFinite(f.val) || f.val < 0 {
			return apperrors.NewValidationError("weights."+f.name, fmt.Sprintf("must be a finite non-negative number, got %v", f.val))
		}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return isFinite(v) && v >= lo && v <= hi
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
