package validation

import (
	"fmt"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/models"
)

// Venues checks candidate ids and the derived signals attached to them.
func Venues(venues []models.Venue) error {
	seen := make(map[string]struct{}, len(venues))
	for i, v := range venues {
		if v.ID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("candidates[%d].id", i), "is required")
		}
		if _, dup := seen[v.ID]; dup {
			return apperrors.NewValidationError(fmt.Sprintf("candidates[%s].id", v.ID), "duplicate venue id")
		}
		seen[v.ID] = struct{}{}

		if v.PriceLevel < 0 || v.MaxGroupSize < 0 {
			return apperrors.NewValidationError(fmt.Sprintf("candidates[%s]", v.ID), "price level and group size must not be negative")
		}
		if v.Risk != nil && !inRange(v.Risk.RecommendationImpact, 0, 100) {
			return apperrors.NewValidationError(fmt.Sprintf("candidates[%s].risk.recommendationImpact", v.ID),
				fmt.Sprintf("must be 0-100, got %v", v.Risk.RecommendationImpact))
		}
		if v.Rating != nil && !inRange(v.Rating.AuthenticRating, 1, 5) {
			return apperrors.NewValidationError(fmt.Sprintf("candidates[%s].authenticRating", v.ID),
				fmt.Sprintf("must be 1-5, got %v", v.Rating.AuthenticRating))
		}
	}
	return nil
}

// RequestContext checks the emotional state and group size of a request.
func RequestContext(rc models.RequestContext) error {
	if rc.EmotionalState != "" && !rc.EmotionalState.Valid() {
		return apperrors.NewValidationError("context.emotionalState", fmt.Sprintf("unknown emotional state %q", rc.EmotionalState))
	}
	if rc.MoodIntensity < 0 || rc.MoodIntensity > 5 {
		return apperrors.NewValidationError("context.moodIntensity", fmt.Sprintf("must be 0-5, got %d", rc.MoodIntensity))
	}
	if rc.GroupSize < 0 {
		return apperrors.NewValidationError("context.groupSize", "must not be negative")
	}
	return nil
}

// UserProfile checks the parts of a profile the scorer relies on.
func UserProfile(u models.UserProfile) error {
	if u.UserID == "" {
		return apperrors.NewValidationError("user.userId", "is required")
	}
	if u.Emotional != nil && u.Emotional.State != "" && !u.Emotional.State.Valid() {
		return apperrors.NewValidationError("user.emotionalProfile.state", fmt.Sprintf("unknown emotional state %q", u.Emotional.State))
	}
	if u.PriceRange != nil && u.PriceRange.Max > 0 && u.PriceRange.Min > u.PriceRange.Max {
		return apperrors.NewValidationError("user.priceRange", "min must not exceed max")
	}
	return nil
}
