// Package ensemble fans prediction requests out to external ML sources and
// combines whatever subset answers in time.
package ensemble

import (
	"context"
	"errors"

	"venue-signals/internal/models"
)

var (
	ErrNoPredictions = errors.New("source returned no predictions")
	ErrUnhealthy     = errors.New("source failed its health check")
	ErrTaskPanicked  = errors.New("source task panicked")
)

// Source is an external prediction collaborator.
type Source interface {
	Name() string
	Predict(ctx context.Context, req *PredictionRequest) ([]models.EnsemblePrediction, error)
	HealthCheck(ctx context.Context) bool
}

type UserFeatures struct {
	UserID            string   `json:"userId"`
	PreferredCuisines []string `json:"preferredCuisines,omitempty"`
	PriceMin          int      `json:"priceMin,omitempty"`
	PriceMax          int      `json:"priceMax,omitempty"`
	EmotionalState    string   `json:"emotionalState,omitempty"`
	MoodIntensity     int      `json:"moodIntensity,omitempty"`
	VisitCount        int      `json:"visitCount"`
}

type VenueFeatures struct {
	VenueID         string   `json:"venueId"`
	Cuisine         string   `json:"cuisine,omitempty"`
	Atmosphere      string   `json:"atmosphere,omitempty"`
	PriceLevel      int      `json:"priceLevel,omitempty"`
	IsLocal         bool     `json:"isLocal,omitempty"`
	RiskScore       *float64 `json:"riskScore,omitempty"`
	AuthenticRating *float64 `json:"authenticRating,omitempty"`
}

type ContextFeatures struct {
	TimeOfDay string `json:"timeOfDay,omitempty"`
	DayOfWeek string `json:"dayOfWeek,omitempty"`
	Season    string `json:"season,omitempty"`
	GroupSize int    `json:"groupSize,omitempty"`
	Occasion  string `json:"occasion,omitempty"`
}

// PredictionRequest is the payload every source receives.
type PredictionRequest struct {
	RequestID string          `json:"requestId"`
	User      UserFeatures    `json:"user"`
	Venues    []VenueFeatures `json:"venues"`
	Context   ContextFeatures `json:"context"`
}

// BuildRequest summarises a user, candidates and context into source features.
func BuildRequest(requestID string, user models.UserProfile, venues []models.Venue, rc models.RequestContext) *PredictionRequest {
	uf := UserFeatures{
		UserID:            user.UserID,
		PreferredCuisines: user.PreferredCuisines,
		VisitCount:        len(user.History),
	}
	if user.PriceRange != nil {
		uf.PriceMin = user.PriceRange.Min
		uf.PriceMax = user.PriceRange.Max
	}
	switch {
	case rc.EmotionalState != "":
		uf.EmotionalState = string(rc.EmotionalState)
		uf.MoodIntensity = rc.MoodIntensity
	case user.Emotional != nil:
		uf.EmotionalState = string(user.Emotional.State)
		uf.MoodIntensity = user.Emotional.Intensity
	}

	vfs := make([]VenueFeatures, len(venues))
	for i, v := range venues {
		vf := VenueFeatures{
			VenueID:    v.ID,
			Cuisine:    v.Cuisine,
			Atmosphere: v.Atmosphere,
			PriceLevel: v.PriceLevel,
			IsLocal:    v.IsLocal,
		}
		if v.Risk != nil {
			risk := v.Risk.Overall
			vf.RiskScore = &risk
		}
		if v.Rating != nil {
			r := v.Rating.AuthenticRating
			vf.AuthenticRating = &r
		}
		vfs[i] = vf
	}

	return &PredictionRequest{
		RequestID: requestID,
		User:      uf,
		Venues:    vfs,
		Context: ContextFeatures{
			TimeOfDay: rc.TimeOfDay,
			DayOfWeek: rc.DayOfWeek,
			Season:    rc.Season,
			GroupSize: rc.GroupSize,
			Occasion:  rc.Occasion,
		},
	}
}
