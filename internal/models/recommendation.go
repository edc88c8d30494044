// internal/models/recommendation.go
package models

import "time"

type EmotionalState string

const (
	EmotionHappy    EmotionalState = "happy"
	EmotionSad      EmotionalState = "sad"
	EmotionStressed EmotionalState = "stressed"
	EmotionNeutral  EmotionalState = "neutral"
	EmotionAngry    EmotionalState = "angry"
	EmotionTired    EmotionalState = "tired"
)

func (e EmotionalState) Valid() bool {
	switch e {
	case EmotionHappy, EmotionSad, EmotionStressed, EmotionNeutral, EmotionAngry, EmotionTired:
		return true
	}
	return false
}

// Venue is a candidate restaurant with the derived signals the scorer consults.
type Venue struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Cuisine       string   `json:"cuisine"`
	Atmosphere    string   `json:"atmosphere,omitempty"`
	PriceLevel    int      `json:"priceLevel,omitempty"` // 1-4
	Location      string   `json:"location,omitempty"`
	IsLocal       bool     `json:"isLocal,omitempty"`
	ServesPeriods []string `json:"servesPeriods,omitempty"` // breakfast, lunch, dinner, late_night
	MaxGroupSize  int      `json:"maxGroupSize,omitempty"`
	Occasions     []string `json:"occasions,omitempty"`

	Risk   *RiskScore             `json:"risk,omitempty"`
	Rating *AuthenticRatingResult `json:"authenticRating,omitempty"`
}

type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type EmotionalProfile struct {
	State     EmotionalState `json:"state"`
	Intensity int            `json:"intensity,omitempty"` // 1-5
}

type Visit struct {
	VenueID   string    `json:"venueId"`
	Cuisine   string    `json:"cuisine,omitempty"`
	Rating    float64   `json:"rating,omitempty"` // 1-5, 0 when unrated
	VisitedAt time.Time `json:"visitedAt"`
}

// UserProfile is the read-only preference record the scorer personalises with.
type UserProfile struct {
	UserID               string            `json:"userId"`
	PreferredCuisines    []string          `json:"preferredCuisines,omitempty"`
	PreferredAtmospheres []string          `json:"preferredAtmospheres,omitempty"`
	PriceRange           *PriceRange       `json:"priceRange,omitempty"`
	Emotional            *EmotionalProfile `json:"emotionalProfile,omitempty"`
	History              []Visit           `json:"history,omitempty"`
	HomeLocation         string            `json:"homeLocation,omitempty"`
}

// RequestContext carries the situational part of a recommendation request.
type RequestContext struct {
	EmotionalState EmotionalState `json:"emotionalState,omitempty"`
	MoodIntensity  int            `json:"moodIntensity,omitempty"`
	Location       string         `json:"location,omitempty"`
	TimeOfDay      string         `json:"timeOfDay,omitempty"`
	DayOfWeek      string         `json:"dayOfWeek,omitempty"`
	Season         string         `json:"season,omitempty"`
	GroupSize      int            `json:"groupSize,omitempty"`
	Occasion       string         `json:"occasion,omitempty"`
}

// Weights for the rule-based sub-scores. They are not required to sum to 1.
type Weights struct {
	Preference float64 `json:"preference"`
	Emotional  float64 `json:"emotional"`
	Negative   float64 `json:"negative"`
	Contextual float64 `json:"contextual"`
	History    float64 `json:"history"`
}

func DefaultWeights() Weights {
	return Weights{
		Preference: 0.30,
		Emotional:  0.20,
		Negative:   0.25,
		Contextual: 0.15,
		History:    0.10,
	}
}

type RecommendationCandidate struct {
	VenueID            string   `json:"venueId"`
	VenueName          string   `json:"venueName,omitempty"`
	MatchScore         float64  `json:"matchScore"`
	EmotionalAlignment float64  `json:"emotionalAlignment"`
	Justifications     []string `json:"justifications"`
	Tags               []string `json:"tags,omitempty"`
}

// CacheEntry is replaced or deleted, never mutated.
type CacheEntry struct {
	UserID             string                    `json:"userId"`
	Candidates         []RecommendationCandidate `json:"candidates"`
	GeneratedAt        time.Time                 `json:"generatedAt"`
	ContextFingerprint string                    `json:"contextFingerprint"`
	TTLMinutes         int                       `json:"ttlMinutes"`
}
