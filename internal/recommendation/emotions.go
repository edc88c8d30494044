package recommendation

import (
	"strings"

	"venue-signals/internal/models"
)

type moodPreference struct {
	cuisines    []string
	atmospheres []string
}

// moodTable maps an emotional state to the cuisines and atmospheres that
// tend to suit it. Neutral has no preference.
var moodTable = map[models.EmotionalState]moodPreference{
	models.EmotionHappy: {
		cuisines:    []string{"italian", "mexican", "spanish", "brazilian", "thai"},
		atmospheres: []string{"lively", "festive", "trendy"},
	},
	models.EmotionSad: {
		cuisines:    []string{"comfort", "american", "italian", "ramen", "bakery"},
		atmospheres: []string{"cozy", "quiet", "casual"},
	},
	models.EmotionStressed: {
		cuisines:    []string{"japanese", "mediterranean", "vegetarian", "healthy", "tea"},
		atmospheres: []string{"quiet", "calm", "relaxed"},
	},
	models.EmotionAngry: {
		cuisines:    []string{"korean", "barbecue", "indian", "burgers", "spicy"},
		atmospheres: []string{"casual", "lively"},
	},
	models.EmotionTired: {
		cuisines:    []string{"cafe", "noodles", "soup", "comfort", "fast_casual"},
		atmospheres: []string{"casual", "cozy", "quick"},
	},
}

const defaultMoodIntensity = 3

// emotionalScore rates how well a venue suits a mood. Intensity 1-5 pulls the
// score away from neutral; a missing or neutral state scores 0.5.
func emotionalScore(state models.EmotionalState, intensity int, v models.Venue) float64 {
	pref, ok := moodTable[state]
	if !ok {
		return neutralScore
	}

	raw := 0.2
	if containsFold(pref.cuisines, v.Cuisine) {
		raw += 0.5
	}
	if containsFold(pref.atmospheres, v.Atmosphere) {
		raw += 0.3
	}

	if intensity <= 0 {
		intensity = defaultMoodIntensity
	}
	if intensity > 5 {
		intensity = 5
	}
	factor := 0.6 + 0.1*float64(intensity)
	return clamp01(neutralScore + (raw-neutralScore)*factor)
}

// requestEmotion prefers the state given with the request over the profile's.
func requestEmotion(user models.UserProfile, rc models.RequestContext) (models.EmotionalState, int) {
	if rc.EmotionalState != "" {
		return rc.EmotionalState, rc.MoodIntensity
	}
	if user.Emotional != nil {
		return user.Emotional.State, user.Emotional.Intensity
	}
	return "", 0
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
