package recommendation

import (
	"strings"

	"venue-signals/internal/models"
)

const (
	neutralScore = 0.5
	// negativeNeutral applies when a venue has neither a risk score nor a rating.
	negativeNeutral = 0.75
)

// ruleScores holds the rule-based sub-scores of one venue, each in [0,1].
type ruleScores struct {
	preference float64
	emotional  float64
	negative   float64
	contextual float64
	history    float64
	total      float64
}

func scoreRules(user models.UserProfile, rc models.RequestContext, v models.Venue, w models.Weights) ruleScores {
	state, intensity := requestEmotion(user, rc)
	s := ruleScores{
		preference: preferenceScore(user, v),
		emotional:  emotionalScore(state, intensity, v),
		negative:   negativeAwareness(v),
		contextual: contextualScore(rc, v),
		history:    historyScore(user, v),
	}
	s.total = clamp01(w.Preference*s.preference +
		w.Emotional*s.emotional +
		w.Negative*s.negative +
		w.Contextual*s.contextual +
		w.History*s.history)
	return s
}

// partial averages the weighted parts that are known.
type partial struct {
	sum, weight float64
}

func (p *partial) add(weight, value float64) {
	p.sum += weight * value
	p.weight += weight
}

func (p partial) value(fallback float64) float64 {
	if p.weight == 0 {
		return fallback
	}
	return clamp01(p.sum / p.weight)
}

func preferenceScore(user models.UserProfile, v models.Venue) float64 {
	var p partial
	if len(user.PreferredCuisines) > 0 {
		p.add(0.5, boolScore(containsFold(user.PreferredCuisines, v.Cuisine)))
	}
	if len(user.PreferredAtmospheres) > 0 {
		p.add(0.2, boolScore(containsFold(user.PreferredAtmospheres, v.Atmosphere)))
	}
	if user.PriceRange != nil && v.PriceLevel > 0 {
		p.add(0.3, priceFit(*user.PriceRange, v.PriceLevel))
	}
	return p.value(neutralScore)
}

func priceFit(r models.PriceRange, level int) float64 {
	switch {
	case level < r.Min:
		return clamp01(1 - 0.25*float64(r.Min-level))
	case r.Max > 0 && level > r.Max:
		return clamp01(1 - 0.4*float64(level-r.Max))
	default:
		return 1
	}
}

// negativeAwareness is 1 minus the risk penalty, blended with the authentic rating.
func negativeAwareness(v models.Venue) float64 {
	var p partial
	if v.Risk != nil {
		p.add(0.6, 1-v.Risk.RecommendationImpact/100)
	}
	if v.Rating != nil {
		p.add(0.4, (v.Rating.AuthenticRating-1)/4)
	}
	return p.value(negativeNeutral)
}

var periodsByTime = map[string]string{
	"morning":    "breakfast",
	"breakfast":  "breakfast",
	"midday":     "lunch",
	"afternoon":  "lunch",
	"lunch":      "lunch",
	"evening":    "dinner",
	"dinner":     "dinner",
	"night":      "late_night",
	"late_night": "late_night",
}

func contextualScore(rc models.RequestContext, v models.Venue) float64 {
	var n, sum float64
	add := func(x float64) {
		sum += x
		n++
	}

	if period, ok := periodsByTime[strings.ToLower(rc.TimeOfDay)]; ok && len(v.ServesPeriods) > 0 {
		if containsFold(v.ServesPeriods, period) {
			add(1)
		} else {
			add(0.2)
		}
	}
	if rc.GroupSize > 0 && v.MaxGroupSize > 0 {
		if rc.GroupSize <= v.MaxGroupSize {
			add(1)
		} else {
			add(0.1)
		}
	}
	if rc.Occasion != "" && len(v.Occasions) > 0 {
		if containsFold(v.Occasions, rc.Occasion) {
			add(1)
		} else {
			add(0.4)
		}
	}
	if rc.Location != "" && v.Location != "" {
		if strings.EqualFold(rc.Location, v.Location) {
			add(1)
		} else {
			add(0.5)
		}
	}

	if n == 0 {
		return neutralScore
	}
	return clamp01(sum / n)
}

// historyScore rewards venues the user liked and cuisines they keep returning to.
func historyScore(user models.UserProfile, v models.Venue) float64 {
	if len(user.History) == 0 {
		return neutralScore
	}

	var rated, ratingSum float64
	visited := false
	sameCuisine := 0
	for _, visit := range user.History {
		if visit.VenueID == v.ID {
			visited = true
			if visit.Rating > 0 {
				rated++
				ratingSum += visit.Rating
			}
		}
		if v.Cuisine != "" && strings.EqualFold(visit.Cuisine, v.Cuisine) {
			sameCuisine++
		}
	}

	switch {
	case visited && rated > 0:
		return clamp01(0.2 + 0.8*(ratingSum/rated-1)/4)
	case visited:
		return 0.7
	case sameCuisine > 0:
		return clamp01(0.6 + 0.2*float64(sameCuisine)/float64(len(user.History)))
	default:
		return 0.4
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
