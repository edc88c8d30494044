package recommendation

import (
	"fmt"
	"strings"

	"venue-signals/internal/models"
)

const (
	maxJustifications = 4

	highMatchScore      = 0.8
	highMLConfidence    = 0.8
	emotionalFitScore   = 0.65
	authenticRatingMark = 4.0
)

type justificationInput struct {
	venue        models.Venue
	user         models.UserProfile
	state        models.EmotionalState
	rules        ruleScores
	final        float64
	mlConfidence float64
	hasML        bool
}

// justify builds at most four reasons, strongest first. The generic line
// only appears when nothing else qualifies.
func justify(in justificationInput) []string {
	out := make([]string, 0, maxJustifications)
	add := func(s string) {
		if len(out) < maxJustifications {
			out = append(out, s)
		}
	}

	if in.hasML && in.mlConfidence >= highMLConfidence && in.final >= highMatchScore {
		add(fmt.Sprintf("Strong match for you (%d%% fit, high model confidence)", percent(in.final)))
	} else if in.final >= highMatchScore {
		add(fmt.Sprintf("Strong match for you (%d%% fit)", percent(in.final)))
	}

	if containsFold(in.user.PreferredCuisines, in.venue.Cuisine) {
		add(fmt.Sprintf("Serves %s, one of your favourite cuisines", strings.ToLower(in.venue.Cuisine)))
	}
	if containsFold(in.user.PreferredAtmospheres, in.venue.Atmosphere) {
		add(fmt.Sprintf("Has the %s atmosphere you like", strings.ToLower(in.venue.Atmosphere)))
	}

	if in.state != "" && in.state != models.EmotionNeutral && in.rules.emotional >= emotionalFitScore {
		add(fmt.Sprintf("A good fit when you're feeling %s", in.state))
	}

	if in.venue.IsLocal {
		add("Locally owned favourite")
	}
	if in.venue.Rating != nil && in.venue.Rating.AuthenticRating >= authenticRatingMark {
		add(fmt.Sprintf("Authentic rating of %.1f from trusted reviews", in.venue.Rating.AuthenticRating))
	}

	if len(out) == 0 {
		add("A solid option for this occasion")
	}
	return out
}

func percent(v float64) int {
	return int(v*100 + 0.5)
}
