// internal/models/prediction.go
package models

import "github.com/goccy/go-json"

// Known feature keys exchanged with prediction sources.
const (
	FeaturePreference = "preference_match"
	FeatureEmotional  = "emotional_fit"
	FeaturePopularity = "popularity"
	FeatureProximity  = "proximity"
	FeaturePrice      = "price_fit"
	FeatureTiming     = "timing_fit"
)

// FeatureContributions is a closed record of optional feature values.
// Keys a source sends that are not known land in Unknown.
type FeatureContributions struct {
	Preference *float64
	Emotional  *float64
	Popularity *float64
	Proximity  *float64
	Price      *float64
	Timing     *float64
	Unknown    map[string]float64
}

func (f *FeatureContributions) slot(key string) **float64 {
	switch key {
	case FeaturePreference:
		return &f.Preference
	case FeatureEmotional:
		return &f.Emotional
	case FeaturePopularity:
		return &f.Popularity
	case FeatureProximity:
		return &f.Proximity
	case FeaturePrice:
		return &f.Price
	case FeatureTiming:
		return &f.Timing
	}
	return nil
}

// FeaturesFromMap sorts a flat feature map into known fields and the unknown bucket.
func FeaturesFromMap(m map[string]float64) FeatureContributions {
	var f FeatureContributions
	for k, v := range m {
		v := v
		if p := f.slot(k); p != nil {
			*p = &v
			continue
		}
		if f.Unknown == nil {
			f.Unknown = make(map[string]float64)
		}
		f.Unknown[k] = v
	}
	return f
}

// Map flattens the record back to the wire shape.
func (f FeatureContributions) Map() map[string]float64 {
	out := make(map[string]float64, 6+len(f.Unknown))
	for _, k := range []string{FeaturePreference, FeatureEmotional, FeaturePopularity, FeatureProximity, FeaturePrice, FeatureTiming} {
		if p := *f.slot(k); p != nil {
			out[k] = *p
		}
	}
	for k, v := range f.Unknown {
		out[k] = v
	}
	return out
}

func (f FeatureContributions) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Map())
}

func (f *FeatureContributions) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = FeaturesFromMap(m)
	return nil
}

// EnsemblePrediction is one venue score from one prediction source.
type EnsemblePrediction struct {
	VenueID    string               `json:"venueId"`
	Score      float64              `json:"score"`
	Confidence float64              `json:"confidence"`
	Features   FeatureContributions `json:"features"`
	Source     string               `json:"source"`
	Degraded   bool                 `json:"degraded,omitempty"`
}
