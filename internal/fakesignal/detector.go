// Package fakesignal separates authentic reviews from suspicious ones.
package fakesignal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"

	"github.com/bits-and-blooms/bloom/v3"
)

type Reason string

const (
	ReasonShortContent     Reason = "short_content"
	ReasonGenericNegative  Reason = "generic_negative"
	ReasonReviewBurst      Reason = "review_burst"
	ReasonUnverifiedAuthor Reason = "unverified_author"
	ReasonLowAuthenticity  Reason = "low_authenticity"
	ReasonDuplicateContent Reason = "duplicate_content"
)

type Config struct {
	GenericPhrases     []string
	LowRatingMax       int
	ShortContentLength int
	GenericMaxLength   int
	BurstWindow        time.Duration
	BurstMinOthers     int
	LowAuthenticity    float64
	DuplicateMinLength int
}

func DefaultConfig() *Config {
	return &Config{
		GenericPhrases: []string{
			"worst", "terrible", "horrible", "awful", "never again",
			"waste of money", "avoid", "disgusting", "do not go", "rip off",
		},
		LowRatingMax:       2,
		ShortContentLength: 30,
		GenericMaxLength:   100,
		BurstWindow:        24 * time.Hour,
		BurstMinOthers:     2,
		LowAuthenticity:    30,
		DuplicateMinLength: 30,
	}
}

type Detector struct {
	config *Config
	logger logger.Logger
}

func NewDetector(config *Config, log logger.Logger) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	phrases := make([]string, 0, len(config.GenericPhrases))
	for _, p := range config.GenericPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	cfg := *config
	cfg.GenericPhrases = phrases

	return &Detector{
		config: &cfg,
		logger: logger.ForComponent(log, "fake-signal-detector"),
	}
}

// DetectionResult partitions the input. Every input review lands in exactly one set.
type DetectionResult struct {
	Authentic  []models.Review     `json:"authentic"`
	Suspicious []models.Review     `json:"suspicious"`
	Reasons    map[string][]Reason `json:"reasons"`
}

// ReviewKey is the id used in Reasons; reviews without an id use their position.
func ReviewKey(i int, r models.Review) string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("#%d", i)
}

func (d *Detector) Detect(reviews []models.Review) (*DetectionResult, error) {
	if err := validation.Reviews(reviews); err != nil {
		return nil, err
	}

	result := &DetectionResult{
		Authentic:  make([]models.Review, 0, len(reviews)),
		Suspicious: make([]models.Review, 0),
		Reasons:    make(map[string][]Reason),
	}
	if len(reviews) == 0 {
		return result, nil
	}

	bursts := d.burstMembers(reviews)
	duplicates := d.duplicateMembers(reviews)

	for i, r := range reviews {
		var reasons []Reason

		if r.Rating <= d.config.LowRatingMax {
			length := r.ContentLength()
			if length < d.config.ShortContentLength {
				reasons = append(reasons, ReasonShortContent)
			}
			if !r.HasCategories() && length <= d.config.GenericMaxLength && d.hasGenericPhrase(r.Content) {
				reasons = append(reasons, ReasonGenericNegative)
			}
			if bursts[i] {
				reasons = append(reasons, ReasonReviewBurst)
			}
			if !r.Verified {
				reasons = append(reasons, ReasonUnverifiedAuthor)
			}
		}
		if r.AuthenticityScore < d.config.LowAuthenticity {
			reasons = append(reasons, ReasonLowAuthenticity)
		}
		if duplicates[i] {
			reasons = append(reasons, ReasonDuplicateContent)
		}

		if len(reasons) == 0 {
			result.Authentic = append(result.Authentic, r)
			continue
		}
		result.Suspicious = append(result.Suspicious, r)
		result.Reasons[ReviewKey(i, r)] = reasons
		for _, reason := range reasons {
			metrics.FakeReviewFlags.WithLabelValues(string(reason)).Inc()
		}
	}

	d.logger.Info("reviews screened", map[string]interface{}{
		"total":      len(reviews),
		"authentic":  len(result.Authentic),
		"suspicious": len(result.Suspicious),
	})

	return result, nil
}

func (d *Detector) hasGenericPhrase(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range d.config.GenericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// burstMembers marks low-rated reviews with enough other low-rated reviews
// inside the burst window on either side.
func (d *Detector) burstMembers(reviews []models.Review) map[int]bool {
	low := make([]int, 0, len(reviews))
	for i, r := range reviews {
		if r.Rating <= d.config.LowRatingMax {
			low = append(low, i)
		}
	}
	sort.SliceStable(low, func(a, b int) bool {
		return reviews[low[a]].CreatedAt.Before(reviews[low[b]].CreatedAt)
	})

	members := make(map[int]bool)
	for pos, idx := range low {
		at := reviews[idx].CreatedAt
		from := sort.Search(len(low), func(k int) bool {
			return !reviews[low[k]].CreatedAt.Before(at.Add(-d.config.BurstWindow))
		})
		to := sort.Search(len(low), func(k int) bool {
			return reviews[low[k]].CreatedAt.After(at.Add(d.config.BurstWindow))
		})
		others := to - from
		if pos >= from && pos < to {
			others--
		}
		if others >= d.config.BurstMinOthers {
			members[idx] = true
		}
	}
	return members
}

// duplicateMembers marks the second and later reviews repeating the same
// normalized content. The bloom filter screens first sightings cheaply.
func (d *Detector) duplicateMembers(reviews []models.Review) map[int]bool {
	filter := bloom.NewWithEstimates(uint(len(reviews)), 0.001)
	seen := make(map[string]struct{})
	members := make(map[int]bool)

	for i, r := range reviews {
		norm := normalizeContent(r.Content)
		if len([]rune(norm)) < d.config.DuplicateMinLength {
			continue
		}
		if !filter.TestAndAddString(norm) {
			seen[norm] = struct{}{}
			continue
		}
		if _, ok := seen[norm]; ok {
			members[i] = true
			continue
		}
		seen[norm] = struct{}{}
	}
	return members
}

func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
