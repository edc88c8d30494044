// internal/models/review.go
package models

import (
	"time"
	"unicode/utf8"
)

// Category is one of the fixed complaint categories a review can be tagged with.
type Category string

const (
	CategoryService     Category = "service"
	CategoryFoodQuality Category = "food_quality"
	CategoryCleanliness Category = "cleanliness"
	CategoryValue       Category = "value"
	CategoryAtmosphere  Category = "atmosphere"
	CategoryWaitTime    Category = "wait_time"
)

// Categories lists every complaint category in reporting order.
var Categories = []Category{
	CategoryService,
	CategoryFoodQuality,
	CategoryCleanliness,
	CategoryValue,
	CategoryAtmosphere,
	CategoryWaitTime,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsCritical reports whether complaints in this category weigh extra.
func (c Category) IsCritical() bool {
	return c == CategoryFoodQuality || c == CategoryCleanliness
}

// CategoryTag is a (category, severity, confidence) tuple attached to a review.
type CategoryTag struct {
	Category   Category `json:"category"`
	Severity   int      `json:"severity"`   // 1-5
	Confidence float64  `json:"confidence"` // 0-100
}

// Review is an immutable customer review of a venue.
type Review struct {
	ID                string        `json:"id"`
	VenueID           string        `json:"venueId"`
	Rating            int           `json:"rating"`
	Content           string        `json:"content"`
	PhotoCount        int           `json:"photoCount"`
	Verified          bool          `json:"verified"`
	AuthenticityScore float64       `json:"authenticityScore"`
	Categories        []CategoryTag `json:"categories,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

func (r Review) HasPhoto() bool {
	return r.PhotoCount > 0
}

func (r Review) HasCategories() bool {
	return len(r.Categories) > 0
}

// ContentLength counts characters, not bytes.
func (r Review) ContentLength() int {
	return utf8.RuneCountInString(r.Content)
}

// HasSevereCriticalTag reports a food_quality or cleanliness tag with severity of at least 4.
func (r Review) HasSevereCriticalTag() bool {
	for _, tag := range r.Categories {
		if tag.Category.IsCritical() && tag.Severity >= 4 {
			return true
		}
	}
	return false
}
