// internal/workers/feedback/analyze-negative-feedback/models.go
package analyzenegativefeedback

import (
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"
)

// Input carries the reviews inline, or only a venue id to load them by.
type Input struct {
	VenueID      string          `json:"venueId"`
	Reviews      []models.Review `json:"reviews,omitempty"`
	WindowMonths int             `json:"windowMonths,omitempty"`
}

type Output struct {
	RiskScore     models.RiskScore         `json:"riskScore"`
	Patterns      []models.FeedbackPattern `json:"feedbackPatterns"`
	ReviewCount   int                      `json:"reviewCount"`
	RiskAlertSent bool                     `json:"riskAlertSent"`
}

var inputSchema = validation.MustSchema(TaskType, `{
	"type": "object",
	"properties": {
		"venueId": {"type": "string"},
		"windowMonths": {"type": "integer", "minimum": 0},
		"reviews": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["rating", "createdAt"],
				"properties": {
					"rating": {"type": "integer"},
					"createdAt": {"type": "string"},
					"categories": {"type": "array"}
				}
			}
		}
	},
	"anyOf": [
		{"required": ["reviews"]},
		{"required": ["venueId"], "properties": {"venueId": {"minLength": 1}}}
	]
}`)
