// internal/workers/feedback/detect-fake-reviews/models.go
package detectfakereviews

import (
	"venue-signals/internal/common/validation"
	"venue-signals/internal/fakesignal"
	"venue-signals/internal/models"
)

type Input struct {
	VenueID string          `json:"venueId"`
	Reviews []models.Review `json:"reviews,omitempty"`
}

type Output struct {
	Authentic       []models.Review                `json:"authenticReviews"`
	Suspicious      []models.Review                `json:"suspiciousReviews"`
	Reasons         map[string][]fakesignal.Reason `json:"suspicionReasons"`
	AuthenticCount  int                            `json:"authenticCount"`
	SuspiciousCount int                            `json:"suspiciousCount"`
}

var inputSchema = validation.MustSchema(TaskType, `{
	"type": "object",
	"properties": {
		"venueId": {"type": "string"},
		"reviews": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["rating", "createdAt"],
				"properties": {
					"rating": {"type": "integer"},
					"content": {"type": "string"},
					"verified": {"type": "boolean"},
					"createdAt": {"type": "string"}
				}
			}
		}
	},
	"anyOf": [
		{"required": ["reviews"]},
		{"required": ["venueId"], "properties": {"venueId": {"minLength": 1}}}
	]
}`)
