// internal/workers/recommendation/get-cached-recommendations/models.go
package getcachedrecommendations

import (
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"
)

type Input struct {
	UserID  string                `json:"userId"`
	Context models.RequestContext `json:"requestContext"`
	Limit   int                   `json:"limit,omitempty"`
}

type Output struct {
	Hit             bool                             `json:"cacheHit"`
	Recommendations []models.RecommendationCandidate `json:"recommendations"`
}

var inputSchema = validation.MustSchema(TaskType, `{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"requestContext": {"type": "object"},
		"limit": {"type": "integer", "minimum": 0}
	}
}`)
