// internal/workers/recommendation/score-recommendations/models.go
package scorerecommendations

import (
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"
	"venue-signals/internal/recommendation"
)

type Input struct {
	User        models.UserProfile    `json:"user"`
	Candidates  []models.Venue        `json:"candidateVenues"`
	Context     models.RequestContext `json:"requestContext"`
	Weights     *models.Weights       `json:"weights,omitempty"`
	Limit       int                   `json:"limit,omitempty"`
	// BypassCache recomputes and overwrites any cached entry.
	BypassCache bool                  `json:"bypassCache,omitempty"`
}

type Output struct {
	Recommendations    []models.RecommendationCandidate `json:"recommendations"`
	RequestID          string                           `json:"requestId,omitempty"`
	Tier               recommendation.Tier              `json:"scoringTier,omitempty"`
	Variant            recommendation.Variant           `json:"experimentVariant,omitempty"`
	EnsembleConfidence float64                          `json:"ensembleConfidence"`
	Sources            []recommendation.SourceReport    `json:"mlSources,omitempty"`
	FromCache          bool                             `json:"fromCache"`
}

var inputSchema = validation.MustSchema(TaskType, `{
	"type": "object",
	"required": ["user", "candidateVenues"],
	"properties": {
		"user": {
			"type": "object",
			"required": ["userId"],
			"properties": {"userId": {"type": "string", "minLength": 1}}
		},
		"candidateVenues": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"priceLevel": {"type": "integer"},
					"maxGroupSize": {"type": "integer"}
				}
			}
		},
		"requestContext": {"type": "object"},
		"weights": {
			"type": "object",
			"properties": {
				"preference": {"type": "number"},
				"emotional": {"type": "number"},
				"negative": {"type": "number"},
				"contextual": {"type": "number"},
				"history": {"type": "number"}
			}
		},
		"limit": {"type": "integer", "minimum": 0},
		"bypassCache": {"type": "boolean"}
	}
}`)
