// internal/workers/rating/calculate-authentic-rating/models.go
package calculateauthenticrating

import (
	"venue-signals/internal/common/validation"
	"venue-signals/internal/models"
)

type Input struct {
	VenueID        string            `json:"venueId"`
	Reviews        []models.Review   `json:"reviews,omitempty"`
	PeerReviewSets [][]models.Review `json:"peerReviewSets,omitempty"`
	// PeerVenueIDs are loaded from the review source and compared alongside PeerReviewSets.
	PeerVenueIDs   []string          `json:"peerVenueIds,omitempty"`
}

type Output struct {
	Rating           models.AuthenticRatingResult `json:"authenticRating"`
	SkippedPeerIDs   []string                     `json:"skippedPeerVenueIds,omitempty"`
	InsufficientData bool                         `json:"insufficientData"`
}

var inputSchema = validation.MustSchema(TaskType, `{
	"type": "object",
	"required": ["venueId"],
	"properties": {
		"venueId": {"type": "string", "minLength": 1},
		"reviews": {"type": "array", "items": {"type": "object", "required": ["rating", "createdAt"]}},
		"peerReviewSets": {
			"type": "array",
			"items": {"type": "array", "items": {"type": "object", "required": ["rating", "createdAt"]}}
		},
		"peerVenueIds": {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`)
