// Package repository loads reviews and user profiles from the backing stores.
package repository

import (
	"bytes"
	"context"
	"fmt"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
)

const DefaultMaxReviews = 1000

// ReviewSource returns the reviews of one venue.
type ReviewSource interface {
	ReviewsForVenue(ctx context.Context, venueID string) ([]models.Review, error)
}

type ESReviewSource struct {
	client     *elasticsearch.Client
	index      string
	maxReviews int
}

func NewESReviewSource(client *elasticsearch.Client, index string, maxReviews int) *ESReviewSource {
	if maxReviews <= 0 {
		maxReviews = DefaultMaxReviews
	}
	return &ESReviewSource{client: client, index: index, maxReviews: maxReviews}
}

type reviewSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source models.Review `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ReviewsForVenue returns the newest reviews of the venue, up to the configured maximum.
func (s *ESReviewSource) ReviewsForVenue(ctx context.Context, venueID string) ([]models.Review, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"venueId": venueID}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		},
		"size": s.maxReviews,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError("reviews", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError("reviews", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, apperrors.NewIndexNotFoundError(s.index)
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError("reviews", fmt.Errorf("search failed: %s", res.Status()))
	}

	var r reviewSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewSearchQueryFailedError("reviews", fmt.Errorf("decode: %w", err))
	}

	reviews := make([]models.Review, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		review := hit.Source
		if review.ID == "" {
			review.ID = hit.ID
		}
		if review.VenueID == "" {
			review.VenueID = venueID
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// ResolveReviews returns the inline reviews when the caller sent them, and
// otherwise loads the venue's reviews from src.
func ResolveReviews(ctx context.Context, src ReviewSource, venueID string, inline []models.Review) ([]models.Review, error) {
	if inline != nil {
		return inline, nil
	}
	if venueID == "" {
		return nil, apperrors.NewValidationError("venueId", "is required when reviews are not sent")
	}
	if src == nil {
		return nil, apperrors.NewValidationError("reviews", "required, no review source is configured")
	}
	return src.ReviewsForVenue(ctx, venueID)
}
