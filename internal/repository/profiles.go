package repository

import (
	"context"
	"database/sql"
	"errors"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/models"

	"github.com/lib/pq"
)

const historyLimit = 50

// ProfileStore reads user preference profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type PostgresProfileStore struct {
	db Querier
}

func NewPostgresProfileStore(db Querier) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

const profileQuery = `SELECT user_id, preferred_cuisines, preferred_atmospheres, price_min, price_max, emotional_state, mood_intensity, home_location FROM user_preferences WHERE user_id = $1`

const historyQuery = `SELECT venue_id, cuisine, rating, visited_at FROM user_visits WHERE user_id = $1 ORDER BY visited_at DESC LIMIT $2`

// GetProfile returns the user's profile. A user without a stored profile
// gets an empty one, which scores neutrally.
func (s *PostgresProfileStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var (
		profile      = &models.UserProfile{UserID: userID}
		cuisines     []string
		atmospheres  []string
		priceMin     sql.NullInt64
		priceMax     sql.NullInt64
		emotion      sql.NullString
		intensity    sql.NullInt64
		homeLocation sql.NullString
	)

	err := s.db.QueryRowContext(ctx, profileQuery, userID).Scan(
		&profile.UserID,
		pq.Array(&cuisines),
		pq.Array(&atmospheres),
		&priceMin,
		&priceMax,
		&emotion,
		&intensity,
		&homeLocation,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return profile, nil
	case err != nil:
		return nil, apperrors.NewQueryExecutionFailedError("user_preferences", err)
	}

	profile.PreferredCuisines = cuisines
	profile.PreferredAtmospheres = atmospheres
	profile.HomeLocation = homeLocation.String
	if priceMin.Valid || priceMax.Valid {
		profile.PriceRange = &models.PriceRange{Min: int(priceMin.Int64), Max: int(priceMax.Int64)}
	}
	if emotion.Valid && emotion.String != "" {
		profile.Emotional = &models.EmotionalProfile{
			State:     models.EmotionalState(emotion.String),
			Intensity: int(intensity.Int64),
		}
	}

	history, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.History = history
	return profile, nil
}

func (s *PostgresProfileStore) history(ctx context.Context, userID string) ([]models.Visit, error) {
	rows, err := s.db.QueryContext(ctx, historyQuery, userID, historyLimit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("user_visits", err)
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		var (
			v       models.Visit
			cuisine sql.NullString
			rating  sql.NullFloat64
		)
		if err := rows.Scan(&v.VenueID, &cuisine, &rating, &v.VisitedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("user_visits", err)
		}
		v.Cuisine = cuisine.String
		v.Rating = rating.Float64
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("user_visits", err)
	}
	return visits, nil
}
