package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/rs/zerolog/log"
)

// ActivityServiceProvider defines the interface for the activity feed.
type ActivityServiceProvider interface {
	CreateActivity(ctx context.Context, activityType, level, message string, eventID *string) error
	GetRecentActivities(ctx context.Context, limit int) ([]models.Activity, error)
}

// ActivityService records platform activity such as completed events and redemptions.
type ActivityService struct {
	db *sql.DB
}

// NewActivityService creates a new ActivityService.
func NewActivityService(db *sql.DB) *ActivityService {
	return &ActivityService{db: db}
}

// CreateActivity logs a new activity entry to the database.
func (s *ActivityService) CreateActivity(ctx context.Context, activityType, level, message string, eventID *string) error {
	activity := models.Activity{
		ID:        uuid.New().String(),
		Type:      activityType,
		Level:     level,
		Message:   message,
		EventID:   eventID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO activities (id, type, level, message, event_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		activity.ID, activity.Type, activity.Level, activity.Message, activity.EventID, activity.CreatedAt)
	return err
}

// GetRecentActivities retrieves the most recent activity entries.
func (s *ActivityService) GetRecentActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, event_id, created_at FROM activities ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var activity models.Activity
		var eventID sql.NullString
		if err := rows.Scan(&activity.ID, &activity.Type, &activity.Level, &activity.Message, &eventID, &activity.CreatedAt); err != nil {
			return nil, err
		}
		if eventID.Valid {
			activity.EventID = &eventID.String
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

// recordActivity writes a feed entry on behalf of another service. Failures
// are logged and never fail the caller. An empty eventID stores NULL.
func recordActivity(ctx context.Context, activity ActivityServiceProvider, activityType, level, message, eventID string) {
	if activity == nil {
		return
	}
	var ref *string
	if eventID != "" {
		ref = &eventID
	}
	if err := activity.CreateActivity(ctx, activityType, level, message, ref); err != nil {
		log.Warn().Err(err).Str("type", activityType).Msg("Failed to record activity")
	}
}
