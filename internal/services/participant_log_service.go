package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
)

// ParticipantLogServiceProvider defines the interface for the participant audit log.
type ParticipantLogServiceProvider interface {
	LogRegistration(ctx context.Context, ex Execer, eventID, userID string) error
	LogCancellation(ctx context.Context, ex Execer, eventID, userID, note string) error
	LogAttendance(ctx context.Context, ex Execer, eventID, userID string, attended bool) error
	LogPointsAwarded(ctx context.Context, ex Execer, eventID, userID string, points int) error
	GetEventHistory(ctx context.Context, eventID string) ([]models.EventParticipantLog, error)
	GetUserHistory(ctx context.Context, userID string, limit int) ([]models.EventParticipantLog, error)
	GetEventStats(ctx context.Context, eventID string) (models.EventStats, error)
}

// ParticipantLogService appends to and queries event_participant_logs.
// Writers take an Execer so entries commit with the caller's transaction;
// a nil Execer writes directly.
type ParticipantLogService struct {
	db *sql.DB
}

// NewParticipantLogService creates a new ParticipantLogService.
func NewParticipantLogService(db *sql.DB) *ParticipantLogService {
	return &ParticipantLogService{db: db}
}

// LogRegistration records that a user registered for an event.
func (s *ParticipantLogService) LogRegistration(ctx context.Context, ex Execer, eventID, userID string) error {
	return s.append(ctx, ex, eventID, userID, models.LogRegistered, 0, "")
}

// LogCancellation records that a user withdrew from an event.
func (s *ParticipantLogService) LogCancellation(ctx context.Context, ex Execer, eventID, userID, note string) error {
	return s.append(ctx, ex, eventID, userID, models.LogCancelled, 0, note)
}

// LogAttendance records whether a registered user showed up.
func (s *ParticipantLogService) LogAttendance(ctx context.Context, ex Execer, eventID, userID string, attended bool) error {
	action := models.LogNoShow
	if attended {
		action = models.LogAttended
	}
	return s.append(ctx, ex, eventID, userID, action, 0, "")
}

// LogPointsAwarded records the impact points granted for an event.
func (s *ParticipantLogService) LogPointsAwarded(ctx context.Context, ex Execer, eventID, userID string, points int) error {
	return s.append(ctx, ex, eventID, userID, models.LogPointsAwarded, points, "")
}

func (s *ParticipantLogService) append(ctx context.Context, ex Execer, eventID, userID, action string, points int, note string) error {
	if ex == nil {
		ex = s.db
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO event_participant_logs (id, event_id, user_id, action, points, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), eventID, userID, action, points, nullString(note), time.Now().UTC())
	return err
}

// GetEventHistory returns every log entry of an event, oldest first.
func (s *ParticipantLogService) GetEventHistory(ctx context.Context, eventID string) ([]models.EventParticipantLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, user_id, action, points, note, created_at
		FROM event_participant_logs WHERE event_id = ? ORDER BY created_at ASC, rowid ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

// GetUserHistory returns the most recent log entries of a user.
func (s *ParticipantLogService) GetUserHistory(ctx context.Context, userID string, limit int) ([]models.EventParticipantLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, user_id, action, points, note, created_at
		FROM event_participant_logs WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

// GetEventStats aggregates the log of an event.
func (s *ParticipantLogService) GetEventStats(ctx context.Context, eventID string) (models.EventStats, error) {
	stats := models.EventStats{EventID: eventID, Actions: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*), COALESCE(SUM(points), 0)
		FROM event_participant_logs WHERE event_id = ? GROUP BY action`, eventID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count, pts int
		if err := rows.Scan(&action, &count, &pts); err != nil {
			return stats, err
		}
		stats.Actions[action] = count
		stats.TotalPoints += pts
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	rows.Close()

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT user_id) FROM event_participant_logs WHERE event_id = ?", eventID).Scan(&stats.UniqueUsers)
	if err != nil {
		return stats, err
	}

	marked := stats.Actions[models.LogAttended] + stats.Actions[models.LogNoShow]
	if marked > 0 {
		stats.AttendanceRate = float64(stats.Actions[models.LogAttended]) / float64(marked)
	}
	return stats, nil
}

func scanLogs(rows *sql.Rows) ([]models.EventParticipantLog, error) {
	logs := []models.EventParticipantLog{}
	for rows.Next() {
		var entry models.EventParticipantLog
		var note sql.NullString
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.UserID, &entry.Action, &entry.Points, &note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Note = note.String
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
