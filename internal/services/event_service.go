package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/isdelr/impact-be/internal/points"
)

// EventInput carries the editable fields of an event.
type EventInput struct {
	Title           string    `json:"title" validate:"required,notblank,max=200"`
	Description     string    `json:"description" validate:"max=5000"`
	Category        string    `json:"category" validate:"required"`
	Difficulty      string    `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Location        string    `json:"location" validate:"required_if=IsVirtual false"`
	IsVirtual       bool      `json:"isVirtual"`
	StartTime       time.Time `json:"startTime" validate:"required"`
	EndTime         time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	MaxParticipants int       `json:"maxParticipants" validate:"gte=0"`
	BasePoints      int       `json:"basePoints" validate:"gte=0,lte=1000"`
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Status      string
	Category    string
	OrganizerID string
	Limit       int
	Offset      int
}

// Award is the reward granted to one attendee when an event completes.
type Award struct {
	UserID string       `json:"userId"`
	Points int          `json:"points"`
	Coins  int          `json:"coins"`
	Streak StreakStatus `json:"streak"`
}

// CompletionResult summarises an event completion.
type CompletionResult struct {
	EventID   string           `json:"eventId"`
	Breakdown points.Breakdown `json:"breakdown"`
	Awards    []Award          `json:"awards"`
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, organizerID string, in EventInput) (models.Event, error)
	UpdateEvent(ctx context.Context, actor Actor, id string, in EventInput) (models.Event, error)
	GetEventByID(ctx context.Context, id string) (models.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]models.Event, error)
	DeleteEvent(ctx context.Context, actor Actor, id string) error
	CancelEvent(ctx context.Context, actor Actor, id string) (models.Event, error)
	SetBanner(ctx context.Context, actor Actor, id, url string) (models.Event, error)
	Register(ctx context.Context, eventID, userID string) (models.EventParticipant, error)
	CancelRegistration(ctx context.Context, eventID, userID string) error
	ListParticipants(ctx context.Context, eventID string) ([]models.EventParticipant, error)
	MarkAttendance(ctx context.Context, actor Actor, eventID, userID string, attended bool) error
	Verify(ctx context.Context, eventID string) (models.Event, error)
	Complete(ctx context.Context, actor *Actor, eventID string) (CompletionResult, error)
	PreviewPoints(ctx context.Context, eventID string) (points.Breakdown, error)
	StartDueEvents(ctx context.Context, now time.Time) (int64, error)
	DueForCompletion(ctx context.Context, now time.Time) ([]string, error)
}

// EventService provides business logic for volunteering events and the
// points awarded for them.
type EventService struct {
	db            *sql.DB
	table         points.Table
	pointsPerCoin int
	logs          *ParticipantLogService
	streaks       *StreakService
	activity      ActivityServiceProvider
	notifier      Notifier
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, table points.Table, pointsPerCoin int, logs *ParticipantLogService,
	streaks *StreakService, activity ActivityServiceProvider, notifier Notifier) *EventService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &EventService{
		db:            db,
		table:         table,
		pointsPerCoin: pointsPerCoin,
		logs:          logs,
		streaks:       streaks,
		activity:      activity,
		notifier:      notifier,
	}
}

const eventColumns = `e.id, e.organizer_id, e.title, e.description, e.category, e.difficulty, e.location,
	e.is_virtual, e.start_time, e.end_time, e.max_participants, e.base_points, e.status, e.verified,
	e.banner_url, e.points_awarded, e.created_at,
	(SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id AND p.status <> 'cancelled')`

func scanEvent(scanner interface{ Scan(...interface{}) error }) (models.Event, error) {
	var ev models.Event
	var desc, location, banner sql.NullString
	err := scanner.Scan(&ev.ID, &ev.OrganizerID, &ev.Title, &desc, &ev.Category, &ev.Difficulty, &location,
		&ev.IsVirtual, &ev.StartTime, &ev.EndTime, &ev.MaxParticipants, &ev.BasePoints, &ev.Status, &ev.Verified,
		&banner, &ev.PointsAwarded, &ev.CreatedAt, &ev.Participants)
	if err != nil {
		return models.Event{}, err
	}
	ev.Description = desc.String
	ev.Location = location.String
	ev.BannerURL = banner.String
	return ev, nil
}

func getEvent(ctx context.Context, ex Execer, id string) (models.Event, error) {
	row := ex.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events e WHERE e.id = ?", id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return models.Event{}, err
	}
	return ev, nil
}

func (s *EventService) normalize(in EventInput) (EventInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = points.NormalizeCategory(in.Category, s.table)
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))
	in.StartTime = in.StartTime.UTC().Truncate(time.Second)
	in.EndTime = in.EndTime.UTC().Truncate(time.Second)
	if !in.EndTime.After(in.StartTime) {
		return in, ErrInvalidTimeRange
	}
	return in, nil
}

func canManage(actor Actor, ev models.Event) bool {
	return actor.IsAdmin() || actor.UserID == ev.OrganizerID
}

// CreateEvent adds a new upcoming event organised by organizerID.
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, in EventInput) (models.Event, error) {
	in, err := s.normalize(in)
	if err != nil {
		return models.Event{}, err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, organizer_id, title, description, category, difficulty, location, is_virtual,
		                    start_time, end_time, max_participants, base_points, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, organizerID, in.Title, in.Description, in.Category, in.Difficulty, in.Location, in.IsVirtual,
		in.StartTime, in.EndTime, in.MaxParticipants, in.BasePoints, models.EventUpcoming, time.Now().UTC())
	if err != nil {
		return models.Event{}, err
	}

	s.logActivity(ctx, "event.create", "info", fmt.Sprintf("Event '%s' was created.", in.Title), id)
	return s.GetEventByID(ctx, id)
}

// UpdateEvent changes the editable fields of an event that has not finished.
func (s *EventService) UpdateEvent(ctx context.Context, actor Actor, id string, in EventInput) (models.Event, error) {
	existing, err := s.GetEventByID(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	if !canManage(actor, existing) {
		return models.Event{}, ErrForbidden
	}
	if err := checkOpen(existing); err != nil {
		return models.Event{}, err
	}
	in, err = s.normalize(in)
	if err != nil {
		return models.Event{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE events SET title = ?, description = ?, category = ?, difficulty = ?, location = ?, is_virtual = ?,
		                  start_time = ?, end_time = ?, max_participants = ?, base_points = ?
		WHERE id = ?`,
		in.Title, in.Description, in.Category, in.Difficulty, in.Location, in.IsVirtual,
		in.StartTime, in.EndTime, in.MaxParticipants, in.BasePoints, id)
	if err != nil {
		return models.Event{}, err
	}
	return s.GetEventByID(ctx, id)
}

// GetEventByID retrieves a single event by its ID.
func (s *EventService) GetEventByID(ctx context.Context, id string) (models.Event, error) {
	return getEvent(ctx, s.db, id)
}

// ListEvents returns events ordered by start time.
func (s *EventService) ListEvents(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events e WHERE 1 = 1"
	var args []interface{}
	if filter.Status != "" {
		query += " AND e.status = ?"
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += " AND e.category = ?"
		args = append(args, points.NormalizeCategory(filter.Category, s.table))
	}
	if filter.OrganizerID != "" {
		query += " AND e.organizer_id = ?"
		args = append(args, filter.OrganizerID)
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	query += " ORDER BY e.start_time ASC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event and, through cascading, its participants and log.
func (s *EventService) DeleteEvent(ctx context.Context, actor Actor, id string) error {
	ev, err := s.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, ev) {
		return ErrForbidden
	}
	if ev.Status == models.EventCompleted {
		// Points were already paid out; the history must stay.
		return ErrEventAlreadyCompleted
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id); err != nil {
		return err
	}
	s.logActivity(ctx, "event.delete", "warn", fmt.Sprintf("Event '%s' was deleted.", ev.Title), "")
	return nil
}

// CancelEvent marks an event as cancelled. Registrations are kept for the record.
func (s *EventService) CancelEvent(ctx context.Context, actor Actor, id string) (models.Event, error) {
	ev, err := s.GetEventByID(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	if !canManage(actor, ev) {
		return models.Event{}, ErrForbidden
	}
	if err := checkOpen(ev); err != nil {
		return models.Event{}, err
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE events SET status = ? WHERE id = ?", models.EventCancelled, id); err != nil {
		return models.Event{}, err
	}
	s.logActivity(ctx, "event.cancel", "warn", fmt.Sprintf("Event '%s' was cancelled.", ev.Title), id)
	s.notifier.Publish(TopicGlobal, "event_cancelled", map[string]string{"eventId": id})
	return s.GetEventByID(ctx, id)
}

// SetBanner stores the banner image URL of an event.
func (s *EventService) SetBanner(ctx context.Context, actor Actor, id, url string) (models.Event, error) {
	ev, err := s.GetEventByID(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	if !canManage(actor, ev) {
		return models.Event{}, ErrForbidden
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE events SET banner_url = ? WHERE id = ?", url, id); err != nil {
		return models.Event{}, err
	}
	return s.GetEventByID(ctx, id)
}

func checkOpen(ev models.Event) error {
	switch ev.Status {
	case models.EventCompleted:
		return ErrEventAlreadyCompleted
	case models.EventCancelled:
		return ErrEventCancelled
	}
	return nil
}

// Register signs a user up for an event. A user who cancelled earlier may
// register again.
func (s *EventService) Register(ctx context.Context, eventID, userID string) (models.EventParticipant, error) {
	var participant models.EventParticipant
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		ev, err := getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := checkOpen(ev); err != nil {
			return err
		}

		var status string
		var registeredAt time.Time
		err = tx.QueryRowContext(ctx,
			"SELECT status, registered_at FROM event_participants WHERE event_id = ? AND user_id = ?", eventID, userID).
			Scan(&status, &registeredAt)
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if exists && status != models.ParticipantCancelled {
			return ErrAlreadyRegistered
		}

		if ev.MaxParticipants > 0 && ev.Participants >= ev.MaxParticipants {
			return ErrEventFull
		}

		now := time.Now().UTC()
		participant = models.EventParticipant{
			EventID:      eventID,
			UserID:       userID,
			Status:       models.ParticipantRegistered,
			RegisteredAt: now,
			UpdatedAt:    now,
		}
		if exists {
			_, err = tx.ExecContext(ctx,
				"UPDATE event_participants SET status = ?, registered_at = ?, updated_at = ? WHERE event_id = ? AND user_id = ?",
				participant.Status, now, now, eventID, userID)
		} else {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO event_participants (event_id, user_id, status, registered_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				eventID, userID, participant.Status, now, now)
		}
		if err != nil {
			return err
		}
		return s.logs.LogRegistration(ctx, tx, eventID, userID)
	})
	if err != nil {
		return models.EventParticipant{}, err
	}

	s.notifier.Publish(TopicGlobal, "participant_registered", map[string]string{"eventId": eventID, "userId": userID})
	return participant, nil
}

// CancelRegistration withdraws a user from an event that has not finished.
func (s *EventService) CancelRegistration(ctx context.Context, eventID, userID string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		ev, err := getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := checkOpen(ev); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE event_participants SET status = ?, updated_at = ?
			WHERE event_id = ? AND user_id = ? AND status = ?`,
			models.ParticipantCancelled, time.Now().UTC(), eventID, userID, models.ParticipantRegistered)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotRegistered
		}
		return s.logs.LogCancellation(ctx, tx, eventID, userID, "withdrawn by volunteer")
	})
}

// ListParticipants returns all participation rows of an event.
func (s *EventService) ListParticipants(ctx context.Context, eventID string) ([]models.EventParticipant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.event_id, p.user_id, u.name, p.status, p.registered_at, p.updated_at
		FROM event_participants p JOIN users u ON u.id = p.user_id
		WHERE p.event_id = ? ORDER BY p.registered_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.EventParticipant{}
	for rows.Next() {
		var p models.EventParticipant
		if err := rows.Scan(&p.EventID, &p.UserID, &p.UserName, &p.Status, &p.RegisteredAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// MarkAttendance records whether a registered volunteer attended.
func (s *EventService) MarkAttendance(ctx context.Context, actor Actor, eventID, userID string, attended bool) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		ev, err := getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !canManage(actor, ev) {
			return ErrForbidden
		}
		if err := checkOpen(ev); err != nil {
			return err
		}

		status := models.ParticipantNoShow
		if attended {
			status = models.ParticipantAttended
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE event_participants SET status = ?, updated_at = ?
			WHERE event_id = ? AND user_id = ? AND status <> ?`,
			status, time.Now().UTC(), eventID, userID, models.ParticipantCancelled)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotRegistered
		}
		return s.logs.LogAttendance(ctx, tx, eventID, userID, attended)
	})
}

// Verify marks an event as verified, which earns its attendees a bonus.
func (s *EventService) Verify(ctx context.Context, eventID string) (models.Event, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE events SET verified = TRUE WHERE id = ?", eventID)
	if err != nil {
		return models.Event{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return s.GetEventByID(ctx, eventID)
}

func (s *EventService) pointsInput(ctx context.Context, ex Execer, ev models.Event) (points.Input, error) {
	in := points.Input{
		Category:      ev.Category,
		Difficulty:    ev.Difficulty,
		DurationHours: points.DurationHours(ev.StartTime, ev.EndTime),
		BasePoints:    ev.BasePoints,
		Verified:      ev.Verified,
		Virtual:       ev.IsVirtual,
	}
	err := ex.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM event_participants WHERE event_id = ? AND status <> ?`,
		models.ParticipantAttended, ev.ID, models.ParticipantCancelled).Scan(&in.Registered, &in.Attended)
	return in, err
}

// PreviewPoints returns the score the event would award if completed now.
func (s *EventService) PreviewPoints(ctx context.Context, eventID string) (points.Breakdown, error) {
	ev, err := s.GetEventByID(ctx, eventID)
	if err != nil {
		return points.Breakdown{}, err
	}
	in, err := s.pointsInput(ctx, s.db, ev)
	if err != nil {
		return points.Breakdown{}, err
	}
	return points.Calculate(in, s.table), nil
}

// Complete closes an event and pays every attendee its impact points, the
// matching coins and a day of streak. A nil actor means the scheduler.
// Participants never marked are recorded as no-shows.
func (s *EventService) Complete(ctx context.Context, actor *Actor, eventID string) (CompletionResult, error) {
	result := CompletionResult{EventID: eventID, Awards: []Award{}}
	var ev models.Event

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		ev, err = getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if actor != nil && !canManage(*actor, ev) {
			return ErrForbidden
		}
		if err := checkOpen(ev); err != nil {
			return err
		}

		unmarked, err := participantsWithStatus(ctx, tx, eventID, models.ParticipantRegistered)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		// An event closed early counts for today, never for a future day.
		activeDay := ev.EndTime
		if today := s.streaks.now(); today.Before(activeDay) {
			activeDay = today
		}
		for _, userID := range unmarked {
			if _, err := tx.ExecContext(ctx,
				"UPDATE event_participants SET status = ?, updated_at = ? WHERE event_id = ? AND user_id = ?",
				models.ParticipantNoShow, now, eventID, userID); err != nil {
				return err
			}
			if err := s.logs.LogAttendance(ctx, tx, eventID, userID, false); err != nil {
				return err
			}
		}

		in, err := s.pointsInput(ctx, tx, ev)
		if err != nil {
			return err
		}
		result.Breakdown = points.Calculate(in, s.table)
		pts := result.Breakdown.Total
		coins := points.CoinsFor(pts, s.pointsPerCoin)

		attendees, err := participantsWithStatus(ctx, tx, eventID, models.ParticipantAttended)
		if err != nil {
			return err
		}
		for _, userID := range attendees {
			award := Award{UserID: userID, Points: pts, Coins: coins}
			if _, err := tx.ExecContext(ctx, "UPDATE users SET points = points + ? WHERE id = ?", pts, userID); err != nil {
				return err
			}
			if coins > 0 {
				reason := fmt.Sprintf("Attended event '%s'", ev.Title)
				if _, err := applyCoins(ctx, tx, userID, coins, models.CoinEarn, reason, eventID); err != nil {
					return err
				}
			}
			if err := s.logs.LogPointsAwarded(ctx, tx, eventID, userID, pts); err != nil {
				return err
			}
			award.Streak, err = s.streaks.recordActivityTx(ctx, tx, userID, activeDay)
			if err != nil {
				return err
			}
			result.Awards = append(result.Awards, award)
		}

		_, err = tx.ExecContext(ctx, "UPDATE events SET status = ?, points_awarded = ? WHERE id = ?",
			models.EventCompleted, pts, eventID)
		return err
	})
	if err != nil {
		return CompletionResult{}, err
	}

	msg := fmt.Sprintf("Event '%s' completed: %d volunteers earned %d points each.", ev.Title, len(result.Awards), result.Breakdown.Total)
	s.logActivity(ctx, "event.complete", "info", msg, eventID)
	for _, award := range result.Awards {
		s.notifier.Publish(UserTopic(award.UserID), "points_awarded", award)
	}
	s.notifier.Publish(TopicGlobal, "event_completed", map[string]interface{}{
		"eventId": eventID,
		"points":  result.Breakdown.Total,
		"awarded": len(result.Awards),
	})
	return result, nil
}

func participantsWithStatus(ctx context.Context, ex Execer, eventID, status string) ([]string, error) {
	rows, err := ex.QueryContext(ctx,
		"SELECT user_id FROM event_participants WHERE event_id = ? AND status = ? ORDER BY registered_at ASC", eventID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StartDueEvents moves upcoming events whose start time has passed to ongoing.
func (s *EventService) StartDueEvents(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE events SET status = ? WHERE status = ? AND start_time <= ?",
		models.EventOngoing, models.EventUpcoming, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DueForCompletion lists open events whose end time has passed.
func (s *EventService) DueForCompletion(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM events WHERE status IN (?, ?) AND end_time <= ? ORDER BY end_time ASC",
		models.EventUpcoming, models.EventOngoing, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *EventService) logActivity(ctx context.Context, activityType, level, message, eventID string) {
	recordActivity(ctx, s.activity, activityType, level, message, eventID)
}
