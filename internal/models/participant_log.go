package models

import "time"

// Actions recorded in the participant log.
const (
	LogRegistered    = "registered"
	LogCancelled     = "cancelled"
	LogAttended      = "attended"
	LogNoShow        = "no_show"
	LogPointsAwarded = "points_awarded"
)

// EventParticipantLog is an append-only audit entry for a participant action.
type EventParticipantLog struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Points    int       `json:"points,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventStats aggregates the participant log of one event.
type EventStats struct {
	EventID        string         `json:"eventId"`
	Actions        map[string]int `json:"actions"`
	TotalPoints    int            `json:"totalPoints"`
	UniqueUsers    int            `json:"uniqueUsers"`
	AttendanceRate float64        `json:"attendanceRate"`
}
