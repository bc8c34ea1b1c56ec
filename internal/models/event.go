package models

import "time"

// Event lifecycle states.
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Event is a volunteering opportunity organised by an NGO.
type Event struct {
	ID              string    `json:"id"`
	OrganizerID     string    `json:"organizerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category"`
	Difficulty      string    `json:"difficulty"`
	Location        string    `json:"location,omitempty"`
	IsVirtual       bool      `json:"isVirtual"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	MaxParticipants int       `json:"maxParticipants"` // 0 means unlimited
	BasePoints      int       `json:"basePoints,omitempty"`
	Status          string    `json:"status"`
	Verified        bool      `json:"verified"`
	BannerURL       string    `json:"bannerUrl,omitempty"`
	PointsAwarded   int       `json:"pointsAwarded"`
	Participants    int       `json:"participants"` // Active registrations, computed
	CreatedAt       time.Time `json:"createdAt"`
}

// Participation states of a volunteer in an event.
const (
	ParticipantRegistered = "registered"
	ParticipantCancelled  = "cancelled"
	ParticipantAttended   = "attended"
	ParticipantNoShow     = "no_show"
)

// EventParticipant is the current participation state of a user in an event.
type EventParticipant struct {
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName,omitempty"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
