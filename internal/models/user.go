package models

import "time"

// Roles a user account can hold.
const (
	RoleVolunteer = "volunteer"
	RoleNGO       = "ngo"
	RoleCorporate = "corporate"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleVolunteer, RoleNGO, RoleCorporate, RoleAdmin:
		return true
	}
	return false
}

// User represents a user account in the system.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // Never expose this to the client
	Role           string    `json:"role"`
	Points         int       `json:"points"`
	Coins          int       `json:"coins"`
	CurrentStreak  int       `json:"currentStreak"`
	LongestStreak  int       `json:"longestStreak"`
	LastActiveDate string    `json:"lastActiveDate,omitempty"` // YYYY-MM-DD
	CreatedAt      time.Time `json:"createdAt"`
}

// LeaderboardEntry is a ranked row of the points leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
	CurrentStreak int    `json:"currentStreak"`
}
