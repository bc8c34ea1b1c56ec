package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/impact-be/internal/models"
)

// LeaderboardServiceProvider defines the interface for the points leaderboard.
type LeaderboardServiceProvider interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	RankOf(ctx context.Context, userID string) (models.LeaderboardEntry, error)
}

// LeaderboardService ranks volunteers by impact points. Ties on points are
// ordered by current streak, then name, and share the same rank.
type LeaderboardService struct {
	db *sql.DB
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(db *sql.DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// Top returns the first limit entries of the board.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, points, current_streak FROM users
		WHERE role = ?
		ORDER BY points DESC, current_streak DESC, name ASC, id ASC
		LIMIT ?`, models.RoleVolunteer, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Points, &e.CurrentStreak); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	assignRanks(entries)
	return entries, nil
}

// assignRanks numbers sorted entries with competition ranking (1, 1, 3).
// Entries tie when both points and current streak are equal.
func assignRanks(entries []models.LeaderboardEntry) {
	for i := range entries {
		if i > 0 && entries[i].Points == entries[i-1].Points && entries[i].CurrentStreak == entries[i-1].CurrentStreak {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// RankOf returns the entry of a single user.
func (s *LeaderboardService) RankOf(ctx context.Context, userID string) (models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	err := s.db.QueryRowContext(ctx, "SELECT id, name, points, current_streak FROM users WHERE id = ?", userID).
		Scan(&e.UserID, &e.Name, &e.Points, &e.CurrentStreak)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return e, err
	}

	var ahead int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE role = ? AND (points > ? OR (points = ? AND current_streak > ?))`,
		models.RoleVolunteer, e.Points, e.Points, e.CurrentStreak).Scan(&ahead)
	if err != nil {
		return e, err
	}
	e.Rank = ahead + 1
	return e, nil
}
