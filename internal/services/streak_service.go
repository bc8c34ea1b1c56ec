package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/impact-be/internal/models"
)

const dayLayout = "2006-01-02"

// StreakStatus is the outcome of recording a day of activity.
type StreakStatus struct {
	UserID     string `json:"userId"`
	Current    int    `json:"current"`
	Longest    int    `json:"longest"`
	Extended   bool   `json:"extended"` // False when the day was already counted
	BonusCoins int    `json:"bonusCoins"`
}

// StreakServiceProvider defines the interface for daily streak bookkeeping.
type StreakServiceProvider interface {
	RecordActivity(ctx context.Context, userID string, day time.Time) (StreakStatus, error)
	CheckIn(ctx context.Context, userID string) (StreakStatus, error)
	ExpireStreaks(ctx context.Context, today time.Time) (int64, error)
}

// StreakService tracks consecutive days of activity and pays milestone bonuses.
type StreakService struct {
	db            *sql.DB
	bonusCoins    int
	milestoneDays int
	now           func() time.Time
}

// NewStreakService creates a new StreakService. Every milestoneDays days of
// streak grant bonusCoins.
func NewStreakService(db *sql.DB, bonusCoins, milestoneDays int) *StreakService {
	return &StreakService{
		db:            db,
		bonusCoins:    bonusCoins,
		milestoneDays: milestoneDays,
		now:           time.Now,
	}
}

// RecordActivity counts day towards the user's streak.
func (s *StreakService) RecordActivity(ctx context.Context, userID string, day time.Time) (StreakStatus, error) {
	var status StreakStatus
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		status, err = s.recordActivityTx(ctx, tx, userID, day)
		return err
	})
	return status, err
}

// CheckIn records activity for the current day.
func (s *StreakService) CheckIn(ctx context.Context, userID string) (StreakStatus, error) {
	return s.RecordActivity(ctx, userID, s.now())
}

func (s *StreakService) recordActivityTx(ctx context.Context, ex Execer, userID string, day time.Time) (StreakStatus, error) {
	var current, longest int
	var last sql.NullString
	err := ex.QueryRowContext(ctx,
		"SELECT current_streak, longest_streak, last_active_date FROM users WHERE id = ?", userID).
		Scan(&current, &longest, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StreakStatus{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return StreakStatus{}, err
	}

	dayStr := day.UTC().Format(dayLayout)
	next, extended := nextStreak(current, last.String, dayStr)
	status := StreakStatus{UserID: userID, Current: next, Longest: max(longest, next), Extended: extended}
	if !extended {
		return status, nil
	}

	_, err = ex.ExecContext(ctx,
		"UPDATE users SET current_streak = ?, longest_streak = ?, last_active_date = ? WHERE id = ?",
		status.Current, status.Longest, dayStr, userID)
	if err != nil {
		return StreakStatus{}, err
	}

	if s.bonusCoins > 0 && s.milestoneDays > 0 && status.Current%s.milestoneDays == 0 {
		reason := fmt.Sprintf("%d-day streak bonus", status.Current)
		if _, err := applyCoins(ctx, ex, userID, s.bonusCoins, models.CoinBonus, reason, ""); err != nil {
			return StreakStatus{}, err
		}
		status.BonusCoins = s.bonusCoins
	}
	return status, nil
}

// nextStreak computes the streak after activity on day, given the current
// streak and the last active day (both YYYY-MM-DD). extended is false when
// nothing changes.
func nextStreak(current int, last, day string) (next int, extended bool) {
	if last == "" {
		return 1, true
	}
	if day <= last {
		// Same day, or an older day already covered by the streak.
		return current, false
	}

	lastDay, err := time.Parse(dayLayout, last)
	if err != nil {
		return 1, true
	}
	if lastDay.AddDate(0, 0, 1).Format(dayLayout) == day {
		return current + 1, true
	}
	return 1, true
}

// ExpireStreaks resets the current streak of users whose last activity is
// older than the day before today. It returns the number of users reset.
func (s *StreakService) ExpireStreaks(ctx context.Context, today time.Time) (int64, error) {
	yesterday := today.UTC().AddDate(0, 0, -1).Format(dayLayout)
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET current_streak = 0
		WHERE current_streak > 0 AND (last_active_date IS NULL OR last_active_date < ?)`, yesterday)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
