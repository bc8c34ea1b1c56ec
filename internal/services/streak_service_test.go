package services

import (
	"context"
	"testing"
	"time"

	"github.com/isdelr/impact-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name         string
		current      int
		last, day    string
		want         int
		wantExtended bool
	}{
		{"first activity", 0, "", "2026-03-01", 1, true},
		{"same day", 3, "2026-03-01", "2026-03-01", 3, false},
		{"older day", 3, "2026-03-05", "2026-03-01", 3, false},
		{"next day", 3, "2026-03-01", "2026-03-02", 4, true},
		{"across month end", 5, "2026-02-28", "2026-03-01", 6, true},
		{"gap resets", 9, "2026-03-01", "2026-03-03", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, extended := nextStreak(tt.current, tt.last, tt.day)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantExtended, extended)
		})
	}
}

func TestRecordActivityPaysMilestones(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewStreakService(db, 20, 7)
	user := createUser(t, db, "linus", models.RoleVolunteer)

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	var status StreakStatus
	var err error
	for i := 0; i < 7; i++ {
		status, err = svc.RecordActivity(ctx, user.ID, start.AddDate(0, 0, i))
		require.NoError(t, err)
		assert.True(t, status.Extended)
	}
	assert.Equal(t, 7, status.Current)
	assert.Equal(t, 7, status.Longest)
	assert.Equal(t, 20, status.BonusCoins)

	// Second activity on the same day changes nothing.
	again, err := svc.RecordActivity(ctx, user.ID, start.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.False(t, again.Extended)
	assert.Zero(t, again.BonusCoins)

	coins, err := NewCoinService(db).Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, coins)

	// A gap resets the current streak but keeps the longest.
	status, err = svc.RecordActivity(ctx, user.ID, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, status.Current)
	assert.Equal(t, 7, status.Longest)
}

func TestCheckInUsesClock(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewStreakService(db, 20, 7)
	svc.now = func() time.Time { return time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC) }
	user := createUser(t, db, "ken", models.RoleVolunteer)

	status, err := svc.CheckIn(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Current)

	got, err := NewUserService(db).GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-02", got.LastActiveDate)

	_, err = svc.CheckIn(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireStreaks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewStreakService(db, 0, 7)
	active := createUser(t, db, "active", models.RoleVolunteer)
	stale := createUser(t, db, "stale", models.RoleVolunteer)

	today := time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)
	_, err := svc.RecordActivity(ctx, active.ID, today.AddDate(0, 0, -1))
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, stale.ID, today.AddDate(0, 0, -2))
	require.NoError(t, err)

	n, err := svc.ExpireStreaks(ctx, today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	users := NewUserService(db)
	got, err := users.GetUserByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStreak)
	got, err = users.GetUserByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentStreak)
	assert.Equal(t, 1, got.LongestStreak)
}
