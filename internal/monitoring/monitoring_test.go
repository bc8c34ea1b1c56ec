package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/impact-be/internal/models"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeEvents struct {
	services.EventServiceProvider
	due       []string
	failing   map[string]bool
	completed []string
	startedAt time.Time
}

func (f *fakeEvents) StartDueEvents(_ context.Context, now time.Time) (int64, error) {
	f.startedAt = now
	return 1, nil
}

func (f *fakeEvents) DueForCompletion(context.Context, time.Time) ([]string, error) {
	return f.due, nil
}

func (f *fakeEvents) Complete(_ context.Context, actor *services.Actor, id string) (services.CompletionResult, error) {
	if actor != nil {
		return services.CompletionResult{}, errors.New("scheduler must complete as system")
	}
	if f.failing[id] {
		return services.CompletionResult{}, services.ErrEventCancelled
	}
	f.completed = append(f.completed, id)
	return services.CompletionResult{EventID: id}, nil
}

type fakeStreaks struct {
	services.StreakServiceProvider
	today time.Time
}

func (f *fakeStreaks) ExpireStreaks(_ context.Context, today time.Time) (int64, error) {
	f.today = today
	return 3, nil
}

type fakeActivity struct {
	services.ActivityServiceProvider
	mu    sync.Mutex
	types []string
}

func (f *fakeActivity) CreateActivity(_ context.Context, activityType, _, _ string, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, activityType)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeNotifier) Publish(topic, action string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, topic+"/"+action)
}

func TestSweepEvents(t *testing.T) {
	events := &fakeEvents{due: []string{"e1", "e2", "e3"}, failing: map[string]bool{"e2": true}}
	activity := &fakeActivity{}
	s, err := NewScheduler(events, &fakeStreaks{}, activity, nil, 0)
	require.NoError(t, err)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	err = s.SweepEvents(context.Background())
	assert.ErrorIs(t, err, services.ErrEventCancelled)
	assert.Equal(t, []string{"e1", "e3"}, events.completed)
	assert.Equal(t, fixed, events.startedAt)
	assert.Equal(t, []string{"schedule.complete.fail"}, activity.types)
}

func TestExpireStreaksJob(t *testing.T) {
	streaks := &fakeStreaks{}
	s, err := NewScheduler(&fakeEvents{}, streaks, nil, nil, 0)
	require.NoError(t, err)
	fixed := time.Date(2026, 6, 2, 0, 5, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.ExpireStreaks(context.Background()))
	assert.Equal(t, fixed, streaks.today)
}

func TestSchedulerRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, err := NewScheduler(&fakeEvents{}, &fakeStreaks{}, nil, &fakeBackups{}, 7)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeBackups struct {
	services.BackupServiceProvider
	names []string
	keep  int
	fail  bool
}

func (f *fakeBackups) CreateBackup(_ context.Context, name string) (models.Backup, error) {
	if f.fail {
		return models.Backup{}, errors.New("disk full")
	}
	f.names = append(f.names, name)
	return models.Backup{ID: "b1", Name: name}, nil
}

func (f *fakeBackups) Prune(_ context.Context, keep int) (int, error) {
	f.keep = keep
	return 1, nil
}

func TestBackupDatabaseJob(t *testing.T) {
	backups := &fakeBackups{}
	activity := &fakeActivity{}
	s, err := NewScheduler(&fakeEvents{}, &fakeStreaks{}, activity, backups, 7)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 6, 3, 2, 30, 0, 0, time.UTC) }

	require.NoError(t, s.BackupDatabase(context.Background()))
	assert.Equal(t, []string{"nightly 2026-06-03"}, backups.names)
	assert.Equal(t, 7, backups.keep)

	backups.fail = true
	assert.Error(t, s.BackupDatabase(context.Background()))
	assert.Equal(t, []string{"schedule.backup.fail"}, activity.types)
}

type fakeBoard struct {
	services.LeaderboardServiceProvider
	entries []models.LeaderboardEntry
}

func (f *fakeBoard) Top(context.Context, int) ([]models.LeaderboardEntry, error) {
	return append([]models.LeaderboardEntry(nil), f.entries...), nil
}

func TestLeaderboardPublishesOnlyOnChange(t *testing.T) {
	board := &fakeBoard{entries: []models.LeaderboardEntry{{Rank: 1, UserID: "a", Points: 10}}}
	notifier := &fakeNotifier{}
	b := NewLeaderboardBroadcaster(board, notifier, time.Minute, 10)
	ctx := context.Background()

	sent, err := b.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, sent)

	board.entries[0].Points = 20
	sent, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, sent)

	assert.Equal(t, []string{"leaderboard/leaderboard_updated", "leaderboard/leaderboard_updated"}, notifier.actions)
}

func TestLeaderboardBroadcasterStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewLeaderboardBroadcaster(&fakeBoard{}, &fakeNotifier{}, 5*time.Millisecond, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, b.Run(ctx))
}

type fakeSystem struct {
	stats services.SystemStats
}

func (f *fakeSystem) Stats(context.Context) (services.SystemStats, error) {
	return f.stats, nil
}

func TestHighCPUAlertCooldown(t *testing.T) {
	system := &fakeSystem{stats: services.SystemStats{CPUPercent: 95, Hostname: "box"}}
	activity := &fakeActivity{}
	notifier := &fakeNotifier{}
	su := NewStatUpdater(system, activity, notifier, time.Minute)
	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	su.now = func() time.Time { return clock }
	ctx := context.Background()

	su.update(ctx)
	su.update(ctx)
	clock = clock.Add(alertCooldown)
	su.update(ctx)

	assert.Equal(t, []string{"system.alert.cpu", "system.alert.cpu"}, activity.types)
	assert.Len(t, notifier.actions, 3)

	system.stats.CPUPercent = 20
	assert.False(t, su.checkAndAlertForHighCPU(ctx, system.stats))
}
