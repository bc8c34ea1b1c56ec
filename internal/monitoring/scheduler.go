package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/impact-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Cron specs, evaluated in UTC.
const (
	StreakExpirySpec = "5 0 * * *"
	EventSweepSpec   = "*/15 * * * *"
	BackupSpec       = "30 2 * * *"
)

// Scheduler runs the periodic maintenance jobs: expiring broken streaks,
// moving events through their lifecycle and nightly database backups.
type Scheduler struct {
	cron     *cron.Cron
	events   services.EventServiceProvider
	streaks  services.StreakServiceProvider
	activity services.ActivityServiceProvider
	backups  services.BackupServiceProvider
	keep     int
	now      func() time.Time
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("Scheduler: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("Scheduler: " + msg)
}

// NewScheduler creates a new scheduler with its jobs registered. A nil
// backups disables the nightly backup; keep is the number of backups retained.
func NewScheduler(events services.EventServiceProvider, streaks services.StreakServiceProvider,
	activity services.ActivityServiceProvider, backups services.BackupServiceProvider, keep int) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
		events:   events,
		streaks:  streaks,
		activity: activity,
		backups:  backups,
		keep:     keep,
		now:      time.Now,
	}

	jobs := map[string]func(context.Context){
		StreakExpirySpec: func(ctx context.Context) { _ = s.ExpireStreaks(ctx) },
		EventSweepSpec:   func(ctx context.Context) { _ = s.SweepEvents(ctx) },
	}
	if backups != nil {
		jobs[BackupSpec] = func(ctx context.Context) { _ = s.BackupDatabase(ctx) }
	}
	for spec, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			job(ctx)
		}); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
		}
	}
	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled and running
// jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Msg("Starting background scheduler...")

	// Catch up on anything missed while the process was down.
	if err := s.SweepEvents(ctx); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("Scheduler: initial event sweep failed")
	}

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
	return nil
}

// ExpireStreaks resets streaks that were not extended yesterday.
func (s *Scheduler) ExpireStreaks(ctx context.Context) error {
	n, err := s.streaks.ExpireStreaks(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to expire streaks")
		return err
	}
	if n > 0 {
		log.Info().Int64("users", n).Msg("Scheduler: expired streaks")
	}
	return nil
}

// SweepEvents starts events whose start time passed and completes those
// whose end time passed, awarding their points.
func (s *Scheduler) SweepEvents(ctx context.Context) error {
	now := s.now()
	started, err := s.events.StartDueEvents(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to start due events")
		return err
	}
	if started > 0 {
		log.Info().Int64("events", started).Msg("Scheduler: events started")
	}

	due, err := s.events.DueForCompletion(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to list events due for completion")
		return err
	}

	var firstErr error
	for _, id := range due {
		result, err := s.events.Complete(ctx, nil, id)
		if err != nil {
			log.Error().Err(err).Str("event_id", id).Msg("Scheduler: failed to complete event")
			s.record(ctx, "schedule.complete.fail", "error", fmt.Sprintf("Automatic completion failed: %v", err), id)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Str("event_id", id).Int("points", result.Breakdown.Total).Int("awarded", len(result.Awards)).
			Msg("Scheduler: event completed")
	}
	return firstErr
}

// BackupDatabase takes a nightly snapshot and prunes old ones.
func (s *Scheduler) BackupDatabase(ctx context.Context) error {
	backup, err := s.backups.CreateBackup(ctx, "nightly "+s.now().UTC().Format("2006-01-02"))
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: nightly backup failed")
		s.record(ctx, "schedule.backup.fail", "error", fmt.Sprintf("Nightly backup failed: %v", err), "")
		return err
	}
	log.Info().Str("backup_id", backup.ID).Int64("size", backup.Size).Msg("Scheduler: backup created")

	removed, err := s.backups.Prune(ctx, s.keep)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune backups")
		return err
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Scheduler: old backups pruned")
	}
	return nil
}

func (s *Scheduler) record(ctx context.Context, activityType, level, msg, eventID string) {
	if s.activity == nil {
		return
	}
	var ref *string
	if eventID != "" {
		ref = &eventID
	}
	if err := s.activity.CreateActivity(ctx, activityType, level, msg, ref); err != nil {
		log.Warn().Err(err).Msg("Scheduler: failed to record activity")
	}
}
