package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/impact-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AdminTopic carries updates for the admin dashboard.
const AdminTopic = "admin"

const (
	highCPUThreshold = 90.0
	alertCooldown    = 15 * time.Minute
)

// StatUpdater periodically samples host statistics, pushes them to the admin
// dashboard and raises an activity alert when CPU stays high.
type StatUpdater struct {
	system   services.SystemServiceProvider
	activity services.ActivityServiceProvider
	notifier services.Notifier
	interval time.Duration
	lastCPU  time.Time
	now      func() time.Time
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(system services.SystemServiceProvider, activity services.ActivityServiceProvider, notifier services.Notifier, interval time.Duration) *StatUpdater {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StatUpdater{
		system:   system,
		activity: activity,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the periodic updates and returns when ctx is cancelled.
func (su *StatUpdater) Run(ctx context.Context) error {
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping background stat updater.")
			return nil
		case <-ticker.C:
			su.update(ctx)
		}
	}
}

func (su *StatUpdater) update(ctx context.Context) {
	stats, err := su.system.Stats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: could not read host stats")
		return
	}
	su.notifier.Publish(AdminTopic, "system_stats", stats)
	su.checkAndAlertForHighCPU(ctx, stats)
}

func (su *StatUpdater) checkAndAlertForHighCPU(ctx context.Context, stats services.SystemStats) bool {
	if stats.CPUPercent <= highCPUThreshold {
		return false
	}
	now := su.now()
	if !su.lastCPU.IsZero() && now.Sub(su.lastCPU) < alertCooldown {
		return false
	}
	su.lastCPU = now

	msg := fmt.Sprintf("High CPU usage (%.1f%%) detected on host '%s'.", stats.CPUPercent, stats.Hostname)
	if err := su.activity.CreateActivity(ctx, "system.alert.cpu", "warn", msg, nil); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: failed to record CPU alert")
	}
	return true
}
