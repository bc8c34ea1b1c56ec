package monitoring

import (
	"context"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/rs/zerolog/log"
)

// LeaderboardTopic carries leaderboard snapshots.
const LeaderboardTopic = "leaderboard"

// LeaderboardBroadcaster pushes the top of the leaderboard to websocket
// clients whenever it changes.
type LeaderboardBroadcaster struct {
	board    services.LeaderboardServiceProvider
	notifier services.Notifier
	interval time.Duration
	size     int
	last     []models.LeaderboardEntry
}

// NewLeaderboardBroadcaster creates a broadcaster polling every interval.
func NewLeaderboardBroadcaster(board services.LeaderboardServiceProvider, notifier services.Notifier, interval time.Duration, size int) *LeaderboardBroadcaster {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &LeaderboardBroadcaster{board: board, notifier: notifier, interval: interval, size: size}
}

// Run polls the leaderboard until ctx is cancelled.
func (b *LeaderboardBroadcaster) Run(ctx context.Context) error {
	log.Info().Dur("interval", b.interval).Msg("Starting leaderboard broadcaster...")
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping leaderboard broadcaster.")
			return nil
		case <-ticker.C:
			if _, err := b.Tick(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Leaderboard broadcaster: failed to read board")
			}
		}
	}
}

// Tick reads the board and publishes it if it differs from the last one
// sent. It reports whether a message was published.
func (b *LeaderboardBroadcaster) Tick(ctx context.Context) (bool, error) {
	entries, err := b.board.Top(ctx, b.size)
	if err != nil {
		return false, err
	}
	if b.last != nil && cmp.Equal(b.last, entries) {
		return false, nil
	}
	b.last = entries
	b.notifier.Publish(LeaderboardTopic, "leaderboard_updated", entries)
	return true, nil
}
