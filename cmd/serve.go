package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/isdelr/impact-be/internal/api"
	"github.com/isdelr/impact-be/internal/auth"
	"github.com/isdelr/impact-be/internal/database"
	"github.com/isdelr/impact-be/internal/monitoring"
	"github.com/isdelr/impact-be/internal/points"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/storage"
	"github.com/isdelr/impact-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket hub and background jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("apply database migrations: %w", err)
	}

	auth.Configure(cfg.JWTSecret, cfg.JWTTTL)

	table, err := points.LoadTable(cfg.PointsTablePath)
	if err != nil {
		return fmt.Errorf("load points table: %w", err)
	}

	var media storage.MediaStore
	if cfg.Storage.Enabled() {
		store, err := storage.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("initialize media storage: %w", err)
		}
		media = store
	} else {
		log.Warn().Msg("MINIO_ENDPOINT not set, image uploads are disabled")
	}

	hub := websocket.NewHub()

	// Set up services
	activityService := services.NewActivityService(db)
	userService := services.NewUserService(db)
	coinService := services.NewCoinService(db)
	logService := services.NewParticipantLogService(db)
	streakService := services.NewStreakService(db, cfg.StreakBonusCoins, cfg.StreakMilestoneDays)
	eventService := services.NewEventService(db, table, cfg.PointsPerCoin, logService, streakService, activityService, hub)
	rewardService := services.NewRewardService(db, activityService, hub)
	donationService := services.NewDonationService(db, cfg.DonationCoinsDivisor, activityService, hub)
	blogService := services.NewBlogService(db)
	leaderboardService := services.NewLeaderboardService(db)
	systemService := services.NewSystemService(filepath.Dir(cfg.DatabasePath))
	backupService, err := services.NewBackupService(db, activityService, cfg.BackupPath)
	if err != nil {
		return err
	}

	scheduler, err := monitoring.NewScheduler(eventService, streakService, activityService, backupService, cfg.BackupKeep)
	if err != nil {
		return err
	}
	statUpdater := monitoring.NewStatUpdater(systemService, activityService, hub, 0)
	broadcaster := monitoring.NewLeaderboardBroadcaster(leaderboardService, hub, cfg.LeaderboardInterval, cfg.LeaderboardSize)

	router := api.NewRouter(api.Dependencies{
		Users:         userService,
		Events:        eventService,
		Logs:          logService,
		Coins:         coinService,
		Streaks:       streakService,
		Rewards:       rewardService,
		Donations:     donationService,
		Blogs:         blogService,
		Leaderboard:   leaderboardService,
		Activity:      activityService,
		System:        systemService,
		Backups:       backupService,
		Hub:           hub,
		Media:         media,
		PointsTable:   table,
		PointsPerCoin: cfg.PointsPerCoin,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return statUpdater.Run(gctx) })
	g.Go(func() error { return broadcaster.Run(gctx) })
	g.Go(func() error {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exiting")
	return nil
}
