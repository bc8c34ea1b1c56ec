package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/impact-be/internal/api/handlers"
	"github.com/isdelr/impact-be/internal/auth"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/isdelr/impact-be/internal/points"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/storage"
	"github.com/isdelr/impact-be/internal/websocket"
)

// Dependencies bundles everything the router wires into handlers. Media
// may be nil when object storage is not configured.
type Dependencies struct {
	Users       services.UserServiceProvider
	Events      services.EventServiceProvider
	Logs        services.ParticipantLogServiceProvider
	Coins       services.CoinServiceProvider
	Streaks     services.StreakServiceProvider
	Rewards     services.RewardServiceProvider
	Donations   services.DonationServiceProvider
	Blogs       services.BlogServiceProvider
	Leaderboard services.LeaderboardServiceProvider
	Activity    services.ActivityServiceProvider
	System      services.SystemServiceProvider
	Backups     services.BackupServiceProvider

	Hub   *websocket.Hub
	Media storage.MediaStore

	PointsTable   points.Table
	PointsPerCoin int
	CORSOrigins   []string
	SecureCookies bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.SecureCookies)
	eventHandler := handlers.NewEventHandler(deps.Events, deps.Logs, deps.Media)
	pointsHandler := handlers.NewPointsHandler(deps.PointsTable, deps.PointsPerCoin)
	meHandler := handlers.NewMeHandler(deps.Coins, deps.Streaks, deps.Logs, deps.Leaderboard)
	rewardHandler := handlers.NewRewardHandler(deps.Rewards)
	donationHandler := handlers.NewDonationHandler(deps.Donations)
	blogHandler := handlers.NewBlogHandler(deps.Blogs, deps.Media)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.Leaderboard)
	activityHandler := handlers.NewActivityHandler(deps.Activity)
	adminHandler := handlers.NewAdminHandler(deps.System)
	backupHandler := handlers.NewBackupHandler(deps.Backups)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CORSOrigins)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.With(auth.OptionalJWTMiddleware()).Get("/ws", wsHandler.Serve)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
			r.With(auth.JWTMiddleware()).Get("/me", userHandler.GetMe)
		})

		r.Route("/points", func(r chi.Router) {
			r.Get("/table", pointsHandler.Table)
			r.Post("/calculate", pointsHandler.Calculate)
		})

		r.Get("/leaderboard", leaderboardHandler.Get)
		r.Get("/rewards", rewardHandler.GetAll)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.GetAll)
			r.With(auth.JWTMiddleware(), auth.RequireRole(models.RoleNGO)).Post("/", eventHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.Get)
				r.Get("/participants", eventHandler.Participants)
				r.Get("/points-preview", eventHandler.PreviewPoints)
				r.Get("/stats", eventHandler.Stats)

				r.Group(func(r chi.Router) {
					r.Use(auth.JWTMiddleware())
					r.Put("/", eventHandler.Update)
					r.Delete("/", eventHandler.Delete)
					r.Post("/cancel-event", eventHandler.CancelEvent)
					r.Post("/register", eventHandler.Register)
					r.Post("/cancel", eventHandler.CancelRegistration)
					r.Post("/attendance", eventHandler.MarkAttendance)
					r.Post("/complete", eventHandler.Complete)
					r.Get("/history", eventHandler.History)
					r.Post("/banner", eventHandler.UploadBanner)
					r.With(auth.RequireRole(models.RoleAdmin)).Post("/verify", eventHandler.Verify)
				})
			})
		})

		r.Route("/blogs", func(r chi.Router) {
			r.With(auth.OptionalJWTMiddleware()).Get("/", blogHandler.GetAll)
			r.With(auth.JWTMiddleware()).Post("/", blogHandler.Create)
			r.Route("/{slug}", func(r chi.Router) {
				r.With(auth.OptionalJWTMiddleware()).Get("/", blogHandler.Get)
				r.Group(func(r chi.Router) {
					r.Use(auth.JWTMiddleware())
					r.Put("/", blogHandler.Update)
					r.Delete("/", blogHandler.Delete)
					r.Post("/cover", blogHandler.UploadCover)
				})
			})
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware())

			r.Get("/users/{id}", userHandler.Get)
			r.Get("/activities", activityHandler.GetRecent)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", userHandler.GetMe)
				r.Put("/", userHandler.UpdateMe)
				r.Delete("/", userHandler.DeleteMe)
				r.Put("/password", userHandler.ChangePassword)
				r.Get("/coins", meHandler.Coins)
				r.Get("/coins/history", meHandler.CoinHistory)
				r.Post("/checkin", meHandler.CheckIn)
				r.Get("/history", meHandler.History)
				r.Get("/rank", meHandler.Rank)
			})

			r.With(auth.RequireRole(models.RoleCorporate)).Post("/rewards", rewardHandler.Create)
			r.Put("/rewards/{id}/active", rewardHandler.SetActive)
			r.Post("/rewards/{id}/redeem", rewardHandler.Redeem)

			r.Post("/donations", donationHandler.Create)
			r.Get("/donations/mine", donationHandler.Mine)
			r.Get("/ngos/{id}/donations", donationHandler.ForNGO)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))
				r.Get("/system", adminHandler.System)
				r.Put("/users/{id}/role", userHandler.SetRole)
				r.Route("/backups", func(r chi.Router) {
					r.Get("/", backupHandler.GetAll)
					r.Post("/", backupHandler.Create)
					r.Get("/{backupId}", backupHandler.Download)
					r.Delete("/{backupId}", backupHandler.Delete)
				})
			})
		})
	})

	return r
}
