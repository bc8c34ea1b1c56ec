package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/impact-be/internal/auth"
	"github.com/isdelr/impact-be/internal/database"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/isdelr/impact-be/internal/points"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	t      *testing.T
	db     *sql.DB
	router http.Handler
	users  *services.UserService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	auth.Configure("router-test-secret", time.Hour)

	db, err := database.New(filepath.Join(t.TempDir(), "impact.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	table := points.DefaultTable()
	activity := services.NewActivityService(db)
	users := services.NewUserService(db)
	logs := services.NewParticipantLogService(db)
	streaks := services.NewStreakService(db, 20, 7)
	backups, err := services.NewBackupService(db, activity, t.TempDir())
	require.NoError(t, err)

	router := NewRouter(Dependencies{
		Users:         users,
		Events:        services.NewEventService(db, table, 10, logs, streaks, activity, hub),
		Logs:          logs,
		Coins:         services.NewCoinService(db),
		Streaks:       streaks,
		Rewards:       services.NewRewardService(db, activity, hub),
		Donations:     services.NewDonationService(db, 10, activity, hub),
		Blogs:         services.NewBlogService(db),
		Leaderboard:   services.NewLeaderboardService(db),
		Activity:      activity,
		System:        services.NewSystemService(t.TempDir()),
		Backups:       backups,
		Hub:           hub,
		PointsTable:   table,
		PointsPerCoin: 10,
		CORSOrigins:   []string{"http://localhost:3000"},
	})
	return &testApp{t: t, db: db, router: router, users: users}
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// signup registers an account and returns its id and token.
func (a *testApp) signup(name, role string) (string, string) {
	a.t.Helper()
	email := name + "@example.org"
	rec := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(a.t, rec, &resp)
	return resp.User.ID, resp.Token
}

func eventBody() map[string]interface{} {
	return map[string]interface{}{
		"title":      "Beach cleanup",
		"category":   "environment",
		"difficulty": "medium",
		"location":   "North beach",
		"startTime":  "2026-03-01T10:00:00Z",
		"endTime":    "2026-03-01T12:00:00Z",
	}
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	_, ngoToken := app.signup("greenfund", models.RoleNGO)
	volunteerID, volunteerToken := app.signup("ada", models.RoleVolunteer)

	rec := app.do(http.MethodPost, "/api/v1/events", volunteerToken, eventBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/api/v1/events", ngoToken, eventBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event models.Event
	decode(t, rec, &event)
	base := "/api/v1/events/" + event.ID

	rec = app.do(http.MethodPost, base+"/register", volunteerToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = app.do(http.MethodPost, base+"/register", volunteerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(http.MethodPost, base+"/attendance", volunteerToken, map[string]interface{}{"userId": volunteerID, "attended": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.do(http.MethodPost, base+"/attendance", ngoToken, map[string]interface{}{"userId": volunteerID, "attended": true})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, base+"/points-preview", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview points.Breakdown
	decode(t, rec, &preview)
	assert.Equal(t, 75, preview.Total)

	rec = app.do(http.MethodPost, base+"/complete", ngoToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result services.CompletionResult
	decode(t, rec, &result)
	require.Len(t, result.Awards, 1)
	assert.Equal(t, volunteerID, result.Awards[0].UserID)
	assert.Equal(t, 7, result.Awards[0].Coins)

	rec = app.do(http.MethodPost, base+"/complete", ngoToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(http.MethodGet, "/api/v1/me/coins", volunteerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var coins map[string]int
	decode(t, rec, &coins)
	assert.Equal(t, 7, coins["coins"])

	rec = app.do(http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []models.LeaderboardEntry
	decode(t, rec, &board)
	require.NotEmpty(t, board)
	assert.Equal(t, volunteerID, board[0].UserID)
	assert.Equal(t, 75, board[0].Points)

	rec = app.do(http.MethodGet, "/api/v1/me/history", volunteerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.EventParticipantLog
	decode(t, rec, &history)
	assert.NotEmpty(t, history)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/v1/me/coins", "/api/v1/auth/me", "/api/v1/donations/mine", "/api/v1/admin/system"} {
		rec := app.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	_, token := app.signup("bob", models.RoleVolunteer)
	rec := app.do(http.MethodGet, "/api/v1/admin/system", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "x", "email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "password")

	rec = app.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "eve", "email": "eve@example.org", "password": "password123", "role": models.RoleAdmin,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRewardRedemptionOverHTTP(t *testing.T) {
	app := newTestApp(t)
	_, sponsorToken := app.signup("acme", models.RoleCorporate)
	volunteerID, volunteerToken := app.signup("ada", models.RoleVolunteer)

	rec := app.do(http.MethodPost, "/api/v1/rewards", volunteerToken, map[string]interface{}{
		"title": "Mug", "cost": 5, "stock": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/api/v1/rewards", sponsorToken, map[string]interface{}{
		"title": "Mug", "cost": 5, "stock": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reward models.Reward
	decode(t, rec, &reward)

	rec = app.do(http.MethodPost, "/api/v1/rewards/"+reward.ID+"/redeem", volunteerToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	_, err := services.NewCoinService(app.db).Credit(context.Background(), volunteerID, 12, models.CoinBonus, "grant", "")
	require.NoError(t, err)

	rec = app.do(http.MethodPost, "/api/v1/rewards/"+reward.ID+"/redeem", volunteerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(http.MethodPost, "/api/v1/rewards/"+reward.ID+"/redeem", volunteerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDonationsOverHTTP(t *testing.T) {
	app := newTestApp(t)
	ngoID, ngoToken := app.signup("greenfund", models.RoleNGO)
	donorID, donorToken := app.signup("ada", models.RoleVolunteer)

	rec := app.do(http.MethodPost, "/api/v1/donations", donorToken, map[string]interface{}{
		"ngoId": donorID, "amountCents": 1000,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = app.do(http.MethodPost, "/api/v1/donations", donorToken, map[string]interface{}{
		"ngoId": ngoID, "amountCents": 25000, "currency": "usd",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, "/api/v1/ngos/"+ngoID+"/donations", donorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodGet, "/api/v1/ngos/"+ngoID+"/donations", ngoToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Donations  []models.Donation `json:"donations"`
		TotalCents int64             `json:"totalCents"`
	}
	decode(t, rec, &body)
	assert.Len(t, body.Donations, 1)
	assert.EqualValues(t, 25000, body.TotalCents)

	rec = app.do(http.MethodGet, "/api/v1/me/coins", donorToken, nil)
	var coins map[string]int
	decode(t, rec, &coins)
	assert.Equal(t, 25, coins["coins"])
}

func TestBlogDraftVisibility(t *testing.T) {
	app := newTestApp(t)
	_, authorToken := app.signup("writer", models.RoleNGO)
	_, otherToken := app.signup("reader", models.RoleVolunteer)

	rec := app.do(http.MethodPost, "/api/v1/blogs", authorToken, map[string]interface{}{
		"title": "Our first cleanup", "content": "It went well.", "published": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var blog models.Blog
	decode(t, rec, &blog)
	assert.Equal(t, "our-first-cleanup", blog.Slug)

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/v1/blogs/"+blog.Slug, authorToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/v1/blogs/"+blog.Slug, otherToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/v1/blogs/"+blog.Slug, "", nil).Code)

	rec = app.do(http.MethodDelete, "/api/v1/blogs/"+blog.Slug, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/api/v1/blogs/"+blog.Slug+"/cover", authorToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminSetsRole(t *testing.T) {
	app := newTestApp(t)
	adminID, _ := app.signup("root", models.RoleVolunteer)
	_, err := app.users.SetRole(context.Background(), adminID, models.RoleAdmin)
	require.NoError(t, err)

	rec := app.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "root@example.org", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, rec, &login)

	userID, _ := app.signup("ada", models.RoleVolunteer)
	rec = app.do(http.MethodPut, "/api/v1/admin/users/"+userID+"/role", login.Token, map[string]string{"role": models.RoleNGO})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user models.User
	decode(t, rec, &user)
	assert.Equal(t, models.RoleNGO, user.Role)

	rec = app.do(http.MethodPut, "/api/v1/admin/users/"+userID+"/role", login.Token, map[string]string{"role": "wizard"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPointsCalculateEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/v1/points/calculate", "", map[string]interface{}{
		"category": "environment", "difficulty": "hard", "durationHours": 4,
		"verified": true, "registered": 20, "attended": 20,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Total int `json:"total"`
		Coins int `json:"coins"`
	}
	decode(t, rec, &resp)
	// 50 * 2 * 2 + 25 + 10
	assert.Equal(t, 235, resp.Total)
	assert.Equal(t, 23, resp.Coins)

	rec = app.do(http.MethodGet, "/api/v1/points/table", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var table points.Table
	decode(t, rec, &table)
	assert.Equal(t, points.DefaultTable().MaxPoints, table.MaxPoints)
}
