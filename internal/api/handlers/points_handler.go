package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/impact-be/internal/points"
)

// PointsHandler exposes the impact-points formula.
type PointsHandler struct {
	table         points.Table
	pointsPerCoin int
}

// NewPointsHandler creates a new PointsHandler.
func NewPointsHandler(table points.Table, pointsPerCoin int) *PointsHandler {
	return &PointsHandler{table: table, pointsPerCoin: pointsPerCoin}
}

// CalculatePayload describes a hypothetical event. Either durationHours or
// both startTime and endTime must be given.
type CalculatePayload struct {
	Category      string     `json:"category" validate:"required"`
	Difficulty    string     `json:"difficulty" validate:"required,oneof=easy medium hard"`
	DurationHours float64    `json:"durationHours" validate:"gte=0,lte=168"`
	StartTime     *time.Time `json:"startTime" validate:"required_with=EndTime"`
	EndTime       *time.Time `json:"endTime" validate:"required_with=StartTime"`
	BasePoints    int        `json:"basePoints" validate:"gte=0,lte=1000"`
	Verified      bool       `json:"verified"`
	Registered    int        `json:"registered" validate:"gte=0"`
	Attended      int        `json:"attended" validate:"gte=0,ltefield=Registered"`
	Virtual       bool       `json:"virtual"`
}

// CalculateResponse is the breakdown plus the coins each attendee would get.
type CalculateResponse struct {
	points.Breakdown
	Coins int `json:"coins"`
}

// Calculate scores a hypothetical event without touching storage.
func (h *PointsHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var payload CalculatePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	duration := payload.DurationHours
	if payload.StartTime != nil && payload.EndTime != nil {
		duration = points.DurationHours(*payload.StartTime, *payload.EndTime)
	}

	breakdown := points.Calculate(points.Input{
		Category:      payload.Category,
		Difficulty:    payload.Difficulty,
		DurationHours: duration,
		BasePoints:    payload.BasePoints,
		Verified:      payload.Verified,
		Registered:    payload.Registered,
		Attended:      payload.Attended,
		Virtual:       payload.Virtual,
	}, h.table)

	writeJSON(w, http.StatusOK, CalculateResponse{
		Breakdown: breakdown,
		Coins:     points.CoinsFor(breakdown.Total, h.pointsPerCoin),
	})
}

// Table returns the active points table.
func (h *PointsHandler) Table(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.table)
}
