// Package points implements the impact-points formula used to reward
// volunteers for attending events.
package points

import (
	"math"
	"strings"
	"time"
)

// Input describes an event at the moment it is scored.
type Input struct {
	Category      string  `json:"category"`
	Difficulty    string  `json:"difficulty"`
	DurationHours float64 `json:"durationHours"`
	BasePoints    int     `json:"basePoints,omitempty"` // Overrides the category base when positive
	Verified      bool    `json:"verified"`
	Registered    int     `json:"registered"`
	Attended      int     `json:"attended"`
	Virtual       bool    `json:"virtual"`
}

// Breakdown is the result of Calculate with every intermediate factor exposed.
type Breakdown struct {
	Base              float64 `json:"base"`
	DifficultyFactor  float64 `json:"difficultyFactor"`
	DurationFactor    float64 `json:"durationFactor"`
	VerificationBonus float64 `json:"verificationBonus"`
	ParticipantBonus  float64 `json:"participantBonus"`
	AttendanceRate    float64 `json:"attendanceRate"`
	AttendanceFactor  float64 `json:"attendanceFactor"`
	VirtualFactor     float64 `json:"virtualFactor"`
	Total             int     `json:"total"`
}

// Calculate scores an event for each attending volunteer.
func Calculate(in Input, t Table) Breakdown {
	var b Breakdown

	b.Base = baseFor(in, t)
	b.DifficultyFactor = difficultyFor(in.Difficulty, t)
	b.DurationFactor = clamp(in.DurationHours/t.DurationBaselineHrs, t.DurationMinFactor, t.DurationMaxFactor)

	if in.Verified {
		b.VerificationBonus = t.VerificationBonus
	}

	attended := max(in.Attended, 0)
	steps := attended / t.ParticipantStep
	b.ParticipantBonus = math.Min(float64(steps)*t.ParticipantStepBonus, t.ParticipantBonusCap)

	b.AttendanceRate = 1
	if in.Registered > 0 {
		b.AttendanceRate = clamp(float64(attended)/float64(in.Registered), 0, 1)
	}
	b.AttendanceFactor = clamp(1-(1-b.AttendanceRate)*t.AttendanceWeight, t.AttendanceMinFactor, 1)

	b.VirtualFactor = 1
	if in.Virtual {
		b.VirtualFactor = t.VirtualFactor
	}

	raw := (b.Base*b.DifficultyFactor*b.DurationFactor + b.VerificationBonus + b.ParticipantBonus) *
		b.AttendanceFactor * b.VirtualFactor

	total := int(math.Round(raw))
	b.Total = min(max(total, t.MinPoints), t.MaxPoints)
	return b
}

// DurationHours returns the length of the interval in hours, or zero when
// end does not follow start.
func DurationHours(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// CoinsFor converts awarded points into coins at pointsPerCoin points per coin.
func CoinsFor(points, pointsPerCoin int) int {
	if points <= 0 || pointsPerCoin <= 0 {
		return 0
	}
	return points / pointsPerCoin
}

// NormalizeCategory lowercases the category and maps unknown values to "other".
func NormalizeCategory(category string, t Table) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if _, ok := t.CategoryBase[c]; ok {
		return c
	}
	return CategoryOther
}

func baseFor(in Input, t Table) float64 {
	if in.BasePoints > 0 {
		return float64(in.BasePoints)
	}
	return t.CategoryBase[NormalizeCategory(in.Category, t)]
}

func difficultyFor(difficulty string, t Table) float64 {
	if m, ok := t.DifficultyMultiplier[strings.ToLower(strings.TrimSpace(difficulty))]; ok {
		return m
	}
	return 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
