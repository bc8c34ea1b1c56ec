package points

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table holds every tunable constant used by Calculate.
type Table struct {
	CategoryBase         map[string]float64 `yaml:"category_base" json:"categoryBase"`
	DifficultyMultiplier map[string]float64 `yaml:"difficulty_multiplier" json:"difficultyMultiplier"`
	DurationBaselineHrs  float64            `yaml:"duration_baseline_hours" json:"durationBaselineHours"`
	DurationMinFactor    float64            `yaml:"duration_min_factor" json:"durationMinFactor"`
	DurationMaxFactor    float64            `yaml:"duration_max_factor" json:"durationMaxFactor"`
	VerificationBonus    float64            `yaml:"verification_bonus" json:"verificationBonus"`
	ParticipantStep      int                `yaml:"participant_step" json:"participantStep"`
	ParticipantStepBonus float64            `yaml:"participant_step_bonus" json:"participantStepBonus"`
	ParticipantBonusCap  float64            `yaml:"participant_bonus_cap" json:"participantBonusCap"`
	AttendanceWeight     float64            `yaml:"attendance_weight" json:"attendanceWeight"`
	AttendanceMinFactor  float64            `yaml:"attendance_min_factor" json:"attendanceMinFactor"`
	VirtualFactor        float64            `yaml:"virtual_factor" json:"virtualFactor"`
	MinPoints            int                `yaml:"min_points" json:"minPoints"`
	MaxPoints            int                `yaml:"max_points" json:"maxPoints"`
}

// Known categories and difficulties.
const (
	CategoryEnvironment    = "environment"
	CategoryEducation      = "education"
	CategoryHealth         = "health"
	CategoryCommunity      = "community"
	CategoryAnimalWelfare  = "animal_welfare"
	CategoryDisasterRelief = "disaster_relief"
	CategoryOther          = "other"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultTable returns the built-in scoring table.
func DefaultTable() Table {
	return Table{
		CategoryBase: map[string]float64{
			CategoryEnvironment:    50,
			CategoryEducation:      40,
			CategoryHealth:         60,
			CategoryCommunity:      30,
			CategoryAnimalWelfare:  40,
			CategoryDisasterRelief: 80,
			CategoryOther:          25,
		},
		DifficultyMultiplier: map[string]float64{
			DifficultyEasy:   1.0,
			DifficultyMedium: 1.5,
			DifficultyHard:   2.0,
		},
		DurationBaselineHrs:  2,
		DurationMinFactor:    0.5,
		DurationMaxFactor:    3.0,
		VerificationBonus:    25,
		ParticipantStep:      10,
		ParticipantStepBonus: 5,
		ParticipantBonusCap:  50,
		AttendanceWeight:     0.5,
		AttendanceMinFactor:  0.5,
		VirtualFactor:        0.8,
		MinPoints:            0,
		MaxPoints:            1000,
	}
}

// LoadTable reads a YAML file on top of DefaultTable. Keys present in the
// file always apply, including zeros; absent keys keep their defaults and
// map entries are merged.
func LoadTable(path string) (Table, error) {
	t := DefaultTable()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read points table: %w", err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse points table %s: %w", path, err)
	}
	t.fillDefaults(DefaultTable())

	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("points table %s: %w", path, err)
	}
	return t, nil
}

// fillDefaults restores map entries the file did not mention.
func (t *Table) fillDefaults(d Table) {
	if t.CategoryBase == nil {
		t.CategoryBase = map[string]float64{}
	}
	for k, v := range d.CategoryBase {
		if _, ok := t.CategoryBase[k]; !ok {
			t.CategoryBase[k] = v
		}
	}
	if t.DifficultyMultiplier == nil {
		t.DifficultyMultiplier = map[string]float64{}
	}
	for k, v := range d.DifficultyMultiplier {
		if _, ok := t.DifficultyMultiplier[k]; !ok {
			t.DifficultyMultiplier[k] = v
		}
	}
}

// Validate rejects tables that would produce nonsensical scores.
func (t Table) Validate() error {
	for k, v := range t.CategoryBase {
		if v < 0 {
			return fmt.Errorf("category %q has negative base points", k)
		}
	}
	if _, ok := t.CategoryBase[CategoryOther]; !ok {
		return fmt.Errorf("category %q must be defined", CategoryOther)
	}
	for k, v := range t.DifficultyMultiplier {
		if v <= 0 {
			return fmt.Errorf("difficulty %q must have a positive multiplier", k)
		}
	}
	if t.DurationBaselineHrs <= 0 {
		return fmt.Errorf("duration baseline must be positive")
	}
	scalars := []struct {
		name  string
		value float64
	}{
		{"duration min factor", t.DurationMinFactor},
		{"verification bonus", t.VerificationBonus},
		{"participant step bonus", t.ParticipantStepBonus},
		{"participant bonus cap", t.ParticipantBonusCap},
		{"attendance min factor", t.AttendanceMinFactor},
	}
	for _, sc := range scalars {
		if sc.value < 0 {
			return fmt.Errorf("%s must not be negative", sc.name)
		}
	}
	if t.DurationMinFactor > t.DurationMaxFactor {
		return fmt.Errorf("duration min factor %.2f exceeds max %.2f", t.DurationMinFactor, t.DurationMaxFactor)
	}
	if t.ParticipantStep <= 0 {
		return fmt.Errorf("participant step must be positive")
	}
	if t.AttendanceMinFactor > 1 || t.AttendanceWeight < 0 {
		return fmt.Errorf("attendance factor settings out of range")
	}
	if t.VirtualFactor <= 0 || t.VirtualFactor > 1 {
		return fmt.Errorf("virtual factor must be in (0, 1]")
	}
	if t.MinPoints < 0 || t.MinPoints > t.MaxPoints {
		return fmt.Errorf("points range [%d, %d] is invalid", t.MinPoints, t.MaxPoints)
	}
	return nil
}
