package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/isdelr/impact-be/internal/points"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	pointsInput  points.Input
	pointsFormat string
	printTable   bool
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Preview the impact points of an event",
	Long: `Scores an event with the configured points table without touching
the database.

Example:
  impact points --category environment --difficulty hard --hours 4 --registered 20 --attended 18`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := points.LoadTable(cfg.PointsTablePath)
		if err != nil {
			return fmt.Errorf("load points table: %w", err)
		}
		if printTable {
			return writeOutput(cmd.OutOrStdout(), pointsFormat, table)
		}

		b := points.Calculate(pointsInput, table)
		return writeOutput(cmd.OutOrStdout(), pointsFormat, map[string]interface{}{
			"breakdown": b,
			"coins":     points.CoinsFor(b.Total, cfg.PointsPerCoin),
		})
	},
}

func writeOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}

func init() {
	f := pointsCmd.Flags()
	f.StringVar(&pointsInput.Category, "category", points.CategoryOther, "Event category")
	f.StringVar(&pointsInput.Difficulty, "difficulty", points.DifficultyMedium, "easy, medium or hard")
	f.Float64Var(&pointsInput.DurationHours, "hours", 2, "Event duration in hours")
	f.IntVar(&pointsInput.BasePoints, "base", 0, "Override the category base points")
	f.BoolVar(&pointsInput.Verified, "verified", false, "Event is verified")
	f.IntVar(&pointsInput.Registered, "registered", 0, "Registered participants")
	f.IntVar(&pointsInput.Attended, "attended", 0, "Participants who attended")
	f.BoolVar(&pointsInput.Virtual, "virtual", false, "Event is virtual")
	f.StringVarP(&pointsFormat, "output", "o", "json", "Output format: json or yaml")
	f.BoolVar(&printTable, "table", false, "Print the effective points table instead")
}
