package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/isdelr/impact-be/internal/points"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPointsCommand(t *testing.T) {
	t.Setenv("POINTS_TABLE_PATH", "")
	t.Setenv("COINS_PER_POINTS", "10")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"points", "--category", "environment", "--difficulty", "medium", "--hours", "2"})
	require.NoError(t, rootCmd.Execute())

	var got struct {
		Breakdown points.Breakdown `json:"breakdown"`
		Coins     int              `json:"coins"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 75, got.Breakdown.Total)
	assert.Equal(t, 7, got.Coins)
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", map[string]int{"total": 56}))

	var decoded map[string]int
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 56, decoded["total"])

	assert.Error(t, writeOutput(&buf, "xml", nil))
}
