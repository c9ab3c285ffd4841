package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LdDl/bbox-stabilization/stabilization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTuning(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultTuningIsValid(t *testing.T) {
	tuning := DefaultTuning()
	require.NoError(t, tuning.Validate())

	cfg, err := tuning.ToStabilization()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Enable)
	assert.Equal(t, 8, cfg.HistoryDepth)
	assert.Equal(t, stabilization.AverageParams{HistoryLength: 4, MovingHistoryLength: 2}, cfg.AttributeConfigs[stabilization.PositionIndex].Filter)
	assert.Equal(t, stabilization.ModeWithinThreshold, cfg.AttributeConfigs[stabilization.SizeIndex].Mode)
	assert.Equal(t, stabilization.MedianParams{HistoryLength: 5}, cfg.AttributeConfigs[stabilization.SizeIndex].Filter)
	assert.False(t, cfg.AttributeConfigs[stabilization.UnreservedIndex].Enable)
}

func TestLoadTuningPartial(t *testing.T) {
	path := writeTuning(t, "tuning.json", `{
		"history_depth": 5,
		"position": {"mode": "continuous_closer_to_reference", "filter": {"type": "kalman", "std_dev_m": 0.5}},
		"size": {"filter": {"type": "temporal", "old_weight": 3, "new_weight": 1}}
	}`)
	tuning, err := LoadTuning(path)
	require.NoError(t, err)

	cfg, err := tuning.ToStabilization()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HistoryDepth)

	position := cfg.AttributeConfigs[stabilization.PositionIndex]
	assert.Equal(t, stabilization.ModeContinuousCloserToReference, position.Mode)
	assert.Equal(t, stabilization.KalmanParams{StdDevA: 2.0, StdDevM: 0.5}, position.Filter)
	// Omitted fields keep defaults
	assert.Equal(t, uint32(40), position.Threshold)

	size := cfg.AttributeConfigs[stabilization.SizeIndex]
	assert.Equal(t, stabilization.TemporalParams{OldWeight: 3, NewWeight: 1}, size.Filter)
	assert.Equal(t, stabilization.FilterTemporal, size.FilterType())
}

func TestLoadTuningHysteresis(t *testing.T) {
	path := writeTuning(t, "tuning.json", `{"size": {"filter": {"type": "hysteresis", "start_a": 10, "end_a": 20, "start_b": 30, "end_b": 40}}}`)
	tuning, err := LoadTuning(path)
	require.NoError(t, err)
	cfg, err := tuning.ToStabilization()
	require.NoError(t, err)
	assert.Equal(t, stabilization.HysteresisParams{StartA: 10, EndA: 20, StartB: 30, EndB: 40}, cfg.AttributeConfigs[stabilization.SizeIndex].Filter)
}

func TestLoadTuningErrors(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
		errPart string
	}{
		{name: "extension", file: "tuning.yaml", content: `{}`, errPart: ".json extension"},
		{name: "syntax", file: "tuning.json", content: `{"history_depth": `, errPart: "Can't parse tuning JSON"},
		{name: "depth", file: "tuning.json", content: `{"history_depth": 11}`, errPart: "history_depth"},
		{name: "zero depth", file: "tuning.json", content: `{"history_depth": 0}`, errPart: "history_depth"},
		{name: "mode", file: "tuning.json", content: `{"position": {"mode": "sideways"}}`, errPart: "unknown stabilization mode"},
		{name: "filter", file: "tuning.json", content: `{"size": {"filter": {"type": "bilateral"}}}`, errPart: "unknown stabilization filter"},
		{name: "hysteresis order", file: "tuning.json", content: `{"size": {"filter": {"type": "hysteresis", "start_a": 30, "end_a": 20, "start_b": 40, "end_b": 50}}}`, errPart: "increasing"},
		{name: "median length", file: "tuning.json", content: `{"size": {"filter": {"type": "median", "history_length": 12}}}`, errPart: "history_length"},
		{name: "link factor", file: "tuning.json", content: `{"position": {"moving_link_factor": -1}}`, errPart: "moving_link_factor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTuning(t, tc.file, tc.content)
			_, err := LoadTuning(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't stat tuning file")
}

func TestLoadTuningTooLarge(t *testing.T) {
	content := `{"history_depth": 5, "padding": "` + strings.Repeat("x", maxFileSize) + `"}`
	path := writeTuning(t, "tuning.json", content)
	_, err := LoadTuning(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
