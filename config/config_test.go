package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapcompare/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10.0, cfg.Alignment.Spacing)
	assert.Equal(t, 1000.0, cfg.Laps.ResetDrop)
	assert.Equal(t, 8, cfg.GPS.MaxCorners)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Laps.UseBeacons)
	assert.Equal(t, 3, cfg.Laps.LapMetricsSectors)
	assert.Equal(t, 0.8, cfg.Dynamics.CornerSpeedRatio)
	assert.Equal(t, 150.0, cfg.Dynamics.TopSpeed)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
laps:
  maxLapTime: 240
delta:
  sectors: 4
server:
  requestTimeout: 10s
`))
	require.NoError(t, err)

	assert.Equal(t, 240.0, cfg.Laps.MaxLapTime)
	assert.Equal(t, 30.0, cfg.Laps.MinLapTime)
	assert.Equal(t, 4, cfg.Delta.Sectors)
	assert.Equal(t, 1.0, cfg.Delta.SignificantChange)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
}

func TestParseEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{"lap time bounds inverted", "laps:\n  minLapTime: 400\n", "Config.Laps.MinLapTime"},
		{"zero spacing", "alignment:\n  spacing: 0\n", "Config.Alignment.Spacing"},
		{"tight above hairpin", "gps:\n  tightAngle: 120\n", "Config.GPS.HairpinAngle"},
		{"sample bounds inverted", "gps:\n  minSamples: 2000\n", "Config.GPS.MinSamples"},
		{"empty limit band", "alignment:\n  limits:\n    speed: {min: 10, max: 10}\n", "Config.Alignment.Limits.speed"},
		{"corner ratio above one", "dynamics:\n  cornerSpeedRatio: 1.5\n", "Config.Dynamics.CornerSpeedRatio"},
		{"heavy brake over 100", "dynamics:\n  heavyBrake: 120\n", "Config.Dynamics.HeavyBrake"},
		{"unknown key", "laps:\n  resetDorp: 5\n", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			require.Error(t, err)

			var cerr *models.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, c.field, cerr.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lapcompare.yml")
	require.NoError(t, os.WriteFile(path, []byte("delta:\n  significantChange: 0.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Delta.SignificantChange)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
