package dynamics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapcompare/config"
	"lapcompare/models"
)

func cornerLap() *models.AlignedDataset {
	return &models.AlignedDataset{
		Distance: []float64{0, 10, 20, 30},
		Channels: map[string]models.ChannelPair{
			"speed":    {Driver1: []float64{40, 50, 100, 100}, Driver2: []float64{100, 100, 90, 100}},
			"brake":    {Driver1: []float64{80, 60, 0, 0}, Driver2: []float64{0, 0, 60, 0}},
			"throttle": {Driver1: []float64{0, 30, 70, 100}, Driver2: []float64{100, 100, 20, 100}},
		},
	}
}

func TestCornering(t *testing.T) {
	ca := Cornering(cornerLap(), config.Default().Dynamics)
	require.NotNil(t, ca)

	// Driver 1 averages 72.5 km/h: 40 and 50 are below 58.
	assert.Equal(t, 50.0, ca.Zones.Driver1Pct)
	assert.Equal(t, 45.0, ca.Zones.Driver1AvgSpeed)
	assert.Equal(t, 0.0, ca.Zones.Driver2Pct)
	assert.Equal(t, 0.0, ca.Zones.Driver2AvgSpeed)

	require.NotNil(t, ca.Braking)
	assert.Equal(t, 50.0, ca.Braking.Driver1HeavyPct)
	assert.Equal(t, 45.0, ca.Braking.Driver1AvgSpeed)
	assert.Equal(t, 25.0, ca.Braking.Driver2HeavyPct)
	assert.Equal(t, 90.0, ca.Braking.Driver2AvgSpeed)
	assert.Equal(t, models.OwnerDriver2, ca.Braking.LaterBraker)

	// Exit limit is 0.7 of the joint 85 km/h average.
	require.NotNil(t, ca.Exit)
	assert.Equal(t, 2, ca.Exit.Driver1Zones)
	assert.Equal(t, 50.0, ca.Exit.Driver1AvgThrottle)
	assert.Equal(t, 0, ca.Exit.Driver2Zones)
	assert.Equal(t, 0.0, ca.Exit.Driver2AvgThrottle)
	assert.Equal(t, models.OwnerDriver1, ca.Exit.MoreAggressiveExit)

	assert.Empty(t, ca.TopSpeedZones)
	assert.NotNil(t, ca.TopSpeedZones)
}

func TestCorneringNeedsSpeed(t *testing.T) {
	ds := cornerLap()
	delete(ds.Channels, "speed")
	assert.Nil(t, Cornering(ds, config.Default().Dynamics))
	assert.Nil(t, Cornering(nil, config.Default().Dynamics))
}

func TestCorneringWithoutPedals(t *testing.T) {
	ds := cornerLap()
	delete(ds.Channels, "brake")
	delete(ds.Channels, "throttle")

	ca := Cornering(ds, config.Default().Dynamics)
	require.NotNil(t, ca)
	assert.Nil(t, ca.Braking)
	assert.Nil(t, ca.Exit)
	assert.Equal(t, 50.0, ca.Zones.Driver1Pct)
}

func TestCorneringEqualDriversAreEven(t *testing.T) {
	ds := cornerLap()
	ds.Channels["speed"] = models.ChannelPair{Driver1: []float64{40, 50, 100, 100}, Driver2: []float64{40, 50, 100, 100}}
	ds.Channels["brake"] = models.ChannelPair{Driver1: []float64{80, 0, 0, 0}, Driver2: []float64{80, 0, 0, 0}}
	ds.Channels["throttle"] = models.ChannelPair{Driver1: []float64{0, 30, 70, 100}, Driver2: []float64{0, 30, 70, 100}}

	ca := Cornering(ds, config.Default().Dynamics)
	require.NotNil(t, ca)
	assert.Equal(t, models.OwnerEven, ca.Braking.LaterBraker)
	assert.Equal(t, models.OwnerEven, ca.Exit.MoreAggressiveExit)
}

func TestTopSpeedZones(t *testing.T) {
	dist := []float64{0, 10, 20, 30, 40, 50}
	speed := models.ChannelPair{
		Driver1: []float64{100, 160, 170, 100, 100, 155},
		Driver2: []float64{100, 140, 180, 150, 100, 100},
	}

	zones := TopSpeedZones(dist, speed, 150)
	require.Len(t, zones, 2)
	assert.Equal(t, models.SpeedZone{StartIndex: 1, EndIndex: 2, Start: 10, End: 20, Driver1Max: 170, Driver2Max: 180}, zones[0])
	assert.Equal(t, models.SpeedZone{StartIndex: 5, EndIndex: 5, Start: 50, End: 50, Driver1Max: 155, Driver2Max: 100}, zones[1])
}

func TestAnalyzeReportsCornering(t *testing.T) {
	res := Analyze(fourPoints(), nil, config.Default().Dynamics, nil)
	require.NotNil(t, res.Cornering)
	require.NotNil(t, res.Cornering.Braking)
	assert.Equal(t, 25.0, res.Cornering.Braking.Driver1HeavyPct)
	assert.Equal(t, models.OwnerDriver1, res.Cornering.Braking.LaterBraker)

	ds := fourPoints()
	delete(ds.Channels, "steering")
	res = Analyze(ds, nil, config.Default().Dynamics, nil)
	assert.False(t, res.Available)
	assert.NotNil(t, res.Cornering)
}
