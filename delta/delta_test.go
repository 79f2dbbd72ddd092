package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapcompare/config"
	"lapcompare/models"
)

func TestStatisticsAndCrossing(t *testing.T) {
	d := []float64{1, 1, -1, -1}
	dist := []float64{0, 10, 20, 30}

	st := Statistics(d, 0.1)
	assert.Equal(t, 50.0, st.Driver1AheadPct)
	assert.Equal(t, 50.0, st.Driver2AheadPct)
	assert.Equal(t, 0.0, st.EvenPct)
	assert.Equal(t, 1.0, st.MaxGap)
	assert.Equal(t, 0.0, st.AvgDelta)
	assert.Equal(t, -1.0, st.FinalDelta)
	assert.InDelta(t, 1.1547005, st.StdDev, 1e-6)

	zc := ZeroCrossings(dist, d)
	require.Len(t, zc, 1)
	assert.Equal(t, 1, zc[0].Index)
	assert.InDelta(t, 15, zc[0].Distance, 1e-9)
}

func TestZeroCrossingThroughZero(t *testing.T) {
	zc := ZeroCrossings([]float64{0, 10, 20}, []float64{1, 0, -1})
	require.Len(t, zc, 1)
	assert.Equal(t, 0, zc[0].Index)
	assert.InDelta(t, 10, zc[0].Distance, 1e-9)

	zc = ZeroCrossings([]float64{0, 10, 20}, []float64{-3, 1, 2})
	require.Len(t, zc, 1)
	assert.InDelta(t, 7.5, zc[0].Distance, 1e-9)

	zc = ZeroCrossings([]float64{0, 10, 20, 30}, []float64{-1, 0, 0, 2})
	require.Len(t, zc, 1)
	assert.Equal(t, 0, zc[0].Index)
	assert.InDelta(t, 10, zc[0].Distance, 1e-9)
}

func TestZeroCrossingIgnoresTouches(t *testing.T) {
	dist := []float64{0, 10, 20, 30}
	assert.Empty(t, ZeroCrossings(dist[:3], []float64{1, 0, 1}))
	assert.Empty(t, ZeroCrossings(dist, []float64{-2, 0, 0, -1}))
	assert.Empty(t, ZeroCrossings(dist, []float64{0, 0, 1, 2}))
	assert.Empty(t, ZeroCrossings(dist[:2], []float64{1, 0}))
}

func TestSignificantChanges(t *testing.T) {
	dist := []float64{0, 10, 20, 30}
	sc := SignificantChanges(dist, []float64{0, 1, -1, 0.5}, 1.0)
	require.Len(t, sc, 3)

	assert.Equal(t, models.SignificantChange{Distance: 10, Delta: 1, Change: 1, Direction: models.DirectionGain}, sc[0])
	assert.Equal(t, models.SignificantChange{Distance: 20, Delta: -1, Change: 2, Direction: models.DirectionLoss}, sc[1])
	assert.Equal(t, models.DirectionGain, sc[2].Direction)

	assert.Empty(t, SignificantChanges(dist, []float64{0, 0.5, 0.9, 1.2}, 1.0))
}

func TestSectors(t *testing.T) {
	var dist []float64
	for i := 0; i < 10; i++ {
		dist = append(dist, float64(i*10))
	}
	d := []float64{0, 1, 2, 3, 3, 2, 1, 1, 1, 1}

	secs := Sectors(dist, d, 3)
	require.Len(t, secs, 3)

	assert.Equal(t, models.SectorResult{Index: 1, Start: 0, End: 30, Owner: models.OwnerDriver1, NetTime: 2}, secs[0])
	assert.Equal(t, models.SectorResult{Index: 2, Start: 30, End: 60, Owner: models.OwnerDriver2, NetTime: -1}, secs[1])
	assert.Equal(t, models.SectorResult{Index: 3, Start: 60, End: 90, Owner: models.OwnerEven, NetTime: 0}, secs[2])

	assert.Nil(t, Sectors(dist, d[:3], 3))
	assert.Nil(t, Sectors(dist, d, 0))
}

func TestSpeedSummary(t *testing.T) {
	s := SpeedSummary([]float64{100, 120, 90}, []float64{100, 110, 95})
	assert.Equal(t, 10.0, s.MaxDriver1Advantage)
	assert.Equal(t, 5.0, s.MaxDriver2Advantage)
	assert.InDelta(t, 5.0/3, s.AvgDifference, 1e-9)
	assert.InDelta(t, 100.0/3, s.Driver1FasterPct, 1e-9)
}

func dataset() *models.AlignedDataset {
	return &models.AlignedDataset{
		Distance: []float64{0, 10, 20, 30},
		Channels: map[string]models.ChannelPair{
			"time":  {Driver1: []float64{0, 1, 2, 3}, Driver2: []float64{0, 2, 1, 2}},
			"speed": {Driver1: []float64{100, 100, 100, 100}, Driver2: []float64{90, 90, 110, 110}},
		},
	}
}

func TestCompute(t *testing.T) {
	res, err := Compute(dataset(), config.Default().Delta)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, -1, -1}, res.CumulativeDelta)
	assert.Equal(t, []float64{0, 10, 20, 30}, res.Distance)
	assert.Equal(t, 25.0, res.Statistics.Driver1AheadPct)
	assert.Equal(t, 50.0, res.Statistics.Driver2AheadPct)
	assert.Equal(t, 25.0, res.Statistics.EvenPct)
	require.Len(t, res.ZeroCrossings, 1)
	assert.Equal(t, 1, res.ZeroCrossings[0].Index)
	require.Len(t, res.Sectors, 3)
	require.NotNil(t, res.Speed)
	assert.Equal(t, 50.0, res.Speed.Driver1FasterPct)
}

func TestComputeIsDeterministic(t *testing.T) {
	a, err := Compute(dataset(), config.Default().Delta)
	require.NoError(t, err)
	b, err := Compute(dataset(), config.Default().Delta)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeErrors(t *testing.T) {
	mismatched := dataset()
	mismatched.Channels["time"] = models.ChannelPair{Driver1: []float64{0, 1, 2}, Driver2: []float64{0, 1, 2, 3}}

	noTime := dataset()
	delete(noTime.Channels, "time")

	shortSpeed := dataset()
	shortSpeed.Channels["speed"] = models.ChannelPair{Driver1: []float64{100, 100, 100}, Driver2: []float64{90, 90, 110, 110}}

	cases := map[string]*models.AlignedDataset{
		"nil":         nil,
		"empty":       {},
		"mismatched":  mismatched,
		"no time":     noTime,
		"short speed": shortSpeed,
	}
	for name, ds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compute(ds, config.Default().Delta)
			var aerr *models.AlignmentError
			assert.ErrorAs(t, err, &aerr)
		})
	}
}

func TestComputeNamesMismatchedSpeedChannel(t *testing.T) {
	ds := dataset()
	ds.Channels["speed"] = models.ChannelPair{Driver1: []float64{100, 100}, Driver2: []float64{90, 90}}

	res, err := Compute(ds, config.Default().Delta)
	assert.Nil(t, res)
	var aerr *models.AlignmentError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "speed", aerr.Channel)

	delete(ds.Channels, "speed")
	res, err = Compute(ds, config.Default().Delta)
	require.NoError(t, err)
	assert.Nil(t, res.Speed)
}
