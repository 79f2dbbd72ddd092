package track

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

// buildSession makes a session with the given columns; fn returns the values of row i.
func buildSession(n int, cols []string, fn func(i int) map[string]float64) *models.Session {
	sess := &models.Session{Metadata: models.NewMetadata(), Columns: cols, Headers: cols}
	for i := 0; i < n; i++ {
		rec := models.Record{}
		for k, v := range fn(i) {
			rec[k] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		sess.Points = append(sess.Points, rec)
	}
	return sess
}

// threeLapSession has 900 points, 0.2 s apart, with the distance channel resetting every 300 points.
func threeLapSession() *models.Session {
	return buildSession(900, []string{"time", "distance", "speed"}, func(i int) map[string]float64 {
		return map[string]float64{
			"time":     float64(i) / 5,
			"distance": float64(10 * (i % 300)),
			"speed":    100,
		}
	})
}

func TestBuildLapIdxTwoResets(t *testing.T) {
	sess := threeLapSession()
	idx := BuildLapIdx(sess.Points, "distance", config.Default().Laps)
	assert.Equal(t, []int{0, 300, 600, 900}, idx)
}

func TestBuildLapIdxDropsShortTrailingBuffer(t *testing.T) {
	sess := buildSession(400, []string{"time", "distance"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i), "distance": float64(10 * (i % 300))}
	})
	assert.Equal(t, []int{0, 300}, BuildLapIdx(sess.Points, "distance", config.Default().Laps))
}

func TestBuildLapIdxIgnoresEarlyReset(t *testing.T) {
	// Resets after 100 and 200 points do not close a lap.
	sess := buildSession(250, []string{"time", "distance"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i), "distance": float64(20 * (i % 100))}
	})
	idx := BuildLapIdx(sess.Points, "distance", config.Default().Laps)
	assert.Equal(t, []int{0, 250}, idx)
}

func TestSegmentLapsDistanceReset(t *testing.T) {
	seg, err := SegmentLaps(threeLapSession(), config.Default().Laps, nil)
	require.NoError(t, err)

	require.Len(t, seg.Laps, 3)
	for i, lap := range seg.Laps {
		assert.Equal(t, i+1, lap.LapNumber)
		assert.Equal(t, i*300, lap.StartIndex)
		assert.Equal(t, (i+1)*300, lap.EndIndex)
		assert.Equal(t, 300, lap.Len())
		assert.Equal(t, models.SourceDistanceReset, lap.Source)
		assert.InDelta(t, 59.8, lap.LapTime, 1e-9)
	}
	assert.Equal(t, models.SourceDistanceReset, seg.Fastest.Source)
	assert.InDelta(t, 59.8, seg.Fastest.LapTime, 1e-9)
}

func TestSelectFastestRespectsBounds(t *testing.T) {
	mk := func(n int, lapTime float64) models.LapSegment {
		return models.LapSegment{LapNumber: n, LapTime: lapTime, Points: make([]models.Record, 150)}
	}
	laps := []models.LapSegment{mk(1, 200), mk(2, 310), mk(3, 45)}

	fastest, ok := SelectFastest(laps, config.Default().Laps)
	require.True(t, ok)
	assert.Equal(t, 3, fastest.LapNumber)
	assert.Equal(t, 45.0, fastest.LapTime)

	// Too few points.
	short := []models.LapSegment{{LapNumber: 1, LapTime: 45, Points: make([]models.Record, 100)}}
	_, ok = SelectFastest(short, config.Default().Laps)
	assert.False(t, ok)

	// Out of bounds only.
	_, ok = SelectFastest([]models.LapSegment{mk(1, 20), mk(2, 310)}, config.Default().Laps)
	assert.False(t, ok)
}

func TestSegmentLapsBeaconFallback(t *testing.T) {
	sess := buildSession(1000, []string{"time", "speed"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i) / 10, "speed": 80}
	})
	sess.Metadata.Set(telemetry.MetaBeaconMarkers, "10,50,90")
	sess.Metadata.Set(telemetry.MetaSegmentTimes, "0:40.0,0:39.5")

	cfg := config.Default().Laps
	cfg.UseBeacons = true

	seg, err := SegmentLaps(sess, cfg, nil)
	require.NoError(t, err)

	require.Len(t, seg.Laps, 2)
	assert.Equal(t, models.SourceBeacon, seg.Fastest.Source)
	assert.Equal(t, 2, seg.Fastest.LapNumber)
	assert.Equal(t, 39.5, seg.Fastest.LapTime)
	assert.Equal(t, 500, seg.Fastest.StartIndex)
	assert.Equal(t, 901, seg.Fastest.EndIndex)
}

func TestSegmentLapsIgnoresBeaconsByDefault(t *testing.T) {
	sess := buildSession(1000, []string{"time", "speed"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i) / 10, "speed": 80}
	})
	sess.Metadata.Set(telemetry.MetaBeaconMarkers, "10,50,90")

	seg, err := SegmentLaps(sess, config.Default().Laps, nil)
	require.NoError(t, err)

	assert.Empty(t, seg.Laps)
	assert.Equal(t, models.SourceSpeedRun, seg.Fastest.Source)
	assert.Equal(t, 100, seg.Fastest.StartIndex)
	assert.Equal(t, 1000, seg.Fastest.EndIndex)
}

func TestSegmentLapsBeaconsDisabled(t *testing.T) {
	sess := buildSession(1000, []string{"time"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i) / 10}
	})
	sess.Metadata.Set(telemetry.MetaBeaconMarkers, "10,50,90")

	cfg := config.Default().Laps
	cfg.UseBeacons = false

	seg, err := SegmentLaps(sess, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SourceFixedWindow, seg.Fastest.Source)
}

func TestSegmentLapsSpeedRunFallback(t *testing.T) {
	sess := buildSession(2000, []string{"time", "speed"}, func(i int) map[string]float64 {
		speed := 0.0
		if i >= 400 && i < 1200 {
			speed = 50
		}
		return map[string]float64{"time": float64(i) / 10, "speed": speed}
	})

	seg, err := SegmentLaps(sess, config.Default().Laps, nil)
	require.NoError(t, err)
	assert.Empty(t, seg.Laps)
	assert.Equal(t, models.SourceSpeedRun, seg.Fastest.Source)
	assert.Equal(t, 400, seg.Fastest.StartIndex)
	assert.Equal(t, 1200, seg.Fastest.EndIndex)
	assert.Equal(t, 800, seg.Fastest.Len())
}

func TestSegmentLapsFixedWindowFallback(t *testing.T) {
	sess := buildSession(500, []string{"time", "speed"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i) / 10, "speed": 5}
	})

	seg, err := SegmentLaps(sess, config.Default().Laps, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SourceFixedWindow, seg.Fastest.Source)
	assert.Equal(t, 150, seg.Fastest.StartIndex)
	assert.Equal(t, 500, seg.Fastest.EndIndex)
}

func TestSegmentLapsInsufficientData(t *testing.T) {
	sess := buildSession(50, []string{"time", "speed"}, func(i int) map[string]float64 {
		return map[string]float64{"time": float64(i), "speed": 5}
	})

	_, err := SegmentLaps(sess, config.Default().Laps, nil)
	var ierr *models.InsufficientDataError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 50, ierr.Points)
}

func TestLapSegmentsAreCopies(t *testing.T) {
	sess := threeLapSession()
	seg, err := SegmentLaps(sess, config.Default().Laps, nil)
	require.NoError(t, err)

	seg.Laps[0].Points[0] = models.Record{"time": "999"}
	assert.Equal(t, "0", sess.Points[0]["time"])
}

func TestComputeLapMetrics(t *testing.T) {
	seg, err := SegmentLaps(threeLapSession(), config.Default().Laps, nil)
	require.NoError(t, err)

	metrics := ComputeLapMetrics(seg.Laps, "distance", 3)
	require.Len(t, metrics, 3)

	for _, m := range metrics {
		require.Len(t, m.SectorTime, 3)
		assert.InDelta(t, 20, m.SectorTime[0], 1e-9)
		assert.InDelta(t, 20, m.SectorTime[1], 1e-9)
		assert.InDelta(t, 19.8, m.SectorTime[2], 1e-9)
		for _, d := range m.SectorDelta {
			assert.InDelta(t, 0, d, 1e-9)
		}
	}

	assert.Nil(t, ComputeLapMetrics(nil, "distance", 3))

	noSectors := ComputeLapMetrics(seg.Laps, "distance", 0)
	require.Len(t, noSectors, 3)
	assert.Empty(t, noSectors[0].SectorTime)
}

func TestLapTimeStats(t *testing.T) {
	mean, std := LapTimeStats([]models.LapSegment{{LapTime: 60}, {LapTime: 62}})
	assert.InDelta(t, 61, mean, 1e-9)
	assert.InDelta(t, 1.41421356, std, 1e-6)

	mean, std = LapTimeStats([]models.LapSegment{{LapTime: 60}})
	assert.Equal(t, 60.0, mean)
	assert.Equal(t, 0.0, std)
}
