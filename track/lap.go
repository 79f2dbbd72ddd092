package track

import (
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

// Segmentation is the outcome of lap detection on one session.
type Segmentation struct {
	// Laps holds every lap closed by a distance reset (or beacon laps when resets found none).
	Laps    []models.LapSegment
	Fastest models.LapSegment
}

// DistanceChannel returns the distance channel to segment on, preferring the
// speed-integrated one over the GPS one.
func DistanceChannel(sess *models.Session) (string, bool) {
	for _, ch := range []string{telemetry.ChannelDistance, telemetry.ChannelGPSDistance} {
		if sess.HasChannel(ch) {
			return ch, true
		}
	}
	return "", false
}

// SpeedChannel returns the speed channel to use, preferring vehicle speed over GPS speed.
func SpeedChannel(sess *models.Session) (string, bool) {
	for _, ch := range []string{telemetry.ChannelSpeed, telemetry.ChannelGPSSpeed} {
		if sess.HasChannel(ch) {
			return ch, true
		}
	}
	return "", false
}

// SegmentLaps runs the segmentation tiers in order: distance resets, beacon
// markers when cfg.UseBeacons is set, the longest speed run, and finally a
// fixed window. It fails with
// *models.InsufficientDataError when every tier comes up empty.
func SegmentLaps(sess *models.Session, cfg config.LapConfig, log logrus.FieldLogger) (*Segmentation, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	points := sess.Points
	res := &Segmentation{}
	dch, hasDist := DistanceChannel(sess)

	done := func() (*Segmentation, error) {
		for i := range res.Laps {
			res.Laps[i].DistanceChannel = dch
		}
		res.Fastest.DistanceChannel = dch
		return res, nil
	}

	if hasDist {
		idx := BuildLapIdx(points, dch, cfg)
		res.Laps = lapsFromIdx(points, idx, models.SourceDistanceReset)
		log.WithFields(logrus.Fields{"channel": dch, "laps": len(res.Laps)}).Debug("distance reset laps")

		if fastest, ok := SelectFastest(res.Laps, cfg); ok {
			res.Fastest = fastest
			return done()
		}
	}

	if cfg.UseBeacons {
		markers := telemetry.BeaconMarkers(sess.Metadata)
		if len(markers) > 1 {
			beacon := BeaconLaps(points, markers, telemetry.SegmentTimes(sess.Metadata))
			log.WithField("laps", len(beacon)).Debug("beacon laps")

			if fastest, ok := SelectFastest(beacon, cfg); ok {
				if len(res.Laps) == 0 {
					res.Laps = beacon
				}
				res.Fastest = fastest
				return done()
			}
		}
	}

	if ch, ok := SpeedChannel(sess); ok {
		if start, end, ok := longestSpeedRun(points, ch, cfg); ok {
			log.WithFields(logrus.Fields{"start": start, "end": end}).Debug("using longest speed run")
			res.Fastest = newLap(points, start, end, 1, models.SourceSpeedRun)
			return done()
		}
	}

	n := len(points)
	start := int(float64(n) * cfg.WindowStart)
	end := start + cfg.WindowPoints
	if end > n {
		end = n
	}
	if end-start > cfg.WindowMinPoints {
		log.WithFields(logrus.Fields{"start": start, "end": end}).Debug("using fixed window")
		res.Fastest = newLap(points, start, end, 1, models.SourceFixedWindow)
		return done()
	}

	return nil, &models.InsufficientDataError{Points: n, Reason: "no lap segment survived any segmentation tier"}
}

// BuildLapIdx returns lap boundaries found from distance resets: the start index
// of each lap plus a final end-exclusive boundary. A lap closes when the distance
// drops by more than cfg.ResetDrop from the previous sample after more than
// cfg.MinLapPoints points; the triggering point starts the next lap. A trailing
// buffer that is too short is dropped.
func BuildLapIdx(points []models.Record, ch string, cfg config.LapConfig) []int {
	if len(points) == 0 {
		return nil
	}

	idx := []int{0}
	start := 0
	prev, havePrev := points[0].Float(ch)

	for i := 1; i < len(points); i++ {
		cur, ok := points[i].Float(ch)
		if !ok {
			continue
		}
		if havePrev && prev-cur > cfg.ResetDrop && i-start > cfg.MinLapPoints {
			idx = append(idx, i)
			start = i
		}
		prev, havePrev = cur, true
	}

	if len(points)-start > cfg.MinLapPoints {
		idx = append(idx, len(points))
	}
	if len(idx) < 2 {
		return nil
	}
	return idx
}

func lapsFromIdx(points []models.Record, idx []int, source string) []models.LapSegment {
	var laps []models.LapSegment
	for i := 1; i < len(idx); i++ {
		laps = append(laps, newLap(points, idx[i-1], idx[i], i, source))
	}
	return laps
}

func newLap(points []models.Record, start, end, number int, source string) models.LapSegment {
	seg := make([]models.Record, end-start)
	copy(seg, points[start:end])
	return models.LapSegment{
		LapNumber:  number,
		LapTime:    lapTime(seg),
		StartIndex: start,
		EndIndex:   end,
		Source:     source,
		Points:     seg,
	}
}

// lapTime is the Time span between the first and last record, or NaN when either is unusable.
func lapTime(points []models.Record) float64 {
	if len(points) == 0 {
		return math.NaN()
	}
	t0, ok0 := points[0].Float(telemetry.ChannelTime)
	t1, ok1 := points[len(points)-1].Float(telemetry.ChannelTime)
	if !ok0 || !ok1 {
		return math.NaN()
	}
	return t1 - t0
}

// SelectFastest picks the minimum lap time among laps with enough points and a
// lap time inside [cfg.MinLapTime, cfg.MaxLapTime]. Ties go to the earlier lap.
func SelectFastest(laps []models.LapSegment, cfg config.LapConfig) (models.LapSegment, bool) {
	best := -1
	for i, lap := range laps {
		if lap.Len() <= cfg.MinFastestPoints {
			continue
		}
		t := lap.LapTime
		if math.IsNaN(t) || t < cfg.MinLapTime || t > cfg.MaxLapTime {
			continue
		}
		if best < 0 || t < laps[best].LapTime {
			best = i
		}
	}
	if best < 0 {
		return models.LapSegment{}, false
	}
	return laps[best], true
}

// BeaconLaps cuts one lap between each pair of consecutive beacon times. The lap
// time comes from the matching segment time when the export recorded one.
func BeaconLaps(points []models.Record, markers, segmentTimes []float64) []models.LapSegment {
	var laps []models.LapSegment
	for i := 0; i+1 < len(markers); i++ {
		from, to := markers[i], markers[i+1]
		start, end := -1, -1
		for j, p := range points {
			t, ok := p.Float(telemetry.ChannelTime)
			if !ok {
				continue
			}
			if t >= from && start < 0 {
				start = j
			}
			if t <= to {
				end = j + 1
			}
		}
		if start < 0 || end <= start {
			continue
		}

		lap := newLap(points, start, end, i+1, models.SourceBeacon)
		if i < len(segmentTimes) {
			lap.LapTime = segmentTimes[i]
		} else {
			lap.LapTime = to - from
		}
		laps = append(laps, lap)
	}
	return laps
}

// longestSpeedRun scans start offsets between cfg.FallbackScanFrom and
// cfg.FallbackScanTo of the session and measures how long speed stays above
// cfg.FallbackSpeed from each. The longest run is accepted when it exceeds
// cfg.FallbackMinRun points.
func longestSpeedRun(points []models.Record, ch string, cfg config.LapConfig) (int, int, bool) {
	n := len(points)
	from := int(float64(n) * cfg.FallbackScanFrom)
	to := int(float64(n) * cfg.FallbackScanTo)

	bestStart, bestLen := 0, 0
	for s := from; s < to; s += cfg.FallbackScanStep {
		l := 0
		for j := s; j < n; j++ {
			v, ok := points[j].Float(ch)
			if !ok || v <= cfg.FallbackSpeed {
				break
			}
			l++
		}
		if l > bestLen {
			bestStart, bestLen = s, l
		}
	}

	if bestLen <= cfg.FallbackMinRun {
		return 0, 0, false
	}
	return bestStart, bestStart + bestLen, true
}
