// Package align resamples two laps onto one common distance grid.
package align

import (
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

// Align resamples every configured channel of both laps onto the grid
// 0, spacing, 2·spacing, … up to the shorter of the two lap distances. Distance
// and time are rebased to the first sample of each lap. The time channel is
// always aligned and must have at least two valid samples on both sides; other
// channels lacking data are skipped with a warning. Failures are
// *models.AlignmentError.
func Align(lap1, lap2 models.LapSegment, cfg config.AlignmentConfig, log logrus.FieldLogger) (*models.AlignedDataset, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	d1, err := lapDistance(lap1)
	if err != nil {
		return nil, err
	}
	d2, err := lapDistance(lap2)
	if err != nil {
		return nil, err
	}

	limit := math.Min(maxFinite(d1), maxFinite(d2))
	grid := Grid(limit, cfg.Spacing)
	if len(grid) < 2 {
		return nil, &models.AlignmentError{Reason: "laps do not cover a common distance"}
	}

	ds := &models.AlignedDataset{
		Distance: grid,
		Channels: make(map[string]models.ChannelPair),
		Quality:  make(map[string]models.ChannelQuality),
	}

	for _, ch := range channelList(cfg.Channels) {
		x1, y1, valid1 := extract(lap1.Points, d1, ch, cfg)
		x2, y2, valid2 := extract(lap2.Points, d2, ch, cfg)

		if valid1 < 2 || valid2 < 2 {
			if ch == telemetry.ChannelTime {
				return nil, &models.AlignmentError{Channel: ch, Reason: "fewer than 2 valid samples"}
			}
			log.WithFields(logrus.Fields{
				"channel":       ch,
				"driver1_valid": valid1,
				"driver2_valid": valid2,
			}).Warn("skipping channel without enough data")
			continue
		}

		x1, y1 = monotonic(x1, y1)
		x2, y2 = monotonic(x2, y2)

		ds.Channels[ch] = models.ChannelPair{
			Driver1: Interpolate(x1, y1, grid),
			Driver2: Interpolate(x2, y2, grid),
		}
		ds.Quality[ch] = models.ChannelQuality{
			Driver1Valid: valid1,
			Driver1Total: lap1.Len(),
			Driver2Valid: valid2,
			Driver2Total: lap2.Len(),
		}
	}

	log.WithFields(logrus.Fields{
		"points":   len(grid),
		"distance": grid[len(grid)-1],
		"channels": len(ds.Channels),
	}).Debug("aligned laps")

	return ds, nil
}

// Grid returns 0, spacing, 2·spacing, … up to and including limit.
func Grid(limit, spacing float64) []float64 {
	if spacing <= 0 || math.IsNaN(limit) || limit < 0 {
		return nil
	}
	n := int(math.Floor(limit/spacing+1e-9)) + 1
	grid := make([]float64, n)
	for k := range grid {
		grid[k] = float64(k) * spacing
	}
	return grid
}

// channelList puts time first and drops duplicates.
func channelList(chs []string) []string {
	out := []string{telemetry.ChannelTime}
	seen := map[string]bool{telemetry.ChannelTime: true}
	for _, ch := range chs {
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	return out
}

// extract pairs each record's rebased distance with its channel value, dropping
// missing or out-of-range samples. Percent channels reported as 0-1 fractions are
// scaled to 0-100 first, and time is rebased to the lap start.
func extract(points []models.Record, dist []float64, ch string, cfg config.AlignmentConfig) (xs, ys []float64, valid int) {
	raw := make([]float64, len(points))
	for i, p := range points {
		v, ok := p.Float(ch)
		if !ok {
			v = math.NaN()
		}
		raw[i] = v
	}

	if isPercent(ch, cfg) && maxFinite(raw) <= 1 {
		for i := range raw {
			raw[i] *= 100
		}
	}

	if ch == telemetry.ChannelTime {
		if t0, ok := firstFinite(raw); ok {
			for i := range raw {
				raw[i] -= t0
			}
		}
	}

	limit, hasLimit := cfg.Limits[ch]
	for i, v := range raw {
		if math.IsNaN(v) || math.IsNaN(dist[i]) {
			continue
		}
		if hasLimit && (v < limit.Min || v > limit.Max) {
			continue
		}
		xs = append(xs, dist[i])
		ys = append(ys, v)
	}
	return xs, ys, len(xs)
}

func isPercent(ch string, cfg config.AlignmentConfig) bool {
	for _, p := range cfg.PercentChannels {
		if p == ch {
			return true
		}
	}
	return false
}

// maxFinite returns the largest non-NaN value, or NaN when there is none.
func maxFinite(vals []float64) float64 {
	m := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v > m {
			m = v
		}
	}
	return m
}

func firstFinite(vals []float64) (float64, bool) {
	for _, v := range vals {
		if !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}
