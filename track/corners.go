package track

import (
	"math"

	"lapcompare/config"
	"lapcompare/models"
)

// DetectCorners finds corners on a uniformly resampled path. For each interior
// sample the bearing of the path over the previous cfg.CornerMargin samples is
// compared to the bearing over the next cfg.CornerMargin samples. Samples whose
// bearing change exceeds cfg.CornerBearing and whose speed drops by more than
// cfg.CornerSpeedDrop across a ±cfg.CornerSpeedWindow window are candidates; each
// contiguous run of candidates yields one corner at its sharpest sample. At most
// cfg.MaxCorners corners are returned, in distance order.
func DetectCorners(points []models.Trackpoint, cfg config.GPSConfig) []models.Corner {
	m := cfg.CornerMargin
	if m <= 0 || len(points) < 2*m+1 {
		return nil
	}

	var (
		corners []models.Corner
		inRun   bool
		apex    int
		apexChg float64
	)

	flush := func() {
		if !inRun {
			return
		}
		inRun = false
		if cfg.MaxCorners > 0 && len(corners) >= cfg.MaxCorners {
			return
		}
		p := points[apex]
		chg := math.Round(apexChg*10) / 10
		corners = append(corners, models.Corner{
			Index:         len(corners),
			Distance:      p.S,
			Severity:      severity(chg, cfg),
			BearingChange: chg,
			SpeedDropPct:  math.Round(speedDrop(points, apex, cfg.CornerSpeedWindow)*1000) / 10,
			Latitude:      p.Latitude,
			Longitude:     p.Longitude,
		})
	}

	for i := m; i < len(points)-m; i++ {
		before := Bearing(points[i-m].Latitude, points[i-m].Longitude, points[i].Latitude, points[i].Longitude)
		after := Bearing(points[i].Latitude, points[i].Longitude, points[i+m].Latitude, points[i+m].Longitude)
		chg := math.Abs(wrapDegrees(after - before))

		if chg <= cfg.CornerBearing || speedDrop(points, i, cfg.CornerSpeedWindow) <= cfg.CornerSpeedDrop {
			flush()
			continue
		}
		if !inRun || chg > apexChg {
			apex, apexChg = i, chg
		}
		inRun = true
	}
	flush()

	return corners
}

// speedDrop is the relative drop from the speed cfg.CornerSpeedWindow samples
// before i to the slowest sample within ±window of i.
func speedDrop(points []models.Trackpoint, i, window int) float64 {
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	hi := i + window
	if hi > len(points)-1 {
		hi = len(points) - 1
	}
	pre := points[lo].Speed
	if pre <= 0 {
		return 0
	}
	min := pre
	for j := lo; j <= hi; j++ {
		min = math.Min(min, points[j].Speed)
	}
	return (pre - min) / pre
}

// severity classifies a bearing change; the bounds are inclusive.
func severity(change float64, cfg config.GPSConfig) string {
	switch {
	case change >= cfg.HairpinAngle:
		return models.SeverityHairpin
	case change >= cfg.TightAngle:
		return models.SeverityTight
	}
	return models.SeverityMedium
}

// wrapDegrees maps an angle difference into (-180, 180].
func wrapDegrees(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}
