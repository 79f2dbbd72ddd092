package align

import (
	"math"

	"lapcompare/models"
	"lapcompare/telemetry"
)

// lapDistance returns the per-record distance of a lap, rebased so the first
// valid sample sits at 0. Records without a distance are NaN. When the lap has
// no distance channel, distance is integrated from speed (km/h) over time.
func lapDistance(lap models.LapSegment) ([]float64, error) {
	if lap.Len() < 2 {
		return nil, &models.AlignmentError{Reason: "lap has fewer than 2 points"}
	}

	var d []float64
	if lap.DistanceChannel != "" {
		d = make([]float64, lap.Len())
		for i, p := range lap.Points {
			v, ok := p.Float(lap.DistanceChannel)
			if !ok {
				v = math.NaN()
			}
			d[i] = v
		}
	} else {
		var ok bool
		if d, ok = integrateSpeed(lap.Points); !ok {
			return nil, &models.AlignmentError{Channel: "distance", Reason: "lap has neither a distance nor a speed channel"}
		}
	}

	d0, ok := firstFinite(d)
	if !ok {
		return nil, &models.AlignmentError{Channel: lap.DistanceChannel, Reason: "no valid distance samples"}
	}
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = v - d0
	}
	return out, nil
}

// integrateSpeed derives distance in meters with the trapezoid rule. Samples with
// an unusable time or speed carry the previous distance forward.
func integrateSpeed(points []models.Record) ([]float64, bool) {
	ch := ""
	for _, c := range []string{telemetry.ChannelSpeed, telemetry.ChannelGPSSpeed} {
		if _, ok := points[0][c]; ok {
			ch = c
			break
		}
	}
	if ch == "" {
		return nil, false
	}

	d := make([]float64, len(points))
	var (
		prevT, prevV float64
		havePrev     bool
	)
	for i, p := range points {
		if i > 0 {
			d[i] = d[i-1]
		}
		t, okT := p.Float(telemetry.ChannelTime)
		v, okV := p.Float(ch)
		if !okT || !okV {
			continue
		}
		if havePrev && t > prevT {
			d[i] += (prevV + v) / 2 / 3.6 * (t - prevT)
		}
		prevT, prevV, havePrev = t, v, true
	}
	return d, true
}
