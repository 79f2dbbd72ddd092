package track

import (
	"math"

	"lapcompare/models"
	"lapcompare/telemetry"
)

// SmoothSeries applies a centered moving average over the input. Near the ends
// the window shrinks to the samples available.
func SmoothSeries(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	if window <= 1 {
		copy(out, vals)
		return out
	}
	half := window / 2

	prefix := make([]float64, len(vals)+1)
	for i, v := range vals {
		prefix[i+1] = prefix[i] + v
	}
	for i := range vals {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(vals) {
			hi = len(vals)
		}
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out
}

// GPSSamples extracts the raw GPS readings of a lap. Missing coordinates come
// back as NaN so validation counts them as implausible.
func GPSSamples(lap models.LapSegment) []models.GPSSample {
	out := make([]models.GPSSample, 0, lap.Len())
	for _, p := range lap.Points {
		s := models.GPSSample{
			Latitude:  floatOr(p, telemetry.ChannelLatitude, math.NaN()),
			Longitude: floatOr(p, telemetry.ChannelLongitude, math.NaN()),
			Elevation: floatOr(p, telemetry.ChannelAltitude, 0),
			Time:      floatOr(p, telemetry.ChannelTime, math.NaN()),
		}
		if v, ok := p.Float(telemetry.ChannelSpeed); ok {
			s.Speed = v
		} else {
			s.Speed = floatOr(p, telemetry.ChannelGPSSpeed, 0)
		}
		out = append(out, s)
	}
	return out
}

func floatOr(r models.Record, ch string, fallback float64) float64 {
	if v, ok := r.Float(ch); ok {
		return v
	}
	return fallback
}
