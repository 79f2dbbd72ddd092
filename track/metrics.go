package track

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"lapcompare/models"
	"lapcompare/telemetry"
)

// ComputeLapMetrics calculates lap and sector times for a set of laps.
// sectors splits each lap into N equal distance sectors measured on the distance
// channel ch; if sectors<=0, only lap times are returned.
func ComputeLapMetrics(laps []models.LapSegment, ch string, sectors int) []models.LapMetrics {
	if len(laps) == 0 {
		return nil
	}
	if sectors < 0 {
		sectors = 0
	}

	var out []models.LapMetrics

	for _, lap := range laps {
		ts, ss := lapSeries(lap.Points, ch)
		if len(ts) < 2 {
			continue
		}

		lm := models.LapMetrics{Lap: lap.LapNumber, LapTime: lap.LapTime}

		// Sector times (distance-based, equal slices of lap distance)
		if sectors > 0 {
			sectorTimes := make([]float64, sectors)
			end := len(ss)
			s0 := ss[0]
			sLap := ss[end-1] - s0
			if sLap < 0 {
				sLap = 0
			}
			idxPtr := 0
			for s := 0; s < sectors; s++ {
				segStart := s0 + (float64(s)*sLap)/float64(sectors)
				segEnd := s0 + (float64(s+1)*sLap)/float64(sectors)
				for idxPtr < end && ss[idxPtr] < segStart {
					idxPtr++
				}
				segIdxStart := idxPtr
				for idxPtr < end && ss[idxPtr] < segEnd {
					idxPtr++
				}
				segIdxEnd := idxPtr
				if segIdxEnd >= end {
					segIdxEnd = end - 1
				}
				if segIdxEnd <= segIdxStart {
					sectorTimes[s] = 0
					continue
				}
				sectorTimes[s] = ts[segIdxEnd] - ts[segIdxStart]
			}
			lm.SectorTime = sectorTimes
		}

		out = append(out, lm)
	}

	if sectors > 0 && len(out) > 0 {
		best := make([]float64, sectors)
		for i := range best {
			best[i] = math.Inf(1)
		}
		for _, lm := range out {
			for i, t := range lm.SectorTime {
				if t > 0 && t < best[i] {
					best[i] = t
				}
			}
		}
		for i := range out {
			if len(out[i].SectorTime) == 0 {
				continue
			}
			out[i].SectorDelta = make([]float64, len(out[i].SectorTime))
			for j, t := range out[i].SectorTime {
				if math.IsInf(best[j], 1) || t == 0 {
					continue
				}
				out[i].SectorDelta[j] = t - best[j]
			}
		}
	}

	return out
}

// LapTimeStats returns the mean and standard deviation of the usable lap times.
func LapTimeStats(laps []models.LapSegment) (mean, std float64) {
	var ts []float64
	for _, l := range laps {
		if !math.IsNaN(l.LapTime) {
			ts = append(ts, l.LapTime)
		}
	}
	switch len(ts) {
	case 0:
		return 0, 0
	case 1:
		return ts[0], 0
	}
	return stat.MeanStdDev(ts, nil)
}

// lapSeries returns the time and distance values of the records that carry both.
func lapSeries(points []models.Record, ch string) (ts, ss []float64) {
	for _, p := range points {
		t, ok := p.Float(telemetry.ChannelTime)
		if !ok {
			continue
		}
		s, ok := p.Float(ch)
		if !ok {
			continue
		}
		ts = append(ts, t)
		ss = append(ss, s)
	}
	return ts, ss
}
