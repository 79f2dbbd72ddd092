// Package delta computes the cumulative time delta between two aligned laps.
//
// Sign convention: delta = time_driver2 - time_driver1 at the same distance.
// A positive delta means driver 1 reached that point first (driver 1 is ahead);
// every statistic, zero crossing, significant change and sector owner is derived
// from this one convention.
package delta

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

// Compute derives the delta analysis from an aligned dataset. The dataset must
// carry the time channel; series whose length differs from the grid fail with
// *models.AlignmentError.
func Compute(ds *models.AlignedDataset, cfg config.DeltaConfig) (*models.DeltaResult, error) {
	if ds == nil || len(ds.Distance) == 0 {
		return nil, &models.AlignmentError{Reason: "empty aligned dataset"}
	}
	tm, ok := ds.Channel(telemetry.ChannelTime)
	if !ok {
		return nil, &models.AlignmentError{Channel: telemetry.ChannelTime, Reason: "time channel was not aligned"}
	}
	n := len(ds.Distance)
	if len(tm.Driver1) != n || len(tm.Driver2) != n {
		return nil, &models.AlignmentError{Channel: telemetry.ChannelTime, Reason: "series length does not match the distance grid"}
	}

	d := make([]float64, n)
	floats.SubTo(d, tm.Driver2, tm.Driver1)

	dist := append([]float64(nil), ds.Distance...)

	res := &models.DeltaResult{
		Distance:           dist,
		CumulativeDelta:    d,
		Statistics:         Statistics(d, cfg.EvenBand),
		ZeroCrossings:      ZeroCrossings(dist, d),
		SignificantChanges: SignificantChanges(dist, d, cfg.SignificantChange),
		Sectors:            Sectors(dist, d, cfg.Sectors),
	}

	if sp, ok := ds.Channel(telemetry.ChannelSpeed); ok {
		if len(sp.Driver1) != n || len(sp.Driver2) != n {
			return nil, &models.AlignmentError{Channel: telemetry.ChannelSpeed, Reason: "series length does not match the distance grid"}
		}
		s := SpeedSummary(sp.Driver1, sp.Driver2)
		res.Speed = &s
	}

	return res, nil
}

// Statistics summarises a delta series. even is the band around zero counted as level.
func Statistics(d []float64, even float64) models.DeltaStatistics {
	var st models.DeltaStatistics
	if len(d) == 0 {
		return st
	}

	var ahead1, ahead2, level int
	for _, v := range d {
		switch {
		case v > 0:
			ahead1++
		case v < 0:
			ahead2++
		}
		if math.Abs(v) < even {
			level++
		}
		st.MaxGap = math.Max(st.MaxGap, math.Abs(v))
	}

	n := float64(len(d))
	st.Driver1AheadPct = float64(ahead1) / n * 100
	st.Driver2AheadPct = float64(ahead2) / n * 100
	st.EvenPct = float64(level) / n * 100
	st.AvgDelta = stat.Mean(d, nil)
	st.FinalDelta = d[len(d)-1]
	if len(d) > 1 {
		st.StdDev = stat.StdDev(d, nil)
	}
	return st
}

// ZeroCrossings reports every point where the delta changes sign. Samples at
// exactly zero are skipped over: a run of zeros counts only when the samples on
// either side of it have opposite signs, and then sits at the first zero.
// Between two adjacent non-zero samples the distance is interpolated. Index is
// the last non-zero sample before the crossing.
func ZeroCrossings(dist, d []float64) []models.ZeroCrossing {
	out := []models.ZeroCrossing{}
	last := -1
	for i := 0; i < len(d) && i < len(dist); i++ {
		if d[i] == 0 {
			continue
		}
		if last >= 0 && (d[last] > 0) != (d[i] > 0) {
			x := dist[last+1]
			if last == i-1 {
				a, b := math.Abs(d[last]), math.Abs(d[i])
				x = dist[last] + (dist[i]-dist[last])*a/(a+b)
			}
			out = append(out, models.ZeroCrossing{Distance: x, Index: last})
		}
		last = i
	}
	return out
}

// SignificantChanges reports adjacent pairs whose delta moves by at least threshold.
// A growing delta is a gain for driver 1.
func SignificantChanges(dist, d []float64, threshold float64) []models.SignificantChange {
	out := []models.SignificantChange{}
	for i := 1; i < len(d) && i < len(dist); i++ {
		change := d[i] - d[i-1]
		if math.Abs(change) < threshold {
			continue
		}
		dir := models.DirectionLoss
		if change > 0 {
			dir = models.DirectionGain
		}
		out = append(out, models.SignificantChange{
			Distance:  dist[i],
			Delta:     d[i],
			Change:    math.Abs(change),
			Direction: dir,
		})
	}
	return out
}

// Sectors splits the distance range into n equal sectors. A sample belongs to the
// sector whose [start, end) range holds it; the last sector also holds its end.
// NetTime is the delta gained across the sector and decides the owner.
func Sectors(dist, d []float64, n int) []models.SectorResult {
	if n <= 0 || len(dist) == 0 || len(dist) != len(d) {
		return nil
	}

	lo, hi := dist[0], dist[len(dist)-1]
	width := (hi - lo) / float64(n)
	out := make([]models.SectorResult, 0, n)

	for s := 0; s < n; s++ {
		start := lo + float64(s)*width
		end := lo + float64(s+1)*width
		if s == n-1 {
			end = hi
		}

		first, last := -1, -1
		for i, x := range dist {
			if x < start {
				continue
			}
			if x >= end && !(s == n-1 && x == end) {
				break
			}
			if first < 0 {
				first = i
			}
			last = i
		}

		sec := models.SectorResult{Index: s + 1, Start: start, End: end, Owner: models.OwnerEven}
		if first >= 0 {
			sec.NetTime = d[last] - d[first]
			switch {
			case sec.NetTime > 0:
				sec.Owner = models.OwnerDriver1
			case sec.NetTime < 0:
				sec.Owner = models.OwnerDriver2
			}
		}
		out = append(out, sec)
	}
	return out
}

// SpeedSummary compares two aligned speed traces.
func SpeedSummary(s1, s2 []float64) models.SpeedSummary {
	var sum models.SpeedSummary
	if len(s1) == 0 || len(s1) != len(s2) {
		return sum
	}

	diff := make([]float64, len(s1))
	floats.SubTo(diff, s1, s2)

	faster := 0
	for _, v := range diff {
		if v > 0 {
			faster++
		}
	}

	sum.MaxDriver1Advantage = math.Max(0, floats.Max(diff))
	sum.MaxDriver2Advantage = math.Max(0, -floats.Min(diff))
	sum.AvgDifference = stat.Mean(diff, nil)
	sum.Driver1FasterPct = float64(faster) / float64(len(diff)) * 100
	return sum
}
