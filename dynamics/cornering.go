package dynamics

import (
	"gonum.org/v1/gonum/floats"

	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

// Cornering compares corner speed, heavy braking and corner exit throttle, and
// lists the top speed zones. It returns nil without an aligned speed channel.
func Cornering(ds *models.AlignedDataset, cfg config.DynamicsConfig) *models.CorneringAnalysis {
	if ds == nil {
		return nil
	}
	speed, ok := ds.Channel(telemetry.ChannelSpeed)
	if !ok || len(speed.Driver1) == 0 || len(speed.Driver2) == 0 {
		return nil
	}

	ca := &models.CorneringAnalysis{
		TopSpeedZones: TopSpeedZones(ds.Distance, speed, cfg.TopSpeed),
	}
	ca.Zones.Driver1Pct, ca.Zones.Driver1AvgSpeed = cornerShare(speed.Driver1, cfg.CornerSpeedRatio)
	ca.Zones.Driver2Pct, ca.Zones.Driver2AvgSpeed = cornerShare(speed.Driver2, cfg.CornerSpeedRatio)

	if br, ok := ds.Channel(telemetry.ChannelBrake); ok && len(br.Driver1) > 0 && len(br.Driver2) > 0 {
		b := &models.BrakingAnalysis{}
		b.Driver1HeavyPct, b.Driver1AvgSpeed = heavyBraking(br.Driver1, speed.Driver1, cfg.HeavyBrake)
		b.Driver2HeavyPct, b.Driver2AvgSpeed = heavyBraking(br.Driver2, speed.Driver2, cfg.HeavyBrake)
		b.LaterBraker = ahead(b.Driver1AvgSpeed, b.Driver2AvgSpeed)
		ca.Braking = b
	}

	if th, ok := ds.Channel(telemetry.ChannelThrottle); ok {
		limit := (mean(speed.Driver1) + mean(speed.Driver2)) / 2 * cfg.ExitSpeedRatio
		e := &models.ExitAnalysis{}
		e.Driver1Zones, e.Driver1AvgThrottle = cornerExit(th.Driver1, speed.Driver1, limit)
		e.Driver2Zones, e.Driver2AvgThrottle = cornerExit(th.Driver2, speed.Driver2, limit)
		e.MoreAggressiveExit = ahead(e.Driver1AvgThrottle, e.Driver2AvgThrottle)
		ca.Exit = e
	}

	return ca
}

// TopSpeedZones groups consecutive grid points where either driver is above
// limit (km/h), keeping each driver's maximum in the zone.
func TopSpeedZones(dist []float64, speed models.ChannelPair, limit float64) []models.SpeedZone {
	n := len(dist)
	if len(speed.Driver1) < n {
		n = len(speed.Driver1)
	}
	if len(speed.Driver2) < n {
		n = len(speed.Driver2)
	}

	out := []models.SpeedZone{}
	var cur *models.SpeedZone
	for i := 0; i < n; i++ {
		s1, s2 := speed.Driver1[i], speed.Driver2[i]
		if s1 <= limit && s2 <= limit {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
			continue
		}
		if cur == nil {
			cur = &models.SpeedZone{StartIndex: i, Start: dist[i], Driver1Max: s1, Driver2Max: s2}
		}
		cur.EndIndex, cur.End = i, dist[i]
		if s1 > cur.Driver1Max {
			cur.Driver1Max = s1
		}
		if s2 > cur.Driver2Max {
			cur.Driver2Max = s2
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// cornerShare returns the percentage of samples below ratio of the average
// speed and their mean speed.
func cornerShare(speed []float64, ratio float64) (float64, float64) {
	limit := mean(speed) * ratio
	var slow []float64
	for _, v := range speed {
		if v < limit {
			slow = append(slow, v)
		}
	}
	return pct(len(slow), len(speed)), mean(slow)
}

// heavyBraking returns the percentage of samples with brake above limit and the
// mean speed at those samples.
func heavyBraking(brake, speed []float64, limit float64) (float64, float64) {
	heavy := 0
	var at []float64
	for i, b := range brake {
		if b <= limit {
			continue
		}
		heavy++
		if i < len(speed) {
			at = append(at, speed[i])
		}
	}
	return pct(heavy, len(brake)), mean(at)
}

// cornerExit counts the samples where speed rises from below limit and returns
// the mean throttle at them.
func cornerExit(throttle, speed []float64, limit float64) (int, float64) {
	zones := 0
	var at []float64
	for i := 1; i < len(speed); i++ {
		if speed[i-1] >= limit || speed[i] <= speed[i-1] {
			continue
		}
		zones++
		if i < len(throttle) {
			at = append(at, throttle[i])
		}
	}
	return zones, mean(at)
}

// ahead labels the driver with the larger value.
func ahead(v1, v2 float64) string {
	switch {
	case v1 > v2:
		return models.OwnerDriver1
	case v2 > v1:
		return models.OwnerDriver2
	}
	return models.OwnerEven
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Sum(xs) / float64(len(xs))
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
