// Package dynamics classifies handling balance and driver inputs along an
// aligned lap.
//
// The handling model is pluggable through Model; DefaultModel is a simple
// heuristic comparing measured lateral acceleration with what speed and steering
// angle would predict.
package dynamics

import (
	"math"

	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

// Sample is the per-distance input to a handling model.
type Sample struct {
	Speed      float64 // km/h
	Steering   float64 // degrees
	LateralAcc float64 // g
	// SteeringRate is in degrees per second; HasRate is false on the first sample.
	SteeringRate float64
	HasRate      bool
}

// Model classifies one sample into a models.Balance* value.
type Model interface {
	Classify(s Sample) string
}

// DefaultModel is the stock handling heuristic.
type DefaultModel struct {
	cfg config.DynamicsConfig
}

func NewDefaultModel(cfg config.DynamicsConfig) *DefaultModel {
	return &DefaultModel{cfg: cfg}
}

// Classify flags fast steering corrections first. Below the low-speed limit
// everything is neutral. Otherwise the measured lateral acceleration is compared
// with speed²·|steering|/1000: within the neutral band is neutral, above it
// understeer and below it oversteer.
func (m *DefaultModel) Classify(s Sample) string {
	if s.HasRate && math.Abs(s.SteeringRate) > m.cfg.CorrectionRate {
		return models.BalanceCorrection
	}
	if s.Speed < m.cfg.LowSpeed {
		return models.BalanceNeutral
	}
	if s.Speed <= 0 || s.Steering == 0 {
		return models.BalanceNeutral
	}

	expected := s.Speed * s.Speed * math.Abs(s.Steering) / 1000
	diff := math.Abs(s.LateralAcc) - expected

	switch {
	case math.Abs(diff) < m.cfg.NeutralBand:
		return models.BalanceNeutral
	case diff > 0:
		return models.BalanceUndersteer
	}
	return models.BalanceOversteer
}

// ClassifyAction labels the driver input at one point from throttle and brake (both %).
func ClassifyAction(throttle, brake float64, cfg config.DynamicsConfig) string {
	switch {
	case throttle >= cfg.FullThrottle:
		return models.ActionFullThrottle
	case brake >= cfg.BrakeThreshold:
		if throttle >= cfg.TrailThrottle {
			return models.ActionTrailBraking
		}
		return models.ActionBraking
	case throttle <= cfg.CoastingThreshold && brake <= cfg.CoastingThreshold:
		return models.ActionCoasting
	}
	return models.ActionPartialThrottle
}

// Handling turns a balance distribution (percentages) into a tendency label.
// The oversteer and understeer shares must differ by at least margin points.
func Handling(pct map[string]float64, margin float64) string {
	ratio := pct[models.BalanceOversteer] - pct[models.BalanceUndersteer]
	switch {
	case ratio >= margin && ratio != 0:
		return models.HandlingOversteer
	case ratio <= -margin && ratio != 0:
		return models.HandlingUndersteer
	}
	return models.HandlingNeutral
}

// Analyze classifies both drivers along the aligned lap. Handling needs the
// speed, steering and lateral acceleration channels; without them the result is
// marked unavailable and only driver actions and cornering are reported. sectors come from the
// delta analysis and get a dominance label each.
func Analyze(ds *models.AlignedDataset, model Model, cfg config.DynamicsConfig, sectors []models.SectorResult) *models.DynamicsResult {
	res := &models.DynamicsResult{}
	if ds == nil {
		res.Note = "no aligned data"
		return res
	}

	if th, ok := ds.Channel(telemetry.ChannelThrottle); ok {
		if br, ok := ds.Channel(telemetry.ChannelBrake); ok {
			res.Driver1.Actions, res.Driver1.ActionPct, res.Driver1.Transitions = actions(th.Driver1, br.Driver1, cfg)
			res.Driver2.Actions, res.Driver2.ActionPct, res.Driver2.Transitions = actions(th.Driver2, br.Driver2, cfg)
		}
	}
	res.Cornering = Cornering(ds, cfg)

	speed, okS := ds.Channel(telemetry.ChannelSpeed)
	steer, okSt := ds.Channel(telemetry.ChannelSteering)
	lat, okL := ds.Channel(telemetry.ChannelLateralAcc)
	if !okS || !okSt || !okL {
		res.Note = "steering, lateral acceleration and speed channels are required for handling analysis"
		return res
	}
	if model == nil {
		model = NewDefaultModel(cfg)
	}
	tm, _ := ds.Channel(telemetry.ChannelTime)

	res.Available = true
	res.Driver1.Balance = balance(model, speed.Driver1, steer.Driver1, lat.Driver1, tm.Driver1)
	res.Driver2.Balance = balance(model, speed.Driver2, steer.Driver2, lat.Driver2, tm.Driver2)
	res.Driver1.BalancePct = distribution(res.Driver1.Balance)
	res.Driver2.BalancePct = distribution(res.Driver2.Balance)
	res.Driver1.Handling = Handling(res.Driver1.BalancePct, cfg.BalanceMargin)
	res.Driver2.Handling = Handling(res.Driver2.BalancePct, cfg.BalanceMargin)

	for _, sec := range sectors {
		lo, hi := sectorRange(ds.Distance, sec, sec.Index == len(sectors))
		b1 := distribution(res.Driver1.Balance[lo:hi])
		b2 := distribution(res.Driver2.Balance[lo:hi])

		sd := models.SectorDynamics{
			Index:           sec.Index,
			Start:           sec.Start,
			End:             sec.End,
			Driver1Handling: Handling(b1, cfg.BalanceMargin),
			Driver2Handling: Handling(b2, cfg.BalanceMargin),
			Dominant:        models.OwnerEven,
		}
		switch n1, n2 := b1[models.BalanceNeutral], b2[models.BalanceNeutral]; {
		case n1 > n2:
			sd.Dominant = models.OwnerDriver1
		case n2 > n1:
			sd.Dominant = models.OwnerDriver2
		}
		res.Sectors = append(res.Sectors, sd)
	}

	return res
}

func balance(model Model, speed, steer, lat, tm []float64) []string {
	n := len(speed)
	if len(steer) < n {
		n = len(steer)
	}
	if len(lat) < n {
		n = len(lat)
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		s := Sample{Speed: speed[i], Steering: steer[i], LateralAcc: lat[i]}
		if i > 0 && i < len(tm) {
			if dt := tm[i] - tm[i-1]; dt > 0 {
				s.SteeringRate = (steer[i] - steer[i-1]) / dt
				s.HasRate = true
			}
		}
		out[i] = model.Classify(s)
	}
	return out
}

func actions(throttle, brake []float64, cfg config.DynamicsConfig) ([]string, map[string]float64, int) {
	n := len(throttle)
	if len(brake) < n {
		n = len(brake)
	}
	out := make([]string, n)
	transitions := 0
	for i := 0; i < n; i++ {
		out[i] = ClassifyAction(throttle[i], brake[i], cfg)
		if i > 0 && out[i] != out[i-1] {
			transitions++
		}
	}
	return out, distribution(out), transitions
}

// distribution returns the percentage share of each label.
func distribution(labels []string) map[string]float64 {
	out := make(map[string]float64)
	if len(labels) == 0 {
		return out
	}
	for _, l := range labels {
		out[l]++
	}
	for k, v := range out {
		out[k] = v / float64(len(labels)) * 100
	}
	return out
}

// sectorRange returns the [lo, hi) grid indices inside a sector. The last
// sector includes its end.
func sectorRange(grid []float64, sec models.SectorResult, last bool) (int, int) {
	lo, hi := -1, -1
	for i, x := range grid {
		if x < sec.Start {
			continue
		}
		if x >= sec.End && !(last && x == sec.End) {
			break
		}
		if lo < 0 {
			lo = i
		}
		hi = i + 1
	}
	if lo < 0 {
		return 0, 0
	}
	return lo, hi
}
