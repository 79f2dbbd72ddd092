package dynamics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapcompare/config"
	"lapcompare/models"
)

func TestDefaultModelClassify(t *testing.T) {
	m := NewDefaultModel(config.Default().Dynamics)

	cases := []struct {
		name string
		in   Sample
		want string
	}{
		{"correction", Sample{Speed: 120, Steering: 2, SteeringRate: 25, HasRate: true}, models.BalanceCorrection},
		{"negative correction", Sample{Speed: 120, Steering: 2, SteeringRate: -25, HasRate: true}, models.BalanceCorrection},
		{"slow", Sample{Speed: 30, Steering: 10, LateralAcc: 3}, models.BalanceNeutral},
		{"straight", Sample{Speed: 150, Steering: 0, LateralAcc: 0.2}, models.BalanceNeutral},
		// 100²·0.1/1000 = 1.0 g expected.
		{"matching", Sample{Speed: 100, Steering: 0.1, LateralAcc: 1.05}, models.BalanceNeutral},
		{"more grip than expected", Sample{Speed: 100, Steering: -0.1, LateralAcc: -1.5}, models.BalanceUndersteer},
		{"less grip than expected", Sample{Speed: 100, Steering: 0.1, LateralAcc: 0.5}, models.BalanceOversteer},
		{"rate ignored without time", Sample{Speed: 100, Steering: 0.1, LateralAcc: 1, SteeringRate: 99}, models.BalanceNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Classify(tc.in))
		})
	}
}

func TestClassifyAction(t *testing.T) {
	cfg := config.Default().Dynamics

	cases := []struct {
		throttle, brake float64
		want            string
	}{
		{100, 0, models.ActionFullThrottle},
		{95, 50, models.ActionFullThrottle},
		{0, 80, models.ActionBraking},
		{20, 30, models.ActionTrailBraking},
		{15, 5, models.ActionTrailBraking},
		{2, 3, models.ActionCoasting},
		{5, 5, models.ActionBraking},
		{50, 0, models.ActionPartialThrottle},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyAction(tc.throttle, tc.brake, cfg), "throttle=%v brake=%v", tc.throttle, tc.brake)
	}
}

func TestHandling(t *testing.T) {
	assert.Equal(t, models.HandlingNeutral, Handling(map[string]float64{}, 5))
	assert.Equal(t, models.HandlingNeutral, Handling(map[string]float64{"oversteer": 12, "understeer": 10}, 5))
	assert.Equal(t, models.HandlingOversteer, Handling(map[string]float64{"oversteer": 20, "understeer": 10}, 5))
	assert.Equal(t, models.HandlingUndersteer, Handling(map[string]float64{"oversteer": 5, "understeer": 10}, 5))
}

// fourPoints has driver 1 neutral throughout and driver 2 oversteering in the
// second half.
func fourPoints() *models.AlignedDataset {
	return &models.AlignedDataset{
		Distance: []float64{0, 10, 20, 30},
		Channels: map[string]models.ChannelPair{
			"time":        {Driver1: []float64{0, 1, 2, 3}, Driver2: []float64{0, 1, 2, 3}},
			"speed":       {Driver1: []float64{100, 100, 100, 100}, Driver2: []float64{100, 100, 100, 100}},
			"steering":    {Driver1: []float64{0.1, 0.1, 0.1, 0.1}, Driver2: []float64{0.1, 0.1, 0.1, 0.1}},
			"lateral_acc": {Driver1: []float64{1, 1, 1, 1}, Driver2: []float64{1, 1, 0.4, 0.4}},
			"throttle":    {Driver1: []float64{100, 100, 50, 0}, Driver2: []float64{100, 100, 100, 100}},
			"brake":       {Driver1: []float64{0, 0, 0, 60}, Driver2: []float64{0, 0, 0, 0}},
		},
	}
}

func TestAnalyze(t *testing.T) {
	cfg := config.Default().Dynamics
	sectors := []models.SectorResult{
		{Index: 1, Start: 0, End: 15},
		{Index: 2, Start: 15, End: 30},
	}

	res := Analyze(fourPoints(), nil, cfg, sectors)
	require.True(t, res.Available)
	assert.Empty(t, res.Note)

	assert.Equal(t, []string{"neutral", "neutral", "neutral", "neutral"}, res.Driver1.Balance)
	assert.Equal(t, []string{"neutral", "neutral", "oversteer", "oversteer"}, res.Driver2.Balance)
	assert.Equal(t, 100.0, res.Driver1.BalancePct[models.BalanceNeutral])
	assert.Equal(t, 50.0, res.Driver2.BalancePct[models.BalanceOversteer])
	assert.Equal(t, models.HandlingNeutral, res.Driver1.Handling)
	assert.Equal(t, models.HandlingOversteer, res.Driver2.Handling)

	assert.Equal(t, []string{"full_throttle", "full_throttle", "partial_throttle", "braking"}, res.Driver1.Actions)
	assert.Equal(t, 2, res.Driver1.Transitions)
	assert.Equal(t, 0, res.Driver2.Transitions)
	assert.Equal(t, 100.0, res.Driver2.ActionPct[models.ActionFullThrottle])

	require.Len(t, res.Sectors, 2)
	assert.Equal(t, models.OwnerEven, res.Sectors[0].Dominant)
	assert.Equal(t, models.OwnerDriver1, res.Sectors[1].Dominant)
	assert.Equal(t, models.HandlingOversteer, res.Sectors[1].Driver2Handling)
}

func TestAnalyzeWithoutSteering(t *testing.T) {
	ds := fourPoints()
	delete(ds.Channels, "steering")

	res := Analyze(ds, nil, config.Default().Dynamics, nil)
	assert.False(t, res.Available)
	assert.NotEmpty(t, res.Note)
	assert.Nil(t, res.Driver1.Balance)
	// Driver actions do not depend on steering.
	assert.Len(t, res.Driver1.Actions, 4)
}

type alwaysOversteer struct{}

func (alwaysOversteer) Classify(Sample) string { return models.BalanceOversteer }

func TestAnalyzeUsesCustomModel(t *testing.T) {
	res := Analyze(fourPoints(), alwaysOversteer{}, config.Default().Dynamics, nil)
	require.True(t, res.Available)
	assert.Equal(t, 100.0, res.Driver1.BalancePct[models.BalanceOversteer])
	assert.Equal(t, models.HandlingOversteer, res.Driver1.Handling)
}

func TestSectorRange(t *testing.T) {
	grid := []float64{0, 10, 20, 30}
	lo, hi := sectorRange(grid, models.SectorResult{Start: 0, End: 20}, false)
	assert.Equal(t, [2]int{0, 2}, [2]int{lo, hi})
	lo, hi = sectorRange(grid, models.SectorResult{Start: 20, End: 30}, true)
	assert.Equal(t, [2]int{2, 4}, [2]int{lo, hi})
	lo, hi = sectorRange(grid, models.SectorResult{Start: 40, End: 50}, true)
	assert.Equal(t, [2]int{0, 0}, [2]int{lo, hi})
}
