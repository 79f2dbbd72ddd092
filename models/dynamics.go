package models

// Vehicle balance classes.
const (
	BalanceNeutral    = "neutral"
	BalanceOversteer  = "oversteer"
	BalanceUndersteer = "understeer"
	BalanceCorrection = "correction"
)

// Driver action classes.
const (
	ActionFullThrottle    = "full_throttle"
	ActionPartialThrottle = "partial_throttle"
	ActionCoasting        = "coasting"
	ActionBraking         = "braking"
	ActionTrailBraking    = "trail_braking"
)

// Handling tendencies over a stretch of track.
const (
	HandlingNeutral    = "neutral"
	HandlingOversteer  = "oversteer_tendency"
	HandlingUndersteer = "understeer_tendency"
)

// DriverDynamics is the per-distance classification for one driver.
type DriverDynamics struct {
	Balance     []string           `json:"balance,omitempty"`
	Actions     []string           `json:"actions,omitempty"`
	BalancePct  map[string]float64 `json:"balancePct,omitempty"`
	ActionPct   map[string]float64 `json:"actionPct,omitempty"`
	Transitions int                `json:"transitions"`
	Handling    string             `json:"handling,omitempty"`
}

type SectorDynamics struct {
	Index           int     `json:"index"`
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	Driver1Handling string  `json:"driver1Handling"`
	Driver2Handling string  `json:"driver2Handling"`
	// Dominant is the driver with the larger neutral share in the sector.
	Dominant string `json:"dominant"`
}

// DynamicsResult is the output of the cornering analyzer.
type DynamicsResult struct {
	Available bool               `json:"available"`
	Note      string             `json:"note,omitempty"`
	Driver1   DriverDynamics     `json:"driver1"`
	Driver2   DriverDynamics     `json:"driver2"`
	Sectors   []SectorDynamics   `json:"sectors,omitempty"`
	Cornering *CorneringAnalysis `json:"cornering,omitempty"`
}

// CornerZones is the share of the lap each driver spends below a fraction of
// their own average speed, and their mean speed there.
type CornerZones struct {
	Driver1Pct      float64 `json:"driver1Pct"`
	Driver2Pct      float64 `json:"driver2Pct"`
	Driver1AvgSpeed float64 `json:"driver1AvgSpeed"`
	Driver2AvgSpeed float64 `json:"driver2AvgSpeed"`
}

type BrakingAnalysis struct {
	Driver1HeavyPct float64 `json:"driver1HeavyPct"`
	Driver2HeavyPct float64 `json:"driver2HeavyPct"`
	// Driver1AvgSpeed and Driver2AvgSpeed are the mean speeds under heavy braking.
	Driver1AvgSpeed float64 `json:"driver1AvgSpeed"`
	Driver2AvgSpeed float64 `json:"driver2AvgSpeed"`
	// LaterBraker carries the higher speed into heavy braking.
	LaterBraker string `json:"laterBraker"`
}

type ExitAnalysis struct {
	Driver1AvgThrottle float64 `json:"driver1AvgThrottle"`
	Driver2AvgThrottle float64 `json:"driver2AvgThrottle"`
	Driver1Zones       int     `json:"driver1Zones"`
	Driver2Zones       int     `json:"driver2Zones"`
	MoreAggressiveExit string  `json:"moreAggressiveExit"`
}

// SpeedZone is a stretch of grid points where either driver is above the top
// speed threshold. Indices are inclusive.
type SpeedZone struct {
	StartIndex int     `json:"startIndex"`
	EndIndex   int     `json:"endIndex"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Driver1Max float64 `json:"driver1Max"`
	Driver2Max float64 `json:"driver2Max"`
}

// CorneringAnalysis compares corner speed, braking and corner exit technique.
// Braking and Exit are nil when the brake or throttle channel is missing.
type CorneringAnalysis struct {
	Zones         CornerZones      `json:"zones"`
	Braking       *BrakingAnalysis `json:"braking,omitempty"`
	Exit          *ExitAnalysis    `json:"exit,omitempty"`
	TopSpeedZones []SpeedZone      `json:"topSpeedZones"`
}
