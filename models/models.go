package models

import (
	"math"
	"strconv"
	"strings"
)

// Metadata keeps the key/value rows found above the telemetry header in the
// order they appeared in the export.
type Metadata struct {
	keys   []string
	values map[string]string
}

func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

// Set stores value under key. Re-setting an existing key keeps its original position.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Metadata) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the metadata keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Map returns a copy of the metadata as a plain map.
func (m *Metadata) Map() map[string]string {
	out := make(map[string]string, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Record is one accepted telemetry row: canonical channel name -> trimmed field value.
type Record map[string]string

// Float parses the channel value. Empty, unparsable and non-finite values report false.
func (r Record) Float(channel string) (float64, bool) {
	raw, ok := r[channel]
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Session is the parsed form of one CSV export.
type Session struct {
	Metadata *Metadata
	// Columns holds canonical channel names in header order.
	Columns []string
	// Headers holds the raw header cells, index-aligned with Columns.
	Headers []string
	Units   []string
	Points  []Record
}

// HasChannel reports whether the header carried the canonical channel.
func (s *Session) HasChannel(channel string) bool {
	for _, c := range s.Columns {
		if c == channel {
			return true
		}
	}
	return false
}

// Lap segment sources.
const (
	SourceDistanceReset = "distance_reset"
	SourceBeacon        = "beacon"
	SourceSpeedRun      = "speed_run"
	SourceFixedWindow   = "fixed_window"
)

// LapSegment is a contiguous slice of a session treated as one lap.
type LapSegment struct {
	LapNumber int     `json:"lapNumber"`
	LapTime   float64 `json:"lapTime"`
	// StartIndex and EndIndex (exclusive) point into Session.Points.
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
	Source     string `json:"source"`
	// DistanceChannel names the distance channel of the lap; empty when the
	// session has none and distance must be integrated from speed.
	DistanceChannel string   `json:"distanceChannel,omitempty"`
	Points          []Record `json:"-"`
}

// Len returns the number of points in the lap.
func (l LapSegment) Len() int {
	return len(l.Points)
}

// ChannelPair holds one channel resampled for both drivers.
type ChannelPair struct {
	Driver1 []float64 `json:"driver1"`
	Driver2 []float64 `json:"driver2"`
}

// ChannelQuality reports how many source samples were usable for a channel.
type ChannelQuality struct {
	Driver1Valid int `json:"driver1Valid"`
	Driver1Total int `json:"driver1Total"`
	Driver2Valid int `json:"driver2Valid"`
	Driver2Total int `json:"driver2Total"`
}

// ValidFraction returns the share of valid source samples across both drivers.
func (q ChannelQuality) ValidFraction() float64 {
	total := q.Driver1Total + q.Driver2Total
	if total == 0 {
		return 0
	}
	return float64(q.Driver1Valid+q.Driver2Valid) / float64(total)
}

// AlignedDataset is two laps resampled onto one distance grid.
type AlignedDataset struct {
	Distance []float64                 `json:"distance"`
	Channels map[string]ChannelPair    `json:"channels"`
	Quality  map[string]ChannelQuality `json:"quality"`
}

// Channel returns the pair for a channel, if it was aligned.
func (a *AlignedDataset) Channel(name string) (ChannelPair, bool) {
	if a == nil {
		return ChannelPair{}, false
	}
	p, ok := a.Channels[name]
	return p, ok
}

type DeltaStatistics struct {
	Driver1AheadPct float64 `json:"driver1AheadPct"`
	Driver2AheadPct float64 `json:"driver2AheadPct"`
	EvenPct         float64 `json:"evenPct"`
	MaxGap          float64 `json:"maxGap"`
	AvgDelta        float64 `json:"avgDelta"`
	FinalDelta      float64 `json:"finalDelta"`
	StdDev          float64 `json:"stdDev"`
}

type ZeroCrossing struct {
	Distance float64 `json:"distance"`
	// Index is the left sample of the crossing pair.
	Index int `json:"index"`
}

// Significant change directions, seen from driver 1.
const (
	DirectionGain = "gain"
	DirectionLoss = "loss"
)

type SignificantChange struct {
	Distance  float64 `json:"distance"`
	Delta     float64 `json:"delta"`
	Change    float64 `json:"change"`
	Direction string  `json:"direction"`
}

// Sector owners.
const (
	OwnerDriver1 = "driver1"
	OwnerDriver2 = "driver2"
	OwnerEven    = "even"
)

type SectorResult struct {
	Index   int     `json:"index"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Owner   string  `json:"owner"`
	NetTime float64 `json:"netTime"`
}

// SpeedSummary compares the aligned speed traces.
type SpeedSummary struct {
	MaxDriver1Advantage float64 `json:"maxDriver1Advantage"`
	MaxDriver2Advantage float64 `json:"maxDriver2Advantage"`
	AvgDifference       float64 `json:"avgDifference"`
	Driver1FasterPct    float64 `json:"driver1FasterPct"`
}

// DeltaResult is the cumulative time delta between two aligned laps.
// CumulativeDelta[i] = time_driver2 - time_driver1, so positive values mean driver 1 is ahead.
type DeltaResult struct {
	Distance           []float64           `json:"distance"`
	CumulativeDelta    []float64           `json:"cumulativeDelta"`
	Statistics         DeltaStatistics     `json:"statistics"`
	ZeroCrossings      []ZeroCrossing      `json:"zeroCrossings"`
	SignificantChanges []SignificantChange `json:"significantChanges"`
	Sectors            []SectorResult      `json:"sectors"`
	Speed              *SpeedSummary       `json:"speed,omitempty"`
}

// GPSSample is one raw GPS reading taken from a lap.
type GPSSample struct {
	Latitude  float64
	Longitude float64
	Elevation float64
	Speed     float64
	Time      float64
}

// Trackpoint is a GPS sample placed at cumulative distance S along the path.
type Trackpoint struct {
	S         float64
	Latitude  float64
	Longitude float64
	Elevation float64
	Speed     float64
}

// Corner severities.
const (
	SeverityHairpin = "hairpin"
	SeverityTight   = "tight"
	SeverityMedium  = "medium"
)

type Corner struct {
	Index         int     `json:"index"`
	Distance      float64 `json:"distance"`
	Severity      string  `json:"severity"`
	BearingChange float64 `json:"bearingChange"`
	SpeedDropPct  float64 `json:"speedDropPct"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	// Delta is the cumulative time delta at the corner, when a comparison is available.
	Delta *float64 `json:"delta,omitempty"`
}

// GPSTrack is a smoothed, uniformly spaced reconstruction of a lap path.
type GPSTrack struct {
	Distance  []float64 `json:"distance"`
	Latitude  []float64 `json:"latitude"`
	Longitude []float64 `json:"longitude"`
	Elevation []float64 `json:"elevation"`
	Speed     []float64 `json:"speed"`
	Corners   []Corner  `json:"corners"`
	// Driver is 1 or 2 depending on which lap the path was built from.
	Driver int `json:"driver"`
}

// Len returns the number of resampled points.
func (g *GPSTrack) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Distance)
}

// LapMetrics holds timing for a lap and its sectors.
type LapMetrics struct {
	Lap         int       `json:"lap"`
	LapTime     float64   `json:"lapTime"`
	SectorTime  []float64 `json:"sectorTime,omitempty"`
	SectorDelta []float64 `json:"sectorDelta,omitempty"`
}

// DriverSummary describes one side of a comparison.
type DriverSummary struct {
	Name       string            `json:"name"`
	File       string            `json:"file"`
	Session    string            `json:"session,omitempty"`
	Vehicle    string            `json:"vehicle,omitempty"`
	LapCount   int               `json:"lapCount"`
	Lap        LapSegment        `json:"lap"`
	Laps       []LapMetrics      `json:"laps,omitempty"`
	AvgLapTime float64           `json:"avgLapTime,omitempty"`
	LapTimeStd float64           `json:"lapTimeStd,omitempty"`
	Rows       int               `json:"rows"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ComparisonSummary is the headline outcome of a comparison.
type ComparisonSummary struct {
	FasterDriver   string  `json:"fasterDriver"`
	LapTimeGap     float64 `json:"lapTimeGap"`
	TotalDistance  float64 `json:"totalDistance"`
	DataPoints     int     `json:"dataPoints"`
	ProcessingTime float64 `json:"processingTime"`
}

// Comparison is the full result of comparing two drivers' fastest laps.
type Comparison struct {
	ID       string            `json:"id,omitempty"`
	Driver1  DriverSummary     `json:"driver1"`
	Driver2  DriverSummary     `json:"driver2"`
	Aligned  *AlignedDataset   `json:"aligned"`
	Delta    *DeltaResult      `json:"delta"`
	Track    *GPSTrack         `json:"track"`
	Dynamics *DynamicsResult   `json:"dynamics,omitempty"`
	Summary  ComparisonSummary `json:"summary"`
}
