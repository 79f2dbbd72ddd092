package telemetry

import (
	"regexp"
	"strconv"
	"strings"

	"lapcompare/models"
)

// Well-known metadata keys.
const (
	MetaRacer   = "Racer"
	MetaSession = "Session"
	MetaVehicle = "Vehicle"
)

// DriverName returns the Racer entry, or fallback when it is missing or blank.
func DriverName(meta *models.Metadata, fallback string) string {
	if v, ok := meta.Get(MetaRacer); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// BeaconMarkers returns the beacon times in seconds. Unparsable entries are skipped.
func BeaconMarkers(meta *models.Metadata) []float64 {
	raw, ok := meta.Get(MetaBeaconMarkers)
	if !ok || raw == "" {
		return nil
	}
	var out []float64
	for _, f := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

var segmentTimeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\.(\d+)`)

// SegmentTimes returns the M:SS.s segment times converted to seconds.
func SegmentTimes(meta *models.Metadata) []float64 {
	raw, ok := meta.Get(MetaSegmentTimes)
	if !ok || raw == "" {
		return nil
	}
	var out []float64
	for _, f := range strings.Split(raw, ",") {
		if v, ok := ParseLapTime(f); ok {
			out = append(out, v)
		}
	}
	return out
}

// ParseLapTime converts "M:SS.fff" to seconds, keeping every fractional digit.
func ParseLapTime(s string) (float64, bool) {
	m := segmentTimeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	min, _ := strconv.Atoi(m[1])
	sec, _ := strconv.Atoi(m[2])
	frac, _ := strconv.ParseFloat("0."+m[3], 64)
	return float64(min*60+sec) + frac, true
}
