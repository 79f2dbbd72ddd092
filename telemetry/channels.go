package telemetry

import "strings"

// Canonical channel names. Everything downstream of the parser uses these.
const (
	ChannelTime        = "time"
	ChannelSpeed       = "speed"
	ChannelGPSSpeed    = "gps_speed"
	ChannelDistance    = "distance"
	ChannelGPSDistance = "gps_distance"
	ChannelThrottle    = "throttle"
	ChannelBrake       = "brake"
	ChannelGear        = "gear"
	ChannelRPM         = "rpm"
	ChannelWaterTemp   = "water_temp"
	ChannelOilTemp     = "oil_temp"
	ChannelLatitude    = "latitude"
	ChannelLongitude   = "longitude"
	ChannelAltitude    = "altitude"
	ChannelLateralAcc  = "lateral_acc"
	ChannelInlineAcc   = "inline_acc"
	ChannelSteering    = "steering"
	ChannelYawRate     = "yaw_rate"
	ChannelGPSNsat     = "gps_nsat"
)

// aliases maps lower-cased header spellings seen in RaceStudio-style exports to canonical names.
var aliases = map[string]string{
	"time": ChannelTime,

	"speed":         ChannelSpeed,
	"vehicle speed": ChannelSpeed,
	"speed vehicle": ChannelSpeed,
	"wheel speed":   ChannelSpeed,

	"gps speed": ChannelGPSSpeed,

	"distance on vehicle speed": ChannelDistance,
	"distance":                  ChannelDistance,
	"dist":                      ChannelDistance,

	"distance on gps speed": ChannelGPSDistance,
	"gps distance":          ChannelGPSDistance,

	"throttle pos":      ChannelThrottle,
	"throttle position": ChannelThrottle,
	"throttle":          ChannelThrottle,
	"tps":               ChannelThrottle,

	"brake pos":      ChannelBrake,
	"brake position": ChannelBrake,
	"brake":          ChannelBrake,

	"gear":     ChannelGear,
	"gear pos": ChannelGear,

	"rpm":        ChannelRPM,
	"engine rpm": ChannelRPM,

	"water temp":        ChannelWaterTemp,
	"water temperature": ChannelWaterTemp,

	"oil temp":        ChannelOilTemp,
	"oil temperature": ChannelOilTemp,

	"gps latitude": ChannelLatitude,
	"latitude":     ChannelLatitude,
	"lat":          ChannelLatitude,

	"gps longitude": ChannelLongitude,
	"longitude":     ChannelLongitude,
	"lon":           ChannelLongitude,
	"long":          ChannelLongitude,

	"gps altitude": ChannelAltitude,
	"altitude":     ChannelAltitude,
	"elevation":    ChannelAltitude,

	"lateral acc":          ChannelLateralAcc,
	"lateral acceleration": ChannelLateralAcc,
	"gps latacc":           ChannelLateralAcc,

	"inline acc":       ChannelInlineAcc,
	"longitudinal acc": ChannelInlineAcc,
	"gps lonacc":       ChannelInlineAcc,

	"steering angle": ChannelSteering,
	"steering":       ChannelSteering,
	"steer":          ChannelSteering,

	"yaw rate": ChannelYawRate,
	"gps gyro": ChannelYawRate,

	"gps nsat": ChannelGPSNsat,
	"nsat":     ChannelGPSNsat,
}

// CanonicalName maps a raw header to its canonical channel. Unknown headers come back trimmed.
func CanonicalName(header string) (string, bool) {
	h := strings.TrimSpace(header)
	if c, ok := aliases[strings.ToLower(h)]; ok {
		return c, true
	}
	return h, false
}

// ResolveColumns maps a header row to canonical names in a single pass. When two
// headers resolve to the same channel the first one wins and the later one keeps
// its raw name.
func ResolveColumns(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))

	for i, h := range headers {
		name, known := CanonicalName(h)
		if known && seen[name] {
			name = strings.TrimSpace(h)
		}
		if name == "" {
			continue
		}
		seen[name] = true
		out[i] = name
	}

	return out
}
