package track

import (
	"fmt"
	"math"

	"lapcompare/config"
	"lapcompare/models"
)

// EarthRadius is the mean Earth radius in meters used for great-circle distances.
const EarthRadius = 6371000.0

// Reconstruct turns the raw GPS samples of one lap into a smoothed polyline with
// uniform distance spacing and detected corners. Implausible or static coordinates
// fail with *models.GPSValidationError.
func Reconstruct(samples []models.GPSSample, cfg config.GPSConfig) (*models.GPSTrack, error) {
	valid, err := validateGPS(samples, cfg)
	if err != nil {
		return nil, err
	}

	lat := make([]float64, len(valid))
	lon := make([]float64, len(valid))
	ele := make([]float64, len(valid))
	spd := make([]float64, len(valid))
	for i, s := range valid {
		lat[i] = s.Latitude
		lon[i] = s.Longitude
		ele[i] = cleanFloat(s.Elevation, 0)
		spd[i] = cleanFloat(s.Speed, 0)
	}

	w := cfg.SmoothingWindow
	smoothed := make([]models.GPSSample, len(valid))
	lat, lon, ele, spd = SmoothSeries(lat, w), SmoothSeries(lon, w), SmoothSeries(ele, w), SmoothSeries(spd, w)
	for i := range smoothed {
		smoothed[i] = models.GPSSample{Latitude: lat[i], Longitude: lon[i], Elevation: ele[i], Speed: spd[i]}
	}

	path, err := BuildTrack(smoothed)
	if err != nil {
		return nil, err
	}
	total := path[len(path)-1].S
	if total <= 0 {
		return nil, &models.GPSValidationError{Reason: "path has zero length"}
	}

	n := int(clamp(math.Floor(total/cfg.Spacing)+1, float64(cfg.MinSamples), float64(cfg.MaxSamples)))
	points := resampleTrack(path, n)

	gt := &models.GPSTrack{
		Distance:  make([]float64, n),
		Latitude:  make([]float64, n),
		Longitude: make([]float64, n),
		Elevation: make([]float64, n),
		Speed:     make([]float64, n),
	}
	for i, p := range points {
		gt.Distance[i] = p.S
		gt.Latitude[i] = p.Latitude
		gt.Longitude[i] = p.Longitude
		gt.Elevation[i] = p.Elevation
		gt.Speed[i] = p.Speed
	}
	gt.Corners = DetectCorners(points, cfg)

	return gt, nil
}

// validateGPS keeps the plausible samples and rejects laps where too few samples
// are plausible or the coordinates barely move.
func validateGPS(samples []models.GPSSample, cfg config.GPSConfig) ([]models.GPSSample, error) {
	if len(samples) == 0 {
		return nil, &models.GPSValidationError{Reason: "no GPS samples"}
	}

	valid := make([]models.GPSSample, 0, len(samples))
	for _, s := range samples {
		if plausible(s.Latitude, s.Longitude) {
			valid = append(valid, s)
		}
	}

	frac := float64(len(valid)) / float64(len(samples))
	if frac < cfg.MinValidFraction || len(valid) < 2 {
		return nil, &models.GPSValidationError{
			Reason: fmt.Sprintf("only %d of %d samples have plausible coordinates", len(valid), len(samples)),
		}
	}

	minLat, maxLat := valid[0].Latitude, valid[0].Latitude
	minLon, maxLon := valid[0].Longitude, valid[0].Longitude
	for _, s := range valid[1:] {
		minLat, maxLat = math.Min(minLat, s.Latitude), math.Max(maxLat, s.Latitude)
		minLon, maxLon = math.Min(minLon, s.Longitude), math.Max(maxLon, s.Longitude)
	}
	if maxLat-minLat < cfg.MinVariation && maxLon-minLon < cfg.MinVariation {
		return nil, &models.GPSValidationError{Reason: "coordinates are static"}
	}

	return valid, nil
}

func plausible(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 180 && lat != 0 && lon != 0
}

// BuildTrack places each sample at its cumulative great-circle distance from the first.
func BuildTrack(samples []models.GPSSample) ([]models.Trackpoint, error) {
	if len(samples) < 2 {
		return nil, &models.GPSValidationError{Reason: "not enough samples"}
	}

	track := make([]models.Trackpoint, len(samples))
	dist := 0.0

	for i, cur := range samples {
		if i > 0 {
			prev := samples[i-1]
			dist += Haversine(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		}
		track[i] = models.Trackpoint{
			S:         dist,
			Latitude:  cur.Latitude,
			Longitude: cur.Longitude,
			Elevation: cur.Elevation,
			Speed:     cur.Speed,
		}
	}

	return track, nil
}

// resampleTrack resamples the path to 'samples' points evenly spaced by S.
func resampleTrack(points []models.Trackpoint, samples int) []models.Trackpoint {
	if len(points) < 2 || samples < 2 {
		return nil
	}

	s0 := points[0].S
	length := points[len(points)-1].S - s0
	if length <= 0 {
		return nil
	}

	out := make([]models.Trackpoint, samples)

	j := 0
	for i := 0; i < samples; i++ {
		targetLocal := float64(i) * length / float64(samples-1)
		targetS := s0 + targetLocal

		for j < len(points)-1 && points[j+1].S < targetS {
			j++
		}

		if j == len(points)-1 {
			out[i] = points[len(points)-1]
			out[i].S = targetLocal
			continue
		}

		p1 := points[j]
		p2 := points[j+1]

		denom := p2.S - p1.S
		t := 0.0
		if denom > 0 {
			t = clamp((targetS-p1.S)/denom, 0, 1)
		}

		out[i] = models.Trackpoint{
			S:         targetLocal,
			Latitude:  p1.Latitude + t*(p2.Latitude-p1.Latitude),
			Longitude: p1.Longitude + t*(p2.Longitude-p1.Longitude),
			Elevation: p1.Elevation + t*(p2.Elevation-p1.Elevation),
			Speed:     p1.Speed + t*(p2.Speed-p1.Speed),
		}
	}

	return out
}

// Haversine returns the great-circle distance in meters between two coordinates in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	a := sinLat*sinLat + math.Cos(la1)*math.Cos(la2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// Bearing returns the initial compass bearing in degrees [0, 360) from the first point to the second.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func cleanFloat(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
