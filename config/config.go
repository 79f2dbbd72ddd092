// Package config holds every tunable threshold of the comparison pipeline.
//
// Default returns the documented defaults; Load overlays a YAML file on top
// of them and validates the result. Invalid values surface as
// *models.ConfigError.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"lapcompare/models"
)

// ParserConfig bounds the row windows of the CSV export layout.
type ParserConfig struct {
	// MetadataRows is the number of leading rows read as key/value metadata.
	MetadataRows int `yaml:"metadataRows" validate:"gte=0"`
	// HeaderScanStart and HeaderScanEnd (inclusive) delimit the rows searched for the header.
	HeaderScanStart int `yaml:"headerScanStart" validate:"gte=0"`
	HeaderScanEnd   int `yaml:"headerScanEnd" validate:"gtefield=HeaderScanStart"`
	// FieldSlack is how many trailing fields a data row may be missing.
	FieldSlack int `yaml:"fieldSlack" validate:"gte=0"`
}

// LapConfig drives lap segmentation and fastest-lap selection.
type LapConfig struct {
	ResetDrop        float64 `yaml:"resetDrop" validate:"gt=0"`
	MinLapPoints     int     `yaml:"minLapPoints" validate:"gt=0"`
	MinFastestPoints int     `yaml:"minFastestPoints" validate:"gt=0"`
	MinLapTime       float64 `yaml:"minLapTime" validate:"gte=0,ltfield=MaxLapTime"`
	MaxLapTime       float64 `yaml:"maxLapTime" validate:"gt=0"`
	UseBeacons       bool    `yaml:"useBeacons"`

	FallbackSpeed     float64 `yaml:"fallbackSpeed" validate:"gte=0"`
	FallbackMinRun    int     `yaml:"fallbackMinRun" validate:"gt=0"`
	FallbackScanFrom  float64 `yaml:"fallbackScanFrom" validate:"gte=0,lte=1,ltfield=FallbackScanTo"`
	FallbackScanTo    float64 `yaml:"fallbackScanTo" validate:"gte=0,lte=1"`
	FallbackScanStep  int     `yaml:"fallbackScanStep" validate:"gt=0"`
	WindowStart       float64 `yaml:"windowStart" validate:"gte=0,lte=1"`
	WindowPoints      int     `yaml:"windowPoints" validate:"gt=0"`
	WindowMinPoints   int     `yaml:"windowMinPoints" validate:"gte=0"`
	LapMetricsSectors int     `yaml:"lapMetricsSectors" validate:"gte=0"`
}

// Range is an inclusive plausibility band for a channel.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// AlignmentConfig drives distance alignment.
type AlignmentConfig struct {
	Spacing  float64          `yaml:"spacing" validate:"gt=0"`
	Channels []string         `yaml:"channels" validate:"required,min=1,dive,required"`
	Limits   map[string]Range `yaml:"limits"`
	// PercentChannels are rescaled to 0-100 when a lap reports them as 0-1.
	PercentChannels []string `yaml:"percentChannels"`
}

// DeltaConfig drives the delta calculator.
type DeltaConfig struct {
	SignificantChange float64 `yaml:"significantChange" validate:"gt=0"`
	Sectors           int     `yaml:"sectors" validate:"gt=0"`
	EvenBand          float64 `yaml:"evenBand" validate:"gte=0"`
}

// GPSConfig drives track reconstruction and corner detection.
type GPSConfig struct {
	MinValidFraction float64 `yaml:"minValidFraction" validate:"gte=0,lte=1"`
	MinVariation     float64 `yaml:"minVariation" validate:"gte=0"`
	SmoothingWindow  int     `yaml:"smoothingWindow" validate:"gt=0"`
	Spacing          float64 `yaml:"spacing" validate:"gt=0"`
	MinSamples       int     `yaml:"minSamples" validate:"gte=2,ltefield=MaxSamples"`
	MaxSamples       int     `yaml:"maxSamples" validate:"gte=2"`

	CornerMargin      int     `yaml:"cornerMargin" validate:"gt=0"`
	CornerBearing     float64 `yaml:"cornerBearing" validate:"gt=0,lt=180"`
	CornerSpeedWindow int     `yaml:"cornerSpeedWindow" validate:"gt=0"`
	CornerSpeedDrop   float64 `yaml:"cornerSpeedDrop" validate:"gte=0,lt=1"`
	MaxCorners        int     `yaml:"maxCorners" validate:"gte=0"`
	HairpinAngle      float64 `yaml:"hairpinAngle" validate:"gtfield=TightAngle"`
	TightAngle        float64 `yaml:"tightAngle" validate:"gtfield=CornerBearing"`
}

// DynamicsConfig drives the default cornering model and action classifier.
type DynamicsConfig struct {
	NeutralBand       float64 `yaml:"neutralBand" validate:"gt=0"`
	CorrectionRate    float64 `yaml:"correctionRate" validate:"gt=0"`
	LowSpeed          float64 `yaml:"lowSpeed" validate:"gte=0"`
	BalanceMargin     float64 `yaml:"balanceMargin" validate:"gte=0"`
	FullThrottle      float64 `yaml:"fullThrottle" validate:"gt=0,lte=100"`
	BrakeThreshold    float64 `yaml:"brakeThreshold" validate:"gte=0"`
	TrailThrottle     float64 `yaml:"trailThrottle" validate:"gte=0"`
	CoastingThreshold float64 `yaml:"coastingThreshold" validate:"gte=0"`

	// Corner zones sit below CornerSpeedRatio of a driver's average speed; exits
	// start below ExitSpeedRatio of both drivers' average. Speeds are km/h.
	CornerSpeedRatio float64 `yaml:"cornerSpeedRatio" validate:"gt=0,lte=1"`
	HeavyBrake       float64 `yaml:"heavyBrake" validate:"gte=0,lte=100"`
	ExitSpeedRatio   float64 `yaml:"exitSpeedRatio" validate:"gt=0,lte=1"`
	TopSpeed         float64 `yaml:"topSpeed" validate:"gt=0"`
}

// ServerConfig is read by the HTTP service only.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes" validate:"gt=0"`
	DBPath         string        `yaml:"dbPath" validate:"required"`
}

// Config is the root configuration.
type Config struct {
	Parser    ParserConfig    `yaml:"parser"`
	Laps      LapConfig       `yaml:"laps"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Delta     DeltaConfig     `yaml:"delta"`
	GPS       GPSConfig       `yaml:"gps"`
	Dynamics  DynamicsConfig  `yaml:"dynamics"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Parser: ParserConfig{
			MetadataRows:    13,
			HeaderScanStart: 13,
			HeaderScanEnd:   19,
			FieldSlack:      5,
		},
		Laps: LapConfig{
			ResetDrop:         1000,
			MinLapPoints:      200,
			MinFastestPoints:  100,
			MinLapTime:        30,
			MaxLapTime:        300,
			UseBeacons:        false,
			FallbackSpeed:     10,
			FallbackMinRun:    500,
			FallbackScanFrom:  0.1,
			FallbackScanTo:    0.8,
			FallbackScanStep:  100,
			WindowStart:       0.3,
			WindowPoints:      1000,
			WindowMinPoints:   100,
			LapMetricsSectors: 3,
		},
		Alignment: AlignmentConfig{
			Spacing:  10,
			Channels: []string{"time", "speed", "throttle", "brake", "gear", "rpm", "water_temp", "oil_temp", "steering", "lateral_acc", "yaw_rate"},
			Limits: map[string]Range{
				"speed":      {Min: 0, Max: 300},
				"rpm":        {Min: 0, Max: 12000},
				"water_temp": {Min: 0, Max: 150},
				"oil_temp":   {Min: 0, Max: 150},
				"throttle":   {Min: -5, Max: 105},
				"brake":      {Min: -5, Max: 105},
			},
			PercentChannels: []string{"throttle", "brake"},
		},
		Delta: DeltaConfig{
			SignificantChange: 1.0,
			Sectors:           3,
			EvenBand:          0.1,
		},
		GPS: GPSConfig{
			MinValidFraction:  0.5,
			MinVariation:      1e-4,
			SmoothingWindow:   5,
			Spacing:           10,
			MinSamples:        100,
			MaxSamples:        1000,
			CornerMargin:      10,
			CornerBearing:     30,
			CornerSpeedWindow: 5,
			CornerSpeedDrop:   0.10,
			MaxCorners:        8,
			HairpinAngle:      90,
			TightAngle:        60,
		},
		Dynamics: DynamicsConfig{
			NeutralBand:       0.1,
			CorrectionRate:    10,
			LowSpeed:          50,
			BalanceMargin:     5,
			FullThrottle:      95,
			BrakeThreshold:    5,
			TrailThrottle:     15,
			CoastingThreshold: 5,
			CornerSpeedRatio:  0.8,
			HeavyBrake:        50,
			ExitSpeedRatio:    0.7,
			TopSpeed:          150,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 45 * time.Second,
			MaxUploadBytes: 50 << 20,
			DBPath:         "lapcompare.db",
		},
	}
}

// Load reads a YAML file over the defaults and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: could not read %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates it. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, &models.ConfigError{Reason: "invalid yaml", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks every threshold. The first violation is returned as *models.ConfigError.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &models.ConfigError{
				Field:  fe.Namespace(),
				Reason: "failed '" + fe.ActualTag() + "' check (" + fe.Param() + ")",
				Err:    err,
			}
		}
		return &models.ConfigError{Reason: "validation failed", Err: err}
	}

	for name, r := range c.Alignment.Limits {
		if r.Min >= r.Max {
			return &models.ConfigError{Field: "Config.Alignment.Limits." + name, Reason: "min must be below max"}
		}
	}

	return nil
}
