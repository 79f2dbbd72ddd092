package models

import "fmt"

// ParseError means the CSV export could not be read as telemetry.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
	}
	return "parse error: " + e.Reason
}

// InsufficientDataError means no usable lap survived segmentation.
type InsufficientDataError struct {
	Points int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data (%d points): %s", e.Points, e.Reason)
}

// AlignmentError means two laps could not be put on a common distance grid.
type AlignmentError struct {
	Channel string
	Reason  string
}

func (e *AlignmentError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("alignment error on %q: %s", e.Channel, e.Reason)
	}
	return "alignment error: " + e.Reason
}

// GPSValidationError means the GPS channels are implausible or static.
type GPSValidationError struct {
	Reason string
}

func (e *GPSValidationError) Error() string {
	return "gps validation error: " + e.Reason
}

// ConfigError means a threshold configuration is invalid.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
	case e.Err != nil:
		return "config error: " + e.Err.Error()
	}
	return "config error: " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
