// Package compare runs the lap comparison pipeline: parse, segment, align,
// delta, GPS reconstruction and dynamics.
package compare

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lapcompare/config"
	"lapcompare/dynamics"
	"lapcompare/models"
	"lapcompare/telemetry"
	"lapcompare/track"
)

// Pipeline stage names, as passed to a StageObserver.
const (
	StageParse    = "parse"
	StageSegment  = "segment"
	StageAlign    = "align"
	StageDelta    = "delta"
	StageTrack    = "track"
	StageDynamics = "dynamics"
)

// Input is one telemetry export. Name is used for logging and as the
// fallback driver name.
type Input struct {
	Name   string
	Reader io.Reader
}

// StageObserver is told how long each stage took.
type StageObserver func(stage string, d time.Duration)

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithModel replaces the default handling model.
func WithModel(m dynamics.Model) Option {
	return func(e *Engine) {
		if m != nil {
			e.model = m
		}
	}
}

func WithStageObserver(obs StageObserver) Option {
	return func(e *Engine) {
		e.observe = obs
	}
}

// Engine owns the configuration of the pipeline. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	cfg     config.Config
	log     logrus.FieldLogger
	model   dynamics.Model
	parser  *telemetry.Parser
	observe StageObserver
}

// New validates cfg and returns an engine. Invalid configuration is reported
// as *models.ConfigError.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		cfg:   cfg,
		log:   discard,
		model: dynamics.NewDefaultModel(cfg.Dynamics),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.parser = telemetry.NewParser(cfg.Parser, e.log)

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Processed is one parsed and segmented session.
type Processed struct {
	Session      *models.Session
	Segmentation *track.Segmentation
	Summary      models.DriverSummary
}

// ProcessFile parses one export and selects its fastest lap.
func (e *Engine) ProcessFile(ctx context.Context, in Input) (*Processed, error) {
	log := e.log.WithField("file", in.Name)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	sess, err := e.parser.Parse(in.Reader)
	e.stage(StageParse, start)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", in.Name)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	seg, err := track.SegmentLaps(sess, e.cfg.Laps, log)
	e.stage(StageSegment, start)
	if err != nil {
		return nil, errors.Wrapf(err, "could not find a lap in %s", in.Name)
	}

	p := &Processed{
		Session:      sess,
		Segmentation: seg,
		Summary:      summarize(in.Name, sess, seg, e.cfg.Laps.LapMetricsSectors),
	}

	log.WithFields(logrus.Fields{
		"driver":   p.Summary.Name,
		"rows":     len(sess.Points),
		"laps":     len(seg.Laps),
		"fastest":  seg.Fastest.LapTime,
		"source":   seg.Fastest.Source,
		"lap_rows": seg.Fastest.Len(),
	}).Info("processed telemetry")

	return p, nil
}

// FileResult is the outcome of one file in a batch. Err is set instead of
// Summary when the file failed.
type FileResult struct {
	Name    string                `json:"name"`
	Summary *models.DriverSummary `json:"summary,omitempty"`
	Err     error                 `json:"-"`
}

// ProcessBatch processes files concurrently. A failing file does not affect the
// others; results keep the input order.
func (e *Engine) ProcessBatch(ctx context.Context, inputs []Input) []FileResult {
	results := make([]FileResult, len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i].Name = in.Name
			p, err := e.ProcessFile(ctx, in)
			if err != nil {
				e.log.WithField("file", in.Name).WithError(err).Warn("file failed")
				results[i].Err = err
				return nil
			}
			results[i].Summary = &p.Summary
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) stage(name string, start time.Time) {
	if e.observe != nil {
		e.observe(name, time.Since(start))
	}
}

func summarize(name string, sess *models.Session, seg *track.Segmentation, sectors int) models.DriverSummary {
	s := models.DriverSummary{
		Name:     telemetry.DriverName(sess.Metadata, name),
		File:     name,
		LapCount: len(seg.Laps),
		Lap:      seg.Fastest,
		Rows:     len(sess.Points),
		Metadata: sess.Metadata.Map(),
	}
	s.Session, _ = sess.Metadata.Get(telemetry.MetaSession)
	s.Vehicle, _ = sess.Metadata.Get(telemetry.MetaVehicle)

	if len(seg.Laps) > 0 {
		s.Laps = track.ComputeLapMetrics(seg.Laps, seg.Fastest.DistanceChannel, sectors)
		s.AvgLapTime, s.LapTimeStd = track.LapTimeStats(seg.Laps)
	}
	return s
}
