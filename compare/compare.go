package compare

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lapcompare/align"
	"lapcompare/delta"
	"lapcompare/dynamics"
	"lapcompare/models"
	"lapcompare/telemetry"
	"lapcompare/track"
)

// Compare processes both exports concurrently and compares their fastest laps.
// Any failure aborts the comparison with the underlying error kind, which
// errors.As still finds through the added context.
func (e *Engine) Compare(ctx context.Context, a, b Input) (*models.Comparison, error) {
	started := time.Now()

	var p1, p2 *Processed
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p1, err = e.ProcessFile(gctx, a)
		return errors.Wrap(err, "driver 1")
	})
	g.Go(func() error {
		var err error
		p2, err = e.ProcessFile(gctx, b)
		return errors.Wrap(err, "driver 2")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.CompareProcessed(ctx, p1, p2, started)
}

// CompareProcessed runs the comparison stages on two already processed sessions.
// started is used for the reported processing time; a zero value means now.
func (e *Engine) CompareProcessed(ctx context.Context, p1, p2 *Processed, started time.Time) (*models.Comparison, error) {
	if started.IsZero() {
		started = time.Now()
	}
	lap1, lap2 := p1.Segmentation.Fastest, p2.Segmentation.Fastest
	log := e.log.WithFields(logrus.Fields{
		"driver1": p1.Summary.Name,
		"driver2": p2.Summary.Name,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	aligned, err := align.Align(lap1, lap2, e.cfg.Alignment, log)
	e.stage(StageAlign, start)
	if err != nil {
		return nil, errors.Wrap(err, "could not align laps")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	d, err := delta.Compute(aligned, e.cfg.Delta)
	e.stage(StageDelta, start)
	if err != nil {
		return nil, errors.Wrap(err, "could not compute delta")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	gps, err := e.reconstruct(lap1, lap2, log)
	e.stage(StageTrack, start)
	if err != nil {
		return nil, errors.Wrap(err, "could not reconstruct track")
	}
	if gps != nil {
		scale := 1.0
		if last := gps.Len() - 1; last > 0 && len(d.Distance) > 0 && d.Distance[len(d.Distance)-1] > 0 {
			scale = d.Distance[len(d.Distance)-1] / gps.Distance[last]
		}
		gps.Corners = track.MapCornersToGrid(gps.Corners, d.Distance, d.CumulativeDelta, scale)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	dyn := dynamics.Analyze(aligned, e.model, e.cfg.Dynamics, d.Sectors)
	e.stage(StageDynamics, start)

	c := &models.Comparison{
		Driver1:  p1.Summary,
		Driver2:  p2.Summary,
		Aligned:  aligned,
		Delta:    d,
		Track:    gps,
		Dynamics: dyn,
		Summary:  summary(lap1, lap2, aligned, started),
	}

	log.WithFields(logrus.Fields{
		"faster": c.Summary.FasterDriver,
		"gap":    c.Summary.LapTimeGap,
		"points": c.Summary.DataPoints,
	}).Info("compared laps")

	return c, nil
}

// reconstruct builds the track from driver 1's GPS and falls back to driver 2.
// Laps without GPS channels yield no track; GPS that is present but invalid on
// both sides is an error.
func (e *Engine) reconstruct(lap1, lap2 models.LapSegment, log logrus.FieldLogger) (*models.GPSTrack, error) {
	var firstErr error
	tried := false

	for i, lap := range []models.LapSegment{lap1, lap2} {
		if !hasGPS(lap) {
			continue
		}
		tried = true

		gps, err := track.Reconstruct(track.GPSSamples(lap), e.cfg.GPS)
		if err == nil {
			gps.Driver = i + 1
			log.WithFields(logrus.Fields{
				"driver":  gps.Driver,
				"points":  gps.Len(),
				"corners": len(gps.Corners),
			}).Debug("reconstructed track")
			return gps, nil
		}

		log.WithError(err).WithField("driver", i+1).Warn("gps reconstruction failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	if !tried {
		log.Debug("no gps channels, skipping track reconstruction")
		return nil, nil
	}
	return nil, firstErr
}

func hasGPS(lap models.LapSegment) bool {
	for _, p := range lap.Points {
		_, okLat := p[telemetry.ChannelLatitude]
		_, okLon := p[telemetry.ChannelLongitude]
		if okLat && okLon {
			return true
		}
	}
	return false
}

func summary(lap1, lap2 models.LapSegment, aligned *models.AlignedDataset, started time.Time) models.ComparisonSummary {
	s := models.ComparisonSummary{
		LapTimeGap:     math.Abs(lap1.LapTime - lap2.LapTime),
		DataPoints:     len(aligned.Distance),
		ProcessingTime: time.Since(started).Seconds(),
		FasterDriver:   models.OwnerEven,
	}
	if n := len(aligned.Distance); n > 0 {
		s.TotalDistance = aligned.Distance[n-1]
	}
	switch {
	case lap1.LapTime < lap2.LapTime:
		s.FasterDriver = models.OwnerDriver1
	case lap2.LapTime < lap1.LapTime:
		s.FasterDriver = models.OwnerDriver2
	}
	return s
}
