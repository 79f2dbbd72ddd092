package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"

	"lapcompare/compare"
	"lapcompare/config"
	"lapcompare/models"
	"lapcompare/telemetry"
)

func main() {
	var filePaths multiFlag
	flag.Var(&filePaths, "file", "Path to telemetry CSV export (repeat twice: driver 1, then driver 2)")
	configPath := flag.String("config", "", "Path to a YAML threshold config (defaults are used when empty)")
	format := flag.String("format", "json", "Output format: json or csv")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if len(filePaths) != 2 {
		log.Fatalf("exactly two -file arguments are required, got %d", len(filePaths))
	}
	if *format != "json" && *format != "csv" {
		log.Fatalf("unknown -format %q", *format)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.WithError(err).Fatal("could not load config")
		}
	}

	engine, err := compare.New(cfg, compare.WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	inputs := make([]compare.Input, 0, len(filePaths))
	for _, path := range filePaths {
		f, err := os.Open(path)
		if err != nil {
			log.WithError(err).Fatalf("could not open %s", path)
		}
		defer f.Close()

		if st, err := f.Stat(); err == nil {
			log.WithField("file", path).Debugf("reading %s", humanize.Bytes(uint64(st.Size())))
		}
		inputs = append(inputs, compare.Input{Name: path, Reader: f})
	}

	c, err := engine.Compare(context.Background(), inputs[0], inputs[1])
	if err != nil {
		log.WithError(err).Error("comparison failed")
		os.Exit(1)
	}

	for _, d := range []models.DriverSummary{c.Driver1, c.Driver2} {
		log.WithFields(logrus.Fields{
			"file":   d.File,
			"laps":   d.LapCount,
			"source": d.Lap.Source,
		}).Infof("%s: fastest lap %s", d.Name, lapDuration(d.Lap.LapTime))
	}
	log.Infof("faster: %s by %s over %.0fm", c.Summary.FasterDriver, lapDuration(c.Summary.LapTimeGap), c.Summary.TotalDistance)

	switch *format {
	case "csv":
		err = writeDeltaCSV(os.Stdout, c)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(c)
	}
	if err != nil {
		log.WithError(err).Error("could not write output")
		os.Exit(1)
	}
}

// writeDeltaCSV writes one Distance,Driver1Time,Driver2Time,Delta row per grid point.
func writeDeltaCSV(w io.Writer, c *models.Comparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Distance", "Driver1Time", "Driver2Time", "Delta"}); err != nil {
		return err
	}

	tm, ok := c.Aligned.Channel(telemetry.ChannelTime)
	if !ok || c.Delta == nil {
		cw.Flush()
		return cw.Error()
	}
	for i, x := range c.Delta.Distance {
		row := []string{ftoa(x), ftoa(tm.Driver1[i]), ftoa(tm.Driver2[i]), ftoa(c.Delta.CumulativeDelta[i])}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func lapDuration(seconds float64) string {
	return durafmt.Parse(time.Duration(math.Round(seconds*1000)) * time.Millisecond).String()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

type multiFlag []string

func (m *multiFlag) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
