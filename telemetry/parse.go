package telemetry

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"lapcompare/config"
	"lapcompare/models"
)

// Metadata keys whose value spans every remaining cell of the row.
const (
	MetaBeaconMarkers = "Beacon Markers"
	MetaSegmentTimes  = "Segment Times"
)

var multiValueKeys = map[string]bool{
	MetaBeaconMarkers: true,
	MetaSegmentTimes:  true,
}

// Parser reads RaceStudio-style CSV exports.
type Parser struct {
	cfg config.ParserConfig
	log logrus.FieldLogger
}

// NewParser returns a parser with the given row windows. A nil logger discards diagnostics.
func NewParser(cfg config.ParserConfig, log logrus.FieldLogger) *Parser {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Parser{cfg: cfg, log: log}
}

// Parse reads r with the default row windows.
func Parse(r io.Reader) (*models.Session, error) {
	return NewParser(config.Default().Parser, nil).Parse(r)
}

// Parse reads one export into a Session. It fails with *models.ParseError when no
// header row qualifies; a header followed by no usable rows is a valid, empty session.
func (p *Parser) Parse(r io.Reader) (*models.Session, error) {
	lines, err := readLines(utfbom.SkipOnly(r))
	if err != nil {
		return nil, errors.Wrap(err, "telemetry: reading export")
	}

	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = splitLine(line)
	}

	sess := &models.Session{Metadata: parseMetadata(rows, p.cfg.MetadataRows)}

	header := findHeader(rows, p.cfg.HeaderScanStart, p.cfg.HeaderScanEnd)
	if header < 0 {
		return nil, &models.ParseError{
			Line:   p.cfg.HeaderScanEnd + 1,
			Reason: "no header row with a Time column in rows " +
				strconv.Itoa(p.cfg.HeaderScanStart) + "-" + strconv.Itoa(p.cfg.HeaderScanEnd),
		}
	}

	sess.Headers = trimAll(rows[header])
	sess.Columns = ResolveColumns(sess.Headers)
	if header+1 < len(rows) {
		sess.Units = trimAll(rows[header+1])
	}

	timeCol := -1
	for i, c := range sess.Columns {
		if c == ChannelTime {
			timeCol = i
			break
		}
	}

	minFields := len(sess.Columns) - p.cfg.FieldSlack
	var rejected int

	for i := header + 2; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, ",") {
			rejected++
			continue
		}
		fields := rows[i]
		if len(fields) < minFields || timeCol < 0 || timeCol >= len(fields) {
			rejected++
			continue
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(fields[timeCol]), 64)
		if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
			rejected++
			continue
		}

		rec := make(models.Record, len(sess.Columns))
		for j, name := range sess.Columns {
			if name == "" || j >= len(fields) {
				continue
			}
			rec[name] = strings.TrimSpace(fields[j])
		}
		sess.Points = append(sess.Points, rec)
	}

	p.log.WithFields(logrus.Fields{
		"header_row": header,
		"columns":    len(sess.Columns),
		"records":    len(sess.Points),
		"rejected":   rejected,
		"metadata":   sess.Metadata.Len(),
	}).Debug("parsed telemetry export")

	return sess, nil
}

// readLines reads every line without its terminator. Lines of any length are accepted.
func readLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 || err == nil {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// splitLine splits one CSV line. Quoted fields go through encoding/csv; a line the
// csv reader rejects falls back to a plain comma split.
func splitLine(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if !strings.Contains(line, `"`) {
		return strings.Split(line, ",")
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rec, err := cr.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return rec
}

func parseMetadata(rows [][]string, n int) *models.Metadata {
	meta := models.NewMetadata()
	for i := 0; i < n && i < len(rows); i++ {
		row := rows[i]
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSuffix(strings.TrimSpace(row[0]), ":")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		if multiValueKeys[key] {
			var vals []string
			for _, c := range row[1:] {
				if c = strings.TrimSpace(c); c != "" {
					vals = append(vals, c)
				}
			}
			if len(vals) > 0 {
				meta.Set(key, strings.Join(vals, ","))
			}
			continue
		}
		if v := strings.TrimSpace(row[1]); v != "" {
			meta.Set(key, v)
		}
	}
	return meta
}

// findHeader returns the first row in [from, to] holding a "Time" cell with a
// GPS/Speed/Nsat cell on the same or an adjacent row, or -1.
func findHeader(rows [][]string, from, to int) int {
	for i := from; i <= to && i < len(rows); i++ {
		if !hasCell(rows[i], func(c string) bool { return c == "Time" }) {
			continue
		}
		for j := i - 1; j <= i+1; j++ {
			if j < 0 || j >= len(rows) {
				continue
			}
			if hasCell(rows[j], isChannelHint) {
				return i
			}
		}
	}
	return -1
}

func isChannelHint(c string) bool {
	return strings.Contains(c, "GPS") || strings.Contains(c, "Speed") || strings.Contains(c, "Nsat")
}

func hasCell(row []string, match func(string) bool) bool {
	for _, c := range row {
		if match(strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
