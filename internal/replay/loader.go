// Package replay loads recorded metric sessions and replays them through
// the classification pipeline, either paced against the recorded
// timestamps or in one batch pass.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/pkg/models"
)

// Required metric columns in a recorded session file, mapped to canonical
// metric names. A row missing any of these is dropped entirely.
var metricColumns = map[string]string{
	"PM.Engagement.Scaled": models.MetricEngagement,
	"PM.Excitement.Scaled": models.MetricExcitement,
	"PM.Stress.Scaled":     models.MetricStress,
	"PM.Relaxation.Scaled": models.MetricRelaxation,
	"PM.Interest.Scaled":   models.MetricInterest,
}

const timestampColumn = "Timestamp"

var (
	startTimestampRe = regexp.MustCompile(`start timestamp:([0-9.]+)`)
	pmRateRe         = regexp.MustCompile(`sampling rate:[^,]*pm_([0-9]+)`)
)

// Row is one valid sample from a recording.
type Row struct {
	Timestamp float64
	Metrics   models.MetricVector
}

// Recording is a parsed session file: ordered valid rows plus the header
// metadata.
type Recording struct {
	Path           string
	SamplingRate   int     // performance-metric rate in Hz, 0 if absent
	StartTimestamp float64 // from the metadata header, 0 if absent
	Rows           []Row
	TotalRows      int // row count before validity filtering
}

// Summary holds descriptive statistics for a recording.
type Summary struct {
	TotalRows    int     `json:"total_rows"`
	ValidRows    int     `json:"valid_rows"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Duration     float64 `json:"duration"`
	SamplingRate int     `json:"sampling_rate"`
}

// LoadRecording parses a recorded session file. The first line is a
// metadata header; the second line carries column names; rows missing any
// required metric column are filtered out before pacing decisions.
func LoadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	rec := &Recording{Path: path}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Metadata header line.
	meta, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read metadata header: %w", err)
	}
	metaLine := strings.Join(meta, ",")
	if m := startTimestampRe.FindStringSubmatch(metaLine); m != nil {
		rec.StartTimestamp, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := pmRateRe.FindStringSubmatch(metaLine); m != nil {
		rec.SamplingRate, _ = strconv.Atoi(m[1])
	}

	// Column header line.
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read column header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	tsIdx, ok := colIndex[timestampColumn]
	if !ok {
		return nil, fmt.Errorf("recording %s has no %s column", path, timestampColumn)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row: skip, never fail the load.
			log.Debug().Err(err).Str("path", path).Msg("Skipping malformed row")
			continue
		}
		rec.TotalRows++

		row, ok := parseRow(record, colIndex, tsIdx)
		if !ok {
			continue
		}
		rec.Rows = append(rec.Rows, row)
	}

	log.Debug().
		Str("path", path).
		Int("totalRows", rec.TotalRows).
		Int("validRows", len(rec.Rows)).
		Int("samplingRate", rec.SamplingRate).
		Msg("Loaded recording")

	return rec, nil
}

// parseRow extracts a valid sample, or reports false if any required
// column is missing or non-numeric.
func parseRow(record []string, colIndex map[string]int, tsIdx int) (Row, bool) {
	if tsIdx >= len(record) {
		return Row{}, false
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(record[tsIdx]), 64)
	if err != nil {
		return Row{}, false
	}

	vec := make(models.MetricVector, len(metricColumns))
	for col, name := range metricColumns {
		idx, ok := colIndex[col]
		if !ok || idx >= len(record) {
			return Row{}, false
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return Row{}, false
		}
		vec[name] = models.Clamp01(val)
	}

	return Row{Timestamp: ts, Metrics: vec}, true
}

// Summary returns descriptive statistics for the recording.
func (r *Recording) Summary() Summary {
	s := Summary{
		TotalRows:    r.TotalRows,
		ValidRows:    len(r.Rows),
		SamplingRate: r.SamplingRate,
	}
	if len(r.Rows) > 0 {
		s.StartTime = r.Rows[0].Timestamp
		s.EndTime = r.Rows[len(r.Rows)-1].Timestamp
		if s.EndTime > s.StartTime {
			s.Duration = s.EndTime - s.StartTime
		}
	}
	return s
}

// ListRecordings returns the CSV files in dir, sorted by name.
func ListRecordings(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
