// Package sensor supplies measurement reports to the tracking pipeline:
// reading radar CSV exports, converting sensor-native spherical readings
// to Cartesian form, and grouping reports into per-target batches by
// temporal proximity.
package sensor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/yogzz2023/jn3/internal/geo"
)

// Report is a single Cartesian position measurement with its timestamp.
// Reports are immutable once created.
type Report struct {
	X, Y, Z float64
	Time    float64
}

// Position returns the report position as a 3-element slice, in the
// order expected by the filter measurement vector.
func (r Report) Position() []float64 {
	return []float64{r.X, r.Y, r.Z}
}

// Radar CSV export column layout. Columns 0-6 carry plot metadata the
// tracker does not use.
const (
	colRange   = 7
	colAzimuth = 8
	colElev    = 9
	colTime    = 10
)

// ReadCSV reads measurements from a radar CSV export at path. Each row
// carries range, azimuth and elevation in degrees plus a timestamp;
// readings are converted to Cartesian on ingest. The header row is
// skipped. An empty file yields an empty slice, not an error.
func ReadCSV(path string) ([]Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open measurements file: %w", err)
	}
	defer f.Close()
	reports, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return reports, nil
}

// ReadFrom reads measurements in the radar CSV export format from r.
func ReadFrom(r io.Reader) ([]Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	// Header row. An empty stream is a recoverable no-op.
	if _, err := cr.Read(); err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var reports []Report
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) <= colTime {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, colTime+1, len(row))
		}

		rng, err := parseField(row, colRange, line, "range")
		if err != nil {
			return nil, err
		}
		az, err := parseField(row, colAzimuth, line, "azimuth")
		if err != nil {
			return nil, err
		}
		el, err := parseField(row, colElev, line, "elevation")
		if err != nil {
			return nil, err
		}
		ts, err := parseField(row, colTime, line, "time")
		if err != nil {
			return nil, err
		}

		x, y, z := geo.SphericalToCartesian(rng, az, el)
		reports = append(reports, Report{X: x, Y: y, Z: z, Time: ts})
	}
	return reports, nil
}

func parseField(row []string, col, line int, name string) (float64, error) {
	v, err := strconv.ParseFloat(row[col], 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: parse %s %q: %w", line, name, row[col], err)
	}
	return v, nil
}
