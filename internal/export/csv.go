// Package export writes analysis output as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/ionmd/internal/analysis"
)

// TimeSeries pairs sample times with values.
func TimeSeries(times, values []float64) []analysis.Point {
	n := min(len(times), len(values))
	pts := make([]analysis.Point, n)
	for i := range pts {
		pts[i] = analysis.Point{X: times[i], Y: values[i]}
	}
	return pts
}

// PointsCSV writes one row per point under a two-column header.
func PointsCSV(w io.Writer, xName, yName string, points []analysis.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{xName, yName}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes points to path, or to stdout when path is "-".
func WriteFile(path, xName, yName string, points []analysis.Point) error {
	if len(points) == 0 {
		return fmt.Errorf("export: no points")
	}
	if path == "-" {
		return PointsCSV(os.Stdout, xName, yName, points)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := PointsCSV(f, xName, yName, points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
