// Package stats aggregates per-value counts and areas over labelled rasters.
package stats

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

// DefaultPixelArea is the ground area of a 10 m Sentinel-2 pixel in m².
const DefaultPixelArea = 100.0

var ErrNoValues = errors.New("grid has no valid values")

// Labeler names a raster value for reports. It may return "".
type Labeler func(value float64) string

type Row struct {
	Value   float64 `csv:"value"`
	Label   string  `csv:"label"`
	Count   int     `csv:"pixel_count"`
	Percent float64 `csv:"percent"`
	AreaM2  float64 `csv:"area_m2"`
	AreaKm2 float64 `csv:"area_km2"`
}

type Summary struct {
	Rows      []Row
	Total     int
	PixelArea float64
}

// Row returns the row for value and whether it is present.
func (s *Summary) Row(value float64) (Row, bool) {
	for _, r := range s.Rows {
		if r.Value == value {
			return r, true
		}
	}
	return Row{}, false
}

// Summarize counts every distinct value of g. Percentages are of all cells,
// NaN cells included in the total but not reported as a row.
func Summarize(g *raster.Grid, pixelArea float64, labeler Labeler) (*Summary, error) {
	if pixelArea <= 0 {
		return nil, fmt.Errorf("pixel area must be positive, got %g", pixelArea)
	}
	counts := make(map[float64]int)
	for i := 0; i < g.Len(); i++ {
		v := g.Index(i)
		if math.IsNaN(v) {
			continue
		}
		counts[v]++
	}

	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Float64s(values)

	total := g.Len()
	summary := &Summary{Total: total, PixelArea: pixelArea, Rows: make([]Row, 0, len(values))}
	for _, v := range values {
		n := counts[v]
		row := Row{
			Value:   v,
			Count:   n,
			Percent: float64(n) / float64(total) * 100,
			AreaM2:  float64(n) * pixelArea,
			AreaKm2: float64(n) * pixelArea / 1e6,
		}
		if labeler != nil {
			row.Label = labeler(v)
		}
		summary.Rows = append(summary.Rows, row)
	}
	return summary, nil
}

// Description summarizes a continuous raster.
type Description struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	Std   float64
}

// Describe computes population statistics over the non-nodata pixels of g.
func Describe(g *raster.Grid) (Description, error) {
	values := make([]float64, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		v := g.Index(i)
		if g.IsNoData(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return Description{}, ErrNoValues
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return Description{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Mean:  mean,
		Std:   std,
	}, nil
}

// ChangedFraction is the share of pixels a transition raster marks changed.
func ChangedFraction(transitions *raster.Grid) float64 {
	if transitions.Len() == 0 {
		return 0
	}
	changed := 0
	for i := 0; i < transitions.Len(); i++ {
		if transitions.Index(i) == 1 {
			changed++
		}
	}
	return float64(changed) / float64(transitions.Len())
}

// WriteCSV writes the rows with a header line.
func WriteCSV(w io.Writer, s *Summary) error {
	if err := gocsv.Marshal(&s.Rows, w); err != nil {
		return fmt.Errorf("error writing statistics: %w", err)
	}
	return nil
}

// SaveCSV writes the rows to path.
func SaveCSV(path string, s *Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create statistics file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&s.Rows, file); err != nil {
		return fmt.Errorf("failed to save statistics to %s: %w", path, err)
	}
	return nil
}

// LoadCSV reads rows written by SaveCSV.
func LoadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statistics file: %w", err)
	}
	defer file.Close()

	var rows []Row
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to read statistics from %s: %w", path, err)
	}
	return rows, nil
}
