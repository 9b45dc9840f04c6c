// Package change compares two co-registered rasters from different dates.
package change

import (
	"fmt"
	"math"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

// Class is a change category written into a change raster.
type Class uint8

const (
	NoData   Class = 0
	Decrease Class = 1
	Increase Class = 2
	NoChange Class = 3
)

func (c Class) String() string {
	switch c {
	case Decrease:
		return "decrease"
	case Increase:
		return "increase"
	case NoChange:
		return "no-change"
	}
	return "nodata"
}

// DefaultThreshold is the index difference below which a pixel is unchanged.
const DefaultThreshold = 0.1

// DifferenceNoData marks difference pixels where either input was missing.
const DifferenceNoData = -9999.0

const (
	Same    = 0
	Changed = 1
)

// Difference returns later - earlier per pixel.
func Difference(earlier, later *raster.Grid) (*raster.Grid, error) {
	if err := raster.CheckSameShape("index difference", earlier, later); err != nil {
		return nil, err
	}
	out := make([]float64, earlier.Len())
	for i := range out {
		e, l := earlier.Index(i), later.Index(i)
		if earlier.IsNoData(e) || later.IsNoData(l) || math.IsInf(e, 0) || math.IsInf(l, 0) {
			out[i] = DifferenceNoData
			continue
		}
		out[i] = raster.Float32.Coerce(l - e)
	}
	desc := earlier.Descriptor().
		WithDataType(raster.Float32).
		WithNoData(DifferenceNoData)
	return raster.Wrap(desc, out)
}

// Classify maps one difference value to its class. Differences of exactly
// ±tau are unchanged.
func Classify(diff, tau float64) Class {
	switch {
	case diff < -tau:
		return Decrease
	case diff > tau:
		return Increase
	}
	return NoChange
}

// ClassifyDifference buckets a difference grid into a Byte change raster.
// tau is taken at the grid's sample precision.
func ClassifyDifference(diff *raster.Grid, tau float64) (*raster.Grid, error) {
	if tau < 0 || math.IsNaN(tau) {
		return nil, fmt.Errorf("change threshold must be non-negative, got %g", tau)
	}
	// Compare at the stored precision so a difference of exactly tau stays
	// unchanged once written as float32.
	t := diff.DataType().Threshold(tau)
	out := make([]float64, diff.Len())
	for i := range out {
		v := diff.Index(i)
		if diff.IsNoData(v) {
			out[i] = float64(NoData)
			continue
		}
		out[i] = float64(Classify(v, t))
	}
	desc := diff.Descriptor().
		WithDataType(raster.Byte).
		WithNoData(float64(NoData))
	return raster.Wrap(desc, out)
}

// IndexChange holds both products of an index comparison.
type IndexChange struct {
	Difference *raster.Grid
	Classes    *raster.Grid
}

// DetectIndexChange differences two index grids and classifies the result.
func DetectIndexChange(earlier, later *raster.Grid, tau float64) (*IndexChange, error) {
	diff, err := Difference(earlier, later)
	if err != nil {
		return nil, err
	}
	classes, err := ClassifyDifference(diff, tau)
	if err != nil {
		return nil, err
	}
	return &IndexChange{Difference: diff, Classes: classes}, nil
}

// Transitions marks every pixel whose label differs between a and b. Labels
// are compared as numbers; nothing links a cluster id in one map to the same
// id in the other.
func Transitions(a, b *raster.Grid) (*raster.Grid, error) {
	if err := raster.CheckSameShape("label transitions", a, b); err != nil {
		return nil, err
	}
	out := make([]float64, a.Len())
	for i := range out {
		if a.Index(i) != b.Index(i) {
			out[i] = Changed
		}
	}
	desc := a.Descriptor().
		WithDataType(raster.Byte).
		WithoutNoData()
	return raster.Wrap(desc, out)
}
