// Package indices computes spectral indices from aligned bands.
//
// Every index is computed in float64 so integer reflectances are never
// truncated, and a zero denominator yields 0 rather than NaN. Output grids are
// Float32 with NoData as their nodata sentinel.
package indices

import (
	"math"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

// NoData is written where an input sample is NaN or infinite. It sits
// outside [-1, 1] and [-2, 2].
const NoData = -9999.0

// safeNormalizedDifference returns (a-b)/(a+b), or 0 when a+b is exactly 0.
func safeNormalizedDifference(a, b float64) float64 {
	denominator := a + b
	if denominator == 0 {
		return 0
	}
	return (a - b) / denominator
}

func invalid(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func outputDescriptor(ref *raster.Grid) raster.Descriptor {
	return ref.Descriptor().
		WithDataType(raster.Float32).
		WithNoData(NoData)
}

// NormalizedDifference computes (a-b)/(a+b) per pixel.
func NormalizedDifference(a, b *raster.Grid) (*raster.Grid, error) {
	if err := raster.CheckSameShape("normalized difference", a, b); err != nil {
		return nil, err
	}
	out := make([]float64, a.Len())
	for i := range out {
		av, bv := a.Index(i), b.Index(i)
		if invalid(av) || invalid(bv) {
			out[i] = NoData
			continue
		}
		out[i] = raster.Float32.Coerce(safeNormalizedDifference(av, bv))
	}
	return raster.Wrap(outputDescriptor(a), out)
}

// Composite subtracts second from first. Both are expected to be normalized
// difference grids; nodata in either input gives nodata.
func Composite(first, second *raster.Grid) (*raster.Grid, error) {
	if err := raster.CheckSameShape("composite index", first, second); err != nil {
		return nil, err
	}
	out := make([]float64, first.Len())
	for i := range out {
		fv, sv := first.Index(i), second.Index(i)
		if first.IsNoData(fv) || second.IsNoData(sv) {
			out[i] = NoData
			continue
		}
		out[i] = raster.Float32.Coerce(fv - sv)
	}
	return raster.Wrap(outputDescriptor(first), out)
}

// NDVI is the normalized difference vegetation index, (NIR-Red)/(NIR+Red).
func NDVI(nir, red *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(nir, red)
}

// NDBI is the normalized difference built-up index, (SWIR-NIR)/(SWIR+NIR).
func NDBI(swir, nir *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(swir, nir)
}

// NDMI is the normalized difference moisture index, (NIR-SWIR)/(NIR+SWIR).
func NDMI(nir, swir *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(nir, swir)
}

// NDWI is the normalized difference water index, (Green-NIR)/(Green+NIR).
func NDWI(green, nir *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(green, nir)
}

// BuiltUp holds the built-up index together with the two indices it is made
// of, since urban extraction needs NDVI as well.
type BuiltUp struct {
	BUI  *raster.Grid
	NDVI *raster.Grid
	NDBI *raster.Grid
}

// BUI computes the built-up index NDBI - NDVI.
func BUI(red, nir, swir *raster.Grid) (*BuiltUp, error) {
	ndvi, err := NDVI(nir, red)
	if err != nil {
		return nil, err
	}
	ndbi, err := NDBI(swir, nir)
	if err != nil {
		return nil, err
	}
	bui, err := Composite(ndbi, ndvi)
	if err != nil {
		return nil, err
	}
	return &BuiltUp{BUI: bui, NDVI: ndvi, NDBI: ndbi}, nil
}
