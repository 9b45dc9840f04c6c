// Package align resamples bands onto a reference grid's shape.
package align

import (
	"math"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

// Options controls ToReference.
type Options struct {
	// CastTo, when set, is the data type of the output. Otherwise the
	// source's data type is kept.
	CastTo *raster.DataType
}

// ToReference resamples the whole of src onto ref's shape with bilinear
// interpolation. The output takes ref's transform and CRS and src's nodata.
// Both grids are assumed to share one coordinate reference already.
func ToReference(ref, src *raster.Grid, opts Options) (*raster.Grid, error) {
	if !src.Transform().Valid() {
		return nil, &raster.ShapeMismatchError{Op: "align", Reason: "source has no valid geotransform"}
	}
	if src.Width() == 0 || src.Height() == 0 {
		return nil, &raster.ShapeMismatchError{Op: "align", Want: ref.Shape(), Got: src.Shape(), Reason: "source has zero extent"}
	}
	if ref.Width() == 0 || ref.Height() == 0 {
		return nil, &raster.ShapeMismatchError{Op: "align", Want: ref.Shape(), Got: src.Shape(), Reason: "reference has zero extent"}
	}

	dt := src.DataType()
	if opts.CastTo != nil {
		dt = *opts.CastTo
	}

	srcDesc := src.Descriptor()
	desc := ref.Descriptor().
		WithDataType(dt).
		WithoutNoData()
	if srcDesc.HasNoData {
		desc = desc.WithNoData(srcDesc.NoData)
	}

	w, h := ref.Width(), ref.Height()
	out := make([]float64, w*h)

	if src.SameShape(ref) {
		for i := range out {
			out[i] = src.Index(i)
		}
		if dt != src.DataType() {
			for i, v := range out {
				if !src.IsNoData(v) {
					out[i] = dt.Coerce(v)
				}
			}
		}
		return raster.Wrap(desc, out)
	}

	scaleX := float64(src.Width()) / float64(w)
	scaleY := float64(src.Height()) / float64(h)
	nodata := math.NaN()
	if srcDesc.HasNoData {
		nodata = srcDesc.NoData
	}

	for row := 0; row < h; row++ {
		sy := clamp((float64(row)+0.5)*scaleY-0.5, float64(src.Height()-1))
		y0 := int(math.Floor(sy))
		y1 := min(y0+1, src.Height()-1)
		fy := sy - float64(y0)

		for col := 0; col < w; col++ {
			sx := clamp((float64(col)+0.5)*scaleX-0.5, float64(src.Width()-1))
			x0 := int(math.Floor(sx))
			x1 := min(x0+1, src.Width()-1)
			fx := sx - float64(x0)

			v, ok := interpolate(src, x0, x1, y0, y1, fx, fy)
			if !ok {
				out[row*w+col] = nodata
				continue
			}
			out[row*w+col] = dt.Coerce(v)
		}
	}

	return raster.Wrap(desc, out)
}

// interpolate blends the four neighbours. A nodata neighbour with non-zero
// weight makes the result nodata.
func interpolate(src *raster.Grid, x0, x1, y0, y1 int, fx, fy float64) (float64, bool) {
	corners := [4]struct {
		v, w float64
	}{
		{src.At(y0, x0), (1 - fx) * (1 - fy)},
		{src.At(y0, x1), fx * (1 - fy)},
		{src.At(y1, x0), (1 - fx) * fy},
		{src.At(y1, x1), fx * fy},
	}
	var sum float64
	for _, c := range corners {
		if c.w == 0 {
			continue
		}
		if src.IsNoData(c.v) {
			return 0, false
		}
		sum += c.v * c.w
	}
	return sum, true
}

func clamp(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
