package align

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

func grid(t *testing.T, w, h int, pixel float64, dt raster.DataType, data []float64) *raster.Grid {
	t.Helper()
	desc := raster.Descriptor{
		Width:     w,
		Height:    h,
		Transform: raster.GeoTransform{77.0, pixel, 0, 23.5, 0, -pixel},
		CRS:       "EPSG:4326",
		DataType:  dt,
	}
	if data == nil {
		return raster.Fill(desc, 0)
	}
	g, err := raster.New(desc, data)
	require.NoError(t, err)
	return g
}

func constant(t *testing.T, w, h int, pixel, v float64) *raster.Grid {
	data := make([]float64, w*h)
	for i := range data {
		data[i] = v
	}
	return grid(t, w, h, pixel, raster.Float32, data)
}

func TestConstantDownsample(t *testing.T) {
	ref := constant(t, 10, 10, 0.02, 5)
	src := constant(t, 20, 20, 0.01, 5)

	out, err := ToReference(ref, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, raster.Shape{Width: 10, Height: 10}, out.Shape())
	assert.Equal(t, ref.Transform(), out.Transform())
	for _, v := range out.Values() {
		assert.InDelta(t, 5.0, v, 1e-9)
	}
}

func TestSameShapeIsIdentity(t *testing.T) {
	data := []float64{0.1, 7, 3.25, -2, 1e-7, 65535}
	ref := grid(t, 3, 2, 10, raster.Float32, nil)
	src := grid(t, 3, 2, 10, raster.Float64, data)

	out, err := ToReference(ref, src, Options{})
	require.NoError(t, err)
	got := out.Values()
	for i := range data {
		assert.Equal(t, math.Float64bits(data[i]), math.Float64bits(got[i]))
	}
	assert.Equal(t, raster.Float64, out.DataType())
}

func TestUpsampleInterpolates(t *testing.T) {
	// 2x1 source [0, 10] onto 4x1: sample centres land at -0.25, 0.25, 0.75, 1.25.
	src := grid(t, 2, 1, 20, raster.Float64, []float64{0, 10})
	ref := grid(t, 4, 1, 10, raster.Float64, nil)

	out, err := ToReference(ref, src, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 2.5, 7.5, 10}, out.Values(), 1e-12)
}

func TestDataTypePreservedAndCast(t *testing.T) {
	src := grid(t, 2, 1, 20, raster.UInt16, []float64{0, 3})
	ref := grid(t, 4, 1, 10, raster.Float32, nil)

	out, err := ToReference(ref, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, raster.UInt16, out.DataType())
	for _, v := range out.Values() {
		assert.Equal(t, math.Round(v), v)
	}

	f32 := raster.Float32
	cast, err := ToReference(ref, src, Options{CastTo: &f32})
	require.NoError(t, err)
	assert.Equal(t, raster.Float32, cast.DataType())
	assert.InDelta(t, 0.75, cast.At(0, 1), 1e-6)
}

func TestNoDataDoesNotBleed(t *testing.T) {
	desc := raster.Descriptor{
		Width:     2,
		Height:    1,
		Transform: raster.GeoTransform{0, 20, 0, 0, 0, -20},
		DataType:  raster.Float32,
		NoData:    -9999,
		HasNoData: true,
	}
	src, err := raster.New(desc, []float64{4, -9999})
	require.NoError(t, err)
	ref := grid(t, 4, 1, 10, raster.Float32, nil)

	out, err := ToReference(ref, src, Options{})
	require.NoError(t, err)
	nd, ok := out.NoData()
	require.True(t, ok)
	assert.Equal(t, -9999.0, nd)
	assert.Equal(t, []float64{4, -9999, -9999, -9999}, out.Values())
}

func TestRejectsUnusableSource(t *testing.T) {
	ref := constant(t, 4, 4, 10, 1)

	noTransform, err := raster.New(raster.Descriptor{Width: 2, Height: 2}, make([]float64, 4))
	require.NoError(t, err)

	empty := grid(t, 0, 0, 10, raster.Float32, []float64{})

	for name, src := range map[string]*raster.Grid{"no transform": noTransform, "zero extent": empty} {
		t.Run(name, func(t *testing.T) {
			_, err := ToReference(ref, src, Options{})
			var shapeErr *raster.ShapeMismatchError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, "align", shapeErr.Op)
		})
	}
}
