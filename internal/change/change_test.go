package change

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

func grid(t *testing.T, w, h int, dt raster.DataType, data []float64) *raster.Grid {
	t.Helper()
	g, err := raster.New(raster.Descriptor{
		Width:     w,
		Height:    h,
		Transform: raster.GeoTransform{0, 10, 0, 0, 0, -10},
		CRS:       "EPSG:32643",
		DataType:  dt,
		NoData:    -9999,
		HasNoData: !dt.IsInteger(),
	}, data)
	require.NoError(t, err)
	return g
}

func uniform(t *testing.T, w, h int, v float64) *raster.Grid {
	data := make([]float64, w*h)
	for i := range data {
		data[i] = v
	}
	return grid(t, w, h, raster.Float32, data)
}

func TestUniformIncrease(t *testing.T) {
	res, err := DetectIndexChange(uniform(t, 3, 3, 0.2), uniform(t, 3, 3, 0.35), DefaultThreshold)
	require.NoError(t, err)
	for _, v := range res.Difference.Values() {
		assert.InDelta(t, 0.15, v, 1e-6)
	}
	for _, v := range res.Classes.Values() {
		assert.Equal(t, float64(Increase), v)
	}
	assert.Equal(t, raster.Byte, res.Classes.DataType())
}

func TestAllZeroIsNoChange(t *testing.T) {
	res, err := DetectIndexChange(uniform(t, 2, 2, 0), uniform(t, 2, 2, 0), DefaultThreshold)
	require.NoError(t, err)
	for _, v := range res.Classes.Values() {
		assert.Equal(t, float64(NoChange), v)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		diff float64
		want Class
	}{
		{0.25, Increase},
		{0.2, NoChange},
		{-0.2, NoChange},
		{-0.20000001, Decrease},
		{-0.5, Decrease},
		{0.0, NoChange},
		{math.Copysign(0, -1), NoChange},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.diff, 0.2), "diff %g", tt.diff)
	}
	assert.Equal(t, NoChange, Classify(0.25, 0.25))
	assert.Equal(t, NoChange, Classify(-0.25, 0.25))
}

func TestClassifyDifferenceBoundaryGrid(t *testing.T) {
	// 0.25 and 0.5 are exact in float32, so the stored differences hit tau.
	diff := grid(t, 4, 1, raster.Float32, []float64{0.25, -0.25, 0.5, -9999})
	out, err := ClassifyDifference(diff, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 2, 0}, out.Values())
}

func TestDefaultThresholdBoundaryIsNoChange(t *testing.T) {
	tests := []struct {
		name           string
		earlier, later float64
	}{
		{"increase by tau", 0, DefaultThreshold},
		{"decrease by tau", DefaultThreshold, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DetectIndexChange(uniform(t, 2, 2, tt.earlier), uniform(t, 2, 2, tt.later), DefaultThreshold)
			require.NoError(t, err)
			for _, v := range res.Classes.Values() {
				assert.Equal(t, float64(NoChange), v, "diff %.10f", res.Difference.Index(0))
			}
		})
	}

	res, err := DetectIndexChange(uniform(t, 1, 1, 0), uniform(t, 1, 1, 0.1001), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, float64(Increase), res.Classes.Index(0))
}

func TestNegativeThresholdRejected(t *testing.T) {
	_, err := ClassifyDifference(uniform(t, 1, 1, 0), -0.1)
	assert.Error(t, err)
}

func TestDifferencePropagatesNoData(t *testing.T) {
	earlier := grid(t, 3, 1, raster.Float32, []float64{0.1, -9999, math.NaN()})
	later := grid(t, 3, 1, raster.Float32, []float64{0.6, 0.3, 0.3})
	res, err := DetectIndexChange(earlier, later, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Difference.Index(0), 1e-6)
	assert.Equal(t, DifferenceNoData, res.Difference.Index(1))
	assert.Equal(t, DifferenceNoData, res.Difference.Index(2))
	assert.Equal(t, []float64{2, 0, 0}, res.Classes.Values())
}

func TestTransitions(t *testing.T) {
	a := grid(t, 2, 2, raster.Byte, []float64{1, 1, 2, 2})
	b := grid(t, 2, 2, raster.Byte, []float64{1, 2, 2, 2})

	ab, err := Transitions(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ab.At(0, 0))
	assert.Equal(t, 1.0, ab.At(0, 1))
	assert.Equal(t, 0.0, ab.At(1, 0))
	assert.Equal(t, 0.0, ab.At(1, 1))

	ba, err := Transitions(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab.Values(), ba.Values())

	_, hasNoData := ab.NoData()
	assert.False(t, hasNoData)
}

func TestShapeMismatchNamesComparison(t *testing.T) {
	_, err := Transitions(uniform(t, 2, 2, 1), uniform(t, 3, 2, 1))
	var shapeErr *raster.ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "label transitions", shapeErr.Op)

	_, err = DetectIndexChange(uniform(t, 2, 2, 1), uniform(t, 2, 3, 1), 0.1)
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "index difference", shapeErr.Op)
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "decrease", Decrease.String())
	assert.Equal(t, "increase", Increase.String())
	assert.Equal(t, "no-change", NoChange.String())
	assert.Equal(t, "nodata", NoData.String())
}
