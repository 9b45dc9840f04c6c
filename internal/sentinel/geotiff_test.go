package sentinel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

func TestWriteReadRoundTrip(t *testing.T) {
	desc := raster.Descriptor{
		Width:     3,
		Height:    2,
		Transform: raster.GeoTransform{500000, 10, 0, 2600000, 0, -10},
		CRS:       "EPSG:32643",
		DataType:  raster.Float32,
	}.WithNoData(-9999)
	g, err := raster.New(desc, []float64{0.5, -0.25, -9999, 1, 0, -1})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ndvi.tif")
	require.NoError(t, WriteGrid(path, g))

	back, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, g.Shape(), back.Shape())
	assert.Equal(t, g.Values(), back.Values())
	assert.Equal(t, g.Transform(), back.Transform())
	assert.Equal(t, raster.Float32, back.DataType())
	nd, ok := back.NoData()
	require.True(t, ok)
	assert.Equal(t, -9999.0, nd)
	assert.Contains(t, back.CRS(), "32643")
}

func TestWriteByteGrid(t *testing.T) {
	g, err := raster.New(raster.Descriptor{
		Width:     2,
		Height:    2,
		Transform: raster.GeoTransform{0, 10, 0, 0, 0, -10},
		DataType:  raster.Byte,
	}, []float64{0, 1, 2, 3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "labels.tif")
	require.NoError(t, WriteGrid(path, g))
	back, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, raster.Byte, back.DataType())
	assert.Equal(t, []float64{0, 1, 2, 3}, back.Values())
	_, ok := back.NoData()
	assert.False(t, ok)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadGrid(filepath.Join(t.TempDir(), "B4.tif"))
	var missing *raster.MissingInputError
	require.ErrorAs(t, err, &missing)

	dir := t.TempDir()
	_, err = ReadBandSet([]string{"B4", "B8"}, []string{filepath.Join(dir, "B4.tif"), filepath.Join(dir, "B8.tif")})
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Paths, 2)
}
