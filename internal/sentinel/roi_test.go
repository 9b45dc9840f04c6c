package sentinel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadROI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roi.geojson")
	body := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"bhopal"},"geometry":{"type":"Polygon","coordinates":[[[77.3,23.2],[77.5,23.2],[77.5,23.3],[77.3,23.3],[77.3,23.2]]]}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	geoms, err := LoadROI(path, "")
	require.NoError(t, err)
	require.Len(t, geoms, 1)
	poly, ok := geoms[0].(orb.Polygon)
	require.True(t, ok)
	assert.InDelta(t, 77.3, poly.Bound().Min.X(), 1e-9)
	assert.InDelta(t, 23.3, poly.Bound().Max.Y(), 1e-9)
}

func TestLoadROIMissing(t *testing.T) {
	_, err := LoadROI(filepath.Join(t.TempDir(), "none.shp"), "")
	assert.Error(t, err)
}
