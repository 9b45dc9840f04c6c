package properties

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"ROOT_PATH", "YEARS", "WINDOW_SIZE", "CLUSTERS", "CHANGE_THRESHOLD", "MONGO_DATABASE"} {
		t.Setenv(key, "")
	}
	assert.Equal(t, ".", RootPath())
	assert.Equal(t, []string{"2021", "2025"}, Years())
	assert.Equal(t, 100, WindowSize())
	assert.Equal(t, 5, Clusters())
	assert.Equal(t, 0.1, ChangeThreshold())
	assert.Equal(t, "geoprocessing_data", MongoDatabase())
}

func TestOverrides(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/lulc")
	t.Setenv("YEARS", " 2019, 2023 ,")
	t.Setenv("WINDOW_SIZE", "256")
	t.Setenv("CHANGE_THRESHOLD", "0.15")
	t.Setenv("CLUSTERS", "seven")

	assert.Equal(t, "/srv/lulc/data/output", OutputPath())
	assert.Equal(t, []string{"2019", "2023"}, Years())
	assert.Equal(t, 256, WindowSize())
	assert.Equal(t, 0.15, ChangeThreshold())
	assert.Equal(t, 5, Clusters())
}

func TestCopernicusCredentials(t *testing.T) {
	t.Setenv("COPERNICUS_CLIENT_ID", "a,b")
	t.Setenv("COPERNICUS_CLIENT_SECRET", "x, y")
	ids, secrets := CopernicusCredentials()
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []string{"x", "y"}, secrets)
}

func TestFlags(t *testing.T) {
	t.Setenv("INDICES", "ndvi,ndwi")
	t.Setenv("CROP_TO_ROI", "yes-please")
	t.Setenv("RENDER_PREVIEWS", "false")

	assert.Equal(t, []string{"ndvi", "ndwi"}, Indices())
	assert.False(t, CropToROI())
	assert.False(t, RenderPreviews())
}
