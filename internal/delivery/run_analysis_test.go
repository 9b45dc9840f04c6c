package delivery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/lulc-change/internal/archive"
	"github.com/forest-guardian/lulc-change/internal/change"
	"github.com/forest-guardian/lulc-change/internal/indices"
	"github.com/forest-guardian/lulc-change/internal/landcover"
	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/stats"
	"github.com/forest-guardian/lulc-change/internal/urban"
)

// memStorage keeps grids in memory and leaves a placeholder file at every
// written path so archiving has something to upload.
type memStorage struct {
	mu    sync.Mutex
	grids map[string]*raster.Grid
}

func newMemStorage() *memStorage {
	return &memStorage{grids: make(map[string]*raster.Grid)}
}

func (m *memStorage) ReadGrid(path string) (*raster.Grid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grids[path]
	if !ok {
		return nil, &raster.MissingInputError{Unit: "read", Paths: []string{path}}
	}
	return g, nil
}

func (m *memStorage) WriteGrid(path string, g *raster.Grid) error {
	m.mu.Lock()
	m.grids[path] = g
	m.mu.Unlock()
	return os.WriteFile(path, []byte("grid"), 0o644)
}

func (m *memStorage) get(t *testing.T, path string) *raster.Grid {
	t.Helper()
	g, err := m.ReadGrid(path)
	require.NoError(t, err)
	return g
}

const size = 20

func sceneGrid(t *testing.T, w, h int, pixel float64, value func(row, col int) float64) *raster.Grid {
	t.Helper()
	data := make([]float64, w*h)
	for r := range h {
		for c := range w {
			data[r*w+c] = value(r, c)
		}
	}
	g, err := raster.New(raster.Descriptor{
		Width:     w,
		Height:    h,
		Transform: raster.GeoTransform{500000, pixel, 0, 4000000, 0, -pixel},
		CRS:       "EPSG:32643",
		DataType:  raster.UInt16,
	}, data)
	require.NoError(t, err)
	return g
}

// addScene stores the bands of a w×w scene whose left half is vegetation
// and right half built-up. The first clearedRows rows of the left half are
// built-up too. B11 is stored at half resolution.
func addScene(t *testing.T, m *memStorage, dataDir, year string, w, clearedRows int, skip ...string) {
	t.Helper()
	builtUp := func(row, col int) bool {
		return col >= w/2 || row < clearedRows
	}
	pick := func(veg, built float64) func(row, col int) float64 {
		return func(row, col int) float64 {
			if builtUp(row, col) {
				return built
			}
			return veg
		}
	}
	bands := map[string]*raster.Grid{
		"B2": sceneGrid(t, w, w, 10, pick(400, 1200)),
		"B3": sceneGrid(t, w, w, 10, pick(700, 1300)),
		"B4": sceneGrid(t, w, w, 10, pick(500, 1500)),
		"B8": sceneGrid(t, w, w, 10, pick(3000, 1800)),
		"B11": sceneGrid(t, w/2, w/2, 20, func(row, col int) float64 {
			return pick(1000, 3500)(row*2, col*2)
		}),
	}
	for _, name := range skip {
		delete(bands, name)
	}
	for name, g := range bands {
		m.grids[filepath.Join(dataDir, year, name+".tif")] = g
	}
}

func testConfig(t *testing.T) Config {
	root := t.TempDir()
	classifier := landcover.DefaultOptions()
	classifier.Clusters = 2
	classifier.Restarts = 2
	return Config{
		DataDir:         filepath.Join(root, "data"),
		OutputDir:       filepath.Join(root, "output"),
		Years:           []string{"2021", "2025"},
		Indices:         []string{"ndvi"},
		WindowSize:      10,
		Classifier:      classifier,
		ChangeThreshold: change.DefaultThreshold,
		PixelArea:       stats.DefaultPixelArea,
		Urban:           urban.DefaultThresholds(),
		Workers:         2,
	}
}

func TestRunProducesAllOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Render = true
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)
	addScene(t, m, cfg.DataDir, "2025", size, 5)

	report, err := New(cfg, WithStorage(m)).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Skipped)

	var names []string
	for _, u := range report.Units {
		names = append(names, u.Name)
		assert.Equal(t, StatusDone, u.Status, u.Name)
	}
	assert.Equal(t, []string{
		"ndvi/2021", "classification/2021", "urban/2021",
		"ndvi/2025", "classification/2025", "urban/2025",
		"change/2021-2025",
	}, names)

	ndvi := m.get(t, filepath.Join(cfg.OutputDir, "ndvi_2021.tif"))
	assert.InDelta(t, 2500.0/3500.0, ndvi.At(10, 0), 1e-6)
	assert.InDelta(t, 300.0/3300.0, ndvi.At(10, 15), 1e-6)

	classes := m.get(t, filepath.Join(cfg.OutputDir, "changes.tif"))
	decreased := 0
	for i, v := range classes.Values() {
		row, col := i/size, i%size
		if row < 5 && col < size/2 {
			assert.Equal(t, float64(change.Decrease), v)
			decreased++
		} else {
			assert.Equal(t, float64(change.NoChange), v)
		}
	}
	assert.Equal(t, 50, decreased)

	labels := m.get(t, filepath.Join(cfg.OutputDir, "classification_2021.tif"))
	assert.Equal(t, raster.Shape{Width: 10, Height: 10}, labels.Shape())
	assert.Equal(t, raster.Byte, labels.DataType())

	mask := m.get(t, filepath.Join(cfg.OutputDir, "urban_classes_2021.tif"))
	assert.Equal(t, float64(urban.Urban), mask.At(10, 15))
	assert.Equal(t, float64(urban.Vegetation), mask.At(10, 2))
	binary := m.get(t, filepath.Join(cfg.OutputDir, "urban_areas_2021.tif"))
	assert.Equal(t, 1.0, binary.At(10, 15))
	assert.Equal(t, 0.0, binary.At(10, 2))

	for _, name := range []string{
		"ndvi_2021.png", "classification_2021_stats.csv", "urban_2025_stats.csv",
		"changes_stats.csv", "changes.png", "classification_changes.tif", "run_report.csv",
	} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, name))
	}

	rows, err := stats.LoadCSV(filepath.Join(cfg.OutputDir, "changes_stats.csv"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "decrease", rows[0].Label)
	assert.Equal(t, 50, rows[0].Count)
	assert.InDelta(t, 12.5, rows[0].Percent, 1e-9)
}

func TestMissingBandsSkipOnlyTheirUnit(t *testing.T) {
	cfg := testConfig(t)
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)
	addScene(t, m, cfg.DataDir, "2025", size, 0, "B11")

	report, err := New(cfg, WithStorage(m)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)

	skipped, ok := report.Unit("urban/2025")
	require.True(t, ok)
	assert.Equal(t, StatusSkipped, skipped.Status)
	assert.Contains(t, skipped.Details, filepath.Join(cfg.DataDir, "2025", "B11.tif"))

	for _, name := range []string{"urban/2021", "ndvi/2025", "classification/2025", "change/2021-2025"} {
		u, ok := report.Unit(name)
		require.True(t, ok, name)
		assert.Equal(t, StatusDone, u.Status, name)
	}
}

func TestMissingYearSkipsChange(t *testing.T) {
	cfg := testConfig(t)
	cfg.Years = []string{"2021", "2030"}
	cfg.Analyses = []Analysis{Index, Change}
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)

	report, err := New(cfg, WithStorage(m)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)

	u, ok := report.Unit("change/2021-2030")
	require.True(t, ok)
	assert.Equal(t, StatusSkipped, u.Status)
	assert.Contains(t, u.Details, "ndvi_2030.tif")
}

func TestChangeComputesNDVIWhenNotConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Years = []string{"2021", "2023", "2025"}
	cfg.Indices = []string{"ndwi"}
	cfg.Analyses = []Analysis{Index, Change}
	m := newMemStorage()
	for _, year := range cfg.Years {
		addScene(t, m, cfg.DataDir, year, size, 0)
	}

	report, err := New(cfg, WithStorage(m)).Run(context.Background())
	require.NoError(t, err)

	var names []string
	for _, u := range report.Units {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{
		"ndwi/2021", "ndvi/2021",
		"ndwi/2023",
		"ndwi/2025", "ndvi/2025",
		"change/2021-2025",
	}, names)
	u, ok := report.Unit("change/2021-2025")
	require.True(t, ok)
	assert.Equal(t, StatusDone, u.Status, u.Details)

	cfg.Analyses = []Analysis{Change}
	report, err = New(cfg, WithStorage(m)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 3)
	for _, u := range report.Units {
		assert.Equal(t, StatusDone, u.Status, u.Name)
	}
}

func TestFailingUnitDoesNotStopSiblings(t *testing.T) {
	cfg := testConfig(t)
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)
	addScene(t, m, cfg.DataDir, "2025", 10, 0)

	report, err := New(cfg, WithStorage(m)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	failed, ok := report.Unit("change/2021-2025")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, failed.Status)
	var shapeErr *raster.ShapeMismatchError
	require.ErrorAs(t, failed.Err, &shapeErr)
	assert.Equal(t, "index difference", shapeErr.Op)
	require.Error(t, report.Err())

	u, ok := report.Unit("urban/2025")
	require.True(t, ok)
	assert.Equal(t, StatusDone, u.Status)
}

func TestRegionOfInterestMasksOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analyses = []Analysis{Index}
	cfg.ROIPath = "roi.geojson"
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)
	addScene(t, m, cfg.DataDir, "2025", size, 0)

	loads := 0
	left := orb.Polygon{{{500000, 3999800}, {500100, 3999800}, {500100, 4000000}, {500000, 4000000}, {500000, 3999800}}}
	loader := func(path, crs string) ([]orb.Geometry, error) {
		loads++
		assert.Equal(t, "roi.geojson", path)
		assert.Equal(t, "EPSG:32643", crs)
		return []orb.Geometry{left}, nil
	}

	cfg.Workers = 1
	report, err := New(cfg, WithStorage(m), WithROILoader(loader)).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 1, loads)

	ndvi := m.get(t, filepath.Join(cfg.OutputDir, "ndvi_2021.tif"))
	assert.InDelta(t, 2500.0/3500.0, ndvi.At(3, 3), 1e-6)
	assert.Equal(t, indices.NoData, ndvi.At(3, 15))
}

func TestArchiveUploadsOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Years = []string{"2021"}
	cfg.Analyses = []Analysis{Index}
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)
	store := archive.NewFileStore(filepath.Join(t.TempDir(), "archive"))

	report, err := New(cfg, WithStorage(m), WithArchive(store)).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())

	data, err := store.Get(context.Background(), "ndvi_2021/ndvi_2021.tif")
	require.NoError(t, err)
	assert.Equal(t, "grid", string(data))
}

func TestCancelledRun(t *testing.T) {
	cfg := testConfig(t)
	m := newMemStorage()
	addScene(t, m, cfg.DataDir, "2021", size, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(cfg, WithStorage(m)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, len(report.Units), report.Failed)
}

func TestConfigValidation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Years = nil
	_, err := New(cfg).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoYears)

	cfg = testConfig(t)
	cfg.Indices = []string{"evi"}
	_, err = New(cfg).Run(context.Background())
	assert.ErrorContains(t, err, "unknown index")

	analyses, err := ParseAnalyses([]string{"urban", "change"})
	require.NoError(t, err)
	assert.Equal(t, []Analysis{Urban, Change}, analyses)
	_, err = ParseAnalyses([]string{"forest"})
	assert.Error(t, err)
	all, err := ParseAnalyses(nil)
	require.NoError(t, err)
	assert.Equal(t, AllAnalyses, all)
}
