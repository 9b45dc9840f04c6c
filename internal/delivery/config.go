package delivery

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/forest-guardian/lulc-change/internal/indices"
	"github.com/forest-guardian/lulc-change/internal/landcover"
	"github.com/forest-guardian/lulc-change/internal/properties"
	"github.com/forest-guardian/lulc-change/internal/urban"
)

type Analysis string

const (
	Index          Analysis = "index"
	Classification Analysis = "classification"
	Urban          Analysis = "urban"
	Change         Analysis = "change"
)

var AllAnalyses = []Analysis{Index, Classification, Urban, Change}

// ParseAnalyses maps names to analyses. No names selects all of them.
func ParseAnalyses(names []string) ([]Analysis, error) {
	if len(names) == 0 {
		return AllAnalyses, nil
	}
	var out []Analysis
	for _, name := range names {
		a := Analysis(name)
		switch a {
		case Index, Classification, Urban, Change:
			out = append(out, a)
		default:
			return nil, fmt.Errorf("unknown analysis %q (known: %v)", name, AllAnalyses)
		}
	}
	return out, nil
}

type Config struct {
	// DataDir holds one directory of single-band GeoTIFFs (B2.tif, B3.tif...)
	// per year.
	DataDir   string
	OutputDir string
	Years     []string
	Analyses  []Analysis
	// Indices are the registry names computed by the index units.
	Indices         []string
	WindowSize      int
	Classifier      landcover.Options
	ChangeThreshold float64
	PixelArea       float64
	Urban           urban.Thresholds
	Workers         int
	// ROIPath, when set, masks every output to the polygons it holds.
	ROIPath   string
	CropToROI bool
	Render    bool
	Progress  bool
}

// ConfigFromProperties builds the run configuration from the environment.
func ConfigFromProperties() Config {
	classifier := landcover.DefaultOptions()
	classifier.Clusters = properties.Clusters()
	classifier.Seed = properties.ClusterSeed()

	return Config{
		DataDir:         properties.DataPath(),
		OutputDir:       properties.OutputPath(),
		Years:           properties.Years(),
		Analyses:        AllAnalyses,
		Indices:         properties.Indices(),
		WindowSize:      properties.WindowSize(),
		Classifier:      classifier,
		ChangeThreshold: properties.ChangeThreshold(),
		PixelArea:       properties.PixelAreaM2(),
		Urban:           urban.DefaultThresholds(),
		Workers:         properties.Workers(),
		ROIPath:         properties.ROIPath(),
		CropToROI:       properties.CropToROI(),
		Render:          properties.RenderPreviews(),
		Progress:        true,
	}
}

func (c Config) validate() error {
	if len(c.Years) == 0 {
		return ErrNoYears
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.PixelArea <= 0 {
		return fmt.Errorf("pixel area must be positive, got %g", c.PixelArea)
	}
	if c.ChangeThreshold < 0 {
		return fmt.Errorf("change threshold must not be negative, got %g", c.ChangeThreshold)
	}
	for _, name := range c.Indices {
		if _, err := indices.Lookup(name); err != nil {
			return err
		}
	}
	return nil
}

// changeIndex is the index the change unit differences.
const changeIndex = "ndvi"

// changeYears returns the years the change unit compares.
func (c Config) changeYears() (earlier, later string, ok bool) {
	if !c.enabled(Change) || len(c.Years) < 2 {
		return "", "", false
	}
	return c.Years[0], c.Years[len(c.Years)-1], true
}

// indicesFor lists the index units planned for year. The change index is
// added for the compared years even when it is not configured.
func (c Config) indicesFor(year string) []string {
	var names []string
	if c.enabled(Index) {
		names = append(names, c.Indices...)
	}
	earlier, later, ok := c.changeYears()
	if ok && (year == earlier || year == later) && !slices.Contains(names, changeIndex) {
		names = append(names, changeIndex)
	}
	return names
}

func (c Config) enabled(a Analysis) bool {
	if len(c.Analyses) == 0 {
		return true
	}
	for _, x := range c.Analyses {
		if x == a {
			return true
		}
	}
	return false
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

func (c Config) bandPath(year, band string) string {
	return filepath.Join(c.DataDir, year, band+".tif")
}

func (c Config) outputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}
