package sentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/forest-guardian/lulc-change/internal/utils"
)

// SAFEBand maps an output band name to its Sentinel-2 band id and native
// resolution inside a SAFE package.
type SAFEBand struct {
	Name       string
	ID         string
	Resolution string
}

var SAFEBands = []SAFEBand{
	{Name: "B2", ID: "B02", Resolution: "10m"},
	{Name: "B3", ID: "B03", Resolution: "10m"},
	{Name: "B4", ID: "B04", Resolution: "10m"},
	{Name: "B8", ID: "B08", Resolution: "10m"},
	{Name: "B11", ID: "B11", Resolution: "20m"},
}

// FindSAFE returns the first *.SAFE directory inside dir.
func FindSAFE(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.SAFE"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("no SAFE folder found in %s", dir)
}

// LocateSAFEBands finds the JPEG2000 file of every known band in the first
// granule of a SAFE package. Bands that are absent are left out of the map.
func LocateSAFEBands(safeDir string) (map[string]string, error) {
	granules, err := filepath.Glob(filepath.Join(safeDir, "GRANULE", "*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(granules)
	if len(granules) == 0 {
		return nil, fmt.Errorf("no granule folders found in %s", safeDir)
	}
	granule := granules[0]

	found := make(map[string]string)
	for _, b := range SAFEBands {
		pattern := filepath.Join(granule, "IMG_DATA", "R"+b.Resolution, fmt.Sprintf("*_%s_%s.jp2", b.ID, b.Resolution))
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			log.WithFields(log.Fields{"band": b.ID, "granule": filepath.Base(granule)}).Warn("band not found")
			continue
		}
		sort.Strings(matches)
		found[b.Name] = matches[0]
	}
	return found, nil
}

// ExtractSAFE converts every band found in safeDir to outDir/<name>.tif and
// returns the written paths by band name.
func ExtractSAFE(safeDir, outDir string) (map[string]string, error) {
	located, err := LocateSAFEBands(safeDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	written := make(map[string]string, len(located))
	for _, name := range utils.GetSortedKeys(located, true) {
		src := located[name]
		dst := filepath.Join(outDir, name+".tif")
		log.WithFields(log.Fields{"band": name, "source": filepath.Base(src)}).Info("converting band")

		g, err := ReadGrid(src)
		if err != nil {
			return written, fmt.Errorf("failed to read %s: %w", src, err)
		}
		if err := WriteGrid(dst, g); err != nil {
			return written, err
		}
		written[name] = dst
	}
	return written, nil
}
