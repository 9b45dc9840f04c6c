package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/lulc-change/internal/utils"
)

// requiredBands are read by at least one analysis.
var requiredBands = []string{"B2", "B3", "B4", "B8", "B11"}

// AvailableYears maps every year folder under dataDir to the bands it holds.
func AvailableYears(dataDir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("error reading data folder: %w", err)
	}
	years := make(map[string][]string)
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "output" || entry.Name() == "archive" {
			continue
		}
		var bands []string
		for _, band := range requiredBands {
			if _, err := os.Stat(filepath.Join(dataDir, entry.Name(), band+".tif")); err == nil {
				bands = append(bands, band)
			}
		}
		if len(bands) > 0 {
			years[entry.Name()] = bands
		}
	}
	return years, nil
}

// ListYears prints every year with data and the bands it is missing.
func (m *Menu) ListYears() {
	years, err := AvailableYears(m.cfg.DataDir)
	if err != nil {
		m.console.PrintError(err.Error())
		return
	}
	m.console.PrintWarning(fmt.Sprintf("Add a year by placing B2.tif, B3.tif, B4.tif, B8.tif and B11.tif in %s/<year>.", m.cfg.DataDir))
	if len(years) == 0 {
		m.console.PrintError("no years with band files found")
		return
	}
	success.Fprintf(m.console.out, "\nAvailable years:\n")
	for _, year := range utils.GetSortedKeys(years, true) {
		line := fmt.Sprintf("- %s: %s", year, strings.Join(years[year], ", "))
		if missing := missingBands(years[year]); len(missing) > 0 {
			line += fmt.Sprintf(" (missing %s)", strings.Join(missing, ", "))
		}
		success.Fprintln(m.console.out, line)
	}
}

func missingBands(present []string) []string {
	have := make(map[string]bool, len(present))
	for _, b := range present {
		have[b] = true
	}
	var missing []string
	for _, b := range requiredBands {
		if !have[b] {
			missing = append(missing, b)
		}
	}
	return missing
}
