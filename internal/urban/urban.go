// Package urban derives a threshold land-cover mask from NDVI and the
// built-up index.
package urban

import (
	"github.com/forest-guardian/lulc-change/internal/raster"
)

// Class values of the land-cover mask.
const (
	Unclassified = 0
	Urban        = 1
	Vegetation   = 2
	Water        = 3
	BareSoil     = 4
)

var classNames = map[int]string{
	Unclassified: "Unclassified",
	Urban:        "Urban",
	Vegetation:   "Vegetation",
	Water:        "Water",
	BareSoil:     "Bare Soil",
}

// ClassName returns the display name of a mask value.
func ClassName(v int) string {
	if name, ok := classNames[v]; ok {
		return name
	}
	return ""
}

type Thresholds struct {
	// Urban pixels have NDVI below UrbanNDVI and BUI above UrbanBUI.
	UrbanNDVI float64
	UrbanBUI  float64
	// Vegetation pixels have NDVI above VegetationNDVI.
	VegetationNDVI float64
	WaterNDVI      float64
	WaterBUI       float64
	BareNDVI       float64
	BareBUI        float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		UrbanNDVI:      0.3,
		UrbanBUI:       0.1,
		VegetationNDVI: 0.4,
		WaterNDVI:      0.1,
		WaterBUI:       0.05,
		BareNDVI:       0.2,
		BareBUI:        0.1,
	}
}

// at rounds the thresholds to the sample precision of the NDVI and BUI grids.
func (t Thresholds) at(ndvi, bui raster.DataType) Thresholds {
	return Thresholds{
		UrbanNDVI:      ndvi.Threshold(t.UrbanNDVI),
		UrbanBUI:       bui.Threshold(t.UrbanBUI),
		VegetationNDVI: ndvi.Threshold(t.VegetationNDVI),
		WaterNDVI:      ndvi.Threshold(t.WaterNDVI),
		WaterBUI:       bui.Threshold(t.WaterBUI),
		BareNDVI:       ndvi.Threshold(t.BareNDVI),
		BareBUI:        bui.Threshold(t.BareBUI),
	}
}

// classify applies the rules in order; a later match replaces an earlier
// one, and bare soil only fills pixels nothing else claimed.
func (t Thresholds) classify(ndvi, bui float64) int {
	class := Unclassified
	if ndvi < t.UrbanNDVI && bui > t.UrbanBUI {
		class = Urban
	}
	if ndvi > t.VegetationNDVI {
		class = Vegetation
	}
	if ndvi < t.WaterNDVI && bui < t.WaterBUI {
		class = Water
	}
	if class == Unclassified && ndvi < t.BareNDVI && bui < t.BareBUI {
		class = BareSoil
	}
	return class
}

// Extract classifies every pixel into one of the mask classes. Pixels where
// either index is nodata stay unclassified.
func Extract(ndvi, bui *raster.Grid, t Thresholds) (*raster.Grid, error) {
	if err := raster.CheckSameShape("urban extraction", ndvi, bui); err != nil {
		return nil, err
	}
	t = t.at(ndvi.DataType(), bui.DataType())
	out := make([]float64, ndvi.Len())
	for i := range out {
		n, b := ndvi.Index(i), bui.Index(i)
		if ndvi.IsNoData(n) || bui.IsNoData(b) {
			continue
		}
		out[i] = float64(t.classify(n, b))
	}
	desc := ndvi.Descriptor().
		WithDataType(raster.Byte).
		WithoutNoData()
	return raster.Wrap(desc, out)
}

// Binary keeps only the urban class: 1 for urban, 0 otherwise.
func Binary(mask *raster.Grid) (*raster.Grid, error) {
	out := make([]float64, mask.Len())
	for i := range out {
		if mask.Index(i) == Urban {
			out[i] = 1
		}
	}
	desc := mask.Descriptor().
		WithDataType(raster.Byte).
		WithoutNoData()
	return raster.Wrap(desc, out)
}
