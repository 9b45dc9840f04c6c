package delivery

import (
	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/sentinel"
)

// Storage reads and writes single-band rasters. A missing file is reported
// as a *raster.MissingInputError.
type Storage interface {
	ReadGrid(path string) (*raster.Grid, error)
	WriteGrid(path string, g *raster.Grid) error
}

type geoTIFFStorage struct{}

func (geoTIFFStorage) ReadGrid(path string) (*raster.Grid, error) {
	return sentinel.ReadGrid(path)
}

func (geoTIFFStorage) WriteGrid(path string, g *raster.Grid) error {
	return sentinel.WriteGrid(path, g)
}

// GeoTIFFStorage stores rasters as GeoTIFF files through GDAL.
func GeoTIFFStorage() Storage {
	return geoTIFFStorage{}
}
