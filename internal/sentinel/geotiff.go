// Package sentinel holds the GDAL-backed collaborators of the pipeline:
// band file I/O, Sentinel-2 SAFE unpacking, ROI loading and scene download.
package sentinel

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/utils"
)

func openDataset(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
}

func toDataType(dt godal.DataType) raster.DataType {
	switch dt {
	case godal.Byte:
		return raster.Byte
	case godal.UInt16:
		return raster.UInt16
	case godal.Int16:
		return raster.Int16
	case godal.UInt32:
		return raster.UInt32
	case godal.Int32:
		return raster.Int32
	case godal.Float64:
		return raster.Float64
	}
	return raster.Float32
}

func fromDataType(dt raster.DataType) godal.DataType {
	switch dt {
	case raster.Byte:
		return godal.Byte
	case raster.UInt16:
		return godal.UInt16
	case raster.Int16:
		return godal.Int16
	case raster.UInt32:
		return godal.UInt32
	case raster.Int32:
		return godal.Int32
	case raster.Float64:
		return godal.Float64
	}
	return godal.Float32
}

// ReadGrid reads the first band of a raster file.
func ReadGrid(path string) (*raster.Grid, error) {
	return ReadBand(path, 0)
}

// ReadBand reads one band (0-based) of a raster file with its geotransform,
// coordinate reference, nodata and data type.
func ReadBand(path string, index int) (*raster.Grid, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &raster.MissingInputError{Unit: "read", Paths: []string{path}}
		}
		return nil, err
	}
	return utils.Locked(func() (*raster.Grid, error) {
		ds, err := openDataset(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer ds.Close()

		structure := ds.Structure()
		bands := ds.Bands()
		if index < 0 || index >= len(bands) {
			return nil, fmt.Errorf("%s has %d bands, band %d requested", path, len(bands), index+1)
		}
		band := bands[index]

		desc := raster.Descriptor{
			Width:    structure.SizeX,
			Height:   structure.SizeY,
			DataType: toDataType(band.Structure().DataType),
		}
		if gt, err := ds.GeoTransform(); err == nil {
			desc.Transform = gt
		}
		if sr := ds.SpatialRef(); sr != nil {
			if wkt, err := sr.WKT(); err == nil {
				desc.CRS = wkt
			}
			sr.Close()
		}
		if nd, ok := band.NoData(); ok {
			desc = desc.WithNoData(nd)
		}

		data := make([]float64, desc.Size())
		if err := band.Read(0, 0, data, desc.Width, desc.Height); err != nil {
			return nil, fmt.Errorf("failed to read band %d of %s: %w", index+1, path, err)
		}
		return raster.Wrap(desc, data)
	})
}

// ReadBandSet reads single-band files into a band set named after the files.
func ReadBandSet(names []string, paths []string) (*raster.BandSet, error) {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, &raster.MissingInputError{Unit: "band set", Paths: missing}
	}
	grids := make([]*raster.Grid, len(paths))
	for i, p := range paths {
		g, err := ReadGrid(p)
		if err != nil {
			return nil, err
		}
		grids[i] = g
	}
	return raster.NewBandSet(names, grids...)
}

func spatialRef(crs string) (*godal.SpatialRef, error) {
	if code, ok := strings.CutPrefix(strings.ToUpper(crs), "EPSG:"); ok {
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("invalid EPSG code %q: %w", crs, err)
		}
		return godal.NewSpatialRefFromEPSG(n)
	}
	return godal.NewSpatialRefFromWKT(crs)
}

// WriteGrid writes g as a single-band GeoTIFF, replacing any existing file.
func WriteGrid(path string, g *raster.Grid) error {
	_, err := utils.Locked(func() (struct{}, error) {
		return struct{}{}, writeGrid(path, g)
	})
	return err
}

func writeGrid(path string, g *raster.Grid) error {
	desc := g.Descriptor()
	ds, err := godal.Create(godal.GTiff, path, 1, fromDataType(desc.DataType), desc.Width, desc.Height,
		godal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if desc.Transform.Valid() {
		if err := ds.SetGeoTransform(desc.Transform); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set geotransform on %s: %w", path, err)
		}
	}
	if desc.CRS != "" {
		sr, err := spatialRef(desc.CRS)
		if err != nil {
			ds.Close()
			return fmt.Errorf("failed to parse crs of %s: %w", path, err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			ds.Close()
			return fmt.Errorf("failed to set crs on %s: %w", path, err)
		}
	}

	band := ds.Bands()[0]
	if desc.HasNoData {
		if err := band.SetNoData(desc.NoData); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set nodata on %s: %w", path, err)
		}
	}
	if err := band.Write(0, 0, g.Values(), desc.Width, desc.Height); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
