package sentinel

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/forest-guardian/lulc-change/internal/utils"
)

// LoadROI reads every feature geometry of a vector file (shapefile,
// GeoJSON, GeoPackage...) and reprojects it into targetCRS when the layer
// uses another reference. An empty targetCRS keeps the layer's own.
func LoadROI(path, targetCRS string) ([]orb.Geometry, error) {
	return utils.Locked(func() ([]orb.Geometry, error) {
		ds, err := openDataset(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open roi %s: %w", path, err)
		}
		defer ds.Close()

		var target *godal.SpatialRef
		if targetCRS != "" {
			target, err = spatialRef(targetCRS)
			if err != nil {
				return nil, err
			}
			defer target.Close()
		}

		var geoms []orb.Geometry
		for _, layer := range ds.Layers() {
			reproject := false
			if target != nil {
				if sr := layer.SpatialRef(); sr != nil {
					reproject = !sr.IsSame(target)
				}
			}
			for {
				feat := layer.NextFeature()
				if feat == nil {
					break
				}
				g, err := featureGeometry(feat, target, reproject)
				feat.Close()
				if err != nil {
					return nil, fmt.Errorf("roi %s: %w", path, err)
				}
				if g != nil {
					geoms = append(geoms, g)
				}
			}
		}
		if len(geoms) == 0 {
			return nil, fmt.Errorf("roi %s has no geometries", path)
		}
		return geoms, nil
	})
}

func featureGeometry(feat *godal.Feature, target *godal.SpatialRef, reproject bool) (orb.Geometry, error) {
	geom := feat.Geometry()
	if geom == nil || geom.Empty() {
		return nil, nil
	}
	defer geom.Close()
	if reproject {
		if err := geom.Reproject(target); err != nil {
			return nil, fmt.Errorf("failed to reproject geometry: %w", err)
		}
	}
	js, err := geom.GeoJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export geometry: %w", err)
	}
	g, err := geojson.UnmarshalGeometry([]byte(js))
	if err != nil {
		return nil, fmt.Errorf("failed to parse geometry: %w", err)
	}
	return g.Coordinates, nil
}
