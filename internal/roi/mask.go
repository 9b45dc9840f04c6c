// Package roi masks grids with region-of-interest polygons. Geometries must
// already be in the grid's coordinate reference.
package roi

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/window"
)

var ErrNoOverlap = errors.New("region of interest does not overlap the grid")

const defaultNoData = -9999.0

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	case orb.Ring:
		return planar.RingContains(geom, p)
	case orb.Bound:
		return geom.Contains(p)
	case orb.Collection:
		for _, sub := range geom {
			if contains(sub, p) {
				return true
			}
		}
	}
	return false
}

func fillValue(g *raster.Grid) (float64, raster.Descriptor) {
	desc := g.Descriptor()
	if desc.HasNoData {
		return desc.NoData, desc
	}
	if desc.DataType.IsInteger() {
		return 0, desc.WithNoData(0)
	}
	return defaultNoData, desc.WithNoData(defaultNoData)
}

// Mask sets every pixel whose centre lies outside all geometries to nodata.
// With crop set, the result is also cut down to the geometries' bounds.
func Mask(g *raster.Grid, geoms []orb.Geometry, crop bool) (*raster.Grid, error) {
	if len(geoms) == 0 {
		return nil, fmt.Errorf("mask: no geometries")
	}
	gt := g.Transform()
	if !gt.Valid() {
		return nil, &raster.ShapeMismatchError{Op: "mask", Reason: "grid has no valid geotransform"}
	}

	fill, desc := fillValue(g)
	out := g.Values()
	inside := 0
	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			x, y := gt.PixelToGround(float64(col)+0.5, float64(row)+0.5)
			p := orb.Point{x, y}
			hit := false
			for _, geom := range geoms {
				if contains(geom, p) {
					hit = true
					break
				}
			}
			if hit {
				inside++
				continue
			}
			out[row*g.Width()+col] = fill
		}
	}
	if inside == 0 {
		return nil, ErrNoOverlap
	}

	masked, err := raster.Wrap(desc, out)
	if err != nil {
		return nil, err
	}
	if !crop {
		return masked, nil
	}
	w, err := boundsWindow(masked, geoms)
	if err != nil {
		return nil, err
	}
	return window.Crop(masked, w)
}

// boundsWindow converts the combined bounds of geoms into a pixel window
// clipped to the grid.
func boundsWindow(g *raster.Grid, geoms []orb.Geometry) (window.Window, error) {
	bound := geoms[0].Bound()
	for _, geom := range geoms[1:] {
		bound = bound.Union(geom.Bound())
	}
	gt := g.Transform()
	minCol, minRow := math.Inf(1), math.Inf(1)
	maxCol, maxRow := math.Inf(-1), math.Inf(-1)
	corners := []orb.Point{bound.Min, bound.Max, {bound.Min.X(), bound.Max.Y()}, {bound.Max.X(), bound.Min.Y()}}
	for _, c := range corners {
		col, row, ok := gt.GroundToPixel(c.X(), c.Y())
		if !ok {
			return window.Window{}, &raster.ShapeMismatchError{Op: "mask", Reason: "degenerate geotransform"}
		}
		minCol, maxCol = math.Min(minCol, col), math.Max(maxCol, col)
		minRow, maxRow = math.Min(minRow, row), math.Max(maxRow, row)
	}
	c0 := max(int(math.Floor(minCol)), 0)
	r0 := max(int(math.Floor(minRow)), 0)
	c1 := min(int(math.Ceil(maxCol)), g.Width())
	r1 := min(int(math.Ceil(maxRow)), g.Height())
	if c1 <= c0 || r1 <= r0 {
		return window.Window{}, ErrNoOverlap
	}
	return window.Window{Row: r0, Col: c0, Width: c1 - c0, Height: r1 - r0}, nil
}

// LoadGeoJSON reads the geometries of a FeatureCollection, or of a single
// Feature or bare geometry.
func LoadGeoJSON(path string) ([]orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roi file: %w", err)
	}
	return ParseGeoJSON(data)
}

func ParseGeoJSON(data []byte) ([]orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		geoms := make([]orb.Geometry, 0, len(fc.Features))
		for _, f := range fc.Features {
			if f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
		return geoms, nil
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		return []orb.Geometry{f.Geometry}, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roi geojson: %w", err)
	}
	return []orb.Geometry{g.Coordinates}, nil
}
