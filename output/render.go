// Package output renders PNG previews of index and category rasters.
package output

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/fogleman/gg"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

const (
	legendItem    = 20
	legendPadding = 10
	minWidth      = 180
)

type IndexOptions struct {
	Title string
	Min   float64
	Max   float64
	Ramp  Ramp
}

// Labeler names a category value in the legend.
type Labeler func(value float64) string

// canvas lays out a white context with room for the title above and
// legendRows legend entries below a width×height raster. It returns the
// context and the row the raster starts at.
func canvas(width, height, legendRows int, title string) (*gg.Context, int) {
	w := max(width, minWidth)
	h := height + legendPadding*2 + legendRows*legendItem
	top := 0
	if title != "" {
		top = legendItem
		h += legendItem
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if title != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(title, float64(w)/2, float64(legendItem)/2, 0.5, 0.5)
	}
	return dc, top
}

func paint(dc *gg.Context, top int, g *raster.Grid, colorAt func(v float64) color.RGBA) {
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			dc.SetColor(colorAt(g.At(y, x)))
			dc.SetPixel(x, y+top)
		}
	}
}

func swatch(dc *gg.Context, x, y int, c color.RGBA, label string) {
	dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
	dc.DrawRectangle(float64(x), float64(y), 15, 15)
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(float64(x), float64(y), 15, 15)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.DrawStringAnchored(label, float64(x+20), float64(y+7), 0, 0.5)
}

func save(dc *gg.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// RenderIndex draws a continuous raster with a colour ramp stretched over
// [Min, Max]. Nodata pixels are white.
func RenderIndex(g *raster.Grid, path string, opts IndexOptions) error {
	ramp := opts.Ramp
	if ramp == nil {
		ramp = RedYellowGreen
	}
	lo, hi := opts.Min, opts.Max
	if lo == hi {
		lo, hi = -1, 1
	}
	dc, top := canvas(g.Width(), g.Height(), 3, opts.Title)
	paint(dc, top, g, func(v float64) color.RGBA {
		if g.IsNoData(v) || math.IsInf(v, 0) {
			return noDataColor
		}
		return ramp(normalize(v, lo, hi))
	})

	y := dc.Height() - legendPadding - 3*legendItem
	swatch(dc, legendPadding, y, ramp(0), fmt.Sprintf("%.2f", lo))
	swatch(dc, legendPadding, y+legendItem, ramp(0.5), fmt.Sprintf("%.2f", (lo+hi)/2))
	swatch(dc, legendPadding, y+2*legendItem, ramp(1), fmt.Sprintf("%.2f", hi))
	return save(dc, path)
}

// RenderCategories draws a categorical raster. kind selects the colour
// table ("change", "urban", "transition"); unknown kinds use the cluster
// palette. Every value present gets a legend entry.
func RenderCategories(g *raster.Grid, path, kind, title string, labeler Labeler) error {
	present := make(map[int]bool)
	for i := 0; i < g.Len(); i++ {
		if v := g.Index(i); !math.IsNaN(v) {
			present[int(v)] = true
		}
	}
	values := make([]int, 0, len(present))
	for v := range present {
		values = append(values, v)
	}
	sort.Ints(values)

	dc, top := canvas(g.Width(), g.Height(), len(values), title)
	paint(dc, top, g, func(v float64) color.RGBA {
		if math.IsNaN(v) {
			return noDataColor
		}
		return categoryColor(kind, int(v))
	})
	y := dc.Height() - legendPadding - len(values)*legendItem
	for i, v := range values {
		label := fmt.Sprintf("%d", v)
		if labeler != nil {
			if name := labeler(float64(v)); name != "" {
				label = name
			}
		}
		swatch(dc, legendPadding, y+i*legendItem, categoryColor(kind, v), label)
	}
	return save(dc, path)
}
