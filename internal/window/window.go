// Package window crops a band stack to a window centred on the grid.
package window

import (
	"errors"
	"fmt"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

var ErrInvalidWindow = errors.New("window size must be positive")

// Window is the position of a crop inside its source grid.
type Window struct {
	Row    int
	Col    int
	Width  int
	Height int
}

func (w Window) Shape() raster.Shape {
	return raster.Shape{Width: w.Width, Height: w.Height}
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", w.Width, w.Height, w.Col, w.Row)
}

// Bounds computes the window of the given size centred on a width×height
// grid. Edges that would fall outside the grid are clamped.
func Bounds(width, height, size int) (Window, error) {
	if size <= 0 {
		return Window{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, size)
	}
	half := size / 2
	cy, cx := height/2, width/2
	r0, r1 := max(cy-half, 0), min(cy+half, height)
	c0, c1 := max(cx-half, 0), min(cx+half, width)
	return Window{Row: r0, Col: c0, Width: c1 - c0, Height: r1 - r0}, nil
}

// Crop copies the window out of g. The result's transform starts at the
// window origin.
func Crop(g *raster.Grid, w Window) (*raster.Grid, error) {
	if w.Row < 0 || w.Col < 0 || w.Row+w.Height > g.Height() || w.Col+w.Width > g.Width() {
		return nil, &raster.ShapeMismatchError{
			Op:     "crop",
			Reason: fmt.Sprintf("window %s outside %s grid", w, g.Shape()),
		}
	}
	out := make([]float64, 0, w.Width*w.Height)
	for row := w.Row; row < w.Row+w.Height; row++ {
		for col := w.Col; col < w.Col+w.Width; col++ {
			out = append(out, g.At(row, col))
		}
	}
	desc := g.Descriptor().
		WithShape(w.Width, w.Height).
		WithTransform(g.Transform().Offset(w.Col, w.Row))
	return raster.Wrap(desc, out)
}

// Center crops every band to a size×size window around the grid midpoint.
func Center(bands *raster.BandSet, size int) (*raster.BandSet, Window, error) {
	shape := bands.Shape()
	w, err := Bounds(shape.Width, shape.Height, size)
	if err != nil {
		return nil, Window{}, err
	}
	cropped := make([]*raster.Grid, bands.Len())
	for i := range cropped {
		cropped[i], err = Crop(bands.Band(i), w)
		if err != nil {
			return nil, Window{}, fmt.Errorf("band %s: %w", bands.Name(i), err)
		}
	}
	out, err := raster.NewBandSet(bands.Names(), cropped...)
	if err != nil {
		return nil, Window{}, err
	}
	return out, w, nil
}
