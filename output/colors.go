package output

import (
	"fmt"
	"image/color"

	"github.com/forest-guardian/lulc-change/internal/properties"
)

// Ramp maps a value normalized to [0, 1] to a colour.
type Ramp func(norm float64) color.RGBA

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// BlueGreenRed goes from blue through green to red.
func BlueGreenRed(norm float64) color.RGBA {
	var r, g, b uint8
	if norm <= 0.5 {
		ratio := norm / 0.5
		g = uint8(255 * ratio)
		b = uint8(255 * (1 - ratio))
	} else {
		ratio := (norm - 0.5) / 0.5
		r = uint8(255 * ratio)
		g = uint8(255 * (1 - ratio))
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// RedYellowGreen is the usual vegetation index ramp: low values red, high
// values green.
func RedYellowGreen(norm float64) color.RGBA {
	if norm <= 0.5 {
		ratio := norm / 0.5
		return color.RGBA{R: 215, G: uint8(48 + (255-48)*ratio), B: uint8(39 + (191-39)*ratio), A: 255}
	}
	ratio := (norm - 0.5) / 0.5
	return color.RGBA{R: uint8(255 - (255-26)*ratio), G: uint8(255 - (255-152)*ratio), B: uint8(191 - (191-80)*ratio), A: 255}
}

var clusterColors = []color.RGBA{
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 255, G: 128, B: 0, A: 255},
	{R: 128, G: 0, B: 255, A: 255},
}

var noDataColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// categoryColor looks the value up in the configured colour map, falling
// back to the cluster palette.
func categoryColor(kind string, value int) color.RGBA {
	if c, ok := properties.ColorMap[fmt.Sprintf("%s:%d", kind, value)]; ok {
		return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	if value <= 0 {
		return noDataColor
	}
	return clusterColors[(value-1)%len(clusterColors)]
}
