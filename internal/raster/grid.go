package raster

import (
	"fmt"
	"math"
)

// DataType is the declared numeric element type of a grid's samples.
type DataType int

const (
	Float32 DataType = iota
	Float64
	Byte
	UInt16
	Int16
	UInt32
	Int32
)

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Byte:
		return "Byte"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	}
	return fmt.Sprintf("DataType(%d)", int(dt))
}

// IsInteger reports whether values of this type are whole numbers.
func (dt DataType) IsInteger() bool {
	return dt != Float32 && dt != Float64
}

func (dt DataType) bounds() (float64, float64) {
	switch dt {
	case Byte:
		return 0, math.MaxUint8
	case UInt16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	}
	return math.Inf(-1), math.Inf(1)
}

// Coerce converts v into the representable range of dt. Integer types round
// half away from zero and clamp; Float32 loses precision the way a float32
// store would. NaN and ±Inf are kept for float types; integer types turn NaN
// into 0 and clamp infinities.
func (dt DataType) Coerce(v float64) float64 {
	if math.IsNaN(v) {
		if dt.IsInteger() {
			return 0
		}
		return v
	}
	if math.IsInf(v, 0) && !dt.IsInteger() {
		return v
	}
	lo, hi := dt.bounds()
	if dt.IsInteger() {
		v = math.Round(v)
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	if dt == Float32 {
		return float64(float32(v))
	}
	return v
}

// Threshold returns v at the precision samples of dt are stored at, so a
// comparison against a sample behaves as it would in that type. Integer types
// keep v as is.
func (dt DataType) Threshold(v float64) float64 {
	if dt.IsInteger() {
		return v
	}
	return dt.Coerce(v)
}

// GeoTransform is the GDAL affine transform:
// [originX, pixelWidth, rowRotation, originY, colRotation, pixelHeight].
type GeoTransform [6]float64

// Valid reports whether the transform has a finite, non-zero pixel size.
func (gt GeoTransform) Valid() bool {
	for _, v := range gt {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return gt[1] != 0 && gt[5] != 0
}

// PixelToGround maps a (possibly fractional) pixel coordinate to ground
// coordinates.
func (gt GeoTransform) PixelToGround(col, row float64) (float64, float64) {
	x := gt[0] + col*gt[1] + row*gt[2]
	y := gt[3] + col*gt[4] + row*gt[5]
	return x, y
}

// GroundToPixel is the inverse of PixelToGround. It returns false when the
// transform is degenerate.
func (gt GeoTransform) GroundToPixel(x, y float64) (float64, float64, bool) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return 0, 0, false
	}
	dx, dy := x-gt[0], y-gt[3]
	col := (dx*gt[5] - dy*gt[2]) / det
	row := (dy*gt[1] - dx*gt[4]) / det
	return col, row, true
}

// Offset returns the transform of a sub-grid whose top-left pixel is
// (col, row) in this grid.
func (gt GeoTransform) Offset(col, row int) GeoTransform {
	x, y := gt.PixelToGround(float64(col), float64(row))
	out := gt
	out[0] = x
	out[3] = y
	return out
}

// Scale returns the transform covering the same extent with width×height
// pixels when the source covered srcWidth×srcHeight.
func (gt GeoTransform) Scale(srcWidth, srcHeight, width, height int) GeoTransform {
	sx := float64(srcWidth) / float64(width)
	sy := float64(srcHeight) / float64(height)
	out := gt
	out[1] *= sx
	out[2] *= sy
	out[4] *= sx
	out[5] *= sy
	return out
}

// Descriptor is the immutable metadata of a grid. Derived grids get a fresh
// Descriptor built from the With* methods; nothing mutates one in place.
type Descriptor struct {
	Width     int
	Height    int
	Transform GeoTransform
	CRS       string
	NoData    float64
	HasNoData bool
	DataType  DataType
}

func (d Descriptor) WithShape(width, height int) Descriptor {
	d.Width, d.Height = width, height
	return d
}

func (d Descriptor) WithTransform(gt GeoTransform) Descriptor {
	d.Transform = gt
	return d
}

func (d Descriptor) WithNoData(v float64) Descriptor {
	d.NoData, d.HasNoData = v, true
	return d
}

func (d Descriptor) WithoutNoData() Descriptor {
	d.NoData, d.HasNoData = 0, false
	return d
}

func (d Descriptor) WithDataType(dt DataType) Descriptor {
	d.DataType = dt
	return d
}

// Size is the number of cells described.
func (d Descriptor) Size() int {
	return d.Width * d.Height
}

// Grid is a single-band raster: a Descriptor plus Height×Width samples in
// row-major order. Grids are immutable after construction.
type Grid struct {
	desc Descriptor
	data []float64
}

// New builds a grid, copying data. Samples are coerced to the declared data
// type; the declared nodata value is kept as is. It fails with a
// ShapeMismatchError when the sample count does not match the declared shape.
func New(desc Descriptor, data []float64) (*Grid, error) {
	if desc.Width < 0 || desc.Height < 0 || len(data) != desc.Size() {
		return nil, &ShapeMismatchError{
			Op:     "new grid",
			Want:   Shape{Width: desc.Width, Height: desc.Height},
			Reason: fmt.Sprintf("%d samples for a %dx%d grid", len(data), desc.Width, desc.Height),
		}
	}
	cp := make([]float64, len(data))
	copy(cp, data)
	coerceSamples(desc, cp)
	return &Grid{desc: desc, data: cp}, nil
}

// Wrap takes ownership of data without copying and coerces it in place like
// New. Callers must not touch data afterwards; it is used by the stage
// functions that allocate their output.
func Wrap(desc Descriptor, data []float64) (*Grid, error) {
	if desc.Width < 0 || desc.Height < 0 || len(data) != desc.Size() {
		return nil, &ShapeMismatchError{
			Op:     "wrap grid",
			Want:   Shape{Width: desc.Width, Height: desc.Height},
			Reason: fmt.Sprintf("%d samples for a %dx%d grid", len(data), desc.Width, desc.Height),
		}
	}
	coerceSamples(desc, data)
	return &Grid{desc: desc, data: data}, nil
}

func coerceSamples(desc Descriptor, data []float64) {
	if desc.DataType == Float64 {
		return
	}
	for i, v := range data {
		if desc.HasNoData && v == desc.NoData {
			continue
		}
		data[i] = desc.DataType.Coerce(v)
	}
}

// Fill builds a grid with every cell set to v.
func Fill(desc Descriptor, v float64) *Grid {
	if !desc.HasNoData || v != desc.NoData {
		v = desc.DataType.Coerce(v)
	}
	data := make([]float64, desc.Size())
	for i := range data {
		data[i] = v
	}
	return &Grid{desc: desc, data: data}
}

func (g *Grid) Descriptor() Descriptor  { return g.desc }
func (g *Grid) Width() int              { return g.desc.Width }
func (g *Grid) Height() int             { return g.desc.Height }
func (g *Grid) Len() int                { return len(g.data) }
func (g *Grid) Shape() Shape            { return Shape{Width: g.desc.Width, Height: g.desc.Height} }
func (g *Grid) Transform() GeoTransform { return g.desc.Transform }
func (g *Grid) CRS() string             { return g.desc.CRS }
func (g *Grid) DataType() DataType      { return g.desc.DataType }

// NoData returns the nodata sentinel and whether one is set.
func (g *Grid) NoData() (float64, bool) {
	return g.desc.NoData, g.desc.HasNoData
}

// At returns the sample at row, col.
func (g *Grid) At(row, col int) float64 {
	return g.data[row*g.desc.Width+col]
}

// Index returns the i-th sample in row-major order.
func (g *Grid) Index(i int) float64 {
	return g.data[i]
}

// Values returns a copy of the samples.
func (g *Grid) Values() []float64 {
	cp := make([]float64, len(g.data))
	copy(cp, g.data)
	return cp
}

// IsNoData reports whether v is the grid's nodata sentinel or NaN.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.desc.HasNoData && v == g.desc.NoData
}

// SameShape reports whether both grids have identical width and height.
func (g *Grid) SameShape(other *Grid) bool {
	return g.desc.Width == other.desc.Width && g.desc.Height == other.desc.Height
}

// Shape is a width×height pair.
type Shape struct {
	Width  int
	Height int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
