package raster

import "fmt"

// BandSet is an ordered stack of grids sharing shape and transform. The
// position of a band is its feature index for classification.
type BandSet struct {
	names []string
	bands []*Grid
}

// NewBandSet validates that every band matches the first one's shape and
// transform. names may be nil; otherwise it must be as long as bands.
func NewBandSet(names []string, bands ...*Grid) (*BandSet, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("band set: no bands")
	}
	if names != nil && len(names) != len(bands) {
		return nil, fmt.Errorf("band set: %d names for %d bands", len(names), len(bands))
	}
	first := bands[0]
	for i, b := range bands[1:] {
		if !first.SameShape(b) {
			return nil, &ShapeMismatchError{
				Op:   fmt.Sprintf("band set (band %d)", i+1),
				Want: first.Shape(),
				Got:  b.Shape(),
			}
		}
		if first.Transform() != b.Transform() {
			return nil, &ShapeMismatchError{
				Op:     fmt.Sprintf("band set (band %d)", i+1),
				Reason: "geotransform differs from band 0",
			}
		}
	}
	if names == nil {
		names = make([]string, len(bands))
		for i := range names {
			names[i] = fmt.Sprintf("band%d", i+1)
		}
	}
	bs := &BandSet{
		names: append([]string(nil), names...),
		bands: append([]*Grid(nil), bands...),
	}
	return bs, nil
}

func (bs *BandSet) Len() int          { return len(bs.bands) }
func (bs *BandSet) Band(i int) *Grid  { return bs.bands[i] }
func (bs *BandSet) Name(i int) string { return bs.names[i] }
func (bs *BandSet) Shape() Shape      { return bs.bands[0].Shape() }

// Descriptor is the descriptor of the first band, which every band shares
// in shape and transform.
func (bs *BandSet) Descriptor() Descriptor { return bs.bands[0].Descriptor() }

// Names returns a copy of the band names.
func (bs *BandSet) Names() []string {
	return append([]string(nil), bs.names...)
}

// Bands returns a copy of the band slice.
func (bs *BandSet) Bands() []*Grid {
	return append([]*Grid(nil), bs.bands...)
}
