package indices

import (
	"fmt"
	"sort"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

// Definition names a normalized difference index by the Sentinel-2 bands it
// reads. The index is (A-B)/(A+B).
type Definition struct {
	Name string
	A    string
	B    string
}

var definitions = map[string]Definition{
	"ndvi": {Name: "ndvi", A: "B8", B: "B4"},
	"ndbi": {Name: "ndbi", A: "B11", B: "B8"},
	"ndmi": {Name: "ndmi", A: "B8", B: "B11"},
	"ndwi": {Name: "ndwi", A: "B3", B: "B8"},
}

// Lookup returns the definition of a named index.
func Lookup(name string) (Definition, error) {
	def, ok := definitions[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown index %q (known: %v)", name, Names())
	}
	return def, nil
}

// Names lists the known index names in order.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bands lists the band names the index reads, A first.
func (d Definition) Bands() []string {
	return []string{d.A, d.B}
}

// Compute evaluates the index over grids keyed by band name.
func (d Definition) Compute(bands map[string]*raster.Grid) (*raster.Grid, error) {
	a, ok := bands[d.A]
	if !ok {
		return nil, &raster.MissingInputError{Unit: d.Name, Paths: []string{d.A}}
	}
	b, ok := bands[d.B]
	if !ok {
		return nil, &raster.MissingInputError{Unit: d.Name, Paths: []string{d.B}}
	}
	return NormalizedDifference(a, b)
}
