// Package landcover clusters a band stack into unsupervised land-cover
// labels.
//
// Pixels where any band reads exactly zero, NaN or an infinity are treated as
// missing and left unlabelled. Labels are cluster ids shifted by one; their
// numbering carries no meaning across separate runs.
package landcover

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/forest-guardian/lulc-change/internal/raster"
)

var (
	ErrNoValidPixels = errors.New("no valid pixels to cluster")
	ErrTooFewPixels  = errors.New("fewer valid pixels than clusters")
)

// Unclassified is the label of pixels excluded from clustering.
const Unclassified = 0

// ClusteringConvergenceWarning reports that the best restart hit the
// iteration cap before its centroids settled.
type ClusteringConvergenceWarning struct {
	Iterations int
	Shift      float64
}

func (w *ClusteringConvergenceWarning) Error() string {
	return fmt.Sprintf("clustering did not converge after %d iterations (centroid shift %g)", w.Iterations, w.Shift)
}

type Options struct {
	Clusters  int
	MaxIter   int
	Restarts  int
	Tolerance float64
	Seed      uint64
}

func DefaultOptions() Options {
	return Options{
		Clusters:  5,
		MaxIter:   300,
		Restarts:  10,
		Tolerance: 1e-4,
		Seed:      42,
	}
}

type Result struct {
	// Labels is a Byte grid: 0 for invalid pixels, 1..N for clusters.
	Labels *raster.Grid
	// Centroids are in standardized feature space, one per cluster.
	Centroids  [][]float64
	Scaler     *Scaler
	Inertia    float64
	Iterations int
	// Counts holds the number of pixels per label, Counts[0] being label 1.
	Counts  []int
	Valid   int
	Warning *ClusteringConvergenceWarning
}

// validPixels returns the row-major indexes of pixels where no band is zero,
// infinite or missing, and the band values at those pixels as columns.
func validPixels(bands *raster.BandSet) ([]int, [][]float64) {
	grids := bands.Bands()
	n := grids[0].Len()
	var index []int
	for i := 0; i < n; i++ {
		ok := true
		for _, g := range grids {
			v := g.Index(i)
			if v == 0 || g.IsNoData(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
		}
		if ok {
			index = append(index, i)
		}
	}
	columns := make([][]float64, len(grids))
	for k, g := range grids {
		columns[k] = make([]float64, len(index))
		for j, i := range index {
			columns[k][j] = g.Index(i)
		}
	}
	return index, columns
}

// Classify clusters the valid pixels of bands into opts.Clusters groups.
// Zero-valued option fields take their defaults. Output is bit-identical for
// identical inputs and options.
func Classify(bands *raster.BandSet, opts Options) (*Result, error) {
	def := DefaultOptions()
	if opts.MaxIter == 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.Restarts == 0 {
		opts.Restarts = def.Restarts
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.Clusters < 1 || opts.Clusters > math.MaxUint8 {
		return nil, fmt.Errorf("cluster count %d outside 1..%d", opts.Clusters, math.MaxUint8)
	}
	if opts.MaxIter < 0 || opts.Restarts < 0 {
		return nil, fmt.Errorf("iterations (%d) and restarts (%d) must be positive", opts.MaxIter, opts.Restarts)
	}

	index, columns := validPixels(bands)
	if len(index) == 0 {
		return nil, ErrNoValidPixels
	}
	if len(index) < opts.Clusters {
		return nil, fmt.Errorf("%w: %d valid, %d clusters", ErrTooFewPixels, len(index), opts.Clusters)
	}

	scaler := FitScaler(columns)
	points := scaler.Transform(columns)
	tol := tolerance(points, opts.Tolerance)

	master := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	seeds := make([]uint64, opts.Restarts)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	runs := make([]run, opts.Restarts)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range runs {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(opts.Seed, seeds[i]))
			runs[i] = lloyd(points, opts.Clusters, opts.MaxIter, tol, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(runs); i++ {
		if runs[i].inertia < runs[best].inertia {
			best = i
		}
	}
	winner := runs[best]

	labels := make([]float64, bands.Band(0).Len())
	counts := make([]int, opts.Clusters)
	for j, i := range index {
		labels[i] = float64(winner.labels[j] + 1)
		counts[winner.labels[j]]++
	}
	desc := bands.Descriptor().
		WithDataType(raster.Byte).
		WithNoData(Unclassified)
	grid, err := raster.Wrap(desc, labels)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Labels:     grid,
		Centroids:  winner.centroids,
		Scaler:     scaler,
		Inertia:    winner.inertia,
		Iterations: winner.iterations,
		Counts:     counts,
		Valid:      len(index),
	}
	if !winner.converged {
		res.Warning = &ClusteringConvergenceWarning{Iterations: winner.iterations, Shift: winner.shift}
	}
	return res, nil
}
