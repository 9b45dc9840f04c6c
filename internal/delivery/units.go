package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/forest-guardian/lulc-change/internal/align"
	"github.com/forest-guardian/lulc-change/internal/change"
	"github.com/forest-guardian/lulc-change/internal/indices"
	"github.com/forest-guardian/lulc-change/internal/landcover"
	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/roi"
	"github.com/forest-guardian/lulc-change/internal/stats"
	"github.com/forest-guardian/lulc-change/internal/urban"
	"github.com/forest-guardian/lulc-change/internal/window"
	"github.com/forest-guardian/lulc-change/output"
)

// readAll reads paths concurrently. Every missing path is collected into a
// single MissingInputError for unitName.
func (p *Pipeline) readAll(ctx context.Context, unitName string, paths []string) ([]*raster.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grids := make([]*raster.Grid, len(paths))
	var mu sync.Mutex
	var missing []string

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			grid, err := p.storage.ReadGrid(path)
			var notFound *raster.MissingInputError
			if errors.As(err, &notFound) {
				mu.Lock()
				missing = append(missing, notFound.Paths...)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			grids[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &raster.MissingInputError{Unit: unitName, Paths: missing}
	}
	return grids, nil
}

func (p *Pipeline) readBands(ctx context.Context, unitName, year string, names ...string) ([]*raster.Grid, error) {
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = p.cfg.bandPath(year, name)
	}
	return p.readAll(ctx, unitName, paths)
}

// alignToFinest resamples every grid onto the one with the most pixels.
func alignToFinest(grids []*raster.Grid) ([]*raster.Grid, error) {
	ref := grids[0]
	for _, g := range grids[1:] {
		if g.Len() > ref.Len() {
			ref = g
		}
	}
	out := make([]*raster.Grid, len(grids))
	for i, g := range grids {
		aligned, err := align.ToReference(ref, g, align.Options{})
		if err != nil {
			return nil, err
		}
		out[i] = aligned
	}
	return out, nil
}

func (p *Pipeline) regionOfInterest(crs string) ([]orb.Geometry, error) {
	p.roiMu.Lock()
	defer p.roiMu.Unlock()
	if geoms, ok := p.roiCache[crs]; ok {
		return geoms, nil
	}
	geoms, err := p.loadROI(p.cfg.ROIPath, crs)
	if err != nil {
		return nil, fmt.Errorf("failed to load region of interest: %w", err)
	}
	p.roiCache[crs] = geoms
	return geoms, nil
}

// mask restricts grids to the region of interest, when one is configured.
func (p *Pipeline) mask(grids ...*raster.Grid) ([]*raster.Grid, error) {
	if p.cfg.ROIPath == "" {
		return grids, nil
	}
	out := make([]*raster.Grid, len(grids))
	for i, g := range grids {
		geoms, err := p.regionOfInterest(g.CRS())
		if err != nil {
			return nil, err
		}
		masked, err := roi.Mask(g, geoms, p.cfg.CropToROI)
		if err != nil {
			return nil, err
		}
		out[i] = masked
	}
	return out, nil
}

func (p *Pipeline) write(res *UnitResult, name string, g *raster.Grid) error {
	path := p.cfg.outputPath(name)
	if err := p.storage.WriteGrid(path, g); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	res.Outputs = append(res.Outputs, path)
	return nil
}

func (p *Pipeline) writeSummary(res *UnitResult, name string, s *stats.Summary) error {
	path := p.cfg.outputPath(name)
	if err := stats.SaveCSV(path, s); err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, path)
	return nil
}

func (p *Pipeline) render(res *UnitResult, name string, draw func(path string) error) error {
	if !p.cfg.Render {
		return nil
	}
	path := p.cfg.outputPath(name)
	if err := draw(path); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	res.Outputs = append(res.Outputs, path)
	return nil
}

func (p *Pipeline) runIndex(ctx context.Context, name, year string, res *UnitResult) error {
	def, err := indices.Lookup(name)
	if err != nil {
		return err
	}
	bands, err := p.readBands(ctx, res.Name, year, def.Bands()...)
	if err != nil {
		return err
	}
	bands, err = alignToFinest(bands)
	if err != nil {
		return err
	}
	grid, err := def.Compute(map[string]*raster.Grid{def.A: bands[0], def.B: bands[1]})
	if err != nil {
		return err
	}
	masked, err := p.mask(grid)
	if err != nil {
		return err
	}
	grid = masked[0]

	if err := p.write(res, fmt.Sprintf("%s_%s.tif", name, year), grid); err != nil {
		return err
	}

	desc, err := stats.Describe(grid)
	switch {
	case errors.Is(err, stats.ErrNoValues):
		res.Warning = fmt.Errorf("%s %s has no valid pixels", name, year)
	case err != nil:
		return err
	default:
		res.Details = fmt.Sprintf("mean %.3f, std %.3f, range [%.3f, %.3f]", desc.Mean, desc.Std, desc.Min, desc.Max)
		log.WithFields(log.Fields{"index": name, "year": year, "mean": desc.Mean, "min": desc.Min, "max": desc.Max}).Debug("index statistics")
	}

	return p.render(res, fmt.Sprintf("%s_%s.png", name, year), func(path string) error {
		return output.RenderIndex(grid, path, output.IndexOptions{
			Title: fmt.Sprintf("%s %s", name, year),
			Min:   -1,
			Max:   1,
			Ramp:  output.RedYellowGreen,
		})
	})
}

func (p *Pipeline) runClassification(ctx context.Context, year string, res *UnitResult) error {
	names := []string{"B2", "B3", "B4", "B8"}
	bands, err := p.readBands(ctx, res.Name, year, names...)
	if err != nil {
		return err
	}
	if bands, err = alignToFinest(bands); err != nil {
		return err
	}
	if bands, err = p.mask(bands...); err != nil {
		return err
	}
	set, err := raster.NewBandSet(names, bands...)
	if err != nil {
		return err
	}
	windowed, win, err := window.Center(set, p.cfg.WindowSize)
	if err != nil {
		return err
	}

	result, err := landcover.Classify(windowed, p.cfg.Classifier)
	if err != nil {
		return fmt.Errorf("classification of %s window %s: %w", year, win, err)
	}
	if result.Warning != nil {
		res.Warning = result.Warning
	}
	res.Details = fmt.Sprintf("window %s, %d valid pixels, inertia %.2f", win, result.Valid, result.Inertia)

	if err := p.write(res, fmt.Sprintf("classification_%s.tif", year), result.Labels); err != nil {
		return err
	}
	summary, err := stats.Summarize(result.Labels, p.cfg.PixelArea, stats.ClusterLabels)
	if err != nil {
		return err
	}
	if err := p.writeSummary(res, fmt.Sprintf("classification_%s_stats.csv", year), summary); err != nil {
		return err
	}
	return p.render(res, fmt.Sprintf("classification_%s.png", year), func(path string) error {
		return output.RenderCategories(result.Labels, path, "cluster", "Land cover "+year, stats.ClusterLabels)
	})
}

func (p *Pipeline) runUrban(ctx context.Context, year string, res *UnitResult) error {
	bands, err := p.readBands(ctx, res.Name, year, "B4", "B8", "B11")
	if err != nil {
		return err
	}
	if bands, err = alignToFinest(bands); err != nil {
		return err
	}
	builtUp, err := indices.BUI(bands[0], bands[1], bands[2])
	if err != nil {
		return err
	}
	masked, err := p.mask(builtUp.BUI, builtUp.NDVI)
	if err != nil {
		return err
	}
	bui, ndvi := masked[0], masked[1]

	if err := p.write(res, fmt.Sprintf("bui_%s.tif", year), bui); err != nil {
		return err
	}
	classes, err := urban.Extract(ndvi, bui, p.cfg.Urban)
	if err != nil {
		return err
	}
	binary, err := urban.Binary(classes)
	if err != nil {
		return err
	}
	if err := p.write(res, fmt.Sprintf("urban_classes_%s.tif", year), classes); err != nil {
		return err
	}
	if err := p.write(res, fmt.Sprintf("urban_areas_%s.tif", year), binary); err != nil {
		return err
	}

	summary, err := stats.Summarize(classes, p.cfg.PixelArea, stats.UrbanLabels)
	if err != nil {
		return err
	}
	if row, ok := summary.Row(urban.Urban); ok {
		res.Details = fmt.Sprintf("urban %.1f%% (%.3f km²)", row.Percent, row.AreaKm2)
	} else {
		res.Details = "no urban pixels"
	}
	if err := p.writeSummary(res, fmt.Sprintf("urban_%s_stats.csv", year), summary); err != nil {
		return err
	}
	return p.render(res, fmt.Sprintf("urban_%s.png", year), func(path string) error {
		return output.RenderCategories(classes, path, "urban", "Urban areas "+year, stats.UrbanLabels)
	})
}

func (p *Pipeline) runChange(ctx context.Context, earlier, later string, res *UnitResult) error {
	ndvi, err := p.readAll(ctx, res.Name, []string{
		p.cfg.outputPath(fmt.Sprintf("%s_%s.tif", changeIndex, earlier)),
		p.cfg.outputPath(fmt.Sprintf("%s_%s.tif", changeIndex, later)),
	})
	if err != nil {
		return err
	}
	detected, err := change.DetectIndexChange(ndvi[0], ndvi[1], p.cfg.ChangeThreshold)
	if err != nil {
		return err
	}
	if err := p.write(res, "ndvi_difference.tif", detected.Difference); err != nil {
		return err
	}
	if err := p.write(res, "changes.tif", detected.Classes); err != nil {
		return err
	}
	summary, err := stats.Summarize(detected.Classes, p.cfg.PixelArea, stats.ChangeLabels)
	if err != nil {
		return err
	}
	if err := p.writeSummary(res, "changes_stats.csv", summary); err != nil {
		return err
	}
	var details []string
	for _, class := range []change.Class{change.Decrease, change.Increase} {
		if row, ok := summary.Row(float64(class)); ok {
			details = append(details, fmt.Sprintf("%s %.1f%%", class, row.Percent))
		}
	}

	title := fmt.Sprintf("NDVI change %s-%s", earlier, later)
	if err := p.render(res, "ndvi_difference.png", func(path string) error {
		return output.RenderIndex(detected.Difference, path, output.IndexOptions{
			Title: title,
			Min:   -0.5,
			Max:   0.5,
			Ramp:  output.BlueGreenRed,
		})
	}); err != nil {
		return err
	}
	if err := p.render(res, "changes.png", func(path string) error {
		return output.RenderCategories(detected.Classes, path, "change", title, stats.ChangeLabels)
	}); err != nil {
		return err
	}

	fraction, err := p.compareClassifications(ctx, earlier, later, res)
	var missing *raster.MissingInputError
	switch {
	case errors.As(err, &missing):
		log.WithFields(log.Fields{"unit": res.Name, "missing": missing.Paths}).Info("classifications not available, skipping transitions")
	case err != nil:
		return err
	default:
		details = append(details, fmt.Sprintf("class changed %.1f%%", fraction*100))
	}
	res.Details = fmt.Sprintf("%s: %v", title, details)
	return nil
}

// compareClassifications writes the label transitions between two
// classifications and returns the changed fraction. Cluster numbers are not
// matched across years, so a change here means a different label, not
// necessarily a different land cover.
func (p *Pipeline) compareClassifications(ctx context.Context, earlier, later string, res *UnitResult) (float64, error) {
	labels, err := p.readAll(ctx, res.Name, []string{
		p.cfg.outputPath(fmt.Sprintf("classification_%s.tif", earlier)),
		p.cfg.outputPath(fmt.Sprintf("classification_%s.tif", later)),
	})
	if err != nil {
		return 0, err
	}
	transitions, err := change.Transitions(labels[0], labels[1])
	if err != nil {
		return 0, err
	}
	if err := p.write(res, "classification_changes.tif", transitions); err != nil {
		return 0, err
	}
	summary, err := stats.Summarize(transitions, p.cfg.PixelArea, stats.TransitionLabels)
	if err != nil {
		return 0, err
	}
	if err := p.writeSummary(res, "classification_changes_stats.csv", summary); err != nil {
		return 0, err
	}
	if err := p.render(res, "classification_changes.png", func(path string) error {
		return output.RenderCategories(transitions, path, "transition", fmt.Sprintf("Label transitions %s-%s", earlier, later), stats.TransitionLabels)
	}); err != nil {
		return 0, err
	}
	return stats.ChangedFraction(transitions), nil
}
