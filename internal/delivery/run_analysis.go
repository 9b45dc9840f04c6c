package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/paulmach/orb"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/forest-guardian/lulc-change/internal/archive"
	"github.com/forest-guardian/lulc-change/internal/notification"
	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/sentinel"
)

var ErrNoYears = errors.New("no years to analyse")

// ROILoader reads region-of-interest polygons expressed in crs.
type ROILoader func(path, crs string) ([]orb.Geometry, error)

type Pipeline struct {
	cfg     Config
	storage Storage
	store   archive.Store
	loadROI ROILoader

	roiMu    sync.Mutex
	roiCache map[string][]orb.Geometry
}

type Option func(*Pipeline)

func WithStorage(s Storage) Option {
	return func(p *Pipeline) { p.storage = s }
}

// WithArchive uploads every output of a finished unit to s.
func WithArchive(s archive.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

func WithROILoader(fn ROILoader) Option {
	return func(p *Pipeline) { p.loadROI = fn }
}

func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		storage:  GeoTIFFStorage(),
		loadROI:  sentinel.LoadROI,
		roiCache: make(map[string][]orb.Geometry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type unit struct {
	name     string
	analysis Analysis
	year     string
	run      func(ctx context.Context, res *UnitResult) error
}

func (p *Pipeline) yearlyUnits() []unit {
	var units []unit
	for _, year := range p.cfg.Years {
		for _, name := range p.cfg.indicesFor(year) {
			units = append(units, unit{
				name:     name + "/" + year,
				analysis: Index,
				year:     year,
				run: func(ctx context.Context, res *UnitResult) error {
					return p.runIndex(ctx, name, year, res)
				},
			})
		}
		if p.cfg.enabled(Classification) {
			units = append(units, unit{
				name:     "classification/" + year,
				analysis: Classification,
				year:     year,
				run: func(ctx context.Context, res *UnitResult) error {
					return p.runClassification(ctx, year, res)
				},
			})
		}
		if p.cfg.enabled(Urban) {
			units = append(units, unit{
				name:     "urban/" + year,
				analysis: Urban,
				year:     year,
				run: func(ctx context.Context, res *UnitResult) error {
					return p.runUrban(ctx, year, res)
				},
			})
		}
	}
	return units
}

// changeUnits compare the first and last year. They read the NDVI the yearly
// units wrote, so they run after them.
func (p *Pipeline) changeUnits() []unit {
	earlier, later, ok := p.cfg.changeYears()
	if !ok {
		return nil
	}
	return []unit{{
		name:     fmt.Sprintf("change/%s-%s", earlier, later),
		analysis: Change,
		year:     later,
		run: func(ctx context.Context, res *UnitResult) error {
			return p.runChange(ctx, earlier, later, res)
		},
	}}
}

// Run executes every enabled unit. A unit with missing inputs is skipped and
// a failing unit is recorded; neither stops its siblings. The returned error
// is only set when the run as a whole could not proceed or ctx ended.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := p.cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.OutputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	yearly := p.yearlyUnits()
	final := p.changeUnits()
	total := len(yearly) + len(final)
	log.WithFields(log.Fields{"units": total, "years": p.cfg.Years, "workers": p.cfg.workers()}).Info("starting analysis run")

	var bar *progressbar.ProgressBar
	if p.cfg.Progress {
		bar = progressbar.Default(int64(total), "Running analyses")
	}

	report := &Report{}
	for _, stage := range [][]unit{yearly, final} {
		for _, res := range p.runStage(ctx, stage, bar) {
			report.add(res)
		}
	}

	if err := report.SaveCSV(p.cfg.outputPath("run_report.csv")); err != nil {
		log.WithError(err).Warn("could not save run report")
	}
	log.WithFields(log.Fields{"units": len(report.Units), "failed": report.Failed, "skipped": report.Skipped}).Info("analysis run finished")

	if notification.Enabled() {
		title := fmt.Sprintf("Land cover analysis %s", strings.Join(p.cfg.Years, ", "))
		if err := report.notify(title); err != nil {
			log.WithError(err).Warn("could not send run notification")
		}
	}
	return report, ctx.Err()
}

func (p *Pipeline) runStage(ctx context.Context, units []unit, bar *progressbar.ProgressBar) []*UnitResult {
	results := make([]*UnitResult, len(units))
	var mu sync.Mutex

	wp := workerpool.New(p.cfg.workers())
	for i, u := range units {
		wp.Submit(func() {
			res := p.execute(ctx, u)
			mu.Lock()
			results[i] = res
			if bar != nil {
				bar.Add(1)
			}
			mu.Unlock()
		})
	}
	wp.StopWait()
	return results
}

func (p *Pipeline) execute(ctx context.Context, u unit) *UnitResult {
	res := &UnitResult{Name: u.name, Analysis: u.analysis, Year: u.year}
	logger := log.WithFields(log.Fields{"unit": u.name, "year": u.year})
	start := time.Now()
	defer func() { res.Seconds = time.Since(start).Seconds() }()

	err := ctx.Err()
	if err == nil {
		err = u.run(ctx, res)
	}
	if err == nil && p.store != nil {
		err = p.archiveOutputs(ctx, res)
	}

	var missing *raster.MissingInputError
	switch {
	case errors.As(err, &missing):
		res.Status = StatusSkipped
		res.Details = "missing " + strings.Join(missing.Paths, ", ")
		logger.WithField("missing", missing.Paths).Warn("skipping unit, inputs not found")
	case err != nil:
		res.Status = StatusFailed
		res.Err = err
		res.Details = err.Error()
		logger.WithError(err).Error("unit failed")
	default:
		res.Status = StatusDone
		if res.Warning != nil {
			res.Details = strings.TrimPrefix(res.Details+"; "+res.Warning.Error(), "; ")
			logger.WithError(res.Warning).Warn("unit finished with a warning")
		}
		logger.WithField("outputs", len(res.Outputs)).Info("unit done")
	}
	return res
}

func (p *Pipeline) archiveOutputs(ctx context.Context, res *UnitResult) error {
	for _, path := range res.Outputs {
		name := filepath.ToSlash(filepath.Join(strings.ReplaceAll(res.Name, "/", "_"), filepath.Base(path)))
		if err := archive.PutFile(ctx, p.store, path, name); err != nil {
			return err
		}
	}
	return nil
}
