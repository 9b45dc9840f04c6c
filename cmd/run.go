package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forest-guardian/lulc-change/internal/archive"
	"github.com/forest-guardian/lulc-change/internal/delivery"
	"github.com/forest-guardian/lulc-change/internal/properties"
)

var runFlags struct {
	years      []string
	analyses   []string
	indices    []string
	window     int
	clusters   int
	seed       uint64
	threshold  float64
	pixelArea  float64
	workers    int
	roi        string
	crop       bool
	noRender   bool
	noProgress bool
	archive    string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every analysis for the configured years",
	Long: `Runs the index, classification and urban units for every year found
under the data folder, then compares the first and last year. Units with
missing bands are skipped; a failing unit does not stop the others.`,
	Args: cobra.NoArgs,
	RunE: runAnalysis,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.years, "years", nil, "Years to analyse (defaults to YEARS)")
	f.StringSliceVar(&runFlags.analyses, "analyses", nil, "Analyses to run: index, classification, urban, change")
	f.StringSliceVar(&runFlags.indices, "indices", nil, "Indices computed per year (defaults to INDICES)")
	f.IntVar(&runFlags.window, "window", 0, "Classification window size in pixels (defaults to WINDOW_SIZE)")
	f.IntVar(&runFlags.clusters, "clusters", 0, "Number of land cover clusters (defaults to CLUSTERS)")
	f.Uint64Var(&runFlags.seed, "seed", 0, "Clustering seed (defaults to CLUSTER_SEED)")
	f.Float64Var(&runFlags.threshold, "threshold", -1, "Index change threshold (defaults to CHANGE_THRESHOLD)")
	f.Float64Var(&runFlags.pixelArea, "pixel-area", 0, "Pixel area in square metres (defaults to PIXEL_AREA_M2)")
	f.IntVar(&runFlags.workers, "workers", 0, "Units run at once (defaults to WORKERS)")
	f.StringVar(&runFlags.roi, "roi", "", "Vector file masking every output (defaults to ROI_PATH)")
	f.BoolVar(&runFlags.crop, "crop", false, "Crop outputs to the region of interest")
	f.BoolVar(&runFlags.noRender, "no-render", false, "Skip PNG previews")
	f.BoolVar(&runFlags.noProgress, "no-progress", false, "Hide the progress bar")
	f.StringVar(&runFlags.archive, "archive", "none", "Archive outputs to: none, file, gridfs")
	rootCmd.AddCommand(runCmd)
}

func runConfig(cmd *cobra.Command) (delivery.Config, error) {
	cfg := delivery.ConfigFromProperties()
	flags := cmd.Flags()

	analyses, err := delivery.ParseAnalyses(runFlags.analyses)
	if err != nil {
		return cfg, err
	}
	cfg.Analyses = analyses
	if len(runFlags.years) > 0 {
		cfg.Years = runFlags.years
	}
	if len(runFlags.indices) > 0 {
		cfg.Indices = runFlags.indices
	}
	if flags.Changed("window") {
		cfg.WindowSize = runFlags.window
	}
	if flags.Changed("clusters") {
		cfg.Classifier.Clusters = runFlags.clusters
	}
	if flags.Changed("seed") {
		cfg.Classifier.Seed = runFlags.seed
	}
	if flags.Changed("threshold") {
		cfg.ChangeThreshold = runFlags.threshold
	}
	if flags.Changed("pixel-area") {
		cfg.PixelArea = runFlags.pixelArea
	}
	if flags.Changed("workers") {
		cfg.Workers = runFlags.workers
	}
	if runFlags.roi != "" {
		cfg.ROIPath = runFlags.roi
	}
	if flags.Changed("crop") {
		cfg.CropToROI = runFlags.crop
	}
	if runFlags.noRender {
		cfg.Render = false
	}
	cfg.Progress = !runFlags.noProgress
	return cfg, nil
}

// openArchive returns the configured blob store, or nil when archiving is off.
func openArchive(ctx context.Context, backend string) (archive.Store, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch backend {
	case "", "none":
		return nil, noop, nil
	case "file":
		return archive.NewFileStore(properties.ArchiveDir()), noop, nil
	case "gridfs":
		uri := properties.MongoURI()
		if uri == "" {
			return nil, nil, errors.New("MONGO_URI is not set")
		}
		store, disconnect, err := archive.Connect(ctx, uri, properties.MongoDatabase())
		if err != nil {
			return nil, nil, err
		}
		return store, disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", backend)
	}
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := runConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []delivery.Option{}
	store, closeStore, err := openArchive(ctx, runFlags.archive)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			log.WithError(err).Warn("failed to close archive")
		}
	}()
	if store != nil {
		opts = append(opts, delivery.WithArchive(store))
	}

	color.Cyan("Analysing %v from %s into %s", cfg.Years, cfg.DataDir, cfg.OutputDir)
	report, err := delivery.New(cfg, opts...).Run(ctx)
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d units failed", report.Failed, len(report.Units))
	}
	return nil
}

func printReport(report *delivery.Report) {
	fmt.Println()
	for _, u := range report.Units {
		line := fmt.Sprintf("%-24s %-8s %s", u.Name, u.Status, u.Details)
		switch u.Status {
		case delivery.StatusDone:
			color.Green("%s", line)
		case delivery.StatusSkipped:
			color.Yellow("%s", line)
		default:
			color.Red("%s", line)
		}
	}
	fmt.Printf("\n%d units, %d failed, %d skipped\n", len(report.Units), report.Failed, report.Skipped)
}
