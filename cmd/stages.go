package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forest-guardian/lulc-change/internal/align"
	"github.com/forest-guardian/lulc-change/internal/change"
	"github.com/forest-guardian/lulc-change/internal/indices"
	"github.com/forest-guardian/lulc-change/internal/landcover"
	"github.com/forest-guardian/lulc-change/internal/properties"
	"github.com/forest-guardian/lulc-change/internal/raster"
	"github.com/forest-guardian/lulc-change/internal/sentinel"
	"github.com/forest-guardian/lulc-change/internal/stats"
	"github.com/forest-guardian/lulc-change/internal/urban"
	"github.com/forest-guardian/lulc-change/internal/window"
)

var indexCmd = &cobra.Command{
	Use:   "index <name> <band-a.tif> <band-b.tif> <out.tif>",
	Short: "Compute a normalized difference index from two bands",
	Long: `Computes (A-B)/(A+B). The band order follows the index definition,
for ndvi that is NIR (B8) then red (B4). Band B is resampled onto band A
when their shapes differ.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := indices.Lookup(args[0])
		if err != nil {
			return err
		}
		bands, err := sentinel.ReadBandSet(def.Bands(), args[1:3])
		if err != nil {
			return err
		}
		b, err := align.ToReference(bands.Band(0), bands.Band(1), align.Options{})
		if err != nil {
			return err
		}
		out, err := def.Compute(map[string]*raster.Grid{def.A: bands.Band(0), def.B: b})
		if err != nil {
			return err
		}
		if err := sentinel.WriteGrid(args[3], out); err != nil {
			return err
		}
		if desc, err := stats.Describe(out); err == nil {
			color.Green("%s written to %s: mean %.3f, std %.3f, range [%.3f, %.3f]", def.Name, args[3], desc.Mean, desc.Std, desc.Min, desc.Max)
		}
		return nil
	},
}

var classifyFlags struct {
	window   int
	clusters int
	seed     uint64
	restarts int
}

var classifyCmd = &cobra.Command{
	Use:   "classify <out.tif> <band.tif>...",
	Short: "Cluster the centre window of a band stack into land cover labels",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args[1:]
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = filepath.Base(p)
		}
		bands, err := sentinel.ReadBandSet(names, paths)
		if err != nil {
			return err
		}
		aligned := make([]*raster.Grid, bands.Len())
		for i := range bands.Len() {
			if aligned[i], err = align.ToReference(bands.Band(0), bands.Band(i), align.Options{}); err != nil {
				return err
			}
		}
		if bands, err = raster.NewBandSet(names, aligned...); err != nil {
			return err
		}
		flags := cmd.Flags()
		size := properties.WindowSize()
		if flags.Changed("window") {
			size = classifyFlags.window
		}
		windowed, win, err := window.Center(bands, size)
		if err != nil {
			return err
		}

		opts := landcover.DefaultOptions()
		opts.Clusters = properties.Clusters()
		opts.Seed = properties.ClusterSeed()
		if flags.Changed("clusters") {
			opts.Clusters = classifyFlags.clusters
		}
		if flags.Changed("seed") {
			opts.Seed = classifyFlags.seed
		}
		if flags.Changed("restarts") {
			opts.Restarts = classifyFlags.restarts
		}
		result, err := landcover.Classify(windowed, opts)
		if err != nil {
			return err
		}
		if result.Warning != nil {
			color.Yellow("Warning: %s", result.Warning)
		}
		if err := sentinel.WriteGrid(args[0], result.Labels); err != nil {
			return err
		}
		color.Green("Window %s classified into %d clusters (%d valid pixels, inertia %.2f)", win, opts.Clusters, result.Valid, result.Inertia)
		return printSummary(result.Labels, stats.ClusterLabels)
	},
}

var changeThreshold float64

var changeCmd = &cobra.Command{
	Use:   "change <earlier.tif> <later.tif> <out-dir>",
	Short: "Difference two index rasters and classify the change",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		earlier, err := sentinel.ReadGrid(args[0])
		if err != nil {
			return err
		}
		later, err := sentinel.ReadGrid(args[1])
		if err != nil {
			return err
		}
		detected, err := change.DetectIndexChange(earlier, later, changeThreshold)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(args[2], os.ModePerm); err != nil {
			return err
		}
		if err := sentinel.WriteGrid(filepath.Join(args[2], "difference.tif"), detected.Difference); err != nil {
			return err
		}
		if err := sentinel.WriteGrid(filepath.Join(args[2], "changes.tif"), detected.Classes); err != nil {
			return err
		}
		color.Green("Change maps written to %s", args[2])
		return printSummary(detected.Classes, stats.ChangeLabels)
	},
}

var transitionsCmd = &cobra.Command{
	Use:   "transitions <labels-a.tif> <labels-b.tif> <out.tif>",
	Short: "Mark pixels whose label differs between two classifications",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := sentinel.ReadGrid(args[0])
		if err != nil {
			return err
		}
		b, err := sentinel.ReadGrid(args[1])
		if err != nil {
			return err
		}
		transitions, err := change.Transitions(a, b)
		if err != nil {
			return err
		}
		if err := sentinel.WriteGrid(args[2], transitions); err != nil {
			return err
		}
		color.Green("%.1f%% of pixels changed label", stats.ChangedFraction(transitions)*100)
		return nil
	},
}

var urbanCmd = &cobra.Command{
	Use:   "urban <red.tif> <nir.tif> <swir.tif> <out-dir>",
	Short: "Extract urban areas from the built-up index",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		bands, err := sentinel.ReadBandSet([]string{"red", "nir", "swir"}, args[:3])
		if err != nil {
			return err
		}
		red, err := align.ToReference(bands.Band(1), bands.Band(0), align.Options{})
		if err != nil {
			return err
		}
		swir, err := align.ToReference(bands.Band(1), bands.Band(2), align.Options{})
		if err != nil {
			return err
		}
		builtUp, err := indices.BUI(red, bands.Band(1), swir)
		if err != nil {
			return err
		}
		classes, err := urban.Extract(builtUp.NDVI, builtUp.BUI, urban.DefaultThresholds())
		if err != nil {
			return err
		}
		binary, err := urban.Binary(classes)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(args[3], os.ModePerm); err != nil {
			return err
		}
		for name, g := range map[string]*raster.Grid{"bui.tif": builtUp.BUI, "urban_classes.tif": classes, "urban_areas.tif": binary} {
			if err := sentinel.WriteGrid(filepath.Join(args[3], name), g); err != nil {
				return err
			}
		}
		color.Green("Urban maps written to %s", args[3])
		return printSummary(classes, stats.UrbanLabels)
	},
}

var statsFlags struct {
	kind string
	csv  string
}

var statsCmd = &cobra.Command{
	Use:   "stats <raster.tif>",
	Short: "Summarize a raster",
	Long: `Prints pixel counts and areas per value for categorical rasters
(--kind change, urban, cluster or transition), or min/max/mean/std for
index rasters (--kind index).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := sentinel.ReadGrid(args[0])
		if err != nil {
			return err
		}
		if statsFlags.kind == "index" {
			desc, err := stats.Describe(g)
			if err != nil {
				return err
			}
			fmt.Printf("pixels %d\nmin    %.4f\nmax    %.4f\nmean   %.4f\nstd    %.4f\n", desc.Count, desc.Min, desc.Max, desc.Mean, desc.Std)
			return nil
		}
		labeler, err := labelerFor(statsFlags.kind)
		if err != nil {
			return err
		}
		summary, err := stats.Summarize(g, properties.PixelAreaM2(), labeler)
		if err != nil {
			return err
		}
		if statsFlags.csv != "" {
			return stats.SaveCSV(statsFlags.csv, summary)
		}
		return stats.WriteCSV(cmd.OutOrStdout(), summary)
	},
}

func labelerFor(kind string) (stats.Labeler, error) {
	switch kind {
	case "change":
		return stats.ChangeLabels, nil
	case "urban":
		return stats.UrbanLabels, nil
	case "cluster":
		return stats.ClusterLabels, nil
	case "transition":
		return stats.TransitionLabels, nil
	}
	return nil, fmt.Errorf("unknown raster kind %q", kind)
}

func printSummary(g *raster.Grid, labeler stats.Labeler) error {
	summary, err := stats.Summarize(g, properties.PixelAreaM2(), labeler)
	if err != nil {
		return err
	}
	for _, row := range summary.Rows {
		fmt.Printf("  %-14s %8d pixels %6.1f%% %10.4f km²\n", row.Label, row.Count, row.Percent, row.AreaKm2)
	}
	return nil
}

func init() {
	classifyCmd.Flags().IntVar(&classifyFlags.window, "window", 0, "Window size in pixels (defaults to WINDOW_SIZE)")
	classifyCmd.Flags().IntVar(&classifyFlags.clusters, "clusters", 0, "Number of clusters (defaults to CLUSTERS)")
	classifyCmd.Flags().Uint64Var(&classifyFlags.seed, "seed", 0, "Clustering seed (defaults to CLUSTER_SEED)")
	classifyCmd.Flags().IntVar(&classifyFlags.restarts, "restarts", landcover.DefaultOptions().Restarts, "k-means restarts")
	changeCmd.Flags().Float64Var(&changeThreshold, "threshold", change.DefaultThreshold, "Change threshold")
	statsCmd.Flags().StringVar(&statsFlags.kind, "kind", "index", "Raster kind: index, change, urban, cluster, transition")
	statsCmd.Flags().StringVar(&statsFlags.csv, "csv", "", "Write the summary to this CSV file")

	rootCmd.AddCommand(indexCmd, classifyCmd, changeCmd, transitionsCmd, urbanCmd, statsCmd)
}
