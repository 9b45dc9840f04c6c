package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forest-guardian/lulc-change/internal/properties"
	"github.com/forest-guardian/lulc-change/internal/roi"
	"github.com/forest-guardian/lulc-change/internal/sentinel"
)

var flags struct {
	bbox       string
	roiPath    string
	from       string
	to         string
	resolution float64
}

var rootCmd = &cobra.Command{
	Use:   "fetch_scene <year>",
	Short: "Download a Sentinel-2 L2A scene into data/<year>",
	Long: `Requests a least-cloudy mosaic of B02, B03, B04, B08 and B11 over the
area of interest from the Copernicus process API and splits it into the
single-band files the analyses read (B2.tif ... B11.tif).`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         fetch,
}

func init() {
	rootCmd.Flags().StringVar(&flags.bbox, "bbox", "", "min_lon,min_lat,max_lon,max_lat")
	rootCmd.Flags().StringVar(&flags.roiPath, "roi", "", "GeoJSON whose bounds are requested (WGS84)")
	rootCmd.Flags().StringVar(&flags.from, "from", "", "Start date, YYYY-MM-DD (defaults to <year>-01-01)")
	rootCmd.Flags().StringVar(&flags.to, "to", "", "End date, YYYY-MM-DD (defaults to <year>-12-31)")
	rootCmd.Flags().Float64Var(&flags.resolution, "resolution", 10, "Pixel size in metres")
}

func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs 4 comma separated numbers, got %q", raw)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	if v[0] >= v[2] || v[1] >= v[3] {
		return orb.Bound{}, fmt.Errorf("bbox %q is empty", raw)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func area() (orb.Bound, error) {
	if flags.bbox != "" {
		return parseBBox(flags.bbox)
	}
	if flags.roiPath == "" {
		return orb.Bound{}, fmt.Errorf("either --bbox or --roi is required")
	}
	geoms, err := roi.LoadGeoJSON(flags.roiPath)
	if err != nil {
		return orb.Bound{}, err
	}
	bound := geoms[0].Bound()
	for _, g := range geoms[1:] {
		bound = bound.Union(g.Bound())
	}
	return bound, nil
}

func dateRange(year string) (time.Time, time.Time, error) {
	from, to := flags.from, flags.to
	if from == "" {
		from = year + "-01-01"
	}
	if to == "" {
		to = year + "-12-31"
	}
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// bandFileNames maps B02 to B2 and so on, the names the analyses expect.
func bandFileNames(bands []string) []string {
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = "B" + strings.TrimLeft(strings.TrimPrefix(b, "B"), "0")
	}
	return names
}

func fetch(cmd *cobra.Command, args []string) error {
	year := args[0]
	bound, err := area()
	if err != nil {
		return err
	}
	start, end, err := dateRange(year)
	if err != nil {
		return err
	}
	client, err := sentinel.NewClientFromEnv()
	if err != nil {
		return err
	}

	color.Cyan("Requesting %s to %s over %v", start.Format("2006-01-02"), end.Format("2006-01-02"), bound)
	scene, err := client.RequestImage(cmd.Context(), sentinel.SceneRequest{
		Bound:      bound,
		From:       start,
		To:         end,
		Resolution: flags.resolution,
		Bands:      sentinel.DefaultBands,
	})
	if err != nil {
		return err
	}

	outDir := filepath.Join(properties.DataPath(), year)
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return err
	}
	scenePath := filepath.Join(outDir, "scene.tif")
	if err := os.WriteFile(scenePath, scene, 0o644); err != nil {
		return err
	}
	paths, err := sentinel.SplitScene(scenePath, outDir, bandFileNames(sentinel.DefaultBands))
	if err != nil {
		return err
	}
	for _, p := range paths {
		color.Green("  %s", p)
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug("no .env file found")
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	godal.RegisterAll()

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %s", err)
		os.Exit(1)
	}
}
