package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forest-guardian/lulc-change/internal/notification"
	"github.com/forest-guardian/lulc-change/internal/properties"
)

var (
	verbose  bool
	logLevel string
	noBanner bool
)

var rootCmd = &cobra.Command{
	Use:   "lulc",
	Short: "Land use and land cover change analysis for Sentinel-2 scenes",
	Long: `Computes spectral indices, unsupervised land cover classifications,
urban masks and change maps from per-year Sentinel-2 band GeoTIFFs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "no-banner", false, "Do not print the banner")
}

func printBanner() {
	banner := figure.NewFigure("LULC", "isometric1", true)
	color.Cyan(banner.String())
	fmt.Println()
}

func configureLogging() error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level := logLevel
	if level == "" {
		level = properties.LogLevel()
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		parsed = log.DebugLevel
	}
	log.SetLevel(parsed)
	return nil
}

func loadEnv() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
	log.Debug("no .env file found, using the environment as is")
}

// reportPanic prints and notifies a panic before exiting.
func reportPanic() {
	r := recover()
	if r == nil {
		return
	}
	location := "unknown location"
	if pc, file, line, ok := runtime.Caller(3); ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}
	color.Red("PANIC: %v", r)
	color.Red("Location: %s", location)

	message := fmt.Sprintf("LULC CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := notification.SendDiscordErrorNotification(message); err != nil {
		color.Red("Failed to send notification: %s", err)
	}
	os.Exit(2)
}

func main() {
	defer reportPanic()
	loadEnv()
	godal.RegisterAll()

	if !noBannerRequested(os.Args[1:]) {
		printBanner()
	}
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %s", err)
		os.Exit(1)
	}
}

// noBannerRequested looks for --no-banner before cobra parses the flags, so
// the banner is printed ahead of any command output.
func noBannerRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--no-banner" || arg == "--no-banner=true" {
			return true
		}
	}
	return false
}
