package properties

import (
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

func RootPath() string {
	if root := os.Getenv("ROOT_PATH"); root != "" {
		return root
	}
	return "."
}

// DataPath is the directory holding one sub-directory of bands per year.
func DataPath() string {
	return RootPath() + "/data"
}

func OutputPath() string {
	return DataPath() + "/output"
}

func Years() []string {
	return splitList(getString("YEARS", "2021,2025"))
}

// Indices lists the per-year indices to compute, "ndvi" by default.
func Indices() []string {
	return splitList(getString("INDICES", "ndvi"))
}

// ROIPath is an optional vector file restricting every output.
func ROIPath() string {
	return os.Getenv("ROI_PATH")
}

func CropToROI() bool {
	return getBool("CROP_TO_ROI", false)
}

func RenderPreviews() bool {
	return getBool("RENDER_PREVIEWS", true)
}

func WindowSize() int {
	return getInt("WINDOW_SIZE", 100)
}

func Clusters() int {
	return getInt("CLUSTERS", 5)
}

func ClusterSeed() uint64 {
	return uint64(getInt("CLUSTER_SEED", 42))
}

func ChangeThreshold() float64 {
	return getFloat("CHANGE_THRESHOLD", 0.1)
}

func PixelAreaM2() float64 {
	return getFloat("PIXEL_AREA_M2", 100)
}

func Workers() int {
	return getInt("WORKERS", 4)
}

func LogLevel() string {
	return getString("LOG_LEVEL", "info")
}

func MongoURI() string {
	return os.Getenv("MONGO_URI")
}

func MongoDatabase() string {
	return getString("MONGO_DATABASE", "geoprocessing_data")
}

func ArchiveDir() string {
	return getString("ARCHIVE_DIR", DataPath()+"/archive")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

// CopernicusCredentials returns the comma separated client ids and secrets
// paired up in order.
func CopernicusCredentials() (ids, secrets []string) {
	return splitList(os.Getenv("COPERNICUS_CLIENT_ID")), splitList(os.Getenv("COPERNICUS_CLIENT_SECRET"))
}

func CopernicusTokenURL() string {
	return getString("COPERNICUS_TOKEN_URL", "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token")
}

type Color struct {
	R, G, B uint8
}

// ColorMap holds the preview colours of categorical rasters, keyed by
// "<kind>:<value>".
var ColorMap = map[string]Color{
	"change:0":     {255, 255, 255},
	"change:1":     {215, 48, 39},
	"change:2":     {26, 152, 80},
	"change:3":     {224, 224, 224},
	"urban:0":      {255, 255, 255},
	"urban:1":      {255, 0, 0},
	"urban:2":      {0, 255, 0},
	"urban:3":      {0, 0, 255},
	"urban:4":      {139, 69, 19},
	"transition:0": {240, 240, 240},
	"transition:1": {200, 0, 0},
	"unknown":      {255, 0, 0},
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid boolean %q, using %t", v, def)
		return def
	}
	return b
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid integer %q, using %d", v, def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.WithField("key", key).Warnf("invalid number %q, using %g", v, def)
		return def
	}
	return f
}
