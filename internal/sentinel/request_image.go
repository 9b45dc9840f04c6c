package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/forest-guardian/lulc-change/internal/properties"
)

const defaultProcessURL = "https://sh.dataspace.copernicus.eu/api/v1/process"

var ErrUnauthorized = errors.New("unauthorized access, check your client ID and secret")

type Credential struct {
	ClientID     string
	ClientSecret string
}

// Client requests Sentinel-2 L2A scenes from the Copernicus process API.
// Credentials are tried in order until one succeeds.
type Client struct {
	Credentials []Credential
	TokenURL    string
	ProcessURL  string
	Retries     int
	RetryDelay  time.Duration
}

func NewClientFromEnv() (*Client, error) {
	ids, secrets := properties.CopernicusCredentials()
	if len(ids) == 0 || len(secrets) == 0 {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID or COPERNICUS_CLIENT_SECRET")
	}
	if len(ids) != len(secrets) {
		return nil, fmt.Errorf("mismatched number of client IDs (%d) and secrets (%d)", len(ids), len(secrets))
	}
	c := &Client{
		TokenURL:   properties.CopernicusTokenURL(),
		ProcessURL: defaultProcessURL,
		Retries:    10,
		RetryDelay: 5 * time.Second,
	}
	for i := range ids {
		c.Credentials = append(c.Credentials, Credential{ClientID: ids[i], ClientSecret: secrets[i]})
	}
	return c, nil
}

type SceneRequest struct {
	// Bound is in WGS84 longitude/latitude.
	Bound      orb.Bound
	From, To   time.Time
	Resolution float64
	Bands      []string
}

// DefaultBands are the bands the pipeline reads, in output order.
var DefaultBands = []string{"B02", "B03", "B04", "B08", "B11"}

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	return min(int(pixels), 2500)
}

func evalscript(bands []string) string {
	quoted := make([]string, len(bands))
	samples := make([]string, len(bands))
	for i, b := range bands {
		quoted[i] = fmt.Sprintf("%q", b)
		samples[i] = "sample." + b
	}
	return fmt.Sprintf(`
    //VERSION=3
    function setup() {
      return {
        input: [{ bands: [%s], units: "DN" }],
        output: { id: "default", bands: %d, sampleType: SampleType.UINT16 },
      }
    }

    function evaluatePixel(sample) {
      return [%s];
    }
  `, strings.Join(quoted, ", "), len(bands), strings.Join(samples, ", "))
}

func (r SceneRequest) payload() ([]byte, error) {
	resolution := r.Resolution
	if resolution <= 0 {
		resolution = 10
	}
	bands := r.Bands
	if len(bands) == 0 {
		bands = DefaultBands
	}
	payload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"bbox": []float64{r.Bound.Min.X(), r.Bound.Min.Y(), r.Bound.Max.X(), r.Bound.Max.Y()},
				"properties": map[string]string{
					"crs": "http://www.opengis.net/def/crs/EPSG/0/4326",
				},
			},
			"data": []map[string]interface{}{
				{
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": r.From.Format(time.RFC3339),
							"to":   r.To.Format(time.RFC3339),
						},
					},
					"type": "sentinel-2-l2a",
				},
			},
		},
		"output": map[string]interface{}{
			"width":  calculatePixels(r.Bound.Max.X()-r.Bound.Min.X(), resolution),
			"height": calculatePixels(r.Bound.Max.Y()-r.Bound.Min.Y(), resolution),
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/tiff"},
				},
			},
		},
		"evalscript": evalscript(bands),
	}
	return json.Marshal(payload)
}

// RequestImage downloads a multi-band GeoTIFF of the scene.
func (c *Client) RequestImage(ctx context.Context, req SceneRequest) ([]byte, error) {
	if len(c.Credentials) == 0 {
		return nil, fmt.Errorf("no copernicus credentials configured")
	}
	body, err := req.payload()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var lastErr error
	for _, cred := range c.Credentials {
		content, err := c.requestWith(ctx, cred, body)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithField("client", cred.ClientID).Warnf("image request failed: %v", err)
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) requestWith(ctx context.Context, cred Credential, body []byte) ([]byte, error) {
	config := &clientcredentials.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		TokenURL:     c.TokenURL,
	}
	httpClient := config.Client(ctx)

	retries := max(c.Retries, 1)
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		var content []byte
		content, err = post(ctx, httpClient, c.ProcessURL, body)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		log.WithField("attempt", attempt).Debugf("image request attempt failed: %v", err)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to request image after %d attempts: %w", retries, err)
}

func post(ctx context.Context, client *http.Client, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/tiff")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return content, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	}
	return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(content)))
}

// SplitScene writes every band of a downloaded multi-band scene to
// outDir/<name>.tif, names[i] naming band i.
func SplitScene(scenePath, outDir string, names []string) ([]string, error) {
	paths := make([]string, 0, len(names))
	for i, name := range names {
		g, err := ReadBand(scenePath, i)
		if err != nil {
			return paths, err
		}
		dst := filepath.Join(outDir, name+".tif")
		if err := WriteGrid(dst, g); err != nil {
			return paths, err
		}
		paths = append(paths, dst)
	}
	return paths, nil
}
