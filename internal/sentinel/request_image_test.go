package sentinel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		id, _, _ := r.BasicAuth()
		if id == "" {
			id = r.Form.Get("client_id")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-" + id,
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sceneRequest() SceneRequest {
	return SceneRequest{
		Bound: orb.Bound{Min: orb.Point{77.3, 23.2}, Max: orb.Point{77.5, 23.3}},
		From:  time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestRequestImageRetries(t *testing.T) {
	tokens := tokenServer(t)
	var calls atomic.Int32
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-a", r.Header.Get("Authorization"))
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload["evalscript"], "sample.B11")

		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("TIFF"))
	}))
	defer process.Close()

	c := &Client{
		Credentials: []Credential{{ClientID: "a", ClientSecret: "s"}},
		TokenURL:    tokens.URL,
		ProcessURL:  process.URL,
		Retries:     5,
	}
	body, err := c.RequestImage(context.Background(), sceneRequest())
	require.NoError(t, err)
	assert.Equal(t, "TIFF", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequestImageFallsBackToNextCredential(t *testing.T) {
	tokens := tokenServer(t)
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.Header.Get("Authorization"), "token-bad") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer process.Close()

	c := &Client{
		Credentials: []Credential{{ClientID: "bad", ClientSecret: "s"}, {ClientID: "good", ClientSecret: "s"}},
		TokenURL:    tokens.URL,
		ProcessURL:  process.URL,
		Retries:     3,
	}
	body, err := c.RequestImage(context.Background(), sceneRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestRequestImageGivesUp(t *testing.T) {
	tokens := tokenServer(t)
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer process.Close()

	c := &Client{
		Credentials: []Credential{{ClientID: "a", ClientSecret: "s"}},
		TokenURL:    tokens.URL,
		ProcessURL:  process.URL,
		Retries:     2,
	}
	_, err := c.RequestImage(context.Background(), sceneRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestCalculatePixels(t *testing.T) {
	assert.Equal(t, 1, calculatePixels(0, 10))
	assert.Equal(t, 2220, calculatePixels(0.2, 10))
	assert.Equal(t, 2500, calculatePixels(1, 10))
}
