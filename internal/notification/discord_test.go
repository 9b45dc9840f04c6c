package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhook(t *testing.T, status int) (*httptest.Server, *[]DiscordMessage) {
	t.Helper()
	var got []DiscordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg DiscordMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got = append(got, msg)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestRunSummaryRouting(t *testing.T) {
	ok, okMsgs := webhook(t, http.StatusNoContent)
	bad, badMsgs := webhook(t, http.StatusNoContent)
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", ok.URL)
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", bad.URL)
	require.True(t, Enabled())

	units := []UnitReport{
		{Name: "ndvi 2021", Status: "done"},
		{Name: "ndvi 2025", Status: "skipped", Details: "missing data/2025/B8.tif"},
	}
	require.NoError(t, SendRunSummary("run", units, 0, 1))
	require.Len(t, *okMsgs, 1)
	embed := (*okMsgs)[0].Embeds[0]
	assert.Equal(t, colorYellow, embed.Color)
	assert.Equal(t, "skipped: missing data/2025/B8.tif", embed.Fields[1].Value)

	require.NoError(t, SendRunSummary("run", units, 1, 0))
	require.Len(t, *badMsgs, 1)
	assert.Equal(t, colorRed, (*badMsgs)[0].Embeds[0].Color)
}

func TestSendWithoutWebhookIsNoop(t *testing.T) {
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", "")
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", "")
	assert.False(t, Enabled())
	assert.NoError(t, SendDiscordSuccessNotification("done"))
}

func TestSendReportsStatus(t *testing.T) {
	srv, _ := webhook(t, http.StatusBadRequest)
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", srv.URL)
	assert.Error(t, SendDiscordErrorNotification("boom"))
}
