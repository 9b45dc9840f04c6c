package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/lulc-change/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields,omitempty"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

const (
	colorRed    = 16711680
	colorGreen  = 65280
	colorYellow = 16776960
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Enabled reports whether any webhook is configured.
func Enabled() bool {
	return properties.DiscordErrorNotificationUrl() != "" || properties.DiscordSuccessNotificationUrl() != ""
}

func SendDiscordErrorNotification(errorMessage string) error {
	return send(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 Land-cover run failed",
		Description: errorMessage,
		Color:       colorRed,
	})
}

func SendDiscordSuccessNotification(successMessage string) error {
	return send(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ Land-cover run finished",
		Description: successMessage,
		Color:       colorGreen,
	})
}

// UnitReport is one line of a run summary.
type UnitReport struct {
	Name    string
	Status  string
	Details string
}

// SendRunSummary posts one field per unit. Runs with failed units go to the
// error webhook, partially skipped runs are yellow.
func SendRunSummary(title string, units []UnitReport, failed, skipped int) error {
	embed := DiscordEmbed{
		Title:       title,
		Description: fmt.Sprintf("%d units, %d failed, %d skipped", len(units), failed, skipped),
		Color:       colorGreen,
	}
	for _, u := range units {
		value := u.Status
		if u.Details != "" {
			value += ": " + u.Details
		}
		embed.Fields = append(embed.Fields, DiscordField{Name: u.Name, Value: truncate(value, 1024)})
	}
	url := properties.DiscordSuccessNotificationUrl()
	switch {
	case failed > 0:
		embed.Color = colorRed
		url = properties.DiscordErrorNotificationUrl()
	case skipped > 0:
		embed.Color = colorYellow
	}
	return send(url, embed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func send(url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := httpClient.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
