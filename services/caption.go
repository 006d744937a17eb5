package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sunsetd/backend/models"
)

// StaticCaption always returns the same caption text.
func StaticCaption(text string) CaptionFunc {
	return func(models.SolarEvent) string {
		return text
	}
}

// ForecastCaption asks a forecast service for a one-line conditions summary
// and appends it to the base caption. Any failure falls back to the base
// caption alone; caption building must never block a publish.
func ForecastCaption(endpoint, base string, lat, lon float64) CaptionFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(event models.SolarEvent) string {
		params := url.Values{}
		params.Set("lat", fmt.Sprintf("%g", lat))
		params.Set("lon", fmt.Sprintf("%g", lon))

		resp, err := client.Get(endpoint + "?" + params.Encode())
		if err != nil {
			return base
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return base
		}

		var result struct {
			Summary string `json:"summary"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Summary == "" {
			return base
		}
		return fmt.Sprintf("%s (%s)", base, result.Summary)
	}
}
