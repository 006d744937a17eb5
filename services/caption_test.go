package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sunsetd/backend/models"
)

func TestStaticCaption(t *testing.T) {
	fn := StaticCaption("Today's Sunset")
	if got := fn(models.SolarEvent{}); got != "Today's Sunset" {
		t.Errorf("caption = %q", got)
	}
}

func TestForecastCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lon") == "" {
			t.Error("missing lat/lon query params")
		}
		w.Write([]byte(`{"summary":"clear skies"}`))
	}))
	defer srv.Close()

	fn := ForecastCaption(srv.URL, "Today's Sunset", 37.7749, -122.4194)
	if got := fn(models.SolarEvent{}); got != "Today's Sunset (clear skies)" {
		t.Errorf("caption = %q", got)
	}
}

func TestForecastCaptionFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fn := ForecastCaption(srv.URL, "Today's Sunset", 0, 0)
	if got := fn(models.SolarEvent{}); got != "Today's Sunset" {
		t.Errorf("caption = %q, want fallback", got)
	}

	// Unreachable service falls back too.
	srv.Close()
	if got := fn(models.SolarEvent{}); got != "Today's Sunset" {
		t.Errorf("caption = %q, want fallback", got)
	}
}
