package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sunsetd/backend/models"
)

type AppSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

type LocationSettings struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"`
}

type CaptureSettings struct {
	SpanSec             int    `yaml:"span_sec"`
	CadenceSec          int    `yaml:"cadence_sec"`
	Width               int    `yaml:"width"`
	ImageURL            string `yaml:"image_url"`
	DedupEnabled        bool   `yaml:"dedup_enabled"`
	DedupPHashThreshold int    `yaml:"dedup_phash_threshold"`
}

type PublishSettings struct {
	Endpoint     string `yaml:"endpoint"`
	MaxWidth     int    `yaml:"max_width"`
	ForecastURL  string `yaml:"forecast_url"`
	Caption      string `yaml:"caption"`
	CameraFilter string `yaml:"camera_filter"`
}

type StorageSettings struct {
	DBPath string `yaml:"db_path"`
}

type AppConfig struct {
	App      AppSettings      `yaml:"app"`
	Location LocationSettings `yaml:"location"`
	Capture  CaptureSettings  `yaml:"capture"`
	Publish  PublishSettings  `yaml:"publish"`
	Storage  StorageSettings  `yaml:"storage"`
	Cameras  []models.Camera  `yaml:"cameras"`
}

// LoadConfig reads and parses two YAML files (app config and capture config)
// and merges them into a single AppConfig struct.
func LoadConfig(appYaml, captureYaml string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if err := loadYAML(appYaml, cfg); err != nil {
		return nil, fmt.Errorf("loading %s: %w", appYaml, err)
	}

	if err := loadYAML(captureYaml, cfg); err != nil {
		return nil, fmt.Errorf("loading %s: %w", captureYaml, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.App.Host == "" {
		cfg.App.Host = "0.0.0.0"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8000
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "data"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Location.Name == "" {
		cfg.Location.Name = "San Francisco"
		cfg.Location.Latitude = 37.7749
		cfg.Location.Longitude = -122.4194
	}
	if cfg.Location.Timezone == "" {
		cfg.Location.Timezone = "America/Los_Angeles"
	}
	if cfg.Capture.SpanSec == 0 {
		cfg.Capture.SpanSec = 3600
	}
	if cfg.Capture.CadenceSec == 0 {
		cfg.Capture.CadenceSec = 30
	}
	if cfg.Capture.Width == 0 {
		cfg.Capture.Width = 1080
	}
	if cfg.Capture.ImageURL == "" {
		cfg.Capture.ImageURL = "https://nexusapi.dropcam.com/get_image"
	}
	if cfg.Capture.DedupPHashThreshold == 0 {
		cfg.Capture.DedupPHashThreshold = 8
	}
	if cfg.Publish.MaxWidth == 0 {
		cfg.Publish.MaxWidth = 1080
	}
	if cfg.Publish.Caption == "" {
		cfg.Publish.Caption = "Today's Sunset"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "data/sunsetd.db"
	}
}

// Validate rejects configurations the capture loop cannot honor. Span must
// be an exact multiple of cadence so the window lands exactly on the event
// instant.
func (cfg *AppConfig) Validate() error {
	if cfg.Capture.SpanSec <= 0 {
		return fmt.Errorf("capture.span_sec must be positive, got %d", cfg.Capture.SpanSec)
	}
	if cfg.Capture.CadenceSec <= 0 {
		return fmt.Errorf("capture.cadence_sec must be positive, got %d", cfg.Capture.CadenceSec)
	}
	if cfg.Capture.SpanSec%cfg.Capture.CadenceSec != 0 {
		return fmt.Errorf("capture.span_sec (%d) must be a multiple of capture.cadence_sec (%d)",
			cfg.Capture.SpanSec, cfg.Capture.CadenceSec)
	}
	if cfg.Location.Latitude < -90 || cfg.Location.Latitude > 90 {
		return fmt.Errorf("location.latitude out of range: %g", cfg.Location.Latitude)
	}
	if cfg.Location.Longitude < -180 || cfg.Location.Longitude > 180 {
		return fmt.Errorf("location.longitude out of range: %g", cfg.Location.Longitude)
	}
	seen := make(map[string]bool, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera with empty id in config")
		}
		if seen[cam.ID] {
			return fmt.Errorf("duplicate camera id: %s", cam.ID)
		}
		seen[cam.ID] = true
	}
	return nil
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
