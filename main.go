package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/sunsetd/backend/cmd/server"
	"github.com/sunsetd/backend/config"
	"github.com/sunsetd/backend/models"
	"github.com/sunsetd/backend/services"
)

var rootDir string

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Credentials may live in a .env next to the binary; absence is fine,
	// the environment itself is checked later.
	godotenv.Load()

	command := os.Args[1]
	switch command {
	case "run":
		runFull(os.Args[2:])
	case "timelapse":
		runTimelapse(os.Args[2:])
	case "publish":
		runPublish(os.Args[2:])
	case "oneoff":
		runOneOff(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: sunsetd <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run        Capture all sunset windows and publish today's sunset")
	fmt.Fprintln(os.Stderr, "  timelapse  Capture sunset windows only, no publishing")
	fmt.Fprintln(os.Stderr, "  publish    Run the publication guard only")
	fmt.Fprintln(os.Stderr, "  oneoff     Capture a single frame from one camera right now")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Common flags:")
	fmt.Fprintln(os.Stderr, "  -root      Project root directory (default: parent of the binary)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run 'sunsetd <command> -help' for details.")
}

func addRootFlag(fs *flag.FlagSet) {
	fs.StringVar(&rootDir, "root", "", "project root directory (default: parent of the binary)")
}

func resolveRoot() string {
	if rootDir != "" {
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			log.Fatalf("resolving root: %v", err)
		}
		return abs
	}

	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Dir(filepath.Dir(exe))
		if _, err := os.Stat(filepath.Join(candidate, "config")); err == nil {
			return candidate
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("getting cwd: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
		return cwd
	}
	candidate := filepath.Dir(cwd)
	if _, err := os.Stat(filepath.Join(candidate, "config")); err == nil {
		return candidate
	}

	return cwd
}

func loadAppConfig() *config.AppConfig {
	root := resolveRoot()
	appYaml := filepath.Join(root, "config", "app.yaml")
	captureYaml := filepath.Join(root, "config", "capture.yaml")

	cfg, err := config.LoadConfig(appYaml, captureYaml)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Make relative paths absolute against project root
	if !filepath.IsAbs(cfg.App.DataDir) {
		cfg.App.DataDir = filepath.Join(root, cfg.App.DataDir)
	}
	if !filepath.IsAbs(cfg.Storage.DBPath) {
		cfg.Storage.DBPath = filepath.Join(root, cfg.Storage.DBPath)
	}

	return cfg
}

type runtimeDeps struct {
	cfg      *config.AppConfig
	registry *services.CameraRegistry
	resolver *services.SolarResolver
	store    *services.FrameStore
	fetcher  *services.ImageFetcher
	history  *services.History
}

func buildDeps(cfg *config.AppConfig) *runtimeDeps {
	tz, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		log.Fatalf("loading timezone %s: %v", cfg.Location.Timezone, err)
	}

	registry, err := services.NewCameraRegistry(cfg.Cameras, cfg.Publish.CameraFilter)
	if err != nil {
		log.Fatalf("loading cameras: %v", err)
	}
	if len(registry.Selected()) == 0 {
		log.Fatalf("no cameras selected (check cameras list and publish.camera_filter)")
	}

	history, err := services.NewHistory(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("opening history: %v", err)
	}

	return &runtimeDeps{
		cfg:      cfg,
		registry: registry,
		resolver: services.NewSolarResolver(cfg.Location.Name, cfg.Location.Latitude, cfg.Location.Longitude, tz),
		store:    services.NewFrameStore(cfg.App.DataDir),
		fetcher:  services.NewImageFetcher(cfg.Capture.ImageURL, cfg.Capture.Width),
		history:  history,
	}
}

func buildOrchestrator(d *runtimeDeps, withPublisher bool) *services.Orchestrator {
	cfg := d.cfg

	dedupThreshold := 0
	if cfg.Capture.DedupEnabled {
		dedupThreshold = cfg.Capture.DedupPHashThreshold
	}
	scheduler := services.NewWindowScheduler(d.store, d.fetcher, dedupThreshold)

	var publisher services.Publisher
	if withPublisher {
		creds, err := services.CredentialsFromEnv()
		if err != nil {
			log.Fatalf("publish credentials: %v", err)
		}
		if cfg.Publish.Endpoint == "" {
			log.Fatalf("publish.endpoint is not configured")
		}
		publisher = services.NewFeedPublisher(cfg.Publish.Endpoint, creds, cfg.Publish.MaxWidth)
	}

	tz, _ := time.LoadLocation(cfg.Location.Timezone)
	guard := services.NewPublicationGuard(d.store, d.fetcher, publisher, tz)

	caption := services.StaticCaption(cfg.Publish.Caption)
	if cfg.Publish.ForecastURL != "" {
		caption = services.ForecastCaption(cfg.Publish.ForecastURL, cfg.Publish.Caption,
			cfg.Location.Latitude, cfg.Location.Longitude)
	}

	return services.NewOrchestrator(
		d.registry, d.resolver, scheduler, guard, caption,
		int64(cfg.Capture.SpanSec), int64(cfg.Capture.CadenceSec),
		cfg.Location.Name, d.history,
	)
}

func runFull(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	addRootFlag(fs)
	fs.Parse(args)

	cfg := loadAppConfig()
	deps := buildDeps(cfg)
	defer deps.history.Close()

	rec := buildOrchestrator(deps, true).Run()
	fmt.Printf("Run %s: %d windows, %d fetched, %d skipped, %d failed\n",
		rec.ID, rec.Windows, rec.Stats.Fetched, rec.Stats.Skipped, rec.Stats.Failed)
	for _, pub := range rec.Publications {
		fmt.Printf("  %s: %s\n", pub.CameraID, pub.Outcome)
	}
}

func runTimelapse(args []string) {
	fs := flag.NewFlagSet("timelapse", flag.ExitOnError)
	addRootFlag(fs)
	fs.Parse(args)

	cfg := loadAppConfig()
	deps := buildDeps(cfg)
	defer deps.history.Close()

	rec := buildOrchestrator(deps, false).RunWindows()
	fmt.Printf("Run %s: %d windows, %d fetched, %d skipped, %d failed\n",
		rec.ID, rec.Windows, rec.Stats.Fetched, rec.Stats.Skipped, rec.Stats.Failed)
}

func runPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	addRootFlag(fs)
	fs.Parse(args)

	cfg := loadAppConfig()
	deps := buildDeps(cfg)
	defer deps.history.Close()

	rec := buildOrchestrator(deps, true).RunPublish()
	for _, pub := range rec.Publications {
		fmt.Printf("%s: %s\n", pub.CameraID, pub.Outcome)
	}
}

func runOneOff(args []string) {
	fs := flag.NewFlagSet("oneoff", flag.ExitOnError)
	camera := fs.String("camera", "", "camera ID (required)")
	addRootFlag(fs)
	fs.Parse(args)

	if *camera == "" {
		fmt.Fprintln(os.Stderr, "error: -camera flag is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadAppConfig()

	registry, err := services.NewCameraRegistry(cfg.Cameras, "")
	if err != nil {
		log.Fatalf("loading cameras: %v", err)
	}
	cam, err := registry.Get(*camera)
	if err != nil {
		log.Fatalf("%v", err)
	}

	store := services.NewFrameStore(cfg.App.DataDir)
	fetcher := services.NewImageFetcher(cfg.Capture.ImageURL, cfg.Capture.Width)

	now := time.Now().Unix()
	data, err := fetcher.Fetch(models.CaptureRequest{
		CameraID: cam.ID,
		Instant:  now,
		Width:    cam.Width,
	})
	if err != nil {
		log.Fatalf("capture failed: %v", err)
	}

	key := services.SingleKey(cam.ID, now, "")
	if err := store.Write(key, data); err != nil {
		log.Fatalf("storing frame: %v", err)
	}
	fmt.Printf("Captured %s (%d bytes)\n", store.Path(key), len(data))
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addRootFlag(fs)
	fs.Parse(args)

	cfg := loadAppConfig()
	server.Start(cfg)
}
