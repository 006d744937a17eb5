package server

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sunsetd/backend/api"
	"github.com/sunsetd/backend/config"
	"github.com/sunsetd/backend/services"
)

// Start wires the read-only HTTP API: run history, camera config, and
// captured frames. Capturing and publishing stay with the CLI commands.
func Start(cfg *config.AppConfig) {
	registry, err := services.NewCameraRegistry(cfg.Cameras, cfg.Publish.CameraFilter)
	if err != nil {
		log.Fatalf("loading cameras: %v", err)
	}

	history, err := services.NewHistory(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("opening history: %v", err)
	}
	defer history.Close()
	log.Printf("SQLite history at %s", cfg.Storage.DBPath)

	store := services.NewFrameStore(cfg.App.DataDir)

	runsHandler := api.NewRunsHandler(history)
	camerasHandler := api.NewCamerasHandler(registry)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", api.HealthCheck)

		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)

		r.Get("/cameras", camerasHandler.List)
		r.Get("/cameras/{id}", camerasHandler.Get)

		// Static frame serving with path traversal protection
		r.Get("/frames/*", serveFrames(store))
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	log.Printf("Starting server on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func serveFrames(store *services.FrameStore) http.HandlerFunc {
	absRoot, _ := filepath.Abs(store.Root())

	return func(w http.ResponseWriter, r *http.Request) {
		framePath := chi.URLParam(r, "*")
		if framePath == "" {
			http.Error(w, "frame path required", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(store.Root(), filepath.FromSlash(framePath))

		absPath, err := filepath.Abs(filePath)
		if err != nil || !strings.HasPrefix(absPath, absRoot) {
			http.Error(w, "invalid frame path", http.StatusBadRequest)
			return
		}

		http.ServeFile(w, r, absPath)
	}
}
