package services

import (
	"fmt"
	"regexp"

	"github.com/sunsetd/backend/models"
)

var validCameraID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// CameraRegistry holds the configured camera set and the operator's
// name-pattern filter. The same filtered set drives both the time-lapse
// and the publication paths, so a camera can never publish without also
// having captured a window.
type CameraRegistry struct {
	cameras []models.Camera
	filter  *regexp.Regexp
}

// NewCameraRegistry validates camera IDs and compiles the optional filter
// pattern. An empty pattern selects every camera.
func NewCameraRegistry(cameras []models.Camera, pattern string) (*CameraRegistry, error) {
	for _, cam := range cameras {
		if !validCameraID.MatchString(cam.ID) {
			return nil, fmt.Errorf("invalid camera ID %q: must match [a-zA-Z0-9][a-zA-Z0-9_-]{0,63}", cam.ID)
		}
	}

	var filter *regexp.Regexp
	if pattern != "" {
		var err error
		filter, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling camera filter %q: %w", pattern, err)
		}
	}

	return &CameraRegistry{cameras: cameras, filter: filter}, nil
}

// All returns every configured camera.
func (r *CameraRegistry) All() []models.Camera {
	return r.cameras
}

// Selected returns the cameras whose name matches the filter pattern.
func (r *CameraRegistry) Selected() []models.Camera {
	if r.filter == nil {
		return r.cameras
	}
	var out []models.Camera
	for _, cam := range r.cameras {
		if r.filter.MatchString(cam.Name) {
			out = append(out, cam)
		}
	}
	return out
}

// Get returns a camera by ID.
func (r *CameraRegistry) Get(id string) (models.Camera, error) {
	for _, cam := range r.cameras {
		if cam.ID == id {
			return cam, nil
		}
	}
	return models.Camera{}, fmt.Errorf("camera not found: %s", id)
}
