package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FrameStore is durable storage for captured frames and publication lock
// markers, rooted at a single directory. Keys are relative slash-separated
// paths; two identical (camera, kind, instant, label) tuples always map to
// the same key, which is what makes skip-if-exists work.
type FrameStore struct {
	root string
}

func NewFrameStore(root string) *FrameStore {
	return &FrameStore{root: root}
}

// Root returns the store's base directory.
func (s *FrameStore) Root() string {
	return s.root
}

// SingleKey is the storage key for a one-shot capture:
// {camera}/single/{instant}[.{label}].jpg
func SingleKey(cameraID string, instant int64, label string) string {
	name := fmt.Sprintf("%d", instant)
	if label != "" {
		name = fmt.Sprintf("%d.%s", instant, label)
	}
	return fmt.Sprintf("%s/single/%s.jpg", cameraID, name)
}

// TimeLapseKey is the storage key for a window capture:
// {camera}/time-lapse/{eventEpoch}/{instant}[.{label}].jpg
func TimeLapseKey(cameraID string, eventEpoch, instant int64, label string) string {
	name := fmt.Sprintf("%d", instant)
	if label != "" {
		name = fmt.Sprintf("%d.%s", instant, label)
	}
	return fmt.Sprintf("%s/time-lapse/%d/%s.jpg", cameraID, eventEpoch, name)
}

// Path resolves a key to its absolute location under the store root.
func (s *FrameStore) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// ExistsNonEmpty reports whether the key holds a non-empty frame. A
// zero-size file is a failed write and counts as not captured.
func (s *FrameStore) ExistsNonEmpty(key string) bool {
	info, err := os.Stat(s.Path(key))
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// Write persists frame bytes under key, creating parent directories as
// needed. Creating an already-existing directory is not an error.
func (s *FrameStore) Write(key string, data []byte) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating frame directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing frame %s: %w", key, err)
	}
	return nil
}

// Publication markers live under {root}/lock/, one file per
// (camera, profile, date), holding the publish receipt as content.
// Presence plus non-empty content means "already published".

func markerName(cameraID, profile, date string) string {
	return strings.Join([]string{cameraID, profile, date}, ".")
}

func (s *FrameStore) markerPath(cameraID, profile, date string) string {
	return filepath.Join(s.root, "lock", markerName(cameraID, profile, date))
}

// MarkerExists reports whether a non-empty publication marker is present.
func (s *FrameStore) MarkerExists(cameraID, profile, date string) bool {
	info, err := os.Stat(s.markerPath(cameraID, profile, date))
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// WriteMarker durably records a publication receipt. Markers are never
// deleted by this system; cleanup is a manual operation.
func (s *FrameStore) WriteMarker(cameraID, profile, date, receipt string) error {
	path := s.markerPath(cameraID, profile, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(receipt), 0o644); err != nil {
		return fmt.Errorf("writing marker %s: %w", markerName(cameraID, profile, date), err)
	}
	return nil
}
