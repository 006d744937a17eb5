package models

import "time"

// CaptureRequest identifies a single still-image fetch: which camera, at
// which instant, and an optional label used to disambiguate concurrent
// single-shot vs time-lapse captures for the same instant.
type CaptureRequest struct {
	CameraID string
	Instant  int64 // epoch seconds
	Width    int   // 0 means the fetcher's default
	Label    string
}

// SolarEvent is a sunrise or sunset instant for a location under a given
// depression profile. Recomputed fresh on every run, never persisted.
type SolarEvent struct {
	Name     string `json:"name"`    // "sunrise" or "sunset"
	Profile  string `json:"profile"` // "civil", "nautical" or "astronomical"
	Instant  int64  `json:"instant"` // epoch seconds
	Location string `json:"location"`
}

// Camera is an explicit capture source record. Cameras are declared in the
// YAML config; there is no runtime attribute injection.
type Camera struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Width   int    `yaml:"width" json:"width"`
	Publish bool   `yaml:"publish" json:"publish"`
}

// WindowStats summarizes one time-lapse window run. Attempted counts fetch
// attempts only; instants satisfied by the frame store count as Skipped.
type WindowStats struct {
	Attempted      int `json:"attempted"`
	Fetched        int `json:"fetched"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	NearDuplicates int `json:"near_duplicates"`
}

func (s *WindowStats) Add(o WindowStats) {
	s.Attempted += o.Attempted
	s.Fetched += o.Fetched
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.NearDuplicates += o.NearDuplicates
}

// PublicationOutcome records what the publication guard decided for one
// camera on one run.
type PublicationOutcome struct {
	CameraID string `json:"camera_id"`
	Profile  string `json:"profile"`
	Date     string `json:"date"`
	Outcome  string `json:"outcome"`
	Receipt  string `json:"receipt,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunRecord is one orchestrator invocation, as persisted in run history.
type RunRecord struct {
	ID           string               `json:"id"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
	Location     string               `json:"location"`
	Cameras      int                  `json:"cameras"`
	Windows      int                  `json:"windows"`
	Stats        WindowStats          `json:"stats"`
	Publications []PublicationOutcome `json:"publications"`
}

// PublicationRecord is one successful (or attempted) post, as persisted in
// run history. The lock marker file, not this row, is the idempotence
// source of truth.
type PublicationRecord struct {
	ID       string    `json:"id"`
	CameraID string    `json:"camera_id"`
	Profile  string    `json:"profile"`
	Date     string    `json:"date"`
	Receipt  string    `json:"receipt"`
	PostedAt time.Time `json:"posted_at"`
}
