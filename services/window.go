package services

import (
	"log"

	"github.com/sunsetd/backend/models"
)

// TimeLapseWindow is the bounded, fixed-cadence set of capture instants
// bracketing a solar event. The set is symmetric around the event instant
// and always contains it: {Instant-Span, ..., Instant, ..., Instant+Span},
// 2*Span/Cadence + 1 instants in total. Span must be an exact multiple of
// Cadence (enforced at config validation).
type TimeLapseWindow struct {
	Event      models.SolarEvent
	SpanSec    int64
	CadenceSec int64
}

// Instants enumerates the window in capture order: the past half ascending
// from Instant-Span up to and including the event instant, then the future
// half descending from Instant+Span down to Instant+Cadence. The event
// instant appears exactly once.
func (w TimeLapseWindow) Instants() []int64 {
	ts := w.Event.Instant
	n := int(2*(w.SpanSec/w.CadenceSec) + 1)
	instants := make([]int64, 0, n)

	for t := ts - w.SpanSec; t <= ts; t += w.CadenceSec {
		instants = append(instants, t)
	}
	for t := ts + w.SpanSec; t > ts; t -= w.CadenceSec {
		instants = append(instants, t)
	}
	return instants
}

// WindowScheduler drives fetch+store for every instant of a window,
// skipping instants already satisfied by the frame store. A fetch or write
// failure is logged and the loop continues; re-running the same window
// later re-attempts only the instants still missing. That skip-if-exists
// re-run is the sole fault-recovery mechanism; there are no retry
// counters and no backoff.
type WindowScheduler struct {
	store *FrameStore
	fetch Fetcher

	// dedupThreshold > 0 enables perceptual near-duplicate counting.
	dedupThreshold int
}

func NewWindowScheduler(store *FrameStore, fetch Fetcher, dedupThreshold int) *WindowScheduler {
	return &WindowScheduler{
		store:          store,
		fetch:          fetch,
		dedupThreshold: dedupThreshold,
	}
}

// Run captures the window for one camera. Attempted counts fetch attempts;
// instants already in the store count as Skipped, not attempts.
func (s *WindowScheduler) Run(cameraID string, win TimeLapseWindow) models.WindowStats {
	var stats models.WindowStats
	var deduper *FrameDeduper
	if s.dedupThreshold > 0 {
		deduper = NewFrameDeduper(s.dedupThreshold)
	}

	label := win.Event.Profile

	for _, instant := range win.Instants() {
		key := TimeLapseKey(cameraID, win.Event.Instant, instant, label)
		if s.store.ExistsNonEmpty(key) {
			stats.Skipped++
			continue
		}

		stats.Attempted++
		data, err := s.fetch.Fetch(models.CaptureRequest{
			CameraID: cameraID,
			Instant:  instant,
			Label:    label,
		})
		if err != nil {
			stats.Failed++
			log.Printf("%s@%d (%s): fetch failed: %v", cameraID, instant, label, err)
			continue
		}

		if err := s.store.Write(key, data); err != nil {
			stats.Failed++
			log.Printf("%s@%d (%s): store failed: %v", cameraID, instant, label, err)
			continue
		}
		stats.Fetched++

		if deduper != nil && deduper.NearPrevious(data) {
			stats.NearDuplicates++
		}
	}

	return stats
}
