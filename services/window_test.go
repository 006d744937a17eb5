package services

import (
	"fmt"
	"testing"

	"github.com/sunsetd/backend/models"
)

// fakeFetcher returns canned bytes and counts calls. If fail is set for an
// instant, that fetch errors instead.
type fakeFetcher struct {
	calls int
	fail  map[int64]bool
	data  []byte
}

func (f *fakeFetcher) Fetch(req models.CaptureRequest) ([]byte, error) {
	f.calls++
	if f.fail[req.Instant] {
		return nil, fmt.Errorf("injected failure for %d", req.Instant)
	}
	if f.data != nil {
		return f.data, nil
	}
	return []byte("jpeg-bytes"), nil
}

func testWindow(instant int64) TimeLapseWindow {
	return TimeLapseWindow{
		Event: models.SolarEvent{
			Name:     "sunset",
			Profile:  ProfileCivil,
			Instant:  instant,
			Location: "San Francisco",
		},
		SpanSec:    3600,
		CadenceSec: 30,
	}
}

func TestWindowInstants(t *testing.T) {
	const event = int64(1_700_000_000)
	win := testWindow(event)
	instants := win.Instants()

	if len(instants) != 241 {
		t.Fatalf("expected 241 instants, got %d", len(instants))
	}

	set := make(map[int64]int, len(instants))
	for _, ts := range instants {
		set[ts]++
	}
	if set[event] != 1 {
		t.Errorf("event instant should appear exactly once, got %d", set[event])
	}
	for ts := range set {
		mirror := 2*event - ts
		if set[mirror] == 0 {
			t.Errorf("instant %d has no mirror %d", ts, mirror)
		}
	}
	if set[event-3600] != 1 || set[event+3600] != 1 {
		t.Errorf("window must include both span boundaries")
	}
}

func TestWindowInstantsSmallSpan(t *testing.T) {
	win := TimeLapseWindow{
		Event:      models.SolarEvent{Instant: 1000, Profile: ProfileCivil},
		SpanSec:    60,
		CadenceSec: 30,
	}
	got := win.Instants()
	want := []int64{940, 970, 1000, 1060, 1030}
	if len(got) != len(want) {
		t.Fatalf("expected %d instants, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instant[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWindowSchedulerIdempotent(t *testing.T) {
	store := NewFrameStore(t.TempDir())
	fetcher := &fakeFetcher{}
	sched := NewWindowScheduler(store, fetcher, 0)
	win := testWindow(1_700_000_000)

	first := sched.Run("front_yard", win)
	if first.Attempted != 241 || first.Fetched != 241 {
		t.Fatalf("first run: attempted=%d fetched=%d, want 241/241", first.Attempted, first.Fetched)
	}

	second := sched.Run("front_yard", win)
	if second.Attempted != 0 {
		t.Errorf("second run attempted %d fetches, want 0", second.Attempted)
	}
	if second.Skipped != 241 {
		t.Errorf("second run skipped %d, want 241", second.Skipped)
	}
	if fetcher.calls != 241 {
		t.Errorf("fetcher called %d times across both runs, want 241", fetcher.calls)
	}
}

func TestWindowSchedulerPartialRecovery(t *testing.T) {
	store := NewFrameStore(t.TempDir())
	win := testWindow(1_700_000_000)

	// Populate 200 of 241 slots ahead of time.
	instants := win.Instants()
	for _, ts := range instants[:200] {
		key := TimeLapseKey("front_yard", win.Event.Instant, ts, win.Event.Profile)
		if err := store.Write(key, []byte("x")); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}

	fetcher := &fakeFetcher{}
	sched := NewWindowScheduler(store, fetcher, 0)
	stats := sched.Run("front_yard", win)

	if stats.Attempted != 41 {
		t.Errorf("attempted %d fetches, want 41", stats.Attempted)
	}
	if stats.Skipped != 200 {
		t.Errorf("skipped %d, want 200", stats.Skipped)
	}
	if fetcher.calls != 41 {
		t.Errorf("fetcher called %d times, want 41", fetcher.calls)
	}
}

func TestWindowSchedulerContinuesOnFetchFailure(t *testing.T) {
	store := NewFrameStore(t.TempDir())
	win := TimeLapseWindow{
		Event:      models.SolarEvent{Instant: 1000, Profile: ProfileCivil},
		SpanSec:    60,
		CadenceSec: 30,
	}

	fetcher := &fakeFetcher{fail: map[int64]bool{970: true, 1030: true}}
	sched := NewWindowScheduler(store, fetcher, 0)
	stats := sched.Run("cam", win)

	if stats.Attempted != 5 {
		t.Errorf("attempted %d, want 5", stats.Attempted)
	}
	if stats.Failed != 2 {
		t.Errorf("failed %d, want 2", stats.Failed)
	}
	if stats.Fetched != 3 {
		t.Errorf("fetched %d, want 3", stats.Fetched)
	}

	// The failed instants stay missing and are re-attempted next run.
	fetcher.fail = nil
	stats = sched.Run("cam", win)
	if stats.Attempted != 2 || stats.Fetched != 2 {
		t.Errorf("recovery run: attempted=%d fetched=%d, want 2/2", stats.Attempted, stats.Fetched)
	}
	if stats.Skipped != 3 {
		t.Errorf("recovery run skipped %d, want 3", stats.Skipped)
	}
}

func TestWindowSchedulerZeroByteFrameNotCached(t *testing.T) {
	store := NewFrameStore(t.TempDir())
	win := TimeLapseWindow{
		Event:      models.SolarEvent{Instant: 1000, Profile: ProfileCivil},
		SpanSec:    30,
		CadenceSec: 30,
	}

	// A zero-size file is a failed write, not a captured frame.
	key := TimeLapseKey("cam", 1000, 970, ProfileCivil)
	if err := store.Write(key, nil); err != nil {
		t.Fatalf("seeding empty frame: %v", err)
	}

	fetcher := &fakeFetcher{}
	sched := NewWindowScheduler(store, fetcher, 0)
	stats := sched.Run("cam", win)

	if stats.Skipped != 0 {
		t.Errorf("skipped %d, want 0: empty frames must not satisfy the cache", stats.Skipped)
	}
	if stats.Attempted != 3 {
		t.Errorf("attempted %d, want 3", stats.Attempted)
	}
}
