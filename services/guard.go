package services

import (
	"log"
	"time"

	"github.com/sunsetd/backend/models"
)

// Publisher posts an image with a caption to the social feed and returns a
// receipt token.
type Publisher interface {
	Publish(image []byte, caption string) (string, error)
}

// CaptionFunc builds the caption for an event's post.
type CaptionFunc func(event models.SolarEvent) string

// Outcome is the publication guard's decision for one (camera, profile,
// date) triple.
type Outcome string

const (
	// Published: capture, post, and marker write all succeeded.
	Published Outcome = "published"
	// AlreadyPublished: a non-empty marker exists; the publisher was not
	// invoked. This is the at-most-once-per-day guarantee.
	AlreadyPublished Outcome = "already-published"
	// SkippedTooEarly: the event instant is still in the future; nothing
	// was fetched or posted. Publishing before the event would post a
	// prediction instead of a captured reality.
	SkippedTooEarly Outcome = "skipped:too-early"
	// SkippedProfile: only the civil profile ever publishes.
	SkippedProfile Outcome = "skipped:profile"
	// FetchFailed: the single capture at the event instant failed; no post,
	// no marker. Retryable on the next run.
	FetchFailed Outcome = "fetch-failed"
	// PublishFailed: the feed rejected the post; no marker written.
	// Retryable on the next run.
	PublishFailed Outcome = "publish-failed"
	// MarkerWriteFailed: the post went out but the marker could not be
	// persisted. Deliberately distinct from Published: the idempotence
	// guard did not get recorded, so the next run will post again unless
	// an operator intervenes.
	MarkerWriteFailed Outcome = "marker-write-failed"
)

// PublicationGuard enforces "publish at most once per event per day". The
// marker file is the sole source of truth for "already published"; checks
// run strictly in the order profile, too-early, marker, capture, publish,
// mark. The marker check-then-write is not atomic across processes; the
// deployment relies on non-overlapping invocations, not a distributed lock.
type PublicationGuard struct {
	store     *FrameStore
	fetch     Fetcher
	publisher Publisher
	tz        *time.Location
	now       func() time.Time
}

func NewPublicationGuard(store *FrameStore, fetch Fetcher, publisher Publisher, tz *time.Location) *PublicationGuard {
	if tz == nil {
		tz = time.Local
	}
	return &PublicationGuard{
		store:     store,
		fetch:     fetch,
		publisher: publisher,
		tz:        tz,
		now:       time.Now,
	}
}

// MaybePublish captures a single frame at the event instant and posts it,
// unless a guard condition short-circuits first. The returned
// PublicationOutcome always carries the decision; err is non-nil only for
// the failure outcomes.
func (g *PublicationGuard) MaybePublish(cam models.Camera, event models.SolarEvent, caption CaptionFunc) (models.PublicationOutcome, error) {
	date := time.Unix(event.Instant, 0).In(g.tz).Format("2006-01-02")
	result := models.PublicationOutcome{
		CameraID: cam.ID,
		Profile:  event.Profile,
		Date:     date,
	}

	if event.Profile != ProfileCivil {
		result.Outcome = string(SkippedProfile)
		return result, nil
	}

	if event.Instant > g.now().Unix() {
		result.Outcome = string(SkippedTooEarly)
		return result, nil
	}

	if g.store.MarkerExists(cam.ID, event.Profile, date) {
		result.Outcome = string(AlreadyPublished)
		return result, nil
	}

	data, err := g.fetch.Fetch(models.CaptureRequest{
		CameraID: cam.ID,
		Instant:  event.Instant,
		Width:    cam.Width,
		Label:    event.Profile,
	})
	if err != nil {
		result.Outcome = string(FetchFailed)
		result.Error = err.Error()
		return result, err
	}

	// Keep the frame that gets posted; a write failure here is not fatal
	// to the publish itself.
	key := SingleKey(cam.ID, event.Instant, event.Profile)
	if err := g.store.Write(key, data); err != nil {
		log.Printf("%s: storing published frame: %v", cam.ID, err)
	}

	receipt, err := g.publisher.Publish(data, caption(event))
	if err != nil {
		result.Outcome = string(PublishFailed)
		result.Error = err.Error()
		return result, err
	}
	result.Receipt = receipt

	if err := g.store.WriteMarker(cam.ID, event.Profile, date, receipt); err != nil {
		// The post is live but unrecorded: the next run WILL publish
		// again. Surface loudly.
		log.Printf("%s: post %s published but marker write failed: %v", cam.ID, receipt, err)
		result.Outcome = string(MarkerWriteFailed)
		result.Error = err.Error()
		return result, err
	}

	result.Outcome = string(Published)
	return result, nil
}
