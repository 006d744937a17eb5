package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sunsetd/backend/models"
)

// Orchestrator runs one full invocation: for every selected camera and
// every depression profile, resolve the sunset and capture its window;
// then, for the civil profile only, put each publishable camera through
// the publication guard. Strictly sequential, run-to-completion.
type Orchestrator struct {
	registry  *CameraRegistry
	resolver  SunsetResolver
	scheduler *WindowScheduler
	guard     *PublicationGuard
	caption   CaptionFunc

	spanSec    int64
	cadenceSec int64
	location   string

	// history may be nil (e.g. the timelapse subcommand without a DB).
	history *History
}

func NewOrchestrator(
	registry *CameraRegistry,
	resolver SunsetResolver,
	scheduler *WindowScheduler,
	guard *PublicationGuard,
	caption CaptionFunc,
	spanSec, cadenceSec int64,
	location string,
	history *History,
) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		resolver:   resolver,
		scheduler:  scheduler,
		guard:      guard,
		caption:    caption,
		spanSec:    spanSec,
		cadenceSec: cadenceSec,
		location:   location,
		history:    history,
	}
}

// Run executes windows for all profiles and the guard for civil, and
// records the invocation in run history. A failed profile resolution
// skips that profile's windows but never aborts the run.
func (o *Orchestrator) Run() models.RunRecord {
	rec := models.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Location:  o.location,
	}

	cameras := o.registry.Selected()
	rec.Cameras = len(cameras)

	for _, profile := range Profiles {
		event, err := o.resolver.Sunset(profile)
		if err != nil {
			log.Printf("resolving %s sunset: %v", profile, err)
			continue
		}
		log.Printf("%s sunset at %s is %s", profile, event.Location,
			time.Unix(event.Instant, 0).Format(time.RFC3339))

		win := TimeLapseWindow{
			Event:      event,
			SpanSec:    o.spanSec,
			CadenceSec: o.cadenceSec,
		}

		for _, cam := range cameras {
			stats := o.scheduler.Run(cam.ID, win)
			rec.Windows++
			rec.Stats.Add(stats)
			log.Printf("%s %s window: %d fetched, %d skipped, %d failed",
				cam.ID, profile, stats.Fetched, stats.Skipped, stats.Failed)
		}

		if profile == ProfileCivil {
			rec.Publications = append(rec.Publications, o.publish(cameras, event)...)
		}
	}

	rec.FinishedAt = time.Now()
	o.record(rec)
	return rec
}

// RunWindows captures all profile windows without touching the guard.
func (o *Orchestrator) RunWindows() models.RunRecord {
	rec := models.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Location:  o.location,
	}

	cameras := o.registry.Selected()
	rec.Cameras = len(cameras)

	for _, profile := range Profiles {
		event, err := o.resolver.Sunset(profile)
		if err != nil {
			log.Printf("resolving %s sunset: %v", profile, err)
			continue
		}
		win := TimeLapseWindow{
			Event:      event,
			SpanSec:    o.spanSec,
			CadenceSec: o.cadenceSec,
		}
		for _, cam := range cameras {
			stats := o.scheduler.Run(cam.ID, win)
			rec.Windows++
			rec.Stats.Add(stats)
		}
	}

	rec.FinishedAt = time.Now()
	o.record(rec)
	return rec
}

// RunPublish puts publishable cameras through the guard for the civil
// sunset, without capturing windows.
func (o *Orchestrator) RunPublish() models.RunRecord {
	rec := models.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Location:  o.location,
	}

	cameras := o.registry.Selected()
	rec.Cameras = len(cameras)

	event, err := o.resolver.Sunset(ProfileCivil)
	if err != nil {
		log.Printf("resolving civil sunset: %v", err)
		rec.FinishedAt = time.Now()
		o.record(rec)
		return rec
	}

	rec.Publications = o.publish(cameras, event)
	rec.FinishedAt = time.Now()
	o.record(rec)
	return rec
}

func (o *Orchestrator) publish(cameras []models.Camera, event models.SolarEvent) []models.PublicationOutcome {
	var outcomes []models.PublicationOutcome
	for _, cam := range cameras {
		if !cam.Publish {
			continue
		}
		outcome, err := o.guard.MaybePublish(cam, event, o.caption)
		if err != nil {
			log.Printf("%s publish guard: %s: %v", cam.ID, outcome.Outcome, err)
		} else {
			log.Printf("%s publish guard: %s", cam.ID, outcome.Outcome)
		}
		outcomes = append(outcomes, outcome)

		if outcome.Receipt != "" && o.history != nil {
			err := o.history.RecordPublication(models.PublicationRecord{
				ID:       uuid.NewString(),
				CameraID: cam.ID,
				Profile:  event.Profile,
				Date:     outcome.Date,
				Receipt:  outcome.Receipt,
				PostedAt: time.Now(),
			})
			if err != nil {
				log.Printf("%s: recording publication: %v", cam.ID, err)
			}
		}
	}
	return outcomes
}

func (o *Orchestrator) record(rec models.RunRecord) {
	if o.history == nil {
		return
	}
	if err := o.history.RecordRun(rec); err != nil {
		log.Printf("recording run %s: %v", rec.ID, err)
	}
}
