package services

import (
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/sunsetd/backend/models"
)

// Depression profiles. Civil is the canonical publishable profile; the
// other two exist only to drive additional time-lapse windows.
const (
	ProfileCivil        = "civil"
	ProfileNautical     = "nautical"
	ProfileAstronomical = "astronomical"
)

// Profiles lists all depression profiles in the order windows are run.
var Profiles = []string{ProfileAstronomical, ProfileNautical, ProfileCivil}

// depressionAngles maps a profile to the sun's angle below the horizon, in
// degrees, that defines its sunset/sunrise variant.
var depressionAngles = map[string]float64{
	ProfileCivil:        6,
	ProfileNautical:     12,
	ProfileAstronomical: 18,
}

// SunsetResolver produces today's sunset instant for a depression profile.
type SunsetResolver interface {
	Sunset(profile string) (models.SolarEvent, error)
}

// SolarResolver computes sunrise/sunset instants for a fixed location.
// Each call takes the depression angle as an argument, so resolutions for
// different profiles can never interleave through shared calculator state.
type SolarResolver struct {
	name     string
	lat, lon float64
	tz       *time.Location
	now      func() time.Time
}

func NewSolarResolver(name string, lat, lon float64, tz *time.Location) *SolarResolver {
	if tz == nil {
		tz = time.Local
	}
	return &SolarResolver{
		name: name,
		lat:  lat,
		lon:  lon,
		tz:   tz,
		now:  time.Now,
	}
}

// Sunset returns today's sunset for the given profile, using the current
// date in the resolver's timezone.
func (r *SolarResolver) Sunset(profile string) (models.SolarEvent, error) {
	return r.resolve("sunset", profile)
}

// Sunrise returns today's sunrise for the given profile.
func (r *SolarResolver) Sunrise(profile string) (models.SolarEvent, error) {
	return r.resolve("sunrise", profile)
}

func (r *SolarResolver) resolve(name, profile string) (models.SolarEvent, error) {
	angle, ok := depressionAngles[profile]
	if !ok {
		return models.SolarEvent{}, fmt.Errorf("unknown depression profile: %s", profile)
	}

	today := r.now().In(r.tz)
	rise, set := sunrise.TimeOfElevation(
		r.lat, r.lon, -angle,
		today.Year(), today.Month(), today.Day(),
	)

	instant := set
	if name == "sunrise" {
		instant = rise
	}
	if instant.IsZero() {
		return models.SolarEvent{}, fmt.Errorf("no %s %s at %s on %s",
			profile, name, r.name, today.Format("2006-01-02"))
	}

	return models.SolarEvent{
		Name:     name,
		Profile:  profile,
		Instant:  instant.Unix(),
		Location: r.name,
	}, nil
}

// Date formats an event instant as its calendar date in the resolver's
// timezone. Publication markers are keyed by this date.
func (r *SolarResolver) Date(instant int64) string {
	return time.Unix(instant, 0).In(r.tz).Format("2006-01-02")
}
