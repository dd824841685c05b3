// Package timezone converts between UTC instants and wall-clock time in the
// fixed catalog of supported zones.
//
// Daylight-saving policy for ToUTC:
//   - a wall-clock time that does not exist (spring-forward gap) resolves
//     forward by the length of the gap, so 02:30 on the transition day in
//     Eastern becomes 03:30 EDT;
//   - a wall-clock time that occurs twice (fall-back overlap) resolves to the
//     first occurrence, i.e. the earlier instant on the pre-transition offset.
package timezone

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"github.com/rs/zerolog/log"
)

// DefaultZoneID is the zone used when a caller's zone is missing or unknown
// on a read path.
const DefaultZoneID = "America/New_York"

// Layouts used for human-facing strings.
const (
	LocalLayout = "2006-01-02T15:04:05"
	LabelLayout = "2006-01-02 15:04:05"
	DateLayout  = "2006-01-02"
)

// ErrInvalidZone is returned for identifiers outside the catalog.
var ErrInvalidZone = errors.New("invalid time zone")

// Zone is a catalog entry.
type Zone struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Offset      string `json:"offset"`

	loc *time.Location
}

var catalog = mustBuildCatalog([]Zone{
	{ID: "America/New_York", DisplayName: "Eastern Time (ET)", Offset: "UTC-5/-4"},
	{ID: "America/Chicago", DisplayName: "Central Time (CT)", Offset: "UTC-6/-5"},
	{ID: "America/Denver", DisplayName: "Mountain Time (MT)", Offset: "UTC-7/-6"},
	{ID: "America/Los_Angeles", DisplayName: "Pacific Time (PT)", Offset: "UTC-8/-7"},
	{ID: "America/Phoenix", DisplayName: "Arizona Time (MST)", Offset: "UTC-7"},
	{ID: "America/Anchorage", DisplayName: "Alaska Time (AKT)", Offset: "UTC-9/-8"},
	{ID: "Pacific/Honolulu", DisplayName: "Hawaii Time (HST)", Offset: "UTC-10"},
	{ID: "UTC", DisplayName: "Coordinated Universal Time (UTC)", Offset: "UTC+0"},
})

func mustBuildCatalog(zones []Zone) []Zone {
	for i := range zones {
		loc, err := time.LoadLocation(zones[i].ID)
		if err != nil {
			panic(fmt.Sprintf("timezone: load %s: %v", zones[i].ID, err))
		}
		zones[i].loc = loc
	}
	return zones
}

// Catalog returns a copy of the supported zones in display order.
func Catalog() []Zone {
	out := make([]Zone, len(catalog))
	copy(out, catalog)
	return out
}

// Default returns the Eastern zone.
func Default() Zone {
	return catalog[0]
}

// Lookup finds a zone by its identifier. Matching is exact.
func Lookup(id string) (Zone, error) {
	for _, z := range catalog {
		if z.ID == id {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("%w: %q", ErrInvalidZone, id)
}

// Validate rejects identifiers outside the catalog. Write paths must use
// this instead of Resolve so a bad zone is never silently substituted.
func Validate(id string) error {
	_, err := Lookup(id)
	return err
}

// Resolve is the single read-path policy for a caller's zone: an empty or
// unknown identifier degrades to Eastern. Unknown identifiers are logged.
func Resolve(id string) Zone {
	if id == "" {
		return Default()
	}
	z, err := Lookup(id)
	if err != nil {
		log.Warn().Str("zone", id).Msg("Unknown time zone, falling back to Eastern")
		return Default()
	}
	return z
}

// Location returns the zone's time.Location.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// ToLocal returns the wall-clock representation of t in the zone.
func (z Zone) ToLocal(t time.Time) time.Time {
	return t.In(z.Location())
}

// ToUTC interprets the calendar and clock fields of wall in the zone and
// returns the matching UTC instant. wall's own Location is ignored.
func (z Zone) ToUTC(wall time.Time) time.Time {
	loc := z.Location()
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	naive := time.Date(y, mo, d, h, mi, s, wall.Nanosecond(), time.UTC)

	// Offsets on either side of any transition near this wall clock.
	_, before := naive.Add(-12 * time.Hour).In(loc).Zone()
	_, after := naive.Add(12 * time.Hour).In(loc).Zone()
	early := naive.Add(-time.Duration(before) * time.Second)
	late := naive.Add(-time.Duration(after) * time.Second)
	if late.Before(early) {
		early, late = late, early
	}

	switch {
	case sameWallClock(early.In(loc), naive):
		// Unambiguous, or the first of two occurrences.
		return early.UTC()
	case sameWallClock(late.In(loc), naive):
		return late.UTC()
	default:
		// Gap: the later candidate lies past the transition.
		return late.UTC()
	}
}

// DayBounds returns the UTC instants of local midnight on the given calendar
// date and of the following local midnight.
func (z Zone) DayBounds(year int, month time.Month, day int) (time.Time, time.Time) {
	start := z.ToUTC(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	end := z.ToUTC(time.Date(year, month, day+1, 0, 0, 0, 0, time.UTC))
	return start, end
}

// FormatLocal formats t as local "2006-01-02T15:04:05" in the zone.
func (z Zone) FormatLocal(t time.Time) string {
	return z.ToLocal(t).Format(LocalLayout)
}

// FormatLabel formats t as local "2006-01-02 15:04:05" in the zone.
func (z Zone) FormatLabel(t time.Time) string {
	return z.ToLocal(t).Format(LabelLayout)
}

// ToLocal converts t into the wall clock of the zone identified by id.
func ToLocal(t time.Time, id string) (time.Time, error) {
	z, err := Lookup(id)
	if err != nil {
		return time.Time{}, err
	}
	return z.ToLocal(t), nil
}

// ToUTC converts a wall-clock value in the zone identified by id to UTC.
func ToUTC(wall time.Time, id string) (time.Time, error) {
	z, err := Lookup(id)
	if err != nil {
		return time.Time{}, err
	}
	return z.ToUTC(wall), nil
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ah, ami, as := a.Clock()
	bh, bmi, bs := b.Clock()
	return ay == by && am == bm && ad == bd && ah == bh && ami == bmi && as == bs &&
		a.Nanosecond() == b.Nanosecond()
}
