// Package schedule turns a caller's logical window ("today", "next 6 hours",
// "on 2025-07-11") into the UTC range the game store is filtered by, plus the
// local labels shown next to the results.
//
// Filtering is always done on UTC instants. Local wall clocks only appear in
// labels, which are produced by converting the UTC bounds back through the
// caller's zone.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"wager-tracker/internal/timezone"
)

// Window limits.
const (
	MaxHours                = 24 * 7
	MaxDays                 = 90
	DefaultDays             = 7
	DefaultOpportunityHours = 12
)

// ErrInvalidWindow is returned for malformed or out-of-range windows.
var ErrInvalidWindow = errors.New("invalid window")

// Kind identifies the shape of a window.
type Kind int

// Window kinds.
const (
	KindNextHours Kind = iota + 1
	KindNextDays
	KindToday
	KindOnDate
)

func (k Kind) String() string {
	switch k {
	case KindNextHours:
		return "next_hours"
	case KindNextDays:
		return "next_days"
	case KindToday:
		return "today"
	case KindOnDate:
		return "on_date"
	}
	return "unknown"
}

// Window is a logical time window expressed in the caller's terms.
type Window struct {
	Kind  Kind
	N     int
	Year  int
	Month time.Month
	Day   int
}

// NextHours is the window [now, now+n hours).
func NextHours(n int) Window { return Window{Kind: KindNextHours, N: n} }

// NextDays is the window [now, now+n days).
func NextDays(n int) Window { return Window{Kind: KindNextDays, N: n} }

// Today is local midnight to local midnight in the caller's zone.
func Today() Window { return Window{Kind: KindToday} }

// OnDate is local midnight to local midnight on the given calendar date.
func OnDate(year int, month time.Month, day int) Window {
	return Window{Kind: KindOnDate, Year: year, Month: month, Day: day}
}

// Default is the window used when the caller does not specify one.
func Default() Window { return NextDays(DefaultDays) }

// ParseDate parses a "YYYY-MM-DD" local calendar date into an OnDate window.
func ParseDate(s string) (Window, error) {
	d, err := time.Parse(timezone.DateLayout, s)
	if err != nil {
		return Window{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidWindow, s)
	}
	return OnDate(d.Year(), d.Month(), d.Day()), nil
}

// Validate checks the window's parameters.
func (w Window) Validate() error {
	switch w.Kind {
	case KindNextHours:
		if w.N < 1 || w.N > MaxHours {
			return fmt.Errorf("%w: hours must be between 1 and %d", ErrInvalidWindow, MaxHours)
		}
	case KindNextDays:
		if w.N < 1 || w.N > MaxDays {
			return fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidWindow, MaxDays)
		}
	case KindToday:
	case KindOnDate:
		check := time.Date(w.Year, w.Month, w.Day, 0, 0, 0, 0, time.UTC)
		if w.Year < 1970 || check.Month() != w.Month || check.Day() != w.Day {
			return fmt.Errorf("%w: no such date %04d-%02d-%02d", ErrInvalidWindow, w.Year, int(w.Month), w.Day)
		}
	default:
		return fmt.Errorf("%w: unknown kind", ErrInvalidWindow)
	}
	return nil
}

// Plan is the resolved filter range and its local labels.
// Start and End are UTC; the range is half-open [Start, End).
type Plan struct {
	Window Window
	Zone   timezone.Zone
	Now    time.Time
	Start  time.Time
	End    time.Time

	FromLabel string
	ToLabel   string
	NowLabel  string
}

// Build resolves w for a caller in zone at instant now.
//
// NextHours and NextDays have a zone-independent width computed from now.
// Today and OnDate take local midnight boundaries in the zone and convert
// them to UTC.
func Build(now time.Time, zone timezone.Zone, w Window) (Plan, error) {
	if err := w.Validate(); err != nil {
		return Plan{}, err
	}
	now = now.UTC()

	p := Plan{Window: w, Zone: zone, Now: now}
	switch w.Kind {
	case KindNextHours:
		p.Start = now
		p.End = now.Add(time.Duration(w.N) * time.Hour)
	case KindNextDays:
		p.Start = now
		p.End = now.AddDate(0, 0, w.N)
	case KindToday:
		local := zone.ToLocal(now)
		p.Start, p.End = zone.DayBounds(local.Year(), local.Month(), local.Day())
	case KindOnDate:
		p.Start, p.End = zone.DayBounds(w.Year, w.Month, w.Day)
	}

	p.FromLabel = zone.FormatLabel(p.Start)
	p.ToLabel = zone.FormatLabel(p.End)
	p.NowLabel = zone.FormatLabel(now)
	return p, nil
}

// Contains reports whether t falls inside the plan's UTC range.
func (p Plan) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Description is a short human label for the window, e.g. "Next 12 hours".
func (p Plan) Description() string {
	switch p.Window.Kind {
	case KindNextHours:
		return fmt.Sprintf("Next %d hours", p.Window.N)
	case KindNextDays:
		return fmt.Sprintf("Next %d days", p.Window.N)
	case KindToday:
		return "Today (" + p.Zone.ToLocal(p.Start).Format(timezone.DateLayout) + ")"
	default:
		return p.Zone.ToLocal(p.Start).Format(timezone.DateLayout)
	}
}
