package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// ============================================================================
// Catalog and policy
// ============================================================================

func TestCatalog_HasEightZones(t *testing.T) {
	zones := Catalog()
	require.Len(t, zones, 8)
	assert.Equal(t, DefaultZoneID, zones[0].ID)
	assert.Equal(t, "Eastern Time (ET)", zones[0].DisplayName)

	// Catalog returns a copy.
	zones[0].ID = "mutated"
	assert.Equal(t, DefaultZoneID, Catalog()[0].ID)
}

func TestLookup_UnknownZone(t *testing.T) {
	_, err := Lookup("Europe/Paris")
	assert.ErrorIs(t, err, ErrInvalidZone)

	_, err = Lookup("")
	assert.ErrorIs(t, err, ErrInvalidZone)

	z, err := Lookup("America/Phoenix")
	require.NoError(t, err)
	assert.Equal(t, "UTC-7", z.Offset)
}

func TestValidate_RejectsWhatResolveAccepts(t *testing.T) {
	assert.ErrorIs(t, Validate("Mars/Olympus"), ErrInvalidZone)
	assert.Equal(t, DefaultZoneID, Resolve("Mars/Olympus").ID)
	assert.Equal(t, DefaultZoneID, Resolve("").ID)
	assert.Equal(t, "Pacific/Honolulu", Resolve("Pacific/Honolulu").ID)
}

func TestToLocal_ByID(t *testing.T) {
	utc := time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC)

	local, err := ToLocal(utc, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-11T16:00:00", local.Format(LocalLayout))

	local, err = ToLocal(utc, "Pacific/Honolulu")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-11T10:00:00", local.Format(LocalLayout))

	_, err = ToLocal(utc, "nope")
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestToUTC_IgnoresWallLocation(t *testing.T) {
	// The fields are read as wall clock regardless of the value's own location.
	wall := time.Date(2025, 1, 15, 19, 0, 0, 0, time.FixedZone("X", 3*3600))
	got, err := ToUTC(wall, "America/Chicago")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 16, 1, 0, 0, 0, time.UTC), got)
}

// ============================================================================
// Daylight-saving policy
// ============================================================================

func TestToUTC_SpringForwardGapMovesForward(t *testing.T) {
	eastern := Default()
	// 2025-03-09 02:30 does not exist in New York.
	got := eastern.ToUTC(time.Date(2025, 3, 9, 2, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC), got)
	assert.Equal(t, "2025-03-09T03:30:00", eastern.FormatLocal(got))
}

func TestToUTC_FallBackOverlapTakesFirstOccurrence(t *testing.T) {
	eastern := Default()
	// 2025-11-02 01:30 happens twice in New York; EDT comes first.
	got := eastern.ToUTC(time.Date(2025, 11, 2, 1, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 11, 2, 5, 30, 0, 0, time.UTC), got)
}

func TestDayBounds_ShortAndLongDays(t *testing.T) {
	eastern := Default()

	start, end := eastern.DayBounds(2025, time.March, 9)
	assert.Equal(t, time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 23*time.Hour, end.Sub(start))

	start, end = eastern.DayBounds(2025, time.November, 2)
	assert.Equal(t, time.Date(2025, 11, 2, 4, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 25*time.Hour, end.Sub(start))

	start, end = eastern.DayBounds(2025, time.July, 11)
	assert.Equal(t, time.Date(2025, 7, 11, 4, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 7, 12, 4, 0, 0, 0, time.UTC), end)
}

// ============================================================================
// Properties
// ============================================================================

// nearTransition reports whether the zone's offset changes within a few hours
// of t, which is where wall clocks can be missing or doubled.
func nearTransition(z Zone, t time.Time) bool {
	_, before := t.Add(-3 * time.Hour).In(z.Location()).Zone()
	_, after := t.Add(3 * time.Hour).In(z.Location()).Zone()
	return before != after
}

// TestRoundTripProperty checks ToUTC(ToLocal(t, z), z) == t for every
// catalog zone and every instant away from a DST transition.
func TestRoundTripProperty(t *testing.T) {
	zones := Catalog()
	rapid.Check(t, func(t *rapid.T) {
		z := zones[rapid.IntRange(0, len(zones)-1).Draw(t, "zone")]
		secs := rapid.Int64Range(
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
			time.Date(2037, 12, 31, 0, 0, 0, 0, time.UTC).Unix(),
		).Draw(t, "unix")
		instant := time.Unix(secs, 0).UTC()
		if nearTransition(z, instant) {
			t.Skip("instant near a transition")
		}

		got := z.ToUTC(z.ToLocal(instant))
		if !got.Equal(instant) {
			t.Fatalf("round trip mismatch in %s: in=%v out=%v", z.ID, instant, got)
		}
	})
}

// TestToUTCIsTotalProperty checks that every wall clock resolves to an instant
// whose local rendering is never earlier than the requested wall clock.
func TestToUTCIsTotalProperty(t *testing.T) {
	zones := Catalog()
	rapid.Check(t, func(t *rapid.T) {
		z := zones[rapid.IntRange(0, len(zones)-1).Draw(t, "zone")]
		wall := time.Date(
			rapid.IntRange(2000, 2037).Draw(t, "year"),
			time.Month(rapid.IntRange(1, 12).Draw(t, "month")),
			rapid.IntRange(1, 28).Draw(t, "day"),
			rapid.IntRange(0, 23).Draw(t, "hour"),
			rapid.IntRange(0, 59).Draw(t, "minute"),
			0, 0, time.UTC,
		)

		local := z.ToLocal(z.ToUTC(wall))
		naive := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
		if naive.Before(wall) {
			t.Fatalf("%s: wall %v resolved backwards to %v", z.ID, wall, naive)
		}
		if naive.Sub(wall) > time.Hour {
			t.Fatalf("%s: wall %v resolved more than an hour forward to %v", z.ID, wall, naive)
		}
	})
}
