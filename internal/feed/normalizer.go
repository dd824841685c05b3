package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"wager-tracker/internal/model"
)

// Placeholders for team fields the feed leaves out.
const (
	UnknownTeamName = "Unknown"
	UnknownTeamAbbr = "UNK"
	UnknownTeamID   = "0"
)

// Column limits: game_period VARCHAR(20), scores INT.
const (
	maxPeriodLen = 20
	maxScore     = math.MaxInt32
)

// CanonicalTeam is a feed team in local terms. (Name, Sport) is its identity.
type CanonicalTeam struct {
	ExternalID   string
	Name         string
	Abbreviation string
	City         string
	Sport        string
	Color        string
	LogoURL      *string
}

// CanonicalGame is a feed event in local terms.
type CanonicalGame struct {
	ExternalID string
	Name       string
	Sport      string
	Home       CanonicalTeam
	Away       CanonicalTeam

	// GameTime is UTC. TimeFallback is set when the upstream timestamp could
	// not be parsed and GameTime was substituted with the fetch instant.
	GameTime     time.Time
	TimeFallback bool

	FeedStatus model.FeedStatus
	Status     model.GameStatus
	HomeScore  *int
	AwayScore  *int
	Period     *string
}

// NormalizeTeam maps a raw team. Missing fields get placeholder values.
func NormalizeTeam(raw RawTeam, sportKey string) CanonicalTeam {
	t := CanonicalTeam{
		ExternalID:   strings.TrimSpace(raw.ID),
		Name:         strings.TrimSpace(raw.DisplayName),
		Abbreviation: strings.TrimSpace(raw.Abbreviation),
		City:         strings.TrimSpace(raw.Location),
		Sport:        sportKey,
		Color:        strings.TrimSpace(raw.Color),
	}
	if t.Name == "" {
		t.Name = strings.TrimSpace(raw.Name)
	}
	if t.Name == "" {
		t.Name = UnknownTeamName
	}
	if t.Abbreviation == "" {
		t.Abbreviation = UnknownTeamAbbr
	}
	if t.ExternalID == "" {
		t.ExternalID = UnknownTeamID
	}

	logo := strings.TrimSpace(raw.Logo)
	if len(raw.Logos) > 0 && strings.TrimSpace(raw.Logos[0].Href) != "" {
		logo = strings.TrimSpace(raw.Logos[0].Href)
	}
	if logo != "" {
		t.LogoURL = &logo
	}
	return t
}

// NormalizeEvent maps a raw event. now is the fetch instant used when the
// event date cannot be parsed.
//
// An event without both a home and an away competitor is rejected with
// ErrMalformedRecord; every other defect degrades to a default.
func NormalizeEvent(raw RawEvent, sportKey string, now time.Time) (CanonicalGame, error) {
	var home, away *RawCompetitor
	competitors := raw.Competitors()
	for i := range competitors {
		switch strings.ToLower(strings.TrimSpace(competitors[i].HomeAway)) {
		case "home":
			if home == nil {
				home = &competitors[i]
			}
		case "away":
			if away == nil {
				away = &competitors[i]
			}
		}
	}
	if home == nil || away == nil {
		return CanonicalGame{}, fmt.Errorf("%w: event %q has no home/away pair", ErrMalformedRecord, raw.ID)
	}

	date := raw.Date
	if strings.TrimSpace(date) == "" && len(raw.Competitions) > 0 {
		date = raw.Competitions[0].Date
	}
	gameTime, ok := ParseTimestamp(date, now)

	feedStatus := model.ParseFeedStatus(raw.Status.Type.Name)
	g := CanonicalGame{
		ExternalID:   strings.TrimSpace(raw.ID),
		Name:         raw.Name,
		Sport:        sportKey,
		Home:         NormalizeTeam(home.Team, sportKey),
		Away:         NormalizeTeam(away.Team, sportKey),
		GameTime:     gameTime,
		TimeFallback: !ok,
		FeedStatus:   feedStatus,
		Status:       feedStatus.GameStatus(),
		HomeScore:    parseScore(home.Score),
		AwayScore:    parseScore(away.Score),
	}

	if !feedStatus.IsScheduled() {
		if p := strings.TrimSpace(raw.Status.Type.ShortDetail); p != "" {
			if r := []rune(p); len(r) > maxPeriodLen {
				p = string(r[:maxPeriodLen])
			}
			g.Period = &p
		}
	}
	return g, nil
}

func parseScore(s RawScore) *int {
	if !s.Set {
		return nil
	}
	v := strings.TrimSpace(s.Value)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || math.IsNaN(f) || f < 0 || f > maxScore {
			return nil
		}
		n = int(f)
	}
	if n < 0 || n > maxScore {
		return nil
	}
	return &n
}

// Timestamp layouts in priority order.
var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// localKindSuffix marks a naive timestamp as host-local wall clock
// ("J", the military letter for local time).
const localKindSuffix = "J"

// ParseTimestamp parses an upstream timestamp into a UTC instant.
//
// Order of attempts:
//  1. offset-aware forms, converted to UTC;
//  2. naive forms, taken to already be UTC (the feed publishes UTC);
//  3. naive forms with a trailing "J" local-kind marker, converted from the
//     host's local zone.
//
// When nothing parses it returns now in UTC and false.
func ParseTimestamp(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range offsetLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
		if strings.HasSuffix(s, localKindSuffix) {
			bare := strings.TrimSuffix(s, localKindSuffix)
			for _, layout := range naiveLayouts {
				if t, err := time.ParseInLocation(layout, bare, time.Local); err == nil {
					return t.UTC(), true
				}
			}
		}
	}
	return now.UTC(), false
}
