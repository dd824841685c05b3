package feed

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// scoreboardResponse is the body of GET {type}/{league}/scoreboard.
type scoreboardResponse struct {
	Events []RawEvent `json:"events"`
}

// teamsResponse is the body of GET {type}/{league}/teams.
type teamsResponse struct {
	Sports []struct {
		Leagues []struct {
			Teams []struct {
				Team RawTeam `json:"team"`
			} `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
}

// RawEvent is one upstream event as published by the feed.
type RawEvent struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	ShortName    string           `json:"shortName"`
	Date         string           `json:"date"`
	Status       RawStatus        `json:"status"`
	Competitions []RawCompetition `json:"competitions"`
}

// Competitors returns the competitors of the first competition, if any.
func (e RawEvent) Competitors() []RawCompetitor {
	if len(e.Competitions) == 0 {
		return nil
	}
	return e.Competitions[0].Competitors
}

// RawStatus holds the upstream status block.
type RawStatus struct {
	Period int `json:"period"`
	Type   struct {
		Name        string `json:"name"`
		ShortDetail string `json:"shortDetail"`
	} `json:"type"`
}

// RawCompetition is one competition inside an event.
type RawCompetition struct {
	Date        string          `json:"date"`
	Competitors []RawCompetitor `json:"competitors"`
}

// RawCompetitor is one side of a competition.
type RawCompetitor struct {
	HomeAway string   `json:"homeAway"`
	Score    RawScore `json:"score"`
	Team     RawTeam  `json:"team"`
}

// RawTeam is the upstream team shape, shared by both endpoints.
type RawTeam struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Location     string    `json:"location"`
	Color        string    `json:"color"`
	Logo         string    `json:"logo"`
	Logos        []RawLogo `json:"logos"`
}

// RawLogo is one logo reference.
type RawLogo struct {
	Href string `json:"href"`
}

// RawScore accepts the score as a string ("21"), a number (21), an object
// with a value or displayValue, or null. Anything else decodes as absent so a
// single odd score does not fail the whole response.
type RawScore struct {
	Value string
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *RawScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = RawScore{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err == nil {
			s.Value, s.Set = str, true
		}
	case '{':
		var obj struct {
			Value        *float64 `json:"value"`
			DisplayValue string   `json:"displayValue"`
		}
		if err := json.Unmarshal(data, &obj); err == nil {
			switch {
			case obj.DisplayValue != "":
				s.Value, s.Set = obj.DisplayValue, true
			case obj.Value != nil:
				s.Value, s.Set = strconv.FormatFloat(*obj.Value, 'f', -1, 64), true
			}
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			s.Value, s.Set = n.String(), true
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, writing the score as a string.
func (s RawScore) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}
