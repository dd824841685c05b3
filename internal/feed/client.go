// Package feed talks to the upstream sports scoreboard API and normalizes
// what it returns into canonical teams and games.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wager-tracker/internal/sport"
)

// DefaultBaseURL is the public scoreboard API root.
const DefaultBaseURL = "http://site.api.espn.com/apis/site/v2/sports"

// DefaultFetchTimeout bounds a single upstream round-trip.
const DefaultFetchTimeout = 10 * time.Second

// Feed errors.
var (
	// ErrUpstreamUnavailable is returned when a fetch fails at the transport
	// level, times out, or the upstream answers with a non-200 status.
	ErrUpstreamUnavailable = errors.New("upstream feed unavailable")
	// ErrMalformedRecord is returned for a single record that cannot be normalized.
	ErrMalformedRecord = errors.New("malformed feed record")
)

// Source fetches raw records for one league.
type Source interface {
	Events(ctx context.Context, league sport.League) ([]RawEvent, error)
	Teams(ctx context.Context, league sport.League) ([]RawTeam, error)
}

// Client is the HTTP Source.
type Client struct {
	baseURL      string
	fetchTimeout time.Duration
	httpClient   *http.Client
}

// NewClient creates a feed client. Each fetch runs under its own deadline of
// fetchTimeout, independent of the caller's context deadline.
func NewClient(baseURL string, fetchTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		fetchTimeout: fetchTimeout,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
	}
}

// Events fetches the current scoreboard for the league.
func (c *Client) Events(ctx context.Context, league sport.League) ([]RawEvent, error) {
	var parsed scoreboardResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%s/scoreboard", c.baseURL, league.FeedPath()), &parsed); err != nil {
		return nil, err
	}
	return parsed.Events, nil
}

// Teams fetches the team list for the league.
func (c *Client) Teams(ctx context.Context, league sport.League) ([]RawTeam, error) {
	var parsed teamsResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%s/teams", c.baseURL, league.FeedPath()), &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Sports) == 0 || len(parsed.Sports[0].Leagues) == 0 {
		return nil, nil
	}
	entries := parsed.Sports[0].Leagues[0].Teams
	teams := make([]RawTeam, 0, len(entries))
	for _, e := range entries {
		teams = append(teams, e.Team)
	}
	return teams, nil
}

func (c *Client) get(ctx context.Context, url string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code: %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: error parsing response: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}
