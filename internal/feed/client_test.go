package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-tracker/internal/sport"
)

var (
	nfl = sport.League{Key: "NFL", Type: "football", Path: "nfl"}
	nba = sport.League{Key: "NBA", Type: "basketball", Path: "nba"}
	nhl = sport.League{Key: "NHL", Type: "hockey", Path: "nhl"}
)

func TestClient_Events(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()

	c := NewClient(srv.URL(), time.Second)
	events, err := c.Events(context.Background(), nfl)
	require.NoError(t, err)
	require.Len(t, events, 2)

	e := events[0]
	assert.Equal(t, "401", e.ID)
	assert.Equal(t, "STATUS_IN_PROGRESS", e.Status.Type.Name)
	require.Len(t, e.Competitors(), 2)
	assert.Equal(t, "7", e.Competitors()[0].Score.Value)
	// numeric score is accepted too
	assert.Equal(t, "3", e.Competitors()[1].Score.Value)
}

func TestClient_EmptyLeague(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()

	c := NewClient(srv.URL(), time.Second)
	events, err := c.Events(context.Background(), nba)
	require.NoError(t, err)
	assert.Empty(t, events)

	teams, err := c.Teams(context.Background(), nba)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestClient_Teams(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()

	c := NewClient(srv.URL(), time.Second)
	teams, err := c.Teams(context.Background(), nfl)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "Kansas City Chiefs", teams[0].DisplayName)
	require.Len(t, teams[0].Logos, 1)
	assert.Equal(t, "https://a.espncdn.com/kc-500.png", teams[0].Logos[0].Href)
}

func TestClient_UpstreamErrors(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()

	c := NewClient(srv.URL(), time.Second)
	_, err := c.Events(context.Background(), nhl)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	_, err = c.Teams(context.Background(), nhl)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	// Nothing listening.
	dead := NewClient("http://127.0.0.1:1", time.Second)
	_, err = dead.Events(context.Background(), nfl)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestClient_FetchDeadline(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()
	srv.delay.Store(int64(2 * time.Second))

	c := NewClient(srv.URL(), 50*time.Millisecond)
	start := time.Now()
	_, err := c.Events(context.Background(), nfl)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}
