package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EncodesPayload(t *testing.T) {
	home := 21
	e, err := New(TypeGameUpdated, "17", GameChanged{GameID: 17, Sport: "NFL", Matchup: "BUF @ KC", Status: "Final", HomeScore: &home})
	require.NoError(t, err)

	assert.Equal(t, TypeGameUpdated, e.Type)
	assert.Equal(t, "17", e.Key)
	assert.NotZero(t, e.TsUnixMs)

	var got GameChanged
	require.NoError(t, json.Unmarshal(e.Payload, &got))
	assert.Equal(t, "BUF @ KC", got.Matchup)
	require.NotNil(t, got.HomeScore)
	assert.Equal(t, 21, *got.HomeScore)
	assert.Nil(t, got.AwayScore)
}

func TestNew_RejectsUnencodable(t *testing.T) {
	_, err := New(TypeBetSettled, "1", make(chan int))
	assert.Error(t, err)
}

func TestRecorder_FiltersByPrefix(t *testing.T) {
	r := &Recorder{}
	g, _ := New(TypeGameCreated, "1", GameChanged{GameID: 1})
	b, _ := New(TypeBetSettled, "2", BetSettled{BetID: 2, Outcome: "Won", Payout: "190.91"})
	require.NoError(t, r.Publish(context.Background(), g, b))

	assert.Len(t, r.Events(""), 2)
	assert.Len(t, r.Events("game."), 1)
	assert.Len(t, r.Events(TypeBetSettled), 1)
}

func TestKafkaPublisher_UnreachableBroker(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:1"}, "wager.events")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	e, _ := New(TypeBetSettled, "1", BetSettled{BetID: 1})
	assert.Error(t, p.Publish(ctx, e))
	assert.NoError(t, p.Publish(ctx), "empty batch is a no-op")
}
