// Package events publishes domain events (games created or updated by
// reconciliation, bets settled) to kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	TypeGameCreated = "game.created"
	TypeGameUpdated = "game.updated"
	TypeBetSettled  = "bet.settled"
)

// Event is the envelope written to the topic. Key groups related events
// onto one partition (the game id for game events, the bet id for bets).
type Event struct {
	Type     string          `json:"type"`
	Key      string          `json:"key"`
	Payload  json.RawMessage `json:"payload"`
	TsUnixMs int64           `json:"ts_unix_ms"`
}

// GameChanged is the payload of game.created and game.updated.
type GameChanged struct {
	GameID     int64   `json:"game_id"`
	ExternalID string  `json:"external_id,omitempty"`
	Sport      string  `json:"sport"`
	Matchup    string  `json:"matchup"`
	GameTime   string  `json:"game_time"`
	Status     string  `json:"status"`
	HomeScore  *int    `json:"home_score,omitempty"`
	AwayScore  *int    `json:"away_score,omitempty"`
	Period     *string `json:"period,omitempty"`
}

// BetSettled is the payload of bet.settled.
type BetSettled struct {
	BetID   int64  `json:"bet_id"`
	UserID  int64  `json:"user_id"`
	GameID  int64  `json:"game_id"`
	Outcome string `json:"outcome"`
	Payout  string `json:"payout"`
}

// New builds an event with a JSON payload.
func New(eventType, key string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Key: key, Payload: b, TsUnixMs: time.Now().UnixMilli()}, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// KafkaPublisher writes events to one topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(e.Key),
			Value:   b,
			Time:    time.UnixMilli(e.TsUnixMs),
			Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d events: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards events.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, ...Event) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published, optionally filtered by type prefix.
func (r *Recorder) Events(typePrefix string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if strings.HasPrefix(e.Type, typePrefix) {
			out = append(out, e)
		}
	}
	return out
}
