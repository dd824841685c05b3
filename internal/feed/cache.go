package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"wager-tracker/internal/sport"
)

// DefaultCacheTTL keeps upstream responses briefly so repeated triggers in a
// polling window reuse one fetch.
const DefaultCacheTTL = 30 * time.Second

// CachedSource wraps a Source with a redis cache. Concurrent fetches of the
// same key share one upstream call. Cache failures are logged and bypassed.
type CachedSource struct {
	next  Source
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedSource creates a cached source. A nil client disables caching but
// keeps call coalescing.
func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{next: next, rdb: rdb, ttl: ttl}
}

func eventsKey(league sport.League) string { return "feed:" + league.Key + ":events" }
func teamsKey(league sport.League) string  { return "feed:" + league.Key + ":teams" }

// Events implements Source.
func (c *CachedSource) Events(ctx context.Context, league sport.League) ([]RawEvent, error) {
	key := eventsKey(league)
	v, err, _ := c.group.Do(key, func() (any, error) {
		var events []RawEvent
		if c.load(ctx, key, &events) {
			return events, nil
		}
		events, err := c.next.Events(ctx, league)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, events)
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]RawEvent), nil
}

// Teams implements Source.
func (c *CachedSource) Teams(ctx context.Context, league sport.League) ([]RawTeam, error) {
	key := teamsKey(league)
	v, err, _ := c.group.Do(key, func() (any, error) {
		var teams []RawTeam
		if c.load(ctx, key, &teams) {
			return teams, nil
		}
		teams, err := c.next.Teams(ctx, league)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, teams)
		return teams, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]RawTeam), nil
}

// Invalidate drops the cached entries for a league.
func (c *CachedSource) Invalidate(ctx context.Context, league sport.League) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, eventsKey(league), teamsKey(league)).Err()
}

func (c *CachedSource) load(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Feed cache read failed, fetching upstream")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Feed cache entry unreadable, fetching upstream")
		return false
	}
	return true
}

func (c *CachedSource) store(ctx context.Context, key string, v any) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Feed cache write failed")
	}
}

// ConnectRedis opens a redis client and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
