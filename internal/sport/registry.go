// Package sport defines the leagues the tracker follows and where the
// upstream feed publishes them.
package sport

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// League describes one followed league.
type League struct {
	Key   string // canonical key stored on teams and games, e.g. "NFL"
	Type  string // feed sport path segment, e.g. "football"
	Path  string // feed league path segment, e.g. "nfl"
	Title string
}

// FeedPath returns the "{type}/{league}" segment of the upstream URL.
func (l League) FeedPath() string {
	return l.Type + "/" + l.Path
}

// Registry manages the followed leagues.
// Lookups are case-insensitive on the league key.
type Registry struct {
	leagues map[string]League
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		leagues: make(map[string]League),
	}
}

// NewDefaultRegistry returns a registry with the four major North American leagues.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, l := range Defaults() {
		_ = r.Register(l)
	}
	return r
}

// Defaults returns the built-in leagues.
func Defaults() []League {
	return []League{
		{Key: "NFL", Type: "football", Path: "nfl", Title: "National Football League"},
		{Key: "NBA", Type: "basketball", Path: "nba", Title: "National Basketball Association"},
		{Key: "MLB", Type: "baseball", Path: "mlb", Title: "Major League Baseball"},
		{Key: "NHL", Type: "hockey", Path: "nhl", Title: "National Hockey League"},
	}
}

// Register adds a league, replacing any league with the same key.
func (r *Registry) Register(l League) error {
	if l.Key == "" {
		return fmt.Errorf("league key cannot be empty")
	}
	if l.Type == "" || l.Path == "" {
		return fmt.Errorf("league %s needs a feed type and path", l.Key)
	}

	l.Key = strings.ToUpper(l.Key)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leagues[l.Key] = l
	return nil
}

// Get retrieves a league by key.
func (r *Registry) Get(key string) (League, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leagues[strings.ToUpper(strings.TrimSpace(key))]
	return l, ok
}

// List returns all leagues sorted by key.
func (r *Registry) List() []League {
	r.mu.RLock()
	defer r.mu.RUnlock()

	leagues := make([]League, 0, len(r.leagues))
	for _, l := range r.leagues {
		leagues = append(leagues, l)
	}
	sort.Slice(leagues, func(i, j int) bool { return leagues[i].Key < leagues[j].Key })
	return leagues
}

// Keys returns all league keys sorted.
func (r *Registry) Keys() []string {
	leagues := r.List()
	keys := make([]string, 0, len(leagues))
	for _, l := range leagues {
		keys = append(keys, l.Key)
	}
	return keys
}

// Count returns the number of registered leagues.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leagues)
}

// Restrict keeps only the listed keys. Unknown keys are reported as an error
// and nothing is removed.
func (r *Registry) Restrict(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	want := make(map[string]bool, len(keys))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if _, ok := r.leagues[k]; !ok {
			return fmt.Errorf("unknown league %q", k)
		}
		want[k] = true
	}
	for k := range r.leagues {
		if !want[k] {
			delete(r.leagues, k)
		}
	}
	return nil
}
