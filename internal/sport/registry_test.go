package sport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, 4, r.Count())
	assert.Equal(t, []string{"MLB", "NBA", "NFL", "NHL"}, r.Keys())

	nfl, ok := r.Get("nfl")
	require.True(t, ok)
	assert.Equal(t, "football/nfl", nfl.FeedPath())

	_, ok = r.Get("MLS")
	assert.False(t, ok)
}

func TestRegister_Validation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(League{}))
	assert.Error(t, r.Register(League{Key: "WNBA"}))

	require.NoError(t, r.Register(League{Key: "wnba", Type: "basketball", Path: "wnba"}))
	l, ok := r.Get("WNBA")
	require.True(t, ok)
	assert.Equal(t, "WNBA", l.Key)
}

func TestRestrict(t *testing.T) {
	r := NewDefaultRegistry()
	require.NoError(t, r.Restrict([]string{"nfl", "NBA"}))
	assert.Equal(t, []string{"NBA", "NFL"}, r.Keys())

	assert.Error(t, r.Restrict([]string{"NFL", "XFL"}))
	assert.Equal(t, 2, r.Count())

	require.NoError(t, r.Restrict(nil))
	assert.Equal(t, 2, r.Count())
}
