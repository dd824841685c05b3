package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Feed.FetchTimeout)
	assert.Equal(t, []string{"NFL", "NBA", "MLB", "NHL"}, cfg.Feed.Sports)
	assert.Equal(t, "*/2 * * * *", cfg.Sync.LiveCron)
	assert.Equal(t, "America/New_York", cfg.Sync.Location)
	assert.Equal(t, "WagerWatch", cfg.Auth.Issuer)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, float64(10000), cfg.Betting.MaxStake)
	assert.Empty(t, cfg.Auth.JWTSecret, "the signing secret has no default")
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := strings.Join([]string{
		"server:",
		"  port: 9000",
		"feed:",
		"  fetch_timeout: 3s",
		"auth:",
		"  jwt_secret: " + testSecret,
		"admin:",
		"  ids: [42]",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 3*time.Second, cfg.Feed.FetchTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.IsAdmin(42))
	assert.NoError(t, cfg.Validate())
}

func TestLoad_SecretFromEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{JWTSecret: "short"}, Storage: StorageConfig{Driver: DriverMemory}}
	assert.ErrorIs(t, cfg.Validate(), ErrShortJWTSecret)

	cfg.Auth.JWTSecret = testSecret
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownDriver)
}

func TestDSN(t *testing.T) {
	d := &DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "wager"}
	assert.Equal(t, "postgres://u:p@db:5433/wager?sslmode=disable", d.DSN())
}

// TestWhitelistProperty checks that an empty whitelist allows every chat and a
// non-empty one allows exactly its members.
func TestWhitelistProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chats := rapid.SliceOfDistinct(rapid.Int64(), func(v int64) int64 { return v }).Draw(t, "chats")
		probe := rapid.Int64().Draw(t, "probe")

		cfg := &Config{Whitelist: WhitelistConfig{Chats: chats}}
		member := false
		for _, c := range chats {
			member = member || c == probe
		}
		want := len(chats) == 0 || member
		if got := cfg.IsChatAllowed(probe); got != want {
			t.Fatalf("IsChatAllowed(%d) = %v, want %v (chats=%v)", probe, got, want, chats)
		}
	})
}

// TestAdminProperty checks that IsAdmin is exact membership.
func TestAdminProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOf(rapid.Int64Range(1, 1000)).Draw(t, "ids")
		probe := rapid.Int64Range(1, 1000).Draw(t, "probe")

		cfg := &Config{Admin: AdminConfig{IDs: ids}}
		want := false
		for _, id := range ids {
			want = want || id == probe
		}
		if cfg.IsAdmin(probe) != want {
			t.Fatalf("IsAdmin(%d) mismatch for %v", probe, ids)
		}
	})
}
