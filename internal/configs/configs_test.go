package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"ENVIRONMENT", "NODE_NAME", "TRACKER_ADDR", "ADVERTISE_ADDR", "POLL_INTERVAL",
		"ADMIN_PORT", "ALLOWED_ORIGINS", "ADMIN_JWT_SECRET", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadServerDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(RoleServer, []string{"9000"})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":9000", cfg.ListenAddr())
	assert.Equal(t, "server-9000", cfg.NodeName)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.AdminAddr())
	assert.Empty(t, cfg.AdvertiseAddr)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadServerWithHostAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRACKER_ADDR", "tracker.local:9001")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("ADMIN_PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig(RoleServer, []string{"10.0.0.5", "9000"})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9000", cfg.AdvertiseAddr)
	assert.Equal(t, "tracker.local:9001", cfg.TrackerAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "10.0.0.5:8080", cfg.AdminAddr())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ADMIN_PORT", "8080")

	_, err := LoadConfig(RoleTracker, []string{"9001"})
	assert.Error(t, err)

	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	cfg, err := LoadConfig(RoleTracker, []string{"9001"})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadClient(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(RoleClient, []string{"chat.local", "9000", "alice"})
	require.NoError(t, err)
	assert.Equal(t, "chat.local", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, DefaultPassword, cfg.Password)

	cfg, err = LoadConfig(RoleClient, []string{"chat.local", "9000", "alice", "pw"})
	require.NoError(t, err)
	assert.Equal(t, "pw", cfg.Password)
}

func TestLoadRejectsBadArguments(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		role Role
		args []string
	}{
		{RoleServer, nil},
		{RoleServer, []string{"a", "b", "c"}},
		{RoleServer, []string{"port"}},
		{RoleTracker, []string{"70000"}},
		{RoleClient, []string{"host", "9000"}},
		{RoleClient, []string{"host", "65535", "alice"}},
	}

	for _, tc := range cases {
		_, err := LoadConfig(tc.role, tc.args)
		assert.Error(t, err, "%s %v", tc.role, tc.args)
	}
}

func TestLoadRejectsBadPollInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "soon")

	_, err := LoadConfig(RoleServer, []string{"9000"})
	assert.Error(t, err)
}
