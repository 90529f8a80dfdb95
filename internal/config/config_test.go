package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	var cfg AppConfig
	cfg.Platform.URL = "https://project.supabase.co"
	cfg.Platform.AnonKey = "anon-key"
	cfg.Platform.JWTSecret = "jwt-secret"
	cfg.Security.SealKey = "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
	cfg.Redis.Stream = "demo:maintenance"
	cfg.Redis.Group = "stagedesk-workers"
	cfg.Redis.Consumer = "worker-1"
	return cfg
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresPlatformURL(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.URL = ""
	require.ErrorContains(t, cfg.Validate(), "platform.url")
}

func TestValidateRequiresAnonKey(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.AnonKey = ""
	require.ErrorContains(t, cfg.Validate(), "platform.anonkey")
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Platform.JWTSecret = ""
	require.ErrorContains(t, cfg.Validate(), "platform.jwtsecret")
}

func TestValidateRequiresSealKey(t *testing.T) {
	cfg := validConfig()
	cfg.Security.SealKey = ""
	require.ErrorContains(t, cfg.Validate(), "security.sealkey")
}

func TestValidateDemoNeedsCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Demo.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "demo.email")

	cfg.Demo.Email = "demo@stagedesk.app"
	cfg.Demo.Password = "demo-password"
	require.NoError(t, cfg.Validate())
}

func TestValidateWorkerSkipsGatewaySecrets(t *testing.T) {
	var cfg AppConfig
	cfg.Platform.URL = "https://project.supabase.co"
	cfg.Platform.AnonKey = "anon-key"
	cfg.Redis.Stream = "demo:maintenance"
	cfg.Redis.Group = "stagedesk-workers"
	cfg.Redis.Consumer = "worker-1"

	// No jwt secret, no seal key, no demo credentials: the worker never
	// touches them.
	require.NoError(t, cfg.ValidateWorker())
	require.Error(t, cfg.Validate())

	cfg.Platform.URL = ""
	require.ErrorContains(t, cfg.ValidateWorker(), "platform.url")
}

func TestLoadWorkerAppliesStreamDefaults(t *testing.T) {
	t.Setenv("STAGEDESK_PLATFORM_URL", "https://project.supabase.co")
	t.Setenv("STAGEDESK_PLATFORM_ANONKEY", "anon-key")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	require.Equal(t, "demo:maintenance", cfg.Redis.Stream)
	require.Equal(t, "stagedesk-workers", cfg.Redis.Group)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("STAGEDESK_PLATFORM_URL", "https://project.supabase.co")
	t.Setenv("STAGEDESK_PLATFORM_ANONKEY", "anon-key")
	t.Setenv("STAGEDESK_PLATFORM_JWTSECRET", "jwt-secret")
	t.Setenv("STAGEDESK_SECURITY_SEALKEY", "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, 14, cfg.Demo.Days)
	require.Equal(t, "demo:maintenance", cfg.Redis.Stream)
	require.Equal(t, "stagedesk_session", cfg.Security.CookieName)
}
