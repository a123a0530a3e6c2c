package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
speaker: Streamer
twitch:
  enabled: true
  channel: streamer
  bot_user: streambuddy
  keywords: [buddy]
  cooldown_seconds: 1.5
arbiter:
  fairness_after_voice: 2
  turn_timeout_seconds: 30
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if config.Speaker != "Streamer" {
		t.Fatalf("unexpected speaker: %q", config.Speaker)
	}
	if config.Server.Addr != "127.0.0.1:8787" {
		t.Fatalf("expected default server addr to survive, got %q", config.Server.Addr)
	}
	if got := config.Twitch.Cooldown(); got != 1500*time.Millisecond {
		t.Fatalf("unexpected cooldown: %v", got)
	}
	if config.Arbiter.FairnessAfterVoice != 2 {
		t.Fatalf("unexpected fairness threshold: %d", config.Arbiter.FairnessAfterVoice)
	}
	if got := config.Arbiter.TurnTimeout(); got != 30*time.Second {
		t.Fatalf("unexpected turn timeout: %v", got)
	}
}

func TestLoadRejectsInvalidArbiterSettings(t *testing.T) {
	path := writeConfig(t, `
arbiter:
  fairness_after_voice: 0
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for zero fairness threshold")
	}
}

func TestLoadRejectsEnabledTwitchWithoutChannel(t *testing.T) {
	path := writeConfig(t, `
twitch:
  enabled: true
  bot_user: streambuddy
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for missing twitch channel")
	}
}

func TestSecretsResolveFromEnvironment(t *testing.T) {
	config := Default()
	t.Setenv(config.LLM.APIKeyEnv, "test-api-key")
	t.Setenv(config.Twitch.TokenEnv, "test-token")

	if got := config.LLM.APIKey(); got != "test-api-key" {
		t.Fatalf("unexpected api key: %q", got)
	}
	if got := config.Twitch.Token(); got != "test-token" {
		t.Fatalf("unexpected token: %q", got)
	}
}
