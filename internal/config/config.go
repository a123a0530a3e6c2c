// Package config loads and validates the service configuration.
//
// Secrets never live in the file itself. Sections reference environment
// variable names and the accessors resolve them at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the complete service configuration.
type Config struct {
	Speaker string        `yaml:"speaker"`
	Server  ServerConfig  `yaml:"server"`
	Twitch  TwitchConfig  `yaml:"twitch"`
	LLM     LLMConfig     `yaml:"llm"`
	TTS     TTSConfig     `yaml:"tts"`
	STT     STTConfig     `yaml:"stt"`
	Audio   AudioConfig   `yaml:"audio"`
	Arbiter ArbiterConfig `yaml:"arbiter"`
}

// ServerConfig configures the HTTP control plane and overlay websocket.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	OverlayKeyEnv string `yaml:"overlay_key_env"`
}

// TwitchConfig configures the chat integration.
type TwitchConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Channel         string   `yaml:"channel"`
	BotUser         string   `yaml:"bot_user"`
	TokenEnv        string   `yaml:"token_env"`
	Keywords        []string `yaml:"keywords"`
	CooldownSeconds float64  `yaml:"cooldown_seconds"`
}

// LLMConfig configures the response model.
type LLMConfig struct {
	Model            string `yaml:"model"`
	APIKeyEnv        string `yaml:"api_key_env"`
	SystemPromptPath string `yaml:"system_prompt_path"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	Enabled bool   `yaml:"enabled"`
	VoiceID string `yaml:"voice_id"`
}

// STTConfig configures speech transcription.
type STTConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AudioConfig selects the capture and playback backend.
type AudioConfig struct {
	Backend    string `yaml:"backend"`
	BufferSize int    `yaml:"buffer_size"`
}

// ArbiterConfig tunes turn arbitration.
type ArbiterConfig struct {
	FairnessAfterVoice int     `yaml:"fairness_after_voice"`
	TurnTimeoutSeconds float64 `yaml:"turn_timeout_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Speaker: "Bootoshi",
		Server: ServerConfig{
			Addr:          "127.0.0.1:8787",
			OverlayKeyEnv: "OVERLAY_KEY",
		},
		Twitch: TwitchConfig{
			TokenEnv:        "TWITCH_TOKEN",
			Keywords:        []string{"questboo", "duck", "chicken"},
			CooldownSeconds: 2,
		},
		LLM: LLMConfig{
			Model:     "openai/gpt-4o-mini",
			APIKeyEnv: "OPENROUTER_API_KEY",
		},
		TTS: TTSConfig{
			Enabled: true,
		},
		STT: STTConfig{
			Enabled: true,
		},
		Audio: AudioConfig{
			Backend:    "miniaudio",
			BufferSize: 512,
		},
		Arbiter: ArbiterConfig{
			FairnessAfterVoice: 1,
			TurnTimeoutSeconds: 60,
		},
	}
}

// Load reads a configuration file over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Speaker == "" {
		return fmt.Errorf("speaker cannot be empty")
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Twitch.Validate(); err != nil {
		return fmt.Errorf("twitch config: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Arbiter.Validate(); err != nil {
		return fmt.Errorf("arbiter config: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if s.OverlayKeyEnv == "" {
		return fmt.Errorf("overlay_key_env cannot be empty")
	}
	return nil
}

// OverlayKey resolves the overlay auth key from the environment.
func (s *ServerConfig) OverlayKey() string {
	return os.Getenv(s.OverlayKeyEnv)
}

func (t *TwitchConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Channel == "" {
		return fmt.Errorf("channel cannot be empty when twitch is enabled")
	}
	if t.BotUser == "" {
		return fmt.Errorf("bot_user cannot be empty when twitch is enabled")
	}
	if t.TokenEnv == "" {
		return fmt.Errorf("token_env cannot be empty when twitch is enabled")
	}
	if t.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown_seconds cannot be negative, got %f", t.CooldownSeconds)
	}
	return nil
}

// Token resolves the chat credential from the environment.
func (t *TwitchConfig) Token() string {
	return os.Getenv(t.TokenEnv)
}

// Cooldown returns the chat adapter cooldown as a time.Duration.
func (t *TwitchConfig) Cooldown() time.Duration {
	return time.Duration(t.CooldownSeconds * float64(time.Second))
}

func (l *LLMConfig) Validate() error {
	if l.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if l.APIKeyEnv == "" {
		return fmt.Errorf("api_key_env cannot be empty")
	}
	return nil
}

// APIKey resolves the model credential from the environment.
func (l *LLMConfig) APIKey() string {
	return os.Getenv(l.APIKeyEnv)
}

// SystemPrompt reads the system prompt file, or returns an empty prompt
// when no path is configured.
func (l *LLMConfig) SystemPrompt() (string, error) {
	if l.SystemPromptPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(l.SystemPromptPath)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt %s: %w", l.SystemPromptPath, err)
	}
	return string(data), nil
}

func (a *AudioConfig) Validate() error {
	if a.Backend != "miniaudio" && a.Backend != "portaudio" {
		return fmt.Errorf("backend must be 'miniaudio' or 'portaudio', got '%s'", a.Backend)
	}
	if a.BufferSize < 64 {
		return fmt.Errorf("buffer_size must be at least 64 samples, got %d", a.BufferSize)
	}
	return nil
}

func (a *ArbiterConfig) Validate() error {
	if a.FairnessAfterVoice < 1 {
		return fmt.Errorf("fairness_after_voice must be at least 1, got %d", a.FairnessAfterVoice)
	}
	if a.TurnTimeoutSeconds <= 0 {
		return fmt.Errorf("turn_timeout_seconds must be positive, got %f", a.TurnTimeoutSeconds)
	}
	return nil
}

// TurnTimeout returns the watchdog timeout as a time.Duration.
func (a *ArbiterConfig) TurnTimeout() time.Duration {
	return time.Duration(a.TurnTimeoutSeconds * float64(time.Second))
}
