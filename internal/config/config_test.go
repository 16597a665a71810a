package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:                 "development",
		APIBaseURL:          "https://api.example.com",
		StreamTransport:     TransportWebSocket,
		FramesPerBuffer:     1024,
		PreferredSampleRate: 16000,
		OutboundQueueSize:   64,
		TranscriptTimezone:  "Asia/Taipei",
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when required fields are missing")
	}
}

func TestValidate_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-http base url", func(c *Config) { c.APIBaseURL = "ftp://example.com" }},
		{"base url without host", func(c *Config) { c.APIBaseURL = "https://" }},
		{"unknown transport", func(c *Config) { c.StreamTransport = "grpc" }},
		{"zero frames", func(c *Config) { c.FramesPerBuffer = 0 }},
		{"zero sample rate", func(c *Config) { c.PreferredSampleRate = 0 }},
		{"negative queue", func(c *Config) { c.OutboundQueueSize = -1 }},
		{"negative timeout", func(c *Config) { c.ConnectTimeoutSec = -1 }},
		{"negative max duration", func(c *Config) { c.MaxStreamDurationMin = -1 }},
		{"discord token without channel", func(c *Config) { c.DiscordToken = "token" }},
		{"discord channel without token", func(c *Config) { c.DiscordChannelID = "123" }},
		{"bad timezone", func(c *Config) { c.TranscriptTimezone = "Mars/Olympus" }},
		{"cloud speech without project", func(c *Config) { c.StreamTransport = TransportCloudSpeech }},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestValidate_CloudSpeech(t *testing.T) {
	cfg := validConfig()
	cfg.StreamTransport = TransportCloudSpeech
	cfg.GoogleCloudProjectID = "project-id"
	cfg.GoogleCloudCredentialsJSON = `{"type":"service_account"}`
	cfg.GoogleCloudSpeechLocation = "asia-northeast1"
	cfg.GoogleCloudSpeechModel = "chirp_3"
	cfg.DefaultTranscribeLanguage = "cmn-Hant-TW"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDevelopment() {
		t.Fatal("expected non-development mode")
	}
}

func TestDurations(t *testing.T) {
	cfg := &Config{ConnectTimeoutSec: 5, MaxStreamDurationMin: 2}
	if cfg.ConnectTimeout() != 5*time.Second {
		t.Fatalf("unexpected connect timeout %s", cfg.ConnectTimeout())
	}
	if cfg.MaxStreamDuration() != 2*time.Minute {
		t.Fatalf("unexpected max duration %s", cfg.MaxStreamDuration())
	}
}
