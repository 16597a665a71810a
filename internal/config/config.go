package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	TransportWebSocket   = "websocket"
	TransportCloudSpeech = "cloudspeech"
)

type Config struct {
	Env                        string
	APIBaseURL                 string
	StreamSessionID            string
	StreamTransport            string
	FramesPerBuffer            int
	PreferredSampleRate        int
	OutboundQueueSize          int
	ConnectTimeoutSec          int
	MaxStreamDurationMin       int
	DatabaseURL                string
	TranscriptWebhookURL       string
	TranscriptTimezone         string
	DiscordToken               string
	DiscordChannelID           string
	MQTTBrokerURL              string
	MQTTTopicPrefix            string
	MQTTClientID               string
	MQTTUsername               string
	MQTTPassword               string
	HTTPAddr                   string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	DefaultTranscribeLanguage  string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	switch c.StreamTransport {
	case TransportWebSocket, TransportCloudSpeech:
	default:
		return fmt.Errorf("STREAM_TRANSPORT must be %q or %q, got %q", TransportWebSocket, TransportCloudSpeech, c.StreamTransport)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("FRAMES_PER_BUFFER must be positive, got %d", c.FramesPerBuffer)
	}
	if c.PreferredSampleRate <= 0 {
		return fmt.Errorf("PREFERRED_SAMPLE_RATE must be positive, got %d", c.PreferredSampleRate)
	}
	if c.OutboundQueueSize < 0 {
		return fmt.Errorf("OUTBOUND_QUEUE_SIZE must not be negative, got %d", c.OutboundQueueSize)
	}
	if c.ConnectTimeoutSec < 0 {
		return fmt.Errorf("CONNECT_TIMEOUT_SEC must not be negative, got %d", c.ConnectTimeoutSec)
	}
	if c.MaxStreamDurationMin < 0 {
		return fmt.Errorf("MAX_STREAM_DURATION_MIN must not be negative, got %d", c.MaxStreamDurationMin)
	}
	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	if c.TranscriptTimezone == "" {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	fields := []requiredEnvField{
		{name: "API_BASE_URL", value: c.APIBaseURL},
	}
	if c.StreamTransport == TransportCloudSpeech {
		fields = append(fields,
			requiredEnvField{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
			requiredEnvField{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
			requiredEnvField{name: "GOOGLE_CLOUD_SPEECH_LOCATION", value: c.GoogleCloudSpeechLocation},
			requiredEnvField{name: "GOOGLE_CLOUD_SPEECH_MODEL", value: c.GoogleCloudSpeechModel},
			requiredEnvField{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		)
	}
	return fields
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

func (c *Config) MaxStreamDuration() time.Duration {
	return time.Duration(c.MaxStreamDurationMin) * time.Minute
}
