package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/mojistream/internal/config"
)

type envConfig struct {
	Env                        string `env:"ENV" envDefault:"production"`
	APIBaseURL                 string `env:"API_BASE_URL,required"`
	StreamSessionID            string `env:"STREAM_SESSION_ID"`
	StreamTransport            string `env:"STREAM_TRANSPORT" envDefault:"websocket"`
	FramesPerBuffer            int    `env:"FRAMES_PER_BUFFER" envDefault:"1024"`
	PreferredSampleRate        int    `env:"PREFERRED_SAMPLE_RATE" envDefault:"16000"`
	OutboundQueueSize          int    `env:"OUTBOUND_QUEUE_SIZE" envDefault:"64"`
	ConnectTimeoutSec          int    `env:"CONNECT_TIMEOUT_SEC" envDefault:"0"`
	MaxStreamDurationMin       int    `env:"MAX_STREAM_DURATION_MIN" envDefault:"0"`
	DatabaseURL                string `env:"DATABASE_URL"`
	TranscriptWebhookURL       string `env:"TRANSCRIPT_WEBHOOK_URL"`
	TranscriptTimezone         string `env:"TRANSCRIPT_TIMEZONE" envDefault:"Asia/Taipei"`
	DiscordToken               string `env:"DISCORD_TOKEN"`
	DiscordChannelID           string `env:"DISCORD_CHANNEL_ID"`
	MQTTBrokerURL              string `env:"MQTT_BROKER_URL"`
	MQTTTopicPrefix            string `env:"MQTT_TOPIC_PREFIX" envDefault:"mojistream"`
	MQTTClientID               string `env:"MQTT_CLIENT_ID" envDefault:"mojistream"`
	MQTTUsername               string `env:"MQTT_USERNAME"`
	MQTTPassword               string `env:"MQTT_PASSWORD"`
	HTTPAddr                   string `env:"HTTP_ADDR"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	DefaultTranscribeLanguage  string `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"ja-JP"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		APIBaseURL:                 raw.APIBaseURL,
		StreamSessionID:            raw.StreamSessionID,
		StreamTransport:            raw.StreamTransport,
		FramesPerBuffer:            raw.FramesPerBuffer,
		PreferredSampleRate:        raw.PreferredSampleRate,
		OutboundQueueSize:          raw.OutboundQueueSize,
		ConnectTimeoutSec:          raw.ConnectTimeoutSec,
		MaxStreamDurationMin:       raw.MaxStreamDurationMin,
		DatabaseURL:                raw.DatabaseURL,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		TranscriptTimezone:         raw.TranscriptTimezone,
		DiscordToken:               raw.DiscordToken,
		DiscordChannelID:           raw.DiscordChannelID,
		MQTTBrokerURL:              raw.MQTTBrokerURL,
		MQTTTopicPrefix:            raw.MQTTTopicPrefix,
		MQTTClientID:               raw.MQTTClientID,
		MQTTUsername:               raw.MQTTUsername,
		MQTTPassword:               raw.MQTTPassword,
		HTTPAddr:                   raw.HTTPAddr,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
