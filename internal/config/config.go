// Package config provides the configuration structure for the mix-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the connection and subject configuration for NATS.
type NATSConfig struct {
	URL                   string `toml:"url"`
	MixStreamName         string `toml:"mix_stream_name"`
	MixConsumerName       string `toml:"mix_consumer_name"`
	MixRequestedSubject   string `toml:"mix_requested_subject"`
	MixCompletedSubject   string `toml:"mix_completed_subject"`
	AudioBucket           string `toml:"audio_bucket"`
	JobStatusBucket       string `toml:"job_status_bucket"`
}

// HTTPConfig holds the configuration for the HTTP API.
type HTTPConfig struct {
	ListenAddress string `toml:"listen_address"`
}

// TTSProviderConfig holds the configuration for the speech synthesis
// provider.
type TTSProviderConfig struct {
	BaseURL            string  `toml:"base_url"`
	Voice              string  `toml:"voice"`
	Language           string  `toml:"language"`
	Temperature        float64 `toml:"temperature"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	MaxCharsPerRequest int     `toml:"max_chars_per_request"`
}

// EngineConfig holds the configuration for the media engine binary.
type EngineConfig struct {
	BinaryPath     string `toml:"binary_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SampleRate     int    `toml:"sample_rate"`
	Bitrate        string `toml:"bitrate"`
}

// MixConfig holds the pipeline tuning parameters.
type MixConfig struct {
	SafetyFloorSeconds  float64 `toml:"safety_floor_seconds"`
	TempDir             string  `toml:"temp_dir"`
	FetchTimeoutSeconds int     `toml:"fetch_timeout_seconds"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS   NATSConfig        `toml:"nats"`
	HTTP   HTTPConfig        `toml:"http"`
	TTS    TTSProviderConfig `toml:"tts_provider"`
	Engine EngineConfig      `toml:"engine"`
	Mix    MixConfig         `toml:"mix"`
	Paths  PathsConfig       `toml:"paths"`
}

// Load loads the configuration for the mix-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
