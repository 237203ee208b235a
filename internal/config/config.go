package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Rater         RaterConfig         `yaml:"rater"`
	Session       SessionConfig       `yaml:"session"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains capture engine parameters
type AudioConfig struct {
	SampleRate               int     `yaml:"sample_rate"`
	Channels                 int     `yaml:"channels"`
	BitDepth                 int     `yaml:"bit_depth"`
	BlockSize                int     `yaml:"block_size"`                 // samples per callback block
	SilenceThresholdRMS      float64 `yaml:"silence_threshold_rms"`      // RMS amplitude
	SilenceDuration          float64 `yaml:"silence_duration"`           // seconds of silence before auto-stop
	MaxDuration              float64 `yaml:"max_duration"`               // hard recording ceiling, seconds
	ClarificationMaxDuration float64 `yaml:"clarification_max_duration"` // shorter ceiling for clarification answers
}

// TranscriptionConfig contains speech-to-text API configuration
type TranscriptionConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // optional endpoint override
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds
}

// RaterConfig contains scoring service API configuration
type RaterConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   int    `yaml:"timeout"` // seconds
}

// SessionConfig contains session persistence configuration
type SessionConfig struct {
	DataDir         string `yaml:"data_dir"`
	QuestionBank    string `yaml:"question_bank"`
	DefaultLanguage string `yaml:"default_language"`
}

// HTTPConfig contains the monitoring HTTP server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// API keys may come from the environment instead of the file
	if config.Transcription.APIKey == "" {
		config.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Rater.APIKey == "" {
		config.Rater.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Rater.Validate(); err != nil {
		return fmt.Errorf("rater config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.BlockSize < 256 || a.BlockSize > 8192 {
		return fmt.Errorf("block_size must be between 256 and 8192 samples, got %d", a.BlockSize)
	}

	if a.SilenceThresholdRMS <= 0 {
		return fmt.Errorf("silence_threshold_rms must be positive, got %f", a.SilenceThresholdRMS)
	}

	if a.SilenceDuration <= 0 {
		return fmt.Errorf("silence_duration must be positive, got %f", a.SilenceDuration)
	}

	if a.MaxDuration <= a.SilenceDuration {
		return fmt.Errorf("max_duration (%f) must be greater than silence_duration (%f)",
			a.MaxDuration, a.SilenceDuration)
	}

	if a.ClarificationMaxDuration <= 0 || a.ClarificationMaxDuration > a.MaxDuration {
		return fmt.Errorf("clarification_max_duration must be in (0, max_duration], got %f",
			a.ClarificationMaxDuration)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if t.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates rater configuration
func (r *RaterConfig) Validate() error {
	if r.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if r.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if r.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", r.MaxTokens)
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	if s.QuestionBank == "" {
		return fmt.Errorf("question_bank cannot be empty")
	}

	if s.DefaultLanguage == "" {
		return fmt.Errorf("default_language cannot be empty")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSilenceDuration returns the silence auto-stop duration as a time.Duration
func (a *AudioConfig) GetSilenceDuration() time.Duration {
	return time.Duration(a.SilenceDuration * float64(time.Second))
}

// GetMaxDuration returns the hard recording ceiling as a time.Duration
func (a *AudioConfig) GetMaxDuration() time.Duration {
	return time.Duration(a.MaxDuration * float64(time.Second))
}

// GetClarificationMaxDuration returns the clarification recording ceiling as a time.Duration
func (a *AudioConfig) GetClarificationMaxDuration() time.Duration {
	return time.Duration(a.ClarificationMaxDuration * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the rater timeout as a time.Duration
func (r *RaterConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}
