// Package config loads the voice processor configuration from an optional
// YAML file with BRAINDUMP_-prefixed environment overrides. Defaults match
// the recorder's fixed capture format: 16-bit PCM mono at 44.1 kHz with
// 1024-frame buffers.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio      AudioConfig      `mapstructure:"audio" yaml:"audio"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Transcribe TranscribeConfig `mapstructure:"transcribe" yaml:"transcribe"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Limits     LimitsConfig     `mapstructure:"limits" yaml:"limits"`
}

type AudioConfig struct {
	SampleRate      int `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels        int `mapstructure:"channels" yaml:"channels"`
	FramesPerBuffer int `mapstructure:"frames_per_buffer" yaml:"frames_per_buffer"`
	// Device is the input device index, -1 for the system default.
	Device int `mapstructure:"device" yaml:"device"`
}

type OutputConfig struct {
	AudioDir      string `mapstructure:"audio_dir" yaml:"audio_dir"`
	TranscriptDir string `mapstructure:"transcript_dir" yaml:"transcript_dir"`
}

type TranscribeConfig struct {
	Binary         string `mapstructure:"binary" yaml:"binary"`
	Model          string `mapstructure:"model" yaml:"model"`
	ModelName      string `mapstructure:"model_name" yaml:"model_name"`
	Language       string `mapstructure:"language" yaml:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type StoreConfig struct {
	Node           string `mapstructure:"node" yaml:"node"`
	Script         string `mapstructure:"script" yaml:"script"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type LimitsConfig struct {
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes" yaml:"max_file_size_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      44100,
			Channels:        1,
			FramesPerBuffer: 1024,
			Device:          -1,
		},
		Output: OutputConfig{
			AudioDir:      filepath.Join("outputs", "audio"),
			TranscriptDir: filepath.Join("outputs", "transcripts"),
		},
		Transcribe: TranscribeConfig{
			Binary:         "whisper-cli",
			Model:          filepath.Join("models", "ggml-base.bin"),
			ModelName:      "whisper-base",
			Language:       "en",
			TimeoutSeconds: 300,
		},
		Store: StoreConfig{
			Node:           "node",
			Script:         filepath.Join("src", "add_recording.js"),
			TimeoutSeconds: 5,
		},
		Limits: LimitsConfig{
			MaxFileSizeBytes: 500 * 1024 * 1024,
		},
	}
}

// Load reads configuration from configFile when non-empty, applying
// defaults and BRAINDUMP_ environment overrides, and validates the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BRAINDUMP")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("audio.sample_rate", def.Audio.SampleRate)
	v.SetDefault("audio.channels", def.Audio.Channels)
	v.SetDefault("audio.frames_per_buffer", def.Audio.FramesPerBuffer)
	v.SetDefault("audio.device", def.Audio.Device)
	v.SetDefault("output.audio_dir", def.Output.AudioDir)
	v.SetDefault("output.transcript_dir", def.Output.TranscriptDir)
	v.SetDefault("transcribe.binary", def.Transcribe.Binary)
	v.SetDefault("transcribe.model", def.Transcribe.Model)
	v.SetDefault("transcribe.model_name", def.Transcribe.ModelName)
	v.SetDefault("transcribe.language", def.Transcribe.Language)
	v.SetDefault("transcribe.timeout_seconds", def.Transcribe.TimeoutSeconds)
	v.SetDefault("store.node", def.Store.Node)
	v.SetDefault("store.script", def.Store.Script)
	v.SetDefault("store.timeout_seconds", def.Store.TimeoutSeconds)
	v.SetDefault("limits.max_file_size_bytes", def.Limits.MaxFileSizeBytes)
}

// Validate checks that the configuration describes a usable recorder.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels must be 1 (mono), got %d", c.Audio.Channels)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be > 0, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Output.AudioDir == "" {
		return fmt.Errorf("output.audio_dir is required")
	}
	if c.Output.TranscriptDir == "" {
		return fmt.Errorf("output.transcript_dir is required")
	}
	if c.Transcribe.Binary == "" {
		return fmt.Errorf("transcribe.binary is required")
	}
	if c.Transcribe.TimeoutSeconds <= 0 {
		return fmt.Errorf("transcribe.timeout_seconds must be > 0, got %d", c.Transcribe.TimeoutSeconds)
	}
	if c.Store.TimeoutSeconds <= 0 {
		return fmt.Errorf("store.timeout_seconds must be > 0, got %d", c.Store.TimeoutSeconds)
	}
	if c.Limits.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("limits.max_file_size_bytes must be > 0, got %d", c.Limits.MaxFileSizeBytes)
	}
	return nil
}

// Save writes the configuration as YAML to path, creating the parent
// directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
