package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Download  DownloadConfig  `yaml:"download"`
	Mux       MuxConfig       `yaml:"mux"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	AllowedOrigins []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// StorageConfig holds temporary artifact storage configuration.
type StorageConfig struct {
	TempPath      string        `yaml:"temp_path" envconfig:"STORAGE_TEMP_PATH"`
	OrphanMaxAge  time.Duration `yaml:"orphan_max_age" envconfig:"STORAGE_ORPHAN_MAX_AGE"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"STORAGE_SWEEP_INTERVAL"`
	MinFreeBytes  int64         `yaml:"min_free_bytes" envconfig:"STORAGE_MIN_FREE_BYTES"`
}

// DownloadConfig holds media fetch and pipeline configuration.
type DownloadConfig struct {
	UserAgent         string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT"`
	HeaderTimeout     time.Duration `yaml:"header_timeout" envconfig:"DOWNLOAD_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `yaml:"read_timeout" envconfig:"DOWNLOAD_READ_TIMEOUT"`
	JobTimeout        time.Duration `yaml:"job_timeout" envconfig:"DOWNLOAD_JOB_TIMEOUT"`
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs" envconfig:"MAX_CONCURRENT_JOBS"`
	QueueTimeout      time.Duration `yaml:"queue_timeout" envconfig:"DOWNLOAD_QUEUE_TIMEOUT"`
}

// MuxConfig holds multiplexer configuration. Stream mapping is fixed and
// not configurable; only the audio target codec and tooling paths are.
type MuxConfig struct {
	FFmpegPath   string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	FFprobePath  string        `yaml:"ffprobe_path" envconfig:"FFPROBE_PATH"`
	AudioCodec   string        `yaml:"audio_codec" envconfig:"MUX_AUDIO_CODEC"`
	AudioBitrate string        `yaml:"audio_bitrate" envconfig:"MUX_AUDIO_BITRATE"`
	RampInterval time.Duration `yaml:"ramp_interval" envconfig:"MUX_RAMP_INTERVAL"`
}

// RateLimitConfig holds API rate limiting configuration.
// A negative RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Defaults fill only what neither the file nor the environment set
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults sets every zero-valued field to its default.
func (c *Config) ApplyDefaults() {
	setString(&c.Server.Host, "0.0.0.0")
	setInt(&c.Server.Port, 3000)
	setDuration(&c.Server.ReadTimeout, 30*time.Second)
	setDuration(&c.Server.WriteTimeout, 30*time.Minute)
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	setString(&c.Storage.TempPath, filepath.Join(os.TempDir(), "ytmux"))
	setDuration(&c.Storage.OrphanMaxAge, 2*time.Hour)
	setDuration(&c.Storage.SweepInterval, 15*time.Minute)
	if c.Storage.MinFreeBytes == 0 {
		c.Storage.MinFreeBytes = 1 << 30 // 1GB
	}

	setString(&c.Download.UserAgent, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	setDuration(&c.Download.HeaderTimeout, 30*time.Second)
	setDuration(&c.Download.ReadTimeout, 60*time.Second)
	setDuration(&c.Download.JobTimeout, 30*time.Minute)
	setInt(&c.Download.MaxConcurrentJobs, 3)
	setDuration(&c.Download.QueueTimeout, 10*time.Second)

	setString(&c.Mux.FFmpegPath, "ffmpeg")
	setString(&c.Mux.FFprobePath, "ffprobe")
	setString(&c.Mux.AudioCodec, "aac")
	setString(&c.Mux.AudioBitrate, "192k")
	setDuration(&c.Mux.RampInterval, 500*time.Millisecond)

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	setInt(&c.RateLimit.Burst, 10)
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Storage.TempPath) == "" {
		return fmt.Errorf("STORAGE_TEMP_PATH is required")
	}
	if c.Download.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1")
	}
	if c.Download.JobTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_JOB_TIMEOUT must be positive")
	}
	if c.Storage.OrphanMaxAge <= c.Download.JobTimeout {
		return fmt.Errorf("STORAGE_ORPHAN_MAX_AGE (%s) must exceed DOWNLOAD_JOB_TIMEOUT (%s)", c.Storage.OrphanMaxAge, c.Download.JobTimeout)
	}
	if c.Mux.FFmpegPath == "" {
		return fmt.Errorf("FFMPEG_PATH is required")
	}
	if c.Mux.AudioCodec == "" {
		return fmt.Errorf("MUX_AUDIO_CODEC is required")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
