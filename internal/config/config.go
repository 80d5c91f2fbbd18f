// Package config loads signstream settings from a YAML file, SIGNSTREAM_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. SIGNSTREAM_SERVER_ADDR.
const EnvPrefix = "SIGNSTREAM"

// Speech modes.
const (
	SpeechNone    = "none"
	SpeechHTTP    = "http"
	SpeechCommand = "command"
)

// Detector modes.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Camera     CameraConfig     `mapstructure:"camera" yaml:"camera"`
	Detector   DetectorConfig   `mapstructure:"detector" yaml:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	Speech     SpeechConfig     `mapstructure:"speech" yaml:"speech"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
}

type ServerConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	WebDir string `mapstructure:"web_dir" yaml:"web_dir"`
	Tray   bool   `mapstructure:"tray" yaml:"tray"`
	// AllowedOrigins are extra browser origins for the WebSocket.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type CameraConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	DeviceID        int           `mapstructure:"device_id" yaml:"device_id"`
	Width           int           `mapstructure:"width" yaml:"width"`
	Height          int           `mapstructure:"height" yaml:"height"`
	FPS             int           `mapstructure:"fps" yaml:"fps"`
	IdleFPS         int           `mapstructure:"idle_fps" yaml:"idle_fps"`
	MotionThreshold float64       `mapstructure:"motion_threshold" yaml:"motion_threshold"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

type DetectorConfig struct {
	Mode            string  `mapstructure:"mode" yaml:"mode"`
	ScriptPath      string  `mapstructure:"script_path" yaml:"script_path"`
	MaxHands        int     `mapstructure:"max_hands" yaml:"max_hands"`
	MinConfidence   float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinTrackingConf float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`
	Mirror          bool    `mapstructure:"mirror" yaml:"mirror"`
}

type ClassifierConfig struct {
	// URL of the sign model service. Empty selects the local template classifier.
	URL         string        `mapstructure:"url" yaml:"url"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LoadOnStart bool          `mapstructure:"load_on_start" yaml:"load_on_start"`
}

type PipelineConfig struct {
	UserID        string        `mapstructure:"user_id" yaml:"user_id"`
	WindowSize    int           `mapstructure:"window_size" yaml:"window_size"`
	MinConfidence float64       `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinInterval   time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	HistorySize   int           `mapstructure:"history_size" yaml:"history_size"`
}

type SpeechConfig struct {
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	URL          string        `mapstructure:"url" yaml:"url"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	Command      string        `mapstructure:"command" yaml:"command"`
	Player       string        `mapstructure:"player" yaml:"player"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	VoiceID      string        `mapstructure:"voice_id" yaml:"voice_id"`
	Volume       int           `mapstructure:"volume" yaml:"volume"`
	Rate         float64       `mapstructure:"rate" yaml:"rate"`
	AutoSpeak    bool          `mapstructure:"auto_speak" yaml:"auto_speak"`
	AudioEnabled bool          `mapstructure:"audio_enabled" yaml:"audio_enabled"`
}

type StoreConfig struct {
	Path              string `mapstructure:"path" yaml:"path"`
	RetentionSchedule string `mapstructure:"retention_schedule" yaml:"retention_schedule"`
	RetentionDays     int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// Dir returns ~/.signstream.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".signstream"), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.web_dir", "web")
	v.SetDefault("server.tray", false)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("camera.enabled", true)
	v.SetDefault("camera.device_id", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 15)
	v.SetDefault("camera.idle_fps", 5)
	v.SetDefault("camera.motion_threshold", 1.0)
	v.SetDefault("camera.idle_timeout", 2*time.Second)

	v.SetDefault("detector.mode", DetectorMediaPipe)
	v.SetDefault("detector.script_path", "")
	v.SetDefault("detector.max_hands", 2)
	v.SetDefault("detector.min_confidence", 0.7)
	v.SetDefault("detector.min_tracking_confidence", 0.7)
	v.SetDefault("detector.mirror", true)

	v.SetDefault("classifier.url", "")
	v.SetDefault("classifier.timeout", 5*time.Second)
	v.SetDefault("classifier.load_on_start", true)

	v.SetDefault("pipeline.user_id", "local")
	v.SetDefault("pipeline.window_size", 3)
	v.SetDefault("pipeline.min_confidence", 0.75)
	v.SetDefault("pipeline.min_interval", 2000*time.Millisecond)
	v.SetDefault("pipeline.history_size", 10)

	v.SetDefault("speech.mode", SpeechNone)
	v.SetDefault("speech.url", "")
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.command", "")
	v.SetDefault("speech.player", "")
	v.SetDefault("speech.timeout", 30*time.Second)
	v.SetDefault("speech.voice_id", "Matthew")
	v.SetDefault("speech.volume", 75)
	v.SetDefault("speech.rate", 1.0)
	v.SetDefault("speech.auto_speak", true)
	v.SetDefault("speech.audio_enabled", true)

	v.SetDefault("store.path", filepath.Join(dir, "signstream.db"))
	v.SetDefault("store.retention_schedule", "0 3 * * *")
	v.SetDefault("store.retention_days", 30)
}

// Load reads the configuration. An empty path looks for config.yaml in
// ~/.signstream and carries on with defaults when there is none; an explicit
// path must exist. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Classifier.URL = strings.TrimRight(strings.TrimSpace(cfg.Classifier.URL), "/")
	cfg.Speech.Mode = strings.ToLower(strings.TrimSpace(cfg.Speech.Mode))
	cfg.Detector.Mode = strings.ToLower(strings.TrimSpace(cfg.Detector.Mode))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and mode-specific requirements.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Camera.FPS <= 0 || c.Camera.IdleFPS <= 0 {
		return fmt.Errorf("camera.fps and camera.idle_fps must be positive")
	}
	if c.Camera.IdleFPS > c.Camera.FPS {
		return fmt.Errorf("camera.idle_fps (%d) must not exceed camera.fps (%d)", c.Camera.IdleFPS, c.Camera.FPS)
	}
	switch c.Detector.Mode {
	case DetectorMediaPipe, DetectorMock:
	default:
		return fmt.Errorf("detector.mode must be %q or %q, got %q", DetectorMediaPipe, DetectorMock, c.Detector.Mode)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive")
	}
	if c.Pipeline.WindowSize < 1 {
		return fmt.Errorf("pipeline.window_size must be at least 1")
	}
	if c.Pipeline.MinConfidence < 0 || c.Pipeline.MinConfidence >= 1 {
		return fmt.Errorf("pipeline.min_confidence must be in [0, 1)")
	}
	if c.Pipeline.MinInterval < 0 {
		return fmt.Errorf("pipeline.min_interval must not be negative")
	}
	if c.Pipeline.HistorySize < 1 {
		return fmt.Errorf("pipeline.history_size must be at least 1")
	}
	switch c.Speech.Mode {
	case SpeechNone:
	case SpeechHTTP:
		if c.Speech.URL == "" {
			return fmt.Errorf("speech.url is required when speech.mode is %q", SpeechHTTP)
		}
	case SpeechCommand:
		if c.Speech.Command == "" {
			return fmt.Errorf("speech.command is required when speech.mode is %q", SpeechCommand)
		}
	default:
		return fmt.Errorf("unknown speech.mode %q", c.Speech.Mode)
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 100 {
		return fmt.Errorf("speech.volume must be in [0, 100]")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("store.retention_days must not be negative")
	}
	return nil
}
