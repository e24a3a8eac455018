// Package config provides configuration management for the Heimdex trim agent.
// Configuration is layered: built-in defaults, an optional YAML file, then
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".heimdex-trim"
	DefaultMediaDir = "Movies"
	DefaultFFmpeg   = "ffmpeg"
	DefaultFFprobe  = "ffprobe"

	DefaultTrimTimeout      = 10 * time.Minute
	DefaultThumbnailTimeout = 30 * time.Second
	DefaultThumbnailPause   = 100 * time.Millisecond

	// Environment variable names
	EnvConfigFile       = "HEIMDEX_TRIM_CONFIG"
	EnvPort             = "HEIMDEX_TRIM_PORT"
	EnvLogLevel         = "HEIMDEX_TRIM_LOG_LEVEL"
	EnvDataDir          = "HEIMDEX_TRIM_DATA_DIR"
	EnvMediaDir         = "HEIMDEX_TRIM_MEDIA_DIR"
	EnvFFmpeg           = "HEIMDEX_TRIM_FFMPEG"
	EnvFFprobe          = "HEIMDEX_TRIM_FFPROBE"
	EnvTrimTimeout      = "HEIMDEX_TRIM_TRIM_TIMEOUT"
	EnvThumbnailTimeout = "HEIMDEX_TRIM_THUMBNAIL_TIMEOUT"
	EnvThumbnailPause   = "HEIMDEX_TRIM_THUMBNAIL_PAUSE"
	EnvHeadless         = "HEIMDEX_TRIM_HEADLESS"

	DBFilename     = "heimdex-trim.db"
	ConfigFilename = "config.yaml"
	LogFilename    = "heimdex-trim.log"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	CacheDir() string
	ThumbnailDir() string
	LogPath() string
	MediaDir() string
	FFmpegPath() string
	FFprobePath() string
	TrimTimeout() time.Duration
	ThumbnailTimeout() time.Duration
	ThumbnailPause() time.Duration
	Headless() bool
}

// fileConfig mirrors the YAML file layout. Durations use Go syntax ("90s", "10m").
type fileConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	MediaDir string `yaml:"media_dir"`
	Headless *bool  `yaml:"headless"`
	FFmpeg   struct {
		Binary           string `yaml:"binary"`
		Probe            string `yaml:"probe"`
		TrimTimeout      string `yaml:"trim_timeout"`
		ThumbnailTimeout string `yaml:"thumbnail_timeout"`
		ThumbnailPause   string `yaml:"thumbnail_pause"`
	} `yaml:"ffmpeg"`
}

// EnvConfig reads configuration from a YAML file and environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	mediaDir string
	headless bool

	ffmpegPath       string
	ffprobePath      string
	trimTimeout      time.Duration
	thumbnailTimeout time.Duration
	thumbnailPause   time.Duration
}

// New creates a new EnvConfig with defaults, file values and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		mediaDir:         defaultMediaDir(),
		ffmpegPath:       DefaultFFmpeg,
		ffprobePath:      DefaultFFprobe,
		trimTimeout:      DefaultTrimTimeout,
		thumbnailTimeout: DefaultThumbnailTimeout,
		thumbnailPause:   DefaultThumbnailPause,
	}

	// The data dir decides where the default config file lives.
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	path := os.Getenv(EnvConfigFile)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.dataDir, ConfigFilename)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		if err := validPort(fc.Port); err != nil {
			return fmt.Errorf("invalid port in %s: %w", path, err)
		}
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.MediaDir != "" {
		c.mediaDir = fc.MediaDir
	}
	if fc.Headless != nil {
		c.headless = *fc.Headless
	}
	if fc.FFmpeg.Binary != "" {
		c.ffmpegPath = fc.FFmpeg.Binary
	}
	if fc.FFmpeg.Probe != "" {
		c.ffprobePath = fc.FFmpeg.Probe
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"ffmpeg.trim_timeout", fc.FFmpeg.TrimTimeout, &c.trimTimeout},
		{"ffmpeg.thumbnail_timeout", fc.FFmpeg.ThumbnailTimeout, &c.thumbnailTimeout},
		{"ffmpeg.thumbnail_pause", fc.FFmpeg.ThumbnailPause, &c.thumbnailPause},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := parseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.name, path, err)
		}
		*d.dst = parsed
	}

	return nil
}

func (c *EnvConfig) applyEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if err := validPort(port); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if md := os.Getenv(EnvMediaDir); md != "" {
		c.mediaDir = md
	}
	if fp := os.Getenv(EnvFFmpeg); fp != "" {
		c.ffmpegPath = fp
	}
	if fp := os.Getenv(EnvFFprobe); fp != "" {
		c.ffprobePath = fp
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvTrimTimeout, &c.trimTimeout},
		{EnvThumbnailTimeout, &c.thumbnailTimeout},
		{EnvThumbnailPause, &c.thumbnailPause},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// CacheDir returns the directory trimmed outputs are written to
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "cache")
}

// ThumbnailDir returns the scratch directory regenerated for every loaded video
func (c *EnvConfig) ThumbnailDir() string {
	return filepath.Join(c.CacheDir(), "thumbnails")
}

// LogPath returns the log file used when stdout belongs to the terminal UI
func (c *EnvConfig) LogPath() string {
	return filepath.Join(c.dataDir, LogFilename)
}

// MediaDir returns the media library directory videos are picked from
func (c *EnvConfig) MediaDir() string {
	return c.mediaDir
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) TrimTimeout() time.Duration {
	return c.trimTimeout
}

func (c *EnvConfig) ThumbnailTimeout() time.Duration {
	return c.thumbnailTimeout
}

func (c *EnvConfig) ThumbnailPause() time.Duration {
	return c.thumbnailPause
}

// Headless disables the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// parseDuration accepts Go duration strings and bare integers (seconds).
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("duration must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func defaultMediaDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultMediaDir
	}
	return filepath.Join(home, DefaultMediaDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
