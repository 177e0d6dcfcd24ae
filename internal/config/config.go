package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tunevault/tunevault/internal/watch"
)

const (
	configDir  = ".config/tunevault"
	configFile = "config.yml"

	defaultUserAgent    = "tunevault/1.0"
	defaultHTTPTimeout  = 60
	defaultSweepHours   = 24
	defaultSweepDelay   = 5
	defaultWatchMinutes = 360
)

type Config struct {
	MusicFolder                    string      `yaml:"music_folder"`
	DownloadOldestFirst            bool        `yaml:"download_oldest_first"`
	DownloadThreads                ThreadCount `yaml:"download_threads"`
	RemoveStaleMusicFilesAfterDays int         `yaml:"remove_stale_music_files_after_days"`
	WatchIntervalMinutes           int         `yaml:"watch_interval_minutes"`
	SweepIntervalHours             int         `yaml:"sweep_interval_hours"`
	SweepInitialDelayMinutes       int         `yaml:"sweep_initial_delay_minutes"`
	UserAgent                      string      `yaml:"user_agent"`
	HTTPTimeoutSeconds             int         `yaml:"http_timeout_seconds"`
	Watches                        []string    `yaml:"watches"`
}

// ThreadCount is a worker-pool size: either an explicit positive integer or
// "auto", which resolves to the number of available execution units.
type ThreadCount struct {
	count int
	auto  bool
}

func Auto() ThreadCount          { return ThreadCount{auto: true} }
func Fixed(n int) ThreadCount    { return ThreadCount{count: n} }
func (t ThreadCount) Auto() bool { return t.auto }

// Resolve returns the effective worker count.
func (t ThreadCount) Resolve() int {
	if t.auto || t.count <= 0 {
		return runtime.NumCPU()
	}
	return t.count
}

func (t *ThreadCount) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" || strings.EqualFold(raw, "auto") {
		*t = ThreadCount{auto: true}
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fmt.Errorf("download_threads must be a positive integer or \"auto\", got %q", raw)
	}
	*t = ThreadCount{count: n}
	return nil
}

func (t ThreadCount) MarshalYAML() (interface{}, error) {
	if t.auto {
		return "auto", nil
	}
	return t.count, nil
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir, configFile), nil
}

// Load reads and validates the configuration file at path. An empty path
// falls back to ~/.config/tunevault/config.yml.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		DownloadThreads:          Auto(),
		WatchIntervalMinutes:     defaultWatchMinutes,
		SweepIntervalHours:       defaultSweepHours,
		SweepInitialDelayMinutes: defaultSweepDelay,
		UserAgent:                defaultUserAgent,
		HTTPTimeoutSeconds:       defaultHTTPTimeout,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MusicFolder == "" {
		return fmt.Errorf("music_folder is required")
	}
	if c.RemoveStaleMusicFilesAfterDays < 0 {
		return fmt.Errorf("remove_stale_music_files_after_days must not be negative")
	}
	if c.WatchIntervalMinutes <= 0 {
		return fmt.Errorf("watch_interval_minutes must be positive")
	}
	if c.SweepIntervalHours <= 0 {
		return fmt.Errorf("sweep_interval_hours must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http_timeout_seconds must be positive")
	}
	if _, err := c.ActiveWatches(); err != nil {
		return err
	}
	return nil
}

// StaleSweepEnabled reports whether the stale-file collector should run at
// all: a zero retention disables it.
func (c *Config) StaleSweepEnabled() bool {
	return c.RemoveStaleMusicFilesAfterDays > 0
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) SweepPeriod() time.Duration {
	return time.Duration(c.SweepIntervalHours) * time.Hour
}

func (c *Config) SweepInitialDelay() time.Duration {
	return time.Duration(c.SweepInitialDelayMinutes) * time.Minute
}

// ActiveWatches parses the configured watch identifiers.
func (c *Config) ActiveWatches() ([]watch.Watch, error) {
	watches := make([]watch.Watch, 0, len(c.Watches))
	for _, s := range c.Watches {
		w, err := watch.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid watches entry: %w", err)
		}
		watches = append(watches, w)
	}
	return watches, nil
}
