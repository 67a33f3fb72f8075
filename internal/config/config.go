package config

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/window"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "ai-news-bot"

type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type WindowConfig struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

type Limits struct {
	PerSource    int `yaml:"per_source"`
	Total        int `yaml:"total"`
	ExcerptChars int `yaml:"excerpt_chars"`
}

type Timeouts struct {
	Feed string `yaml:"feed"`
	AI   string `yaml:"ai"`
	Send string `yaml:"send"`
}

type FetchConfig struct {
	Concurrent bool    `yaml:"concurrent"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // "gemini", "claude" or "openai"
	Model    string `yaml:"model"`
}

type PromptConfig struct {
	Language string `yaml:"language"` // "ko" or "en"
}

type TelegramConfig struct {
	ParseMode string `yaml:"parse_mode"`
}

type StateConfig struct {
	Driver string `yaml:"driver"` // "file" or "sqlite"
	Path   string `yaml:"path"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

type Config struct {
	Timezone    string         `yaml:"timezone"`
	Window      WindowConfig   `yaml:"window"`
	MinInterval string         `yaml:"min_interval"`
	Limits      Limits         `yaml:"limits"`
	Timeouts    Timeouts       `yaml:"timeouts"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Sources     []Source       `yaml:"sources"`
	AI          AIConfig       `yaml:"ai"`
	Prompt      PromptConfig   `yaml:"prompt"`
	Telegram    TelegramConfig `yaml:"telegram"`
	State       StateConfig    `yaml:"state"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Schedule    string         `yaml:"schedule"`
	Log         LogConfig      `yaml:"log"`
}

// OperatingWindow returns the configured hours during which dispatch is allowed.
func (c *Config) OperatingWindow() window.Window {
	return window.Window{StartHour: c.Window.StartHour, EndHour: c.Window.EndHour}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) MinIntervalDuration() time.Duration {
	return parseDuration(c.MinInterval, 3*time.Hour)
}

func (c *Config) FeedTimeout() time.Duration { return parseDuration(c.Timeouts.Feed, 15*time.Second) }
func (c *Config) AITimeout() time.Duration   { return parseDuration(c.Timeouts.AI, 60*time.Second) }
func (c *Config) SendTimeout() time.Duration { return parseDuration(c.Timeouts.Send, 15*time.Second) }

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// StatePath returns where the throttle timestamp lives, defaulting to the XDG state dir.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	name := "last_sent.txt"
	if c.State.Driver == "sqlite" {
		name = "state.db"
	}
	return filepath.Join(xdg.StateHome, appName, name)
}

// parseDuration returns the configured duration, or def when s is empty or
// invalid. Load rejects invalid values, so the fallback only serves zero Configs.
func parseDuration(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ParseDuration accepts Go durations plus an "Nd" day syntax.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use e.g. 90m, 3h, 1d)", s)
	}
	return d, nil
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path layered over the embedded defaults.
// A user-supplied sources list replaces the default one.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: embedded defaults are enough to run
			_ = writeDefaults(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if err := validHour(cfg.Window.StartHour); err != nil {
		return fmt.Errorf("window.start_hour: %w", err)
	}
	if err := validHour(cfg.Window.EndHour); err != nil {
		return fmt.Errorf("window.end_hour: %w", err)
	}
	if d, err := ParseDuration(cfg.MinInterval); err != nil {
		return fmt.Errorf("min_interval: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("min_interval must be positive, got %s", cfg.MinInterval)
	}
	for _, t := range []struct{ key, val string }{
		{"timeouts.feed", cfg.Timeouts.Feed},
		{"timeouts.ai", cfg.Timeouts.AI},
		{"timeouts.send", cfg.Timeouts.Send},
	} {
		d, err := ParseDuration(t.val)
		if err != nil {
			return fmt.Errorf("%s: %w", t.key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", t.key, t.val)
		}
	}
	if cfg.Limits.PerSource <= 0 || cfg.Limits.Total <= 0 || cfg.Limits.ExcerptChars <= 0 {
		return fmt.Errorf("limits must be positive (per_source=%d total=%d excerpt_chars=%d)",
			cfg.Limits.PerSource, cfg.Limits.Total, cfg.Limits.ExcerptChars)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
		}
	}
	switch cfg.AI.Provider {
	case "gemini", "claude", "openai":
	default:
		return fmt.Errorf("unknown ai provider %q (valid: gemini, claude, openai)", cfg.AI.Provider)
	}
	switch cfg.State.Driver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown state driver %q (valid: file, sqlite)", cfg.State.Driver)
	}
	switch cfg.Telegram.ParseMode {
	case "", "Markdown", "MarkdownV2", "HTML":
	default:
		return fmt.Errorf("unknown telegram parse_mode %q (valid: empty, Markdown, MarkdownV2, HTML)", cfg.Telegram.ParseMode)
	}
	switch strings.ToLower(cfg.Prompt.Language) {
	case "ko", "en":
	default:
		return fmt.Errorf("unknown prompt language %q (valid: ko, en)", cfg.Prompt.Language)
	}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
	}
	return nil
}

func validHour(h int) error {
	if h < 0 || h > 23 {
		return fmt.Errorf("hour %d out of range 0-23", h)
	}
	return nil
}
