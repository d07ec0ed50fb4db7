// Package config loads agentctl settings from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"

	"github.com/axondata/go-launchagent"
)

// FileName is the config file name inside the agentctl config directory
const FileName = "config.toml"

// Config holds the resolved agentctl settings
type Config struct {
	AgentsDir     string
	PollInterval  time.Duration
	WatchDebounce time.Duration
	ShowAll       bool
	TailLines     int
	LogLevel      string
	JournalPath   string
	MetricsAddr   string
	Concurrency   int
	// Groups maps label prefixes to custom group names
	Groups map[string]string
}

type fileConfig struct {
	AgentsDir     string            `toml:"agents_dir"`
	PollInterval  string            `toml:"poll_interval"`
	WatchDebounce string            `toml:"watch_debounce"`
	ShowAll       bool              `toml:"show_all"`
	TailLines     int               `toml:"tail_lines"`
	LogLevel      string            `toml:"log_level"`
	JournalPath   string            `toml:"journal_path"`
	MetricsAddr   string            `toml:"metrics_addr"`
	Concurrency   int               `toml:"concurrency"`
	Groups        map[string]string `toml:"groups"`
}

// Default returns the built-in settings for the current user
func Default() Config {
	agentsDir, err := launchagent.DefaultAgentsDir()
	if err != nil {
		agentsDir = launchagent.AgentsSubdir
	}
	return Config{
		AgentsDir:     agentsDir,
		PollInterval:  launchagent.DefaultPollInterval,
		WatchDebounce: launchagent.DefaultWatchDebounce,
		TailLines:     launchagent.DefaultTailLines,
		LogLevel:      "info",
		Concurrency:   launchagent.DefaultConcurrency,
		Groups:        map[string]string{},
	}
}

// Dir returns $XDG_CONFIG_HOME/agentctl, or ~/.config/agentctl
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentctl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "agentctl"), nil
}

// DefaultPath returns the default config file path
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("agents_dir") {
		cfg.AgentsDir = expandHome(strings.TrimSpace(raw.AgentsDir))
	}

	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("poll_interval must be positive, got %s", d)
		}
		cfg.PollInterval = d
	}

	if meta.IsDefined("watch_debounce") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WatchDebounce))
		if err != nil {
			return Config{}, fmt.Errorf("parse watch_debounce: %w", err)
		}
		cfg.WatchDebounce = d
	}

	if meta.IsDefined("show_all") {
		cfg.ShowAll = raw.ShowAll
	}

	if meta.IsDefined("tail_lines") {
		if raw.TailLines <= 0 {
			return Config{}, fmt.Errorf("tail_lines must be positive, got %d", raw.TailLines)
		}
		cfg.TailLines = raw.TailLines
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("journal_path") {
		cfg.JournalPath = expandHome(strings.TrimSpace(raw.JournalPath))
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("concurrency") {
		cfg.Concurrency = raw.Concurrency
	}

	if meta.IsDefined("groups") {
		for prefix, name := range raw.Groups {
			prefix, name = strings.TrimSpace(prefix), strings.TrimSpace(name)
			if prefix == "" || name == "" {
				continue
			}
			cfg.Groups[prefix] = name
		}
	}

	return cfg, nil
}

// Grouper returns a launchagent.Grouper with the configured prefixes registered
func (c Config) Grouper() *launchagent.Grouper {
	g := launchagent.NewGrouper()
	for prefix, name := range c.Groups {
		g.RegisterPrefix(prefix, name)
	}
	return g
}

// Save writes c to path atomically, creating the parent directory
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw := fileConfig{
		AgentsDir:     c.AgentsDir,
		PollInterval:  c.PollInterval.String(),
		WatchDebounce: c.WatchDebounce.String(),
		ShowAll:       c.ShowAll,
		TailLines:     c.TailLines,
		LogLevel:      c.LogLevel,
		JournalPath:   c.JournalPath,
		MetricsAddr:   c.MetricsAddr,
		Concurrency:   c.Concurrency,
		Groups:        c.Groups,
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
