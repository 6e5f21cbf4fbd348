// Package config loads the buildlog configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the configuration stored in config.toml.
type Config struct {
	Output  OutputConfig  `toml:"output"`
	Watch   WatchConfig   `toml:"watch"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
}

// OutputConfig controls how diagnoses are rendered.
type OutputConfig struct {
	// JSON switches the default output format to the JSON envelope.
	JSON bool `toml:"json"`

	// ContextLines is the number of log lines shown around a matched line.
	// Defaults to 2 when not specified.
	ContextLines *int `toml:"context_lines"`

	// Color controls ANSI styling of highlighted matches.
	// Defaults to true when not specified.
	Color *bool `toml:"color"`

	// WrapWidth is the column problem descriptions are wrapped to.
	// Defaults to 100 when not specified.
	WrapWidth *int `toml:"wrap_width"`
}

// GetContextLines returns the configured highlight context or 2 if not set.
func (o *OutputConfig) GetContextLines() int {
	if o.ContextLines == nil || *o.ContextLines < 0 {
		return 2
	}
	return *o.ContextLines
}

// ShouldColor returns true if output should carry ANSI styling.
// Defaults to true when not explicitly configured.
func (o *OutputConfig) ShouldColor() bool {
	if o.Color == nil {
		return true
	}
	return *o.Color
}

// GetWrapWidth returns the configured wrap width or 100 if not set.
func (o *OutputConfig) GetWrapWidth() int {
	if o.WrapWidth == nil || *o.WrapWidth <= 0 {
		return 100
	}
	return *o.WrapWidth
}

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	// Patterns restricts which file names are classified.
	// Defaults to ["*.log"] when not specified.
	Patterns []string `toml:"patterns"`

	// DedupeSeconds is how long a (path, size) pair suppresses repeat
	// classification of the same file. Defaults to 30 seconds.
	DedupeSeconds *int `toml:"dedupe_seconds"`

	// SettleMillis is how long a file must be quiet before it is read.
	// Writers append logs in bursts; classifying mid-burst wastes work.
	// Defaults to 500 milliseconds.
	SettleMillis *int `toml:"settle_millis"`
}

// GetPatterns returns the configured file patterns or ["*.log"] if not set.
func (w *WatchConfig) GetPatterns() []string {
	if len(w.Patterns) == 0 {
		return []string{"*.log"}
	}
	return w.Patterns
}

// GetDedupeTTL returns the de-duplication window.
// Defaults to 30 seconds when not specified.
func (w *WatchConfig) GetDedupeTTL() time.Duration {
	if w.DedupeSeconds != nil && *w.DedupeSeconds > 0 {
		return time.Duration(*w.DedupeSeconds) * time.Second
	}
	return 30 * time.Second
}

// GetSettleDelay returns how long a file must be quiet before reading.
// Defaults to 500 milliseconds when not specified.
func (w *WatchConfig) GetSettleDelay() time.Duration {
	if w.SettleMillis != nil && *w.SettleMillis > 0 {
		return time.Duration(*w.SettleMillis) * time.Millisecond
	}
	return 500 * time.Millisecond
}

// HistoryConfig controls the diagnosis store.
type HistoryConfig struct {
	// Path is the SQLite database file. Defaults to
	// ~/.local/share/buildlog/history.db when not specified.
	Path string `toml:"path"`

	// Enabled controls whether diagnoses are recorded at all.
	// Defaults to true when not specified.
	Enabled *bool `toml:"enabled"`
}

// GetPath returns the configured database path or the default location.
func (h *HistoryConfig) GetPath() string {
	if h.Path != "" {
		return h.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "buildlog-history.db"
	}
	return filepath.Join(home, ".local", "share", "buildlog", "history.db")
}

// IsEnabled returns true if diagnoses should be recorded.
// Defaults to true when not explicitly configured.
func (h *HistoryConfig) IsEnabled() bool {
	if h.Enabled == nil {
		return true
	}
	return *h.Enabled
}

// LogConfig controls the debug log.
type LogConfig struct {
	// Path is the debug log file. Empty disables debug logging.
	Path string `toml:"path"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "buildlog", "config.toml")
}

// Load reads and parses a config.toml file. A missing file at the default
// location is not an error; flags and defaults cover everything.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
