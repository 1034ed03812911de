// Package config loads shootingboard settings from shootingboard.yaml or
// shootingboard.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/poku-e/shootingboard/internal/chartset"
	"github.com/poku-e/shootingboard/internal/render"
	"github.com/poku-e/shootingboard/internal/scores"
)

// FileNames are tried in order by Load.
var FileNames = []string{"shootingboard.yaml", "shootingboard.yml", "shootingboard.toml"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config validation failed")

// Defaults used when a field is unset.
const (
	DefaultAddr   = "127.0.0.1:8080"
	DefaultData   = "shootingboard.json"
	DefaultWidth  = 800
	DefaultHeight = 400
)

// Config is the on-disk configuration. Zero fields fall back to defaults.
type Config struct {
	Addr         string                `yaml:"addr,omitempty" toml:"addr"`
	Data         string                `yaml:"data,omitempty" toml:"data"`
	Database     string                `yaml:"database,omitempty" toml:"database"`
	InitialEvent string                `yaml:"initial_event,omitempty" toml:"initial_event"`
	Chart        ChartConfig           `yaml:"chart,omitempty" toml:"chart"`
	Styles       map[string]GroupStyle `yaml:"styles,omitempty" toml:"styles"`
	Markers      []chartset.Marker     `yaml:"markers,omitempty" toml:"markers"`
}

// ChartConfig sizes rendered images.
type ChartConfig struct {
	Width  int    `yaml:"width,omitempty" toml:"width"`
	Height int    `yaml:"height,omitempty" toml:"height"`
	Format string `yaml:"format,omitempty" toml:"format"`
}

// GroupStyle overrides the colors of one series group.
type GroupStyle struct {
	Color string `yaml:"color" toml:"color"`
	Fill  string `yaml:"fill,omitempty" toml:"fill"`
}

// Load reads the first of FileNames found in dir.
// If none exists, it returns a zero-value Config and nil error.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return cfg, nil
	}
	return &Config{}, nil
}

// LoadFile reads path, picking the decoder by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user config path
	if err != nil {
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return &cfg, nil
}

// WithDefaults returns a copy with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Data == "" {
		c.Data = DefaultData
	}
	if c.InitialEvent == "" {
		c.InitialEvent = scores.TargetEvents[0]
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = DefaultWidth
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = DefaultHeight
	}
	if c.Chart.Format == "" {
		c.Chart.Format = string(render.PNG)
	}
	return c
}

// StyleTable is chartset.DefaultStyles with the configured overrides.
func (c Config) StyleTable() chartset.StyleTable {
	out := chartset.StyleTable{}
	for g, s := range chartset.DefaultStyles {
		out[g] = s
	}
	for name, s := range c.Styles {
		fill := s.Fill
		if fill == "" {
			fill = chartset.Translucent(s.Color, "0.2")
		}
		out[chartset.Group(name)] = chartset.Style{Color: s.Color, Fill: fill}
	}
	return out
}

// MarkerTable returns the configured markers, or chartset.DefaultMarkers.
func (c Config) MarkerTable() chartset.MarkerTable {
	if len(c.Markers) == 0 {
		return chartset.DefaultMarkers
	}
	return chartset.MarkerTable(c.Markers)
}

var groups = map[chartset.Group]bool{
	chartset.GroupMale:   true,
	chartset.GroupFemale: true,
	chartset.GroupMixed:  true,
}

// Validate checks all fields in the config and returns all errors at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Chart.Width < 0 || cfg.Chart.Width > 4096 {
		errs = append(errs, fmt.Sprintf("chart.width: must be between 0 and 4096, got %d", cfg.Chart.Width))
	}
	if cfg.Chart.Height < 0 || cfg.Chart.Height > 4096 {
		errs = append(errs, fmt.Sprintf("chart.height: must be between 0 and 4096, got %d", cfg.Chart.Height))
	}
	if f := strings.ToLower(cfg.Chart.Format); f != "" && f != string(render.PNG) && f != string(render.SVG) {
		errs = append(errs, fmt.Sprintf("chart.format: invalid value %q (must be png or svg)", cfg.Chart.Format))
	}
	if cfg.InitialEvent != "" && !contains(scores.TargetEvents, cfg.InitialEvent) {
		errs = append(errs, fmt.Sprintf("initial_event: unknown event %q", cfg.InitialEvent))
	}
	for name, s := range cfg.Styles {
		if !groups[chartset.Group(name)] {
			errs = append(errs, fmt.Sprintf("styles.%s: unknown group", name))
		}
		if s.Color == "" {
			errs = append(errs, fmt.Sprintf("styles.%s.color: must be set", name))
		} else if _, ok := chartset.ParseColor(s.Color); !ok {
			errs = append(errs, fmt.Sprintf("styles.%s.color: unreadable color %q (use #rrggbb, rgb() or rgba())", name, s.Color))
		}
		if _, ok := chartset.ParseColor(s.Fill); s.Fill != "" && !ok {
			errs = append(errs, fmt.Sprintf("styles.%s.fill: unreadable color %q (use #rrggbb, rgb() or rgba())", name, s.Fill))
		}
	}
	for i, m := range cfg.Markers {
		if m.Token == "" {
			errs = append(errs, fmt.Sprintf("markers[%d].token: must be set", i))
		}
		if !groups[m.Group] {
			errs = append(errs, fmt.Sprintf("markers[%d].group: unknown group %q", i, m.Group))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(errs, "\n  "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
