// Package config manages docmark configuration from a YAML file, environment
// variables and flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
)

const envPrefix = "DOCMARK_"

// Back-tick reference modes.
const (
	BackticksAuto = "auto"
	BackticksOn   = "on"
	BackticksOff  = "off"
)

// ErrInvalidConfig is returned by Finalize for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime configuration for the docmark CLI.
type Config struct {
	// Format is "plain", "backtick", or a renderer name.
	Format string `yaml:"format"`
	// Backticks is one of auto, on, off.
	Backticks string `yaml:"backticks"`
	// Package is the global lookup prefix for references.
	Package string `yaml:"package"`
	// Module is the index module unqualified names are resolved in first.
	Module   string `yaml:"module"`
	Index    string `yaml:"index"`
	Style    string `yaml:"style"`
	Language string `yaml:"language"`
	OutDir   string `yaml:"out"`
	TOC      bool   `yaml:"toc"`
	Watch    bool   `yaml:"watch"`
	Verbose  bool   `yaml:"verbose"`
}

// Default returns ready-to-use defaults prior to file/env/flag overrides.
func Default() Config {
	return Config{
		Format:    "markdown",
		Backticks: BackticksAuto,
		Style:     "github-dark",
		OutDir:    "docs",
		TOC:       true,
	}
}

// LoadFile overlays the settings in a YAML file onto cfg. Unknown keys are
// rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// RegisterFlags attaches configuration flags to the provided FlagSet.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Format, "format", "f", cfg.Format, "output format: plain, backtick, or a renderer (markdown, goldmark, commonmark)")
	fs.StringVar(&cfg.Backticks, "backticks", cfg.Backticks, "treat `name` spans as references: auto, on, off")
	fs.StringVarP(&cfg.Package, "package", "p", cfg.Package, "global prefix tried when resolving unqualified names")
	fs.StringVarP(&cfg.Module, "module", "m", cfg.Module, "index module searched first for unqualified names")
	fs.StringVarP(&cfg.Index, "index", "i", cfg.Index, "YAML index of documented modules")
	fs.StringVar(&cfg.Style, "style", cfg.Style, "chroma style for highlighted code")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "default language for indented code blocks")
	fs.StringVarP(&cfg.OutDir, "out", "o", cfg.OutDir, "output directory for rendered fragments")
	fs.BoolVar(&cfg.TOC, "toc", cfg.TOC, "prefix each fragment with a table of contents")
	fs.BoolVarP(&cfg.Watch, "watch", "w", cfg.Watch, "re-render inputs when they change")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging")
}

// ApplyEnvOverrides reads supported environment variables and overrides cfg in place.
func ApplyEnvOverrides(cfg *Config) {
	applyStringEnv("FORMAT", func(v string) { cfg.Format = v })
	applyStringEnv("BACKTICKS", func(v string) { cfg.Backticks = v })
	applyStringEnv("PACKAGE", func(v string) { cfg.Package = v })
	applyStringEnv("MODULE", func(v string) { cfg.Module = v })
	applyStringEnv("INDEX", func(v string) { cfg.Index = v })
	applyStringEnv("STYLE", func(v string) { cfg.Style = v })
	applyStringEnv("LANG", func(v string) { cfg.Language = v })
	applyStringEnv("OUT", func(v string) { cfg.OutDir = v })
	applyBoolEnv("TOC", func(v bool) { cfg.TOC = v })
	applyBoolEnv("WATCH", func(v bool) { cfg.Watch = v })
	applyBoolEnv("VERBOSE", func(v bool) { cfg.Verbose = v })
}

func applyStringEnv(key string, apply func(string)) {
	if raw, ok := lookupNonEmpty(key); ok {
		apply(raw)
	}
}

func applyBoolEnv(key string, apply func(bool)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			apply(value)
		}
	}
}

func lookupNonEmpty(key string) (string, bool) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// Finalize validates and normalizes cfg.
func Finalize(cfg *Config) error {
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		return fmt.Errorf("%w: format is required", ErrInvalidConfig)
	}

	cfg.Backticks = strings.ToLower(strings.TrimSpace(cfg.Backticks))
	switch cfg.Backticks {
	case "":
		cfg.Backticks = BackticksAuto
	case BackticksAuto, BackticksOn, BackticksOff:
	default:
		return fmt.Errorf("%w: backticks must be auto, on or off, got %q", ErrInvalidConfig, cfg.Backticks)
	}

	cfg.Package = strings.Trim(strings.TrimSpace(cfg.Package), ".")

	if cfg.OutDir == "" {
		cfg.OutDir = "docs"
	}
	out, err := filepath.Abs(cfg.OutDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	cfg.OutDir = out

	if cfg.Index != "" {
		index, err := filepath.Abs(cfg.Index)
		if err != nil {
			return fmt.Errorf("resolve index: %w", err)
		}
		cfg.Index = index
	}
	return nil
}

// BackticksOverride converts the Backticks mode to the tri-state the
// processor expects: nil means the format decides.
func (c Config) BackticksOverride() *bool {
	var v bool
	switch c.Backticks {
	case BackticksOn:
		v = true
	case BackticksOff:
		v = false
	default:
		return nil
	}
	return &v
}
