package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/euforicio/docmark/internal/config"
)

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docmark.yaml")
	data := "format: commonmark\npackage: pl\nstyle: monokai\ntoc: false\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := config.Default()
	if err := config.LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	t.Setenv("DOCMARK_PACKAGE", "penlight")
	t.Setenv("DOCMARK_TOC", "not-a-bool")
	config.ApplyEnvOverrides(&cfg)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs, &cfg)
	if err := fs.Parse([]string{"--style", "dracula", "--backticks", "OFF"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := config.Finalize(&cfg); err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}

	if cfg.Format != "commonmark" {
		t.Fatalf("expected format from file, got %q", cfg.Format)
	}
	if cfg.Package != "penlight" {
		t.Fatalf("expected package from env, got %q", cfg.Package)
	}
	if cfg.Style != "dracula" {
		t.Fatalf("expected style from flags, got %q", cfg.Style)
	}
	if cfg.TOC {
		t.Fatalf("expected invalid env bool to be ignored")
	}
	if v := cfg.BackticksOverride(); v == nil || *v {
		t.Fatalf("expected back-ticks forced off, got %v", v)
	}
	if !filepath.IsAbs(cfg.OutDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.OutDir)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "docmark.yaml")
	if err := os.WriteFile(path, []byte("formatt: plain\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := config.Default()
	if err := config.LoadFile(path, &cfg); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestFinalizeValidates(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Backticks = "sometimes"
	if err := config.Finalize(&cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = config.Default()
	cfg.Format = " "
	if err := config.Finalize(&cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = config.Default()
	cfg.Package = "pl."
	if err := config.Finalize(&cfg); err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if cfg.Package != "pl" {
		t.Fatalf("expected trailing dot trimmed, got %q", cfg.Package)
	}
	if cfg.BackticksOverride() != nil {
		t.Fatalf("expected auto mode to defer to the format")
	}
}
