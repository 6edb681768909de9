// Package main provides the docmark CLI, which renders documentation text with
// @{name} references into HTML fragments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/euforicio/docmark/internal/buildinfo"
	"github.com/euforicio/docmark/internal/config"
	"github.com/euforicio/docmark/internal/docmodel"
	"github.com/euforicio/docmark/internal/highlight"
	"github.com/euforicio/docmark/internal/markup"
	"github.com/euforicio/docmark/internal/renderer"
	"github.com/euforicio/docmark/internal/watch"
)

func main() {
	cfg := config.Default()

	if path := configPath(os.Args[1:]); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			slog.Error("load config", slog.Any("err", err))
			os.Exit(1)
		}
	}
	config.ApplyEnvOverrides(&cfg)

	flags := pflag.NewFlagSet("docmark", pflag.ExitOnError)
	config.RegisterFlags(flags, &cfg)
	flags.String("config", "", "YAML configuration file")
	versionFlag := flags.Bool("version", false, "Print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("parse flags", slog.Any("err", err))
		os.Exit(1)
	}
	if *versionFlag {
		fmt.Println(buildinfo.Summary())
		os.Exit(0)
	}
	if err := config.Finalize(&cfg); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	if cfg.Verbose {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	logger = logger.With("app", "docmark")
	slog.SetDefault(logger)
	logger.Info("starting docmark", slog.String("version", buildinfo.Summary()))

	inputs := flags.Args()
	if len(inputs) == 0 {
		logger.Error("no input files")
		os.Exit(2)
	}

	model, err := loadModel(cfg)
	if err != nil {
		logger.Error("load index", slog.Any("err", err))
		os.Exit(1)
	}

	proc, err := newProcessor(cfg, model, logger)
	if err != nil {
		logger.Error("no documentation can be produced", slog.String("format", cfg.Format), slog.Any("err", err))
		os.Exit(1)
	}
	logger.Info("processor ready", slog.String("format", cfg.Format), slog.String("renderer", proc.Renderer()))

	b := &builder{proc: proc, cfg: cfg, logger: logger}
	failed := false
	for _, in := range inputs {
		if err := b.render(in); err != nil {
			logger.Error("render failed", slog.String("file", in), slog.Any("err", err))
			failed = true
		}
	}
	if !cfg.Watch {
		if failed {
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := watch.New(inputs, func(path string) {
		if err := b.render(path); err != nil {
			logger.Error("render failed", slog.String("file", path), slog.Any("err", err))
		}
	}, logger)
	if err != nil {
		logger.Error("watch init failed", slog.Any("err", err))
		return
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.Error("close watcher", slog.Any("err", err))
		}
	}()

	logger.Warn("watching for changes", slog.Int("files", len(inputs)))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watch error", slog.Any("err", err))
	}
}

// configPath finds --config among args without failing on the other flags.
func configPath(args []string) string {
	fs := pflag.NewFlagSet("docmark-config", pflag.ContinueOnError)
	fs.ParseErrorsAllowlist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.String("config", os.Getenv("DOCMARK_CONFIG"), "")
	_ = fs.Parse(args)
	return *path
}

// newProcessor builds the processor for cfg. A format that cannot be loaded is
// reported along with the formats that can.
func newProcessor(cfg config.Config, model markup.Model, logger *slog.Logger) (*markup.Processor, error) {
	reg := renderer.DefaultRegistry()
	proc, err := markup.NewProcessor(markup.Config{
		Format:    cfg.Format,
		Backticks: cfg.BackticksOverride(),
		Package:   cfg.Package,
		Style:     cfg.Style,
		Model:     model,
		Highlighter: highlight.New(highlight.Options{
			Logger:   logger,
			Style:    cfg.Style,
			Language: cfg.Language,
		}),
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		known := append([]string{markup.FormatPlain, markup.FormatBacktick, renderer.Markdown}, reg.Names()...)
		return nil, fmt.Errorf("%w (known formats: %s)", err, strings.Join(known, ", "))
	}
	return proc, nil
}

func loadModel(cfg config.Config) (markup.Model, error) {
	var (
		ix  *docmodel.Index
		err error
	)
	if cfg.Index == "" {
		ix, err = docmodel.Parse(nil)
	} else {
		ix, err = docmodel.Load(cfg.Index)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Module == "" {
		return ix, nil
	}
	return ix.WithCurrent(cfg.Module)
}
