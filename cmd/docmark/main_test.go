package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/euforicio/docmark/internal/config"
	"github.com/euforicio/docmark/internal/renderer"
)

func TestNewProcessorReportsRenderer(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	proc, err := newProcessor(cfg, nil, logger)
	if err != nil {
		t.Fatalf("newProcessor returned error: %v", err)
	}
	if proc.Renderer() != renderer.Goldmark {
		t.Fatalf("expected markdown to load goldmark, got %q", proc.Renderer())
	}
}

func TestNewProcessorListsKnownFormats(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.Format = "discount"
	_, err := newProcessor(cfg, nil, logger)
	if !errors.Is(err, renderer.ErrUnknownRenderer) {
		t.Fatalf("expected ErrUnknownRenderer, got %v", err)
	}
	if !strings.Contains(err.Error(), "known formats: plain, backtick, markdown, commonmark, goldmark") {
		t.Fatalf("expected known formats in error, got %v", err)
	}
}
