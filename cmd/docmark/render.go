package main

import (
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/euforicio/docmark/internal/config"
	"github.com/euforicio/docmark/internal/markup"
)

// builder renders input files into cfg.OutDir.
type builder struct {
	proc   *markup.Processor
	cfg    config.Config
	logger *slog.Logger
}

func (b *builder) render(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	text := string(data)
	doc := markup.ScanSections(filepath.Base(path), text)
	doc.SetLogger(b.logger)

	page, err := b.proc.ProcessDocument(doc, text)
	if err != nil {
		return err
	}
	body := page.HTML
	if b.cfg.TOC {
		body = renderTOC(page.Title, doc.TOC()) + body
	}

	if err := os.MkdirAll(b.cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out := filepath.Join(b.cfg.OutDir, outputName(path))
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	b.logger.Info("rendered",
		slog.String("file", path),
		slog.String("output", out),
		slog.String("title", page.Title),
		slog.Int("sections", len(doc.SectionsByLine)),
		slog.Int("warnings", len(doc.Warnings())),
	)
	return nil
}

func outputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".html"
}

// renderTOC lists the sections as links to their anchors, under the document
// title when there is one.
func renderTOC(title string, sections []markup.Section) string {
	if len(sections) == 0 {
		return ""
	}
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "<p class=\"toc-title\">%s</p>\n", html.EscapeString(title))
	}
	b.WriteString("<ul class=\"toc\">\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "<li><a href=\"#%s\">%s</a></li>\n", s.ID, html.EscapeString(s.Title))
	}
	b.WriteString("</ul>\n")
	return b.String()
}
