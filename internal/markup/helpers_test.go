package markup_test

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/euforicio/docmark/internal/markup"
)

// fakeModel resolves names from a fixed table and records every lookup.
type fakeModel struct {
	refs  map[string]markup.Reference
	calls []string
}

func newFakeModel(names ...string) *fakeModel {
	m := &fakeModel{refs: make(map[string]markup.Reference)}
	for _, name := range names {
		m.refs[name] = markup.Reference{Qualified: name, Label: name}
	}
	return m
}

func (m *fakeModel) ResolveSeeReference(name string) (markup.Reference, error) {
	m.calls = append(m.calls, name)
	if ref, ok := m.refs[name]; ok {
		return ref, nil
	}
	return markup.Reference{}, fmt.Errorf("%w: %s", markup.ErrNotFound, name)
}

func (m *fakeModel) Href(ref markup.Reference) string {
	mod, item, ok := strings.Cut(ref.Qualified, ".")
	if !ok {
		return strings.ToLower(mod) + ".html"
	}
	return strings.ToLower(mod) + ".html#" + item
}

// recordingItem collects warnings.
type recordingItem struct {
	warnings []string
}

func (r *recordingItem) Warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

// stubHighlighter returns the code unchanged and records each call. Text after
// "//" on a line is treated as a comment token.
type stubHighlighter struct {
	calls []highlightCall
	err   error
}

type highlightCall struct {
	lang, filename, code string
	line                 int
}

func (s *stubHighlighter) Highlight(lang, filename, code string, startLine int, comment func(string) string) (string, error) {
	s.calls = append(s.calls, highlightCall{lang: lang, filename: filename, code: code, line: startLine})
	if s.err != nil {
		return "", s.err
	}
	if comment == nil {
		return code, nil
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if before, after, ok := strings.Cut(line, "//"); ok {
			lines[i] = before + comment("//"+after)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
