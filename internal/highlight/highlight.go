// Package highlight renders code blocks as chroma-classed HTML spans.
package highlight

import (
	"errors"
	"fmt"
	stdhtml "html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "github-dark"

// ErrEmptyCode is returned when there is nothing to highlight.
var ErrEmptyCode = errors.New("empty code block")

// Options configure a Highlighter.
type Options struct {
	Logger *slog.Logger
	// Style names the chroma style. Output uses CSS classes, so the style only
	// matters for the stylesheet generated to match it.
	Style string
	// Language is used for blocks that carry no language of their own.
	Language string
}

// Highlighter tokenizes code with a chroma lexer and formats it without the
// surrounding pre element.
type Highlighter struct {
	formatter *html.Formatter
	style     *chroma.Style
	language  string
	logger    *slog.Logger
}

// New constructs a Highlighter.
func New(opts Options) *Highlighter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Style
	if name == "" {
		name = DefaultStyle
	}

	return &Highlighter{
		formatter: html.New(
			html.WithClasses(true),
			html.PreventSurroundingPre(true),
		),
		style:    styles.Get(name),
		language: opts.Language,
		logger:   logger.With("component", "highlight"),
	}
}

// Highlight renders code. The lexer is picked from lang, then the configured
// default language, then filename, then by analysing the code itself.
// startLine locates the block in filename for diagnostics. When comment is not
// nil, it renders the text of each comment token as HTML and must escape
// whatever it does not turn into markup. Other tokens are only escaped.
func (h *Highlighter) Highlight(lang, filename, code string, startLine int, comment func(string) string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%s:%d: %w", filename, startLine, ErrEmptyCode)
	}

	lexer := h.lexer(lang, filename, code)
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("%s:%d: tokenise %s: %w", filename, startLine, lexer.Config().Name, err)
	}

	tokens := iterator.Tokens()
	var comments []string
	if comment != nil {
		for i, tok := range tokens {
			if !tok.Type.InCategory(chroma.Comment) {
				continue
			}
			rendered := comment(tok.Value)
			if rendered == stdhtml.EscapeString(tok.Value) {
				continue
			}
			tokens[i].Value = commentKey(len(comments))
			comments = append(comments, rendered)
		}
	}

	var b strings.Builder
	if err := h.formatter.Format(&b, h.style, chroma.Literator(tokens...)); err != nil {
		return "", fmt.Errorf("%s:%d: format: %w", filename, startLine, err)
	}
	out := b.String()
	// The formatter escapes token values, so rendered comments are swapped in
	// for their keys afterwards.
	for i, rendered := range comments {
		out = strings.Replace(out, commentKey(i), rendered, 1)
	}

	h.logger.Debug("highlighted",
		slog.String("file", filename),
		slog.Int("line", startLine),
		slog.String("lexer", lexer.Config().Name),
		slog.Int("comments", len(comments)),
	)
	return out, nil
}

// commentKey stands in for a rendered comment. It survives HTML escaping.
func commentKey(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}

func (h *Highlighter) lexer(lang, filename, code string) chroma.Lexer {
	for _, name := range []string{lang, h.language} {
		if name == "" {
			continue
		}
		if l := lexers.Get(name); l != nil {
			return chroma.Coalesce(l)
		}
	}
	// Code embedded in a markdown file is not itself markdown.
	if l := lexers.Match(filename); l != nil && !isMarkdown(l) {
		return chroma.Coalesce(l)
	}
	if l := lexers.Analyse(code); l != nil {
		return chroma.Coalesce(l)
	}
	return chroma.Coalesce(lexers.Fallback)
}

func isMarkdown(l chroma.Lexer) bool {
	return strings.EqualFold(l.Config().Name, "markdown")
}
