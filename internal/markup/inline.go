package markup

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
)

// Placeholder replaces a reference marker that failed to resolve.
const Placeholder = "???"

const (
	markerOpen  = "@{"
	markerClose = '}'
	labelSep    = '|'
	backtick    = '`'
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segMarker
	segCode
)

// segment is one piece of a tokenized line. For markers, query and label are
// the two halves of the braces; for code spans, query is the span content.
type segment struct {
	kind     segmentKind
	text     string
	query    string
	label    string
	hasLabel bool
}

// scanMarkers splits s into literal text and @{...} markers. A marker ends at
// the first closing brace; an unterminated marker is literal text.
func scanMarkers(s string) []segment {
	var out []segment
	for s != "" {
		start := strings.Index(s, markerOpen)
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+len(markerOpen):], markerClose)
		if end < 0 {
			break
		}
		if start > 0 {
			out = append(out, segment{kind: segLiteral, text: s[:start]})
		}
		body := s[start+len(markerOpen) : start+len(markerOpen)+end]
		seg := segment{kind: segMarker, text: s[start : start+len(markerOpen)+end+1]}
		if i := strings.IndexByte(body, labelSep); i >= 0 {
			seg.query = strings.TrimSpace(body[:i])
			seg.label = strings.TrimSpace(body[i+1:])
			seg.hasLabel = seg.label != ""
		} else {
			seg.query = strings.TrimSpace(body)
		}
		out = append(out, seg)
		s = s[start+len(markerOpen)+end+1:]
	}
	if s != "" {
		out = append(out, segment{kind: segLiteral, text: s})
	}
	return out
}

// scanBackticks splits s into literal text and code spans. A span opens with a
// run of back-ticks and closes at the next run of the same length; an opening
// run without a match is literal. For spans, text keeps the delimiters and query
// holds the content, less one space at each end when both ends have one.
func scanBackticks(s string) []segment {
	var out []segment
	litStart, i := 0, 0
	for i < len(s) {
		if s[i] != backtick {
			i++
			continue
		}
		n := backtickRun(s, i)
		end := closingRun(s, i+n, n)
		if end < 0 {
			i += n
			continue
		}
		if i > litStart {
			out = append(out, segment{kind: segLiteral, text: s[litStart:i]})
		}
		out = append(out, segment{kind: segCode, text: s[i : end+n], query: spanContent(s[i+n : end])})
		i = end + n
		litStart = i
	}
	if litStart < len(s) {
		out = append(out, segment{kind: segLiteral, text: s[litStart:]})
	}
	return out
}

func backtickRun(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] == backtick {
		n++
	}
	return n
}

// closingRun returns the index of the first run of exactly n back-ticks at or
// after from, or -1.
func closingRun(s string, from, n int) int {
	for j := from; j < len(s); {
		if s[j] != backtick {
			j++
			continue
		}
		m := backtickRun(s, j)
		if m == n {
			return j
		}
		j += m
	}
	return -1
}

func spanContent(s string) string {
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "" {
		return s[1 : len(s)-1]
	}
	return s
}

// Expander replaces reference markers with links.
type Expander struct {
	model  Model
	logger *slog.Logger
}

// NewExpander returns an expander resolving names against model. Warnings for
// calls made without an Item go to logger.
func NewExpander(model Model, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{model: model, logger: logger.With("component", "markup")}
}

// Expand rewrites every @{query} and @{query|label} marker in text. When the
// context enables them, `name` spans that resolve are linked too; spans that do
// not resolve are left alone. Unless plain is set, underscores in link labels
// are escaped for the markdown renderer.
func (e *Expander) Expand(lc *LookupContext, text string, item Item, plain bool) string {
	if text == "" {
		return ""
	}
	if lc == nil {
		lc = &LookupContext{}
	}

	var b strings.Builder
	for _, seg := range scanMarkers(text) {
		switch seg.kind {
		case segMarker:
			if href, label, ok := e.resolveMarker(lc, seg, item); ok {
				b.WriteString(link(href, label, plain))
			} else {
				b.WriteString(Placeholder)
			}
		default:
			if lc.Backticks {
				e.expandBackticks(&b, lc, seg.text, plain)
			} else {
				b.WriteString(seg.text)
			}
		}
	}
	return b.String()
}

// ExpandHTML rewrites the markers in text like Expand and HTML-escapes the rest.
// Back-tick spans are left alone. It is used for comments in highlighted code.
func (e *Expander) ExpandHTML(lc *LookupContext, text string, item Item) string {
	if lc == nil {
		lc = &LookupContext{}
	}
	var b strings.Builder
	for _, seg := range scanMarkers(text) {
		if seg.kind != segMarker {
			b.WriteString(html.EscapeString(seg.text))
			continue
		}
		if href, label, ok := e.resolveMarker(lc, seg, item); ok {
			b.WriteString(link(href, html.EscapeString(label), true))
		} else {
			b.WriteString(Placeholder)
		}
	}
	return b.String()
}

// resolveMarker returns the href and label for a marker, or warns and reports
// false when its query does not resolve.
func (e *Expander) resolveMarker(lc *LookupContext, seg segment, item Item) (string, string, bool) {
	ref, err := lc.Resolve(e.model, seg.query)
	if err != nil {
		msg := fmt.Sprintf("unresolved reference %s: %v", seg.text, err)
		if item != nil {
			item.Warn(msg)
		} else {
			e.logger.Warn(msg, slog.String("query", seg.query))
		}
		return "", "", false
	}

	label := ref.Label
	if seg.hasLabel {
		label = seg.label
	}
	if label == "" {
		label = seg.query
	}
	return ref.Href, label, true
}

func (e *Expander) expandBackticks(b *strings.Builder, lc *LookupContext, text string, plain bool) {
	for _, seg := range scanBackticks(text) {
		if seg.kind != segCode {
			b.WriteString(seg.text)
			continue
		}
		if strings.TrimSpace(seg.query) == "" {
			b.WriteString(seg.text)
			continue
		}
		ref, err := lc.Resolve(e.model, seg.query)
		if err != nil {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(link(ref.Href, seg.query, plain))
	}
}

func link(href, label string, plain bool) string {
	if href == "" {
		href = "#"
	}
	if !plain {
		label = strings.ReplaceAll(label, "_", `\_`)
	}
	return `<a href="` + href + `">` + label + `</a>`
}
