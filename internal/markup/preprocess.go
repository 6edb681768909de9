package markup

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
)

const (
	codeIndent      = 4
	tabWidth        = 4
	lookupDirective = "@lookup"
	plainMarker     = "@plain"
	fence           = "```"
)

// Highlighter renders source code as HTML. Its output is wrapped in a pre
// element by the caller. When comment is not nil, the highlighter passes the
// text of each comment token to it and uses the returned HTML in its place.
type Highlighter interface {
	Highlight(lang, filename, code string, startLine int, comment func(string) string) (string, error)
}

// Preprocessor prepares a whole document for the markdown renderer.
type Preprocessor struct {
	expander    *Expander
	highlighter Highlighter
	logger      *slog.Logger
}

// NewPreprocessor returns a preprocessor that expands references with expander
// and sends code blocks to highlighter. A nil highlighter emits escaped code.
func NewPreprocessor(expander *Expander, highlighter Highlighter, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		expander:    expander,
		highlighter: highlighter,
		logger:      logger.With("component", "preprocess"),
	}
}

// Preprocess walks text line by line. Prose lines have their references
// expanded and receive the section anchors recorded in doc; indented and fenced
// code blocks are highlighted and wrapped in pre elements. References in code
// are resolved inside comments only. An @lookup line sets the local prefix of
// lc for the lines after it and is dropped from the output.
func (p *Preprocessor) Preprocess(lc *LookupContext, doc *Document, text string) string {
	if lc == nil {
		lc = &LookupContext{}
	}
	if doc == nil {
		doc = &Document{SectionsByLine: map[int]string{}}
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		raw := lines[i]

		if prefix, ok := parseLookup(raw); ok {
			lc.Local = prefix
			i++
			continue
		}
		if lang, ok := parseFence(raw); ok {
			i = p.fencedBlock(&out, lc, doc, lines, i, lang)
			continue
		}
		if line := expandTabs(raw); !isBlank(line) && indentOf(line) >= codeIndent {
			i = p.indentedBlock(&out, lc, doc, lines, i)
			continue
		}

		line := p.expander.Expand(lc, raw, lineItem{doc: doc, line: i + 1}, false)
		if id, ok := doc.SectionsByLine[i+1]; ok {
			line = insertAnchor(line, id)
		}
		out = append(out, line)
		i++
	}
	return strings.Join(out, "\n")
}

// indentedBlock consumes the code block starting at lines[start] and returns
// the index of the first line after it.
func (p *Preprocessor) indentedBlock(out *[]string, lc *LookupContext, doc *Document, lines []string, start int) int {
	i := start
	first := expandTabs(lines[i])
	startIndent := indentOf(first)
	plain := strings.TrimSpace(first) == plainMarker
	if plain {
		i++
	}

	var code []string
	for ; i < len(lines); i++ {
		line := expandTabs(lines[i])
		if !isBlank(line) && indentOf(line) < codeIndent {
			break
		}
		if plain {
			*out = append(*out, lines[i])
			continue
		}
		code = append(code, dedent(line, startIndent))
	}

	if !plain {
		p.flushCode(out, lc, doc, "", code, start+1)
	}
	return i
}

// fencedBlock consumes a ``` block, including its closing fence.
func (p *Preprocessor) fencedBlock(out *[]string, lc *LookupContext, doc *Document, lines []string, start int, lang string) int {
	var code []string
	i := start + 1
	for ; i < len(lines); i++ {
		if _, ok := parseFence(lines[i]); ok {
			i++
			break
		}
		code = append(code, lines[i])
	}
	p.flushCode(out, lc, doc, lang, code, start+2)
	return i
}

func (p *Preprocessor) flushCode(out *[]string, lc *LookupContext, doc *Document, lang string, code []string, startLine int) {
	for len(code) > 1 && isBlank(code[len(code)-1]) {
		code = code[:len(code)-1]
	}
	src := strings.Join(code, "\n")
	if strings.TrimSpace(src) == "" {
		*out = append(*out, "")
		return
	}

	item := lineItem{doc: doc, line: startLine}
	p.logger.Debug("code block", slog.String("file", doc.Filename), slog.Int("line", startLine), slog.String("lang", lang))
	body := html.EscapeString(src)
	if p.highlighter != nil {
		// Only comments carry references. Back-ticks are code syntax here.
		comment := func(text string) string {
			return p.expander.ExpandHTML(lc, text, item)
		}
		highlighted, err := p.highlighter.Highlight(lang, doc.Filename, src+"\n", startLine, comment)
		if err != nil {
			item.Warn(fmt.Sprintf("highlight failed: %v", err))
		} else {
			body = highlighted
		}
	}
	body = strings.TrimRight(body, "\n")

	*out = append(*out, `<pre class="chroma"><code>`+body, "</code></pre>")
}

// insertAnchor places an anchor for id before the text of line. For a heading
// it goes after the # marker so the anchor stays inside the heading.
func insertAnchor(line, id string) string {
	tag := `<a name="` + id + `"></a>`
	if _, _, ok := parseHeading(line); !ok {
		return tag + line
	}
	text := strings.TrimLeft(strings.TrimLeft(strings.TrimLeft(line, " "), "#"), " \t")
	at := len(line) - len(text)
	return line[:at] + tag + line[at:]
}

// lineItem attributes warnings to a line of a document.
type lineItem struct {
	doc  *Document
	line int
}

func (it lineItem) Warn(msg string) {
	it.doc.Warn(fmt.Sprintf("%s:%d: %s", it.doc.Filename, it.line, msg))
}

func parseLookup(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != lookupDirective {
		return "", false
	}
	return fields[1], true
}

func parseFence(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) >= codeIndent || !strings.HasPrefix(trimmed, fence) {
		return "", false
	}
	info := strings.Fields(strings.TrimLeft(trimmed, "`"))
	if len(info) == 0 {
		return "", true
	}
	return info[0], true
}

func expandTabs(line string) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	return strings.ReplaceAll(line, "\t", strings.Repeat(" ", tabWidth))
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

func dedent(line string, n int) string {
	return line[min(n, indentOf(line)):]
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
