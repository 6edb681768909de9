package markup

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/euforicio/docmark/internal/renderer"
)

// Output formats handled without a markdown renderer.
const (
	FormatPlain = "plain"
	// FormatBacktick is plain output with `name` references enabled.
	FormatBacktick = "backtick"
)

// Config selects the output format and the lookup collaborators.
type Config struct {
	// Format is FormatPlain, FormatBacktick, or a renderer name.
	Format string
	// Backticks overrides whether `name` references are recognized. When nil
	// they are enabled for rendered formats and disabled for plain output.
	Backticks *bool
	// Package is the global lookup prefix.
	Package string
	// Style is the chroma style for code highlighted by the renderer.
	Style string

	Model       Model
	Highlighter Highlighter
	// Registry supplies renderers; renderer.DefaultRegistry is used when nil.
	Registry *renderer.Registry
	Logger   *slog.Logger
}

// Processor turns documentation text into HTML fragments.
type Processor struct {
	expander     *Expander
	preprocessor *Preprocessor
	renderer     renderer.Renderer
	rendererName string
	pkg          string
	plain        bool
	backticks    bool
	logger       *slog.Logger
}

// NewProcessor configures a processor. It fails when the named renderer and
// its fallback cannot be loaded; no field can be rendered in that case.
func NewProcessor(cfg Config) (*Processor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Processor{
		expander: NewExpander(cfg.Model, logger),
		pkg:      cfg.Package,
		logger:   logger.With("component", "processor"),
	}

	format := cfg.Format
	if format == "" {
		format = FormatPlain
	}
	switch format {
	case FormatPlain:
		p.plain = true
	case FormatBacktick:
		p.plain = true
		p.backticks = true
	default:
		reg := cfg.Registry
		if reg == nil {
			reg = renderer.DefaultRegistry()
		}
		rend, used, err := reg.Load(format, renderer.Options{Logger: logger, Style: cfg.Style})
		if err != nil {
			return nil, fmt.Errorf("cannot load renderer %q: %w", format, err)
		}
		p.renderer = rend
		p.rendererName = used
		p.backticks = true
		p.preprocessor = NewPreprocessor(p.expander, cfg.Highlighter, logger)
	}
	if cfg.Backticks != nil && format != FormatBacktick {
		p.backticks = *cfg.Backticks
	}

	p.logger.Debug("processor ready",
		slog.String("format", format),
		slog.String("renderer", p.rendererName),
		slog.Bool("backticks", p.backticks),
	)
	return p, nil
}

// Renderer reports the name of the loaded renderer, or "" for plain output.
func (p *Processor) Renderer() string {
	return p.rendererName
}

// Page is a rendered document.
type Page struct {
	HTML string
	// Title comes from the front matter, or else the first section heading.
	Title string
}

// Process renders text owned by item. A *Document item is preprocessed as a
// whole file; anything else is treated as a single field. A paragraph wrapper
// around the whole output is removed.
func (p *Processor) Process(text string, item Item) (string, error) {
	res, err := p.process(text, item)
	return res.HTML, err
}

// ProcessDocument renders the whole text of doc and reports its title.
func (p *Processor) ProcessDocument(doc *Document, text string) (Page, error) {
	if doc == nil {
		doc = ScanSections("", text)
	}
	res, err := p.process(text, doc)
	if err != nil {
		return Page{}, err
	}
	page := Page{HTML: res.HTML, Title: res.Metadata.Title}
	if page.Title == "" {
		page.Title = doc.Title
	}
	return page, nil
}

func (p *Processor) process(text string, item Item) (renderer.Result, error) {
	if text == "" {
		return renderer.Result{}, nil
	}
	lc := p.newContext()
	if p.plain {
		return renderer.Result{HTML: p.expander.Expand(lc, text, item, true)}, nil
	}

	var src string
	if doc, ok := item.(*Document); ok && doc != nil && doc.SectionsByLine != nil {
		src = p.preprocessor.Preprocess(lc, doc, text)
	} else {
		src = p.expander.Expand(lc, text, item, false)
	}

	var (
		res renderer.Result
		err error
	)
	if conv, ok := p.renderer.(renderer.Converter); ok {
		res, err = conv.Convert([]byte(src))
	} else {
		res.HTML, err = p.renderer.Render(src)
	}
	if err != nil {
		return renderer.Result{}, fmt.Errorf("render with %s: %w", p.rendererName, err)
	}
	res.HTML = stripParagraph(res.HTML)
	return res, nil
}

// Expand resolves the references in text without rendering it.
func (p *Processor) Expand(text string, item Item) string {
	return p.expander.Expand(p.newContext(), text, item, p.plain)
}

func (p *Processor) newContext() *LookupContext {
	return &LookupContext{Package: p.pkg, Backticks: p.backticks}
}

// stripParagraph unwraps output consisting of exactly one paragraph.
func stripParagraph(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<p>") || !strings.HasSuffix(trimmed, "</p>") {
		return html
	}
	if strings.Count(trimmed, "<p>") != 1 {
		return html
	}
	return strings.TrimSuffix(strings.TrimPrefix(trimmed, "<p>"), "</p>")
}
