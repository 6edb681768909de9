// Package renderer converts preprocessed markdown to HTML. Renderers are
// looked up by name in a Registry when a processor is configured.
package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	goldmarkmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/anchor"
)

// Names of the built-in renderers.
const (
	Goldmark   = "goldmark"
	CommonMark = "commonmark"
	// Markdown is an alias that falls back to Goldmark unless a renderer is
	// registered under it.
	Markdown = "markdown"
)

// ErrUnknownRenderer is returned when no renderer can be loaded for a name.
var ErrUnknownRenderer = errors.New("unknown renderer")

// Renderer converts markdown text to an HTML fragment.
type Renderer interface {
	Render(text string) (string, error)
}

// Options configure a renderer at load time.
type Options struct {
	Logger *slog.Logger
	// Style is the chroma style used for fenced code.
	Style string
}

// Factory builds a renderer.
type Factory func(opts Options) (Renderer, error)

// Registry maps renderer names to factories.
type Registry struct {
	factories map[string]Factory
	fallbacks map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		fallbacks: make(map[string]string),
	}
}

// DefaultRegistry returns a registry holding the goldmark and commonmark
// renderers, with markdown falling back to goldmark.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Goldmark, func(opts Options) (Renderer, error) { return NewGoldmark(opts), nil })
	r.Register(CommonMark, func(opts Options) (Renderer, error) { return NewCommonMark(opts), nil })
	r.Fallback(Markdown, Goldmark)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Fallback makes alias load the renderer registered as target whenever alias
// itself cannot be loaded.
func (r *Registry) Fallback(alias, target string) {
	r.fallbacks[alias] = target
}

// Names lists the registered renderer names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the renderer registered under name. It returns the renderer and
// the name it was actually loaded as.
func (r *Registry) Load(name string, opts Options) (Renderer, string, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rend, err := r.load(name, opts)
	if err == nil {
		return rend, name, nil
	}
	target, ok := r.fallbacks[name]
	if !ok {
		return nil, "", err
	}

	rend, fallbackErr := r.load(target, opts)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf("load renderer %q (fallback %q): %w", name, target, fallbackErr)
	}
	opts.Logger.Info("using fallback renderer", slog.String("requested", name), slog.String("renderer", target))
	return rend, target, nil
}

func (r *Registry) load(name string, opts Options) (Renderer, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRenderer, name)
	}
	rend, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("load renderer %q: %w", name, err)
	}
	if rend == nil {
		return nil, fmt.Errorf("%w: %s returned no renderer", ErrUnknownRenderer, name)
	}
	return rend, nil
}

// Metadata is the YAML front matter of a document.
type Metadata struct {
	Raw   map[string]any
	Title string
}

// Result is a converted document.
type Result struct {
	HTML     string
	Metadata Metadata
}

// Converter is implemented by renderers that read front matter.
type Converter interface {
	Convert(content []byte) (Result, error)
}

// GoldmarkRenderer renders GitHub-flavored markdown. Fenced code is
// highlighted, YAML front matter is stripped into Metadata, and relative .md
// links are pointed at the generated .html pages. Headings get permalinks; a
// heading that starts with a section anchor takes the anchor name as its id.
type GoldmarkRenderer struct {
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewGoldmark constructs the goldmark renderer. Raw HTML is passed through, as
// the preprocessor emits anchors and highlighted blocks as HTML.
func NewGoldmark(opts Options) *GoldmarkRenderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	style := opts.Style
	if style == "" {
		style = "github-dark"
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			goldmarkmeta.Meta,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					html.WithLineNumbers(false),
					html.WithClasses(true),
				),
			),
			&anchor.Extender{
				Position: anchor.After,
			},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&sectionAnchorTransformer{}, 50),
				util.Prioritized(&linkTransformer{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			htmlrenderer.WithUnsafe(),
			htmlrenderer.WithXHTML(),
		),
	)

	return &GoldmarkRenderer{
		md:     md,
		logger: logger.With("component", "renderer", "renderer", Goldmark),
	}
}

// Render implements Renderer.
func (g *GoldmarkRenderer) Render(text string) (string, error) {
	res, err := g.Convert([]byte(text))
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}

// Convert renders content and returns its front matter alongside the HTML.
func (g *GoldmarkRenderer) Convert(content []byte) (Result, error) {
	parserCtx := parser.NewContext()
	buf := bytes.NewBuffer(nil)
	if err := g.md.Convert(content, buf, parser.WithContext(parserCtx)); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	meta := frontMatter(parserCtx)
	if meta.Raw != nil {
		g.logger.Debug("front matter", slog.String("title", meta.Title), slog.Int("keys", len(meta.Raw)))
	}
	return Result{HTML: buf.String(), Metadata: meta}, nil
}

// CommonMarkRenderer renders strict CommonMark with no extensions.
type CommonMarkRenderer struct {
	md goldmark.Markdown
}

// NewCommonMark constructs the commonmark renderer.
func NewCommonMark(_ Options) *CommonMarkRenderer {
	return &CommonMarkRenderer{
		md: goldmark.New(
			goldmark.WithRendererOptions(htmlrenderer.WithUnsafe()),
		),
	}
}

// Render implements Renderer.
func (c *CommonMarkRenderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// linkTransformer rewrites relative links to .md files so they target the
// .html fragments generated for them.
type linkTransformer struct{}

func (t *linkTransformer) Transform(node *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			link.Destination = []byte(rewriteMarkdownLink(string(link.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

func rewriteMarkdownLink(dest string) string {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.Contains(dest, "://") {
		return dest
	}
	path, fragment, hasFragment := strings.Cut(dest, "#")
	if !strings.HasSuffix(path, ".md") {
		return dest
	}
	path = strings.TrimSuffix(path, ".md") + ".html"
	if hasFragment {
		return path + "#" + fragment
	}
	return path
}

// sectionAnchorTransformer turns a heading that opens with <a name="id"></a>
// into a heading with that id, so the permalink and the table of contents
// point at the same place. It runs before the anchor extender.
type sectionAnchorTransformer struct{}

func (t *sectionAnchorTransformer) Transform(node *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		open, ok := h.FirstChild().(*ast.RawHTML)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		name, ok := anchorName(string(open.Segments.Value(source)))
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		if end, ok := open.NextSibling().(*ast.RawHTML); ok && string(end.Segments.Value(source)) == "</a>" {
			h.RemoveChild(h, end)
		}
		h.RemoveChild(h, open)
		h.SetAttributeString("id", []byte(name))
		return ast.WalkSkipChildren, nil
	})
}

func anchorName(tag string) (string, bool) {
	name, ok := strings.CutPrefix(tag, `<a name="`)
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, `">`)
	if !ok || name == "" || strings.ContainsAny(name, `"<>`) {
		return "", false
	}
	return name, true
}

func frontMatter(ctx parser.Context) Metadata {
	raw := goldmarkmeta.Get(ctx)
	if len(raw) == 0 {
		return Metadata{}
	}
	meta := Metadata{Raw: maps.Clone(raw)}
	if title, ok := raw["title"].(string); ok {
		meta.Title = strings.TrimSpace(title)
	}
	return meta
}
