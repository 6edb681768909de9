package markup_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/euforicio/docmark/internal/markup"
	"github.com/euforicio/docmark/internal/renderer"
)

// echoRenderer wraps its input in a single paragraph.
type echoRenderer struct {
	inputs []string
}

func (e *echoRenderer) Render(text string) (string, error) {
	e.inputs = append(e.inputs, text)
	return "<p>" + text + "</p>\n", nil
}

func echoRegistry(r *echoRenderer) *renderer.Registry {
	reg := renderer.NewRegistry()
	reg.Register("echo", func(renderer.Options) (renderer.Renderer, error) { return r, nil })
	return reg
}

func TestProcessorPlain(t *testing.T) {
	t.Parallel()
	p, err := markup.NewProcessor(markup.Config{
		Format: markup.FormatPlain,
		Model:  newFakeModel("Foo.my_func", "baz"),
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}
	if p.Renderer() != "" {
		t.Fatalf("expected no renderer, got %q", p.Renderer())
	}

	got, err := p.Process("call @{Foo.my_func} or `baz`", nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got != "call <a href=\"foo.html#my_func\">Foo.my_func</a> or `baz`" {
		t.Fatalf("unexpected output %q", got)
	}
	if got, _ := p.Process("", nil); got != "" {
		t.Fatalf("expected empty output for empty input, got %q", got)
	}
}

func TestProcessorBacktickFormat(t *testing.T) {
	t.Parallel()
	off := false
	p, err := markup.NewProcessor(markup.Config{
		Format:    markup.FormatBacktick,
		Backticks: &off,
		Model:     newFakeModel("baz"),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}
	if got := p.Expand("use `baz`", nil); got != `use <a href="baz.html">baz</a>` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestProcessorStripsSingleParagraph(t *testing.T) {
	t.Parallel()
	rend := &echoRenderer{}
	p, err := markup.NewProcessor(markup.Config{
		Format:   "echo",
		Model:    newFakeModel("baz"),
		Registry: echoRegistry(rend),
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}

	got, err := p.Process("summary with `baz`", nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got != `summary with <a href="baz.html">baz</a>` {
		t.Fatalf("unexpected output %q", got)
	}

	got, err = p.Process("a</p>\n<p>b", nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got != "<p>a</p>\n<p>b</p>\n" {
		t.Fatalf("expected two paragraphs kept, got %q", got)
	}
}

func TestProcessorBackticksOverride(t *testing.T) {
	t.Parallel()
	off := false
	rend := &echoRenderer{}
	p, err := markup.NewProcessor(markup.Config{
		Format:    "echo",
		Backticks: &off,
		Model:     newFakeModel("baz"),
		Registry:  echoRegistry(rend),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}
	if got, _ := p.Process("`baz`", nil); got != "`baz`" {
		t.Fatalf("expected back-ticks disabled, got %q", got)
	}
}

func TestProcessorUnknownRenderer(t *testing.T) {
	t.Parallel()
	_, err := markup.NewProcessor(markup.Config{Format: "discount", Logger: quietLogger()})
	if !errors.Is(err, renderer.ErrUnknownRenderer) {
		t.Fatalf("expected ErrUnknownRenderer, got %v", err)
	}
	if !strings.Contains(err.Error(), `"discount"`) {
		t.Fatalf("expected error to name the renderer, got %v", err)
	}
}

func TestProcessorMarkdownFallsBackToGoldmark(t *testing.T) {
	t.Parallel()
	p, err := markup.NewProcessor(markup.Config{Format: renderer.Markdown, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}
	if p.Renderer() != renderer.Goldmark {
		t.Fatalf("expected goldmark fallback, got %q", p.Renderer())
	}
}

func TestProcessorDocument(t *testing.T) {
	t.Parallel()
	p, err := markup.NewProcessor(markup.Config{
		Format:      renderer.Goldmark,
		Model:       newFakeModel("Foo.bar"),
		Highlighter: &stubHighlighter{},
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}

	text := "## Intro\n\nSee @{Foo.bar|the bar function}.\n\n    x = 1\n"
	got, err := p.Process(text, newDoc("guide.md", text))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	for _, want := range []string{
		`<h2 id="Intro">Intro`,
		`<a href="foo.html#bar">the bar function</a>`,
		`<pre class="chroma"><code>x = 1`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output, got %s", want, got)
		}
	}
}

func TestProcessorContextDoesNotLeak(t *testing.T) {
	t.Parallel()
	rend := &echoRenderer{}
	p, err := markup.NewProcessor(markup.Config{
		Format:   "echo",
		Model:    newFakeModel("mod.bar"),
		Registry: echoRegistry(rend),
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}

	first := "@lookup mod\n@{bar}"
	if _, err := p.Process(first, newDoc("a.md", first)); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	second := "@{bar}"
	doc := newDoc("b.md", second)
	if _, err := p.Process(second, doc); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if !strings.Contains(rend.inputs[0], `<a href="mod.html#bar">`) {
		t.Fatalf("expected first document to resolve bar, got %q", rend.inputs[0])
	}
	if rend.inputs[1] != markup.Placeholder {
		t.Fatalf("expected second document not to see the first's lookup, got %q", rend.inputs[1])
	}
	if len(doc.Warnings()) != 1 {
		t.Fatalf("expected one warning on the second document, got %v", doc.Warnings())
	}
}

func TestProcessDocumentTitle(t *testing.T) {
	t.Parallel()
	p, err := markup.NewProcessor(markup.Config{Format: renderer.Goldmark, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}

	withMeta := "---\ntitle: Front Title\n---\n## Intro\n\nbody\n"
	page, err := p.ProcessDocument(newDoc("a.md", withMeta), withMeta)
	if err != nil {
		t.Fatalf("ProcessDocument returned error: %v", err)
	}
	if page.Title != "Front Title" {
		t.Fatalf("expected front matter title, got %q", page.Title)
	}
	if strings.Contains(page.HTML, "Front Title") || !strings.Contains(page.HTML, `id="Intro"`) {
		t.Fatalf("unexpected html %s", page.HTML)
	}

	plain := "## Intro\n\nbody\n"
	page, err = p.ProcessDocument(newDoc("b.md", plain), plain)
	if err != nil {
		t.Fatalf("ProcessDocument returned error: %v", err)
	}
	if page.Title != "Intro" {
		t.Fatalf("expected first heading as title, got %q", page.Title)
	}
}

func TestProcessDocumentWithRenderOnlyRenderer(t *testing.T) {
	t.Parallel()
	p, err := markup.NewProcessor(markup.Config{
		Format:   "echo",
		Registry: echoRegistry(&echoRenderer{}),
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}

	text := "# Title\ntext"
	page, err := p.ProcessDocument(nil, text)
	if err != nil {
		t.Fatalf("ProcessDocument returned error: %v", err)
	}
	if page.Title != "Title" {
		t.Fatalf("expected heading title, got %q", page.Title)
	}
	if !strings.HasPrefix(page.HTML, "# <a name=\"Title\"></a>Title") {
		t.Fatalf("unexpected html %q", page.HTML)
	}
}
