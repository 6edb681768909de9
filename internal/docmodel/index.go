// Package docmodel provides the reference table names are resolved against: a
// YAML index of documented modules and their items.
//
// An index looks like:
//
//	base: api/
//	modules:
//	  - name: Foo
//	    file: foo.html
//	    items:
//	      bar: Foo.bar()
//	      baz: ""
//
// An empty item label defaults to the qualified name.
package docmodel

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/euforicio/docmark/internal/markup"
)

// ErrInvalidIndex is returned for indexes that cannot be used for lookups.
var ErrInvalidIndex = errors.New("invalid index")

// Module is a documented module and its named items.
type Module struct {
	Name  string            `yaml:"name"`
	File  string            `yaml:"file"`
	Items map[string]string `yaml:"items"`
}

// Index is a set of modules. Lookups of unqualified names search the current
// module first.
type Index struct {
	Base    string   `yaml:"base"`
	Modules []Module `yaml:"modules"`

	byName  map[string]*Module
	current *Module
}

// Load reads an index file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	ix, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ix, nil
}

// Parse decodes an index, rejecting unknown fields.
func Parse(data []byte) (*Index, error) {
	var ix Index
	if len(data) > 0 {
		if err := yaml.UnmarshalWithOptions(data, &ix, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
		}
	}
	if err := ix.build(); err != nil {
		return nil, err
	}
	return &ix, nil
}

func (ix *Index) build() error {
	ix.byName = make(map[string]*Module, len(ix.Modules))
	for i := range ix.Modules {
		m := &ix.Modules[i]
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return fmt.Errorf("%w: module %d has no name", ErrInvalidIndex, i)
		}
		if _, dup := ix.byName[m.Name]; dup {
			return fmt.Errorf("%w: duplicate module %q", ErrInvalidIndex, m.Name)
		}
		if m.File == "" {
			m.File = m.Name + ".html"
		}
		ix.byName[m.Name] = m
	}
	return nil
}

// WithCurrent returns a view of the index whose unqualified lookups search
// module first.
func (ix *Index) WithCurrent(module string) (*Index, error) {
	m, ok := ix.byName[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", markup.ErrNotFound, module)
	}
	view := *ix
	view.current = m
	return &view, nil
}

// ResolveSeeReference implements markup.Model.
func (ix *Index) ResolveSeeReference(name string) (markup.Reference, error) {
	if name == "" {
		return markup.Reference{}, fmt.Errorf("%w: empty name", markup.ErrNotFound)
	}
	if ix.current != nil {
		if ref, ok := itemRef(ix.current, name); ok {
			return ref, nil
		}
	}
	if m, ok := ix.byName[name]; ok {
		return markup.Reference{Qualified: m.Name, Label: m.Name}, nil
	}
	if m, item, ok := ix.split(name); ok {
		if ref, ok := itemRef(m, item); ok {
			return ref, nil
		}
		return markup.Reference{}, fmt.Errorf("%w: %s in module %s", markup.ErrNotFound, item, m.Name)
	}
	return markup.Reference{}, fmt.Errorf("%w: %s", markup.ErrNotFound, name)
}

// Href implements markup.Model.
func (ix *Index) Href(ref markup.Reference) string {
	if m, ok := ix.byName[ref.Qualified]; ok {
		return ix.Base + m.File
	}
	if m, item, ok := ix.split(ref.Qualified); ok {
		return ix.Base + m.File + "#" + item
	}
	return ""
}

// split divides name into the longest module prefix and the rest.
func (ix *Index) split(name string) (*Module, string, bool) {
	for i := strings.LastIndexByte(name, '.'); i > 0; i = strings.LastIndexByte(name[:i], '.') {
		if m, ok := ix.byName[name[:i]]; ok {
			return m, name[i+1:], true
		}
	}
	return nil, "", false
}

func itemRef(m *Module, item string) (markup.Reference, bool) {
	label, ok := m.Items[item]
	if !ok {
		return markup.Reference{}, false
	}
	qualified := m.Name + "." + item
	if label == "" {
		label = qualified
	}
	return markup.Reference{Qualified: qualified, Label: label}, true
}
