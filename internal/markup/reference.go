// Package markup resolves the inline reference syntax of documentation text and
// prepares whole documents for a markdown renderer.
//
// Text flows through four stages: ScanSections finds heading lines, the
// Preprocessor walks the document line by line (expanding references, pulling
// out code blocks for highlighting, inserting section anchors), a named
// renderer converts the result to HTML, and the Processor trims the wrapper
// paragraph the renderer adds around single-field inputs.
package markup

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a name cannot be resolved in any lookup context.
var ErrNotFound = errors.New("reference not found")

// noneContext is the @lookup argument that disables unqualified lookups.
const noneContext = "none"

// Reference is the outcome of a successful name lookup.
type Reference struct {
	Query     string
	Qualified string
	Label     string
	Href      string
}

// Model is the documentation model names are looked up in.
type Model interface {
	// ResolveSeeReference looks name up in the current module's reference table.
	ResolveSeeReference(name string) (Reference, error)
	// Href formats the link target for a resolved reference.
	Href(ref Reference) string
}

// Item receives non-fatal diagnostics raised while processing its text.
type Item interface {
	Warn(msg string)
}

// LookupContext holds the document-scoped state used to resolve bare names.
// A fresh value is built for every processing call.
type LookupContext struct {
	// Package is the global prefix tried after the unprefixed name.
	Package string
	// Local is set by an @lookup directive and tried last.
	Local string
	// Backticks enables `name` references.
	Backticks bool
}

// Resolve looks name up unprefixed, then under the package prefix, then under
// the local prefix. The first success wins; when all fail, the error from the
// unprefixed attempt is returned.
func (c *LookupContext) Resolve(model Model, name string) (Reference, error) {
	if model == nil {
		return Reference{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if c.Local == noneContext && !strings.Contains(name, ".") {
		return Reference{}, fmt.Errorf("%w: %s (unqualified lookups disabled)", ErrNotFound, name)
	}

	ref, firstErr := model.ResolveSeeReference(name)
	if firstErr == nil {
		return c.finish(model, name, ref), nil
	}

	for _, prefix := range []string{c.Package, c.Local} {
		if prefix == "" || prefix == noneContext {
			continue
		}
		if ref, err := model.ResolveSeeReference(prefix + "." + name); err == nil {
			return c.finish(model, name, ref), nil
		}
	}
	return Reference{}, firstErr
}

func (c *LookupContext) finish(model Model, query string, ref Reference) Reference {
	ref.Query = query
	if ref.Qualified == "" {
		ref.Qualified = query
	}
	if ref.Href == "" {
		ref.Href = model.Href(ref)
	}
	return ref
}
