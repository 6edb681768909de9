package markup

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Section is a heading registered for table-of-contents navigation.
type Section struct {
	Line  int
	ID    string
	Title string
}

// Document is a whole file awaiting preprocessing. It doubles as the Item for
// warnings raised against the file.
type Document struct {
	Filename string
	// Title is the text of the first heading, if any.
	Title string
	// SectionsByLine maps 1-based line numbers in the source text to anchor IDs.
	SectionsByLine map[int]string

	sections []Section
	warnings []string
	logger   *slog.Logger
}

// ScanSections finds the heading lines of text at the level set by the first
// heading and registers each as a section. Lines inside fenced code are not
// headings. The text is not modified.
func ScanSections(filename, text string) *Document {
	doc := &Document{
		Filename:       filename,
		SectionsByLine: make(map[int]string),
	}

	level := 0
	used := make(map[string]int)
	inFence := false
	for i, line := range strings.Split(text, "\n") {
		if _, ok := parseFence(line); ok {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		n, title, ok := parseHeading(line)
		if !ok {
			continue
		}
		if level == 0 {
			level = n
			doc.Title = title
		}
		if n != level {
			continue
		}
		id := uniqueID(used, sectionID(title))
		doc.SectionsByLine[i+1] = id
		doc.sections = append(doc.sections, Section{Line: i + 1, ID: id, Title: title})
	}
	return doc
}

// TOC returns the sections in document order.
func (d *Document) TOC() []Section {
	return slices.Clone(d.sections)
}

// Warn records msg against the document and logs it.
func (d *Document) Warn(msg string) {
	d.warnings = append(d.warnings, msg)
	logger := d.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(msg, slog.String("file", d.Filename))
}

// Warnings returns every message recorded by Warn.
func (d *Document) Warnings() []string {
	return slices.Clone(d.warnings)
}

// SetLogger directs document warnings to logger.
func (d *Document) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// parseHeading reports the level and title of an ATX heading line. Trailing
// closing hashes are dropped from the title.
func parseHeading(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) >= codeIndent {
		return 0, "", false
	}
	line = strings.TrimRight(trimmed, " \t\r")
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n == len(line) || (line[n] != ' ' && line[n] != '\t') {
		return 0, "", false
	}
	title := strings.TrimSpace(line[n:])
	if trimmed := strings.TrimRight(title, "#"); trimmed != title && (trimmed == "" || strings.HasSuffix(trimmed, " ")) {
		title = strings.TrimSpace(trimmed)
	}
	if title == "" {
		return 0, "", false
	}
	return n, title, true
}

func sectionID(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, title)
}

func uniqueID(used map[string]int, id string) string {
	used[id]++
	if n := used[id]; n > 1 {
		candidate := id + "_" + strconv.Itoa(n)
		for used[candidate] > 0 {
			n++
			candidate = id + "_" + strconv.Itoa(n)
		}
		used[id] = n
		used[candidate]++
		return candidate
	}
	return id
}
