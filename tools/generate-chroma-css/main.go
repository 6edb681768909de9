// Package main writes the chroma stylesheet matching the classes docmark emits
// for highlighted code.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/spf13/pflag"

	"github.com/euforicio/docmark/internal/highlight"
)

func main() {
	name := pflag.StringP("style", "s", highlight.DefaultStyle, "chroma style to emit")
	pflag.Parse()

	style, ok := styles.Registry[*name]
	if !ok {
		fmt.Fprintf(os.Stderr, "style %q not found\n", *name)
		os.Exit(1)
	}

	formatter := html.New(
		html.WithClasses(true),
		html.ClassPrefix(""),
	)
	if err := formatter.WriteCSS(os.Stdout, style); err != nil {
		fmt.Fprintf(os.Stderr, "write css: %v\n", err)
		os.Exit(1)
	}
}
