// Package buildinfo exposes the version stamped into docmark builds.
package buildinfo

import "strings"

// Set at build time with -ldflags "-X github.com/euforicio/docmark/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Summary formats the version as "docmark <version> (<commit> <date>)",
// omitting whatever was not stamped.
func Summary() string {
	version := Version
	if version == "" {
		version = "dev"
	}

	var extra []string
	for _, s := range []string{Commit, Date} {
		if s != "" {
			extra = append(extra, s)
		}
	}
	if len(extra) == 0 {
		return "docmark " + version
	}
	return "docmark " + version + " (" + strings.Join(extra, " ") + ")"
}
