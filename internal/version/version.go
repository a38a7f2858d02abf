// Package version holds build metadata for the rustowl CLI. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.3.4-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Pretty colors the major, minor and patch components of v. Anything that is
// not a dotted triple is returned unchanged.
func Pretty(v string) string {
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return v
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
