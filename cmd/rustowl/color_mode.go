package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// applyColorMode sets the global color switch from the --color flag.
func applyColorMode(mode string, out *os.File) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminal(out)
	case "on", "always":
		color.NoColor = false
	case "off", "never":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (must be auto, on or off)", mode)
	}
	return nil
}
