package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MuntasirSZN/rustowl/internal/version"
)

type versionInfo struct {
	Version    string
	GitCommit  string
	GitMessage string
	BuildDate  string
}

type versionOptions struct {
	format      string
	showHash    bool
	showMessage bool
	showDate    bool
}

type versionPayload struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var (
		opts versionOptions
		full bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show rustowl build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if full {
				opts.showHash, opts.showMessage, opts.showDate = true, true, true
			}
			info := collectVersionInfo(debug.ReadBuildInfo)
			out := cmd.OutOrStdout()
			switch strings.ToLower(opts.format) {
			case "json":
				return renderVersionJSON(out, info, opts)
			case "pretty", "":
				renderVersionPretty(out, info, opts)
				return nil
			}
			return fmt.Errorf("unsupported format %q (must be pretty or json)", opts.format)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.showHash, "hash", false, "include git commit hash")
	f.BoolVar(&opts.showMessage, "message", false, "include git commit message")
	f.BoolVar(&opts.showDate, "date", false, "include build timestamp")
	f.BoolVar(&full, "full", false, "show all recorded build metadata")
	f.StringVar(&opts.format, "format", "pretty", "output format (pretty|json)")
	return cmd
}

// collectVersionInfo reads the ldflags metadata and falls back to the VCS
// stamps the go tool embeds when the ldflags were not set.
func collectVersionInfo(readBuild func() (*debug.BuildInfo, bool)) versionInfo {
	info := versionInfo{
		Version:    orDefault(strings.TrimSpace(version.Version), "dev"),
		GitCommit:  strings.TrimSpace(version.GitCommit),
		GitMessage: strings.TrimSpace(version.GitMessage),
		BuildDate:  strings.TrimSpace(version.BuildDate),
	}
	if readBuild == nil {
		return info
	}
	bi, ok := readBuild()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = orDefault(info.GitCommit, s.Value)
		case "vcs.time":
			info.BuildDate = orDefault(info.BuildDate, s.Value)
		}
	}
	return info
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func renderVersionPretty(out io.Writer, info versionInfo, opts versionOptions) {
	fmt.Fprintf(out, "rustowl %s (%s)\n", version.Pretty(info.Version), runtime.Version())
	for _, row := range []struct {
		show  bool
		label string
		value string
	}{
		{opts.showHash, "commit: ", info.GitCommit},
		{opts.showMessage, "message:", info.GitMessage},
		{opts.showDate, "built:  ", info.BuildDate},
	} {
		if row.show {
			fmt.Fprintf(out, "%s %s\n", row.label, orDefault(row.value, "unknown"))
		}
	}
}

func renderVersionJSON(out io.Writer, info versionInfo, opts versionOptions) error {
	payload := versionPayload{
		Tool:      "rustowl",
		Version:   info.Version,
		GoVersion: runtime.Version(),
	}
	if opts.showHash {
		payload.GitCommit = orDefault(info.GitCommit, "unknown")
	}
	if opts.showMessage {
		payload.GitMessage = orDefault(info.GitMessage, "unknown")
	}
	if opts.showDate {
		payload.BuildDate = orDefault(info.BuildDate, "unknown")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
