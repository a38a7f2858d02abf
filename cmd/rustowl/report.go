package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/extract"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/source"
	"github.com/MuntasirSZN/rustowl/internal/workspace"
)

var (
	reportHeader   = color.New(color.Bold)
	reportFn       = color.New(color.FgCyan)
	reportConflict = color.New(color.FgRed, color.Bold)
	reportDim      = color.New(color.Faint)
)

// printReport writes one line per user variable: its type, how long it
// lives, and where it is borrowed. Ranges borrowed both shared and mutably
// are highlighted. Ranges in files found in sources print as 1-based
// line:col spans, others as character offsets.
func printReport(out io.Writer, w *workspace.Workspace, sources map[string]*source.File) {
	for _, crateName := range w.Crates() {
		c, _ := w.Crate(crateName)
		for _, path := range c.Files() {
			f, _ := c.File(path)
			reportHeader.Fprintf(out, "%s: %s\n", crateName, path)
			for i := range f.Items {
				printFuncReport(out, &f.Items[i], sources[path])
			}
		}
	}
}

func printFuncReport(out io.Writer, fn *mir.Func, src *source.File) {
	var users []*mir.Decl
	nameWidth := 0
	for i := range fn.Decls {
		d := &fn.Decls[i]
		if d.Kind != mir.DeclUser {
			continue
		}
		users = append(users, d)
		nameWidth = max(nameWidth, runewidth.StringWidth(d.Name))
	}
	reportFn.Fprintf(out, "  fn #%d", fn.FnID)
	reportDim.Fprintf(out, " (%d locals, %d blocks)\n", len(fn.Decls), len(fn.Blocks))
	for _, d := range users {
		fmt.Fprintf(out, "    %s  %s", runewidth.FillRight(d.Name, nameWidth), d.Ty)
		fmt.Fprintf(out, "  live %s", formatRanges(d.Lives, src))
		if len(d.SharedBorrow) > 0 {
			fmt.Fprintf(out, "  &%s", formatRanges(d.SharedBorrow, src))
		}
		if len(d.MutableBorrow) > 0 {
			fmt.Fprintf(out, "  &mut %s", formatRanges(d.MutableBorrow, src))
		}
		if d.Drop && len(d.DropRange) > 0 {
			fmt.Fprintf(out, "  drop %s", formatRanges(d.DropRange, src))
		}
		if conflicts := extract.BorrowConflicts(d); len(conflicts) > 0 {
			reportConflict.Fprintf(out, "  conflict %s", formatRanges(conflicts, src))
		}
		fmt.Fprintln(out)
	}
}

func formatRanges(rs []source.Range, src *source.File) string {
	if len(rs) == 0 {
		return "-"
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		if src == nil {
			parts[i] = fmt.Sprintf("%d..%d", r.From, r.Until)
			continue
		}
		from, until := src.Resolve(r)
		parts[i] = fmt.Sprintf("%d:%d-%d:%d", from.Line+1, from.Col+1, until.Line+1, until.Col+1)
	}
	return strings.Join(parts, ",")
}

func newReportCmd() *cobra.Command {
	var sourceRoot string
	cmd := &cobra.Command{
		Use:   "report <workspace.json|->",
		Short: "Print the per-variable summary of an emitted workspace document",
		Long: `report reads a JSON workspace written by analyze and prints the same
summary as analyze --report. With --source-root, positions are shown as
line:col spans read from the source files under that directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			w, err := readWorkspace(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), w, loadReportSources(w, sourceRoot, log))
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceRoot, "source-root", "", "directory holding the analyzed source files")
	return cmd
}

func readWorkspace(stdin io.Reader, path string) (*workspace.Workspace, error) {
	if path == "-" {
		return workspace.Decode(stdin)
	}
	// #nosec G304 -- input path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	defer f.Close()
	w, err := workspace.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// loadReportSources reads every file of w found under root. Files that
// cannot be read are left out and report character offsets.
func loadReportSources(w *workspace.Workspace, root string, log *zap.Logger) map[string]*source.File {
	if root == "" {
		return nil
	}
	set := source.NewFileSet()
	out := make(map[string]*source.File)
	for _, crateName := range w.Crates() {
		c, _ := w.Crate(crateName)
		for _, path := range c.Files() {
			if _, done := out[path]; done {
				continue
			}
			disk := path
			if !filepath.IsAbs(disk) {
				disk = filepath.Join(root, disk)
			}
			id, err := set.Load(disk)
			if err != nil {
				log.Debug("source unavailable for report", zap.String("file", path), zap.Error(err))
				continue
			}
			out[path] = set.Get(id)
		}
	}
	return out
}
