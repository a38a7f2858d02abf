package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/cache"
	"github.com/MuntasirSZN/rustowl/internal/driver"
	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/source"
	"github.com/MuntasirSZN/rustowl/internal/workspace"
)

var (
	analyzeOutput   string
	analyzeFormat   string
	analyzeJobs     int
	analyzeConfig   string
	analyzeBaseDir  string
	analyzeCacheDir string
	analyzeTarget   string
	analyzeNoCache  bool
	analyzeTimings  bool
	analyzeReport   bool
	analyzeDump     bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the workspace document to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format (json|yaml)")
	analyzeCmd.Flags().IntVarP(&analyzeJobs, "jobs", "j", 0, "worker count (0 = half the CPUs, between 2 and 8)")
	analyzeCmd.Flags().StringVar(&analyzeConfig, "config", "", "path to rustowl.toml (default: search upwards)")
	analyzeCmd.Flags().StringVar(&analyzeBaseDir, "base-dir", "", "directory that relative source paths are resolved against (default: the facts file's directory)")
	analyzeCmd.Flags().StringVar(&analyzeCacheDir, "cache-dir", "", "override the cache directory")
	analyzeCmd.Flags().StringVar(&analyzeTarget, "target-dir", "", "build target directory; the cache lives in its cache/ subdirectory unless --cache-dir is set")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "disable the result cache")
	analyzeCmd.Flags().BoolVar(&analyzeTimings, "timings", false, "print phase timings to stderr")
	analyzeCmd.Flags().BoolVar(&analyzeReport, "report", false, "print a per-variable summary to stderr")
	analyzeCmd.Flags().BoolVar(&analyzeDump, "dump", false, "print the analyzed MIR of every function to stderr")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <facts.json|->...",
	Short: "Analyze facts documents and emit one workspace model",
	Long: `analyze reads one or more facts documents ("-" for stdin, at most once),
analyzes each and merges the results into a single workspace. When two
documents carry the same function of the same file, the first one wins.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := workspace.ParseFormat(analyzeFormat)
		if err != nil {
			return err
		}
		if err := checkStdinOnce(args); err != nil {
			return err
		}
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cleanup, err := setupTracing(cmd, log)
		if err != nil {
			return err
		}
		defer cleanup()

		var (
			store   *cache.Cache
			merged  = workspace.New()
			sources = make(map[string]*source.File)
		)
		for i, arg := range args {
			doc, baseDir, err := readDocument(cmd.InOrStdin(), arg)
			if err != nil {
				return err
			}
			if analyzeBaseDir != "" {
				baseDir = analyzeBaseDir
			}
			if i == 0 {
				store = openCache(baseDir, log)
			}
			rep, err := driver.Run(cmd.Context(), doc, driver.Options{
				Workers: analyzeJobs,
				Cache:   store,
				Log:     log,
				BaseDir: baseDir,
			})
			if err != nil {
				return err
			}
			merged.Merge(rep.Workspace)
			for path, f := range rep.Sources {
				if _, ok := sources[path]; !ok {
					sources[path] = f
				}
			}
			if analyzeTimings {
				if len(args) > 1 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s:\n", arg)
				}
				printTimings(cmd.ErrOrStderr(), rep)
			}
		}

		if err := writeWorkspace(cmd.OutOrStdout(), analyzeOutput, merged, format); err != nil {
			return err
		}
		if analyzeReport {
			printReport(cmd.ErrOrStderr(), merged, sources)
		}
		if analyzeDump {
			return dumpWorkspace(cmd.ErrOrStderr(), merged)
		}
		return nil
	},
}

func checkStdinOnce(args []string) error {
	n := 0
	for _, a := range args {
		if a == "-" {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("stdin (-) given %d times", n)
	}
	return nil
}

// readDocument decodes the facts document at path, or stdin for "-". The
// returned directory anchors relative source paths.
func readDocument(stdin io.Reader, path string) (*facts.Document, string, error) {
	if path == "-" {
		doc, err := facts.Decode(stdin)
		if err != nil {
			return nil, "", err
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return doc, wd, nil
	}
	doc, err := facts.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	return doc, dir, nil
}

// openCache returns nil when caching is disabled or the cache cannot be
// opened; analysis then runs uncached.
func openCache(startDir string, log *zap.Logger) *cache.Cache {
	cfg := resolveCacheConfig(analyzeConfig, startDir, log)
	if analyzeNoCache || !cfg.Enabled {
		return nil
	}
	if dir := cacheDirOverride(analyzeCacheDir, analyzeTarget); dir != "" {
		cfg.Dir = dir
	}
	store, err := cache.Open(cfg, log)
	if err != nil {
		log.Warn("cache unavailable, continuing without it", zap.Error(err))
		return nil
	}
	return store
}

func writeWorkspace(stdout io.Writer, path string, w *workspace.Workspace, format workspace.Format) (err error) {
	if path == "" || path == "-" {
		return workspace.Encode(stdout, w, format)
	}
	// #nosec G304 -- output path is chosen by the user
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()
	if err := workspace.Encode(f, w, format); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func dumpWorkspace(out io.Writer, w *workspace.Workspace) error {
	for _, crateName := range w.Crates() {
		c, _ := w.Crate(crateName)
		for _, path := range c.Files() {
			f, _ := c.File(path)
			fmt.Fprintf(out, "// %s: %s\n", crateName, path)
			for i := range f.Items {
				if err := mir.DumpFunc(out, &f.Items[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
