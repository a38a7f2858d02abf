package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/cache"
)

var (
	cacheConfigPath string
	cacheDirFlag    string
	cacheTargetDir  string
	cacheStatsJSON  bool
	cacheStatsKeys  bool
)

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheConfigPath, "config", "", "path to rustowl.toml (default: search upwards)")
	cacheCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "override the cache directory")
	cacheCmd.PersistentFlags().StringVar(&cacheTargetDir, "target-dir", "", "build target directory whose cache/ subdirectory holds the cache")
	cacheStatsCmd.Flags().BoolVar(&cacheStatsJSON, "json", false, "print stats as JSON")
	cacheStatsCmd.Flags().BoolVar(&cacheStatsKeys, "keys", false, "also list entry keys, next to be evicted first")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the analysis result cache",
}

type cacheStatsPayload struct {
	Dir            string   `json:"dir"`
	Enabled        bool     `json:"enabled"`
	Eviction       string   `json:"eviction"`
	Entries        int      `json:"entries"`
	Bytes          int64    `json:"bytes"`
	MaxEntries     int      `json:"max_entries"`
	MaxMemoryBytes int64    `json:"max_memory_bytes"`
	Compress       bool     `json:"compress"`
	Keys           []string `json:"keys,omitempty"`
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the persisted cache holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openCacheForCommand(cmd)
		if err != nil {
			return err
		}
		st := store.Stats()
		payload := cacheStatsPayload{
			Dir:            store.Dir(),
			Enabled:        cfg.Enabled,
			Eviction:       cfg.Eviction.String(),
			Entries:        st.Entries,
			Bytes:          st.Bytes,
			MaxEntries:     cfg.MaxEntries,
			MaxMemoryBytes: cfg.MaxMemoryBytes,
			Compress:       cfg.Compress,
		}
		if cacheStatsKeys {
			for _, k := range store.Keys() {
				payload.Keys = append(payload.Keys, k.String())
			}
		}
		if cacheStatsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}
		renderCacheStats(cmd.OutOrStdout(), payload)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every persisted cache record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openCacheForCommand(cmd)
		if err != nil {
			return err
		}
		n := store.Len()
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries from %s\n", n, store.Dir())
		return nil
	},
}

func openCacheForCommand(cmd *cobra.Command) (*cache.Cache, cache.Config, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, cache.Config{}, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, cache.Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg := resolveCacheConfig(cacheConfigPath, wd, log)
	if dir := cacheDirOverride(cacheDirFlag, cacheTargetDir); dir != "" {
		cfg.Dir = dir
	}
	store, err := cache.Open(cfg, log)
	if err != nil {
		return nil, cfg, err
	}
	log.Debug("cache opened", zap.String("dir", store.Dir()), zap.Int("entries", store.Len()))
	return store, cfg, nil
}

func renderCacheStats(out io.Writer, p cacheStatsPayload) {
	label := color.New(color.Bold)
	state := color.GreenString("enabled")
	if !p.Enabled {
		state = color.YellowString("disabled")
	}
	rows := [][2]string{
		{"dir", p.Dir},
		{"status", state},
		{"entries", fmt.Sprintf("%d / %d", p.Entries, p.MaxEntries)},
		{"memory", fmt.Sprintf("%s / %s", humanBytes(p.Bytes), humanBytes(p.MaxMemoryBytes))},
		{"eviction", strings.ToUpper(p.Eviction)},
		{"compress", fmt.Sprintf("%t", p.Compress)},
	}
	for _, row := range rows {
		label.Fprintf(out, "%-9s", row[0])
		fmt.Fprintln(out, row[1])
	}
	if len(p.Keys) > 0 {
		label.Fprintln(out, "keys")
		for _, k := range p.Keys {
			fmt.Fprintf(out, "  %s\n", k)
		}
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
