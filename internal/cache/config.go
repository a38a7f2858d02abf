package cache

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"fortio.org/safecast"
)

// Eviction selects which entry goes first when the cache is over budget.
type Eviction uint8

const (
	// EvictLRU removes the least recently used entry.
	EvictLRU Eviction = iota
	// EvictFIFO removes the oldest inserted entry.
	EvictFIFO
)

func (e Eviction) String() string {
	switch e {
	case EvictLRU:
		return "lru"
	case EvictFIFO:
		return "fifo"
	default:
		return fmt.Sprintf("Eviction(%d)", uint8(e))
	}
}

// ParseEviction accepts "lru" or "fifo", ignoring case and surrounding space.
func ParseEviction(s string) (Eviction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lru":
		return EvictLRU, true
	case "fifo":
		return EvictFIFO, true
	default:
		return EvictLRU, false
	}
}

const mib = 1024 * 1024

// Config controls cache size, eviction and persistence.
type Config struct {
	Enabled           bool
	Dir               string
	MaxEntries        int
	MaxMemoryBytes    int64
	Eviction          Eviction
	ValidateFileMtime bool
	Compress          bool
}

// Environment variables read by ApplyEnv.
const (
	EnvCache         = "RUSTOWL_CACHE"
	EnvDir           = "RUSTOWL_CACHE_DIR"
	EnvMaxEntries    = "RUSTOWL_CACHE_MAX_ENTRIES"
	EnvMaxMemoryMB   = "RUSTOWL_CACHE_MAX_MEMORY_MB"
	EnvEviction      = "RUSTOWL_CACHE_EVICTION"
	EnvValidateFiles = "RUSTOWL_CACHE_VALIDATE_FILES"
	EnvCompress      = "RUSTOWL_CACHE_COMPRESS"
)

// DefaultConfig returns the built-in defaults. Dir is left empty; see
// DefaultDir.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MaxEntries:        1000,
		MaxMemoryBytes:    100 * mib,
		Eviction:          EvictLRU,
		ValidateFileMtime: true,
		Compress:          false,
	}
}

// DefaultDir returns $XDG_CACHE_HOME/rustowl, falling back to ~/.cache/rustowl.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "rustowl"), nil
}

// TargetDir is the cache directory used for a build target directory.
func TargetDir(target string) string {
	return filepath.Join(target, "cache")
}

// FromEnv returns the defaults overridden by the process environment.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg
}

// ApplyEnv overrides fields from the RUSTOWL_CACHE_* variables. Values that
// do not parse leave the field unchanged. Numbers are not trimmed.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvCache); ok {
		c.Enabled = !isFalse(v)
	}
	if v, ok := lookup(EnvDir); ok {
		if dir := strings.TrimSpace(v); dir != "" {
			c.Dir = dir
		}
	}
	if v, ok := lookup(EnvMaxEntries); ok {
		if n, ok := parseCount(v); ok {
			c.MaxEntries = saturatingInt(n)
		}
	}
	if v, ok := lookup(EnvMaxMemoryMB); ok {
		if n, ok := parseCount(v); ok {
			c.MaxMemoryBytes = saturatingMiB(n)
		}
	}
	if v, ok := lookup(EnvEviction); ok {
		if e, ok := ParseEviction(v); ok {
			c.Eviction = e
		}
	}
	if v, ok := lookup(EnvValidateFiles); ok {
		c.ValidateFileMtime = !isFalse(v)
	}
	if v, ok := lookup(EnvCompress); ok {
		c.Compress = isTrue(v)
	}
}

type fileConfig struct {
	Cache struct {
		Enabled           bool   `toml:"enabled"`
		Dir               string `toml:"dir"`
		MaxEntries        uint64 `toml:"max_entries"`
		MaxMemoryMB       uint64 `toml:"max_memory_mb"`
		Eviction          string `toml:"eviction"`
		ValidateFileMtime bool   `toml:"validate_file_mtime"`
		Compress          bool   `toml:"compress"`
	} `toml:"cache"`
}

// LoadFile overrides fields set in the [cache] table of a TOML file. Keys
// absent from the file keep their current value. On a parse error c is left
// untouched.
func (c *Config) LoadFile(path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("cache") {
		return nil
	}
	next := *c
	src := fc.Cache
	if meta.IsDefined("cache", "enabled") {
		next.Enabled = src.Enabled
	}
	if meta.IsDefined("cache", "dir") {
		if dir := strings.TrimSpace(src.Dir); dir != "" {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(filepath.Dir(path), dir)
			}
			next.Dir = dir
		}
	}
	if meta.IsDefined("cache", "max_entries") {
		next.MaxEntries = saturatingInt(src.MaxEntries)
	}
	if meta.IsDefined("cache", "max_memory_mb") {
		next.MaxMemoryBytes = saturatingMiB(src.MaxMemoryMB)
	}
	if meta.IsDefined("cache", "eviction") {
		e, ok := ParseEviction(src.Eviction)
		if !ok {
			return fmt.Errorf("%s: unknown cache eviction policy %q", path, src.Eviction)
		}
		next.Eviction = e
	}
	if meta.IsDefined("cache", "validate_file_mtime") {
		next.ValidateFileMtime = src.ValidateFileMtime
	}
	if meta.IsDefined("cache", "compress") {
		next.Compress = src.Compress
	}
	*c = next
	return nil
}

func isFalse(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "false" || v == "0"
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1"
}

func parseCount(v string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimPrefix(v, "+"), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func saturatingInt(n uint64) int {
	v, err := safecast.Conv[int](n)
	if err != nil {
		return math.MaxInt
	}
	return v
}

func saturatingMiB(n uint64) int64 {
	if n > math.MaxInt64/mib {
		return math.MaxInt64
	}
	v, err := safecast.Conv[int64](n * mib)
	if err != nil {
		return math.MaxInt64
	}
	return v
}
