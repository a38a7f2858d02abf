package cache

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	want := Config{
		Enabled:           true,
		MaxEntries:        1000,
		MaxMemoryBytes:    100 * 1024 * 1024,
		Eviction:          EvictLRU,
		ValidateFileMtime: true,
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Fatalf("DefaultConfig (-want +got):\n%s", diff)
	}
}

func envOf(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		edit func(*Config)
	}{
		{"empty", nil, func(*Config) {}},
		{"disable false", map[string]string{EnvCache: "false"}, func(c *Config) { c.Enabled = false }},
		{"disable zero padded", map[string]string{EnvCache: " 0 "}, func(c *Config) { c.Enabled = false }},
		{"disable upper", map[string]string{EnvCache: "FALSE"}, func(c *Config) { c.Enabled = false }},
		{"enable other", map[string]string{EnvCache: "no"}, func(*Config) {}},
		{"dir trimmed", map[string]string{EnvDir: "  /tmp/cache\n"}, func(c *Config) { c.Dir = "/tmp/cache" }},
		{"dir blank", map[string]string{EnvDir: "   "}, func(*Config) {}},
		{"entries", map[string]string{EnvMaxEntries: "500"}, func(c *Config) { c.MaxEntries = 500 }},
		{"entries padded", map[string]string{EnvMaxEntries: " 500"}, func(*Config) {}},
		{"entries negative", map[string]string{EnvMaxEntries: "-1"}, func(*Config) {}},
		{"memory", map[string]string{EnvMaxMemoryMB: "200"}, func(c *Config) { c.MaxMemoryBytes = 200 * 1024 * 1024 }},
		{"memory padded", map[string]string{EnvMaxMemoryMB: "200 "}, func(*Config) {}},
		{"memory saturates", map[string]string{EnvMaxMemoryMB: "18446744073709551615"}, func(c *Config) { c.MaxMemoryBytes = math.MaxInt64 }},
		{"fifo", map[string]string{EnvEviction: " FIFO "}, func(c *Config) { c.Eviction = EvictFIFO }},
		{"lru", map[string]string{EnvEviction: "Lru"}, func(c *Config) { c.Eviction = EvictLRU }},
		{"eviction unknown", map[string]string{EnvEviction: "random"}, func(*Config) {}},
		{"validate off", map[string]string{EnvValidateFiles: "0"}, func(c *Config) { c.ValidateFileMtime = false }},
		{"validate off word", map[string]string{EnvValidateFiles: " False"}, func(c *Config) { c.ValidateFileMtime = false }},
		{"validate other", map[string]string{EnvValidateFiles: "maybe"}, func(*Config) {}},
		{"compress", map[string]string{EnvCompress: "1"}, func(c *Config) { c.Compress = true }},
		{"combined", map[string]string{
			EnvMaxEntries:    "750",
			EnvMaxMemoryMB:   "150",
			EnvEviction:      "fifo",
			EnvValidateFiles: "false",
		}, func(c *Config) {
			c.MaxEntries = 750
			c.MaxMemoryBytes = 150 * 1024 * 1024
			c.Eviction = EvictFIFO
			c.ValidateFileMtime = false
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := DefaultConfig()
			tt.edit(&want)
			got := DefaultConfig()
			got.ApplyEnv(envOf(tt.env))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ApplyEnv (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnvReenablesCacheDisabledByFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.ApplyEnv(envOf(map[string]string{EnvCache: "1"}))
	if !cfg.Enabled {
		t.Fatal("RUSTOWL_CACHE=1 did not enable the cache")
	}
	cfg.ApplyEnv(envOf(map[string]string{EnvCache: "0"}))
	if cfg.Enabled {
		t.Fatal("RUSTOWL_CACHE=0 did not disable the cache")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvMaxEntries, "5")
	t.Setenv(EnvEviction, "fifo")
	cfg := FromEnv()
	if cfg.MaxEntries != 5 || cfg.Eviction != EvictFIFO {
		t.Fatalf("FromEnv = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rustowl.toml")
	content := `
[cache]
dir = "store"
max_entries = 12
eviction = "fifo"
compress = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := DefaultConfig()
	want.Dir = filepath.Join(dir, "store")
	want.MaxEntries = 12
	want.Eviction = EvictFIFO
	want.Compress = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("LoadFile (-want +got):\n%s", diff)
	}
}

func TestLoadFileErrorsKeepConfig(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"syntax":   "[cache\nmax_entries = 1",
		"eviction": "[cache]\nmax_entries = 1\neviction = \"random\"\n",
	} {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg := DefaultConfig()
		if err := cfg.LoadFile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
		if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
			t.Errorf("%s: config changed on error (-want +got):\n%s", name, diff)
		}
	}
}

func TestTargetDir(t *testing.T) {
	if got, want := TargetDir("target_dir"), filepath.Join("target_dir", "cache"); got != want {
		t.Fatalf("TargetDir = %q, want %q", got, want)
	}
}
