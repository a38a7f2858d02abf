package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/cache"
	"github.com/MuntasirSZN/rustowl/internal/project"
)

// resolveCacheConfig layers the cache configuration: defaults, then the
// [cache] table of rustowl.toml (explicit path or found by walking up from
// startDir), then the RUSTOWL_CACHE_* environment. A config file that fails
// to load is reported and skipped.
func resolveCacheConfig(configPath, startDir string, log *zap.Logger) cache.Config {
	cfg := cache.DefaultConfig()
	path := configPath
	if path == "" {
		found, ok, err := project.FindConfig(startDir)
		if err != nil {
			log.Warn("config lookup failed", zap.Error(err))
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			log.Warn("ignoring config file", zap.String("path", path), zap.Error(err))
		} else {
			log.Debug("loaded config file", zap.String("path", path))
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg
}

// cacheDirOverride returns the directory that replaces the configured cache
// dir: --cache-dir wins, then the cache under --target-dir. "" keeps the
// configured one.
func cacheDirOverride(cacheDir, targetDir string) string {
	switch {
	case cacheDir != "":
		return cacheDir
	case targetDir != "":
		return cache.TargetDir(targetDir)
	}
	return ""
}
