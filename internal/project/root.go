package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ConfigFileName is the optional per-project configuration file.
const ConfigFileName = "rustowl.toml"

// FindConfig returns the rustowl.toml closest to startDir, searching
// startDir and then each parent up to the filesystem root. ok is false
// when no directory has one.
func FindConfig(startDir string) (path string, ok bool, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", startDir, err)
	}
	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		path = filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat %q: %w", path, err)
		}
	}
	return "", false, nil
}
