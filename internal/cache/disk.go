package cache

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/project"
)

// Current schema version - increment when record changes
const schemaVersion uint16 = 1

const recordExt = ".mp"

// record is the on-disk form of one entry, stored at
// <dir>/<file-hex>/<body-hex>.mp.
type record struct {
	Schema     uint16         `msgpack:"schema"`
	File       project.Digest `msgpack:"file"`
	Body       project.Digest `msgpack:"body"`
	Path       string         `msgpack:"path"`
	Mtime      int64          `msgpack:"mtime"`
	Seq        uint64         `msgpack:"seq"`
	Compressed bool           `msgpack:"compressed"`
	Data       []byte         `msgpack:"data"`
}

type diskStore struct {
	dir string
}

func (d *diskStore) pathFor(key Key) string {
	return filepath.Join(d.dir, key.File.String(), key.Body.String()+recordExt)
}

// Open creates a cache backed by cfg.Dir, or by DefaultDir when it is empty,
// and loads every readable record found there. Unreadable or outdated records
// are skipped with a warning and removed on the next Flush.
func Open(cfg Config, log *zap.Logger) (*Cache, error) {
	c := New(cfg, log)
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		c.cfg.Dir = dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c.disk = &diskStore{dir: dir}

	recs, bad := c.disk.loadAll(c.log)
	slices.SortFunc(recs, func(a, b *record) int { return cmp.Compare(a.Seq, b.Seq) })

	c.mu.Lock()
	for _, key := range bad {
		c.removed[key] = struct{}{}
	}
	for _, r := range recs {
		c.putLocked(&entry{
			key:        Key{File: r.File, Body: r.Body},
			data:       r.Data,
			compressed: r.Compressed,
			path:       r.Path,
			mtime:      r.Mtime,
			seq:        r.Seq,
		})
	}
	// loading is not counted
	c.stats = Stats{}
	c.mu.Unlock()

	c.log.Debug("cache opened",
		zap.String("dir", dir),
		zap.Int("entries", c.Len()),
		zap.Int("skipped", len(bad)))
	return c, nil
}

func (d *diskStore) loadAll(log *zap.Logger) (recs []*record, bad []Key) {
	fileDirs, err := os.ReadDir(d.dir)
	if err != nil {
		log.Warn("read cache dir", zap.String("dir", d.dir), zap.Error(err))
		return nil, nil
	}
	for _, fd := range fileDirs {
		if !fd.IsDir() {
			continue
		}
		fileDigest, err := project.ParseDigest(fd.Name())
		if err != nil {
			continue
		}
		sub := filepath.Join(d.dir, fd.Name())
		items, err := os.ReadDir(sub)
		if err != nil {
			log.Warn("read cache dir", zap.String("dir", sub), zap.Error(err))
			continue
		}
		for _, it := range items {
			name := it.Name()
			if it.IsDir() || !strings.HasSuffix(name, recordExt) {
				continue
			}
			bodyDigest, err := project.ParseDigest(strings.TrimSuffix(name, recordExt))
			if err != nil {
				continue
			}
			key := Key{File: fileDigest, Body: bodyDigest}
			r, err := readRecord(filepath.Join(sub, name))
			if err == nil && (r.File != key.File || r.Body != key.Body) {
				err = errors.New("record key does not match its path")
			}
			if err != nil {
				log.Warn("skipping cache record", zap.String("key", key.String()), zap.Error(err))
				bad = append(bad, key)
				continue
			}
			recs = append(recs, r)
		}
	}
	return recs, bad
}

func readRecord(path string) (*record, error) {
	// #nosec G304 -- path is built from the cache dir and hex digests
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r record
	if err := msgpack.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if r.Schema != schemaVersion {
		return nil, fmt.Errorf("schema %d, want %d", r.Schema, schemaVersion)
	}
	return &r, nil
}

func (d *diskStore) write(key Key, r *record) (err error) {
	p := d.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()
	if err = msgpack.NewEncoder(f).Encode(r); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (d *diskStore) remove(key Key) error {
	p := d.pathFor(key)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	// drop the per-file directory once it is empty
	_ = os.Remove(filepath.Dir(p))
	return nil
}

// Flush writes entries added since the last flush and deletes records of
// entries that were evicted or invalidated. A cache without a directory has
// nothing to flush. Failures are collected and returned together; entries
// that failed to write stay dirty.
func (c *Cache) Flush() error {
	if c == nil || c.disk == nil {
		return nil
	}
	c.mu.Lock()
	type pending struct {
		key Key
		rec *record
		e   *entry
	}
	var writes []pending
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if !e.dirty {
			continue
		}
		writes = append(writes, pending{key: e.key, e: e, rec: &record{
			Schema:     schemaVersion,
			File:       e.key.File,
			Body:       e.key.Body,
			Path:       e.path,
			Mtime:      e.mtime,
			Seq:        e.seq,
			Compressed: e.compressed,
			Data:       e.data,
		}})
	}
	removed := make([]Key, 0, len(c.removed))
	for k := range c.removed {
		removed = append(removed, k)
	}
	c.removed = make(map[Key]struct{})
	c.mu.Unlock()

	var errs []error
	for _, k := range removed {
		if err := c.disk.remove(k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	written := 0
	for _, w := range writes {
		if err := c.disk.write(w.key, w.rec); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", w.key, err))
			continue
		}
		written++
		c.mu.Lock()
		if cur, ok := c.entries[w.key]; ok && cur == w.e {
			w.e.dirty = false
		}
		c.mu.Unlock()
	}
	c.log.Debug("cache flushed",
		zap.Int("written", written),
		zap.Int("removed", len(removed)),
		zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// Clear drops every entry and deletes the cache directory's records.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.order.Init()
	c.bytes = 0
	c.removed = make(map[Key]struct{})
	c.mu.Unlock()
	if c.disk == nil {
		return nil
	}
	if err := os.RemoveAll(c.disk.dir); err != nil {
		return fmt.Errorf("clear cache dir: %w", err)
	}
	return os.MkdirAll(c.disk.dir, 0o755)
}

// Dir returns the directory backing the cache, or "" for a memory-only one.
func (c *Cache) Dir() string {
	if c == nil || c.disk == nil {
		return ""
	}
	return c.disk.dir
}
