// Package cache keeps analyzed functions keyed by (file digest, body digest)
// so unchanged bodies skip extraction on later runs.
//
// A Cache is safe for concurrent use. Its lock is held only while entries are
// read or written, never while a body is being analyzed.
package cache

import (
	"bytes"
	"compress/gzip"
	"container/list"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/project"
)

// Key identifies one analyzed body.
type Key struct {
	File project.Digest
	Body project.Digest
}

func (k Key) String() string {
	return k.File.String() + "/" + k.Body.String()
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
	Bytes     int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	key        Key
	data       []byte
	compressed bool
	path       string
	mtime      int64 // UnixNano at insertion; 0 when not validated
	seq        uint64
	dirty      bool
	elem       *list.Element
}

func (e *entry) size() int64 {
	return int64(len(e.data) + len(e.path))
}

// Cache is an in-memory store with entry and memory budgets and optional
// on-disk persistence.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	log     *zap.Logger
	entries map[Key]*entry
	order   *list.List // front is evicted first
	bytes   int64
	stats   Stats
	removed map[Key]struct{}
	seq     uint64
	disk    *diskStore

	// statFile is os.Stat, swapped in tests
	statFile func(string) (os.FileInfo, error)
}

// New returns an empty in-memory cache. cfg.Dir is ignored; use Open for a
// persistent cache.
func New(cfg Config, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		cfg:      cfg,
		log:      log,
		entries:  make(map[Key]*entry),
		order:    list.New(),
		removed:  make(map[Key]struct{}),
		statFile: os.Stat,
	}
}

// Config returns the configuration the cache was created with.
func (c *Cache) Config() Config {
	return c.cfg
}

// Lookup returns the cached function for key. With mtime validation on, an
// entry whose source file changed since insertion is dropped and reported as
// a miss. Entries that fail to decode are dropped too.
func (c *Cache) Lookup(key Key) (mir.Func, bool) {
	if c == nil {
		return mir.Func{}, false
	}
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return mir.Func{}, false
	}
	if c.cfg.ValidateFileMtime && e.path != "" && c.stale(e) {
		c.log.Debug("cache entry stale", zap.String("key", key.String()), zap.String("path", e.path))
		c.removeLocked(e)
		c.stats.Misses++
		c.mu.Unlock()
		return mir.Func{}, false
	}
	if c.cfg.Eviction == EvictLRU {
		c.order.MoveToBack(e.elem)
	}
	data, compressed := e.data, e.compressed
	c.mu.Unlock()

	fn, err := decodeFunc(data, compressed)
	if err != nil {
		c.log.Warn("dropping corrupt cache entry", zap.String("key", key.String()), zap.Error(err))
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			c.removeLocked(e)
		}
		c.stats.Misses++
		c.mu.Unlock()
		return mir.Func{}, false
	}
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return fn, true
}

func (c *Cache) stale(e *entry) bool {
	info, err := c.statFile(e.path)
	if err != nil {
		return true
	}
	return info.ModTime().UnixNano() > e.mtime
}

// Insert stores fn under key, replacing any previous entry, then evicts until
// the cache is within budget. filePath is the source file checked on later
// lookups when mtime validation is enabled; it may be empty. With validation
// on, a result whose file cannot be stat'ed is not stored, since it could
// never be validated.
func (c *Cache) Insert(key Key, fn mir.Func, filePath string) error {
	if c == nil {
		return nil
	}
	var mtime int64
	if c.cfg.ValidateFileMtime && filePath != "" {
		info, err := c.statFile(filePath)
		if err != nil {
			c.log.Debug("not caching result of unreadable file",
				zap.String("key", key.String()), zap.String("path", filePath), zap.Error(err))
			return nil
		}
		mtime = info.ModTime().UnixNano()
	}
	data, err := encodeFunc(fn, c.cfg.Compress)
	if err != nil {
		return fmt.Errorf("cache insert %s: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(&entry{
		key:        key,
		data:       data,
		compressed: c.cfg.Compress,
		path:       filePath,
		mtime:      mtime,
		dirty:      true,
	})
	return nil
}

func (c *Cache) putLocked(e *entry) {
	if old, ok := c.entries[e.key]; ok {
		c.removeLocked(old)
	}
	if e.size() > c.cfg.MaxMemoryBytes || c.cfg.MaxEntries <= 0 {
		c.log.Debug("cache entry exceeds budget, not stored",
			zap.String("key", e.key.String()), zap.Int64("size", e.size()))
		return
	}
	delete(c.removed, e.key)
	if e.seq == 0 {
		c.seq++
		e.seq = c.seq
	} else if e.seq > c.seq {
		c.seq = e.seq
	}
	e.elem = c.order.PushBack(e)
	c.entries[e.key] = e
	c.bytes += e.size()
	c.evictLocked()
}

func (c *Cache) evictLocked() {
	for len(c.entries) > c.cfg.MaxEntries || c.bytes > c.cfg.MaxMemoryBytes {
		front := c.order.Front()
		if front == nil {
			return
		}
		victim := front.Value.(*entry)
		c.removeLocked(victim)
		c.stats.Evictions++
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
	c.bytes -= e.size()
	c.removed[e.key] = struct{}{}
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.Bytes = c.bytes
	return s
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the stored keys, first-to-evict first.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Key, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).key)
	}
	return out
}

func encodeFunc(fn mir.Func, compress bool) ([]byte, error) {
	raw, err := msgpack.Marshal(&fn)
	if err != nil {
		return nil, err
	}
	if !compress {
		return raw, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFunc(data []byte, compressed bool) (mir.Func, error) {
	var fn mir.Func
	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return fn, err
		}
		raw, err := io.ReadAll(zr)
		if err != nil {
			return fn, err
		}
		data = raw
	}
	if err := msgpack.Unmarshal(data, &fn); err != nil {
		return fn, err
	}
	return fn, nil
}
