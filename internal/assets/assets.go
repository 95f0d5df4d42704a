// Package assets loads avatar model files from disk and caches the decoded result.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/midgard-avatar/pkg/avatar"
)

// Load errors.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file too large")
)

// Options configures a Manager.
type Options struct {
	MaxFileSize  int64   // Bytes; 0 means no limit
	MaxEntries   int     // Cached models; 0 disables caching
	TargetExtent float32 // Passed to avatar.Decode; 0 keeps the decoder default
	Logger       *zap.Logger
}

// Manager decodes model files and caches the results by path.
// It is safe for concurrent use.
type Manager struct {
	opts   Options
	log    *zap.Logger
	cache  *Cache
	flight singleflight.Group
}

// NewManager creates a new asset manager.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		opts:  opts,
		log:   log,
		cache: NewCache(opts.MaxEntries),
	}
}

// Load returns the decoded model at path. A cached model is reused while the
// file's size and modification time are unchanged. Concurrent loads of the
// same path share one decode.
func (m *Manager) Load(path string) (*avatar.Model, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	if m.opts.MaxFileSize > 0 && info.Size() > m.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), m.opts.MaxFileSize)
	}

	stamp := Stamp{Size: info.Size(), ModTime: info.ModTime()}
	if model, ok := m.cache.Get(key, stamp); ok {
		return model, nil
	}

	v, err, shared := m.flight.Do(key, func() (any, error) {
		return m.decode(key, stamp)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.log.Debug("shared concurrent decode", zap.String("path", key))
	}
	return v.(*avatar.Model), nil
}

func (m *Manager) decode(key string, stamp Stamp) (*avatar.Model, error) {
	start := time.Now()
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	opts := []avatar.Option{avatar.WithLogger(m.log.With(zap.String("path", key)))}
	if m.opts.TargetExtent > 0 {
		opts = append(opts, avatar.WithTargetExtent(m.opts.TargetExtent))
	}
	model, err := avatar.Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}

	m.cache.Set(key, stamp, model)
	m.log.Debug("model loaded",
		zap.String("path", key),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))
	return model, nil
}

// Evict drops the cached model for path, if any.
func (m *Manager) Evict(path string) {
	if key, err := filepath.Abs(path); err == nil {
		m.cache.Delete(key)
	}
}

// Clear drops every cached model and resets statistics.
func (m *Manager) Clear() {
	m.cache.Clear()
}

// Len returns the number of cached models.
func (m *Manager) Len() int {
	return m.cache.Len()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Stamp identifies one version of a file on disk.
type Stamp struct {
	Size    int64
	ModTime time.Time
}

type entry struct {
	stamp    Stamp
	model    *avatar.Model
	lastUsed uint64
}

// Cache is a bounded in-memory cache of decoded models. When full, the
// least recently used entry is dropped.
type Cache struct {
	max     int
	entries map[string]*entry
	clock   uint64
	mu      sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a cache holding at most max models. max <= 0 caches nothing.
func NewCache(max int) *Cache {
	return &Cache{
		max:     max,
		entries: make(map[string]*entry),
	}
}

// Get returns the model cached under key if it was stored with the same stamp.
// A stale entry is dropped.
func (c *Cache) Get(key string, stamp Stamp) (*avatar.Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && (e.stamp.Size != stamp.Size || !e.stamp.ModTime.Equal(stamp.ModTime)) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.clock++
	e.lastUsed = c.clock
	return e.model, true
}

// Set stores model under key, evicting the least recently used entry if full.
func (c *Cache) Set(key string, stamp Stamp, model *avatar.Model) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		var oldest string
		var oldestUse uint64
		for k, e := range c.entries {
			if oldest == "" || e.lastUsed < oldestUse {
				oldest, oldestUse = k, e.lastUsed
			}
		}
		delete(c.entries, oldest)
	}
	c.clock++
	c.entries[key] = &entry{stamp: stamp, model: model, lastUsed: c.clock}
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
