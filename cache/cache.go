// Package cache implements githook's parse cache: parsed hook-script ASTs
// keyed by absolute path, validated against (mtime, size, content-hash)
// and reused across `import` resolutions within a single process (spec.md
// §4.5, §9 "Shared parse cache").
//
// Grounded field-for-field on `original_source/githook-syntax/src/cache.rs`
// (`ParseCache`, `CacheEntry`, `with_default_size` reading
// `GITHOOK_PARSE_CACHE_SIZE`, `stats()`), built on the "plain map behind a
// constructor + Get/Put" shape as `Cache.entries`/`Resolve`, generalized
// here to cache path -> parsed AST rather than task-name -> digest.
package cache

import (
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/lexer"
	"github.com/scholzdev/githook/parser"
)

// defaultMaxEntries is the bounded cache size used when
// GITHOOK_PARSE_CACHE_SIZE is unset or invalid (spec.md §4.5: "fixed max
// entries (default 50, configurable via env)").
const defaultMaxEntries = 50

const sizeEnvVar = "GITHOOK_PARSE_CACHE_SIZE"

// entry is one cached parse result, plus the stat fields needed to
// revalidate it without re-parsing.
type entry struct {
	stmts       []ast.Statement
	modTimeUnix int64
	size        int64
	contentHash uint64
}

// Cache is a reader-writer-guarded, bounded parse cache mapping absolute
// path -> parsed statements. It implements eval.Resolver, so an
// `eval.Evaluator` never reads a filesystem itself (spec.md §1's "these
// are specified only through the interfaces the core consumes").
//
// Lock scope is the map operation only; parsing happens outside the lock
// (spec.md §5 "Shared state").
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int

	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter

	// Plain counters mirroring the above, so Stats() can report current
	// values without depending on Prometheus's internal metric-dump API.
	hitsN, missesN, evictionsN int64
}

// New builds a Cache sized from GITHOOK_PARSE_CACHE_SIZE, falling back to
// defaultMaxEntries when the variable is unset or not a positive integer.
func New() *Cache {
	return NewWithSize(sizeFromEnv())
}

// NewWithSize builds a Cache bounded to maxEntries.
func NewWithSize(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		hits:       prometheus.NewCounter(prometheus.CounterOpts{Name: "githook_parse_cache_hits_total", Help: "Parse cache hits."}),
		misses:     prometheus.NewCounter(prometheus.CounterOpts{Name: "githook_parse_cache_misses_total", Help: "Parse cache misses."}),
		evictions:  prometheus.NewCounter(prometheus.CounterOpts{Name: "githook_parse_cache_evictions_total", Help: "Parse cache evictions."}),
	}
}

func sizeFromEnv() int {
	raw, ok := os.LookupEnv(sizeEnvVar)
	if !ok {
		return defaultMaxEntries
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultMaxEntries
	}
	return n
}

// Describe implements prometheus.Collector so a CLI driver can register a
// Cache directly with its registry.
func (c *Cache) Describe(ch chan<- *prometheus.Desc) {
	c.hits.Describe(ch)
	c.misses.Describe(ch)
	c.evictions.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Cache) Collect(ch chan<- prometheus.Metric) {
	c.hits.Collect(ch)
	c.misses.Collect(ch)
	c.evictions.Collect(ch)
}

// Stats is a point-in-time snapshot of the counters, for tests and
// diagnostics that don't want to scrape Prometheus.
type Stats struct {
	Hits, Misses, Evictions int64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hitsN),
		Misses:    atomic.LoadInt64(&c.missesN),
		Evictions: atomic.LoadInt64(&c.evictionsN),
	}
}

// Resolve implements eval.Resolver: it returns absPath's parsed top-level
// statements, reusing a cached parse when (mtime, size, content-hash) all
// still match (spec.md §4.5 "Cache validity").
func (c *Cache) Resolve(absPath string) ([]ast.Statement, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	cached, ok := c.entries[absPath]
	c.mu.RUnlock()

	if ok && cached.modTimeUnix == info.ModTime().Unix() && cached.size == info.Size() {
		// mtime and size match; re-read and re-hash to catch same-second
		// edits (spec.md §4.5: "if both match but content-hash was
		// recorded, re-read and re-hash").
		source, err := os.ReadFile(absPath)
		if err != nil {
			return nil, err
		}
		if hashContent(source) == cached.contentHash {
			c.hits.Inc()
			atomic.AddInt64(&c.hitsN, 1)
			return cached.stmts, nil
		}
	}

	c.misses.Inc()
	atomic.AddInt64(&c.missesN, 1)
	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	tokens, err := lexer.Tokenize(string(source))
	if err != nil {
		return nil, err
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}

	c.put(absPath, &entry{
		stmts:       stmts,
		modTimeUnix: info.ModTime().Unix(),
		size:        info.Size(),
		contentHash: hashContent(source),
	})
	return stmts, nil
}

// put inserts e under path, evicting one arbitrary entry first if the
// cache is already at capacity (spec.md §4.5: "evict one arbitrary entry
// ... fairness is not required").
func (c *Cache) put(path string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[path]; !exists && len(c.entries) >= c.maxEntries {
		for victim := range c.entries {
			delete(c.entries, victim)
			c.evictions.Inc()
			atomic.AddInt64(&c.evictionsN, 1)
			break
		}
	}
	c.entries[path] = e
}

// Invalidate removes path's cache entry, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// hashContent is a fast non-cryptographic 64-bit hash of a file's bytes
// (spec.md §4.5), using stdlib FNV-64a rather than a cryptographic hash
// (justified in DESIGN.md: no corpus dependency offers a non-crypto hash).
func hashContent(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}
