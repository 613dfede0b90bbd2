package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"phrasedex/internal/domain"
	"phrasedex/internal/port"
)

const (
	defaultMaxEntries = 128
	defaultTTL        = 5 * time.Minute
)

// QueryCache is a bounded LRU of query results. Entries expire after the TTL
// and whenever the index generation moves on.
type QueryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List
	maxEntries int
	ttl        time.Duration
	generation uint64
	now        func() time.Time
}

type cacheEntry struct {
	key        string
	results    []domain.Result
	storedAt   time.Time
	generation uint64
}

// NewQueryCache returns an empty cache. Non-positive arguments fall back to
// 128 entries and a five minute TTL.
func NewQueryCache(maxEntries int, ttl time.Duration) *QueryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &QueryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		lru:        list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func cacheKey(mode, query string, distance int) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(query))
	var d [8]byte
	binary.BigEndian.PutUint64(d[:], uint64(distance))
	h.Write(d[:])
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Get returns a copy of the cached results for the query, if fresh.
func (c *QueryCache) Get(mode, query string, distance int) ([]domain.Result, bool) {
	key := cacheKey(mode, query, distance)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if entry.generation != c.generation || c.now().Sub(entry.storedAt) > c.ttl {
		c.removeElement(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return cloneResults(entry.results), true
}

func (c *QueryCache) Put(mode, query string, distance int, results []domain.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(cacheKey(mode, query, distance), results, c.generation)
}

// Generation identifies the current index build. Results computed under an
// older generation are discarded by PutAt.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// PutAt stores results only if no invalidation happened since generation.
func (c *QueryCache) PutAt(generation uint64, mode, query string, distance int, results []domain.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return
	}
	c.put(cacheKey(mode, query, distance), results, generation)
}

func (c *QueryCache) put(key string, results []domain.Result, generation uint64) {
	entry := &cacheEntry{key: key, results: cloneResults(results), storedAt: c.now(), generation: generation}

	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.maxEntries {
		c.removeElement(c.lru.Back())
	}
	c.entries[key] = c.lru.PushFront(entry)
}

// Invalidate drops every entry and starts a new generation.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.maxEntries)
	c.lru.Init()
	c.generation++
}

// Size returns the number of entries held.
func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *QueryCache) removeElement(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}

// cloneResults deep-copies results so callers never share cached slices.
func cloneResults(results []domain.Result) []domain.Result {
	if results == nil {
		return nil
	}
	out := make([]domain.Result, len(results))
	for i, r := range results {
		matches := make([]domain.Match, len(r.Matches))
		for j, m := range r.Matches {
			matches[j] = domain.Match{Terms: append([]domain.TermPosting(nil), m.Terms...)}
		}
		out[i] = domain.Result{File: r.File, Matches: matches}
	}
	return out
}

// Recorder observes cache lookups.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

// CachedSearcher serves repeated queries from a QueryCache. Concurrent misses
// for the same query share a single evaluation.
type CachedSearcher struct {
	mode     string
	distance int
	searcher port.Searcher
	cache    *QueryCache
	recorder Recorder
	group    singleflight.Group
}

// NewCachedSearcher caches the results of searcher under mode and distance.
// recorder may be nil.
func NewCachedSearcher(mode string, distance int, searcher port.Searcher, cache *QueryCache, recorder Recorder) *CachedSearcher {
	return &CachedSearcher{
		mode:     mode,
		distance: distance,
		searcher: searcher,
		cache:    cache,
		recorder: recorder,
	}
}

// Query returns cached results for text, evaluating the wrapped searcher on
// a miss.
func (s *CachedSearcher) Query(text string) []domain.Result {
	if results, hit := s.cache.Get(s.mode, text, s.distance); hit {
		if s.recorder != nil {
			s.recorder.CacheHit()
		}
		return results
	}
	if s.recorder != nil {
		s.recorder.CacheMiss()
	}

	key := cacheKey(s.mode, text, s.distance)
	v, _, shared := s.group.Do(key, func() (any, error) {
		generation := s.cache.Generation()
		results := s.searcher.Query(text)
		s.cache.PutAt(generation, s.mode, text, s.distance, results)
		return results, nil
	})
	if shared {
		return cloneResults(v.([]domain.Result))
	}
	return v.([]domain.Result)
}
