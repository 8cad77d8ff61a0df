// Package query caches read results of the API client, sequences mutations
// before the reads they invalidate, and guards late results against views
// that are no longer shown.
package query

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/logging"
)

const DefaultStaleTime = 30 * time.Second

type entry struct {
	result  apiclient.Result
	fetched time.Time
}

// Cache is a read-through cache keyed by endpoint and query parameters.
// Concurrent identical reads share one request.
type Cache struct {
	fetcher   apiclient.Requester
	staleTime time.Duration
	now       func() time.Time
	log       logging.Logger

	mu      sync.Mutex
	entries map[string]entry
	// gen is bumped by every invalidation; marks records, per prefix, the
	// generation of its last invalidation. resetAt covers every key.
	gen     uint64
	marks   map[string]uint64
	resetAt uint64

	sf singleflight.Group
}

type Option func(*Cache)

// WithStaleTime sets how long a cached result is served without refetching.
// Zero disables caching, coalescing of concurrent reads still applies.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func NewCache(fetcher apiclient.Requester, opts ...Option) *Cache {
	c := &Cache{
		fetcher:   fetcher,
		staleTime: DefaultStaleTime,
		now:       time.Now,
		log:       logging.Discard(),
		entries:   map[string]entry{},
		marks:     map[string]uint64{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key is the cache key for an endpoint: the path plus its query parameters
// sorted by name.
func Key(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

// Query returns the cached result for a GET request, or fetches it.
// Requests with any other method go straight to the fetcher.
//
// Concurrent reads of a key share one fetch as long as no invalidation of
// that key happened in between. The shared fetch is detached from the
// callers' cancellation (the fetcher applies its own timeout); a caller
// whose ctx ends gets ctx.Err() while the others keep waiting.
func (c *Cache) Query(ctx context.Context, req apiclient.Request) (apiclient.Result, error) {
	if req.Method != "" && req.Method != http.MethodGet {
		return c.fetcher.Request(ctx, req)
	}
	key := Key(req.Endpoint, req.Query)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.fetched) < c.staleTime {
		c.mu.Unlock()
		return e.result, nil
	}
	started := c.gen
	flight := key + "#" + strconv.FormatUint(c.keyGen(key), 10)
	c.mu.Unlock()

	ch := c.sf.DoChan(flight, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		res, err := c.fetcher.Request(fetchCtx, req)
		if err != nil {
			return nil, err
		}
		if !c.store(key, started, res) {
			c.log.Debug(fetchCtx, "discarding result invalidated while in flight", "key", key)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return apiclient.Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return apiclient.Result{}, r.Err
		}
		return r.Val.(apiclient.Result), nil
	}
}

// keyGen is the generation of the last invalidation covering key. Reads
// only share a fetch when they agree on it. Callers hold c.mu.
func (c *Cache) keyGen(key string) uint64 {
	g := c.resetAt
	for prefix, gen := range c.marks {
		if gen > g && strings.HasPrefix(key, prefix) {
			g = gen
		}
	}
	return g
}

// Request makes Cache usable wherever an apiclient.Requester is expected.
func (c *Cache) Request(ctx context.Context, req apiclient.Request) (apiclient.Result, error) {
	return c.Query(ctx, req)
}

// store keeps res unless key was invalidated after the read started.
func (c *Cache) store(key string, started uint64, res apiclient.Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keyGen(key) > started {
		return false
	}
	if c.staleTime > 0 {
		c.entries[key] = entry{result: res, fetched: c.now()}
	}
	return true
}

// Mutate sends a write and, once its response has arrived, invalidates every
// key starting with one of the given prefixes. A failed write invalidates
// nothing. Mutations are never retried.
func (c *Cache) Mutate(ctx context.Context, req apiclient.Request, invalidate ...string) (apiclient.Result, error) {
	res, err := c.fetcher.Request(ctx, req)
	if err != nil {
		return res, err
	}
	c.Invalidate(invalidate...)
	return res, nil
}

// Invalidate drops cached results under the given key prefixes. Reads of
// those keys already in flight will not be stored, and later reads do not
// join them: the new generation changes their flight key.
func (c *Cache) Invalidate(prefixes ...string) {
	if len(prefixes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, p := range prefixes {
		c.marks[p] = c.gen
	}
	for key := range c.entries {
		if hasAnyPrefix(key, prefixes) {
			delete(c.entries, key)
		}
	}
}

// Reset drops everything. It is registered as a session clear hook so
// cached data never outlives the login that fetched it.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.resetAt = c.gen
	c.entries = map[string]entry{}
	c.marks = map[string]uint64{}
}

// Len reports the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Get runs a cached read and decodes it into a T.
func Get[T any](ctx context.Context, c *Cache, req apiclient.Request) (T, error) {
	var out T
	res, err := c.Query(ctx, req)
	if err != nil {
		return out, err
	}
	err = res.Decode(&out)
	return out, err
}
