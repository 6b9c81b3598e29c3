package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by Fetch after Close.
var ErrClosed = errors.New("query cache closed")

// Fetcher loads the value of one key from the backend.
type Fetcher func(ctx context.Context) (any, error)

// flight is one started backend call for a key.
type flight struct {
	gen   uint64
	epoch uint64
	name  string
	run   func() (any, error)
}

type entry struct {
	key       Key
	status    Status
	value     any
	hasValue  bool
	err       error
	fetchedAt time.Time

	// gen is the generation of the most recently started fetch; only its
	// result may be stored.
	gen uint64
	// epoch counts invalidations.
	epoch  uint64
	flight *flight
	subs   []*Subscription
}

// Cache stores read results by Key. It is safe for concurrent use; only
// the cache itself mutates entries.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	wg      sync.WaitGroup
	closed  bool

	staleTime time.Duration
	now       func() time.Time
	log       logging.Logger
	metrics   *Metrics
}

type Option func(*Cache)

func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithMetrics attaches prometheus counters. A nil value disables them.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithStaleTime makes Ready entries stale once they are older than d.
// Zero, the default, means only invalidation makes an entry stale.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds an empty cache. Call Close when done with it.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]*entry),
		now:     time.Now,
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch returns the value for key. A fresh Ready entry is served from
// memory; otherwise the caller joins the fetch already in flight for the
// key or starts a new one with fn.
//
// The backend call is not bound to ctx: when ctx is done Fetch returns
// ctx.Err() at once, but the call runs to completion and its result is
// still cached.
func (c *Cache) Fetch(ctx context.Context, key Key, fn Fetcher) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	e := c.entryLocked(key)
	if c.freshLocked(e) {
		v := e.value
		c.mu.Unlock()
		c.metrics.hit()
		c.log.Debug(ctx, "cache hit", "key", key.String())
		return v, nil
	}

	c.metrics.miss()
	ch := c.flightLocked(ctx, e, fn)
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks every entry of entity stale and returns how many entries
// it touched. Entries with active subscribers are refetched right away
// through their first subscriber's fetcher; the rest stay Stale until the
// next read.
func (c *Cache) Invalidate(entity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.key.Entity != entity {
			continue
		}
		c.invalidateLocked(e)
		n++
	}

	c.metrics.invalidated(entity)
	c.log.Debug(context.Background(), "entity invalidated", "entity", entity, "keys", n)
	return n
}

// InvalidateKey marks a single entry stale. It reports whether the key was
// known to the cache.
func (c *Cache) InvalidateKey(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.invalidateLocked(e)
	c.metrics.invalidated(key.Entity)
	return true
}

// Peek returns a copy of the entry for key without triggering a fetch.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key, Status: StatusEmpty}, false
	}
	return c.snapshotLocked(e), true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close detaches all subscribers and waits for fetches in flight to
// finish. Further Fetch calls fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.entries {
		for _, s := range e.subs {
			s.closed = true
			close(s.ch)
		}
		e.subs = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, status: StatusEmpty}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.status != StatusReady {
		return false
	}
	return c.staleTime <= 0 || c.now().Sub(e.fetchedAt) < c.staleTime
}

func (c *Cache) invalidateLocked(e *entry) {
	e.epoch++
	if e.status == StatusReady || e.status == StatusError {
		e.status = StatusStale
	}
	c.notifyLocked(e)

	if len(e.subs) > 0 && !c.closed {
		s := e.subs[0]
		c.flightLocked(s.ctx, e, s.fetch)
	}
}

// flightLocked joins the fetch in flight for e, or starts a new one when
// there is none or it began before the latest invalidation. The channel
// is buffered by singleflight, so callers may drop it.
func (c *Cache) flightLocked(ctx context.Context, e *entry, fn Fetcher) <-chan singleflight.Result {
	if f := e.flight; f != nil && f.epoch == e.epoch {
		c.metrics.joined()
		return c.group.DoChan(f.name, f.run)
	}

	e.gen++
	f := &flight{
		gen:   e.gen,
		epoch: e.epoch,
		name:  fmt.Sprintf("%s#%d", e.key, e.gen),
	}
	key := e.key
	fetchCtx := context.WithoutCancel(ctx)
	f.run = func() (any, error) {
		defer c.wg.Done()
		v, err := fn(fetchCtx)
		c.complete(key, f, v, err)
		return v, err
	}

	c.wg.Add(1)
	e.flight = f
	e.status = StatusLoading
	c.notifyLocked(e)

	// DoChan runs f.run on its own goroutine, so holding mu here is safe.
	// Registering the flight under mu means any joiner that sees e.flight
	// finds it in the group too.
	return c.group.DoChan(f.name, f.run)
}

func (c *Cache) complete(key Key, f *flight, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}

	if f.gen != e.gen {
		c.metrics.discarded()
		c.log.Debug(context.Background(), "superseded fetch discarded",
			"key", key.String(), "gen", f.gen, "current", e.gen)
		return
	}
	e.flight = nil

	if err != nil {
		e.status = StatusError
		e.err = err
		c.metrics.fetched(false)
		c.log.Warn(context.Background(), "fetch failed", "key", key.String(), "error", err)
	} else {
		e.value = v
		e.hasValue = true
		e.err = nil
		e.fetchedAt = c.now()
		if f.epoch == e.epoch {
			e.status = StatusReady
		} else {
			e.status = StatusStale
		}
		c.metrics.fetched(true)
	}

	c.notifyLocked(e)
}

func (c *Cache) snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Key:       e.key,
		Status:    e.status,
		Value:     e.value,
		HasValue:  e.hasValue,
		Err:       e.err,
		IsLoading: e.flight != nil,
		IsFresh:   c.freshLocked(e),
		FetchedAt: e.fetchedAt,
	}
}

func (c *Cache) notifyLocked(e *entry) {
	if len(e.subs) == 0 {
		return
	}
	snap := c.snapshotLocked(e)
	for _, s := range e.subs {
		s.push(snap)
	}
}
