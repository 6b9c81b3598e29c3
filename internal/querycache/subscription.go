package querycache

import "context"

// Subscription is an active reader of one key. While it is open, the key
// is refetched as soon as it is invalidated.
type Subscription struct {
	c      *Cache
	key    Key
	ctx    context.Context
	fetch  Fetcher
	ch     chan Snapshot
	closed bool
}

// Subscribe registers a reader of key. If the entry is not fresh a fetch
// with fn is started (or joined). The current snapshot is delivered on
// Updates immediately.
func (c *Cache) Subscribe(ctx context.Context, key Key, fn Fetcher) *Subscription {
	s := &Subscription{
		c:     c,
		key:   key,
		ctx:   context.WithoutCancel(ctx),
		fetch: fn,
		ch:    make(chan Snapshot, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		s.closed = true
		close(s.ch)
		return s
	}

	e := c.entryLocked(key)
	e.subs = append(e.subs, s)
	if !c.freshLocked(e) {
		c.flightLocked(s.ctx, e, fn)
	}
	s.push(c.snapshotLocked(e))
	return s
}

func (s *Subscription) Key() Key { return s.key }

// Updates delivers snapshots of the entry. Only the latest undelivered
// snapshot is kept. The channel is closed by Close or by the cache's Close.
func (s *Subscription) Updates() <-chan Snapshot { return s.ch }

// Snapshot returns the current state of the entry.
func (s *Subscription) Snapshot() Snapshot {
	snap, _ := s.c.Peek(s.key)
	return snap
}

// Close detaches the subscriber. A fetch in flight still completes and is
// cached.
func (s *Subscription) Close() {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)

	if e, ok := c.entries[s.key]; ok {
		for i, other := range e.subs {
			if other == s {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				break
			}
		}
	}
}

// push replaces any undelivered snapshot with snap. Callers hold c.mu.
func (s *Subscription) push(snap Snapshot) {
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}
