package hooks

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/omnidesk/internal/querycache"
)

// QueryResult is what a view binds to for a read.
type QueryResult[T any] struct {
	Data      T
	IsLoading bool
	Err       error
}

// Query is a live read. It keeps its key subscribed, so invalidations
// refetch it eagerly, until Close.
type Query[T any] struct {
	sub   *querycache.Subscription
	clone func(T) T
	out   chan QueryResult[T]
	once  sync.Once
}

func newQuery[T any](sub *querycache.Subscription, clone func(T) T) *Query[T] {
	q := &Query[T]{sub: sub, clone: clone, out: make(chan QueryResult[T], 1)}
	go q.forward()
	return q
}

// absentQuery is the query of an unset id: no data, never loading.
func absentQuery[T any]() *Query[T] {
	q := &Query[T]{out: make(chan QueryResult[T])}
	close(q.out)
	return q
}

func (q *Query[T]) forward() {
	defer close(q.out)
	for snap := range q.sub.Updates() {
		r := q.resultOf(snap)
		select {
		case <-q.out:
		default:
		}
		q.out <- r
	}
}

// Result returns the current state.
func (q *Query[T]) Result() QueryResult[T] {
	if q.sub == nil {
		return QueryResult[T]{}
	}
	return q.resultOf(q.sub.Snapshot())
}

// Updates delivers the latest state whenever it changes. It is closed
// after Close.
func (q *Query[T]) Updates() <-chan QueryResult[T] { return q.out }

func (q *Query[T]) Close() {
	q.once.Do(func() {
		if q.sub != nil {
			q.sub.Close()
		}
	})
}

func (q *Query[T]) resultOf(snap querycache.Snapshot) QueryResult[T] {
	r := QueryResult[T]{IsLoading: snap.IsLoading, Err: snap.Err}
	if v, ok := snap.Value.(T); snap.HasValue && ok {
		r.Data = q.clone(v)
	}
	return r
}

// ListQuery subscribes to the caller's collection.
func (t *Table[E, C, P]) ListQuery(ctx context.Context) (*Query[[]E], error) {
	id, err := t.identity(ctx)
	if err != nil {
		return nil, t.fail(ctx, "list", err)
	}
	sub := t.cache.Subscribe(ctx, querycache.ListKey(t.name, id.ID), t.listFetcher(id))
	return newQuery(sub, cloneAll[E]), nil
}

// GetQuery subscribes to one record. An empty id yields a query that
// never has data.
func (t *Table[E, C, P]) GetQuery(ctx context.Context, recordID string) (*Query[E], error) {
	if recordID == "" {
		return absentQuery[E](), nil
	}
	id, err := t.identity(ctx)
	if err != nil {
		return nil, t.fail(ctx, "get", err)
	}
	sub := t.cache.Subscribe(ctx, querycache.ItemKey(t.name, id.ID, recordID), t.getFetcher(id, recordID))
	return newQuery(sub, func(e E) E { return e.Clone() }), nil
}
