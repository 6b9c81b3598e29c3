package hooks

import (
	"context"
	"sync"
)

// Mutation is a write handle for a view: it runs the write and remembers
// whether one is running, its last error and its last result.
type Mutation[In, Out any] struct {
	fn func(context.Context, In) (Out, error)

	mu      sync.Mutex
	running int
	err     error
	last    Out
}

func newMutation[In, Out any](fn func(context.Context, In) (Out, error)) *Mutation[In, Out] {
	return &Mutation[In, Out]{fn: fn}
}

// Mutate runs the write. The error is also kept for Err.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.running++
	m.mu.Unlock()

	out, err := m.fn(ctx, in)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.running--
	m.err = err
	if err == nil {
		m.last = out
	}
	return out, err
}

func (m *Mutation[In, Out]) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running > 0
}

// Err returns the error of the last finished call, nil if it succeeded.
func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Last returns the result of the last successful call.
func (m *Mutation[In, Out]) Last() Out {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// UpdateInput addresses a patch to a record.
type UpdateInput[P any] struct {
	ID    string
	Patch P
}

func (t *Table[E, C, P]) CreateMutation() *Mutation[C, E] {
	return newMutation(t.Create)
}

func (t *Table[E, C, P]) UpdateMutation() *Mutation[UpdateInput[P], E] {
	return newMutation(func(ctx context.Context, in UpdateInput[P]) (E, error) {
		return t.Update(ctx, in.ID, in.Patch)
	})
}

func (t *Table[E, C, P]) DeleteMutation() *Mutation[string, struct{}] {
	return newMutation(func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, t.Delete(ctx, id)
	})
}
