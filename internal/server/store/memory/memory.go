// Package memory is an in-process Store. It keeps every table in maps
// guarded by one RWMutex and can persist a JSON snapshot after each write.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/dmitrijs2005/omnidesk/internal/server/store"
	"github.com/google/uuid"
)

type record struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Seq       uint64     `json:"seq"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Data      remote.Row `json:"data"`
}

func (r *record) row() remote.Row {
	out := remote.Clone(r.Data)
	if out == nil {
		out = remote.Row{}
	}
	out[common.ColumnID] = r.ID
	out[common.ColumnTenantID] = r.TenantID
	out[common.ColumnCreatedAt] = r.CreatedAt.Format(time.RFC3339Nano)
	out[common.ColumnUpdatedAt] = r.UpdatedAt.Format(time.RFC3339Nano)
	return out
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tables  map[string]map[string]*record
	seq     uint64
	version uint64

	now       func() time.Time
	persister *persistence
	log       logging.Logger
	wg        sync.WaitGroup
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithDataDir persists a snapshot to dir after every write and loads it on
// start. An empty dir keeps the store in memory only.
func WithDataDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.persister = &persistence{dir: dir}
		}
	}
}

// New returns an empty store, or one restored from its data dir.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		tables: make(map[string]map[string]*record),
		now:    time.Now,
		log:    logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	for _, t := range common.Tables {
		s.tables[t] = make(map[string]*record)
	}

	if s.persister != nil {
		snap, err := s.persister.load()
		if err != nil {
			return nil, err
		}
		if snap != nil {
			s.seq = snap.Seq
			s.version = snap.Version
			for t, recs := range snap.Tables {
				if _, ok := s.tables[t]; !ok {
					s.log.Warn(context.Background(), "snapshot has unknown table", "table", t)
					continue
				}
				for _, r := range recs {
					s.tables[t][r.ID] = r
				}
			}
		}
	}
	return s, nil
}

var _ store.Store = (*Store)(nil)

func (s *Store) table(name string) (map[string]*record, error) {
	if err := store.CheckTable(name); err != nil {
		return nil, err
	}
	return s.tables[name], nil
}

func (s *Store) Select(ctx context.Context, tenantID, table string, q remote.Query) ([]remote.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl, err := s.table(table)
	if err != nil {
		return nil, err
	}

	var matched []*record
	for _, r := range tbl {
		if r.TenantID != tenantID {
			continue
		}
		if matches(r, q.Filters) {
			matched = append(matched, r)
		}
	}

	sortRecords(matched, q.Order)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]remote.Row, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.row())
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, tenantID, table string, row remote.Row) (remote.Row, error) {
	rows, err := s.InsertMany(ctx, tenantID, table, []remote.Row{row})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) InsertMany(ctx context.Context, tenantID, table string, rows []remote.Row) ([]remote.Row, error) {
	if tenantID == "" {
		return nil, common.ErrUnauthenticated
	}

	s.mu.Lock()
	tbl, err := s.table(table)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.now().UTC()
	out := make([]remote.Row, 0, len(rows))
	for _, row := range rows {
		s.seq++
		r := &record{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			Seq:       s.seq,
			CreatedAt: now,
			UpdatedAt: now,
			Data:      remote.StripMetadata(remote.Clone(row)),
		}
		tbl[r.ID] = r
		out = append(out, r.row())
	}
	s.persistLocked()
	s.mu.Unlock()

	return out, nil
}

func (s *Store) Update(ctx context.Context, tenantID, table, id string, patch remote.Row) (remote.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.ownedLocked(tenantID, table, id)
	if err != nil {
		return nil, err
	}

	for k, v := range remote.StripMetadata(remote.Clone(patch)) {
		r.Data[k] = v
	}
	r.UpdatedAt = s.now().UTC()
	s.persistLocked()

	return r.row(), nil
}

func (s *Store) Delete(ctx context.Context, tenantID, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(tenantID, table, id); err != nil {
		return err
	}
	delete(s.tables[table], id)
	s.persistLocked()
	return nil
}

// Close waits for pending snapshot writes.
func (s *Store) Close() error {
	s.Wait()
	return nil
}

// Wait blocks until every background snapshot write has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) ownedLocked(tenantID, table, id string) (*record, error) {
	tbl, err := s.table(table)
	if err != nil {
		return nil, err
	}
	r, ok := tbl[id]
	if !ok || r.TenantID != tenantID {
		return nil, fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}
	if r.Data == nil {
		r.Data = remote.Row{}
	}
	return r, nil
}

// persistLocked schedules a snapshot of the current state. Callers hold
// the write lock.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	s.version++
	snap := &snapshot{Version: s.version, Seq: s.seq, Tables: make(map[string][]*record, len(s.tables))}
	for t, tbl := range s.tables {
		recs := make([]*record, 0, len(tbl))
		for _, r := range tbl {
			c := *r
			c.Data = remote.Clone(r.Data)
			recs = append(recs, &c)
		}
		snap.Tables[t] = recs
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.persister.save(snap); err != nil {
			s.log.Error(context.Background(), "snapshot write failed", "error", err)
		}
	}()
}

func matches(r *record, filters []remote.Filter) bool {
	for _, f := range filters {
		var v any
		switch f.Column {
		case common.ColumnID:
			v = r.ID
		case common.ColumnTenantID:
			v = r.TenantID
		default:
			v = r.Data[f.Column]
		}
		if fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// sortRecords orders by the given column, breaking ties by insertion
// order. Without an order rows come in insertion order.
func sortRecords(recs []*record, o *remote.Order) {
	slices.SortFunc(recs, func(a, b *record) int {
		c := 0
		if o != nil {
			switch o.Column {
			case common.ColumnCreatedAt:
				c = a.CreatedAt.Compare(b.CreatedAt)
			case common.ColumnUpdatedAt:
				c = a.UpdatedAt.Compare(b.UpdatedAt)
			case common.ColumnID:
				c = cmp.Compare(a.ID, b.ID)
			default:
				c = cmp.Compare(fmt.Sprint(a.Data[o.Column]), fmt.Sprint(b.Data[o.Column]))
			}
		}
		if c == 0 {
			c = cmp.Compare(a.Seq, b.Seq)
		}
		if o != nil && o.Desc {
			c = -c
		}
		return c
	})
}
