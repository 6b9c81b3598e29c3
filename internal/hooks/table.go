// Package hooks implements the entity access hooks: one uniform read/write
// surface per entity, backed by the remote table client and the query
// cache.
//
// Reads go through the cache and are scoped to the tenant of the current
// session. Every successful write invalidates all cached reads of its
// entity.
package hooks

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/dmitrijs2005/omnidesk/internal/models"
	"github.com/dmitrijs2005/omnidesk/internal/querycache"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
)

// Deps are the collaborators shared by every table.
type Deps struct {
	Client remote.TableClient
	Auth   remote.Authenticator
	Cache  *querycache.Cache
	Logger logging.Logger
}

// Table is the access surface of one entity. E is the record type, C its
// create input and P its patch. Records handed out are always copies of
// what the cache holds.
type Table[E models.Record[E], C models.Validator, P models.Patch] struct {
	name   string
	client remote.TableClient
	auth   remote.Authenticator
	cache  *querycache.Cache
	log    logging.Logger
}

func newTable[E models.Record[E], C models.Validator, P models.Patch](name string, d Deps) *Table[E, C, P] {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Table[E, C, P]{
		name:   name,
		client: d.Client,
		auth:   d.Auth,
		cache:  d.Cache,
		log:    log.With("table", name),
	}
}

type (
	Contacts  = Table[models.Contact, models.ContactFields, models.ContactPatch]
	Templates = Table[models.Template, models.TemplateFields, models.TemplatePatch]
	Deals     = Table[models.Deal, models.DealFields, models.DealPatch]
)

func NewContacts(d Deps) *Contacts {
	return newTable[models.Contact, models.ContactFields, models.ContactPatch](common.TableContacts, d)
}

func NewTemplates(d Deps) *Templates {
	return newTable[models.Template, models.TemplateFields, models.TemplatePatch](common.TableTemplates, d)
}

func NewDeals(d Deps) *Deals {
	return newTable[models.Deal, models.DealFields, models.DealPatch](common.TableDeals, d)
}

// Name returns the backend table name, which is also the cache entity.
func (t *Table[E, C, P]) Name() string { return t.name }

// List returns every record of the caller's tenant, newest first.
func (t *Table[E, C, P]) List(ctx context.Context) ([]E, error) {
	id, err := t.identity(ctx)
	if err != nil {
		return nil, t.fail(ctx, "list", err)
	}

	v, err := t.cache.Fetch(ctx, querycache.ListKey(t.name, id.ID), t.listFetcher(id))
	if err != nil {
		return nil, t.fail(ctx, "list", err)
	}
	return cloneAll(v.([]E)), nil
}

// Get returns the record with the given id. An empty id is not an error:
// it yields ok == false without touching the backend.
func (t *Table[E, C, P]) Get(ctx context.Context, recordID string) (rec E, ok bool, err error) {
	if recordID == "" {
		return rec, false, nil
	}

	id, err := t.identity(ctx)
	if err != nil {
		return rec, false, t.fail(ctx, "get", err)
	}

	v, err := t.cache.Fetch(ctx, querycache.ItemKey(t.name, id.ID, recordID), t.getFetcher(id, recordID))
	if err != nil {
		return rec, false, t.fail(ctx, "get", err)
	}
	return v.(E).Clone(), true, nil
}

// Create stores a new record owned by the current user's tenant and
// returns it with the backend-assigned id and timestamps.
func (t *Table[E, C, P]) Create(ctx context.Context, fields C) (E, error) {
	var zero E

	id, err := t.identity(ctx)
	if err != nil {
		return zero, t.fail(ctx, "create", err)
	}
	if err := fields.Validate(); err != nil {
		return zero, t.fail(ctx, "create", err)
	}

	row, err := remote.Encode(fields)
	if err != nil {
		return zero, t.fail(ctx, "create", err)
	}
	row = remote.StripMetadata(row)
	row[common.ColumnTenantID] = id.ID

	created, err := t.client.Insert(ctx, t.name, row)
	if err != nil {
		return zero, t.fail(ctx, "create", err)
	}
	t.invalidate(ctx, "create")

	rec, err := remote.Decode[E](created)
	if err != nil {
		return zero, t.fail(ctx, "create", err)
	}
	return rec, nil
}

// Update merges patch into the record with the given id and resets the
// fields it clears to null. A missing record is common.ErrNotFound and
// leaves the cache untouched.
func (t *Table[E, C, P]) Update(ctx context.Context, recordID string, patch P) (E, error) {
	var zero E

	if recordID == "" {
		return zero, t.fail(ctx, "update", common.ErrNotFound)
	}
	if err := patch.Validate(); err != nil {
		return zero, t.fail(ctx, "update", err)
	}

	row, err := remote.Encode(patch)
	if err != nil {
		return zero, t.fail(ctx, "update", err)
	}

	row = remote.StripMetadata(row)
	delete(row, models.ClearKey)
	for _, f := range patch.Cleared() {
		row[f] = nil
	}

	updated, err := t.client.Update(ctx, t.name, recordID, row)
	if err != nil {
		return zero, t.fail(ctx, "update", err)
	}
	t.invalidate(ctx, "update")

	rec, err := remote.Decode[E](updated)
	if err != nil {
		return zero, t.fail(ctx, "update", err)
	}
	return rec, nil
}

// Delete removes the record with the given id.
func (t *Table[E, C, P]) Delete(ctx context.Context, recordID string) error {
	if recordID == "" {
		return t.fail(ctx, "delete", common.ErrNotFound)
	}
	if err := t.client.Delete(ctx, t.name, recordID); err != nil {
		return t.fail(ctx, "delete", err)
	}
	t.invalidate(ctx, "delete")
	return nil
}

func (t *Table[E, C, P]) listFetcher(id remote.Identity) querycache.Fetcher {
	return func(ctx context.Context) (any, error) {
		q := remote.Eq(common.ColumnTenantID, id.ID).OrderBy(common.ColumnCreatedAt, true)
		rows, err := t.client.Select(ctx, t.name, q)
		if err != nil {
			return nil, err
		}
		return remote.DecodeAll[E](t.ownRows(ctx, id, rows))
	}
}

func (t *Table[E, C, P]) getFetcher(id remote.Identity, recordID string) querycache.Fetcher {
	return func(ctx context.Context) (any, error) {
		q := remote.Eq(common.ColumnID, recordID).And(common.ColumnTenantID, id.ID)
		q.Limit = 1
		rows, err := t.client.Select(ctx, t.name, q)
		if err != nil {
			return nil, err
		}
		rows = t.ownRows(ctx, id, rows)
		if len(rows) == 0 {
			return nil, fmt.Errorf("%s %s: %w", t.name, recordID, common.ErrNotFound)
		}
		return remote.Decode[E](rows[0])
	}
}

// ownRows drops rows of other tenants. The backend already scopes reads;
// this keeps the guarantee even against a misconfigured one.
func (t *Table[E, C, P]) ownRows(ctx context.Context, id remote.Identity, rows []remote.Row) []remote.Row {
	out := rows[:0:0]
	for _, r := range rows {
		if tenant, _ := r[common.ColumnTenantID].(string); tenant != id.ID {
			t.log.Warn(ctx, "dropped row of another tenant", "row_id", r[common.ColumnID])
			continue
		}
		out = append(out, r)
	}
	return out
}

func cloneAll[E models.Record[E]](recs []E) []E {
	out := make([]E, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

func (t *Table[E, C, P]) identity(ctx context.Context) (remote.Identity, error) {
	id, ok, err := t.auth.CurrentUser(ctx)
	if err != nil {
		return remote.Identity{}, fmt.Errorf("resolve current user: %w", err)
	}
	if !ok {
		return remote.Identity{}, common.ErrUnauthenticated
	}
	return id, nil
}

func (t *Table[E, C, P]) invalidate(ctx context.Context, op string) {
	n := t.cache.Invalidate(t.name)
	t.log.Debug(ctx, "cache invalidated", "op", op, "keys", n)
}

func (t *Table[E, C, P]) fail(ctx context.Context, op string, err error) error {
	if common.IsRemote(err) {
		t.log.Error(ctx, "backend request failed", "op", op, "error", err)
	} else {
		t.log.Warn(ctx, "operation failed", "op", op, "error", err)
	}
	return fmt.Errorf("%s %s: %w", op, t.name, err)
}
