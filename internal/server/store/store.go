// Package store defines the storage behind the table backend and an
// in-process adapter that exposes a Store as a remote.TableClient.
package store

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
)

// Store keeps tenant rows. Every call is scoped to tenantID: rows of other
// tenants are invisible, and touching one is common.ErrNotFound.
//
// Implementations assign id, created_at and updated_at, and ignore those
// columns (and tenant_id) in client input. An unknown table is
// common.ErrValidation.
type Store interface {
	Select(ctx context.Context, tenantID, table string, q remote.Query) ([]remote.Row, error)
	Insert(ctx context.Context, tenantID, table string, row remote.Row) (remote.Row, error)

	// InsertMany stores all rows or none.
	InsertMany(ctx context.Context, tenantID, table string, rows []remote.Row) ([]remote.Row, error)

	// Update merges patch into the row and bumps updated_at. An empty patch
	// only bumps updated_at.
	Update(ctx context.Context, tenantID, table, id string, patch remote.Row) (remote.Row, error)
	Delete(ctx context.Context, tenantID, table, id string) error
	Close() error
}

// CheckTable returns common.ErrValidation for tables the backend does not
// serve.
func CheckTable(table string) error {
	if !common.KnownTable(table) {
		return &common.ValidationError{Field: "table", Reason: "is unknown: " + table}
	}
	return nil
}

type local struct {
	s    Store
	auth remote.Authenticator
}

// Local exposes s as a TableClient for callers in the same process. The
// identity is resolved on every call, the way the hosted backend applies
// row-level security to each request.
func Local(s Store, auth remote.Authenticator) remote.TableClient {
	return &local{s: s, auth: auth}
}

func (l *local) tenant(ctx context.Context, op, table string) (string, error) {
	id, ok, err := l.auth.CurrentUser(ctx)
	if err != nil {
		return "", common.NewRemoteError(op, table, err)
	}
	if !ok {
		return "", common.ErrUnauthenticated
	}
	return id.ID, nil
}

func (l *local) Select(ctx context.Context, table string, q remote.Query) ([]remote.Row, error) {
	tenant, err := l.tenant(ctx, "select", table)
	if err != nil {
		return nil, err
	}
	rows, err := l.s.Select(ctx, tenant, table, q)
	return rows, wrap("select", table, err)
}

func (l *local) Insert(ctx context.Context, table string, row remote.Row) (remote.Row, error) {
	tenant, err := l.tenant(ctx, "insert", table)
	if err != nil {
		return nil, err
	}
	out, err := l.s.Insert(ctx, tenant, table, row)
	return out, wrap("insert", table, err)
}

func (l *local) Update(ctx context.Context, table, id string, patch remote.Row) (remote.Row, error) {
	tenant, err := l.tenant(ctx, "update", table)
	if err != nil {
		return nil, err
	}
	out, err := l.s.Update(ctx, tenant, table, id, patch)
	return out, wrap("update", table, err)
}

func (l *local) Delete(ctx context.Context, table, id string) error {
	tenant, err := l.tenant(ctx, "delete", table)
	if err != nil {
		return err
	}
	return wrap("delete", table, l.s.Delete(ctx, tenant, table, id))
}

// wrap passes the errors the hooks act on through and turns everything
// else into a RemoteError.
func wrap(op, table string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrValidation):
		return err
	default:
		return common.NewRemoteError(op, table, err)
	}
}
