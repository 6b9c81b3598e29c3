// Package remote defines the boundary between the data-access layer and the
// hosted table backend: a table client for tenant rows and an accessor for
// the current authenticated user.
//
// Every operation returns an explicit error. common.ErrNotFound and
// common.ErrUnauthenticated are reported as such; everything else is a
// *common.RemoteError.
package remote

import "context"

// Row is one backend record as decoded from the wire.
type Row map[string]any

// Filter restricts a select to rows whose Column equals Value.
type Filter struct {
	Column string
	Value  any
}

type Order struct {
	Column string
	Desc   bool
}

// Query describes a select. Filters are combined with AND; Limit 0 means
// no limit.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// Eq returns a query with a single equality filter.
func Eq(column string, value any) Query {
	return Query{Filters: []Filter{{Column: column, Value: value}}}
}

// And appends an equality filter.
func (q Query) And(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// OrderBy sets the ordering.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = &Order{Column: column, Desc: desc}
	return q
}

// TableClient reads and writes rows of the backend tables.
type TableClient interface {
	// Select returns the rows visible to the caller that match q.
	Select(ctx context.Context, table string, q Query) ([]Row, error)

	// Insert stores row and returns it as stored, with id and timestamps.
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update merges patch into the row with the given id and returns the
	// result. Zero matched rows is common.ErrNotFound.
	Update(ctx context.Context, table, id string, patch Row) (Row, error)

	// Delete removes the row. Zero matched rows is common.ErrNotFound.
	Delete(ctx context.Context, table, id string) error
}

// Identity is the authenticated user. Its ID doubles as the tenant scope.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Authenticator resolves the current session. A missing or expired session
// is reported as ok == false with a nil error.
type Authenticator interface {
	CurrentUser(ctx context.Context) (id Identity, ok bool, err error)
}
