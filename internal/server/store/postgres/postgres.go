// Package postgres is the PostgreSQL Store. Each entity has its own table
// holding the backend-owned columns plus a jsonb document with the client
// fields; patches are merged with the jsonb || operator.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/dbx"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/dmitrijs2005/omnidesk/internal/server/store"
	"github.com/dmitrijs2005/omnidesk/internal/server/store/postgres/migrations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const columns = "id, tenant_id, data, created_at, updated_at"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store implements store.Store over a *sql.DB.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open database. The schema must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// sqlOpen and gooseUpContext are seams for tests.
var sqlOpen = sql.Open

var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open connects with the pgx driver, checks the connection and applies the
// embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return New(db), nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Select(ctx context.Context, tenantID, table string, q remote.Query) ([]remote.Row, error) {
	query, args, err := buildSelect(table, tenantID, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	out := []remote.Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, tenantID, table string, row remote.Row) (remote.Row, error) {
	if err := store.CheckTable(table); err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, common.ErrUnauthenticated
	}
	return insertRow(ctx, s.db, tenantID, table, row)
}

// InsertMany inserts all rows in one transaction.
func (s *Store) InsertMany(ctx context.Context, tenantID, table string, rows []remote.Row) ([]remote.Row, error) {
	if err := store.CheckTable(table); err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, common.ErrUnauthenticated
	}

	out := make([]remote.Row, 0, len(rows))
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, r := range rows {
			created, err := insertRow(ctx, tx, tenantID, table, r)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, tenantID, table, id string, patch remote.Row) (remote.Row, error) {
	if err := store.CheckTable(table); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}

	data, err := json.Marshal(remote.StripMetadata(patch))
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	query := `UPDATE ` + table + ` SET data = data || $3::jsonb, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + columns
	row, err := scanRow(s.db.QueryRowContext(ctx, query, id, tenantID, string(data)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Store) Delete(ctx context.Context, tenantID, table, id string) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}
	return nil
}

func insertRow(ctx context.Context, db dbx.DBTX, tenantID, table string, row remote.Row) (remote.Row, error) {
	data, err := json.Marshal(remote.StripMetadata(row))
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	query := `INSERT INTO ` + table + ` (tenant_id, data) VALUES ($1, $2::jsonb) RETURNING ` + columns
	return scanRow(db.QueryRowContext(ctx, query, tenantID, string(data)))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (remote.Row, error) {
	var (
		id, tenant       string
		data             []byte
		created, updated time.Time
	)
	if err := sc.Scan(&id, &tenant, &data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := remote.Row{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("decode data of %s: %w", id, err)
		}
	}
	row[common.ColumnID] = id
	row[common.ColumnTenantID] = tenant
	row[common.ColumnCreatedAt] = created.UTC().Format(time.RFC3339Nano)
	row[common.ColumnUpdatedAt] = updated.UTC().Format(time.RFC3339Nano)
	return row, nil
}

// columnExpr maps a row column to SQL. Client fields live in the data
// document; their names are restricted to plain identifiers.
func columnExpr(col string) (string, error) {
	switch col {
	case common.ColumnID:
		return "id::text", nil
	case common.ColumnTenantID, common.ColumnCreatedAt, common.ColumnUpdatedAt:
		return col, nil
	}
	if !identRe.MatchString(col) {
		return "", &common.ValidationError{Field: "column", Reason: "is invalid: " + col}
	}
	return "data->>'" + col + "'", nil
}

func buildSelect(table, tenantID string, q remote.Query) (string, []any, error) {
	if err := store.CheckTable(table); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT " + columns + " FROM " + table + " WHERE tenant_id = $1")
	args := []any{tenantID}

	for _, f := range q.Filters {
		expr, err := columnExpr(f.Column)
		if err != nil {
			return "", nil, err
		}
		args = append(args, fmt.Sprint(f.Value))
		b.WriteString(" AND (" + expr + ")::text = $" + strconv.Itoa(len(args)))
	}

	if q.Order != nil {
		expr, err := columnExpr(q.Order.Column)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.Order.Desc {
			dir = "DESC"
		}
		// seq breaks ties between rows written in one transaction, which
		// share created_at.
		b.WriteString(" ORDER BY " + expr + " " + dir + ", seq " + dir)
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.String(), args, nil
}
