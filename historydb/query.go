// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historydb

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Row is a single result row keyed by column name.
type Row map[string]interface{}

// String returns the named column as a string.  SQLite may hand TEXT columns
// back as either string or []byte depending on how they were written.
func (r Row) String(column string) (string, error) {
	v, ok := r[column]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrColumnMissing, column)
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Int64 returns the named column as an int64.  NULL reads as zero; use IsNull
// to tell the two apart.
func (r Row) Int64(column string) (int64, error) {
	v, ok := r[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnMissing, column)
	}
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("column %s holds %T, not an integer", column, v)
	}
}

// IsNull reports whether the named column is NULL.
func (r Row) IsNull(column string) bool {
	v, ok := r[column]
	return !ok || v == nil
}

// Result is the outcome of a read query.
type Result struct {
	Columns []string
	Rows    []Row
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Query is a statement along with its arguments, the unit of work for
// ExecuteQueries.
type Query struct {
	Stmt string
	Args []interface{}
}

// NewQuery returns a Query for stmt with the passed arguments.
func NewQuery(stmt string, args ...interface{}) Query {
	return Query{Stmt: stmt, Args: args}
}

// Client executes statements either directly against the database or inside
// an open transaction.
type Client interface {
	// ExecuteQuery runs a statement and returns all of its rows.
	ExecuteQuery(ctx context.Context, stmt string, args ...interface{}) (*Result, error)

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, stmt string, args ...interface{}) error
}

// ExecOptions controls how ExecuteQueries runs a batch.
type ExecOptions struct {
	// Concurrency bounds how many statements of the batch run at once.
	// Zero and one both mean strictly sequential in list order.
	Concurrency int

	// Client, when set, scopes the batch to an open transaction.
	Client Client
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Ensure the database and transactions satisfy the Client interface.
var (
	_ Client = (*DB)(nil)
	_ Client = (*Tx)(nil)
)

// ExecuteQuery runs a single read statement against the database.
func (db *DB) ExecuteQuery(ctx context.Context, stmt string, args ...interface{}) (*Result, error) {
	return query(ctx, db.sqldb, stmt, args...)
}

// Exec runs a single write statement against the database.
func (db *DB) Exec(ctx context.Context, stmt string, args ...interface{}) error {
	return exec(ctx, db.sqldb, stmt, args...)
}

// ExecuteQueries runs a batch of write statements.  With a concurrency bound
// of one (the default) the statements run in order and the batch stops at the
// first failure.  Larger bounds fan out over at most that many goroutines and
// report the first failure once all started statements have returned.
func (db *DB) ExecuteQueries(ctx context.Context, queries []Query, opts ExecOptions) error {
	client := opts.Client
	if client == nil {
		client = db
	}

	if opts.Concurrency <= 1 {
		for _, q := range queries {
			if err := client.Exec(ctx, q.Stmt, q.Args...); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, q := range queries {
		q := q
		g.Go(func() error {
			return client.Exec(gctx, q.Stmt, q.Args...)
		})
	}
	return g.Wait()
}

// ExecuteTransaction runs fn inside a database transaction.  The transaction
// is committed when fn returns nil and rolled back otherwise.  A panic inside
// fn rolls the transaction back before it is re-raised.
//
// NOTE: The database uses a single connection, so fn must issue its
// statements through the provided Client.  Statements sent to the DB itself
// while fn runs will block until the transaction completes.
func (db *DB) ExecuteTransaction(ctx context.Context, fn func(Client) error) (err error) {
	sqltx, err := db.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	tx := &Tx{tx: sqltx}

	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	if err := sqltx.Commit(); err != nil {
		log.Warnf("Db commit failed %v", err)
		return err
	}
	return nil
}

// Tx is a Client bound to an open transaction.  It is only valid inside the
// function passed to ExecuteTransaction.
type Tx struct {
	tx *sql.Tx
}

// ExecuteQuery runs a single read statement inside the transaction.
func (tx *Tx) ExecuteQuery(ctx context.Context, stmt string, args ...interface{}) (*Result, error) {
	return query(ctx, tx.tx, stmt, args...)
}

// Exec runs a single write statement inside the transaction.
func (tx *Tx) Exec(ctx context.Context, stmt string, args ...interface{}) error {
	return exec(ctx, tx.tx, stmt, args...)
}

func (tx *Tx) rollback() {
	if err := tx.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.Debugf("Rollback failed: %v", err)
	}
}

func exec(ctx context.Context, e execer, stmt string, args ...interface{}) error {
	if _, err := e.ExecContext(ctx, stmt, args...); err != nil {
		return &QueryError{Stmt: stmt, Err: err}
	}
	return nil
}

func query(ctx context.Context, e execer, stmt string, args ...interface{}) (*Result, error) {
	rows, err := e.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &QueryError{Stmt: stmt, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Stmt: stmt, Err: err}
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Stmt: stmt, Err: err}
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Stmt: stmt, Err: err}
	}
	return result, nil
}
