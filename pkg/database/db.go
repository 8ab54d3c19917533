package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
)

// ErrNilDB is returned by Instrument without a database handle.
var ErrNilDB = errors.New("database: db cannot be nil")

type DBTX interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tracer holds the db points. It is built once and wraps any number of
// handles, e.g. one per transaction.
type Tracer struct {
	exec     func(ctx context.Context, db DBTX, query string, args ...any) (sql.Result, error)
	query    func(ctx context.Context, db DBTX, query string, args ...any) (*sql.Rows, error)
	queryRow func(ctx context.Context, db DBTX, query string, args ...any) *sql.Row
}

// NewTracer builds the Exec, Query and QueryRow points. The statement
// becomes the db.query.text tag; statement arguments are only recorded by
// rule sets that log arguments.
func NewTracer(d *point.Decorator, opts ...point.PointOption) (*Tracer, error) {
	options := func(operation string) []point.PointOption {
		base := []point.PointOption{
			point.WithName("db." + operation),
			point.WithParams("db", "query"),
			point.WithVariant(schema.VariantDB),
		}
		return append(base, opts...)
	}

	exec, err := point.Decorate(d, func(ctx context.Context, db DBTX, query string, args ...any) (sql.Result, error) {
		return db.ExecContext(ctx, query, args...)
	}, options("exec")...)
	if err != nil {
		return nil, err
	}
	query, err := point.Decorate(d, func(ctx context.Context, db DBTX, query string, args ...any) (*sql.Rows, error) {
		return db.QueryContext(ctx, query, args...)
	}, options("query")...)
	if err != nil {
		return nil, err
	}
	queryRow, err := point.Decorate(d, func(ctx context.Context, db DBTX, query string, args ...any) *sql.Row {
		return db.QueryRowContext(ctx, query, args...)
	}, options("query_row")...)
	if err != nil {
		return nil, err
	}

	return &Tracer{exec: exec, query: query, queryRow: queryRow}, nil
}

// Wrap returns db with its statements traced. PrepareContext is not traced.
func (t *Tracer) Wrap(db DBTX) (DBTX, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &instrumented{db: db, tracer: t}, nil
}

// Instrument is NewTracer followed by Wrap.
func Instrument(d *point.Decorator, db DBTX, opts ...point.PointOption) (DBTX, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	t, err := NewTracer(d, opts...)
	if err != nil {
		return nil, err
	}
	return t.Wrap(db)
}

type instrumented struct {
	db     DBTX
	tracer *Tracer
}

func (i *instrumented) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return i.db.PrepareContext(ctx, query)
}

func (i *instrumented) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return i.tracer.queryRow(ctx, i.db, query, args...)
}

func (i *instrumented) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return i.tracer.query(ctx, i.db, query, args...)
}

func (i *instrumented) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return i.tracer.exec(ctx, i.db, query, args...)
}
