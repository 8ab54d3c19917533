package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/JailtonJunior94/pointkit/pkg/database"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
)

var (
	// ErrNilDB is returned by NewUnitOfWork without a database.
	ErrNilDB = errors.New("uow: database connection cannot be nil")

	errTransactionAlreadyFinished = errors.New("transaction has already been committed or rolled back")
)

// Work is the function run inside one transaction.
type Work func(ctx context.Context, db database.DBTX) error

// UnitOfWork runs functions inside database transactions. Concurrent calls
// to Do get independent transactions.
type UnitOfWork interface {
	// Do commits when fn succeeds and rolls back when it fails or panics;
	// a panic is re-raised after the rollback. ctx is checked before the
	// transaction starts and after fn returns. Commit itself cannot be
	// cancelled through ctx.
	Do(ctx context.Context, fn Work) error
}

type unitOfWork struct {
	db        *sql.DB
	options   *sql.TxOptions
	decorator *point.Decorator
	tracer    *database.Tracer
	do        func(ctx context.Context, fn Work) error
}

type Option func(*unitOfWork)

func WithIsolationLevel(level sql.IsolationLevel) Option {
	return func(u *unitOfWork) {
		if u.options == nil {
			u.options = &sql.TxOptions{}
		}
		u.options.Isolation = level
	}
}

func WithReadOnly(readOnly bool) Option {
	return func(u *unitOfWork) {
		if u.options == nil {
			u.options = &sql.TxOptions{}
		}
		u.options.ReadOnly = readOnly
	}
}

// WithDecorator traces every transaction as a db.transaction point and
// every statement run through the DBTX handed to the work function.
func WithDecorator(d *point.Decorator) Option {
	return func(u *unitOfWork) {
		u.decorator = d
	}
}

func NewUnitOfWork(db *sql.DB, opts ...Option) (UnitOfWork, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	u := &unitOfWork{db: db}
	for _, opt := range opts {
		opt(u)
	}

	u.do = u.run
	if u.decorator != nil {
		tracer, err := database.NewTracer(u.decorator)
		if err != nil {
			return nil, err
		}
		u.tracer = tracer

		do, err := point.Decorate(u.decorator, u.run,
			point.WithName("db.transaction"),
			point.WithParams("work"),
			point.WithVariant(schema.VariantDB),
		)
		if err != nil {
			return nil, err
		}
		u.do = do
	}
	return u, nil
}

func (u *unitOfWork) Do(ctx context.Context, fn Work) error {
	return u.do(ctx, fn)
}

func (u *unitOfWork) run(ctx context.Context, fn Work) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before transaction start: %w", err)
	}

	tx, err := u.db.BeginTx(ctx, u.options)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var db database.DBTX = tx
	if u.tracer != nil {
		if db, err = u.tracer.Wrap(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	var finished atomic.Bool
	defer func() {
		if p := recover(); p != nil {
			if !finished.Load() {
				if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
					panic(fmt.Sprintf("panic during transaction with rollback failure: panic=%v, rollback_error=%v", p, rbErr))
				}
			}
			panic(p)
		}
	}()

	if err = fn(ctx, db); err != nil {
		finished.Store(true)
		if rbErr := rollbackTx(tx); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err = ctx.Err(); err != nil {
		finished.Store(true)
		if rbErr := rollbackTx(tx); rbErr != nil {
			return fmt.Errorf("context cancelled during transaction: %w, rollback error: %v", err, rbErr)
		}
		return fmt.Errorf("context cancelled during transaction: %w", err)
	}

	finished.Store(true)
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func rollbackTx(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return errTransactionAlreadyFinished
		}
		return err
	}
	return nil
}
