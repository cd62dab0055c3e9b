package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UnitOfWork runs a function inside a single database transaction. Writes made
// through the supplied executor commit together or not at all.
type UnitOfWork struct {
	db *sqlx.DB
}

// NewUnitOfWork constructs a UnitOfWork.
func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx begins a transaction, hands it to fn and commits when fn returns nil.
// Any error or panic rolls the transaction back.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) (err error) {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
