package repository

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDatabase          = errors.New("database error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyClaimed    = errors.New("delivery already claimed")
)

// Tx is the transaction handle shared by the *InTx repository methods.
// *sqlx.Tx satisfies it; tests substitute an in-memory fake.
type Tx interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
