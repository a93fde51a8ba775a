package repository

import (
	"context"
	"database/sql"

	"github.com/sentinel-fin/reimbursement-service/internal/application/port"
	"github.com/sentinel-fin/reimbursement-service/pkg/database"
)

type contextKey string

const txKey = contextKey("tx")

// executor abstracts *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithTx returns a context carrying the transaction; repository calls made
// with it join that transaction instead of the root connection.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// getExecutor returns the transaction from the context if present
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager implements port.TransactionManager over the sqlite connection.
type TxManager struct {
	db *database.DB
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *database.DB) port.TransactionManager {
	return &TxManager{db: db}
}

// RunInTx executes fn inside a single transaction, injecting it into the
// context handed to fn.
func (m *TxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		return fn(WithTx(ctx, tx))
	})
}

var _ port.TransactionManager = (*TxManager)(nil)
