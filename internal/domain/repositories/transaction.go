package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. Forest writes that re-path
// documents run inside one so their advisory locks are released on commit.
type TransactionManager interface {
	// ExecTx executes fn within a transaction, joining one already in ctx
	ExecTx(ctx context.Context, fn TxFn) error
}
