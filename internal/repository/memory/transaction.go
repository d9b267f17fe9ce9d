package memory

import (
	"context"

	"docforest/internal/domain/repositories"
)

// transactionManager runs fn directly. Each store call is atomic on its own;
// a failing fn does not undo the calls it already made.
type transactionManager struct{}

// NewTransactionManager returns the transaction manager of the memory store.
func NewTransactionManager() repositories.TransactionManager {
	return transactionManager{}
}

func (transactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
