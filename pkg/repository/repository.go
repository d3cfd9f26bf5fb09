package repository

import (
	"context"

	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/google/uuid"
)

// AccountRepository defines the data access operations for accounts.
// Lookups of unknown ids return domain.ErrNotFound.
type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	// Lock loads the account and holds exclusive access to it until the enclosing
	// UnitOfWork.Do returns. Outside Do it behaves like Get.
	Lock(ctx context.Context, id uuid.UUID) (*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	Update(ctx context.Context, a *account.Account) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error)
}

// TransactionRepository defines the data access operations for ledger records.
type TransactionRepository interface {
	Create(ctx context.Context, tx *transaction.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	// ListByAccounts returns records whose source or destination is any of ids, newest first.
	ListByAccounts(ctx context.Context, ids []uuid.UUID) ([]*transaction.Transaction, error)
}
