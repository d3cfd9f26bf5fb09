package repository

import (
	"context"
	"fmt"

	"github.com/amirasaad/bankcore/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides the transaction boundary and repository access over one *gorm.DB.
// Repositories obtained inside Do share the transaction.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn in a database transaction. A failed commit is reported as
// *repository.CommitError. Calling Do on the UoW passed to fn joins the outer transaction.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	done := false
	defer func() {
		if !done {
			tx.Rollback()
		}
	}()

	if err := fn(&UoW{db: u.db, tx: tx}); err != nil {
		return err
	}
	done = true
	if err := tx.Commit().Error; err != nil {
		return &repository.CommitError{Err: err}
	}
	return nil
}

func (u *UoW) session(ctx context.Context) *gorm.DB {
	if u.tx != nil {
		return u.tx.WithContext(ctx)
	}
	return u.db.WithContext(ctx)
}

// AccountRepository returns an account repository bound to the current session.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepository{uow: u}, nil
}

// TransactionRepository returns a ledger repository bound to the current session.
func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	return &transactionRepository{uow: u}, nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
