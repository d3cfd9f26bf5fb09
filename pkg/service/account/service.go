// Package account resolves accounts on behalf of an authenticated principal and hands
// them to the transfer engine. It also opens, lists and deactivates accounts and lists
// the caller's ledger.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/bankcore/pkg/domain"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/domain/user"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/amirasaad/bankcore/pkg/transfer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides account operations for a principal.
type Service struct {
	uow    repository.UnitOfWork
	engine *transfer.Engine
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service over uow that moves money through engine.
func New(uow repository.UnitOfWork, engine *transfer.Engine, logger *slog.Logger) *Service {
	return &Service{
		uow:    uow,
		engine: engine,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Scale returns the minor-unit precision amounts are validated against.
func (s *Service) Scale() int32 { return s.engine.Scale() }

// Transfer moves amount from the principal's account fromID to any account toID.
// The source must be owned by the principal unless the principal is an admin; a source
// the principal may not operate is reported as not found. The destination is resolved by
// id only.
func (s *Service) Transfer(
	ctx context.Context,
	p user.Principal,
	fromID, toID uuid.UUID,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error) {
	source, err := s.resolve(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if !p.CanOperate(source.UserID) {
		s.logger.Warn("transfer from foreign account", "user_id", p.UserID, "account_id", fromID)
		return nil, transfer.NotFound(fromID, domain.ErrNotFound)
	}
	destination, err := s.resolve(ctx, toID)
	if err != nil {
		return nil, err
	}
	return s.engine.Transfer(ctx, source, destination, amount, description)
}

// Deposit credits the principal's account id with amount.
func (s *Service) Deposit(
	ctx context.Context,
	p user.Principal,
	id uuid.UUID,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error) {
	a, err := s.resolveOperable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Deposit(ctx, a, amount, description)
}

// Withdraw debits the principal's account id by amount.
func (s *Service) Withdraw(
	ctx context.Context,
	p user.Principal,
	id uuid.UUID,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error) {
	a, err := s.resolveOperable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Withdraw(ctx, a, amount, description)
}

// OpenAccount creates an active, empty account of type typ owned by the principal.
func (s *Service) OpenAccount(
	ctx context.Context,
	p user.Principal,
	typ account.Type,
	interestRate decimal.Decimal,
) (*account.Account, error) {
	if typ == "" {
		typ = account.Checking
	}
	now := s.now()
	a, err := account.New().
		WithUserID(p.UserID).
		WithType(typ).
		WithInterestRate(interestRate).
		WithCreatedAt(now).
		WithUpdatedAt(now).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		return repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account opened", "account_id", a.ID, "user_id", a.UserID, "type", a.Type)
	return a, nil
}

// GetAccount returns account id if the principal may manage it.
func (s *Service) GetAccount(ctx context.Context, p user.Principal, id uuid.UUID) (*account.Account, error) {
	a, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanManage(a.UserID) {
		return nil, fmt.Errorf("%w: account %s", domain.ErrForbidden, id)
	}
	return a, nil
}

// ListAccounts returns the principal's own accounts.
func (s *Service) ListAccounts(ctx context.Context, p user.Principal) ([]*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByUser(ctx, p.UserID)
}

// ListAccountsForUser returns the accounts of userID. Only admins and staff may list
// another user's accounts.
func (s *Service) ListAccountsForUser(ctx context.Context, p user.Principal, userID uuid.UUID) ([]*account.Account, error) {
	if !p.CanManage(userID) {
		return nil, fmt.Errorf("%w: accounts of user %s", domain.ErrForbidden, userID)
	}
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByUser(ctx, userID)
}

// Deactivate soft-closes account id. The account row is locked so the change cannot
// interleave with a running transfer.
func (s *Service) Deactivate(ctx context.Context, p user.Principal, id uuid.UUID) (*account.Account, error) {
	var closed *account.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := repo.Lock(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return transfer.NotFound(id, err)
			}
			return err
		}
		if !p.CanManage(a.UserID) {
			return fmt.Errorf("%w: account %s", domain.ErrForbidden, id)
		}
		a.Deactivate(s.now())
		closed = a
		return repo.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account deactivated", "account_id", id, "by", p.UserID)
	return closed, nil
}

// ListTransactions returns the ledger records touching any of the principal's accounts,
// newest first.
func (s *Service) ListTransactions(ctx context.Context, p user.Principal) ([]*transaction.Transaction, error) {
	accounts, err := s.ListAccounts(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return []*transaction.Transaction{}, nil
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return txs.ListByAccounts(ctx, ids)
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, transfer.NewError(transfer.KindPersistenceFailure, id, err)
	}
	a, err := repo.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, transfer.NotFound(id, err)
	case err != nil:
		return nil, transfer.NewError(transfer.KindPersistenceFailure, id, err)
	}
	return a, nil
}

func (s *Service) resolveOperable(ctx context.Context, p user.Principal, id uuid.UUID) (*account.Account, error) {
	a, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanOperate(a.UserID) {
		return nil, fmt.Errorf("%w: account %s", domain.ErrForbidden, id)
	}
	return a, nil
}
