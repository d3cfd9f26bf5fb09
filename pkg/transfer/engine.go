// Package transfer moves money between accounts.
//
// The Engine validates a request against the resolved accounts, then re-reads both
// accounts under exclusive locks taken in ascending id order, re-validates, and applies
// the debit, the credit and the ledger record in one unit of work. Either all three
// land or none do.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/amirasaad/bankcore/pkg/domain"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/eventbus"
	"github.com/amirasaad/bankcore/pkg/metrics"
	"github.com/amirasaad/bankcore/pkg/money"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	opTransfer = "transfer"
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
)

// Engine performs transfers, deposits and withdrawals. It is safe for concurrent use.
// Calls are not idempotent: repeating a call moves the money again.
type Engine struct {
	uow     repository.UnitOfWork
	logger  *slog.Logger
	bus     eventbus.Bus
	metrics metrics.Recorder
	scale   int32
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithScale sets the number of minor-unit digits an amount may carry.
func WithScale(scale int32) Option {
	return func(e *Engine) { e.scale = scale }
}

// WithEventBus publishes ledger events after each finished operation.
func WithEventBus(bus eventbus.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics reports every operation to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithClock overrides the time source used for record and balance timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine committing through uow.
func New(uow repository.UnitOfWork, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		uow:     uow,
		logger:  logger.With("component", "transfer-engine"),
		metrics: metrics.Nop{},
		scale:   money.DefaultScale,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scale returns the configured minor-unit precision.
func (e *Engine) Scale() int32 { return e.scale }

// Transfer debits source and credits destination by amount and records a completed
// transfer. Preconditions are checked in order: amount, distinct accounts, source active,
// destination active, sufficient funds. On success source and destination are refreshed
// with the committed state.
func (e *Engine) Transfer(
	ctx context.Context,
	source, destination *account.Account,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error) {
	start := time.Now()
	logger := e.logger.With("operation", opTransfer, "amount", amount.String())

	if err := e.checkTransfer(source, destination, amount); err != nil {
		return nil, e.reject(logger, opTransfer, start, err)
	}
	logger = logger.With("source_id", source.ID, "destination_id", destination.ID)
	logger.Info("transfer started")

	srcID, dstID := source.ID, destination.ID
	record, err := transaction.New(transaction.Transfer, &srcID, &dstID, amount, description, e.now())
	if err != nil {
		return nil, e.reject(logger, opTransfer, start, NewError(KindInvalidAmount, uuid.Nil, err))
	}

	done, locked, err := e.execute(ctx, record, []uuid.UUID{srcID, dstID}, func(locked map[uuid.UUID]*account.Account, at time.Time) error {
		src, dst := locked[srcID], locked[dstID]
		if err := checkActive(src); err != nil {
			return err
		}
		if err := checkActive(dst); err != nil {
			return err
		}
		if err := checkFunds(src, amount); err != nil {
			return err
		}
		if err := src.Debit(amount, at); err != nil {
			return NewError(KindInsufficientFunds, src.ID, err)
		}
		if err := dst.Credit(amount, at); err != nil {
			return NewError(KindInvalidAmount, dst.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, e.fail(ctx, logger, opTransfer, start, record, err)
	}

	refresh(source, locked[srcID])
	refresh(destination, locked[dstID])
	logger.Info("transfer completed", "transaction_id", done.ID)
	e.finish(ctx, logger, opTransfer, start, done)
	return done, nil
}

// Deposit credits destination by amount from outside the bank and records a completed deposit.
func (e *Engine) Deposit(
	ctx context.Context,
	destination *account.Account,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error) {
	start := time.Now()
	logger := e.logger.With("operation", opDeposit, "amount", amount.String())

	if err := e.checkAmount(amount); err != nil {
		return nil, e.reject(logger, opDeposit, start, err)
	}
	if destination == nil {
		return nil, e.reject(logger, opDeposit, start, NotFound(uuid.Nil, account.ErrMissingOwner))
	}
	if err := checkActive(destination); err != nil {
		return nil, e.reject(logger, opDeposit, start, err)
	}
	logger = logger.With("destination_id", destination.ID)
	logger.Info("deposit started")

	dstID := destination.ID
	record, err := transaction.New(transaction.Deposit, nil, &dstID, amount, description, e.now())
	if err != nil {
		return nil, e.reject(logger, opDeposit, start, NewError(KindInvalidAmount, uuid.Nil, err))
	}

	done, locked, err := e.execute(ctx, record, []uuid.UUID{dstID}, func(locked map[uuid.UUID]*account.Account, at time.Time) error {
		dst := locked[dstID]
		if err := checkActive(dst); err != nil {
			return err
		}
		if err := dst.Credit(amount, at); err != nil {
			return NewError(KindInvalidAmount, dst.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, e.fail(ctx, logger, opDeposit, start, record, err)
	}

	refresh(destination, locked[dstID])
	logger.Info("deposit completed", "transaction_id", done.ID)
	e.finish(ctx, logger, opDeposit, start, done)
	return done, nil
}

// Withdraw debits source by amount out of the bank and records a completed withdrawal.
func (e *Engine) Withdraw(
	ctx context.Context,
	source *account.Account,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error) {
	start := time.Now()
	logger := e.logger.With("operation", opWithdraw, "amount", amount.String())

	if err := e.checkAmount(amount); err != nil {
		return nil, e.reject(logger, opWithdraw, start, err)
	}
	if source == nil {
		return nil, e.reject(logger, opWithdraw, start, NotFound(uuid.Nil, account.ErrMissingOwner))
	}
	if err := checkActive(source); err != nil {
		return nil, e.reject(logger, opWithdraw, start, err)
	}
	if err := checkFunds(source, amount); err != nil {
		return nil, e.reject(logger, opWithdraw, start, err)
	}
	logger = logger.With("source_id", source.ID)
	logger.Info("withdraw started")

	srcID := source.ID
	record, err := transaction.New(transaction.Withdrawal, &srcID, nil, amount, description, e.now())
	if err != nil {
		return nil, e.reject(logger, opWithdraw, start, NewError(KindInvalidAmount, uuid.Nil, err))
	}

	done, locked, err := e.execute(ctx, record, []uuid.UUID{srcID}, func(locked map[uuid.UUID]*account.Account, at time.Time) error {
		src := locked[srcID]
		if err := checkActive(src); err != nil {
			return err
		}
		if err := checkFunds(src, amount); err != nil {
			return err
		}
		if err := src.Debit(amount, at); err != nil {
			return NewError(KindInsufficientFunds, src.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, e.fail(ctx, logger, opWithdraw, start, record, err)
	}

	refresh(source, locked[srcID])
	logger.Info("withdraw completed", "transaction_id", done.ID)
	e.finish(ctx, logger, opWithdraw, start, done)
	return done, nil
}

func (e *Engine) checkAmount(amount decimal.Decimal) error {
	if err := money.Validate(amount, e.scale); err != nil {
		return NewError(KindInvalidAmount, uuid.Nil, err)
	}
	return nil
}

func (e *Engine) checkTransfer(source, destination *account.Account, amount decimal.Decimal) error {
	if err := e.checkAmount(amount); err != nil {
		return err
	}
	if source == nil || destination == nil {
		return NotFound(uuid.Nil, errors.New("account not resolved"))
	}
	if source.ID == destination.ID {
		return NewError(KindSameAccount, source.ID, nil)
	}
	if err := checkActive(source); err != nil {
		return err
	}
	if err := checkActive(destination); err != nil {
		return err
	}
	return checkFunds(source, amount)
}

func checkActive(a *account.Account) error {
	if !a.Active {
		return NewError(KindAccountInactive, a.ID, nil)
	}
	return nil
}

func checkFunds(a *account.Account, amount decimal.Decimal) error {
	if !a.HasSufficientFunds(amount) {
		return NewError(KindInsufficientFunds, a.ID, nil)
	}
	return nil
}

// execute locks ids in ascending order, lets apply validate and mutate the locked
// accounts, then writes the accounts and the completed record in the same unit of work.
// The returned error is either an *Error raised by validation or a raw storage error.
func (e *Engine) execute(
	ctx context.Context,
	record *transaction.Transaction,
	ids []uuid.UUID,
	apply func(locked map[uuid.UUID]*account.Account, at time.Time) error,
) (*transaction.Transaction, map[uuid.UUID]*account.Account, error) {
	var (
		done   *transaction.Transaction
		locked map[uuid.UUID]*account.Account
	)
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		order := LockOrder(ids...)
		held, err := lockAll(ctx, accounts, order)
		if err != nil {
			return err
		}

		at := e.now()
		if err := apply(held, at); err != nil {
			return err
		}
		for _, id := range order {
			if err := accounts.Update(ctx, held[id]); err != nil {
				return markMutated(err)
			}
		}
		completed := record.Clone()
		if err := completed.Complete(at); err != nil {
			return err
		}
		if err := txs.Create(ctx, completed); err != nil {
			return markMutated(err)
		}
		done, locked = completed, held
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return done, locked, nil
}

// LockOrder returns ids de-duplicated and sorted ascending by their byte value, the
// global order in which account locks are acquired.
func LockOrder(ids ...uuid.UUID) []uuid.UUID {
	order := slices.Clone(ids)
	slices.SortFunc(order, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(order)
}

func lockAll(ctx context.Context, accounts repository.AccountRepository, order []uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	held := make(map[uuid.UUID]*account.Account, len(order))
	for _, id := range order {
		a, err := accounts.Lock(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, NotFound(id, err)
			}
			return nil, err
		}
		held[id] = a
	}
	return held, nil
}

// mutationError marks a storage error raised after writes were issued.
type mutationError struct{ err error }

func (m *mutationError) Error() string { return m.err.Error() }
func (m *mutationError) Unwrap() error { return m.err }

func markMutated(err error) error { return &mutationError{err: err} }

func (e *Engine) reject(logger *slog.Logger, op string, start time.Time, err error) error {
	logger.Warn(op+" rejected", "reason", KindOf(err).String(), "error", err)
	e.observe(op, start, err)
	return err
}

// fail turns an error from the unit of work into the error returned to the caller.
// Validation errors raised under lock pass through. Anything else is a persistence
// failure; if writes had been issued a failed record is stored in a fresh unit.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, op string, start time.Time, record *transaction.Transaction, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return e.reject(logger, op, start, typed)
	}

	logger.Error(op+" failed: commit aborted", "error", err)
	var mutated *mutationError
	if errors.As(err, &mutated) || repository.IsCommitError(err) {
		e.recordFailure(ctx, logger, record, err)
	}
	perr := NewError(KindPersistenceFailure, uuid.Nil, err)
	e.observe(op, start, perr)
	return perr
}

func (e *Engine) recordFailure(ctx context.Context, logger *slog.Logger, record *transaction.Transaction, cause error) {
	failed := record.Clone()
	if err := failed.Fail(cause.Error(), e.now()); err != nil {
		logger.Error("failed to mark record failed", "error", err)
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		return txs.Create(ctx, failed)
	})
	if err != nil {
		logger.Error("failed to store failed record", "transaction_id", failed.ID, "error", err)
		return
	}
	logger.Info("failed record stored", "transaction_id", failed.ID)
	e.emit(ctx, logger, transaction.FailedEvent{Transaction: failed})
}

func (e *Engine) finish(ctx context.Context, logger *slog.Logger, op string, start time.Time, done *transaction.Transaction) {
	e.emit(ctx, logger, transaction.CompletedEvent{Transaction: done})
	e.observe(op, start, nil)
}

func (e *Engine) emit(ctx context.Context, logger *slog.Logger, event eventbus.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Emit(ctx, event); err != nil {
		logger.Warn("failed to emit event", "type", event.Type(), "error", err)
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	outcome, reason := metrics.OutcomeSuccess, ""
	if err != nil {
		kind := KindOf(err)
		reason = kind.String()
		outcome = metrics.OutcomeRejected
		if kind == KindPersistenceFailure {
			outcome = metrics.OutcomeFailed
		}
	}
	e.metrics.ObserveOperation(op, outcome, reason, time.Since(start))
}

// refresh copies the committed state of a locked account into the caller's entity.
func refresh(dst, committed *account.Account) {
	if dst == nil || committed == nil {
		return
	}
	dst.Balance = committed.Balance
	dst.Active = committed.Active
	dst.UpdatedAt = committed.UpdatedAt
}
