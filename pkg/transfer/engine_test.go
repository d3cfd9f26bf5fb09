package transfer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/bankcore/infra/eventbus"
	"github.com/amirasaad/bankcore/infra/memory"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/metrics"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/amirasaad/bankcore/pkg/transfer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store  *memory.Store
	bus    *infraeventbus.MemoryEventBus
	engine *transfer.Engine
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.New(opts...)
	bus := infraeventbus.NewWithMemory(discard)
	return &fixture{
		store:  store,
		bus:    bus,
		engine: transfer.New(store, discard, transfer.WithEventBus(bus)),
	}
}

func (f *fixture) open(t *testing.T, balance string, active bool) *account.Account {
	t.Helper()
	a, err := account.New().
		WithUserID(uuid.New()).
		WithBalance(dec(balance)).
		WithActive(active).
		Build()
	require.NoError(t, err)
	repo, err := f.store.AccountRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), a))
	return a.Clone()
}

// load returns a fresh copy of the stored account, as a resolver would.
func (f *fixture) load(t *testing.T, id uuid.UUID) *account.Account {
	t.Helper()
	repo, err := f.store.AccountRepository()
	require.NoError(t, err)
	a, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	return f.load(t, id).Balance
}

func (f *fixture) ledger(t *testing.T, ids ...uuid.UUID) []*transaction.Transaction {
	t.Helper()
	txs, err := f.store.TransactionRepository()
	require.NoError(t, err)
	list, err := txs.ListByAccounts(context.Background(), ids)
	require.NoError(t, err)
	return list
}

func assertBalance(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "balance: want %s, got %s", want, got)
}

func TestTransfer_Success(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "100.00", true)
	b := f.open(t, "50.00", true)

	rec, err := f.engine.Transfer(context.Background(), a, b, dec("30.00"), "rent share")
	require.NoError(t, err)

	assertBalance(t, "70.00", f.balance(t, a.ID))
	assertBalance(t, "80.00", f.balance(t, b.ID))
	assertBalance(t, "70.00", a.Balance)
	assertBalance(t, "80.00", b.Balance)

	assert.Equal(t, transaction.StatusCompleted, rec.Status)
	assert.Equal(t, transaction.Transfer, rec.Type)
	assert.Equal(t, a.ID, *rec.FromAccountID)
	assert.Equal(t, b.ID, *rec.ToAccountID)
	assert.Equal(t, "rent share", rec.Description)

	ledger := f.ledger(t, a.ID, b.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, rec.ID, ledger[0].ID)
	assert.Equal(t, transaction.StatusCompleted, ledger[0].Status)

	published := f.bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, transaction.EventCompleted, published[0].Type())
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "10.00", true)
	b := f.open(t, "5.00", true)

	_, err := f.engine.Transfer(context.Background(), a, b, dec("50.00"), "")
	require.ErrorIs(t, err, transfer.ErrInsufficientFunds)
	assert.ErrorIs(t, err, &transfer.Error{Kind: transfer.KindInsufficientFunds, AccountID: a.ID})

	assertBalance(t, "10.00", f.balance(t, a.ID))
	assertBalance(t, "5.00", f.balance(t, b.ID))
	assert.Empty(t, f.ledger(t, a.ID, b.ID))
}

func TestTransfer_SameAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "100.00", true)

	_, err := f.engine.Transfer(context.Background(), a, f.load(t, a.ID), dec("10.00"), "")
	require.ErrorIs(t, err, transfer.ErrSameAccount)
	assertBalance(t, "100.00", f.balance(t, a.ID))
	assert.Empty(t, f.ledger(t, a.ID))
}

func TestTransfer_InactiveAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	active := f.open(t, "100.00", true)
	inactive := f.open(t, "100.00", false)

	_, err := f.engine.Transfer(context.Background(), inactive, active, dec("10.00"), "")
	require.ErrorIs(t, err, &transfer.Error{Kind: transfer.KindAccountInactive, AccountID: inactive.ID})

	_, err = f.engine.Transfer(context.Background(), active, inactive, dec("10.00"), "")
	require.ErrorIs(t, err, &transfer.Error{Kind: transfer.KindAccountInactive, AccountID: inactive.ID})

	assertBalance(t, "100.00", f.balance(t, active.ID))
	assertBalance(t, "100.00", f.balance(t, inactive.ID))
	assert.Empty(t, f.ledger(t, active.ID, inactive.ID))
}

func TestTransfer_InvalidAmount(t *testing.T) {
	t.Parallel()
	for _, amount := range []string{"0", "0.00", "-5", "-0.01", "0.001", "12.345"} {
		t.Run(amount, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			a := f.open(t, "100.00", true)
			b := f.open(t, "0", true)

			_, err := f.engine.Transfer(context.Background(), a, b, dec(amount), "")
			require.ErrorIs(t, err, transfer.ErrInvalidAmount)
			assertBalance(t, "100.00", f.balance(t, a.ID))
			assertBalance(t, "0", f.balance(t, b.ID))
		})
	}
}

func TestTransfer_PreconditionOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	rich := f.open(t, "100.00", true)
	poor := f.open(t, "1.00", true)
	closedPoor := f.open(t, "1.00", false)
	closedRich := f.open(t, "100.00", false)

	tests := []struct {
		name   string
		source *account.Account
		dest   *account.Account
		amount string
		want   *transfer.Error
	}{
		{"amount before same account", rich, rich, "0", transfer.ErrInvalidAmount},
		{"same account before inactive", closedPoor, closedPoor, "5", transfer.ErrSameAccount},
		{"source inactive before destination inactive", closedPoor, closedRich, "5",
			&transfer.Error{Kind: transfer.KindAccountInactive, AccountID: closedPoor.ID}},
		{"destination inactive before funds", poor, closedRich, "5",
			&transfer.Error{Kind: transfer.KindAccountInactive, AccountID: closedRich.ID}},
		{"funds last", poor, rich, "5", transfer.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Transfer(context.Background(), tt.source, tt.dest, dec(tt.amount), "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransfer_NilAccountIsNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "1", true)
	_, err := f.engine.Transfer(context.Background(), a, nil, dec("1"), "")
	assert.ErrorIs(t, err, transfer.ErrAccountNotFound)
}

func TestTransfer_RevalidatesUnderLock(t *testing.T) {
	t.Parallel()

	t.Run("balance drained after resolution", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		a := f.open(t, "100.00", true)
		b := f.open(t, "0", true)
		c := f.open(t, "0", true)

		stale := f.load(t, a.ID)
		_, err := f.engine.Transfer(context.Background(), a, c, dec("95.00"), "")
		require.NoError(t, err)

		_, err = f.engine.Transfer(context.Background(), stale, b, dec("10.00"), "")
		require.ErrorIs(t, err, transfer.ErrInsufficientFunds)
		assertBalance(t, "5.00", f.balance(t, a.ID))
		assertBalance(t, "0", f.balance(t, b.ID))
	})

	t.Run("destination closed after resolution", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		a := f.open(t, "100.00", true)
		b := f.open(t, "0", true)

		closed := f.load(t, b.ID)
		closed.Deactivate(time.Now())
		repo, _ := f.store.AccountRepository()
		require.NoError(t, repo.Update(context.Background(), closed))

		_, err := f.engine.Transfer(context.Background(), a, b, dec("10.00"), "")
		require.ErrorIs(t, err, &transfer.Error{Kind: transfer.KindAccountInactive, AccountID: b.ID})
		assertBalance(t, "100.00", f.balance(t, a.ID))
		assert.Empty(t, f.ledger(t, a.ID, b.ID))
	})
}

func TestTransfer_ConcurrentOverdraftPrevented(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "100.00", true)
	b := f.open(t, "0", true)
	c := f.open(t, "0", true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, dest := range []*account.Account{b, c} {
		source := f.load(t, a.ID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.engine.Transfer(context.Background(), source, dest, dec("60.00"), "")
		}()
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, transfer.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assertBalance(t, "40.00", f.balance(t, a.ID))
	assertBalance(t, "60.00", f.balance(t, b.ID).Add(f.balance(t, c.ID)))
}

func TestTransfer_ConcurrentFloorSuccesses(t *testing.T) {
	t.Parallel()
	const n = 30
	f := newFixture(t)
	x := f.open(t, "100.00", true)
	amount := dec("7.00")

	var wg sync.WaitGroup
	var succeeded, insufficient atomic.Int32
	for range n {
		source := f.load(t, x.ID)
		dest := f.open(t, "0", true)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Transfer(context.Background(), source, dest, amount, "")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, transfer.ErrInsufficientFunds):
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 14, succeeded.Load())
	assert.EqualValues(t, n-14, insufficient.Load())
	assertBalance(t, "2.00", f.balance(t, x.ID))
	assert.Len(t, f.ledger(t, x.ID), 14)
}

func TestTransfer_OppositeDirectionsDoNotDeadlock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "500.00", true)
	b := f.open(t, "500.00", true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := range 100 {
		src, dst := a.ID, b.ID
		if i%2 == 1 {
			src, dst = dst, src
		}
		source, dest := f.load(t, src), f.load(t, dst)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Transfer(ctx, source, dest, dec("1.00"), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, ctx.Err())

	assertBalance(t, "1000.00", f.balance(t, a.ID).Add(f.balance(t, b.ID)))
	assertBalance(t, "500.00", f.balance(t, a.ID))
}

func TestTransfer_ConservationAndExactDeltas(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	accounts := []*account.Account{
		f.open(t, "250.00", true),
		f.open(t, "75.50", true),
		f.open(t, "0.99", true),
		f.open(t, "1000.00", true),
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}

	rng := rand.New(rand.NewPCG(7, 11))
	for range 200 {
		i, j := rng.IntN(len(accounts)), rng.IntN(len(accounts))
		if i == j {
			continue
		}
		amount := decimal.New(int64(rng.IntN(20000)+1), -2)
		src, dst := f.load(t, accounts[i].ID), f.load(t, accounts[j].ID)
		srcBefore, dstBefore := src.Balance, dst.Balance

		_, err := f.engine.Transfer(context.Background(), src, dst, amount, "")
		srcAfter, dstAfter := f.balance(t, src.ID), f.balance(t, dst.ID)
		if err != nil {
			require.ErrorIs(t, err, transfer.ErrInsufficientFunds)
			assert.True(t, srcBefore.LessThan(amount))
			assert.True(t, srcAfter.Equal(srcBefore))
			assert.True(t, dstAfter.Equal(dstBefore))
			continue
		}
		assert.True(t, dstAfter.Sub(dstBefore).Equal(amount))
		assert.True(t, srcBefore.Sub(srcAfter).Equal(amount))
		assert.True(t, srcAfter.Add(dstAfter).Equal(srcBefore.Add(dstBefore)))
		assert.False(t, srcAfter.IsNegative())
	}

	sum := decimal.Zero
	for _, a := range accounts {
		sum = sum.Add(f.balance(t, a.ID))
	}
	assert.True(t, total.Equal(sum), "total %s, got %s", total, sum)
}

func TestTransfer_PersistenceFailure(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	outage := errors.New("connection reset by peer")
	f := newFixture(t, memory.WithCommitHook(func(context.Context) error {
		if calls.Add(1) == 1 {
			return outage
		}
		return nil
	}))
	a := f.open(t, "100.00", true)
	b := f.open(t, "50.00", true)

	_, err := f.engine.Transfer(context.Background(), a, b, dec("30.00"), "retry me")
	require.ErrorIs(t, err, transfer.ErrPersistenceFailure)
	assert.ErrorIs(t, err, outage)
	assert.True(t, transfer.IsRetryable(err))

	assertBalance(t, "100.00", f.balance(t, a.ID))
	assertBalance(t, "50.00", f.balance(t, b.ID))
	assertBalance(t, "100.00", a.Balance)

	ledger := f.ledger(t, a.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, transaction.StatusFailed, ledger[0].Status)
	assert.Contains(t, ledger[0].FailureReason, "connection reset by peer")

	published := f.bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, transaction.EventFailed, published[0].Type())

	// no partial effect, so the caller may retry with the same arguments
	rec, err := f.engine.Transfer(context.Background(), a, b, dec("30.00"), "retry me")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, rec.Status)
	assertBalance(t, "70.00", f.balance(t, a.ID))
	assertBalance(t, "80.00", f.balance(t, b.ID))
	assert.Len(t, f.ledger(t, a.ID), 2)
}

var errLockTimeout = errors.New("lock wait timeout exceeded")

// lockFailingUoW fails before any mutation is attempted.
type lockFailingUoW struct{ *memory.Store }

func (u lockFailingUoW) Do(ctx context.Context, fn func(repository.UnitOfWork) error) error {
	return u.Store.Do(ctx, func(inner repository.UnitOfWork) error {
		return fn(lockFailingUnit{inner})
	})
}

type lockFailingUnit struct{ repository.UnitOfWork }

func (lockFailingUnit) AccountRepository() (repository.AccountRepository, error) {
	return nil, errLockTimeout
}

func TestTransfer_FailureBeforeMutationWritesNoRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "100.00", true)
	b := f.open(t, "0", true)
	engine := transfer.New(lockFailingUoW{f.store}, discard)

	_, err := engine.Transfer(context.Background(), a, b, dec("1.00"), "")
	require.ErrorIs(t, err, transfer.ErrPersistenceFailure)
	assert.ErrorIs(t, err, errLockTimeout)
	assert.Empty(t, f.ledger(t, a.ID, b.ID))
	assertBalance(t, "100.00", f.balance(t, a.ID))
}

func TestTransfer_CanceledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "100.00", true)
	b := f.open(t, "0", true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.engine.Transfer(ctx, a, b, dec("1.00"), "")
	require.ErrorIs(t, err, transfer.ErrPersistenceFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assertBalance(t, "100.00", f.balance(t, a.ID))
}

func TestTransfer_NotIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "100.00", true)
	b := f.open(t, "0", true)

	for range 2 {
		_, err := f.engine.Transfer(context.Background(), a, b, dec("10.00"), "same request")
		require.NoError(t, err)
	}
	assertBalance(t, "80.00", f.balance(t, a.ID))
	assert.Len(t, f.ledger(t, a.ID), 2)
}

func TestTransfer_CustomScale(t *testing.T) {
	t.Parallel()
	store := memory.New()
	engine := transfer.New(store, discard, transfer.WithScale(0))
	f := &fixture{store: store, engine: engine, bus: infraeventbus.NewWithMemory(discard)}
	a := f.open(t, "100", true)
	b := f.open(t, "0", true)

	_, err := engine.Transfer(context.Background(), a, b, dec("1.50"), "")
	assert.ErrorIs(t, err, transfer.ErrInvalidAmount)
	_, err = engine.Transfer(context.Background(), a, b, dec("2"), "")
	assert.NoError(t, err)
	assert.EqualValues(t, 0, engine.Scale())
}

func TestDeposit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "10.00", true)
	closed := f.open(t, "0", false)

	rec, err := f.engine.Deposit(context.Background(), a, dec("5.25"), "salary")
	require.NoError(t, err)
	assert.Equal(t, transaction.Deposit, rec.Type)
	assert.Nil(t, rec.FromAccountID)
	assert.Equal(t, a.ID, *rec.ToAccountID)
	assertBalance(t, "15.25", f.balance(t, a.ID))
	assertBalance(t, "15.25", a.Balance)

	_, err = f.engine.Deposit(context.Background(), closed, dec("1"), "")
	assert.ErrorIs(t, err, transfer.ErrAccountInactive)
	_, err = f.engine.Deposit(context.Background(), a, dec("-1"), "")
	assert.ErrorIs(t, err, transfer.ErrInvalidAmount)
	_, err = f.engine.Deposit(context.Background(), nil, dec("1"), "")
	assert.ErrorIs(t, err, transfer.ErrAccountNotFound)
}

func TestWithdraw(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.open(t, "10.00", true)

	rec, err := f.engine.Withdraw(context.Background(), a, dec("4.00"), "atm")
	require.NoError(t, err)
	assert.Equal(t, transaction.Withdrawal, rec.Type)
	assert.Nil(t, rec.ToAccountID)
	assertBalance(t, "6.00", f.balance(t, a.ID))

	_, err = f.engine.Withdraw(context.Background(), a, dec("6.01"), "")
	assert.ErrorIs(t, err, transfer.ErrInsufficientFunds)
	assertBalance(t, "6.00", f.balance(t, a.ID))

	stale := f.load(t, a.ID)
	_, err = f.engine.Withdraw(context.Background(), a, dec("6.00"), "")
	require.NoError(t, err)
	_, err = f.engine.Withdraw(context.Background(), stale, dec("1.00"), "")
	assert.ErrorIs(t, err, transfer.ErrInsufficientFunds)
	assertBalance(t, "0", f.balance(t, a.ID))
}

type recorderMock struct{ mock.Mock }

func (m *recorderMock) ObserveOperation(operation, outcome, reason string, took time.Duration) {
	m.Called(operation, outcome, reason, took)
}

func TestEngine_RecordsMetrics(t *testing.T) {
	t.Parallel()
	store := memory.New()
	rec := &recorderMock{}
	rec.On("ObserveOperation", "transfer", metrics.OutcomeSuccess, "", mock.AnythingOfType("time.Duration")).Once()
	rec.On("ObserveOperation", "transfer", metrics.OutcomeRejected, "insufficient_funds", mock.AnythingOfType("time.Duration")).Once()
	rec.On("ObserveOperation", "deposit", metrics.OutcomeRejected, "invalid_amount", mock.AnythingOfType("time.Duration")).Once()

	engine := transfer.New(store, discard, transfer.WithMetrics(rec))
	f := &fixture{store: store, engine: engine}
	a := f.open(t, "10", true)
	b := f.open(t, "0", true)

	_, err := engine.Transfer(context.Background(), a, b, dec("10"), "")
	require.NoError(t, err)
	_, err = engine.Transfer(context.Background(), a, b, dec("10"), "")
	require.Error(t, err)
	_, err = engine.Deposit(context.Background(), a, dec("0"), "")
	require.Error(t, err)

	rec.AssertExpectations(t)
}

func TestLockOrder(t *testing.T) {
	t.Parallel()
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")
	assert.Equal(t, []uuid.UUID{low, high}, transfer.LockOrder(high, low))
	assert.Equal(t, []uuid.UUID{low, high}, transfer.LockOrder(low, high))
	assert.Equal(t, []uuid.UUID{low}, transfer.LockOrder(low, low))
}
