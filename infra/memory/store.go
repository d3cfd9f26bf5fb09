// Package memory provides an in-process UnitOfWork for accounts and ledger records.
//
// Writes made inside Do are staged and applied atomically when fn returns nil.
// AccountRepository.Lock takes a per-account exclusive lock that is held until Do returns;
// acquiring it honours context cancellation.
package memory

import (
	"context"
	"sync"

	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/google/uuid"
)

// Store holds committed state.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*account.Account
	txs      map[uuid.UUID]*transaction.Transaction
	txOrder  []uuid.UUID

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}

	commitHook func(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithCommitHook runs hook right before staged writes are applied. A non-nil error
// aborts the commit and discards every staged write.
func WithCommitHook(hook func(ctx context.Context) error) Option {
	return func(s *Store) { s.commitHook = hook }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[uuid.UUID]*account.Account),
		txs:      make(map[uuid.UUID]*transaction.Transaction),
		locks:    make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do implements repository.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	sess := newSession(s)
	defer sess.release()

	if err := fn(sess); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &repository.CommitError{Err: err}
	}
	if s.commitHook != nil {
		if err := s.commitHook(ctx); err != nil {
			return &repository.CommitError{Err: err}
		}
	}
	s.apply(sess)
	return nil
}

// AccountRepository implements repository.UnitOfWork. Writes through it commit immediately.
func (s *Store) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepo{store: s}, nil
}

// TransactionRepository implements repository.UnitOfWork. Writes through it commit immediately.
func (s *Store) TransactionRepository() (repository.TransactionRepository, error) {
	return &transactionRepo{store: s}, nil
}

func (s *Store) apply(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range sess.accounts {
		s.accounts[id] = a
	}
	for _, t := range sess.txs {
		s.putTx(t)
	}
}

// putTx stores t. Callers hold s.mu.
func (s *Store) putTx(t *transaction.Transaction) {
	if _, ok := s.txs[t.ID]; !ok {
		s.txOrder = append(s.txOrder, t.ID)
	}
	s.txs[t.ID] = t
}

func (s *Store) lockFor(id uuid.UUID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

func (s *Store) committedAccount(id uuid.UUID) (*account.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	return a, ok
}

var _ repository.UnitOfWork = (*Store)(nil)

// session is the UnitOfWork handed to fn. It stages writes and remembers held locks.
type session struct {
	store    *Store
	accounts map[uuid.UUID]*account.Account
	txs      []*transaction.Transaction
	held     []uuid.UUID
}

func newSession(s *Store) *session {
	return &session{store: s, accounts: make(map[uuid.UUID]*account.Account)}
}

// Do joins the enclosing unit.
func (u *session) Do(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(u)
}

func (u *session) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepo{store: u.store, sess: u}, nil
}

func (u *session) TransactionRepository() (repository.TransactionRepository, error) {
	return &transactionRepo{store: u.store, sess: u}, nil
}

func (u *session) holds(id uuid.UUID) bool {
	for _, h := range u.held {
		if h == id {
			return true
		}
	}
	return false
}

func (u *session) acquire(ctx context.Context, id uuid.UUID) error {
	if u.holds(id) {
		return nil
	}
	select {
	case u.store.lockFor(id) <- struct{}{}:
		u.held = append(u.held, id)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *session) release() {
	for i := len(u.held) - 1; i >= 0; i-- {
		<-u.store.lockFor(u.held[i])
	}
	u.held = nil
}

func (u *session) stagedTx(id uuid.UUID) (*transaction.Transaction, bool) {
	for _, t := range u.txs {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

var _ repository.UnitOfWork = (*session)(nil)
