package memory

import (
	"context"
	"slices"

	"github.com/amirasaad/bankcore/pkg/domain"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/google/uuid"
)

type transactionRepo struct {
	store *Store
	sess  *session
}

// Create implements repository.TransactionRepository.
func (r *transactionRepo) Create(_ context.Context, t *transaction.Transaction) error {
	if r.sess != nil {
		if _, ok := r.sess.stagedTx(t.ID); ok {
			return domain.ErrAlreadyExists
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.txs[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if r.sess != nil {
		r.sess.txs = append(r.sess.txs, t.Clone())
		return nil
	}
	r.store.putTx(t.Clone())
	return nil
}

// Get implements repository.TransactionRepository.
func (r *transactionRepo) Get(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if r.sess != nil {
		if t, ok := r.sess.stagedTx(id); ok {
			return t.Clone(), nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

// ListByAccounts implements repository.TransactionRepository.
func (r *transactionRepo) ListByAccounts(_ context.Context, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	match := func(t *transaction.Transaction) bool {
		return slices.ContainsFunc(ids, t.Involves)
	}
	var out []*transaction.Transaction
	r.store.mu.RLock()
	for _, id := range r.store.txOrder {
		if t := r.store.txs[id]; match(t) {
			out = append(out, t.Clone())
		}
	}
	r.store.mu.RUnlock()
	if r.sess != nil {
		for _, t := range r.sess.txs {
			if match(t) {
				out = append(out, t.Clone())
			}
		}
	}
	// Newest first; insertion order breaks ties.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b *transaction.Transaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

var _ repository.TransactionRepository = (*transactionRepo)(nil)
