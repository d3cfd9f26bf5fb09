package memory

import (
	"context"
	"slices"

	"github.com/amirasaad/bankcore/pkg/domain"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/google/uuid"
)

type accountRepo struct {
	store *Store
	sess  *session // nil outside Do
}

func (r *accountRepo) lookup(id uuid.UUID) (*account.Account, bool) {
	if r.sess != nil {
		if a, ok := r.sess.accounts[id]; ok {
			return a, true
		}
	}
	return r.store.committedAccount(id)
}

// Get implements repository.AccountRepository.
func (r *accountRepo) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := r.lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a.Clone(), nil
}

// Lock implements repository.AccountRepository.
func (r *accountRepo) Lock(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if r.sess == nil {
		return r.Get(ctx, id)
	}
	if _, ok := r.lookup(id); !ok {
		return nil, domain.ErrNotFound
	}
	if err := r.sess.acquire(ctx, id); err != nil {
		return nil, err
	}
	// Re-read after acquiring: the committed row may have changed while waiting.
	return r.Get(ctx, id)
}

// Create implements repository.AccountRepository.
func (r *accountRepo) Create(_ context.Context, a *account.Account) error {
	if _, ok := r.lookup(a.ID); ok {
		return domain.ErrAlreadyExists
	}
	if r.sess != nil {
		r.sess.accounts[a.ID] = a.Clone()
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[a.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.store.accounts[a.ID] = a.Clone()
	return nil
}

// Update implements repository.AccountRepository.
func (r *accountRepo) Update(_ context.Context, a *account.Account) error {
	if _, ok := r.lookup(a.ID); !ok {
		return domain.ErrNotFound
	}
	if r.sess != nil {
		r.sess.accounts[a.ID] = a.Clone()
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.accounts[a.ID] = a.Clone()
	return nil
}

// ListByUser implements repository.AccountRepository. Accounts are ordered by creation time.
func (r *accountRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*account.Account, error) {
	seen := make(map[uuid.UUID]struct{})
	var out []*account.Account
	if r.sess != nil {
		for id, a := range r.sess.accounts {
			if a.UserID == userID {
				out = append(out, a.Clone())
				seen[id] = struct{}{}
			}
		}
	}
	r.store.mu.RLock()
	for id, a := range r.store.accounts {
		if _, dup := seen[id]; dup || a.UserID != userID {
			continue
		}
		out = append(out, a.Clone())
	}
	r.store.mu.RUnlock()

	slices.SortFunc(out, func(a, b *account.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

var _ repository.AccountRepository = (*accountRepo)(nil)
