package repository

import (
	"context"

	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/google/uuid"
)

type transactionRepository struct {
	uow *UoW
}

func (r *transactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	return WrapError(func() error {
		return r.uow.session(ctx).Create(transactionFromDomain(t)).Error
	})
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var m Transaction
	if err := r.uow.session(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

func (r *transactionRepository) ListByAccounts(ctx context.Context, ids []uuid.UUID) ([]*transaction.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Transaction
	err := r.uow.session(ctx).
		Where("from_account_id IN ? OR to_account_id IN ?", ids, ids).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*transaction.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

var _ repository.TransactionRepository = (*transactionRepository)(nil)
