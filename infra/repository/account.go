package repository

import (
	"context"

	"github.com/amirasaad/bankcore/pkg/domain"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	uow *UoW
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	if err := r.uow.session(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

// Lock reads the row with SELECT ... FOR UPDATE. The row lock lasts until the
// surrounding transaction ends.
func (r *accountRepository) Lock(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	err := r.uow.session(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	return WrapError(func() error {
		return r.uow.session(ctx).Create(accountFromDomain(a)).Error
	})
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	res := r.uow.session(ctx).
		Model(&Account{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"balance":       a.Balance,
			"interest_rate": a.InterestRate,
			"active":        a.Active,
			"updated_at":    a.UpdatedAt,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	var rows []Account
	err := r.uow.session(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*account.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

var _ repository.AccountRepository = (*accountRepository)(nil)
