package repository

import (
	"time"

	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents an account row.
type Account struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Number       string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	Type         string          `gorm:"type:varchar(16);not null"`
	Balance      decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	InterestRate decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	Active       bool            `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Transaction represents a ledger row.
type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FromAccountID *uuid.UUID      `gorm:"type:uuid;index"`
	ToAccountID   *uuid.UUID      `gorm:"type:uuid;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	Type          string          `gorm:"type:varchar(16);not null"`
	Description   string          `gorm:"type:varchar(255)"`
	Status        string          `gorm:"type:varchar(16);not null"`
	FailureReason string          `gorm:"type:text"`
	CreatedAt     time.Time       `gorm:"index"`
	UpdatedAt     time.Time
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

func accountFromDomain(a *account.Account) *Account {
	return &Account{
		ID:           a.ID,
		UserID:       a.UserID,
		Number:       a.Number,
		Type:         string(a.Type),
		Balance:      a.Balance,
		InterestRate: a.InterestRate,
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (m *Account) toDomain() *account.Account {
	return &account.Account{
		ID:           m.ID,
		UserID:       m.UserID,
		Number:       m.Number,
		Type:         account.Type(m.Type),
		Balance:      m.Balance,
		InterestRate: m.InterestRate,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func transactionFromDomain(t *transaction.Transaction) *Transaction {
	return &Transaction{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
		Type:          string(t.Type),
		Description:   t.Description,
		Status:        string(t.Status),
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (m *Transaction) toDomain() *transaction.Transaction {
	return transaction.NewFromData(
		m.ID,
		m.FromAccountID,
		m.ToAccountID,
		m.Amount,
		transaction.Type(m.Type),
		m.Description,
		transaction.Status(m.Status),
		m.FailureReason,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
