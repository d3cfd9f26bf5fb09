package account

import (
	"time"

	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/money"
	"github.com/shopspring/decimal"
)

// OpenAccountRequest represents the request body for opening an account.
type OpenAccountRequest struct {
	AccountType  string          `json:"account_type" validate:"omitempty,oneof=checking savings"`
	InterestRate decimal.Decimal `json:"interest_rate"`
}

// AmountRequest represents the request body for deposits and withdrawals.
// Amounts may be sent as JSON numbers or strings; both are parsed exactly.
type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

// TransferRequest represents the request body for moving funds between accounts.
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" validate:"required,uuid"`
	ToAccountID   string          `json:"to_account_id" validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=255"`
}

// AccountDTO is the API representation of an account.
type AccountDTO struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Number       string    `json:"number"`
	Type         string    `json:"type"`
	Balance      string    `json:"balance"`
	InterestRate string    `json:"interest_rate"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TransactionDTO is the API representation of a ledger record.
type TransactionDTO struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	FromAccountID string    `json:"from_account_id,omitempty"`
	ToAccountID   string    `json:"to_account_id,omitempty"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToAccountDTO maps a domain account for output with amounts rendered at scale.
func ToAccountDTO(a *account.Account, scale int32) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:           a.ID.String(),
		UserID:       a.UserID.String(),
		Number:       a.Number,
		Type:         string(a.Type),
		Balance:      money.Format(a.Balance, scale),
		InterestRate: a.InterestRate.String(),
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToTransactionDTO maps a ledger record for output with the amount rendered at scale.
func ToTransactionDTO(t *transaction.Transaction, scale int32) *TransactionDTO {
	if t == nil {
		return nil
	}
	dto := &TransactionDTO{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Status:        string(t.Status),
		Amount:        money.Format(t.Amount, scale),
		Description:   t.Description,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
	}
	if t.FromAccountID != nil {
		dto.FromAccountID = t.FromAccountID.String()
	}
	if t.ToAccountID != nil {
		dto.ToAccountID = t.ToAccountID.String()
	}
	return dto
}
