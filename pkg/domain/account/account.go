package account

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrMissingOwner is returned when an account is built without an owning user.
	ErrMissingOwner = errors.New("account must have an owner")

	// ErrInvalidType is returned for an account type outside the supported set.
	ErrInvalidType = errors.New("invalid account type")

	// ErrNegativeBalance is returned when a debit would take the balance below zero.
	ErrNegativeBalance = errors.New("balance cannot become negative")

	// ErrNonPositiveAmount is returned when a debit or credit amount is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrNegativeInterestRate is returned when an interest rate below zero is supplied.
	ErrNegativeInterestRate = errors.New("interest rate cannot be negative")
)

// Type enumerates the products an account can be opened as.
type Type string

const (
	Checking Type = "checking"
	Savings  Type = "savings"
)

// Valid reports whether t is a supported account type.
func (t Type) Valid() bool {
	return t == Checking || t == Savings
}

// Account is a balance-holding aggregate owned by a user.
//
// Invariants:
//   - An account always has an owner (UserID).
//   - Balance is an exact decimal and is never negative.
//   - Accounts are never deleted; Deactivate clears the Active flag.
type Account struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Number       string
	Type         Type
	Balance      decimal.Decimal
	InterestRate decimal.Decimal
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id           uuid.UUID
	userID       uuid.UUID
	number       string
	typ          Type
	balance      decimal.Decimal
	interestRate decimal.Decimal
	active       bool
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a Builder for an active checking account with a fresh id and zero balance.
func New() *Builder {
	now := time.Now().UTC()
	return &Builder{
		id:        uuid.New(),
		typ:       Checking,
		active:    true,
		createdAt: now,
		updatedAt: now,
	}
}

// WithID sets the account id.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithUserID sets the owning user. Mandatory.
func (b *Builder) WithUserID(userID uuid.UUID) *Builder {
	b.userID = userID
	return b
}

// WithNumber sets the human-facing account number. A number is generated when unset.
func (b *Builder) WithNumber(number string) *Builder {
	b.number = number
	return b
}

// WithType sets the account type.
func (b *Builder) WithType(t Type) *Builder {
	b.typ = t
	return b
}

// WithBalance sets the opening balance.
func (b *Builder) WithBalance(balance decimal.Decimal) *Builder {
	b.balance = balance
	return b
}

// WithInterestRate sets the annual interest rate in percent.
func (b *Builder) WithInterestRate(rate decimal.Decimal) *Builder {
	b.interestRate = rate
	return b
}

// WithActive sets the active flag.
func (b *Builder) WithActive(active bool) *Builder {
	b.active = active
	return b
}

// WithCreatedAt sets the creation time.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-modified time.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build validates the collected fields and returns the account.
func (b *Builder) Build() (*Account, error) {
	if b.userID == uuid.Nil {
		return nil, ErrMissingOwner
	}
	if !b.typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, b.typ)
	}
	if b.balance.IsNegative() {
		return nil, ErrNegativeBalance
	}
	if b.interestRate.IsNegative() {
		return nil, ErrNegativeInterestRate
	}
	number := b.number
	if number == "" {
		number = NewNumber()
	}
	return &Account{
		ID:           b.id,
		UserID:       b.userID,
		Number:       number,
		Type:         b.typ,
		Balance:      b.balance,
		InterestRate: b.interestRate,
		Active:       b.active,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.updatedAt,
	}, nil
}

// NewNumber generates a 12 digit account number.
func NewNumber() string {
	return fmt.Sprintf("%012d", rand.Int64N(1_000_000_000_000))
}

// HasSufficientFunds reports whether the balance covers amount.
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Debit removes amount from the balance.
func (a *Account) Debit(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !a.HasSufficientFunds(amount) {
		return ErrNegativeBalance
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = at
	return nil
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = at
	return nil
}

// Deactivate soft-closes the account. Deactivating an inactive account is a no-op.
func (a *Account) Deactivate(at time.Time) {
	if !a.Active {
		return
	}
	a.Active = false
	a.UpdatedAt = at
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
