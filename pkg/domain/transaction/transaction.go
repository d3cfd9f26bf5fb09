// Package transaction models ledger records of money movements.
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNonPositiveAmount is returned when a record is created with an amount that is not above zero.
	ErrNonPositiveAmount = errors.New("transaction amount must be positive")

	// ErrInvalidType is returned for a transaction type outside the supported set.
	ErrInvalidType = errors.New("invalid transaction type")

	// ErrMissingAccount is returned when the account references do not fit the transaction type.
	ErrMissingAccount = errors.New("transaction account references do not match its type")

	// ErrInvalidStatusTransition is returned when a finalized record is finalized again.
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")
)

// Type enumerates the kinds of money movement.
type Type string

const (
	Transfer   Type = "transfer"
	Deposit    Type = "deposit"
	Withdrawal Type = "withdrawal"
)

// Status is the lifecycle state of a ledger record. It only moves forward.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Transaction is a ledger record. Once completed or failed it is immutable.
//
// FromAccountID is nil for deposits; ToAccountID is nil for withdrawals.
type Transaction struct {
	ID            uuid.UUID
	FromAccountID *uuid.UUID
	ToAccountID   *uuid.UUID
	Amount        decimal.Decimal
	Type          Type
	Description   string
	Status        Status
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a pending record.
func New(typ Type, from, to *uuid.UUID, amount decimal.Decimal, description string, at time.Time) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	switch typ {
	case Transfer:
		if from == nil || to == nil {
			return nil, ErrMissingAccount
		}
	case Deposit:
		if from != nil || to == nil {
			return nil, ErrMissingAccount
		}
	case Withdrawal:
		if from == nil || to != nil {
			return nil, ErrMissingAccount
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	return &Transaction{
		ID:            uuid.New(),
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Type:          typ,
		Description:   description,
		Status:        StatusPending,
		CreatedAt:     at,
		UpdatedAt:     at,
	}, nil
}

// NewFromData rebuilds a record from storage without running the constructor checks.
func NewFromData(
	id uuid.UUID,
	from, to *uuid.UUID,
	amount decimal.Decimal,
	typ Type,
	description string,
	status Status,
	failureReason string,
	created, updated time.Time,
) *Transaction {
	return &Transaction{
		ID:            id,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Type:          typ,
		Description:   description,
		Status:        status,
		FailureReason: failureReason,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
}

// Complete moves a pending record to completed.
func (t *Transaction) Complete(at time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, StatusCompleted)
	}
	t.Status = StatusCompleted
	t.UpdatedAt = at
	return nil
}

// Fail moves a pending record to failed, keeping reason for audit.
func (t *Transaction) Fail(reason string, at time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, StatusFailed)
	}
	t.Status = StatusFailed
	t.FailureReason = reason
	t.UpdatedAt = at
	return nil
}

// Final reports whether the record has left the pending state.
func (t *Transaction) Final() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Involves reports whether id is the source or destination of the record.
func (t *Transaction) Involves(id uuid.UUID) bool {
	return (t.FromAccountID != nil && *t.FromAccountID == id) ||
		(t.ToAccountID != nil && *t.ToAccountID == id)
}

// Clone returns a copy whose account references are not shared with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.FromAccountID != nil {
		id := *t.FromAccountID
		c.FromAccountID = &id
	}
	if t.ToAccountID != nil {
		id := *t.ToAccountID
		c.ToAccountID = &id
	}
	return &c
}
