package transaction_test

import (
	"testing"
	"time"

	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id uuid.UUID) *uuid.UUID { return &id }

func TestNew(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	ten := decimal.NewFromInt(10)
	now := time.Now().UTC()

	tests := []struct {
		name    string
		typ     transaction.Type
		from    *uuid.UUID
		to      *uuid.UUID
		amount  decimal.Decimal
		wantErr error
	}{
		{"transfer", transaction.Transfer, ref(a), ref(b), ten, nil},
		{"deposit", transaction.Deposit, nil, ref(b), ten, nil},
		{"withdrawal", transaction.Withdrawal, ref(a), nil, ten, nil},
		{"zero amount", transaction.Transfer, ref(a), ref(b), decimal.Zero, transaction.ErrNonPositiveAmount},
		{"negative amount", transaction.Deposit, nil, ref(b), ten.Neg(), transaction.ErrNonPositiveAmount},
		{"transfer without destination", transaction.Transfer, ref(a), nil, ten, transaction.ErrMissingAccount},
		{"deposit with source", transaction.Deposit, ref(a), ref(b), ten, transaction.ErrMissingAccount},
		{"withdrawal with destination", transaction.Withdrawal, ref(a), ref(b), ten, transaction.ErrMissingAccount},
		{"unknown type", transaction.Type("refund"), ref(a), ref(b), ten, transaction.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tx, err := transaction.New(tt.typ, tt.from, tt.to, tt.amount, "memo", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tx)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, transaction.StatusPending, tx.Status)
			assert.NotEqual(t, uuid.Nil, tx.ID)
			assert.Equal(t, now, tx.CreatedAt)
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()

	t.Run("pending to completed is final", func(t *testing.T) {
		t.Parallel()
		tx, err := transaction.New(transaction.Transfer, ref(a), ref(b), decimal.NewFromInt(1), "", now)
		require.NoError(t, err)
		require.NoError(t, tx.Complete(now))
		assert.True(t, tx.Final())
		assert.ErrorIs(t, tx.Fail("late", now), transaction.ErrInvalidStatusTransition)
		assert.ErrorIs(t, tx.Complete(now), transaction.ErrInvalidStatusTransition)
		assert.Equal(t, transaction.StatusCompleted, tx.Status)
	})

	t.Run("pending to failed is final", func(t *testing.T) {
		t.Parallel()
		tx, err := transaction.New(transaction.Transfer, ref(a), ref(b), decimal.NewFromInt(1), "", now)
		require.NoError(t, err)
		require.NoError(t, tx.Fail("connection reset", now))
		assert.Equal(t, "connection reset", tx.FailureReason)
		assert.ErrorIs(t, tx.Complete(now), transaction.ErrInvalidStatusTransition)
		assert.Equal(t, transaction.StatusFailed, tx.Status)
	})
}

func TestInvolvesAndClone(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	tx, err := transaction.New(transaction.Transfer, ref(a), ref(b), decimal.NewFromInt(3), "", time.Now())
	require.NoError(t, err)
	assert.True(t, tx.Involves(a))
	assert.True(t, tx.Involves(b))
	assert.False(t, tx.Involves(uuid.New()))

	c := tx.Clone()
	*c.FromAccountID = uuid.New()
	assert.Equal(t, a, *tx.FromAccountID)
}

func TestEventTypes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, transaction.EventCompleted, transaction.CompletedEvent{}.Type())
	assert.Equal(t, transaction.EventFailed, transaction.FailedEvent{}.Type())
}
