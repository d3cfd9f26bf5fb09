// Package audit writes an audit trail line for every ledger event the bus delivers.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/eventbus"
)

// HandleCompleted logs completed ledger records.
func HandleCompleted(logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("handler", "audit.completed")
	return func(ctx context.Context, e eventbus.Event) error {
		tx, err := ledgerRecord(e)
		if err != nil {
			log.Error("unexpected event", "type", e.Type(), "error", err)
			return err
		}
		log.InfoContext(ctx, "ledger record completed", recordAttrs(tx)...)
		return nil
	}
}

// HandleFailed logs failed ledger records at warning level.
func HandleFailed(logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("handler", "audit.failed")
	return func(ctx context.Context, e eventbus.Event) error {
		tx, err := ledgerRecord(e)
		if err != nil {
			log.Error("unexpected event", "type", e.Type(), "error", err)
			return err
		}
		log.WarnContext(ctx, "ledger record failed", append(recordAttrs(tx), "reason", tx.FailureReason)...)
		return nil
	}
}

func ledgerRecord(e eventbus.Event) (*transaction.Transaction, error) {
	var tx *transaction.Transaction
	switch ev := e.(type) {
	case transaction.CompletedEvent:
		tx = ev.Transaction
	case *transaction.CompletedEvent:
		tx = ev.Transaction
	case transaction.FailedEvent:
		tx = ev.Transaction
	case *transaction.FailedEvent:
		tx = ev.Transaction
	default:
		return nil, fmt.Errorf("not a ledger event: %T", e)
	}
	if tx == nil {
		return nil, fmt.Errorf("%s event without a transaction", e.Type())
	}
	return tx, nil
}

func recordAttrs(tx *transaction.Transaction) []any {
	attrs := []any{
		"transaction_id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount.String(),
	}
	if tx.FromAccountID != nil {
		attrs = append(attrs, "from_account_id", *tx.FromAccountID)
	}
	if tx.ToAccountID != nil {
		attrs = append(attrs, "to_account_id", *tx.ToAccountID)
	}
	return attrs
}
