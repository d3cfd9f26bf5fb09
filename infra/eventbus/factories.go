package eventbus

import (
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/eventbus"
)

// LedgerFactories decodes the ledger events the transfer engine publishes.
func LedgerFactories() Factories {
	return Factories{
		transaction.EventCompleted: func() eventbus.Event { return &transaction.CompletedEvent{} },
		transaction.EventFailed:    func() eventbus.Event { return &transaction.FailedEvent{} },
	}
}
