package app

import (
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/handler/audit"
)

// setupEventBus registers the ledger event handlers with the configured bus.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	if bus == nil {
		return
	}
	logger := a.Deps.Logger

	bus.Register(transaction.EventCompleted, audit.HandleCompleted(logger))
	bus.Register(transaction.EventFailed, audit.HandleFailed(logger))
}
