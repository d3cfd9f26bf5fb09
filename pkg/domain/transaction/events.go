package transaction

// Event type names published on the event bus.
const (
	EventCompleted = "transaction.completed"
	EventFailed    = "transaction.failed"
)

// CompletedEvent is published after a ledger record commits with its balance changes.
type CompletedEvent struct {
	Transaction *Transaction `json:"transaction"`
}

// Type implements eventbus.Event.
func (CompletedEvent) Type() string { return EventCompleted }

// FailedEvent is published after a commit fails and the failed record is written.
type FailedEvent struct {
	Transaction *Transaction `json:"transaction"`
}

// Type implements eventbus.Event.
func (FailedEvent) Type() string { return EventFailed }
