// Package metrics defines how money operations report their outcome and latency.
package metrics

import "time"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Recorder receives one observation per finished operation.
type Recorder interface {
	// ObserveOperation records an operation ("transfer", "deposit", "withdraw"), its outcome
	// and the reason label ("" on success, the error kind otherwise).
	ObserveOperation(operation, outcome, reason string, took time.Duration)
}

// Nop discards observations.
type Nop struct{}

// ObserveOperation implements Recorder.
func (Nop) ObserveOperation(string, string, string, time.Duration) {}
