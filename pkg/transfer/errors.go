package transfer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies why a money operation did not happen.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindInvalidAmount: the amount is not positive or exceeds minor-unit precision.
	KindInvalidAmount
	// KindSameAccount: source and destination are the same account.
	KindSameAccount
	// KindAccountInactive: an account involved has been deactivated.
	KindAccountInactive
	// KindAccountNotFound: an account id could not be resolved. Raised by resolvers.
	KindAccountNotFound
	// KindInsufficientFunds: the source balance is below the amount.
	KindInsufficientFunds
	// KindPersistenceFailure: the atomic commit did not complete. Nothing was applied.
	KindPersistenceFailure
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindInvalidAmount:      "invalid_amount",
	KindSameAccount:        "same_account",
	KindAccountInactive:    "account_inactive",
	KindAccountNotFound:    "account_not_found",
	KindInsufficientFunds:  "insufficient_funds",
	KindPersistenceFailure: "persistence_failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Retryable reports whether the same request may succeed when repeated.
// Only persistence failures are transient; every other kind is permanent for its inputs.
func (k Kind) Retryable() bool {
	return k == KindPersistenceFailure
}

// Error is the typed failure returned by the engine and by account resolvers.
type Error struct {
	Kind Kind
	// AccountID is the account the failure is about, when there is one.
	AccountID uuid.UUID
	Err       error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidAmount      = &Error{Kind: KindInvalidAmount}
	ErrSameAccount        = &Error{Kind: KindSameAccount}
	ErrAccountInactive    = &Error{Kind: KindAccountInactive}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
)

var kindMessages = map[Kind]string{
	KindInvalidAmount:      "invalid amount",
	KindSameAccount:        "cannot transfer to the same account",
	KindAccountInactive:    "account is inactive",
	KindAccountNotFound:    "account not found",
	KindInsufficientFunds:  "insufficient funds",
	KindPersistenceFailure: "could not commit operation",
}

func (e *Error) Error() string {
	msg, ok := kindMessages[e.Kind]
	if !ok {
		msg = e.Kind.String()
	}
	if e.AccountID != uuid.Nil {
		msg = fmt.Sprintf("%s: account %s", msg, e.AccountID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target carrying an AccountID
// additionally requires the same account.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}

// Retryable reports whether the operation may be retried with the same arguments.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// NewError builds an *Error of kind about account id, wrapping cause.
func NewError(kind Kind, id uuid.UUID, cause error) *Error {
	return &Error{Kind: kind, AccountID: id, Err: cause}
}

// NotFound is the error resolvers return for an unknown or inaccessible account id.
func NotFound(id uuid.UUID, cause error) *Error {
	return NewError(KindAccountNotFound, id, cause)
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
