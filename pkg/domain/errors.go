// Package domain holds the errors shared by every bounded context of the bank.
package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist in the store.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a record with the same identity is already stored.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrValidation is returned when input fails validation before reaching the domain.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when the caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated caller lacks the capability for an action.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable is returned when the backing store cannot complete an operation.
	ErrStoreUnavailable = errors.New("store unavailable")
)
