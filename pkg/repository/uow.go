package repository

import (
	"context"
	"errors"
)

// UnitOfWork defines the contract for transactional work and repository access.
//
// Do runs fn inside one transaction boundary. Every repository obtained from the UnitOfWork
// passed to fn shares that boundary: if fn returns an error, or the commit itself fails,
// none of its writes are observable. Locks taken through AccountRepository.Lock are held
// until Do returns.
type UnitOfWork interface {
	// Do executes fn within a transaction boundary and commits when fn returns nil.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	AccountRepository() (AccountRepository, error)
	TransactionRepository() (TransactionRepository, error)
}

// CommitError is returned by Do when fn succeeded but the final commit did not.
// Writes issued by fn were discarded.
type CommitError struct {
	Err error
}

func (c *CommitError) Error() string { return "commit failed: " + c.Err.Error() }

func (c *CommitError) Unwrap() error { return c.Err }

// IsCommitError reports whether err came from a failed commit.
func IsCommitError(err error) bool {
	var c *CommitError
	return errors.As(err, &c)
}
