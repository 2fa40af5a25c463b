package domain

import "errors"

var (
	// Read errors
	ErrEntryNotFound        = errors.New("ledger entry not found")
	ErrVaultStateNotFound   = errors.New("vault state not found")
	ErrUserHoldingNotFound  = errors.New("user holding not found")
	ErrAssetHoldingNotFound = errors.New("asset holding not found")

	// ErrImmutableEntry is returned on any attempt to update or delete a
	// committed ledger entry.
	ErrImmutableEntry = errors.New("ledger entries are immutable")

	// Reversal errors
	ErrReversalConflict   = errors.New("entry has already been reversed")
	ErrReversalOfReversal = errors.New("cannot reverse a reversal entry")

	// ErrConcurrencyTimeout is returned when a scope lock could not be
	// acquired within the storage layer's deadlock/timeout window. It is
	// transient; the whole append may be retried.
	ErrConcurrencyTimeout = errors.New("scope lock acquisition timed out")
)
