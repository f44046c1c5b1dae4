package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context for query")

	// Payment lifecycle errors
	ErrOrderCreation       = errors.New("order creation failed")
	ErrVerificationFailed  = errors.New("signature verification failed")
	ErrInvalidConfirmation = errors.New("invalid confirmation payload")

	// Credit ledger errors
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Quota / coordination errors
	ErrQuotaExceeded   = errors.New("free generation quota exceeded")
	ErrLockNotAcquired = errors.New("could not acquire lock")
)
