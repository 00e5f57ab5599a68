package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrLockNotAcquired    = errors.New("lock not acquired")
	ErrRateLimited        = errors.New("too many requests")

	// Payment flow errors. Every one of them is terminal for the request.
	ErrUnauthenticated          = errors.New("unauthenticated")
	ErrOrderCreationFailed      = errors.New("order creation failed")
	ErrMissingParameters        = errors.New("missing payment parameters")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrPaymentRecordNotFound    = errors.New("payment record not found")
	ErrSubscriptionUpdateFailed = errors.New("subscription update failed")
	ErrVerificationError        = errors.New("payment verification error")
)
