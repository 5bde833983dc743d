package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultFirstCheckNumber is used when a bank account is opened without one.
	DefaultFirstCheckNumber = 1001

	// DefaultListLimit and MaxListLimit bound list endpoints.
	DefaultListLimit = 20
	MaxListLimit     = 100

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// reconciliationStartKey prefixes the start guard key of a bank account.
	reconciliationStartKey = "reconciliation:start:"
)
