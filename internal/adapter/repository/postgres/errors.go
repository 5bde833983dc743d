package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/genfin/internal/domain"
)

// PostgreSQL error codes the repositories translate.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
)

// Constraint names from the migrations.
const (
	constraintCheckNumber   = "checks_bank_account_number_key"
	constraintReversalOf    = "journal_entries_reversal_of_key"
	constraintActiveSession = "reconciliation_sessions_one_active"
	constraintBankLedger    = "bank_accounts_ledger_account_id_key"
)

// transientError is a lost lock race. It matches domain.ErrConcurrencyConflict
// and still exposes the *pgconn.PgError to the retrier.
type transientError struct {
	err *pgconn.PgError
}

func (e *transientError) Error() string {
	return domain.ErrConcurrencyConflict.Error() + ": " + e.err.Message
}

func (e *transientError) Unwrap() []error {
	return []error{domain.ErrConcurrencyConflict, e.err}
}

// mapError translates driver errors into domain errors for entity id.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewConcurrencyConflict(entity, id, "lock wait timed out")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
		return &transientError{err: pgErr}
	case pgErrUniqueViolation:
		return uniqueViolation(pgErr, entity, id)
	case pgErrForeignKeyViolation:
		return domain.NewNotFoundError(entity, id)
	}

	return err
}

func uniqueViolation(pgErr *pgconn.PgError, entity, id string) error {
	switch pgErr.ConstraintName {
	case constraintCheckNumber:
		return domain.NewConcurrencyConflict(domain.EntityCheck, id, "check number already issued for this bank account")
	case constraintReversalOf:
		return domain.NewStateTransitionError(domain.EntityJournalEntry, id, "entry is already reversed")
	case constraintActiveSession:
		return domain.NewConcurrencyConflict(domain.EntityReconciliation, id, "bank account already has an active reconciliation")
	case constraintBankLedger:
		return domain.NewValidationError(domain.EntityBankAccount, "ledger account is already bound to another bank account")
	}

	return domain.NewValidationError(entity, entity+" "+id+" already exists")
}
