package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrBalanceExceeded     = errors.New("amount exceeds remaining balance")
	ErrStateTransition     = errors.New("invalid state transition")
	ErrMismatch            = errors.New("counterparty mismatch")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrIntegrity           = errors.New("ledger integrity violation")
)

// Entity names used in Error.
const (
	EntityAccount        = "account"
	EntityJournalEntry   = "journal_entry"
	EntityInvoice        = "invoice"
	EntityBill           = "bill"
	EntityCreditMemo     = "credit_memo"
	EntityPurchaseOrder  = "purchase_order"
	EntityCheck          = "check"
	EntityBankAccount    = "bank_account"
	EntityBankTxn        = "bank_transaction"
	EntityReconciliation = "reconciliation_session"
	EntityPayment        = "payment"
	EntityTransfer       = "transfer"
)

// Error identifies the entity and the reason an operation was refused.
type Error struct {
	Kind   error
	Entity string
	ID     string
	Reason string
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.ID, e.Reason)
	}

	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, entity, id, reason string) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Reason: reason}
}

// NewValidationError reports malformed input.
func NewValidationError(entity, reason string) *Error {
	return newError(ErrValidation, entity, "", reason)
}

// NewNotFoundError reports a missing referenced entity.
func NewNotFoundError(entity, id string) *Error {
	return newError(ErrNotFound, entity, id, entity+" does not exist")
}

// NewBalanceExceededError reports an amount above what remains.
func NewBalanceExceededError(entity, id string, amount, remaining Money) *Error {
	return newError(ErrBalanceExceeded, entity, id,
		fmt.Sprintf("amount %s exceeds remaining %s", amount, remaining))
}

// NewStateTransitionError reports an operation invalid for the current status.
func NewStateTransitionError(entity, id, reason string) *Error {
	return newError(ErrStateTransition, entity, id, reason)
}

// NewMismatchError reports a credit applied to another party's document.
func NewMismatchError(entity, id, reason string) *Error {
	return newError(ErrMismatch, entity, id, reason)
}

// NewConcurrencyConflict reports a lost race for a serialized resource.
func NewConcurrencyConflict(entity, id, reason string) *Error {
	return newError(ErrConcurrencyConflict, entity, id, reason)
}

// NewIntegrityError reports a violated posting invariant.
func NewIntegrityError(reason string) *Error {
	return newError(ErrIntegrity, EntityJournalEntry, "", reason)
}

// KindName returns a short label for the kind err wraps, or "internal".
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBalanceExceeded):
		return "balance_exceeded"
	case errors.Is(err, ErrStateTransition):
		return "state_transition"
	case errors.Is(err, ErrMismatch):
		return "mismatch"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	}
	return "internal"
}
