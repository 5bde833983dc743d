package domain

import "time"

// ReconciliationStatus is the state of a reconciliation session.
type ReconciliationStatus string

const (
	ReconciliationStatusActive    ReconciliationStatus = "active"
	ReconciliationStatusCompleted ReconciliationStatus = "completed"
)

// ReconciliationSession matches cleared register rows against a bank statement.
type ReconciliationSession struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StatementDate    time.Time
	CompletedAt      *time.Time
	ID               string
	BankAccountID    string
	Status           ReconciliationStatus
	BeginningBalance Money
	StatementBalance Money
	Difference       Money
}

// EnsureActive rejects changes to a completed session.
func (s *ReconciliationSession) EnsureActive() error {
	if s.Status != ReconciliationStatusActive {
		return NewStateTransitionError(EntityReconciliation, s.ID, "session is not active")
	}
	return nil
}

// ReconciliationResult reports the outcome of a completion attempt.
type ReconciliationResult struct {
	SessionID        string
	BookBalance      Money
	StatementBalance Money
	Difference       Money
	Success          bool
}

// Reconcile computes book balance and difference for the cleared rows.
// beginning is the account's last reconciled balance.
func Reconcile(session *ReconciliationSession, beginning Money, cleared []*BankTransaction) ReconciliationResult {
	book := beginning
	for _, t := range cleared {
		book += t.Amount
	}

	diff := session.StatementBalance - book
	return ReconciliationResult{
		SessionID:        session.ID,
		BookBalance:      book,
		StatementBalance: session.StatementBalance,
		Difference:       diff,
		Success:          diff.IsZero(),
	}
}
