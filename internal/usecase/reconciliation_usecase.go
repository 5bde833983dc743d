package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// ReconciliationUseCase matches cleared register rows against bank statements.
type ReconciliationUseCase struct {
	engine
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(deps Deps) *ReconciliationUseCase {
	return &ReconciliationUseCase{engine: newEngine(deps)}
}

// StartReconciliationInput represents input for starting a session.
type StartReconciliationInput struct {
	StatementDate    time.Time
	BankAccountID    string
	StatementBalance domain.Money
}

// Start opens a session for a bank account. A concurrent start for the same
// account fails fast with a concurrency conflict instead of waiting.
func (uc *ReconciliationUseCase) Start(ctx context.Context, input StartReconciliationInput) (*domain.ReconciliationSession, error) {
	if input.BankAccountID == "" {
		return nil, domain.NewValidationError(domain.EntityReconciliation, "bank account id is required")
	}

	release, err := uc.acquireStart(ctx, input.BankAccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var session *domain.ReconciliationSession
	err = uc.inTx(ctx, "reconciliation_start", func(ctx context.Context, tx Transaction) error {
		bank, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, input.BankAccountID)
		if err != nil {
			return err
		}

		if err := uc.ensureNoActive(ctx, tx, bank.ID); err != nil {
			return err
		}

		now := uc.Now()
		statementDate := input.StatementDate
		if statementDate.IsZero() {
			statementDate = now
		}

		session = &domain.ReconciliationSession{
			ID:               uc.IDGen.Generate(),
			BankAccountID:    bank.ID,
			Status:           domain.ReconciliationStatusActive,
			BeginningBalance: bank.LastReconciledBalance,
			StatementBalance: input.StatementBalance,
			StatementDate:    statementDate,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := uc.Repos.Reconciliations.Create(ctx, tx, session); err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeReconciliation, session.ID, domain.EventTypeReconciliationStarted, map[string]any{
			"session_id":        session.ID,
			"bank_account_id":   bank.ID,
			"statement_balance": session.StatementBalance.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// acquireStart takes the per-account start guard. Without a guard the bank
// account row lock and the active-session check still serialize starts.
func (uc *ReconciliationUseCase) acquireStart(ctx context.Context, bankAccountID string) (func(), error) {
	if uc.Guard == nil {
		return func() {}, nil
	}

	key := reconciliationStartKey + bankAccountID

	token, ok, err := uc.Guard.TryAcquire(ctx, key, DefaultTransactionTimeout)
	if err != nil {
		return nil, err
	}

	if !ok {
		if uc.Metrics != nil {
			uc.Metrics.ReconciliationGuards.WithLabelValues("rejected").Inc()
		}
		return nil, domain.NewConcurrencyConflict(domain.EntityBankAccount, bankAccountID, "reconciliation start already in progress")
	}

	if uc.Metrics != nil {
		uc.Metrics.ReconciliationGuards.WithLabelValues("acquired").Inc()
	}

	return func() {
		_ = uc.Guard.Release(context.WithoutCancel(ctx), key, token)
	}, nil
}

func (uc *ReconciliationUseCase) ensureNoActive(ctx context.Context, tx Transaction, bankAccountID string) error {
	active, err := uc.Repos.Reconciliations.GetActiveByAccount(ctx, tx, bankAccountID)
	switch {
	case err == nil:
		return domain.NewStateTransitionError(domain.EntityReconciliation, active.ID, "only one reconciliation active per bank account")
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// MarkClearedInput represents a batch of rows to toggle.
type MarkClearedInput struct {
	SessionID      string
	TransactionIDs []string
}

// MarkCleared toggles the cleared flag of each row within the session. Rows
// of another bank account or cleared in another session are rejected.
func (uc *ReconciliationUseCase) MarkCleared(ctx context.Context, input MarkClearedInput) ([]*domain.BankTransaction, error) {
	if len(input.TransactionIDs) == 0 {
		return nil, domain.NewValidationError(domain.EntityReconciliation, "at least one transaction id is required")
	}

	ids := uniqueSorted(input.TransactionIDs)

	var toggled []*domain.BankTransaction
	err := uc.inTx(ctx, "reconciliation_mark_cleared", func(ctx context.Context, tx Transaction) error {
		toggled = toggled[:0]

		session, err := uc.Repos.Reconciliations.GetByIDForUpdate(ctx, tx, input.SessionID)
		if err != nil {
			return err
		}

		if err := session.EnsureActive(); err != nil {
			return err
		}

		for _, id := range ids {
			txn, err := uc.Repos.BankTransactions.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}

			if txn.BankAccountID != session.BankAccountID {
				return domain.NewValidationError(domain.EntityBankTxn, "transaction "+id+" belongs to another bank account")
			}

			if txn.ReconciliationID != "" && txn.ReconciliationID != session.ID {
				return domain.NewStateTransitionError(domain.EntityBankTxn, id, "transaction is cleared in another reconciliation")
			}

			txn.Cleared = !txn.Cleared
			txn.ReconciliationID = ""
			if txn.Cleared {
				txn.ReconciliationID = session.ID
			}

			if err := uc.Repos.BankTransactions.Update(ctx, tx, txn); err != nil {
				return err
			}

			toggled = append(toggled, txn)
		}

		session.UpdatedAt = uc.Now()
		return uc.Repos.Reconciliations.Update(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}

	return toggled, nil
}

// Complete compares the statement with last reconciled balance plus the rows
// cleared in the session. A zero difference completes the session and marks
// its checks cleared. Otherwise the discrepancy is reported and the session
// stays Active with nothing changed.
func (uc *ReconciliationUseCase) Complete(ctx context.Context, sessionID string) (*domain.ReconciliationResult, error) {
	var result domain.ReconciliationResult
	err := uc.inTx(ctx, "reconciliation_complete", func(ctx context.Context, tx Transaction) error {
		session, err := uc.Repos.Reconciliations.GetByIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		if err := session.EnsureActive(); err != nil {
			return err
		}

		cleared, err := uc.Repos.BankTransactions.ListBySession(ctx, tx, session.ID)
		if err != nil {
			return err
		}

		checks, err := uc.lockClearedChecks(ctx, tx, cleared)
		if err != nil {
			return err
		}

		bank, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, session.BankAccountID)
		if err != nil {
			return err
		}

		result = domain.Reconcile(session, bank.LastReconciledBalance, cleared)
		if !result.Success {
			return nil
		}

		now := uc.Now()
		session.Status = domain.ReconciliationStatusCompleted
		session.Difference = 0
		session.CompletedAt = &now
		session.UpdatedAt = now

		if err := uc.Repos.Reconciliations.Update(ctx, tx, session); err != nil {
			return err
		}

		bank.LastReconciledBalance = session.StatementBalance
		bank.UpdatedAt = now
		if err := uc.Repos.BankAccounts.Update(ctx, tx, bank); err != nil {
			return err
		}

		for _, check := range checks {
			check.MarkCleared()
			check.UpdatedAt = now
			if err := uc.Repos.Checks.Update(ctx, tx, check); err != nil {
				return err
			}
		}

		return uc.emit(ctx, tx, domain.AggregateTypeReconciliation, session.ID, domain.EventTypeReconciliationComplete, map[string]any{
			"session_id":        session.ID,
			"bank_account_id":   bank.ID,
			"statement_balance": session.StatementBalance.String(),
			"cleared_count":     len(cleared),
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		outcome := "balanced"
		if !result.Success {
			outcome = "discrepancy"
		}
		uc.Metrics.Reconciliations.WithLabelValues(outcome).Inc()
	}

	return &result, nil
}

// Reopen returns the most recent completed session of an account to Active,
// restoring the reconciled balance it started from and un-clearing its checks.
func (uc *ReconciliationUseCase) Reopen(ctx context.Context, sessionID string) (*domain.ReconciliationSession, error) {
	var session *domain.ReconciliationSession
	err := uc.inTx(ctx, "reconciliation_reopen", func(ctx context.Context, tx Transaction) error {
		var err error
		session, err = uc.Repos.Reconciliations.GetByIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		if session.Status != domain.ReconciliationStatusCompleted {
			return domain.NewStateTransitionError(domain.EntityReconciliation, session.ID, "only a completed reconciliation can be reopened")
		}

		cleared, err := uc.Repos.BankTransactions.ListBySession(ctx, tx, session.ID)
		if err != nil {
			return err
		}

		checks, err := uc.lockClearedChecks(ctx, tx, cleared)
		if err != nil {
			return err
		}

		bank, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, session.BankAccountID)
		if err != nil {
			return err
		}

		if err := uc.ensureNoActive(ctx, tx, bank.ID); err != nil {
			return err
		}

		latest, err := uc.Repos.Reconciliations.GetLatestCompleted(ctx, tx, bank.ID)
		if err != nil {
			return err
		}

		if latest.ID != session.ID {
			return domain.NewStateTransitionError(domain.EntityReconciliation, session.ID, "only the most recent reconciliation can be reopened")
		}

		now := uc.Now()
		session.Status = domain.ReconciliationStatusActive
		session.CompletedAt = nil
		session.UpdatedAt = now

		if err := uc.Repos.Reconciliations.Update(ctx, tx, session); err != nil {
			return err
		}

		bank.LastReconciledBalance = session.BeginningBalance
		bank.UpdatedAt = now
		if err := uc.Repos.BankAccounts.Update(ctx, tx, bank); err != nil {
			return err
		}

		for _, check := range checks {
			check.RevertCleared()
			check.UpdatedAt = now
			if err := uc.Repos.Checks.Update(ctx, tx, check); err != nil {
				return err
			}
		}

		return uc.emit(ctx, tx, domain.AggregateTypeReconciliation, session.ID, domain.EventTypeReconciliationReopened, map[string]any{
			"session_id":      session.ID,
			"bank_account_id": bank.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// lockClearedChecks locks the checks behind cleared check rows in id order.
func (uc *ReconciliationUseCase) lockClearedChecks(ctx context.Context, tx Transaction, cleared []*domain.BankTransaction) ([]*domain.Check, error) {
	var ids []string
	for _, txn := range cleared {
		if txn.Type == domain.BankTxnCheck && txn.SourceType == domain.SourceCheck {
			ids = append(ids, txn.SourceID)
		}
	}

	ids = uniqueSorted(ids)

	checks := make([]*domain.Check, 0, len(ids))
	for _, id := range ids {
		check, err := uc.Repos.Checks.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}

	return checks, nil
}

// GetSession retrieves a reconciliation session by ID.
func (uc *ReconciliationUseCase) GetSession(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	return uc.Repos.Reconciliations.GetByID(ctx, id)
}

// ListClearedTransactions lists the rows cleared in a session.
func (uc *ReconciliationUseCase) ListClearedTransactions(ctx context.Context, sessionID string) ([]*domain.BankTransaction, error) {
	var rows []*domain.BankTransaction
	err := uc.inTx(ctx, "reconciliation_list", func(ctx context.Context, tx Transaction) error {
		var err error
		rows, err = uc.Repos.BankTransactions.ListBySession(ctx, tx, sessionID)
		return err
	})
	return rows, err
}
