package memory

import (
	"context"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// ReconciliationRepository implements usecase.ReconciliationRepository.
type ReconciliationRepository struct {
	store *Store
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(store *Store) *ReconciliationRepository {
	return &ReconciliationRepository{store: store}
}

// Create stores a session within a transaction. An account has at most one active session.
func (r *ReconciliationRepository) Create(ctx context.Context, tx usecase.Transaction, session *domain.ReconciliationSession) error {
	mtx := asTx(tx)

	if session.Status == domain.ReconciliationStatusActive {
		if _, err := r.GetActiveByAccount(ctx, tx, session.BankAccountID); err == nil {
			return domain.NewConcurrencyConflict(domain.EntityReconciliation, session.ID, "bank account already has an active reconciliation")
		}
	}

	r.store.reconciliations.put(mtx, session.ID, *session)
	return nil
}

// GetByID retrieves a session by ID.
func (r *ReconciliationRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	session, ok := r.store.reconciliations.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityReconciliation, id)
	}

	return session, nil
}

// GetByIDForUpdate locks and retrieves a session.
func (r *ReconciliationRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationSession, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityReconciliation, id); err != nil {
		return nil, err
	}

	session, ok := r.store.reconciliations.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityReconciliation, id)
	}

	return session, nil
}

// Update stores the session's new state.
func (r *ReconciliationRepository) Update(ctx context.Context, tx usecase.Transaction, session *domain.ReconciliationSession) error {
	mtx := asTx(tx)
	if !r.store.reconciliations.exists(mtx, session.ID) {
		return domain.NewNotFoundError(domain.EntityReconciliation, session.ID)
	}

	r.store.reconciliations.put(mtx, session.ID, *session)
	return nil
}

// GetActiveByAccount returns the account's active session.
func (r *ReconciliationRepository) GetActiveByAccount(ctx context.Context, tx usecase.Transaction, bankAccountID string) (*domain.ReconciliationSession, error) {
	found := r.store.reconciliations.list(asTx(tx), func(s *domain.ReconciliationSession) bool {
		return s.BankAccountID == bankAccountID && s.Status == domain.ReconciliationStatusActive
	})
	if len(found) == 0 {
		return nil, domain.NewNotFoundError(domain.EntityReconciliation, bankAccountID)
	}

	return found[0], nil
}

// GetLatestCompleted returns the account's most recently completed session.
func (r *ReconciliationRepository) GetLatestCompleted(ctx context.Context, tx usecase.Transaction, bankAccountID string) (*domain.ReconciliationSession, error) {
	found := r.store.reconciliations.list(asTx(tx), func(s *domain.ReconciliationSession) bool {
		return s.BankAccountID == bankAccountID &&
			s.Status == domain.ReconciliationStatusCompleted &&
			s.CompletedAt != nil
	})

	var latest *domain.ReconciliationSession
	for _, s := range found {
		if latest == nil || !s.CompletedAt.Before(*latest.CompletedAt) {
			latest = s
		}
	}

	if latest == nil {
		return nil, domain.NewNotFoundError(domain.EntityReconciliation, bankAccountID)
	}

	return latest, nil
}
