package memory

import (
	"context"
	"sort"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// CheckRepository implements usecase.CheckRepository.
type CheckRepository struct {
	store *Store
}

// NewCheckRepository creates a new CheckRepository.
func NewCheckRepository(store *Store) *CheckRepository {
	return &CheckRepository{store: store}
}

// Create stores a check within a transaction. Check numbers are unique per bank account.
func (r *CheckRepository) Create(ctx context.Context, tx usecase.Transaction, check *domain.Check) error {
	mtx := asTx(tx)

	dup := r.store.checks.list(mtx, func(c *domain.Check) bool {
		return c.BankAccountID == check.BankAccountID && c.Number == check.Number
	})
	if len(dup) > 0 {
		return domain.NewConcurrencyConflict(domain.EntityCheck, check.ID, "check number already issued")
	}

	r.store.checks.put(mtx, check.ID, *check)
	return nil
}

// GetByID retrieves a check by ID.
func (r *CheckRepository) GetByID(ctx context.Context, id string) (*domain.Check, error) {
	check, ok := r.store.checks.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityCheck, id)
	}

	return check, nil
}

// GetByIDForUpdate locks and retrieves a check.
func (r *CheckRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Check, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityCheck, id); err != nil {
		return nil, err
	}

	check, ok := r.store.checks.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityCheck, id)
	}

	return check, nil
}

// Update stores the check's new state.
func (r *CheckRepository) Update(ctx context.Context, tx usecase.Transaction, check *domain.Check) error {
	mtx := asTx(tx)
	if !r.store.checks.exists(mtx, check.ID) {
		return domain.NewNotFoundError(domain.EntityCheck, check.ID)
	}

	r.store.checks.put(mtx, check.ID, *check)
	return nil
}

// ListByBankAccount lists checks drawn on an account, highest number first.
func (r *CheckRepository) ListByBankAccount(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.Check, error) {
	checks := r.store.checks.list(nil, func(c *domain.Check) bool {
		return c.BankAccountID == bankAccountID
	})

	sort.Slice(checks, func(i, j int) bool {
		return checks[i].Number > checks[j].Number
	})

	return page(checks, limit, offset), nil
}
