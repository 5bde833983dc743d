package memory

import (
	"context"
	"sort"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create adds an account within a transaction.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityAccount, account.ID); err != nil {
		return err
	}

	if r.store.accounts.exists(mtx, account.ID) {
		return domain.NewValidationError(domain.EntityAccount, "account "+account.ID+" already exists")
	}

	r.store.accounts.put(mtx, account.ID, *account)
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := r.store.accounts.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityAccount, id)
	}

	return account, nil
}

// GetByIDs retrieves the accounts that exist among ids.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		if account, ok := r.store.accounts.get(nil, id); ok {
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}

// List lists accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	accounts := r.store.accounts.list(nil, func(*domain.Account) bool { return true })

	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Code < accounts[j].Code
	})

	return page(accounts, limit, offset), nil
}
