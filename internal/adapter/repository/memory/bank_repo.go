package memory

import (
	"context"
	"sort"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// BankAccountRepository implements usecase.BankAccountRepository.
type BankAccountRepository struct {
	store *Store
}

// NewBankAccountRepository creates a new BankAccountRepository.
func NewBankAccountRepository(store *Store) *BankAccountRepository {
	return &BankAccountRepository{store: store}
}

// Create stores a bank account within a transaction. A ledger account backs
// at most one bank account.
func (r *BankAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.BankAccount) error {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, "bank_ledger_account", account.LedgerAccountID); err != nil {
		return err
	}

	bound := r.store.bankAccounts.list(mtx, func(a *domain.BankAccount) bool {
		return a.LedgerAccountID == account.LedgerAccountID
	})
	if len(bound) > 0 {
		return domain.NewValidationError(domain.EntityBankAccount,
			"ledger account "+account.LedgerAccountID+" is already bound to bank account "+bound[0].ID)
	}

	r.store.bankAccounts.put(mtx, account.ID, *account)
	return nil
}

// GetByID retrieves a bank account by ID.
func (r *BankAccountRepository) GetByID(ctx context.Context, id string) (*domain.BankAccount, error) {
	account, ok := r.store.bankAccounts.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityBankAccount, id)
	}

	return account, nil
}

// GetByIDForUpdate locks and retrieves a bank account.
func (r *BankAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankAccount, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityBankAccount, id); err != nil {
		return nil, err
	}

	account, ok := r.store.bankAccounts.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityBankAccount, id)
	}

	return account, nil
}

// GetByIDsForUpdate locks the accounts in the order given.
func (r *BankAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.BankAccount, error) {
	accounts := make([]*domain.BankAccount, 0, len(ids))
	for _, id := range ids {
		account, err := r.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// Update stores the bank account's new state.
func (r *BankAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.BankAccount) error {
	mtx := asTx(tx)
	if !r.store.bankAccounts.exists(mtx, account.ID) {
		return domain.NewNotFoundError(domain.EntityBankAccount, account.ID)
	}

	r.store.bankAccounts.put(mtx, account.ID, *account)
	return nil
}

// List lists bank accounts by name.
func (r *BankAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error) {
	accounts := r.store.bankAccounts.list(nil, func(*domain.BankAccount) bool { return true })

	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})

	return page(accounts, limit, offset), nil
}

// BankTransactionRepository implements usecase.BankTransactionRepository.
type BankTransactionRepository struct {
	store *Store
}

// NewBankTransactionRepository creates a new BankTransactionRepository.
func NewBankTransactionRepository(store *Store) *BankTransactionRepository {
	return &BankTransactionRepository{store: store}
}

// Create appends a register row within a transaction.
func (r *BankTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.BankTransaction) error {
	r.store.bankTxns.put(asTx(tx), txn.ID, *txn)
	return nil
}

// GetByID retrieves a register row by ID.
func (r *BankTransactionRepository) GetByID(ctx context.Context, id string) (*domain.BankTransaction, error) {
	txn, ok := r.store.bankTxns.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityBankTxn, id)
	}

	return txn, nil
}

// GetByIDForUpdate locks and retrieves a register row.
func (r *BankTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankTransaction, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityBankTxn, id); err != nil {
		return nil, err
	}

	txn, ok := r.store.bankTxns.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityBankTxn, id)
	}

	return txn, nil
}

// Update changes only the cleared flag and reconciliation link.
func (r *BankTransactionRepository) Update(ctx context.Context, tx usecase.Transaction, txn *domain.BankTransaction) error {
	mtx := asTx(tx)

	row, ok := r.store.bankTxns.get(mtx, txn.ID)
	if !ok {
		return domain.NewNotFoundError(domain.EntityBankTxn, txn.ID)
	}

	row.Cleared = txn.Cleared
	row.ReconciliationID = txn.ReconciliationID
	r.store.bankTxns.put(mtx, row.ID, *row)

	return nil
}

// ListByAccount lists an account's register, newest first.
func (r *BankTransactionRepository) ListByAccount(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.BankTransaction, error) {
	rows := r.store.bankTxns.list(nil, func(t *domain.BankTransaction) bool {
		return t.BankAccountID == bankAccountID
	})

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PostedAt.After(rows[j].PostedAt)
	})

	return page(rows, limit, offset), nil
}

// ListBySession lists the rows cleared in a reconciliation session.
func (r *BankTransactionRepository) ListBySession(ctx context.Context, tx usecase.Transaction, sessionID string) ([]*domain.BankTransaction, error) {
	return r.store.bankTxns.list(asTx(tx), func(t *domain.BankTransaction) bool {
		return t.Cleared && t.ReconciliationID == sessionID
	}), nil
}

// SumUnreconciled totals the rows not belonging to a completed reconciliation.
func (r *BankTransactionRepository) SumUnreconciled(ctx context.Context, tx usecase.Transaction, bankAccountID string) (domain.Money, error) {
	mtx := asTx(tx)

	completed := make(map[string]bool)
	for _, s := range r.store.reconciliations.list(mtx, func(s *domain.ReconciliationSession) bool {
		return s.BankAccountID == bankAccountID && s.Status == domain.ReconciliationStatusCompleted
	}) {
		completed[s.ID] = true
	}

	var (
		sum domain.Money
		err error
	)
	for _, t := range r.store.bankTxns.list(mtx, func(t *domain.BankTransaction) bool {
		return t.BankAccountID == bankAccountID
	}) {
		if t.Cleared && completed[t.ReconciliationID] {
			continue
		}
		if sum, err = sum.Add(t.Amount); err != nil {
			return 0, err
		}
	}

	return sum, nil
}

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	store *Store
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(store *Store) *TransferRepository {
	return &TransferRepository{store: store}
}

// Create stores a transfer within a transaction.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	r.store.transfers.put(asTx(tx), transfer.ID, *transfer)
	return nil
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	transfer, ok := r.store.transfers.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityTransfer, id)
	}

	return transfer, nil
}
