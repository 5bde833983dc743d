package usecase

import (
	"context"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// AccountRepository defines data access for chart-of-accounts entries.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// JournalRepository defines data access for the append-only journal.
// There is intentionally no update or delete.
type JournalRepository interface {
	// Create appends the entry and assigns its ID.
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, id int64) (*domain.JournalEntry, error)
	// GetReversalOf returns the entry that reverses id, or a not found error.
	GetReversalOf(ctx context.Context, tx Transaction, id int64) (*domain.JournalEntry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error)
	// SumByAccount totals the lines of an account posted at or before asOf (all lines when nil).
	SumByAccount(ctx context.Context, accountID string, asOf *time.Time) (debits, credits domain.Money, err error)
	Totals(ctx context.Context) (debits, credits domain.Money, err error)
}

// DocumentRepository defines data access for invoices and bills.
type DocumentRepository interface {
	Create(ctx context.Context, tx Transaction, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Document, error)
	Update(ctx context.Context, tx Transaction, doc *domain.Document) error
	ListByParty(ctx context.Context, direction domain.Direction, partyID string, limit, offset int) ([]*domain.Document, error)
}

// PaymentRepository defines data access for amounts applied to documents.
type PaymentRepository interface {
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
	Update(ctx context.Context, tx Transaction, payment *domain.Payment) error
	GetByCheck(ctx context.Context, tx Transaction, checkID string) (*domain.Payment, error)
	ListByDocument(ctx context.Context, documentID string) ([]*domain.Payment, error)
}

// CreditMemoRepository defines data access for credit memos.
type CreditMemoRepository interface {
	Create(ctx context.Context, tx Transaction, credit *domain.CreditMemo) error
	GetByID(ctx context.Context, id string) (*domain.CreditMemo, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.CreditMemo, error)
	Update(ctx context.Context, tx Transaction, credit *domain.CreditMemo) error
}

// PurchaseOrderRepository defines data access for purchase orders.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, tx Transaction, po *domain.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.PurchaseOrder, error)
	Update(ctx context.Context, tx Transaction, po *domain.PurchaseOrder) error
}

// CheckRepository defines data access for checks.
type CheckRepository interface {
	Create(ctx context.Context, tx Transaction, check *domain.Check) error
	GetByID(ctx context.Context, id string) (*domain.Check, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Check, error)
	Update(ctx context.Context, tx Transaction, check *domain.Check) error
	ListByBankAccount(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.Check, error)
}

// BankAccountRepository defines data access for bank accounts.
type BankAccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.BankAccount) error
	GetByID(ctx context.Context, id string) (*domain.BankAccount, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.BankAccount, error)
	// GetByIDsForUpdate locks the accounts in the order given; callers sort ids first.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.BankAccount, error)
	Update(ctx context.Context, tx Transaction, account *domain.BankAccount) error
	List(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error)
}

// BankTransactionRepository defines data access for bank register rows.
type BankTransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.BankTransaction) error
	GetByID(ctx context.Context, id string) (*domain.BankTransaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.BankTransaction, error)
	// Update changes only the cleared flag and reconciliation link.
	Update(ctx context.Context, tx Transaction, txn *domain.BankTransaction) error
	ListByAccount(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.BankTransaction, error)
	ListBySession(ctx context.Context, tx Transaction, sessionID string) ([]*domain.BankTransaction, error)
	// SumUnreconciled totals rows not belonging to a completed reconciliation.
	SumUnreconciled(ctx context.Context, tx Transaction, bankAccountID string) (domain.Money, error)
}

// TransferRepository defines data access for bank transfers.
type TransferRepository interface {
	Create(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id string) (*domain.Transfer, error)
}

// ReconciliationRepository defines data access for reconciliation sessions.
type ReconciliationRepository interface {
	Create(ctx context.Context, tx Transaction, session *domain.ReconciliationSession) error
	GetByID(ctx context.Context, id string) (*domain.ReconciliationSession, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.ReconciliationSession, error)
	Update(ctx context.Context, tx Transaction, session *domain.ReconciliationSession) error
	GetActiveByAccount(ctx context.Context, tx Transaction, bankAccountID string) (*domain.ReconciliationSession, error)
	GetLatestCompleted(ctx context.Context, tx Transaction, bankAccountID string) (*domain.ReconciliationSession, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// Repositories bundles the stores a use case writes through.
type Repositories struct {
	Accounts         AccountRepository
	Journal          JournalRepository
	Documents        DocumentRepository
	Payments         PaymentRepository
	Credits          CreditMemoRepository
	PurchaseOrders   PurchaseOrderRepository
	Checks           CheckRepository
	BankAccounts     BankAccountRepository
	BankTransactions BankTransactionRepository
	Transfers        TransferRepository
	Reconciliations  ReconciliationRepository
	Outbox           OutboxRepository
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation that failed with a transient storage error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// StartGuard is a non-blocking mutual-exclusion token keyed by name.
type StartGuard interface {
	// TryAcquire returns false immediately when the key is already held.
	// The returned token identifies this holder to Release.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees key only while it is still held under token.
	Release(ctx context.Context, key, token string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
