package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/usecase"
)

// NewRepositories wires every PostgreSQL repository over one pool.
func NewRepositories(pool *pgxpool.Pool) usecase.Repositories {
	return usecase.Repositories{
		Accounts:         NewAccountRepository(pool),
		Journal:          NewJournalRepository(pool),
		Documents:        NewDocumentRepository(pool),
		Payments:         NewPaymentRepository(pool),
		Credits:          NewCreditMemoRepository(pool),
		PurchaseOrders:   NewPurchaseOrderRepository(pool),
		Checks:           NewCheckRepository(pool),
		BankAccounts:     NewBankAccountRepository(pool),
		BankTransactions: NewBankTransactionRepository(pool),
		Transfers:        NewTransferRepository(pool),
		Reconciliations:  NewReconciliationRepository(pool),
		Outbox:           NewOutboxRepository(pool),
	}
}
