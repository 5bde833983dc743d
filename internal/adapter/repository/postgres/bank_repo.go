package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const bankAccountColumns = `id, name, ledger_account_id, opening_balance, balance, last_reconciled_balance,
	next_check_number, version, created_at, updated_at`

// BankAccountRepository implements usecase.BankAccountRepository.
type BankAccountRepository struct {
	pool dbtx
}

// NewBankAccountRepository creates a new BankAccountRepository.
func NewBankAccountRepository(pool *pgxpool.Pool) *BankAccountRepository {
	return &BankAccountRepository{pool: pool}
}

// Create stores a new bank account within a transaction.
func (r *BankAccountRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.BankAccount) error {
	_, err := conn(r.pool, tx).Exec(ctx,
		`INSERT INTO bank_accounts (`+bankAccountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Name, a.LedgerAccountID, a.OpeningBalance.Cents(), a.Balance.Cents(), a.LastReconciledBalance.Cents(),
		a.NextCheckNumber, a.Version, a.CreatedAt, a.UpdatedAt,
	)

	return mapError(err, domain.EntityBankAccount, a.ID)
}

// GetByID retrieves a bank account by ID.
func (r *BankAccountRepository) GetByID(ctx context.Context, id string) (*domain.BankAccount, error) {
	a, err := scanBankAccount(r.pool.QueryRow(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityBankAccount, id)
	}

	return a, nil
}

// GetByIDForUpdate retrieves a bank account by ID with a FOR UPDATE lock.
func (r *BankAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankAccount, error) {
	a, err := scanBankAccount(conn(r.pool, tx).QueryRow(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityBankAccount, id)
	}

	return a, nil
}

// GetByIDsForUpdate locks the accounts in id order. Missing ids are omitted.
func (r *BankAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.BankAccount, error) {
	rows, err := conn(r.pool, tx).Query(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, mapError(err, domain.EntityBankAccount, "")
	}

	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BankAccount, error) {
		return scanBankAccount(row)
	})
	if err != nil {
		return nil, mapError(err, domain.EntityBankAccount, "")
	}

	return accounts, nil
}

// Update stores balances, the check counter and the version.
func (r *BankAccountRepository) Update(ctx context.Context, tx usecase.Transaction, a *domain.BankAccount) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE bank_accounts SET balance = $2, last_reconciled_balance = $3, next_check_number = $4,
		 version = $5, updated_at = $6 WHERE id = $1`,
		a.ID, a.Balance.Cents(), a.LastReconciledBalance.Cents(), a.NextCheckNumber, a.Version, a.UpdatedAt,
	)
	if err != nil {
		return mapError(err, domain.EntityBankAccount, a.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityBankAccount, a.ID)
	}

	return nil
}

// List lists bank accounts by name.
func (r *BankAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BankAccount, error) {
		return scanBankAccount(row)
	})
}

func scanBankAccount(row pgx.Row) (*domain.BankAccount, error) {
	var (
		a                                domain.BankAccount
		opening, balance, lastReconciled int64
	)

	if err := row.Scan(&a.ID, &a.Name, &a.LedgerAccountID, &opening, &balance, &lastReconciled,
		&a.NextCheckNumber, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	a.OpeningBalance = domain.Money(opening)
	a.Balance = domain.Money(balance)
	a.LastReconciledBalance = domain.Money(lastReconciled)

	return &a, nil
}

const bankTransactionColumns = `id, bank_account_id, type, amount, memo, source_type, source_id, journal_entry_id,
	reconciliation_id, cleared, posted_at`

// BankTransactionRepository implements usecase.BankTransactionRepository.
type BankTransactionRepository struct {
	pool dbtx
}

// NewBankTransactionRepository creates a new BankTransactionRepository.
func NewBankTransactionRepository(pool *pgxpool.Pool) *BankTransactionRepository {
	return &BankTransactionRepository{pool: pool}
}

// Create appends a register row within a transaction.
func (r *BankTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.BankTransaction) error {
	_, err := conn(r.pool, tx).Exec(ctx,
		`INSERT INTO bank_transactions (`+bankTransactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.BankAccountID, string(t.Type), t.Amount.Cents(), t.Memo, t.SourceType, t.SourceID,
		t.JournalEntryID, t.ReconciliationID, t.Cleared, t.PostedAt,
	)

	return mapError(err, domain.EntityBankTxn, t.ID)
}

// GetByID retrieves a register row by ID.
func (r *BankTransactionRepository) GetByID(ctx context.Context, id string) (*domain.BankTransaction, error) {
	t, err := scanBankTransaction(r.pool.QueryRow(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityBankTxn, id)
	}

	return t, nil
}

// GetByIDForUpdate locks and retrieves a register row.
func (r *BankTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankTransaction, error) {
	t, err := scanBankTransaction(conn(r.pool, tx).QueryRow(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityBankTxn, id)
	}

	return t, nil
}

// Update changes only the cleared flag and reconciliation link.
func (r *BankTransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.BankTransaction) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE bank_transactions SET cleared = $2, reconciliation_id = $3 WHERE id = $1`,
		t.ID, t.Cleared, t.ReconciliationID,
	)
	if err != nil {
		return mapError(err, domain.EntityBankTxn, t.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityBankTxn, t.ID)
	}

	return nil
}

// ListByAccount lists a bank account's register, newest first.
func (r *BankTransactionRepository) ListByAccount(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.BankTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE bank_account_id = $1
		 ORDER BY posted_at DESC, id DESC LIMIT $2 OFFSET $3`,
		bankAccountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return collectBankTransactions(rows)
}

// ListBySession lists the rows cleared in a reconciliation session.
func (r *BankTransactionRepository) ListBySession(ctx context.Context, tx usecase.Transaction, sessionID string) ([]*domain.BankTransaction, error) {
	rows, err := conn(r.pool, tx).Query(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE reconciliation_id = $1 AND cleared
		 ORDER BY posted_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}

	return collectBankTransactions(rows)
}

// SumUnreconciled totals rows not cleared in a completed reconciliation.
func (r *BankTransactionRepository) SumUnreconciled(ctx context.Context, tx usecase.Transaction, bankAccountID string) (domain.Money, error) {
	var sum int64

	err := conn(r.pool, tx).QueryRow(ctx,
		`SELECT COALESCE(SUM(t.amount), 0) FROM bank_transactions t
		 LEFT JOIN reconciliation_sessions s ON s.id = t.reconciliation_id
		 WHERE t.bank_account_id = $1 AND NOT (t.cleared AND COALESCE(s.status, '') = 'completed')`,
		bankAccountID,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}

	return domain.Money(sum), nil
}

func collectBankTransactions(rows pgx.Rows) ([]*domain.BankTransaction, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BankTransaction, error) {
		return scanBankTransaction(row)
	})
}

func scanBankTransaction(row pgx.Row) (*domain.BankTransaction, error) {
	var (
		t      domain.BankTransaction
		typ    string
		amount int64
	)

	if err := row.Scan(&t.ID, &t.BankAccountID, &typ, &amount, &t.Memo, &t.SourceType, &t.SourceID,
		&t.JournalEntryID, &t.ReconciliationID, &t.Cleared, &t.PostedAt); err != nil {
		return nil, err
	}

	t.Type = domain.BankTransactionType(typ)
	t.Amount = domain.Money(amount)

	return &t, nil
}
