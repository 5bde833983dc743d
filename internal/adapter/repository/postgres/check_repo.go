package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const checkColumns = `id, bank_account_id, number, payee, memo, bill_id, bank_transaction_id, status, print_format,
	lines, amount, printed_at, journal_entry_id, void_entry_id, created_at, updated_at`

type checkLineRow struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

// CheckRepository implements usecase.CheckRepository. Numbers are unique per
// bank account through checks_bank_account_number_key.
type CheckRepository struct {
	pool dbtx
}

// NewCheckRepository creates a new CheckRepository.
func NewCheckRepository(pool *pgxpool.Pool) *CheckRepository {
	return &CheckRepository{pool: pool}
}

// Create stores a newly written check within a transaction.
func (r *CheckRepository) Create(ctx context.Context, tx usecase.Transaction, c *domain.Check) error {
	lines := make([]checkLineRow, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = checkLineRow{AccountID: l.AccountID, Amount: l.Amount.Cents(), Memo: l.Memo}
	}

	encoded, err := json.Marshal(lines)
	if err != nil {
		return err
	}

	_, err = conn(r.pool, tx).Exec(ctx,
		`INSERT INTO checks (`+checkColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.BankAccountID, c.Number, c.Payee, c.Memo, c.BillID, c.BankTransactionID, string(c.Status),
		string(c.PrintFormat), encoded, c.Amount.Cents(), c.PrintedAt, c.JournalEntryID, c.VoidEntryID,
		c.CreatedAt, c.UpdatedAt,
	)

	return mapError(err, domain.EntityCheck, c.ID)
}

// GetByID retrieves a check by ID.
func (r *CheckRepository) GetByID(ctx context.Context, id string) (*domain.Check, error) {
	c, err := scanCheck(r.pool.QueryRow(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityCheck, id)
	}

	return c, nil
}

// GetByIDForUpdate locks and retrieves a check.
func (r *CheckRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Check, error) {
	c, err := scanCheck(conn(r.pool, tx).QueryRow(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityCheck, id)
	}

	return c, nil
}

// Update stores the check's status, print run and void entry.
func (r *CheckRepository) Update(ctx context.Context, tx usecase.Transaction, c *domain.Check) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE checks SET status = $2, print_format = $3, printed_at = $4, bank_transaction_id = $5,
		 void_entry_id = $6, updated_at = $7 WHERE id = $1`,
		c.ID, string(c.Status), string(c.PrintFormat), c.PrintedAt, c.BankTransactionID, c.VoidEntryID, c.UpdatedAt,
	)
	if err != nil {
		return mapError(err, domain.EntityCheck, c.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityCheck, c.ID)
	}

	return nil
}

// ListByBankAccount lists a bank account's checks, highest number first.
func (r *CheckRepository) ListByBankAccount(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.Check, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE bank_account_id = $1 ORDER BY number DESC LIMIT $2 OFFSET $3`,
		bankAccountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Check, error) {
		return scanCheck(row)
	})
}

func scanCheck(row pgx.Row) (*domain.Check, error) {
	var (
		c              domain.Check
		status, format string
		lines          []byte
		amount         int64
	)

	if err := row.Scan(&c.ID, &c.BankAccountID, &c.Number, &c.Payee, &c.Memo, &c.BillID, &c.BankTransactionID,
		&status, &format, &lines, &amount, &c.PrintedAt, &c.JournalEntryID, &c.VoidEntryID,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	var decoded []checkLineRow
	if err := json.Unmarshal(lines, &decoded); err != nil {
		return nil, err
	}

	for _, l := range decoded {
		c.Lines = append(c.Lines, domain.CheckLine{AccountID: l.AccountID, Amount: domain.Money(l.Amount), Memo: l.Memo})
	}

	c.Status = domain.CheckStatus(status)
	c.PrintFormat = domain.PrintFormat(format)
	c.Amount = domain.Money(amount)

	return &c, nil
}
