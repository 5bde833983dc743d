package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const transferColumns = `id, from_bank_account_id, to_bank_account_id, memo, amount, journal_entry_id, created_at`

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	pool dbtx
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

// Create creates a new transfer.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	_, err := conn(r.pool, tx).Exec(ctx,
		`INSERT INTO transfers (`+transferColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		transfer.ID, transfer.FromBankAccountID, transfer.ToBankAccountID, transfer.Memo,
		transfer.Amount.Cents(), transfer.JournalEntryID, transfer.CreatedAt,
	)

	return mapError(err, domain.EntityTransfer, transfer.ID)
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	var (
		t      domain.Transfer
		amount int64
	)

	err := r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id).
		Scan(&t.ID, &t.FromBankAccountID, &t.ToBankAccountID, &t.Memo, &amount, &t.JournalEntryID, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err, domain.EntityTransfer, id)
	}

	t.Amount = domain.Money(amount)

	return &t, nil
}
