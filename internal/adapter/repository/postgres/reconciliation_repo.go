package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const reconciliationColumns = `id, bank_account_id, status, beginning_balance, statement_balance, difference,
	statement_date, completed_at, created_at, updated_at`

// ReconciliationRepository implements usecase.ReconciliationRepository. The
// partial index reconciliation_sessions_one_active keeps one active session
// per bank account.
type ReconciliationRepository struct {
	pool dbtx
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{pool: pool}
}

// Create stores a session within a transaction.
func (r *ReconciliationRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.ReconciliationSession) error {
	_, err := conn(r.pool, tx).Exec(ctx,
		`INSERT INTO reconciliation_sessions (`+reconciliationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.BankAccountID, string(s.Status), s.BeginningBalance.Cents(), s.StatementBalance.Cents(),
		s.Difference.Cents(), s.StatementDate, s.CompletedAt, s.CreatedAt, s.UpdatedAt,
	)

	return mapError(err, domain.EntityReconciliation, s.ID)
}

// GetByID retrieves a session by ID.
func (r *ReconciliationRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationSession, error) {
	return r.getOne(ctx, r.pool, `SELECT `+reconciliationColumns+` FROM reconciliation_sessions WHERE id = $1`, id, id)
}

// GetByIDForUpdate locks and retrieves a session.
func (r *ReconciliationRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationSession, error) {
	return r.getOne(ctx, conn(r.pool, tx),
		`SELECT `+reconciliationColumns+` FROM reconciliation_sessions WHERE id = $1 FOR UPDATE`, id, id)
}

// Update stores the session's status, difference and completion time.
func (r *ReconciliationRepository) Update(ctx context.Context, tx usecase.Transaction, s *domain.ReconciliationSession) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE reconciliation_sessions SET status = $2, difference = $3, completed_at = $4, updated_at = $5
		 WHERE id = $1`,
		s.ID, string(s.Status), s.Difference.Cents(), s.CompletedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapError(err, domain.EntityReconciliation, s.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityReconciliation, s.ID)
	}

	return nil
}

// GetActiveByAccount returns the account's active session.
func (r *ReconciliationRepository) GetActiveByAccount(ctx context.Context, tx usecase.Transaction, bankAccountID string) (*domain.ReconciliationSession, error) {
	return r.getOne(ctx, conn(r.pool, tx),
		`SELECT `+reconciliationColumns+` FROM reconciliation_sessions
		 WHERE bank_account_id = $1 AND status = 'active'`,
		bankAccountID, bankAccountID)
}

// GetLatestCompleted returns the account's most recently completed session.
func (r *ReconciliationRepository) GetLatestCompleted(ctx context.Context, tx usecase.Transaction, bankAccountID string) (*domain.ReconciliationSession, error) {
	return r.getOne(ctx, conn(r.pool, tx),
		`SELECT `+reconciliationColumns+` FROM reconciliation_sessions
		 WHERE bank_account_id = $1 AND status = 'completed'
		 ORDER BY completed_at DESC, created_at DESC LIMIT 1`,
		bankAccountID, bankAccountID)
}

func (r *ReconciliationRepository) getOne(ctx context.Context, db dbtx, query, arg, id string) (*domain.ReconciliationSession, error) {
	s, err := scanSession(db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err, domain.EntityReconciliation, id)
	}

	return s, nil
}

func scanSession(row pgx.Row) (*domain.ReconciliationSession, error) {
	var (
		s                                domain.ReconciliationSession
		status                           string
		beginning, statement, difference int64
	)

	if err := row.Scan(&s.ID, &s.BankAccountID, &status, &beginning, &statement, &difference,
		&s.StatementDate, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}

	s.Status = domain.ReconciliationStatus(status)
	s.BeginningBalance = domain.Money(beginning)
	s.StatementBalance = domain.Money(statement)
	s.Difference = domain.Money(difference)

	return &s, nil
}
