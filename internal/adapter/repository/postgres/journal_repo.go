package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const journalColumns = `id, company_id, memo, source_type, source_id, reversal_of, posted_at`

// JournalRepository implements usecase.JournalRepository. Lines live in
// journal_lines keyed by entry and position.
type JournalRepository struct {
	pool dbtx
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Create appends the entry and its lines and assigns the entry ID.
// A second reversal of the same entry violates the unique reversal_of key.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	db := conn(r.pool, tx)

	err := db.QueryRow(ctx,
		`INSERT INTO journal_entries (company_id, memo, source_type, source_id, reversal_of, posted_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		entry.CompanyID, entry.Memo, entry.SourceType, entry.SourceID, entry.ReversalOf, entry.PostedAt,
	).Scan(&entry.ID)
	if err != nil {
		return mapError(err, domain.EntityJournalEntry, reversalKey(entry))
	}

	for i, l := range entry.Lines {
		if _, err := db.Exec(ctx,
			`INSERT INTO journal_lines (entry_id, line_no, account_id, debit, credit, memo)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, i+1, l.AccountID, l.Debit.Cents(), l.Credit.Cents(), l.Memo,
		); err != nil {
			return mapError(err, domain.EntityAccount, l.AccountID)
		}
	}

	return nil
}

func reversalKey(entry *domain.JournalEntry) string {
	if entry.ReversalOf == nil {
		return ""
	}
	return strconv.FormatInt(*entry.ReversalOf, 10)
}

// GetByID retrieves an entry with its lines.
func (r *JournalRepository) GetByID(ctx context.Context, id int64) (*domain.JournalEntry, error) {
	return r.getOne(ctx, r.pool, `SELECT `+journalColumns+` FROM journal_entries WHERE id = $1`, id)
}

// GetReversalOf returns the entry reversing id. Within a transaction the row is locked.
func (r *JournalRepository) GetReversalOf(ctx context.Context, tx usecase.Transaction, id int64) (*domain.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE reversal_of = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}

	return r.getOne(ctx, conn(r.pool, tx), query, id)
}

func (r *JournalRepository) getOne(ctx context.Context, db dbtx, query string, id int64) (*domain.JournalEntry, error) {
	entry, err := scanJournalEntry(db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.EntityJournalEntry, strconv.FormatInt(id, 10))
	}

	if err := r.loadLines(ctx, db, []*domain.JournalEntry{entry}); err != nil {
		return nil, err
	}

	return entry, nil
}

// ListByAccount lists entries with a line on the account, newest first.
func (r *JournalRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+journalColumns+` FROM journal_entries
		 WHERE id IN (SELECT entry_id FROM journal_lines WHERE account_id = $1)
		 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.JournalEntry, error) {
		return scanJournalEntry(row)
	})
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, r.pool, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *JournalRepository) loadLines(ctx context.Context, db dbtx, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.JournalEntry, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	rows, err := db.Query(ctx,
		`SELECT entry_id, account_id, debit, credit, memo FROM journal_lines
		 WHERE entry_id = ANY($1) ORDER BY entry_id, line_no`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID       int64
			line          domain.JournalLine
			debit, credit int64
		)

		if err := rows.Scan(&entryID, &line.AccountID, &debit, &credit, &line.Memo); err != nil {
			return err
		}

		line.Debit = domain.Money(debit)
		line.Credit = domain.Money(credit)

		if e := byID[entryID]; e != nil {
			e.Lines = append(e.Lines, line)
		}
	}

	return rows.Err()
}

// SumByAccount totals the account's lines posted at or before asOf.
func (r *JournalRepository) SumByAccount(ctx context.Context, accountID string, asOf *time.Time) (debits, credits domain.Money, err error) {
	var d, c int64

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		 FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
		 WHERE l.account_id = $1 AND ($2::timestamptz IS NULL OR e.posted_at <= $2)`,
		accountID, asOf,
	).Scan(&d, &c)
	if err != nil {
		return 0, 0, err
	}

	return domain.Money(d), domain.Money(c), nil
}

// Totals sums every line in the journal.
func (r *JournalRepository) Totals(ctx context.Context) (debits, credits domain.Money, err error) {
	var d, c int64

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0) FROM journal_lines`,
	).Scan(&d, &c)
	if err != nil {
		return 0, 0, err
	}

	return domain.Money(d), domain.Money(c), nil
}

func scanJournalEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var e domain.JournalEntry

	if err := row.Scan(&e.ID, &e.CompanyID, &e.Memo, &e.SourceType, &e.SourceID, &e.ReversalOf, &e.PostedAt); err != nil {
		return nil, err
	}

	return &e, nil
}
