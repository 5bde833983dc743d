package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository. Entry IDs come from
// a sequence, so a rolled back entry leaves a gap.
type JournalRepository struct {
	store *Store
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(store *Store) *JournalRepository {
	return &JournalRepository{store: store}
}

func journalKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Create appends the entry and assigns its ID.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	mtx := asTx(tx)

	if entry.ReversalOf != nil {
		if err := mtx.lock(ctx, "journal_reversal", journalKey(*entry.ReversalOf)); err != nil {
			return err
		}

		if _, err := r.GetReversalOf(ctx, tx, *entry.ReversalOf); err == nil {
			return domain.NewStateTransitionError(domain.EntityJournalEntry, journalKey(*entry.ReversalOf), "entry is already reversed")
		}
	}

	entry.ID = r.store.journalSeq.Add(1)

	row := *entry
	row.Lines = append([]domain.JournalLine(nil), entry.Lines...)
	r.store.journal.put(mtx, journalKey(entry.ID), row)

	return nil
}

// GetByID retrieves an entry by ID.
func (r *JournalRepository) GetByID(ctx context.Context, id int64) (*domain.JournalEntry, error) {
	entry, ok := r.store.journal.get(nil, journalKey(id))
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityJournalEntry, journalKey(id))
	}

	return entry, nil
}

// GetReversalOf returns the entry reversing id, as seen by tx.
func (r *JournalRepository) GetReversalOf(ctx context.Context, tx usecase.Transaction, id int64) (*domain.JournalEntry, error) {
	mtx := asTx(tx)
	if mtx != nil {
		if err := mtx.lock(ctx, "journal_reversal", journalKey(id)); err != nil {
			return nil, err
		}
	}

	found := r.store.journal.list(mtx, func(e *domain.JournalEntry) bool {
		return e.ReversalOf != nil && *e.ReversalOf == id
	})
	if len(found) == 0 {
		return nil, domain.NewNotFoundError(domain.EntityJournalEntry, journalKey(id))
	}

	return found[0], nil
}

// ListByAccount lists entries with a line on the account, newest first.
func (r *JournalRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error) {
	entries := r.store.journal.list(nil, func(e *domain.JournalEntry) bool {
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				return true
			}
		}
		return false
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID > entries[j].ID
	})

	return page(entries, limit, offset), nil
}

// SumByAccount totals the account's lines posted at or before asOf.
func (r *JournalRepository) SumByAccount(ctx context.Context, accountID string, asOf *time.Time) (debits, credits domain.Money, err error) {
	entries := r.store.journal.list(nil, func(e *domain.JournalEntry) bool {
		return asOf == nil || !e.PostedAt.After(*asOf)
	})

	for _, e := range entries {
		for _, l := range e.Lines {
			if l.AccountID != accountID {
				continue
			}
			if debits, err = debits.Add(l.Debit); err != nil {
				return 0, 0, err
			}
			if credits, err = credits.Add(l.Credit); err != nil {
				return 0, 0, err
			}
		}
	}

	return debits, credits, nil
}

// Totals sums every line in the journal.
func (r *JournalRepository) Totals(ctx context.Context) (debits, credits domain.Money, err error) {
	entries := r.store.journal.list(nil, func(*domain.JournalEntry) bool { return true })

	for _, e := range entries {
		d, c, err := e.Totals()
		if err != nil {
			return 0, 0, err
		}
		if debits, err = debits.Add(d); err != nil {
			return 0, 0, err
		}
		if credits, err = credits.Add(c); err != nil {
			return 0, 0, err
		}
	}

	return debits, credits, nil
}
