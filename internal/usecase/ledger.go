package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// Ledger appends balanced journal entries inside a caller's transaction.
// Every other use case posts through it.
type Ledger struct {
	accountRepo AccountRepository
	journalRepo JournalRepository
	companyID   string
}

// NewLedger creates a new Ledger.
func NewLedger(accountRepo AccountRepository, journalRepo JournalRepository, companyID string) *Ledger {
	return &Ledger{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		companyID:   companyID,
	}
}

// PostEntryInput represents a journal entry to append.
type PostEntryInput struct {
	PostedAt   time.Time
	ReversalOf *int64
	Memo       string
	SourceType string
	SourceID   string
	Lines      []domain.JournalLine
}

// Post validates and appends an entry within tx.
func (l *Ledger) Post(ctx context.Context, tx Transaction, input PostEntryInput) (*domain.JournalEntry, error) {
	entry := &domain.JournalEntry{
		PostedAt:   input.PostedAt,
		CompanyID:  l.companyID,
		Memo:       input.Memo,
		SourceType: input.SourceType,
		SourceID:   input.SourceID,
		ReversalOf: input.ReversalOf,
		Lines:      input.Lines,
	}

	if entry.PostedAt.IsZero() {
		entry.PostedAt = time.Now().UTC()
	}

	if entry.SourceType == "" {
		entry.SourceType = domain.SourceManual
	}

	if err := domain.ValidateMemo(domain.EntityJournalEntry, entry.Memo); err != nil {
		return nil, err
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		ids = append(ids, line.AccountID)
	}

	if err := l.EnsureAccounts(ctx, ids...); err != nil {
		return nil, err
	}

	if err := l.journalRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Reverse posts a new entry with every line's sides swapped. An entry can be
// reversed once, and a reversing entry cannot itself be reversed.
func (l *Ledger) Reverse(ctx context.Context, tx Transaction, entryID int64, memo string, at time.Time) (*domain.JournalEntry, error) {
	original, err := l.journalRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if original.ReversalOf != nil {
		return nil, domain.NewStateTransitionError(domain.EntityJournalEntry, idString(entryID), "cannot reverse a reversing entry")
	}

	_, err = l.journalRepo.GetReversalOf(ctx, tx, entryID)
	switch {
	case err == nil:
		return nil, domain.NewStateTransitionError(domain.EntityJournalEntry, idString(entryID), "entry is already reversed")
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	return l.Post(ctx, tx, PostEntryInput{
		PostedAt:   at,
		ReversalOf: &original.ID,
		Memo:       memo,
		SourceType: original.SourceType,
		SourceID:   original.SourceID,
		Lines:      original.ReversalLines(),
	})
}

// BalanceOf folds the account's lines posted at or before asOf using its normal-balance sign.
func (l *Ledger) BalanceOf(ctx context.Context, accountID string, asOf *time.Time) (domain.Money, error) {
	account, err := l.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}

	debits, credits, err := l.journalRepo.SumByAccount(ctx, accountID, asOf)
	if err != nil {
		return 0, err
	}

	return account.SignedAmount(debits, credits), nil
}

// EnsureAccounts returns a not found error naming the first id missing from the chart.
func (l *Ledger) EnsureAccounts(ctx context.Context, accountIDs ...string) error {
	seen := make(map[string]bool)

	var ids []string
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	accounts, err := l.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	found := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		found[a.ID] = true
	}

	for _, id := range ids {
		if !found[id] {
			return domain.NewNotFoundError(domain.EntityAccount, id)
		}
	}

	return nil
}
