package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// LedgerUseCase exposes the journal and chart of accounts to callers.
type LedgerUseCase struct {
	engine
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(deps Deps) *LedgerUseCase {
	return &LedgerUseCase{engine: newEngine(deps)}
}

// CreateAccount adds an account to the chart. The ID is generated when empty.
func (uc *LedgerUseCase) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uc.IDGen.Generate()
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = uc.Now()
	}

	if err := account.Validate(); err != nil {
		return err
	}

	return uc.inTx(ctx, "create_account", func(ctx context.Context, tx Transaction) error {
		return uc.Repos.Accounts.Create(ctx, tx, account)
	})
}

// SeedAccounts creates every account that does not exist yet and returns how many were added.
func (uc *LedgerUseCase) SeedAccounts(ctx context.Context, accounts []*domain.Account) (int, error) {
	created := 0

	for _, account := range accounts {
		_, err := uc.Repos.Accounts.GetByID(ctx, account.ID)
		if err == nil {
			continue
		}

		if !errors.Is(err, domain.ErrNotFound) {
			return created, err
		}

		if err := uc.CreateAccount(ctx, account); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// GetAccount retrieves an account by ID.
func (uc *LedgerUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.Repos.Accounts.GetByID(ctx, id)
}

// ListAccounts lists the chart of accounts.
func (uc *LedgerUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.Repos.Accounts.List(ctx, limit, offset)
}

// PostEntry posts a manual journal entry in its own transaction.
func (uc *LedgerUseCase) PostEntry(ctx context.Context, input PostEntryInput) (*domain.JournalEntry, error) {
	input.SourceType = domain.SourceManual
	input.ReversalOf = nil

	if input.PostedAt.IsZero() {
		input.PostedAt = uc.Now()
	}

	var entry *domain.JournalEntry
	err := uc.inTx(ctx, "post_entry", func(ctx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.ledger.Post(ctx, tx, input)
		if err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeJournal, idString(entry.ID), domain.EventTypeJournalPosted, map[string]any{
			"entry_id": entry.ID,
			"source":   entry.SourceType,
			"lines":    len(entry.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.JournalEntriesPosted.WithLabelValues(entry.SourceType).Inc()
	}

	return entry, nil
}

// ReverseEntry reverses a manual entry. Entries posted by documents, checks
// and bank operations are reversed through their owning operation.
func (uc *LedgerUseCase) ReverseEntry(ctx context.Context, id int64, memo string) (*domain.JournalEntry, error) {
	original, err := uc.Repos.Journal.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if original.SourceType != domain.SourceManual {
		return nil, domain.NewStateTransitionError(domain.EntityJournalEntry, idString(id),
			"entry was posted by a "+original.SourceType+" and must be voided there")
	}

	var reversal *domain.JournalEntry
	err = uc.inTx(ctx, "reverse_entry", func(ctx context.Context, tx Transaction) error {
		var err error
		reversal, err = uc.ledger.Reverse(ctx, tx, id, memo, uc.Now())
		if err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeJournal, idString(reversal.ID), domain.EventTypeJournalPosted, map[string]any{
			"entry_id":    reversal.ID,
			"reversal_of": id,
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.JournalReversals.Inc()
	}

	return reversal, nil
}

// GetEntry retrieves a journal entry by ID.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, id int64) (*domain.JournalEntry, error) {
	return uc.Repos.Journal.GetByID(ctx, id)
}

// ListEntriesByAccount lists entries touching an account, newest first.
func (uc *LedgerUseCase) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error) {
	if _, err := uc.Repos.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	limit, offset = clampLimit(limit, offset)
	return uc.Repos.Journal.ListByAccount(ctx, accountID, limit, offset)
}

// BalanceOf returns the account balance at asOf, or the current balance when asOf is nil.
func (uc *LedgerUseCase) BalanceOf(ctx context.Context, accountID string, asOf *time.Time) (domain.Money, error) {
	return uc.ledger.BalanceOf(ctx, accountID, asOf)
}

// ConsistencyReport is the result of a whole-ledger balance check.
type ConsistencyReport struct {
	Debits   domain.Money
	Credits  domain.Money
	Balanced bool
}

// CheckConsistency verifies that total debits equal total credits across the journal.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	debits, credits, err := uc.Repos.Journal.Totals(ctx)
	if err != nil {
		return nil, err
	}

	return &ConsistencyReport{
		Debits:   debits,
		Credits:  credits,
		Balanced: debits == credits,
	}, nil
}
