package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/metrics"
)

// ControlAccounts names the ledger accounts posted to implicitly.
type ControlAccounts struct {
	Receivable    string
	Payable       string
	OpeningEquity string
}

// IsControl reports whether accountID is one of the control accounts.
func (c ControlAccounts) IsControl(accountID string) bool {
	return accountID == c.Receivable || accountID == c.Payable || accountID == c.OpeningEquity
}

// Deps wires the collaborators shared by every use case.
// Retrier, Guard and Metrics are optional.
// FirstCheckNumber defaults to DefaultFirstCheckNumber.
type Deps struct {
	TxManager TransactionManager
	Repos     Repositories
	IDGen     IDGenerator
	Retrier   Retrier
	Guard     StartGuard
	Metrics   *metrics.Metrics
	Control   ControlAccounts
	CompanyID string
	Now       func() time.Time

	FirstCheckNumber int64
}

// engine holds what every use case needs to run one operation in one transaction.
type engine struct {
	Deps

	ledger *Ledger
}

func newEngine(d Deps) engine {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.FirstCheckNumber <= 0 {
		d.FirstCheckNumber = DefaultFirstCheckNumber
	}

	return engine{
		Deps:   d,
		ledger: NewLedger(d.Repos.Accounts, d.Repos.Journal, d.CompanyID),
	}
}

// inTx runs fn inside a transaction with DefaultTransactionTimeout. The
// transaction is rolled back unless fn succeeds and the commit lands. With a
// retrier configured, the whole attempt is repeated on transient failures.
func (e *engine) inTx(ctx context.Context, operation string, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := e.TxManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	var err error
	if e.Retrier != nil {
		err = e.Retrier.Retry(ctx, attempt)
	} else {
		err = attempt()
	}

	if err != nil && e.Metrics != nil {
		e.Metrics.OperationErrors.WithLabelValues(operation, domain.KindName(err)).Inc()
	}

	return err
}

// emit writes an outbox event in the caller's transaction.
func (e *engine) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any) error {
	if e.Repos.Outbox == nil {
		return nil
	}

	event := &domain.OutboxEvent{
		ID:            e.IDGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     e.Now(),
		Published:     false,
	}

	return e.Repos.Outbox.Create(ctx, tx, event)
}

// recordBankTransaction appends a register row and moves the materialized balance.
// The caller must hold the bank account lock.
func (e *engine) recordBankTransaction(
	ctx context.Context,
	tx Transaction,
	account *domain.BankAccount,
	txnType domain.BankTransactionType,
	amount domain.Money,
	memo, sourceType, sourceID string,
	entryID int64,
	at time.Time,
) (*domain.BankTransaction, error) {
	txn := &domain.BankTransaction{
		ID:             e.IDGen.Generate(),
		BankAccountID:  account.ID,
		Type:           txnType,
		Amount:         amount,
		Memo:           memo,
		SourceType:     sourceType,
		SourceID:       sourceID,
		JournalEntryID: &entryID,
		PostedAt:       at,
	}

	if err := e.Repos.BankTransactions.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	account.Apply(amount)
	account.UpdatedAt = at

	if err := e.Repos.BankAccounts.Update(ctx, tx, account); err != nil {
		return nil, err
	}

	return txn, nil
}

func clampLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
