package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/genfin/internal/domain"
)

var accountRowColumns = []string{"id", "code", "name", "type", "created_at"}

var bankAccountRowColumns = []string{
	"id", "name", "ledger_account_id", "opening_balance", "balance", "last_reconciled_balance",
	"next_check_number", "version", "created_at", "updated_at",
}

func TestAccountRepositoryCreate(t *testing.T) {
	mockPool := newMockPool(t)
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectExec("INSERT INTO accounts").
		WithArgs("1000", "1000", "Checking", "asset", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := &AccountRepository{pool: mockPool}
	err := repo.Create(context.Background(), nil, &domain.Account{
		ID:        "1000",
		Code:      "1000",
		Name:      "Checking",
		Type:      domain.AccountTypeAsset,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryCreateDuplicate(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "accounts_pkey"})

	repo := &AccountRepository{pool: mockPool}
	err := repo.Create(context.Background(), nil, &domain.Account{ID: "1000", Code: "1000", Name: "Checking", Type: domain.AccountTypeAsset})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryGetByID(t *testing.T) {
	mockPool := newMockPool(t)
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("(?s)SELECT (.+) FROM accounts WHERE id").
		WithArgs("4000").
		WillReturnRows(pgxmock.NewRows(accountRowColumns).AddRow("4000", "4000", "Sales", "income", now))

	repo := &AccountRepository{pool: mockPool}
	account, err := repo.GetByID(context.Background(), "4000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if account.Type != domain.AccountTypeIncome || account.Name != "Sales" || !account.CreatedAt.Equal(now) {
		t.Fatalf("unexpected account: %+v", account)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryGetByIDNotFound(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("(?s)SELECT (.+) FROM accounts WHERE id").
		WithArgs("9999").
		WillReturnError(pgx.ErrNoRows)

	repo := &AccountRepository{pool: mockPool}
	_, err := repo.GetByID(context.Background(), "9999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryList(t *testing.T) {
	mockPool := newMockPool(t)
	now := time.Now().UTC()

	mockPool.ExpectQuery("(?s)SELECT (.+) FROM accounts ORDER BY code").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(accountRowColumns).
			AddRow("1000", "1000", "Checking", "asset", now).
			AddRow("2000", "2000", "Accounts Payable", "liability", now))

	repo := &AccountRepository{pool: mockPool}
	accounts, err := repo.List(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(accounts) != 2 || accounts[1].Type != domain.AccountTypeLiability {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}

	assertExpectations(t, mockPool)
}

func TestBankAccountRepositoryGetByIDsForUpdate(t *testing.T) {
	mockPool := newMockPool(t)
	now := time.Now().UTC()

	mockPool.ExpectQuery("(?s)SELECT (.+) FROM bank_accounts WHERE id = ANY(.+) FOR UPDATE").
		WithArgs([]string{"bank-a", "bank-b"}).
		WillReturnRows(pgxmock.NewRows(bankAccountRowColumns).
			AddRow("bank-a", "Operating", "1000", int64(100000), int64(75000), int64(100000), int64(1002), int64(3), now, now))

	repo := &BankAccountRepository{pool: mockPool}
	accounts, err := repo.GetByIDsForUpdate(context.Background(), nil, []string{"bank-a", "bank-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected missing ids to be omitted, got %d accounts", len(accounts))
	}

	a := accounts[0]
	if a.Balance != domain.Money(75000) || a.LastReconciledBalance != domain.Money(100000) || a.NextCheckNumber != 1002 {
		t.Fatalf("unexpected bank account: %+v", a)
	}

	assertExpectations(t, mockPool)
}

func TestBankAccountRepositoryUpdateWithinTransaction(t *testing.T) {
	mockPool := newMockPool(t)
	now := time.Now().UTC()

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE bank_accounts SET balance").
		WithArgs("bank-a", int64(50000), int64(0), int64(1001), int64(2), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectCommit()

	manager := newTxManagerWithPool(mockPool)
	tx, err := manager.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := &BankAccountRepository{pool: mockPool}
	err = repo.Update(context.Background(), tx, &domain.BankAccount{
		ID:              "bank-a",
		Balance:         domain.Money(50000),
		NextCheckNumber: 1001,
		Version:         2,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestBankAccountRepositoryUpdateMissing(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec("UPDATE bank_accounts SET balance").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := &BankAccountRepository{pool: mockPool}
	err := repo.Update(context.Background(), nil, &domain.BankAccount{ID: "bank-x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestBankTransactionRepositorySumUnreconciled(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("SELECT COALESCE\\(SUM\\(t.amount\\), 0\\) FROM bank_transactions").
		WithArgs("bank-a").
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(-120000)))

	repo := &BankTransactionRepository{pool: mockPool}
	sum, err := repo.SumUnreconciled(context.Background(), nil, "bank-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum != domain.Money(-120000) {
		t.Fatalf("expected -1200.00, got %s", sum)
	}

	assertExpectations(t, mockPool)
}

func TestJournalRepositoryTotals(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("SELECT COALESCE\\(SUM\\(debit\\), 0\\), COALESCE\\(SUM\\(credit\\), 0\\) FROM journal_lines").
		WillReturnRows(pgxmock.NewRows([]string{"debits", "credits"}).AddRow(int64(250000), int64(250000)))

	repo := &JournalRepository{pool: mockPool}
	debits, credits, err := repo.Totals(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if debits != credits || debits != domain.Money(250000) {
		t.Fatalf("unexpected totals: debits=%s credits=%s", debits, credits)
	}

	assertExpectations(t, mockPool)
}

func TestCheckRepositoryCreateDuplicateNumber(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec("INSERT INTO checks").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintCheckNumber})

	repo := &CheckRepository{pool: mockPool}
	err := repo.Create(context.Background(), nil, &domain.Check{
		ID:            "chk-1",
		BankAccountID: "bank-a",
		Number:        1001,
		Payee:         "Office Supply Co",
		Status:        domain.CheckStatusUnprinted,
		Lines:         []domain.CheckLine{{AccountID: "6000", Amount: domain.Money(120000)}},
		Amount:        domain.Money(120000),
	})
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestJournalRepositoryCreateSecondReversal(t *testing.T) {
	mockPool := newMockPool(t)
	original := int64(7)

	mockPool.ExpectQuery("INSERT INTO journal_entries").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintReversalOf})

	repo := &JournalRepository{pool: mockPool}
	err := repo.Create(context.Background(), nil, &domain.JournalEntry{
		ReversalOf: &original,
		Lines: []domain.JournalLine{
			{AccountID: "1000", Debit: domain.Money(100)},
			{AccountID: "4000", Credit: domain.Money(100)},
		},
	})
	if !errors.Is(err, domain.ErrStateTransition) {
		t.Fatalf("expected state transition error, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestJournalRepositoryCreateInsertsLines(t *testing.T) {
	mockPool := newMockPool(t)

	mockPool.ExpectQuery("INSERT INTO journal_entries").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mockPool.ExpectExec("INSERT INTO journal_lines").
		WithArgs(int64(42), 1, "1200", int64(5000), int64(0), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO journal_lines").
		WithArgs(int64(42), 2, "4000", int64(0), int64(5000), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := &JournalRepository{pool: mockPool}
	entry := &domain.JournalEntry{
		CompanyID: "default",
		Lines: []domain.JournalLine{
			{AccountID: "1200", Debit: domain.Money(5000)},
			{AccountID: "4000", Credit: domain.Money(5000)},
		},
	}
	if err := repo.Create(context.Background(), nil, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.ID != 42 {
		t.Fatalf("expected assigned id 42, got %d", entry.ID)
	}

	assertExpectations(t, mockPool)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrNotFound},
		{name: "lock timeout", err: context.DeadlineExceeded, want: domain.ErrConcurrencyConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: pgErrDeadlock}, want: domain.ErrConcurrencyConflict},
		{name: "lock not available", err: &pgconn.PgError{Code: pgErrLockNotAvailable}, want: domain.ErrConcurrencyConflict},
		{name: "active session", err: &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintActiveSession}, want: domain.ErrConcurrencyConflict},
		{name: "ledger account bound twice", err: &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintBankLedger}, want: domain.ErrValidation},
		{name: "foreign key", err: &pgconn.PgError{Code: pgErrForeignKeyViolation}, want: domain.ErrNotFound},
		{name: "duplicate", err: &pgconn.PgError{Code: pgErrUniqueViolation}, want: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, domain.EntityBankAccount, "bank-a")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if mapError(nil, domain.EntityAccount, "x") != nil {
		t.Fatalf("expected nil for nil error")
	}

	other := errors.New("connection reset")
	if !errors.Is(mapError(other, domain.EntityAccount, "x"), other) {
		t.Fatalf("expected unknown errors to pass through")
	}
}

func TestTransientErrorKeepsDriverError(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: pgErrSerializationFailure, Message: "could not serialize access"}, domain.EntityCheck, "chk-1")

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgErrSerializationFailure {
		t.Fatalf("expected driver error to remain reachable, got %v", err)
	}
	if !isRetryableError(err) {
		t.Fatalf("expected mapped serialization failure to be retryable")
	}
}
