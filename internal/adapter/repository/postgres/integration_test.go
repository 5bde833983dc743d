//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/genfin/internal/adapter/repository/memory"
	"github.com/iho/genfin/internal/adapter/repository/postgres"
	"github.com/iho/genfin/internal/domain"
	infrapg "github.com/iho/genfin/internal/infrastructure/postgres"
	"github.com/iho/genfin/internal/usecase"
)

// Run with: DATABASE_URL=... go test -tags integration ./internal/adapter/repository/postgres/
func newIntegrationDeps(t *testing.T) usecase.Deps {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, infrapg.RunMigrations(zerolog.Nop(), dbURL, "../../../../migrations"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPoolWithConfig(ctx, infrapg.PoolConfig{DatabaseURL: dbURL, MaxConns: 20, LockTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE outbox_events, transfers, payments, checks, bank_transactions,
		reconciliation_sessions, bank_accounts, purchase_orders, credit_memos, documents,
		journal_lines, journal_entries, accounts RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	deps := usecase.Deps{
		TxManager: postgres.NewTxManager(pool),
		Repos:     postgres.NewRepositories(pool),
		IDGen:     postgres.NewULIDGenerator(),
		Retrier:   postgres.NewRetrier(zerolog.Nop()),
		Guard:     memory.NewGuard(),
		Control:   usecase.ControlAccounts{Receivable: "1200", Payable: "2000", OpeningEquity: "3000"},
		CompanyID: "integration",
	}

	_, err = usecase.NewLedgerUseCase(deps).SeedAccounts(ctx, []*domain.Account{
		{ID: "1000", Code: "1000", Name: "Operating Cash", Type: domain.AccountTypeAsset},
		{ID: "1200", Code: "1200", Name: "Accounts Receivable", Type: domain.AccountTypeAsset},
		{ID: "2000", Code: "2000", Name: "Accounts Payable", Type: domain.AccountTypeLiability},
		{ID: "3000", Code: "3000", Name: "Opening Balance Equity", Type: domain.AccountTypeEquity},
		{ID: "4000", Code: "4000", Name: "Sales", Type: domain.AccountTypeIncome},
		{ID: "5100", Code: "5100", Name: "Rent", Type: domain.AccountTypeExpense},
	})
	require.NoError(t, err)

	return deps
}

func TestIntegration_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	ctx := context.Background()
	deps := newIntegrationDeps(t)

	bank, err := usecase.NewBankUseCase(deps).CreateBankAccount(ctx, usecase.CreateBankAccountInput{
		Name: "Operating", LedgerAccountID: "1000",
	})
	require.NoError(t, err)

	receivables := usecase.NewReceivablesUseCase(deps)
	invoice, err := receivables.CreateInvoice(ctx, usecase.CreateDocumentInput{
		PartyID: "cust-1",
		Lines:   []domain.DocumentLine{{AccountID: "4000", Amount: domain.MustParseMoney("100.00")}},
	})
	require.NoError(t, err)
	_, err = receivables.SendInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	const payers = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		exceeded  atomic.Int32
	)

	wg.Add(payers)
	for range payers {
		go func() {
			defer wg.Done()

			_, err := receivables.ApplyPayment(ctx, usecase.ApplyPaymentInput{
				DocumentID:    invoice.ID,
				BankAccountID: bank.ID,
				Method:        domain.PaymentMethodACH,
				Amount:        domain.MustParseMoney("10.00"),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrBalanceExceeded), errors.Is(err, domain.ErrStateTransition):
				exceeded.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(payers-10), exceeded.Load())

	got, err := receivables.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, got.BalanceDue.IsZero())
	assert.Equal(t, domain.DocumentStatusPaid, got.Status)

	report, err := usecase.NewLedgerUseCase(deps).CheckConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
}

func TestIntegration_ConcurrentChecksGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	deps := newIntegrationDeps(t)

	bank, err := usecase.NewBankUseCase(deps).CreateBankAccount(ctx, usecase.CreateBankAccountInput{
		Name: "Operating", LedgerAccountID: "1000", OpeningBalance: domain.MustParseMoney("5000.00"),
	})
	require.NoError(t, err)

	checks := usecase.NewCheckUseCase(deps)

	const writers = 15
	numbers := make(chan int64, writers)
	var wg sync.WaitGroup

	wg.Add(writers)
	for range writers {
		go func() {
			defer wg.Done()

			check, err := checks.CreateCheck(ctx, usecase.CreateCheckInput{
				BankAccountID: bank.ID,
				Payee:         "Landlord",
				Amount:        domain.MustParseMoney("25.00"),
				Lines:         []domain.CheckLine{{AccountID: "5100", Amount: domain.MustParseMoney("25.00")}},
			})
			if err != nil {
				t.Errorf("create check: %v", err)
				return
			}
			numbers <- check.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool)
	for n := range numbers {
		assert.False(t, seen[n], "check number %d issued twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, writers)

	for n := int64(usecase.DefaultFirstCheckNumber); n < usecase.DefaultFirstCheckNumber+writers; n++ {
		assert.True(t, seen[n], "check number %d missing", n)
	}
}

func TestIntegration_ConcurrentBankAccountsShareNoLedgerAccount(t *testing.T) {
	ctx := context.Background()
	deps := newIntegrationDeps(t)
	bankUC := usecase.NewBankUseCase(deps)

	const workers = 5

	var (
		wg       sync.WaitGroup
		created  atomic.Int32
		rejected atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := bankUC.CreateBankAccount(ctx, usecase.CreateBankAccountInput{
				Name: "Operating", LedgerAccountID: "1000", OpeningBalance: domain.MustParseMoney("100.00"),
			})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, domain.ErrValidation):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), rejected.Load())

	balance, err := usecase.NewLedgerUseCase(deps).BalanceOf(ctx, "1000", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MustParseMoney("100.00"), balance)
}

func TestIntegration_ReverseEntryOnce(t *testing.T) {
	ctx := context.Background()
	deps := newIntegrationDeps(t)
	ledger := usecase.NewLedgerUseCase(deps)

	entry, err := ledger.PostEntry(ctx, usecase.PostEntryInput{
		Memo: "owner contribution",
		Lines: []domain.JournalLine{
			{AccountID: "1000", Debit: domain.MustParseMoney("50.00")},
			{AccountID: "3000", Credit: domain.MustParseMoney("50.00")},
		},
	})
	require.NoError(t, err)

	_, err = ledger.ReverseEntry(ctx, entry.ID, "")
	require.NoError(t, err)

	_, err = ledger.ReverseEntry(ctx, entry.ID, "")
	require.ErrorIs(t, err, domain.ErrStateTransition)

	balance, err := ledger.BalanceOf(ctx, "1000", nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestIntegration_OutboxRecordsEvents(t *testing.T) {
	ctx := context.Background()
	deps := newIntegrationDeps(t)

	bankUC := usecase.NewBankUseCase(deps)
	bank, err := bankUC.CreateBankAccount(ctx, usecase.CreateBankAccountInput{
		Name: "Operating", LedgerAccountID: "1000", OpeningBalance: domain.MustParseMoney("10.00"),
	})
	require.NoError(t, err)

	_, err = bankUC.RecordTransaction(ctx, usecase.RecordTransactionInput{
		BankAccountID:   bank.ID,
		Type:            domain.BankTxnInterest,
		OffsetAccountID: "4000",
		Amount:          domain.MustParseMoney("0.12"),
	})
	require.NoError(t, err)

	events, err := deps.Repos.Outbox.GetByAggregate(ctx, domain.AggregateTypeBankAccount, bank.ID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	unpublished, err := deps.Repos.Outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	require.NotEmpty(t, unpublished)

	require.NoError(t, deps.Repos.Outbox.MarkPublished(ctx, unpublished[0].ID, time.Now()))
	require.NoError(t, deps.Repos.Outbox.DeletePublished(ctx, time.Now().Add(time.Minute)))

	rest, err := deps.Repos.Outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, rest, len(unpublished)-1)
}
