package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
	"github.com/iho/genfin/internal/usecase/mocks"
)

// statementScenario opens a 10000 account, deposits 3000 and writes a 1200 check.
func statementScenario(t *testing.T, f *fixture) (*domain.BankAccount, *domain.BankTransaction, *domain.Check) {
	t.Helper()
	ctx := context.Background()

	bank := f.openBank(t, "Operating", acctCash, "10000.00")

	deposit, err := f.bank.RecordTransaction(ctx, usecase.RecordTransactionInput{
		BankAccountID:   bank.ID,
		Type:            domain.BankTxnDeposit,
		OffsetAccountID: acctSales,
		Amount:          money("3000.00"),
	})
	require.NoError(t, err)

	check, err := f.checks.CreateCheck(ctx, expenseCheck(bank.ID, "1200.00"))
	require.NoError(t, err)

	return bank, deposit, check
}

func TestReconciliationUseCase_CompleteBalanced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank, deposit, check := statementScenario(t, f)

	session, err := f.recon.Start(ctx, usecase.StartReconciliationInput{
		BankAccountID:    bank.ID,
		StatementBalance: money("11800.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationStatusActive, session.Status)
	assert.Equal(t, money("10000.00"), session.BeginningBalance)

	toggled, err := f.recon.MarkCleared(ctx, usecase.MarkClearedInput{
		SessionID:      session.ID,
		TransactionIDs: []string{deposit.ID, check.BankTransactionID},
	})
	require.NoError(t, err)
	require.Len(t, toggled, 2)
	for _, txn := range toggled {
		assert.True(t, txn.Cleared)
		assert.Equal(t, session.ID, txn.ReconciliationID)
	}

	result, err := f.recon.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.Difference)
	assert.Equal(t, money("11800.00"), result.BookBalance)

	updated, err := f.bank.GetBankAccount(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, money("11800.00"), updated.LastReconciledBalance)

	cleared, err := f.checks.GetCheck(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckStatusCleared, cleared.Status)

	completed, err := f.recon.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	_, err = f.checks.VoidCheck(ctx, check.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "got %v", err)

	_, err = f.recon.MarkCleared(ctx, usecase.MarkClearedInput{SessionID: session.ID, TransactionIDs: []string{deposit.ID}})
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "got %v", err)

	register, err := f.bank.RegisterBalance(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, money("11800.00"), register)
}

func TestReconciliationUseCase_CompleteWithDiscrepancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank, deposit, check := statementScenario(t, f)

	session, err := f.recon.Start(ctx, usecase.StartReconciliationInput{
		BankAccountID:    bank.ID,
		StatementBalance: money("12000.00"),
	})
	require.NoError(t, err)

	_, err = f.recon.MarkCleared(ctx, usecase.MarkClearedInput{
		SessionID:      session.ID,
		TransactionIDs: []string{deposit.ID, check.BankTransactionID},
	})
	require.NoError(t, err)

	result, err := f.recon.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, money("200.00"), result.Difference)

	got, err := f.recon.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationStatusActive, got.Status)

	updated, err := f.bank.GetBankAccount(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, money("10000.00"), updated.LastReconciledBalance)

	unchanged, err := f.checks.GetCheck(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckStatusUnprinted, unchanged.Status)
}

func TestReconciliationUseCase_MarkClearedToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank, deposit, _ := statementScenario(t, f)

	session, err := f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: bank.ID, StatementBalance: money("10000.00")})
	require.NoError(t, err)

	for _, want := range []bool{true, false} {
		toggled, err := f.recon.MarkCleared(ctx, usecase.MarkClearedInput{SessionID: session.ID, TransactionIDs: []string{deposit.ID}})
		require.NoError(t, err)
		require.Len(t, toggled, 1)
		assert.Equal(t, want, toggled[0].Cleared)
	}

	rows, err := f.recon.ListClearedTransactions(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	result, err := f.recon.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestReconciliationUseCase_MarkClearedRejectsOtherAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank, _, _ := statementScenario(t, f)
	savings := f.openBank(t, "Savings", acctSavings, "0.00")

	other, err := f.bank.RecordTransaction(ctx, usecase.RecordTransactionInput{
		BankAccountID:   savings.ID,
		Type:            domain.BankTxnInterest,
		OffsetAccountID: acctInterest,
		Amount:          money("1.00"),
	})
	require.NoError(t, err)

	session, err := f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: bank.ID, StatementBalance: money("10000.00")})
	require.NoError(t, err)

	_, err = f.recon.MarkCleared(ctx, usecase.MarkClearedInput{SessionID: session.ID, TransactionIDs: []string{other.ID}})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	_, err = f.recon.MarkCleared(ctx, usecase.MarkClearedInput{SessionID: session.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
}

func TestReconciliationUseCase_SecondStartIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.openBank(t, "Operating", acctCash, "100.00")

	_, err := f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: bank.ID, StatementBalance: money("100.00")})
	require.NoError(t, err)

	_, err = f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: bank.ID, StatementBalance: money("100.00")})
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "got %v", err)

	_, err = f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: "missing"})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestReconciliationUseCase_StartGuardRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	bank := f.openBank(t, "Operating", acctCash, "100.00")

	guard := mocks.NewMockStartGuard(ctrl)
	guard.EXPECT().
		TryAcquire(gomock.Any(), "reconciliation:start:"+bank.ID, gomock.Any()).
		Return("", false, nil)

	deps := f.deps
	deps.Guard = guard
	recon := usecase.NewReconciliationUseCase(deps)

	_, err := recon.Start(context.Background(), usecase.StartReconciliationInput{BankAccountID: bank.ID})
	assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict), "got %v", err)

	_, err = f.recon.GetSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestReconciliationUseCase_StartGuardReleased(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	bank := f.openBank(t, "Operating", acctCash, "100.00")
	key := "reconciliation:start:" + bank.ID

	guard := mocks.NewMockStartGuard(ctrl)
	gomock.InOrder(
		guard.EXPECT().TryAcquire(gomock.Any(), key, usecase.DefaultTransactionTimeout).Return("lease-1", true, nil),
		guard.EXPECT().Release(gomock.Any(), key, "lease-1").Return(nil),
	)

	deps := f.deps
	deps.Guard = guard

	_, err := usecase.NewReconciliationUseCase(deps).Start(context.Background(), usecase.StartReconciliationInput{BankAccountID: bank.ID})
	require.NoError(t, err)
}

func TestReconciliationUseCase_Reopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank, deposit, check := statementScenario(t, f)

	first, err := f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: bank.ID, StatementBalance: money("11800.00")})
	require.NoError(t, err)

	_, err = f.recon.Reopen(ctx, first.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "got %v", err)

	_, err = f.recon.MarkCleared(ctx, usecase.MarkClearedInput{
		SessionID:      first.ID,
		TransactionIDs: []string{deposit.ID, check.BankTransactionID},
	})
	require.NoError(t, err)

	result, err := f.recon.Complete(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, result.Success)

	reopened, err := f.recon.Reopen(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationStatusActive, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)

	updated, err := f.bank.GetBankAccount(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, money("10000.00"), updated.LastReconciledBalance)

	reverted, err := f.checks.GetCheck(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckStatusUnprinted, reverted.Status)

	rows, err := f.recon.ListClearedTransactions(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	result, err = f.recon.Complete(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, result.Success)

	second, err := f.recon.Start(ctx, usecase.StartReconciliationInput{BankAccountID: bank.ID, StatementBalance: money("11800.00")})
	require.NoError(t, err)
	assert.Equal(t, money("11800.00"), second.BeginningBalance)

	result, err = f.recon.Complete(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, result.Success)

	_, err = f.recon.Reopen(ctx, first.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "got %v", err)
}

func TestReconciliationUseCase_ConcurrentStartsLeaveOneActive(t *testing.T) {
	tests := []struct {
		name      string
		withGuard bool
	}{
		{name: "with start guard", withGuard: true},
		{name: "row lock only", withGuard: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			bank := f.openBank(t, "Operating", acctCash, "10000.00")

			deps := f.deps
			if !tt.withGuard {
				deps.Guard = nil
			}
			recon := usecase.NewReconciliationUseCase(deps)

			const workers = 20

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				started   []*domain.ReconciliationSession
				conflicts int
			)

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					session, err := recon.Start(ctx, usecase.StartReconciliationInput{
						BankAccountID:    bank.ID,
						StatementBalance: money("10000.00"),
					})

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						started = append(started, session)
					case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, domain.ErrStateTransition):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			require.Len(t, started, 1)
			assert.Equal(t, workers-1, conflicts)

			active, err := f.deps.Repos.Reconciliations.GetActiveByAccount(ctx, nil, bank.ID)
			require.NoError(t, err)
			assert.Equal(t, started[0].ID, active.ID)
		})
	}
}

func TestReconciliationUseCase_RegisterBalanceStableDuringCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank, deposit, check := statementScenario(t, f)

	session, err := f.recon.Start(ctx, usecase.StartReconciliationInput{
		BankAccountID:    bank.ID,
		StatementBalance: money("11800.00"),
	})
	require.NoError(t, err)

	_, err = f.recon.MarkCleared(ctx, usecase.MarkClearedInput{
		SessionID:      session.ID,
		TransactionIDs: []string{deposit.ID, check.BankTransactionID},
	})
	require.NoError(t, err)

	const readers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[domain.Money]int{}
		done = make(chan struct{})
	)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				register, err := f.bank.RegisterBalance(ctx, bank.ID)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}

				mu.Lock()
				seen[register]++
				mu.Unlock()
			}
		}()
	}

	// Completing moves the cleared rows into the reconciled balance and
	// reopening moves them back. The register total never changes.
	for i := 0; i < 5; i++ {
		result, err := f.recon.Complete(ctx, session.ID)
		require.NoError(t, err)
		require.True(t, result.Success)

		_, err = f.recon.Reopen(ctx, session.ID)
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()

	assert.Len(t, seen, 1, "register balances seen: %v", seen)
	assert.Contains(t, seen, money("11800.00"))
}
