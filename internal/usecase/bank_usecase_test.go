package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

func TestBankUseCase_CreateBankAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.openBank(t, "Operating", acctCash, "10000.00")
	assert.Equal(t, int64(usecase.DefaultFirstCheckNumber), account.NextCheckNumber)
	assert.Equal(t, money("10000.00"), account.Balance)
	assert.Equal(t, money("10000.00"), account.LastReconciledBalance)
	assert.Equal(t, money("10000.00"), f.balance(t, acctCash))
	assert.Equal(t, money("10000.00"), f.balance(t, acctEquity))

	register, err := f.bank.RegisterBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, money("10000.00"), register)

	tests := []struct {
		name      string
		input     usecase.CreateBankAccountInput
		errorType error
	}{
		{
			name:      "ledger account must be an asset",
			input:     usecase.CreateBankAccountInput{Name: "Bad", LedgerAccountID: acctSales},
			errorType: domain.ErrValidation,
		},
		{
			name:      "unknown ledger account",
			input:     usecase.CreateBankAccountInput{Name: "Bad", LedgerAccountID: "1999"},
			errorType: domain.ErrNotFound,
		},
		{
			name:      "negative opening balance",
			input:     usecase.CreateBankAccountInput{Name: "Bad", LedgerAccountID: acctCash, OpeningBalance: -1},
			errorType: domain.ErrValidation,
		},
		{
			name:      "blank name",
			input:     usecase.CreateBankAccountInput{LedgerAccountID: acctCash},
			errorType: domain.ErrValidation,
		},
		{
			name:      "ledger account already backs a bank account",
			input:     usecase.CreateBankAccountInput{Name: "Second", LedgerAccountID: acctCash, OpeningBalance: money("100.00")},
			errorType: domain.ErrValidation,
		},
		{
			name:      "receivable control account",
			input:     usecase.CreateBankAccountInput{Name: "Bad", LedgerAccountID: acctAR},
			errorType: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bank.CreateBankAccount(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.errorType), "expected %v, got %v", tt.errorType, err)
		})
	}

	accounts, err := f.bank.ListBankAccounts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, money("10000.00"), f.balance(t, acctCash))
	f.requireBalanced(t)
}

func TestBankUseCase_CustomFirstCheckNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.bank.CreateBankAccount(ctx, usecase.CreateBankAccountInput{
		Name:             "Payroll",
		LedgerAccountID:  acctCash,
		FirstCheckNumber: 5000,
	})
	require.NoError(t, err)

	check, err := f.checks.CreateCheck(ctx, expenseCheck(account.ID, "1.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), check.Number)
}

func TestBankUseCase_Transfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checking := f.openBank(t, "Checking", acctCash, "1000.00")
	savings := f.openBank(t, "Savings", acctSavings, "0.00")

	transfer, err := f.bank.Transfer(ctx, usecase.TransferInput{
		FromBankAccountID: checking.ID,
		ToBankAccountID:   savings.ID,
		Amount:            money("250.00"),
	})
	require.NoError(t, err)
	require.NotNil(t, transfer.JournalEntryID)

	from, err := f.bank.GetBankAccount(ctx, checking.ID)
	require.NoError(t, err)
	to, err := f.bank.GetBankAccount(ctx, savings.ID)
	require.NoError(t, err)

	assert.Equal(t, money("750.00"), from.Balance)
	assert.Equal(t, money("250.00"), to.Balance)
	assert.Equal(t, money("750.00"), f.balance(t, acctCash))
	assert.Equal(t, money("250.00"), f.balance(t, acctSavings))

	stored, err := f.bank.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, money("250.00"), stored.Amount)

	rows, err := f.bank.ListTransactions(ctx, savings.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.BankTxnTransfer, rows[0].Type)
	assert.Equal(t, transfer.ID, rows[0].SourceID)

	f.requireBalanced(t)
}

func TestBankUseCase_OpposingTransfersConserveBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checking := f.openBank(t, "Checking", acctCash, "1000.00")
	savings := f.openBank(t, "Savings", acctSavings, "1000.00")

	const perDirection = 50

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)

	transfer := func(from, to string) {
		defer wg.Done()

		_, err := f.bank.Transfer(ctx, usecase.TransferInput{
			FromBankAccountID: from,
			ToBankAccountID:   to,
			Amount:            money("10.00"),
		})
		if err != nil {
			mu.Lock()
			failed = append(failed, err)
			mu.Unlock()
		}
	}

	for i := 0; i < perDirection; i++ {
		wg.Add(2)
		go transfer(checking.ID, savings.ID)
		go transfer(savings.ID, checking.ID)
	}
	wg.Wait()

	require.Empty(t, failed)

	from, err := f.bank.GetBankAccount(ctx, checking.ID)
	require.NoError(t, err)
	to, err := f.bank.GetBankAccount(ctx, savings.ID)
	require.NoError(t, err)

	assert.Equal(t, money("1000.00"), from.Balance)
	assert.Equal(t, money("1000.00"), to.Balance)
	assert.Equal(t, money("1000.00"), f.balance(t, acctCash))
	assert.Equal(t, money("1000.00"), f.balance(t, acctSavings))

	rows, err := f.bank.ListTransactions(ctx, checking.ID, 500, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2*perDirection)

	f.requireBalanced(t)
}

func TestBankUseCase_TransferFailuresChangeNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checking := f.openBank(t, "Checking", acctCash, "1000.00")

	tests := []struct {
		name      string
		input     usecase.TransferInput
		errorType error
	}{
		{
			name:      "missing destination",
			input:     usecase.TransferInput{FromBankAccountID: checking.ID, ToBankAccountID: "missing", Amount: money("10.00")},
			errorType: domain.ErrNotFound,
		},
		{
			name:      "same account",
			input:     usecase.TransferInput{FromBankAccountID: checking.ID, ToBankAccountID: checking.ID, Amount: money("10.00")},
			errorType: domain.ErrValidation,
		},
		{
			name:      "zero amount",
			input:     usecase.TransferInput{FromBankAccountID: checking.ID, ToBankAccountID: "other"},
			errorType: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bank.Transfer(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.errorType), "expected %v, got %v", tt.errorType, err)
		})
	}

	account, err := f.bank.GetBankAccount(ctx, checking.ID)
	require.NoError(t, err)
	assert.Equal(t, money("1000.00"), account.Balance)

	rows, err := f.bank.ListTransactions(ctx, checking.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, money("1000.00"), f.balance(t, acctCash))
}

func TestBankUseCase_RecordTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.openBank(t, "Checking", acctCash, "100.00")

	fee, err := f.bank.RecordTransaction(ctx, usecase.RecordTransactionInput{
		BankAccountID:   account.ID,
		Type:            domain.BankTxnFee,
		OffsetAccountID: acctBankFees,
		Amount:          money("15.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, money("-15.00"), fee.Amount)

	interest, err := f.bank.RecordTransaction(ctx, usecase.RecordTransactionInput{
		BankAccountID:   account.ID,
		Type:            domain.BankTxnInterest,
		OffsetAccountID: acctInterest,
		Amount:          money("2.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, money("2.50"), interest.Amount)

	_, err = f.bank.RecordTransaction(ctx, usecase.RecordTransactionInput{
		BankAccountID:   account.ID,
		Type:            domain.BankTxnCheck,
		OffsetAccountID: acctSupplies,
		Amount:          money("1.00"),
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	assert.Equal(t, money("15.00"), f.balance(t, acctBankFees))
	assert.Equal(t, money("2.50"), f.balance(t, acctInterest))
	assert.Equal(t, money("87.50"), f.balance(t, acctCash))

	register, err := f.bank.RegisterBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, money("87.50"), register)

	got, err := f.bank.GetTransaction(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BankTxnFee, got.Type)

	f.requireBalanced(t)
}
