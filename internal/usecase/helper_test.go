package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iho/genfin/internal/adapter/repository/memory"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const (
	acctCash       = "1000"
	acctSavings    = "1010"
	acctAR         = "1200"
	acctAP         = "2000"
	acctEquity     = "3000"
	acctSales      = "4000"
	acctInterest   = "4100"
	acctReturns    = "4900"
	acctSupplies   = "5000"
	acctRent       = "5100"
	acctBankFees   = "6000"
	acctVendorDisc = "5900"
)

type sequenceIDs struct {
	n atomic.Int64
}

func (s *sequenceIDs) Generate() string {
	return fmt.Sprintf("id-%06d", s.n.Add(1))
}

type fixture struct {
	store  *memory.Store
	deps   usecase.Deps
	ledger *usecase.LedgerUseCase
	ar     *usecase.ReceivablesUseCase
	ap     *usecase.PayablesUseCase
	checks *usecase.CheckUseCase
	bank   *usecase.BankUseCase
	recon  *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	deps := usecase.Deps{
		TxManager: memory.NewTxManager(store),
		Repos:     memory.NewRepositories(store),
		IDGen:     &sequenceIDs{},
		Guard:     memory.NewGuard(),
		Control: usecase.ControlAccounts{
			Receivable:    acctAR,
			Payable:       acctAP,
			OpeningEquity: acctEquity,
		},
		CompanyID: "acme",
	}

	f := &fixture{
		store:  store,
		deps:   deps,
		ledger: usecase.NewLedgerUseCase(deps),
		ar:     usecase.NewReceivablesUseCase(deps),
		ap:     usecase.NewPayablesUseCase(deps),
		checks: usecase.NewCheckUseCase(deps),
		bank:   usecase.NewBankUseCase(deps),
		recon:  usecase.NewReconciliationUseCase(deps),
	}

	accounts := []*domain.Account{
		{ID: acctCash, Code: acctCash, Name: "Operating Cash", Type: domain.AccountTypeAsset},
		{ID: acctSavings, Code: acctSavings, Name: "Savings", Type: domain.AccountTypeAsset},
		{ID: acctAR, Code: acctAR, Name: "Accounts Receivable", Type: domain.AccountTypeAsset},
		{ID: acctAP, Code: acctAP, Name: "Accounts Payable", Type: domain.AccountTypeLiability},
		{ID: acctEquity, Code: acctEquity, Name: "Opening Balance Equity", Type: domain.AccountTypeEquity},
		{ID: acctSales, Code: acctSales, Name: "Sales", Type: domain.AccountTypeIncome},
		{ID: acctInterest, Code: acctInterest, Name: "Interest Income", Type: domain.AccountTypeIncome},
		{ID: acctReturns, Code: acctReturns, Name: "Sales Returns", Type: domain.AccountTypeIncome},
		{ID: acctSupplies, Code: acctSupplies, Name: "Supplies", Type: domain.AccountTypeExpense},
		{ID: acctRent, Code: acctRent, Name: "Rent", Type: domain.AccountTypeExpense},
		{ID: acctVendorDisc, Code: acctVendorDisc, Name: "Vendor Credits", Type: domain.AccountTypeExpense},
		{ID: acctBankFees, Code: acctBankFees, Name: "Bank Fees", Type: domain.AccountTypeExpense},
	}

	_, err := f.ledger.SeedAccounts(context.Background(), accounts)
	require.NoError(t, err)

	return f
}

func money(s string) domain.Money {
	return domain.MustParseMoney(s)
}

func (f *fixture) openBank(t *testing.T, name, ledgerAccount, opening string) *domain.BankAccount {
	t.Helper()

	account, err := f.bank.CreateBankAccount(context.Background(), usecase.CreateBankAccountInput{
		Name:            name,
		LedgerAccountID: ledgerAccount,
		OpeningBalance:  money(opening),
	})
	require.NoError(t, err)

	return account
}

func (f *fixture) sentInvoice(t *testing.T, customer, amount string) *domain.Document {
	t.Helper()
	ctx := context.Background()

	inv, err := f.ar.CreateInvoice(ctx, usecase.CreateDocumentInput{
		PartyID: customer,
		Lines:   []domain.DocumentLine{{Description: "services", AccountID: acctSales, Amount: money(amount)}},
	})
	require.NoError(t, err)

	inv, err = f.ar.SendInvoice(ctx, inv.ID)
	require.NoError(t, err)

	return inv
}

func (f *fixture) postedBill(t *testing.T, vendor, amount string) *domain.Document {
	t.Helper()
	ctx := context.Background()

	bill, err := f.ap.CreateBill(ctx, usecase.CreateDocumentInput{
		PartyID: vendor,
		Lines:   []domain.DocumentLine{{Description: "supplies", AccountID: acctSupplies, Amount: money(amount)}},
	})
	require.NoError(t, err)

	bill, err = f.ap.PostBill(ctx, bill.ID)
	require.NoError(t, err)

	return bill
}

func (f *fixture) balance(t *testing.T, accountID string) domain.Money {
	t.Helper()

	b, err := f.ledger.BalanceOf(context.Background(), accountID, nil)
	require.NoError(t, err)

	return b
}

func (f *fixture) requireBalanced(t *testing.T) {
	t.Helper()

	report, err := f.ledger.CheckConsistency(context.Background())
	require.NoError(t, err)
	require.True(t, report.Balanced, "debits %s credits %s", report.Debits, report.Credits)
}

func (f *fixture) eventTypes(t *testing.T, aggregateType, aggregateID string) []string {
	t.Helper()

	events, err := f.deps.Repos.Outbox.GetByAggregate(context.Background(), aggregateType, aggregateID, 100, 0)
	require.NoError(t, err)

	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}
