package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// BankUseCase manages bank accounts, their registers and transfers between them.
type BankUseCase struct {
	engine
}

// NewBankUseCase creates a new BankUseCase.
func NewBankUseCase(deps Deps) *BankUseCase {
	return &BankUseCase{engine: newEngine(deps)}
}

// CreateBankAccountInput represents input for opening a bank account.
type CreateBankAccountInput struct {
	OpenedAt         time.Time
	Name             string
	LedgerAccountID  string
	OpeningBalance   domain.Money
	FirstCheckNumber int64
}

// CreateBankAccount opens a bank account tied to an asset account. A non-zero
// opening balance posts debit cash, credit opening equity, and is the starting
// reconciled balance.
func (uc *BankUseCase) CreateBankAccount(ctx context.Context, input CreateBankAccountInput) (*domain.BankAccount, error) {
	if err := domain.ValidateName(domain.EntityBankAccount, input.Name); err != nil {
		return nil, err
	}

	if input.OpeningBalance.IsNegative() {
		return nil, domain.NewValidationError(domain.EntityBankAccount, "opening balance cannot be negative")
	}

	if input.FirstCheckNumber < 0 {
		return nil, domain.NewValidationError(domain.EntityBankAccount, "first check number must be positive")
	}

	if input.FirstCheckNumber == 0 {
		input.FirstCheckNumber = uc.FirstCheckNumber
	}

	cash, err := uc.Repos.Accounts.GetByID(ctx, input.LedgerAccountID)
	if err != nil {
		return nil, err
	}

	if cash.Type != domain.AccountTypeAsset {
		return nil, domain.NewValidationError(domain.EntityBankAccount, "ledger account "+cash.ID+" is not an asset account")
	}

	if uc.Control.IsControl(cash.ID) {
		return nil, domain.NewValidationError(domain.EntityBankAccount, "ledger account "+cash.ID+" is a control account")
	}

	var account *domain.BankAccount
	err = uc.inTx(ctx, "bank_account_create", func(ctx context.Context, tx Transaction) error {
		now := uc.Now()
		openedAt := input.OpenedAt
		if openedAt.IsZero() {
			openedAt = now
		}

		account = &domain.BankAccount{
			ID:                    uc.IDGen.Generate(),
			Name:                  input.Name,
			LedgerAccountID:       cash.ID,
			OpeningBalance:        input.OpeningBalance,
			Balance:               input.OpeningBalance,
			LastReconciledBalance: input.OpeningBalance,
			NextCheckNumber:       input.FirstCheckNumber,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		if input.OpeningBalance.IsPositive() {
			if _, err := uc.ledger.Post(ctx, tx, PostEntryInput{
				PostedAt:   openedAt,
				Memo:       "opening balance " + account.Name,
				SourceType: domain.SourceOpeningBalance,
				SourceID:   account.ID,
				Lines: []domain.JournalLine{
					domain.DebitLine(cash.ID, input.OpeningBalance),
					domain.CreditLine(uc.Control.OpeningEquity, input.OpeningBalance),
				},
			}); err != nil {
				return err
			}
		}

		return uc.Repos.BankAccounts.Create(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetBankAccount retrieves a bank account by ID.
func (uc *BankUseCase) GetBankAccount(ctx context.Context, id string) (*domain.BankAccount, error) {
	return uc.Repos.BankAccounts.GetByID(ctx, id)
}

// ListBankAccounts lists bank accounts.
func (uc *BankUseCase) ListBankAccounts(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error) {
	limit, offset = clampLimit(limit, offset)
	return uc.Repos.BankAccounts.List(ctx, limit, offset)
}

// ListTransactions lists a bank account's register, newest first.
func (uc *BankUseCase) ListTransactions(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.BankTransaction, error) {
	if _, err := uc.Repos.BankAccounts.GetByID(ctx, bankAccountID); err != nil {
		return nil, err
	}

	limit, offset = clampLimit(limit, offset)
	return uc.Repos.BankTransactions.ListByAccount(ctx, bankAccountID, limit, offset)
}

// RegisterBalance is the last reconciled balance plus every row not yet part
// of a completed reconciliation, cleared or not.
// Both reads happen under the bank account lock.
func (uc *BankUseCase) RegisterBalance(ctx context.Context, bankAccountID string) (domain.Money, error) {
	var balance domain.Money

	err := uc.inTx(ctx, "bank_register_balance", func(ctx context.Context, tx Transaction) error {
		account, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, bankAccountID)
		if err != nil {
			return err
		}

		outstanding, err := uc.Repos.BankTransactions.SumUnreconciled(ctx, tx, bankAccountID)
		if err != nil {
			return err
		}

		balance, err = account.LastReconciledBalance.Add(outstanding)
		return err
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// TransferInput represents input for moving money between two bank accounts.
type TransferInput struct {
	Date              time.Time
	FromBankAccountID string
	ToBankAccountID   string
	Memo              string
	Amount            domain.Money
}

// Transfer moves money between two bank accounts in one entry with two
// linked register rows. Both accounts are locked in id order.
func (uc *BankUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	start := time.Now()

	transfer := &domain.Transfer{
		FromBankAccountID: input.FromBankAccountID,
		ToBankAccountID:   input.ToBankAccountID,
		Memo:              input.Memo,
		Amount:            input.Amount,
	}

	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	ids := []string{input.FromBankAccountID, input.ToBankAccountID}
	sort.Strings(ids)

	err := uc.inTx(ctx, "transfer", func(ctx context.Context, tx Transaction) error {
		accounts, err := uc.Repos.BankAccounts.GetByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return err
		}

		byID := make(map[string]*domain.BankAccount, len(accounts))
		for _, a := range accounts {
			byID[a.ID] = a
		}

		for _, id := range ids {
			if byID[id] == nil {
				return domain.NewNotFoundError(domain.EntityBankAccount, id)
			}
		}

		from, to := byID[input.FromBankAccountID], byID[input.ToBankAccountID]

		now := uc.Now()
		date := input.Date
		if date.IsZero() {
			date = now
		}

		transfer.ID = uc.IDGen.Generate()
		transfer.CreatedAt = now

		entry, err := uc.ledger.Post(ctx, tx, PostEntryInput{
			PostedAt:   date,
			Memo:       transferMemo(transfer, from, to),
			SourceType: domain.SourceBankTransfer,
			SourceID:   transfer.ID,
			Lines: []domain.JournalLine{
				domain.DebitLine(to.LedgerAccountID, transfer.Amount),
				domain.CreditLine(from.LedgerAccountID, transfer.Amount),
			},
		})
		if err != nil {
			return err
		}
		transfer.JournalEntryID = &entry.ID

		memo := transferMemo(transfer, from, to)
		if _, err := uc.recordBankTransaction(ctx, tx, from, domain.BankTxnTransfer, transfer.Amount.Neg(),
			memo, domain.SourceBankTransfer, transfer.ID, entry.ID, date); err != nil {
			return err
		}

		if _, err := uc.recordBankTransaction(ctx, tx, to, domain.BankTxnTransfer, transfer.Amount,
			memo, domain.SourceBankTransfer, transfer.ID, entry.ID, date); err != nil {
			return err
		}

		if err := uc.Repos.Transfers.Create(ctx, tx, transfer); err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeBankAccount, from.ID, domain.EventTypeTransferCreated, map[string]any{
			"transfer_id":          transfer.ID,
			"from_bank_account_id": from.ID,
			"to_bank_account_id":   to.ID,
			"amount":               transfer.Amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.TransfersCreated.Inc()
		uc.Metrics.TransferDuration.Observe(time.Since(start).Seconds())
		uc.Metrics.JournalEntriesPosted.WithLabelValues(domain.SourceBankTransfer).Inc()
	}

	return transfer, nil
}

func transferMemo(t *domain.Transfer, from, to *domain.BankAccount) string {
	if t.Memo != "" {
		return t.Memo
	}
	return "transfer " + from.Name + " to " + to.Name
}

// GetTransfer retrieves a transfer by ID.
func (uc *BankUseCase) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	return uc.Repos.Transfers.GetByID(ctx, id)
}

// RecordTransactionInput represents a manual register entry.
type RecordTransactionInput struct {
	Date            time.Time
	BankAccountID   string
	Type            domain.BankTransactionType
	OffsetAccountID string
	Memo            string
	Amount          domain.Money
}

// RecordTransaction books a deposit, fee or interest row against an offset
// account. Checks and transfers have their own operations.
func (uc *BankUseCase) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*domain.BankTransaction, error) {
	switch input.Type {
	case domain.BankTxnDeposit, domain.BankTxnFee, domain.BankTxnInterest:
	case domain.BankTxnCheck, domain.BankTxnTransfer:
		return nil, domain.NewValidationError(domain.EntityBankTxn, string(input.Type)+" rows are recorded by their own operation")
	default:
		return nil, domain.NewValidationError(domain.EntityBankTxn, "invalid transaction type "+string(input.Type))
	}

	if input.OffsetAccountID == "" {
		return nil, domain.NewValidationError(domain.EntityBankTxn, "offset account id is required")
	}

	if err := domain.ValidateAmount(domain.EntityBankTxn, input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateMemo(domain.EntityBankTxn, input.Memo); err != nil {
		return nil, err
	}

	var txn *domain.BankTransaction
	err := uc.inTx(ctx, "bank_transaction_record", func(ctx context.Context, tx Transaction) error {
		bank, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, input.BankAccountID)
		if err != nil {
			return err
		}

		now := uc.Now()
		date := input.Date
		if date.IsZero() {
			date = now
		}

		lines := []domain.JournalLine{
			domain.DebitLine(bank.LedgerAccountID, input.Amount),
			domain.CreditLine(input.OffsetAccountID, input.Amount),
		}
		signed := input.Amount
		if !input.Type.Inflow() {
			lines = []domain.JournalLine{
				domain.DebitLine(input.OffsetAccountID, input.Amount),
				domain.CreditLine(bank.LedgerAccountID, input.Amount),
			}
			signed = input.Amount.Neg()
		}

		sourceID := uc.IDGen.Generate()
		entry, err := uc.ledger.Post(ctx, tx, PostEntryInput{
			PostedAt:   date,
			Memo:       input.Memo,
			SourceType: domain.SourceBankRegister,
			SourceID:   sourceID,
			Lines:      lines,
		})
		if err != nil {
			return err
		}

		txn, err = uc.recordBankTransaction(ctx, tx, bank, input.Type, signed,
			input.Memo, domain.SourceBankRegister, sourceID, entry.ID, date)
		if err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeBankAccount, bank.ID, domain.EventTypeBankTransactionAdded, map[string]any{
			"bank_transaction_id": txn.ID,
			"type":                string(txn.Type),
			"amount":              txn.Amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.BankTransactions.WithLabelValues(string(input.Type)).Inc()
		uc.Metrics.JournalEntriesPosted.WithLabelValues(domain.SourceBankRegister).Inc()
	}

	return txn, nil
}

// GetTransaction retrieves a register row by ID.
func (uc *BankUseCase) GetTransaction(ctx context.Context, id string) (*domain.BankTransaction, error) {
	txn, err := uc.Repos.BankTransactions.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError(domain.EntityBankTxn, id)
	}
	return txn, err
}
