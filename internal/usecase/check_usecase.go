package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// CheckUseCase writes, prints and voids checks.
type CheckUseCase struct {
	engine
}

// NewCheckUseCase creates a new CheckUseCase.
func NewCheckUseCase(deps Deps) *CheckUseCase {
	return &CheckUseCase{engine: newEngine(deps)}
}

// CreateCheckInput represents input for writing a check. A check either
// carries expense lines summing to Amount, or pays BillID and carries none.
type CreateCheckInput struct {
	Date          time.Time
	BankAccountID string
	Payee         string
	Memo          string
	BillID        string
	Amount        domain.Money
	Lines         []domain.CheckLine
}

func (uc *CheckUseCase) validateCreate(input CreateCheckInput) error {
	if input.BankAccountID == "" {
		return domain.NewValidationError(domain.EntityCheck, "bank account id is required")
	}

	if err := domain.ValidateName(domain.EntityCheck, input.Payee); err != nil {
		return err
	}

	if err := domain.ValidateAmount(domain.EntityCheck, input.Amount); err != nil {
		return err
	}

	if err := domain.ValidateMemo(domain.EntityCheck, input.Memo); err != nil {
		return err
	}

	if input.BillID != "" {
		if len(input.Lines) > 0 {
			return domain.NewValidationError(domain.EntityCheck, "a check paying a bill carries no expense lines")
		}
		return nil
	}

	if len(input.Lines) == 0 {
		return domain.NewValidationError(domain.EntityCheck, "at least one expense line is required")
	}

	if len(input.Lines) > domain.MaxLineCount {
		return domain.NewValidationError(domain.EntityCheck, fmt.Sprintf("check exceeds %d lines", domain.MaxLineCount))
	}

	var sum domain.Money
	for i, line := range input.Lines {
		if line.AccountID == "" {
			return domain.NewValidationError(domain.EntityCheck, fmt.Sprintf("line %d has no account", i+1))
		}
		if err := domain.ValidateAmount(domain.EntityCheck, line.Amount); err != nil {
			return err
		}
		sum += line.Amount
	}

	if sum != input.Amount {
		return domain.NewValidationError(domain.EntityCheck,
			fmt.Sprintf("expense lines total %s but check amount is %s", sum, input.Amount))
	}

	return nil
}

// CreateCheck issues the next check number of the bank account under its row
// lock, so concurrent calls receive distinct contiguous numbers.
func (uc *CheckUseCase) CreateCheck(ctx context.Context, input CreateCheckInput) (*domain.Check, error) {
	if err := uc.validateCreate(input); err != nil {
		return nil, err
	}

	var check *domain.Check
	err := uc.inTx(ctx, "check_create", func(ctx context.Context, tx Transaction) error {
		var bill *domain.Document
		if input.BillID != "" {
			var err error
			bill, err = uc.lockBill(ctx, tx, input.BillID)
			if err != nil {
				return err
			}

			if err := bill.Apply(input.Amount); err != nil {
				return err
			}
		}

		bank, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, input.BankAccountID)
		if err != nil {
			return err
		}

		now := uc.Now()
		date := input.Date
		if date.IsZero() {
			date = now
		}

		check = &domain.Check{
			ID:            uc.IDGen.Generate(),
			BankAccountID: bank.ID,
			Number:        bank.IssueCheckNumber(),
			Payee:         input.Payee,
			Memo:          input.Memo,
			BillID:        input.BillID,
			Amount:        input.Amount,
			Lines:         input.Lines,
			Status:        domain.CheckStatusUnprinted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		entry, err := uc.ledger.Post(ctx, tx, PostEntryInput{
			PostedAt:   date,
			Memo:       fmt.Sprintf("check #%d to %s", check.Number, check.Payee),
			SourceType: domain.SourceCheck,
			SourceID:   check.ID,
			Lines:      uc.checkLines(check, bank.LedgerAccountID),
		})
		if err != nil {
			return err
		}
		check.JournalEntryID = &entry.ID

		txn, err := uc.recordBankTransaction(ctx, tx, bank, domain.BankTxnCheck, check.Amount.Neg(),
			fmt.Sprintf("check #%d %s", check.Number, check.Payee), domain.SourceCheck, check.ID, entry.ID, date)
		if err != nil {
			return err
		}
		check.BankTransactionID = txn.ID

		if err := uc.Repos.Checks.Create(ctx, tx, check); err != nil {
			return err
		}

		if bill != nil {
			payment := &domain.Payment{
				ID:                uc.IDGen.Generate(),
				DocumentID:        bill.ID,
				Amount:            check.Amount,
				Date:              date,
				Method:            domain.PaymentMethodCheck,
				BankAccountID:     bank.ID,
				BankTransactionID: txn.ID,
				CheckID:           check.ID,
				JournalEntryID:    &entry.ID,
				CreatedAt:         now,
			}

			if err := uc.Repos.Payments.Create(ctx, tx, payment); err != nil {
				return err
			}

			bill.UpdatedAt = now
			if err := uc.Repos.Documents.Update(ctx, tx, bill); err != nil {
				return err
			}
		}

		return uc.emit(ctx, tx, domain.AggregateTypeCheck, check.ID, domain.EventTypeCheckIssued, map[string]any{
			"check_id":        check.ID,
			"bank_account_id": bank.ID,
			"number":          check.Number,
			"payee":           check.Payee,
			"amount":          check.Amount.String(),
			"bill_id":         check.BillID,
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.ChecksIssued.Inc()
		uc.Metrics.JournalEntriesPosted.WithLabelValues(domain.SourceCheck).Inc()
	}

	return check, nil
}

// checkLines debits the expense lines, or AP for a bill payment, and credits cash.
func (uc *CheckUseCase) checkLines(check *domain.Check, cashAccountID string) []domain.JournalLine {
	var lines []domain.JournalLine

	if check.BillID != "" {
		lines = append(lines, domain.DebitLine(uc.Control.Payable, check.Amount))
	}

	for _, l := range check.Lines {
		line := domain.DebitLine(l.AccountID, l.Amount)
		line.Memo = l.Memo
		lines = append(lines, line)
	}

	return append(lines, domain.CreditLine(cashAccountID, check.Amount))
}

// PrintChecks marks every check printed in one transaction; one bad check fails the batch.
func (uc *CheckUseCase) PrintChecks(ctx context.Context, ids []string, format domain.PrintFormat) ([]*domain.Check, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError(domain.EntityCheck, "at least one check id is required")
	}

	if !format.IsValid() {
		return nil, domain.NewValidationError(domain.EntityCheck, "invalid print format "+string(format))
	}

	sorted := uniqueSorted(ids)

	var printed []*domain.Check
	err := uc.inTx(ctx, "check_print", func(ctx context.Context, tx Transaction) error {
		printed = printed[:0]
		now := uc.Now()

		for _, id := range sorted {
			check, err := uc.Repos.Checks.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}

			if err := check.Print(format, now); err != nil {
				return err
			}

			check.UpdatedAt = now
			if err := uc.Repos.Checks.Update(ctx, tx, check); err != nil {
				return err
			}

			if err := uc.emit(ctx, tx, domain.AggregateTypeCheck, check.ID, domain.EventTypeCheckPrinted, map[string]any{
				"check_id": check.ID,
				"number":   check.Number,
				"format":   string(format),
			}); err != nil {
				return err
			}

			printed = append(printed, check)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.ChecksPrinted.Add(float64(len(printed)))
	}

	return printed, nil
}

// VoidCheck reverses the check's entry, restores the bank balance with an
// offsetting register row and, for a bill payment, reopens the bill amount.
func (uc *CheckUseCase) VoidCheck(ctx context.Context, id string) (*domain.Check, error) {
	var check *domain.Check
	err := uc.inTx(ctx, "check_void", func(ctx context.Context, tx Transaction) error {
		var err error
		check, err = uc.Repos.Checks.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := check.Void(); err != nil {
			return err
		}

		now := uc.Now()

		if check.BillID != "" {
			if err := uc.unapplyBillPayment(ctx, tx, check, now); err != nil {
				return err
			}
		}

		bank, err := uc.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, check.BankAccountID)
		if err != nil {
			return err
		}

		if check.JournalEntryID == nil {
			return domain.NewIntegrityError("check " + check.ID + " has no journal entry")
		}

		reversal, err := uc.ledger.Reverse(ctx, tx, *check.JournalEntryID, fmt.Sprintf("void check #%d", check.Number), now)
		if err != nil {
			return err
		}
		check.VoidEntryID = &reversal.ID

		if _, err := uc.recordBankTransaction(ctx, tx, bank, domain.BankTxnCheck, check.Amount,
			fmt.Sprintf("void check #%d", check.Number), domain.SourceCheck, check.ID, reversal.ID, now); err != nil {
			return err
		}

		check.UpdatedAt = now
		if err := uc.Repos.Checks.Update(ctx, tx, check); err != nil {
			return err
		}

		return uc.emit(ctx, tx, domain.AggregateTypeCheck, check.ID, domain.EventTypeCheckVoided, map[string]any{
			"check_id":        check.ID,
			"bank_account_id": check.BankAccountID,
			"number":          check.Number,
			"amount":          check.Amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.ChecksVoided.Inc()
		uc.Metrics.JournalReversals.Inc()
	}

	return check, nil
}

func (uc *CheckUseCase) unapplyBillPayment(ctx context.Context, tx Transaction, check *domain.Check, now time.Time) error {
	bill, err := uc.lockBill(ctx, tx, check.BillID)
	if err != nil {
		return err
	}

	payment, err := uc.Repos.Payments.GetByCheck(ctx, tx, check.ID)
	if err != nil {
		return err
	}

	if payment.Reversed {
		return nil
	}

	if err := bill.Unapply(payment.Amount); err != nil {
		return err
	}

	payment.Reversed = true
	if err := uc.Repos.Payments.Update(ctx, tx, payment); err != nil {
		return err
	}

	bill.UpdatedAt = now
	return uc.Repos.Documents.Update(ctx, tx, bill)
}

func (uc *CheckUseCase) lockBill(ctx context.Context, tx Transaction, id string) (*domain.Document, error) {
	bill, err := uc.Repos.Documents.GetByIDForUpdate(ctx, tx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError(domain.EntityBill, id)
	}
	if err != nil {
		return nil, err
	}

	if bill.Direction != domain.DirectionPayable {
		return nil, domain.NewNotFoundError(domain.EntityBill, id)
	}

	return bill, nil
}

// GetCheck retrieves a check by ID.
func (uc *CheckUseCase) GetCheck(ctx context.Context, id string) (*domain.Check, error) {
	return uc.Repos.Checks.GetByID(ctx, id)
}

// ListChecks lists checks drawn on a bank account, highest number first.
func (uc *CheckUseCase) ListChecks(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.Check, error) {
	limit, offset = clampLimit(limit, offset)
	return uc.Repos.Checks.ListByBankAccount(ctx, bankAccountID, limit, offset)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	sort.Strings(out)
	return out
}
