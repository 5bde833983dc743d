package domain

import (
	"fmt"
	"time"
)

// Source types recorded on journal entries and bank transactions.
const (
	SourceManual         = "manual"
	SourceInvoice        = "invoice"
	SourceBill           = "bill"
	SourcePayment        = "payment"
	SourceCreditMemo     = "credit_memo"
	SourceCheck          = "check"
	SourceBankTransfer   = "bank_transfer"
	SourceBankRegister   = "bank_register"
	SourceOpeningBalance = "opening_balance"
)

// JournalLine is one debit or credit against an account.
type JournalLine struct {
	AccountID string
	Debit     Money
	Credit    Money
	Memo      string
}

// JournalEntry is an immutable, balanced set of postings.
type JournalEntry struct {
	PostedAt   time.Time
	ID         int64
	CompanyID  string
	Memo       string
	SourceType string
	SourceID   string
	ReversalOf *int64
	Lines      []JournalLine
}

// Totals returns the sum of debits and the sum of credits.
func (e *JournalEntry) Totals() (debits, credits Money, err error) {
	for _, l := range e.Lines {
		if debits, err = debits.Add(l.Debit); err != nil {
			return 0, 0, err
		}
		if credits, err = credits.Add(l.Credit); err != nil {
			return 0, 0, err
		}
	}
	return debits, credits, nil
}

// Validate checks line shape and that the entry balances exactly.
// An unbalanced entry is reported as an integrity violation.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return NewValidationError(EntityJournalEntry, "entry must have at least two lines")
	}

	if len(e.Lines) > MaxLineCount {
		return NewValidationError(EntityJournalEntry, fmt.Sprintf("entry exceeds %d lines", MaxLineCount))
	}

	for i, l := range e.Lines {
		if l.AccountID == "" {
			return NewValidationError(EntityJournalEntry, fmt.Sprintf("line %d has no account", i+1))
		}

		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return NewValidationError(EntityJournalEntry, fmt.Sprintf("line %d has a negative amount", i+1))
		}

		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return NewValidationError(EntityJournalEntry, fmt.Sprintf("line %d must carry exactly one of debit or credit", i+1))
		}

		if max(l.Debit, l.Credit) > MaxAmount {
			return NewValidationError(EntityJournalEntry, fmt.Sprintf("line %d exceeds maximum of %s", i+1, MaxAmount))
		}
	}

	debits, credits, err := e.Totals()
	if err != nil {
		return err
	}
	if debits != credits {
		return NewIntegrityError(fmt.Sprintf("debits %s do not equal credits %s", debits, credits))
	}

	return nil
}

// ReversalLines returns the lines with debit and credit swapped.
func (e *JournalEntry) ReversalLines() []JournalLine {
	lines := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLine{
			AccountID: l.AccountID,
			Debit:     l.Credit,
			Credit:    l.Debit,
			Memo:      l.Memo,
		}
	}
	return lines
}

// DebitLine builds a debit line.
func DebitLine(accountID string, amount Money) JournalLine {
	return JournalLine{AccountID: accountID, Debit: amount}
}

// CreditLine builds a credit line.
func CreditLine(accountID string, amount Money) JournalLine {
	return JournalLine{AccountID: accountID, Credit: amount}
}
