package domain

import "time"

// CheckStatus is the lifecycle state of a written check.
type CheckStatus string

const (
	CheckStatusUnprinted CheckStatus = "unprinted"
	CheckStatusPrinted   CheckStatus = "printed"
	CheckStatusVoid      CheckStatus = "void"
	CheckStatusCleared   CheckStatus = "cleared"
)

// PrintFormat is the check stock layout.
type PrintFormat string

const (
	PrintFormatStandard PrintFormat = "standard"
	PrintFormatVoucher  PrintFormat = "voucher"
	PrintFormatWallet   PrintFormat = "wallet"
)

// IsValid reports whether f is a supported layout.
func (f PrintFormat) IsValid() bool {
	switch f {
	case PrintFormatStandard, PrintFormatVoucher, PrintFormatWallet:
		return true
	}
	return false
}

// CheckLine is one expense split on a check.
type CheckLine struct {
	AccountID string
	Amount    Money
	Memo      string
}

// Check is a paper check drawn on a bank account.
type Check struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PrintedAt         *time.Time
	JournalEntryID    *int64
	VoidEntryID       *int64
	ID                string
	BankAccountID     string
	Payee             string
	Memo              string
	BillID            string
	BankTransactionID string
	Status            CheckStatus
	PrintFormat       PrintFormat
	Lines             []CheckLine
	Number            int64
	Amount            Money
}

// Print records a print run. Reprinting a printed check is allowed.
func (c *Check) Print(format PrintFormat, at time.Time) error {
	if c.Status != CheckStatusUnprinted && c.Status != CheckStatusPrinted {
		return NewStateTransitionError(EntityCheck, c.ID, "cannot print a "+string(c.Status)+" check")
	}

	c.Status = CheckStatusPrinted
	c.PrintFormat = format
	c.PrintedAt = &at
	return nil
}

// Void marks the check void. Cleared checks cannot be voided.
func (c *Check) Void() error {
	switch c.Status {
	case CheckStatusCleared:
		return NewStateTransitionError(EntityCheck, c.ID, "cannot void a cleared check")
	case CheckStatusVoid:
		return NewStateTransitionError(EntityCheck, c.ID, "check is already void")
	}

	c.Status = CheckStatusVoid
	return nil
}

// MarkCleared records that the bank has paid the check.
func (c *Check) MarkCleared() {
	if c.Status != CheckStatusVoid {
		c.Status = CheckStatusCleared
	}
}

// RevertCleared undoes MarkCleared when a reconciliation is reopened.
func (c *Check) RevertCleared() {
	if c.Status != CheckStatusCleared {
		return
	}

	if c.PrintedAt != nil {
		c.Status = CheckStatusPrinted
		return
	}
	c.Status = CheckStatusUnprinted
}
