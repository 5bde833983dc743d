package domain

import "time"

// Transfer represents a money movement between two bank accounts.
type Transfer struct {
	CreatedAt         time.Time
	JournalEntryID    *int64
	ID                string
	FromBankAccountID string
	ToBankAccountID   string
	Memo              string
	Amount            Money
}

// Validate validates transfer request.
func (t *Transfer) Validate() error {
	if t.FromBankAccountID == "" || t.ToBankAccountID == "" {
		return NewValidationError(EntityBankAccount, "both accounts are required")
	}

	if t.FromBankAccountID == t.ToBankAccountID {
		return NewValidationError(EntityBankAccount, "cannot transfer to same account")
	}

	if err := ValidateAmount(EntityBankAccount, t.Amount); err != nil {
		return err
	}

	return ValidateMemo(EntityBankAccount, t.Memo)
}
