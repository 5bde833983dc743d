package domain

import "time"

// CreditMemoStatus is the lifecycle state of a credit memo.
type CreditMemoStatus string

const (
	CreditMemoStatusOpen    CreditMemoStatus = "open"
	CreditMemoStatusApplied CreditMemoStatus = "applied"
	CreditMemoStatusVoid    CreditMemoStatus = "void"
)

// CreditMemo is a standing credit owed to a customer or by a vendor.
// Remaining never increases.
type CreditMemo struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	JournalEntryID  *int64
	VoidEntryID     *int64
	ID              string
	Direction       Direction
	HolderID        string
	OffsetAccountID string
	Memo            string
	Status          CreditMemoStatus
	OriginalAmount  Money
	Remaining       Money
}

// CheckHolder verifies the memo may be applied to the given document.
func (c *CreditMemo) CheckHolder(doc *Document) error {
	if c.Direction != doc.Direction || c.HolderID != doc.PartyID {
		entity := doc.Direction.Entity()
		return NewMismatchError(EntityCreditMemo, c.ID,
			"credit and "+entity+" must be for the same "+doc.Direction.Party())
	}
	return nil
}

// Consume decrements the remaining amount.
func (c *CreditMemo) Consume(amount Money) error {
	if c.Status == CreditMemoStatusVoid {
		return NewStateTransitionError(EntityCreditMemo, c.ID, "credit memo is void")
	}

	if amount > c.Remaining {
		return NewBalanceExceededError(EntityCreditMemo, c.ID, amount, c.Remaining)
	}

	c.Remaining -= amount
	if c.Remaining.IsZero() {
		c.Status = CreditMemoStatusApplied
	}
	return nil
}

// Void marks an untouched memo void.
func (c *CreditMemo) Void() error {
	if c.Status == CreditMemoStatusVoid {
		return NewStateTransitionError(EntityCreditMemo, c.ID, "credit memo is already void")
	}

	if c.Remaining != c.OriginalAmount {
		return NewStateTransitionError(EntityCreditMemo, c.ID, "cannot void a credit memo that has been applied")
	}

	c.Status = CreditMemoStatusVoid
	return nil
}
