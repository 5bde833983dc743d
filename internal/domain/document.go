package domain

import (
	"fmt"
	"time"
)

// Direction distinguishes receivable documents (invoices) from payable ones (bills).
type Direction string

const (
	DirectionReceivable Direction = "receivable"
	DirectionPayable    Direction = "payable"
)

// Entity returns the document entity name for the direction.
func (d Direction) Entity() string {
	if d == DirectionPayable {
		return EntityBill
	}
	return EntityInvoice
}

// Party returns the counterparty label for the direction.
func (d Direction) Party() string {
	if d == DirectionPayable {
		return "vendor"
	}
	return "customer"
}

// DocumentStatus is the lifecycle state of an invoice or bill.
type DocumentStatus string

const (
	DocumentStatusDraft         DocumentStatus = "draft"
	DocumentStatusOpen          DocumentStatus = "open"
	DocumentStatusPartiallyPaid DocumentStatus = "partially_paid"
	DocumentStatusPaid          DocumentStatus = "paid"
	DocumentStatusVoid          DocumentStatus = "void"
)

// Label renders the status the way each document type names it; a draft bill is "unpaid".
func (s DocumentStatus) Label(d Direction) string {
	if s == DocumentStatusDraft && d == DirectionPayable {
		return "unpaid"
	}
	return string(s)
}

// documentTransitions lists every legal status move. Moves back from Paid and
// PartiallyPaid happen only when an applied payment is reversed.
var documentTransitions = map[DocumentStatus]map[DocumentStatus]bool{
	DocumentStatusDraft: {
		DocumentStatusOpen: true,
		DocumentStatusVoid: true,
	},
	DocumentStatusOpen: {
		DocumentStatusPartiallyPaid: true,
		DocumentStatusPaid:          true,
		DocumentStatusVoid:          true,
	},
	DocumentStatusPartiallyPaid: {
		DocumentStatusPartiallyPaid: true,
		DocumentStatusPaid:          true,
		DocumentStatusOpen:          true,
	},
	DocumentStatusPaid: {
		DocumentStatusPartiallyPaid: true,
		DocumentStatusOpen:          true,
	},
}

// CanTransitionTo reports whether the table allows moving from s to next.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	return documentTransitions[s][next]
}

// DocumentLine is a single priced line on an invoice or bill.
type DocumentLine struct {
	Description string
	AccountID   string
	Amount      Money
}

// Document is an invoice (receivable) or a bill (payable).
type Document struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DueDate         *time.Time
	JournalEntryID  *int64
	VoidEntryID     *int64
	ID              string
	Direction       Direction
	PartyID         string
	Number          string
	PurchaseOrderID string
	Status          DocumentStatus
	Lines           []DocumentLine
	Total           Money
	BalanceDue      Money
}

// NewDocument builds a draft document and computes its total.
func NewDocument(id string, direction Direction, partyID string, lines []DocumentLine, now time.Time) (*Document, error) {
	entity := direction.Entity()

	if partyID == "" {
		return nil, NewValidationError(entity, direction.Party()+" id is required")
	}

	if len(lines) == 0 {
		return nil, NewValidationError(entity, "at least one line is required")
	}

	if len(lines) > MaxLineCount {
		return nil, NewValidationError(entity, fmt.Sprintf("document exceeds %d lines", MaxLineCount))
	}

	var total Money
	for i, l := range lines {
		if l.AccountID == "" {
			return nil, NewValidationError(entity, fmt.Sprintf("line %d has no account", i+1))
		}
		if err := ValidateAmount(entity, l.Amount); err != nil {
			return nil, err
		}
		total += l.Amount
	}

	if err := ValidateAmount(entity, total); err != nil {
		return nil, err
	}

	return &Document{
		ID:         id,
		Direction:  direction,
		PartyID:    partyID,
		Status:     DocumentStatusDraft,
		Lines:      append([]DocumentLine(nil), lines...),
		Total:      total,
		BalanceDue: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Applied returns the amount paid or credited so far.
func (d *Document) Applied() Money {
	return d.Total - d.BalanceDue
}

func (d *Document) transition(next DocumentStatus, reason string) error {
	if !d.Status.CanTransitionTo(next) {
		return NewStateTransitionError(d.Direction.Entity(), d.ID,
			fmt.Sprintf("%s: cannot move from %s to %s", reason, d.Status.Label(d.Direction), next.Label(d.Direction)))
	}
	d.Status = next
	return nil
}

func (d *Document) statusForBalance() DocumentStatus {
	switch {
	case d.BalanceDue.IsZero():
		return DocumentStatusPaid
	case d.BalanceDue == d.Total:
		return DocumentStatusOpen
	default:
		return DocumentStatusPartiallyPaid
	}
}

// Post moves a draft to Open.
func (d *Document) Post() error {
	if d.Status != DocumentStatusDraft {
		return NewStateTransitionError(d.Direction.Entity(), d.ID, "only a draft can be posted")
	}
	return d.transition(DocumentStatusOpen, "post")
}

// CanAcceptPayment checks the status allows applying money.
func (d *Document) CanAcceptPayment() error {
	if d.Status != DocumentStatusOpen && d.Status != DocumentStatusPartiallyPaid {
		return NewStateTransitionError(d.Direction.Entity(), d.ID,
			"cannot apply an amount to a "+d.Status.Label(d.Direction)+" "+d.Direction.Entity())
	}
	return nil
}

// Apply decrements the balance due and moves to PartiallyPaid or Paid.
func (d *Document) Apply(amount Money) error {
	if err := ValidateAmount(d.Direction.Entity(), amount); err != nil {
		return err
	}

	if err := d.CanAcceptPayment(); err != nil {
		return err
	}

	if amount > d.BalanceDue {
		return NewBalanceExceededError(d.Direction.Entity(), d.ID, amount, d.BalanceDue)
	}

	d.BalanceDue -= amount
	return d.transition(d.statusForBalance(), "apply")
}

// Unapply restores a previously applied amount, for example when the paying check is voided.
func (d *Document) Unapply(amount Money) error {
	if d.Status == DocumentStatusVoid || d.Status == DocumentStatusDraft {
		return NewStateTransitionError(d.Direction.Entity(), d.ID, "nothing applied to a "+d.Status.Label(d.Direction)+" document")
	}

	if d.BalanceDue+amount > d.Total {
		return NewIntegrityError(fmt.Sprintf("%s %s: reversal of %s exceeds applied %s", d.Direction.Entity(), d.ID, amount, d.Applied()))
	}

	d.BalanceDue += amount
	return d.transition(d.statusForBalance(), "unapply")
}

// Void moves the document to Void. Only documents with nothing applied can be voided.
func (d *Document) Void() error {
	entity := d.Direction.Entity()

	if d.Status == DocumentStatusVoid {
		return NewStateTransitionError(entity, d.ID, entity+" is already void")
	}

	if d.Applied().IsPositive() {
		return NewStateTransitionError(entity, d.ID, "cannot void a "+entity+" with applied payments")
	}

	return d.transition(DocumentStatusVoid, "void")
}

// PaymentMethod is how money moved against a document.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCheck  PaymentMethod = "check"
	PaymentMethodACH    PaymentMethod = "ach"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCredit PaymentMethod = "credit"
)

// IsValid reports whether m is a known method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodACH, PaymentMethodCard, PaymentMethodCredit:
		return true
	}
	return false
}

// Payment records an amount applied to a document, either money or a credit memo.
type Payment struct {
	Date              time.Time
	CreatedAt         time.Time
	JournalEntryID    *int64
	ID                string
	DocumentID        string
	Method            PaymentMethod
	BankAccountID     string
	BankTransactionID string
	CreditMemoID      string
	CheckID           string
	Amount            Money
	Reversed          bool
}
