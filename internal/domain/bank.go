package domain

import "time"

// BankAccount is a checking or savings account tied to a ledger cash account.
type BankAccount struct {
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ID                    string
	Name                  string
	LedgerAccountID       string
	OpeningBalance        Money
	Balance               Money
	LastReconciledBalance Money
	NextCheckNumber       int64
	Version               int64
}

// IssueCheckNumber returns the next check number and advances the counter.
// Callers must hold the account row lock.
func (b *BankAccount) IssueCheckNumber() int64 {
	n := b.NextCheckNumber
	b.NextCheckNumber++
	return n
}

// Apply adds a signed register amount to the balance.
func (b *BankAccount) Apply(amount Money) {
	b.Balance += amount
	b.Version++
}

// BankTransactionType classifies a bank register row.
type BankTransactionType string

const (
	BankTxnDeposit  BankTransactionType = "deposit"
	BankTxnCheck    BankTransactionType = "check"
	BankTxnTransfer BankTransactionType = "transfer"
	BankTxnFee      BankTransactionType = "fee"
	BankTxnInterest BankTransactionType = "interest"
)

// IsValid reports whether t is a known register type.
func (t BankTransactionType) IsValid() bool {
	switch t {
	case BankTxnDeposit, BankTxnCheck, BankTxnTransfer, BankTxnFee, BankTxnInterest:
		return true
	}
	return false
}

// Inflow reports whether the type adds money to the account for manual register entries.
func (t BankTransactionType) Inflow() bool {
	return t == BankTxnDeposit || t == BankTxnInterest
}

// BankTransaction is one row in a bank account register. Amount is signed:
// deposits are positive, checks and fees negative.
type BankTransaction struct {
	PostedAt         time.Time
	JournalEntryID   *int64
	ID               string
	BankAccountID    string
	Type             BankTransactionType
	Memo             string
	SourceType       string
	SourceID         string
	ReconciliationID string
	Amount           Money
	Cleared          bool
}
