package domain

import "time"

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account's balance increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// NormalBalance returns the normal side for the account type.
func (t AccountType) NormalBalance() NormalBalance {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return NormalDebit
	}
	return NormalCredit
}

// Account represents a ledger account. Accounts are static reference data.
type Account struct {
	ID        string
	Code      string
	Name      string
	Type      AccountType
	CreatedAt time.Time
}

// Validate checks the account definition.
func (a *Account) Validate() error {
	if a.ID == "" {
		return NewValidationError(EntityAccount, "id is required")
	}
	if err := ValidateName(EntityAccount, a.Name); err != nil {
		return err
	}
	if !a.Type.IsValid() {
		return NewValidationError(EntityAccount, "invalid account type "+string(a.Type))
	}
	return nil
}

// SignedAmount folds a debit/credit pair into a balance delta for this account.
func (a *Account) SignedAmount(debit, credit Money) Money {
	if a.Type.NormalBalance() == NormalDebit {
		return debit - credit
	}
	return credit - debit
}
