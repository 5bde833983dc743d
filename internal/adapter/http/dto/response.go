package dto

import (
	"time"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	result := make([]R, len(items))
	for i, item := range items {
		result[i] = fn(item)
	}
	return result
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse builds a page response.
func NewListResponse[T any](items []T, limit, offset int) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}

// AccountResponse represents a chart account in API responses.
type AccountResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	NormalBalance string    `json:"normal_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		NormalBalance: string(a.Type.NormalBalance()),
		CreatedAt:     a.CreatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	return mapSlice(accounts, AccountFromDomain)
}

// BalanceResponse is an account balance in its normal-balance sign.
type BalanceResponse struct {
	AccountID string       `json:"account_id"`
	Balance   domain.Money `json:"balance"`
	AsOf      *time.Time   `json:"as_of,omitempty"`
}

// ConsistencyResponse reports whole-journal totals.
type ConsistencyResponse struct {
	Debits   domain.Money `json:"debits"`
	Credits  domain.Money `json:"credits"`
	Balanced bool         `json:"balanced"`
}

// ConsistencyFromReport converts a consistency report to response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{Debits: r.Debits, Credits: r.Credits, Balanced: r.Balanced}
}

// JournalLineResponse is one line of a journal entry.
type JournalLineResponse struct {
	AccountID string       `json:"account_id"`
	Debit     domain.Money `json:"debit"`
	Credit    domain.Money `json:"credit"`
	Memo      string       `json:"memo,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses.
type JournalEntryResponse struct {
	ID         int64                 `json:"id"`
	PostedAt   time.Time             `json:"posted_at"`
	Memo       string                `json:"memo"`
	SourceType string                `json:"source_type"`
	SourceID   string                `json:"source_id,omitempty"`
	ReversalOf *int64                `json:"reversal_of,omitempty"`
	Lines      []JournalLineResponse `json:"lines"`
}

// JournalEntryFromDomain converts domain entry to response.
func JournalEntryFromDomain(e *domain.JournalEntry) *JournalEntryResponse {
	return &JournalEntryResponse{
		ID:         e.ID,
		PostedAt:   e.PostedAt,
		Memo:       e.Memo,
		SourceType: e.SourceType,
		SourceID:   e.SourceID,
		ReversalOf: e.ReversalOf,
		Lines: mapSlice(e.Lines, func(l domain.JournalLine) JournalLineResponse {
			return JournalLineResponse{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo}
		}),
	}
}

// JournalEntriesFromDomain converts domain entries to responses.
func JournalEntriesFromDomain(entries []*domain.JournalEntry) []*JournalEntryResponse {
	return mapSlice(entries, JournalEntryFromDomain)
}

// DocumentLineResponse is one invoice, bill or purchase order line.
type DocumentLineResponse struct {
	Description string       `json:"description,omitempty"`
	AccountID   string       `json:"account_id"`
	Amount      domain.Money `json:"amount"`
}

func documentLinesFromDomain(lines []domain.DocumentLine) []DocumentLineResponse {
	return mapSlice(lines, func(l domain.DocumentLine) DocumentLineResponse {
		return DocumentLineResponse{Description: l.Description, AccountID: l.AccountID, Amount: l.Amount}
	})
}

// DocumentResponse represents an invoice or bill in API responses.
type DocumentResponse struct {
	ID              string                 `json:"id"`
	Direction       string                 `json:"direction"`
	PartyID         string                 `json:"party_id"`
	Number          string                 `json:"number,omitempty"`
	PurchaseOrderID string                 `json:"purchase_order_id,omitempty"`
	Status          string                 `json:"status"`
	StatusLabel     string                 `json:"status_label"`
	Total           domain.Money           `json:"total"`
	BalanceDue      domain.Money           `json:"balance_due"`
	DueDate         *time.Time             `json:"due_date,omitempty"`
	JournalEntryID  *int64                 `json:"journal_entry_id,omitempty"`
	VoidEntryID     *int64                 `json:"void_entry_id,omitempty"`
	Lines           []DocumentLineResponse `json:"lines"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// DocumentFromDomain converts domain document to response.
func DocumentFromDomain(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:              d.ID,
		Direction:       string(d.Direction),
		PartyID:         d.PartyID,
		Number:          d.Number,
		PurchaseOrderID: d.PurchaseOrderID,
		Status:          string(d.Status),
		StatusLabel:     d.Status.Label(d.Direction),
		Total:           d.Total,
		BalanceDue:      d.BalanceDue,
		DueDate:         d.DueDate,
		JournalEntryID:  d.JournalEntryID,
		VoidEntryID:     d.VoidEntryID,
		Lines:           documentLinesFromDomain(d.Lines),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// DocumentsFromDomain converts domain documents to responses.
func DocumentsFromDomain(docs []*domain.Document) []*DocumentResponse {
	return mapSlice(docs, DocumentFromDomain)
}

// PaymentResponse represents a payment or credit application.
type PaymentResponse struct {
	ID                string       `json:"id"`
	DocumentID        string       `json:"document_id"`
	Date              time.Time    `json:"date"`
	Method            string       `json:"method"`
	Amount            domain.Money `json:"amount"`
	BankAccountID     string       `json:"bank_account_id,omitempty"`
	BankTransactionID string       `json:"bank_transaction_id,omitempty"`
	CreditMemoID      string       `json:"credit_memo_id,omitempty"`
	CheckID           string       `json:"check_id,omitempty"`
	JournalEntryID    *int64       `json:"journal_entry_id,omitempty"`
	Reversed          bool         `json:"reversed"`
	CreatedAt         time.Time    `json:"created_at"`
}

// PaymentFromDomain converts domain payment to response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID,
		DocumentID:        p.DocumentID,
		Date:              p.Date,
		Method:            string(p.Method),
		Amount:            p.Amount,
		BankAccountID:     p.BankAccountID,
		BankTransactionID: p.BankTransactionID,
		CreditMemoID:      p.CreditMemoID,
		CheckID:           p.CheckID,
		JournalEntryID:    p.JournalEntryID,
		Reversed:          p.Reversed,
		CreatedAt:         p.CreatedAt,
	}
}

// PaymentsFromDomain converts domain payments to responses.
func PaymentsFromDomain(payments []*domain.Payment) []*PaymentResponse {
	return mapSlice(payments, PaymentFromDomain)
}

// PaymentResultResponse is the outcome of a payment.
type PaymentResultResponse struct {
	Payment    *PaymentResponse `json:"payment"`
	BalanceDue domain.Money     `json:"balance_due"`
	Status     string           `json:"status"`
}

// PaymentResultFromUseCase converts a payment result to response.
func PaymentResultFromUseCase(r *usecase.PaymentResult) *PaymentResultResponse {
	return &PaymentResultResponse{
		Payment:    PaymentFromDomain(r.Payment),
		BalanceDue: r.BalanceDue,
		Status:     string(r.Status),
	}
}

// CreditResultResponse is the outcome of a credit application.
type CreditResultResponse struct {
	Payment         *PaymentResponse `json:"payment"`
	Applied         domain.Money     `json:"applied"`
	BalanceDue      domain.Money     `json:"balance_due"`
	CreditRemaining domain.Money     `json:"credit_remaining"`
	Status          string           `json:"status"`
}

// CreditResultFromUseCase converts a credit result to response.
func CreditResultFromUseCase(r *usecase.CreditResult) *CreditResultResponse {
	return &CreditResultResponse{
		Payment:         PaymentFromDomain(r.Payment),
		Applied:         r.Applied,
		BalanceDue:      r.BalanceDue,
		CreditRemaining: r.CreditRemaining,
		Status:          string(r.Status),
	}
}

// CreditMemoResponse represents a credit memo in API responses.
type CreditMemoResponse struct {
	ID              string       `json:"id"`
	Direction       string       `json:"direction"`
	PartyID         string       `json:"party_id"`
	OffsetAccountID string       `json:"offset_account_id"`
	Memo            string       `json:"memo,omitempty"`
	Status          string       `json:"status"`
	OriginalAmount  domain.Money `json:"original_amount"`
	Remaining       domain.Money `json:"remaining"`
	JournalEntryID  *int64       `json:"journal_entry_id,omitempty"`
	VoidEntryID     *int64       `json:"void_entry_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// CreditMemoFromDomain converts domain credit memo to response.
func CreditMemoFromDomain(c *domain.CreditMemo) *CreditMemoResponse {
	return &CreditMemoResponse{
		ID:              c.ID,
		Direction:       string(c.Direction),
		PartyID:         c.HolderID,
		OffsetAccountID: c.OffsetAccountID,
		Memo:            c.Memo,
		Status:          string(c.Status),
		OriginalAmount:  c.OriginalAmount,
		Remaining:       c.Remaining,
		JournalEntryID:  c.JournalEntryID,
		VoidEntryID:     c.VoidEntryID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// PurchaseOrderResponse represents a purchase order in API responses.
type PurchaseOrderResponse struct {
	ID        string                 `json:"id"`
	VendorID  string                 `json:"vendor_id"`
	BillID    string                 `json:"bill_id,omitempty"`
	Status    string                 `json:"status"`
	Total     domain.Money           `json:"total"`
	Lines     []DocumentLineResponse `json:"lines"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// PurchaseOrderFromDomain converts domain purchase order to response.
func PurchaseOrderFromDomain(p *domain.PurchaseOrder) *PurchaseOrderResponse {
	return &PurchaseOrderResponse{
		ID:        p.ID,
		VendorID:  p.VendorID,
		BillID:    p.BillID,
		Status:    string(p.Status),
		Total:     p.Total,
		Lines:     documentLinesFromDomain(p.Lines),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CheckLineResponse is one expense line of a check.
type CheckLineResponse struct {
	AccountID string       `json:"account_id"`
	Amount    domain.Money `json:"amount"`
	Memo      string       `json:"memo,omitempty"`
}

// CheckResponse represents a check in API responses.
type CheckResponse struct {
	ID                string              `json:"id"`
	BankAccountID     string              `json:"bank_account_id"`
	Number            int64               `json:"number"`
	Payee             string              `json:"payee"`
	Memo              string              `json:"memo,omitempty"`
	Amount            domain.Money        `json:"amount"`
	BillID            string              `json:"bill_id,omitempty"`
	Status            string              `json:"status"`
	PrintFormat       string              `json:"print_format,omitempty"`
	PrintedAt         *time.Time          `json:"printed_at,omitempty"`
	BankTransactionID string              `json:"bank_transaction_id,omitempty"`
	JournalEntryID    *int64              `json:"journal_entry_id,omitempty"`
	VoidEntryID       *int64              `json:"void_entry_id,omitempty"`
	Lines             []CheckLineResponse `json:"lines,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// CheckFromDomain converts domain check to response.
func CheckFromDomain(c *domain.Check) *CheckResponse {
	return &CheckResponse{
		ID:                c.ID,
		BankAccountID:     c.BankAccountID,
		Number:            c.Number,
		Payee:             c.Payee,
		Memo:              c.Memo,
		Amount:            c.Amount,
		BillID:            c.BillID,
		Status:            string(c.Status),
		PrintFormat:       string(c.PrintFormat),
		PrintedAt:         c.PrintedAt,
		BankTransactionID: c.BankTransactionID,
		JournalEntryID:    c.JournalEntryID,
		VoidEntryID:       c.VoidEntryID,
		Lines: mapSlice(c.Lines, func(l domain.CheckLine) CheckLineResponse {
			return CheckLineResponse{AccountID: l.AccountID, Amount: l.Amount, Memo: l.Memo}
		}),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ChecksFromDomain converts domain checks to responses.
func ChecksFromDomain(checks []*domain.Check) []*CheckResponse {
	return mapSlice(checks, CheckFromDomain)
}

// BankAccountResponse represents a bank account in API responses.
type BankAccountResponse struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	LedgerAccountID       string       `json:"ledger_account_id"`
	OpeningBalance        domain.Money `json:"opening_balance"`
	Balance               domain.Money `json:"balance"`
	LastReconciledBalance domain.Money `json:"last_reconciled_balance"`
	NextCheckNumber       int64        `json:"next_check_number"`
	Version               int64        `json:"version"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// BankAccountFromDomain converts domain bank account to response.
func BankAccountFromDomain(a *domain.BankAccount) *BankAccountResponse {
	return &BankAccountResponse{
		ID:                    a.ID,
		Name:                  a.Name,
		LedgerAccountID:       a.LedgerAccountID,
		OpeningBalance:        a.OpeningBalance,
		Balance:               a.Balance,
		LastReconciledBalance: a.LastReconciledBalance,
		NextCheckNumber:       a.NextCheckNumber,
		Version:               a.Version,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

// BankAccountsFromDomain converts domain bank accounts to responses.
func BankAccountsFromDomain(accounts []*domain.BankAccount) []*BankAccountResponse {
	return mapSlice(accounts, BankAccountFromDomain)
}

// BankTransactionResponse represents a register row in API responses.
type BankTransactionResponse struct {
	ID               string       `json:"id"`
	BankAccountID    string       `json:"bank_account_id"`
	Type             string       `json:"type"`
	Amount           domain.Money `json:"amount"`
	Memo             string       `json:"memo,omitempty"`
	SourceType       string       `json:"source_type,omitempty"`
	SourceID         string       `json:"source_id,omitempty"`
	JournalEntryID   *int64       `json:"journal_entry_id,omitempty"`
	ReconciliationID string       `json:"reconciliation_id,omitempty"`
	Cleared          bool         `json:"cleared"`
	PostedAt         time.Time    `json:"posted_at"`
}

// BankTransactionFromDomain converts domain register row to response.
func BankTransactionFromDomain(t *domain.BankTransaction) *BankTransactionResponse {
	return &BankTransactionResponse{
		ID:               t.ID,
		BankAccountID:    t.BankAccountID,
		Type:             string(t.Type),
		Amount:           t.Amount,
		Memo:             t.Memo,
		SourceType:       t.SourceType,
		SourceID:         t.SourceID,
		JournalEntryID:   t.JournalEntryID,
		ReconciliationID: t.ReconciliationID,
		Cleared:          t.Cleared,
		PostedAt:         t.PostedAt,
	}
}

// BankTransactionsFromDomain converts domain register rows to responses.
func BankTransactionsFromDomain(txns []*domain.BankTransaction) []*BankTransactionResponse {
	return mapSlice(txns, BankTransactionFromDomain)
}

// RegisterBalanceResponse is a bank account's register balance.
type RegisterBalanceResponse struct {
	BankAccountID string       `json:"bank_account_id"`
	Balance       domain.Money `json:"balance"`
}

// TransferResponse represents a bank transfer in API responses.
type TransferResponse struct {
	ID                string       `json:"id"`
	FromBankAccountID string       `json:"from_bank_account_id"`
	ToBankAccountID   string       `json:"to_bank_account_id"`
	Amount            domain.Money `json:"amount"`
	Memo              string       `json:"memo,omitempty"`
	JournalEntryID    *int64       `json:"journal_entry_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// TransferFromDomain converts domain transfer to response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:                t.ID,
		FromBankAccountID: t.FromBankAccountID,
		ToBankAccountID:   t.ToBankAccountID,
		Amount:            t.Amount,
		Memo:              t.Memo,
		JournalEntryID:    t.JournalEntryID,
		CreatedAt:         t.CreatedAt,
	}
}

// ReconciliationSessionResponse represents a reconciliation session.
type ReconciliationSessionResponse struct {
	ID               string       `json:"id"`
	BankAccountID    string       `json:"bank_account_id"`
	Status           string       `json:"status"`
	StatementDate    time.Time    `json:"statement_date"`
	BeginningBalance domain.Money `json:"beginning_balance"`
	StatementBalance domain.Money `json:"statement_balance"`
	Difference       domain.Money `json:"difference"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ReconciliationSessionFromDomain converts domain session to response.
func ReconciliationSessionFromDomain(s *domain.ReconciliationSession) *ReconciliationSessionResponse {
	return &ReconciliationSessionResponse{
		ID:               s.ID,
		BankAccountID:    s.BankAccountID,
		Status:           string(s.Status),
		StatementDate:    s.StatementDate,
		BeginningBalance: s.BeginningBalance,
		StatementBalance: s.StatementBalance,
		Difference:       s.Difference,
		CompletedAt:      s.CompletedAt,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// ReconciliationResultResponse is the outcome of completing a session.
type ReconciliationResultResponse struct {
	SessionID        string       `json:"session_id"`
	BookBalance      domain.Money `json:"book_balance"`
	StatementBalance domain.Money `json:"statement_balance"`
	Difference       domain.Money `json:"difference"`
	Success          bool         `json:"success"`
}

// ReconciliationResultFromDomain converts a completion result to response.
func ReconciliationResultFromDomain(r *domain.ReconciliationResult) *ReconciliationResultResponse {
	return &ReconciliationResultResponse{
		SessionID:        r.SessionID,
		BookBalance:      r.BookBalance,
		StatementBalance: r.StatementBalance,
		Difference:       r.Difference,
		Success:          r.Success,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
