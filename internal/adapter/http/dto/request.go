package dto

import (
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// CreateAccountRequest represents a request to add a chart account.
type CreateAccountRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required,oneof=asset liability equity income expense"`
}

// ToDomain converts the request into an account keyed by its code.
func (r *CreateAccountRequest) ToDomain() *domain.Account {
	return &domain.Account{
		ID:   r.Code,
		Code: r.Code,
		Name: r.Name,
		Type: domain.AccountType(r.Type),
	}
}

// EntryLineRequest is one journal line. Exactly one side is set.
type EntryLineRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Debit     string `json:"debit,omitempty" validate:"omitempty,money"`
	Credit    string `json:"credit,omitempty" validate:"omitempty,money"`
	Memo      string `json:"memo,omitempty"`
}

// PostEntryRequest represents a manual journal entry.
type PostEntryRequest struct {
	PostedAt *Date             `json:"posted_at,omitempty"`
	Memo     string            `json:"memo"`
	Lines    []EntryLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *PostEntryRequest) ToUseCaseInput() (usecase.PostEntryInput, error) {
	lines := make([]domain.JournalLine, len(r.Lines))
	for i, l := range r.Lines {
		debit, err := parseMoney(l.Debit)
		if err != nil {
			return usecase.PostEntryInput{}, err
		}
		credit, err := parseMoney(l.Credit)
		if err != nil {
			return usecase.PostEntryInput{}, err
		}
		lines[i] = domain.JournalLine{AccountID: l.AccountID, Debit: debit, Credit: credit, Memo: l.Memo}
	}

	return usecase.PostEntryInput{
		PostedAt:   r.PostedAt.Value(),
		Memo:       r.Memo,
		SourceType: "manual",
		Lines:      lines,
	}, nil
}

// ReverseEntryRequest carries the memo of a reversing entry.
type ReverseEntryRequest struct {
	Memo string `json:"memo"`
}

// DocumentLineRequest is one invoice, bill or purchase order line.
type DocumentLineRequest struct {
	Description string `json:"description"`
	AccountID   string `json:"account_id" validate:"required"`
	Amount      string `json:"amount" validate:"required,money"`
}

func documentLines(req []DocumentLineRequest) ([]domain.DocumentLine, error) {
	lines := make([]domain.DocumentLine, len(req))
	for i, l := range req {
		amount, err := domain.ParseMoney(l.Amount)
		if err != nil {
			return nil, err
		}
		lines[i] = domain.DocumentLine{Description: l.Description, AccountID: l.AccountID, Amount: amount}
	}
	return lines, nil
}

// CreateDocumentRequest creates an invoice (party is the customer) or a bill
// (party is the vendor).
type CreateDocumentRequest struct {
	PartyID string                `json:"party_id" validate:"required"`
	Number  string                `json:"number"`
	DueDate *Date                 `json:"due_date,omitempty"`
	Lines   []DocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateDocumentRequest) ToUseCaseInput() (usecase.CreateDocumentInput, error) {
	lines, err := documentLines(r.Lines)
	if err != nil {
		return usecase.CreateDocumentInput{}, err
	}

	input := usecase.CreateDocumentInput{
		PartyID: r.PartyID,
		Number:  r.Number,
		Lines:   lines,
	}
	if r.DueDate != nil {
		due := r.DueDate.Time
		input.DueDate = &due
	}

	return input, nil
}

// ApplyPaymentRequest records a payment against the document in the path.
type ApplyPaymentRequest struct {
	Date          *Date  `json:"date,omitempty"`
	BankAccountID string `json:"bank_account_id" validate:"required"`
	Method        string `json:"method" validate:"required,oneof=cash check ach card"`
	Amount        string `json:"amount" validate:"required,money"`
	AllowPartial  bool   `json:"allow_partial"`
}

// ToUseCaseInput converts to use case input for documentID.
func (r *ApplyPaymentRequest) ToUseCaseInput(documentID string) (usecase.ApplyPaymentInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return usecase.ApplyPaymentInput{}, err
	}

	return usecase.ApplyPaymentInput{
		Date:          r.Date.Value(),
		DocumentID:    documentID,
		BankAccountID: r.BankAccountID,
		Method:        domain.PaymentMethod(r.Method),
		Amount:        amount,
		AllowPartial:  r.AllowPartial,
	}, nil
}

// ApplyCreditRequest applies a credit memo to the document in the path.
type ApplyCreditRequest struct {
	CreditID     string `json:"credit_id" validate:"required"`
	Amount       string `json:"amount" validate:"required,money"`
	AllowPartial bool   `json:"allow_partial"`
}

// ToUseCaseInput converts to use case input for documentID.
func (r *ApplyCreditRequest) ToUseCaseInput(documentID string) (usecase.ApplyCreditInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return usecase.ApplyCreditInput{}, err
	}

	return usecase.ApplyCreditInput{
		DocumentID:   documentID,
		CreditID:     r.CreditID,
		Amount:       amount,
		AllowPartial: r.AllowPartial,
	}, nil
}

// CreateCreditRequest issues a customer or vendor credit memo.
type CreateCreditRequest struct {
	PartyID         string `json:"party_id" validate:"required"`
	OffsetAccountID string `json:"offset_account_id" validate:"required"`
	Memo            string `json:"memo"`
	Amount          string `json:"amount" validate:"required,money"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateCreditRequest) ToUseCaseInput() (usecase.CreateCreditInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return usecase.CreateCreditInput{}, err
	}

	return usecase.CreateCreditInput{
		HolderID:        r.PartyID,
		OffsetAccountID: r.OffsetAccountID,
		Memo:            r.Memo,
		Amount:          amount,
	}, nil
}

// CreatePurchaseOrderRequest creates a draft purchase order.
type CreatePurchaseOrderRequest struct {
	VendorID string                `json:"vendor_id" validate:"required"`
	Lines    []DocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePurchaseOrderRequest) ToUseCaseInput() (usecase.CreatePurchaseOrderInput, error) {
	lines, err := documentLines(r.Lines)
	if err != nil {
		return usecase.CreatePurchaseOrderInput{}, err
	}
	return usecase.CreatePurchaseOrderInput{VendorID: r.VendorID, Lines: lines}, nil
}

// CheckLineRequest is one expense line of a check.
type CheckLineRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Amount    string `json:"amount" validate:"required,money"`
	Memo      string `json:"memo,omitempty"`
}

// CreateCheckRequest writes a check. A check paying a bill has no lines.
type CreateCheckRequest struct {
	Date          *Date              `json:"date,omitempty"`
	BankAccountID string             `json:"bank_account_id" validate:"required"`
	Payee         string             `json:"payee" validate:"required"`
	Memo          string             `json:"memo"`
	BillID        string             `json:"bill_id,omitempty"`
	Amount        string             `json:"amount" validate:"required,money"`
	Lines         []CheckLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateCheckRequest) ToUseCaseInput() (usecase.CreateCheckInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return usecase.CreateCheckInput{}, err
	}

	var lines []domain.CheckLine
	for _, l := range r.Lines {
		lineAmount, err := domain.ParseMoney(l.Amount)
		if err != nil {
			return usecase.CreateCheckInput{}, err
		}
		lines = append(lines, domain.CheckLine{AccountID: l.AccountID, Amount: lineAmount, Memo: l.Memo})
	}

	return usecase.CreateCheckInput{
		Date:          r.Date.Value(),
		BankAccountID: r.BankAccountID,
		Payee:         r.Payee,
		Memo:          r.Memo,
		BillID:        r.BillID,
		Amount:        amount,
		Lines:         lines,
	}, nil
}

// PrintChecksRequest prints a batch of checks in one format.
type PrintChecksRequest struct {
	CheckIDs []string `json:"check_ids" validate:"required,min=1,dive,required"`
	Format   string   `json:"format" validate:"required,oneof=standard voucher wallet"`
}

// CreateBankAccountRequest opens a bank account.
type CreateBankAccountRequest struct {
	OpenedAt         *Date  `json:"opened_at,omitempty"`
	Name             string `json:"name" validate:"required"`
	LedgerAccountID  string `json:"ledger_account_id" validate:"required"`
	OpeningBalance   string `json:"opening_balance,omitempty" validate:"omitempty,money"`
	FirstCheckNumber int64  `json:"first_check_number,omitempty" validate:"omitempty,min=1"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateBankAccountRequest) ToUseCaseInput() (usecase.CreateBankAccountInput, error) {
	opening, err := parseMoney(r.OpeningBalance)
	if err != nil {
		return usecase.CreateBankAccountInput{}, err
	}

	return usecase.CreateBankAccountInput{
		OpenedAt:         r.OpenedAt.Value(),
		Name:             r.Name,
		LedgerAccountID:  r.LedgerAccountID,
		OpeningBalance:   opening,
		FirstCheckNumber: r.FirstCheckNumber,
	}, nil
}

// CreateTransferRequest moves money between two bank accounts.
type CreateTransferRequest struct {
	Date              *Date  `json:"date,omitempty"`
	FromBankAccountID string `json:"from_bank_account_id" validate:"required"`
	ToBankAccountID   string `json:"to_bank_account_id" validate:"required"`
	Memo              string `json:"memo"`
	Amount            string `json:"amount" validate:"required,money"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() (usecase.TransferInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return usecase.TransferInput{}, err
	}

	return usecase.TransferInput{
		Date:              r.Date.Value(),
		FromBankAccountID: r.FromBankAccountID,
		ToBankAccountID:   r.ToBankAccountID,
		Memo:              r.Memo,
		Amount:            amount,
	}, nil
}

// RecordTransactionRequest books a deposit, fee or interest row.
type RecordTransactionRequest struct {
	Date            *Date  `json:"date,omitempty"`
	Type            string `json:"type" validate:"required,oneof=deposit fee interest"`
	OffsetAccountID string `json:"offset_account_id" validate:"required"`
	Memo            string `json:"memo"`
	Amount          string `json:"amount" validate:"required,money"`
}

// ToUseCaseInput converts to use case input for bankAccountID.
func (r *RecordTransactionRequest) ToUseCaseInput(bankAccountID string) (usecase.RecordTransactionInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return usecase.RecordTransactionInput{}, err
	}

	return usecase.RecordTransactionInput{
		Date:            r.Date.Value(),
		BankAccountID:   bankAccountID,
		Type:            domain.BankTransactionType(r.Type),
		OffsetAccountID: r.OffsetAccountID,
		Memo:            r.Memo,
		Amount:          amount,
	}, nil
}

// StartReconciliationRequest opens a reconciliation session.
type StartReconciliationRequest struct {
	BankAccountID    string `json:"bank_account_id" validate:"required"`
	StatementDate    *Date  `json:"statement_date,omitempty"`
	StatementBalance string `json:"statement_balance" validate:"required,money"`
}

// ToUseCaseInput converts to use case input.
func (r *StartReconciliationRequest) ToUseCaseInput() (usecase.StartReconciliationInput, error) {
	balance, err := domain.ParseMoney(r.StatementBalance)
	if err != nil {
		return usecase.StartReconciliationInput{}, err
	}

	return usecase.StartReconciliationInput{
		StatementDate:    r.StatementDate.Value(),
		BankAccountID:    r.BankAccountID,
		StatementBalance: balance,
	}, nil
}

// MarkClearedRequest toggles the cleared flag of register rows.
type MarkClearedRequest struct {
	TransactionIDs []string `json:"transaction_ids" validate:"required,min=1,dive,required"`
}
