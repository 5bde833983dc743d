package handler

import (
	"context"
	"net/http"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// BankService defines the behavior needed by BankHandler.
type BankService interface {
	CreateBankAccount(ctx context.Context, input usecase.CreateBankAccountInput) (*domain.BankAccount, error)
	GetBankAccount(ctx context.Context, id string) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error)
	ListTransactions(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.BankTransaction, error)
	RegisterBalance(ctx context.Context, bankAccountID string) (domain.Money, error)
	RecordTransaction(ctx context.Context, input usecase.RecordTransactionInput) (*domain.BankTransaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.BankTransaction, error)
}

// BankHandler handles bank accounts and their registers.
type BankHandler struct {
	bankUC BankService
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(bankUC BankService) *BankHandler {
	return &BankHandler{bankUC: bankUC}
}

// Create opens a bank account.
func (h *BankHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBankAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.bankUC.CreateBankAccount(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BankAccountFromDomain(account))
}

// Get retrieves a bank account by ID.
func (h *BankHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.bankUC.GetBankAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BankAccountFromDomain(account))
}

// List lists bank accounts.
func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	accounts, err := h.bankUC.ListBankAccounts(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.BankAccountsFromDomain(accounts), limit, offset))
}

// Transactions lists the register of a bank account, newest first.
func (h *BankHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	limit, offset := pagination(r)

	txns, err := h.bankUC.ListTransactions(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.BankTransactionsFromDomain(txns), limit, offset))
}

// RecordTransaction books a deposit, fee or interest row.
func (h *BankHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.RecordTransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	txn, err := h.bankUC.RecordTransaction(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BankTransactionFromDomain(txn))
}

// RegisterBalance returns the last reconciled balance plus every
// unreconciled register row.
func (h *BankHandler) RegisterBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	balance, err := h.bankUC.RegisterBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterBalanceResponse{BankAccountID: id, Balance: balance})
}

// GetTransaction retrieves a register row by ID.
func (h *BankHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	txn, err := h.bankUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BankTransactionFromDomain(txn))
}
