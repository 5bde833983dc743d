package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	BalanceOf(ctx context.Context, accountID string, asOf *time.Time) (domain.Money, error)
	ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error)
}

// AccountHandler handles chart-of-accounts HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create adds an account to the chart.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account := req.ToDomain()
	if err := h.accountUC.CreateAccount(r.Context(), account); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts by code.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	accounts, err := h.accountUC.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.AccountsFromDomain(accounts), limit, offset))
}

// Balance returns the account balance, optionally as of the "as_of" query
// parameter.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	asOf, err := parseTimeQuery(r, "as_of")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	balance, err := h.accountUC.BalanceOf(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{AccountID: id, Balance: balance, AsOf: asOf})
}

// Entries lists the journal entries touching an account, newest first.
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	limit, offset := pagination(r)

	entries, err := h.accountUC.ListEntriesByAccount(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.JournalEntriesFromDomain(entries), limit, offset))
}
