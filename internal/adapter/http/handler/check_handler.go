package handler

import (
	"context"
	"net/http"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// CheckService defines the behavior needed by CheckHandler.
type CheckService interface {
	CreateCheck(ctx context.Context, input usecase.CreateCheckInput) (*domain.Check, error)
	PrintChecks(ctx context.Context, ids []string, format domain.PrintFormat) ([]*domain.Check, error)
	VoidCheck(ctx context.Context, id string) (*domain.Check, error)
	GetCheck(ctx context.Context, id string) (*domain.Check, error)
	ListChecks(ctx context.Context, bankAccountID string, limit, offset int) ([]*domain.Check, error)
}

// CheckHandler handles check writing and printing.
type CheckHandler struct {
	checkUC CheckService
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(checkUC CheckService) *CheckHandler {
	return &CheckHandler{checkUC: checkUC}
}

// Create writes a check, assigning the bank account's next check number.
func (h *CheckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCheckRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	check, err := h.checkUC.CreateCheck(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CheckFromDomain(check))
}

// Get retrieves a check by ID.
func (h *CheckHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	check, err := h.checkUC.GetCheck(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckFromDomain(check))
}

// ListByBankAccount lists the checks drawn on a bank account.
func (h *CheckHandler) ListByBankAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	limit, offset := pagination(r)

	checks, err := h.checkUC.ListChecks(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.ChecksFromDomain(checks), limit, offset))
}

// Print prints a batch of checks. The batch prints entirely or not at all.
func (h *CheckHandler) Print(w http.ResponseWriter, r *http.Request) {
	var req dto.PrintChecksRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	checks, err := h.checkUC.PrintChecks(r.Context(), req.CheckIDs, domain.PrintFormat(req.Format))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.ChecksFromDomain(checks), len(checks), 0))
}

// Void voids a check and reverses its posting.
func (h *CheckHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	check, err := h.checkUC.VoidCheck(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckFromDomain(check))
}
