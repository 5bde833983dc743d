package handler

import (
	"context"
	"net/http"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	Start(ctx context.Context, input usecase.StartReconciliationInput) (*domain.ReconciliationSession, error)
	MarkCleared(ctx context.Context, input usecase.MarkClearedInput) ([]*domain.BankTransaction, error)
	Complete(ctx context.Context, sessionID string) (*domain.ReconciliationResult, error)
	Reopen(ctx context.Context, sessionID string) (*domain.ReconciliationSession, error)
	GetSession(ctx context.Context, id string) (*domain.ReconciliationSession, error)
	ListClearedTransactions(ctx context.Context, sessionID string) ([]*domain.BankTransaction, error)
}

// ReconciliationHandler handles bank statement reconciliation sessions.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// Start opens a session for a bank account.
func (h *ReconciliationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartReconciliationRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	session, err := h.reconUC.Start(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ReconciliationSessionFromDomain(session))
}

// Get retrieves a session by ID.
func (h *ReconciliationHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.reconUC.GetSession)
}

// MarkCleared toggles the cleared flag of register rows in the session.
func (h *ReconciliationHandler) MarkCleared(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.MarkClearedRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	txns, err := h.reconUC.MarkCleared(r.Context(), usecase.MarkClearedInput{
		SessionID:      id,
		TransactionIDs: req.TransactionIDs,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.BankTransactionsFromDomain(txns), len(txns), 0))
}

// Cleared lists the rows currently cleared in the session.
func (h *ReconciliationHandler) Cleared(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	txns, err := h.reconUC.ListClearedTransactions(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.BankTransactionsFromDomain(txns), len(txns), 0))
}

// Complete closes the session when the cleared rows match the statement.
// A mismatch is reported in the body and leaves the session active.
func (h *ReconciliationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.reconUC.Complete(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, dto.ReconciliationResultFromDomain(result))
}

// Reopen reverts the most recent completed session.
func (h *ReconciliationHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.reconUC.Reopen)
}

func (h *ReconciliationHandler) session(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.ReconciliationSession, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	session, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationSessionFromDomain(session))
}
