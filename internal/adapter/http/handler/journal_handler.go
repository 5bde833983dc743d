package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// JournalService defines the behavior needed by JournalHandler.
type JournalService interface {
	PostEntry(ctx context.Context, input usecase.PostEntryInput) (*domain.JournalEntry, error)
	ReverseEntry(ctx context.Context, id int64, memo string) (*domain.JournalEntry, error)
	GetEntry(ctx context.Context, id int64) (*domain.JournalEntry, error)
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// JournalHandler handles journal entries and ledger-wide checks.
type JournalHandler struct {
	ledgerUC JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(ledgerUC JournalService) *JournalHandler {
	return &JournalHandler{ledgerUC: ledgerUC}
}

// Post posts a manual journal entry.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.PostEntryRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := h.ledgerUC.PostEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.JournalEntryFromDomain(entry))
}

// Get retrieves an entry by ID.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.ledgerUC.GetEntry(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalEntryFromDomain(entry))
}

// Reverse posts the mirror image of an entry.
func (h *JournalHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var req dto.ReverseEntryRequest
	if r.ContentLength != 0 && !decodeRequest(w, r, &req) {
		return
	}

	entry, err := h.ledgerUC.ReverseEntry(r.Context(), id, req.Memo)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.JournalEntryFromDomain(entry))
}

// CheckConsistency reports whether total debits equal total credits.
func (h *JournalHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if !report.Balanced {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ConsistencyFromReport(report))
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw, ok := urlParam(w, r, "id")
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid entry ID", raw)
		return 0, false
	}

	return id, true
}
