package handler

import (
	"context"
	"net/http"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// InvoiceService defines the behavior needed by InvoiceHandler.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, input usecase.CreateDocumentInput) (*domain.Document, error)
	SendInvoice(ctx context.Context, id string) (*domain.Document, error)
	ApplyPayment(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)
	ApplyCredit(ctx context.Context, input usecase.ApplyCreditInput) (*usecase.CreditResult, error)
	VoidInvoice(ctx context.Context, id string) (*domain.Document, error)
	CreateCustomerCredit(ctx context.Context, input usecase.CreateCreditInput) (*domain.CreditMemo, error)
	VoidCredit(ctx context.Context, id string) (*domain.CreditMemo, error)
	GetInvoice(ctx context.Context, id string) (*domain.Document, error)
	ListInvoices(ctx context.Context, customerID string, limit, offset int) ([]*domain.Document, error)
	GetCredit(ctx context.Context, id string) (*domain.CreditMemo, error)
	ListPayments(ctx context.Context, invoiceID string) ([]*domain.Payment, error)
}

// InvoiceHandler handles customer invoices and credits.
type InvoiceHandler struct {
	receivablesUC InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(receivablesUC InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{receivablesUC: receivablesUC}
}

// Create creates a draft invoice.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDocumentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	invoice, err := h.receivablesUC.CreateInvoice(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DocumentFromDomain(invoice))
}

// Get retrieves an invoice by ID.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.document(w, r, h.receivablesUC.GetInvoice)
}

// List lists invoices, optionally for one customer.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	invoices, err := h.receivablesUC.ListInvoices(r.Context(), r.URL.Query().Get("customer_id"), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.DocumentsFromDomain(invoices), limit, offset))
}

// Send posts a draft invoice to the ledger.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.document(w, r, h.receivablesUC.SendInvoice)
}

// Void voids an invoice with no applied payments.
func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.document(w, r, h.receivablesUC.VoidInvoice)
}

// Pay records a customer payment against the invoice.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	payDocument(w, r, h.receivablesUC.ApplyPayment)
}

// ApplyCredit applies a customer credit to the invoice.
func (h *InvoiceHandler) ApplyCredit(w http.ResponseWriter, r *http.Request) {
	applyCredit(w, r, h.receivablesUC.ApplyCredit)
}

// Payments lists the payments applied to the invoice.
func (h *InvoiceHandler) Payments(w http.ResponseWriter, r *http.Request) {
	listPayments(w, r, h.receivablesUC.ListPayments)
}

// CreateCredit issues a customer credit memo.
func (h *InvoiceHandler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	createCredit(w, r, h.receivablesUC.CreateCustomerCredit)
}

// GetCredit retrieves a customer credit memo.
func (h *InvoiceHandler) GetCredit(w http.ResponseWriter, r *http.Request) {
	creditMemo(w, r, h.receivablesUC.GetCredit)
}

// VoidCredit voids an unapplied customer credit memo.
func (h *InvoiceHandler) VoidCredit(w http.ResponseWriter, r *http.Request) {
	creditMemo(w, r, h.receivablesUC.VoidCredit)
}

func (h *InvoiceHandler) document(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.Document, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	doc, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DocumentFromDomain(doc))
}

// The helpers below are shared by invoices and bills.

func payDocument(w http.ResponseWriter, r *http.Request, op func(context.Context, usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.ApplyPaymentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := op(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentResultFromUseCase(result))
}

func applyCredit(w http.ResponseWriter, r *http.Request, op func(context.Context, usecase.ApplyCreditInput) (*usecase.CreditResult, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.ApplyCreditRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := op(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreditResultFromUseCase(result))
}

func listPayments(w http.ResponseWriter, r *http.Request, op func(context.Context, string) ([]*domain.Payment, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	payments, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.PaymentsFromDomain(payments), len(payments), 0))
}

func createCredit(w http.ResponseWriter, r *http.Request, op func(context.Context, usecase.CreateCreditInput) (*domain.CreditMemo, error)) {
	var req dto.CreateCreditRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	credit, err := op(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreditMemoFromDomain(credit))
}

func creditMemo(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.CreditMemo, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	credit, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CreditMemoFromDomain(credit))
}
