package handler

import (
	"context"
	"net/http"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// BillService defines the behavior needed by BillHandler.
type BillService interface {
	CreateBill(ctx context.Context, input usecase.CreateDocumentInput) (*domain.Document, error)
	PostBill(ctx context.Context, id string) (*domain.Document, error)
	PayBill(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)
	ApplyCredit(ctx context.Context, input usecase.ApplyCreditInput) (*usecase.CreditResult, error)
	VoidBill(ctx context.Context, id string) (*domain.Document, error)
	CreateVendorCredit(ctx context.Context, input usecase.CreateCreditInput) (*domain.CreditMemo, error)
	VoidCredit(ctx context.Context, id string) (*domain.CreditMemo, error)
	GetBill(ctx context.Context, id string) (*domain.Document, error)
	ListBills(ctx context.Context, vendorID string, limit, offset int) ([]*domain.Document, error)
	GetCredit(ctx context.Context, id string) (*domain.CreditMemo, error)
	ListPayments(ctx context.Context, billID string) ([]*domain.Payment, error)
	CreatePurchaseOrder(ctx context.Context, input usecase.CreatePurchaseOrderInput) (*domain.PurchaseOrder, error)
	ApprovePurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, id string) (*domain.Document, error)
	GetPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)
}

// BillHandler handles vendor bills, vendor credits and purchase orders.
type BillHandler struct {
	payablesUC BillService
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(payablesUC BillService) *BillHandler {
	return &BillHandler{payablesUC: payablesUC}
}

// Create records an unpaid bill.
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDocumentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	bill, err := h.payablesUC.CreateBill(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DocumentFromDomain(bill))
}

// Get retrieves a bill by ID.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.document(w, r, h.payablesUC.GetBill)
}

// List lists bills, optionally for one vendor.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	bills, err := h.payablesUC.ListBills(r.Context(), r.URL.Query().Get("vendor_id"), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(dto.DocumentsFromDomain(bills), limit, offset))
}

// Post posts an unpaid bill to the ledger.
func (h *BillHandler) Post(w http.ResponseWriter, r *http.Request) {
	h.document(w, r, h.payablesUC.PostBill)
}

// Void voids a bill with no applied payments.
func (h *BillHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.document(w, r, h.payablesUC.VoidBill)
}

// Pay records a non-check payment against the bill.
func (h *BillHandler) Pay(w http.ResponseWriter, r *http.Request) {
	payDocument(w, r, h.payablesUC.PayBill)
}

// ApplyCredit applies a vendor credit to the bill.
func (h *BillHandler) ApplyCredit(w http.ResponseWriter, r *http.Request) {
	applyCredit(w, r, h.payablesUC.ApplyCredit)
}

// Payments lists the payments applied to the bill.
func (h *BillHandler) Payments(w http.ResponseWriter, r *http.Request) {
	listPayments(w, r, h.payablesUC.ListPayments)
}

// CreateCredit issues a vendor credit memo.
func (h *BillHandler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	createCredit(w, r, h.payablesUC.CreateVendorCredit)
}

// GetCredit retrieves a vendor credit memo.
func (h *BillHandler) GetCredit(w http.ResponseWriter, r *http.Request) {
	creditMemo(w, r, h.payablesUC.GetCredit)
}

// VoidCredit voids an unapplied vendor credit memo.
func (h *BillHandler) VoidCredit(w http.ResponseWriter, r *http.Request) {
	creditMemo(w, r, h.payablesUC.VoidCredit)
}

// CreatePurchaseOrder creates a draft purchase order.
func (h *BillHandler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePurchaseOrderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	po, err := h.payablesUC.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PurchaseOrderFromDomain(po))
}

// GetPurchaseOrder retrieves a purchase order.
func (h *BillHandler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseOrder(w, r, h.payablesUC.GetPurchaseOrder)
}

// ApprovePurchaseOrder approves a draft purchase order.
func (h *BillHandler) ApprovePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseOrder(w, r, h.payablesUC.ApprovePurchaseOrder)
}

// CancelPurchaseOrder cancels an open purchase order.
func (h *BillHandler) CancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseOrder(w, r, h.payablesUC.CancelPurchaseOrder)
}

// ReceivePurchaseOrder converts an approved purchase order into a bill.
func (h *BillHandler) ReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	bill, err := h.payablesUC.ReceivePurchaseOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DocumentFromDomain(bill))
}

func (h *BillHandler) document(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.Document, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	bill, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DocumentFromDomain(bill))
}

func (h *BillHandler) purchaseOrder(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.PurchaseOrder, error)) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	po, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurchaseOrderFromDomain(po))
}
