package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// invoiceServiceStub overrides the methods a test needs; the rest panic.
type invoiceServiceStub struct {
	InvoiceService
	createFn  func(ctx context.Context, input usecase.CreateDocumentInput) (*domain.Document, error)
	payFn     func(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)
	creditFn  func(ctx context.Context, input usecase.ApplyCreditInput) (*usecase.CreditResult, error)
	sendFn    func(ctx context.Context, id string) (*domain.Document, error)
	paymentFn func(ctx context.Context, id string) ([]*domain.Payment, error)
}

func (s *invoiceServiceStub) CreateInvoice(ctx context.Context, input usecase.CreateDocumentInput) (*domain.Document, error) {
	return s.createFn(ctx, input)
}

func (s *invoiceServiceStub) ApplyPayment(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error) {
	return s.payFn(ctx, input)
}

func (s *invoiceServiceStub) ApplyCredit(ctx context.Context, input usecase.ApplyCreditInput) (*usecase.CreditResult, error) {
	return s.creditFn(ctx, input)
}

func (s *invoiceServiceStub) SendInvoice(ctx context.Context, id string) (*domain.Document, error) {
	return s.sendFn(ctx, id)
}

func (s *invoiceServiceStub) ListPayments(ctx context.Context, id string) ([]*domain.Payment, error) {
	return s.paymentFn(ctx, id)
}

type billServiceStub struct {
	BillService
	payFn     func(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)
	receiveFn func(ctx context.Context, id string) (*domain.Document, error)
	approveFn func(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	listFn    func(ctx context.Context, vendorID string, limit, offset int) ([]*domain.Document, error)
}

func (s *billServiceStub) PayBill(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error) {
	return s.payFn(ctx, input)
}

func (s *billServiceStub) ReceivePurchaseOrder(ctx context.Context, id string) (*domain.Document, error) {
	return s.receiveFn(ctx, id)
}

func (s *billServiceStub) ApprovePurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return s.approveFn(ctx, id)
}

func (s *billServiceStub) ListBills(ctx context.Context, vendorID string, limit, offset int) ([]*domain.Document, error) {
	return s.listFn(ctx, vendorID, limit, offset)
}

func TestInvoiceHandler_Create(t *testing.T) {
	handler := NewInvoiceHandler(&invoiceServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateDocumentInput) (*domain.Document, error) {
			return &domain.Document{
				ID:         "inv-1",
				Direction:  domain.DirectionReceivable,
				PartyID:    input.PartyID,
				Status:     domain.DocumentStatusDraft,
				Lines:      input.Lines,
				Total:      input.Lines[0].Amount,
				BalanceDue: input.Lines[0].Amount,
			}, nil
		},
	})

	body := `{"party_id":"cust-1","lines":[{"account_id":"4000","amount":"300.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 30000 || resp.StatusLabel != "draft" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvoiceHandler_Create_NoLines(t *testing.T) {
	handler := NewInvoiceHandler(&invoiceServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/invoices", bytes.NewBufferString(`{"party_id":"cust-1","lines":[]}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInvoiceHandler_Pay(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "applied", wantStatus: http.StatusCreated},
		{name: "overpayment", err: domain.NewBalanceExceededError(domain.EntityInvoice, "inv-1", 50000, 30000), wantStatus: http.StatusUnprocessableEntity},
		{name: "draft invoice", err: domain.NewStateTransitionError(domain.EntityInvoice, "inv-1", "invoice is not open"), wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInvoiceHandler(&invoiceServiceStub{
				payFn: func(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error) {
					if input.DocumentID != "inv-1" {
						t.Fatalf("unexpected document %s", input.DocumentID)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return &usecase.PaymentResult{
						Payment:    &domain.Payment{ID: "pay-1", DocumentID: input.DocumentID, Amount: input.Amount, Method: input.Method},
						BalanceDue: 0,
						Status:     domain.DocumentStatusPaid,
					}, nil
				},
			})

			body := `{"bank_account_id":"bank-1","method":"check","amount":"300.00"}`
			req := withURLParams(httptest.NewRequest(http.MethodPost, "/invoices/inv-1/payments", bytes.NewBufferString(body)),
				map[string]string{"id": "inv-1"})
			rec := httptest.NewRecorder()

			handler.Pay(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestInvoiceHandler_ApplyCredit_Mismatch(t *testing.T) {
	handler := NewInvoiceHandler(&invoiceServiceStub{
		creditFn: func(ctx context.Context, input usecase.ApplyCreditInput) (*usecase.CreditResult, error) {
			return nil, domain.NewMismatchError(domain.EntityCreditMemo, input.CreditID, "credit belongs to another customer")
		},
	})

	body := `{"credit_id":"cm-9","amount":"10.00"}`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/invoices/inv-1/credits", bytes.NewBufferString(body)),
		map[string]string{"id": "inv-1"})
	rec := httptest.NewRecorder()

	handler.ApplyCredit(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestInvoiceHandler_Send(t *testing.T) {
	entryID := int64(3)
	handler := NewInvoiceHandler(&invoiceServiceStub{
		sendFn: func(ctx context.Context, id string) (*domain.Document, error) {
			return &domain.Document{ID: id, Direction: domain.DirectionReceivable, Status: domain.DocumentStatusOpen, JournalEntryID: &entryID}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/invoices/inv-1/send", nil), map[string]string{"id": "inv-1"})
	rec := httptest.NewRecorder()

	handler.Send(rec, req)

	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"status":"open"`)) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvoiceHandler_Payments(t *testing.T) {
	handler := NewInvoiceHandler(&invoiceServiceStub{
		paymentFn: func(ctx context.Context, id string) ([]*domain.Payment, error) {
			return []*domain.Payment{{ID: "pay-1", DocumentID: id, Amount: 100}, {ID: "pay-2", DocumentID: id, Amount: 200}}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/invoices/inv-1/payments", nil), map[string]string{"id": "inv-1"})
	rec := httptest.NewRecorder()

	handler.Payments(rec, req)

	var resp dto.ListResponse[dto.PaymentResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[1].Amount != 200 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBillHandler_Pay_CheckRejected(t *testing.T) {
	handler := NewBillHandler(&billServiceStub{
		payFn: func(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error) {
			return nil, domain.NewValidationError(domain.EntityBill, "pay bills by check through the check writer")
		},
	})

	body := `{"bank_account_id":"bank-1","method":"check","amount":"10.00"}`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/bills/bill-1/payments", bytes.NewBufferString(body)),
		map[string]string{"id": "bill-1"})
	rec := httptest.NewRecorder()

	handler.Pay(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBillHandler_List_UnpaidLabel(t *testing.T) {
	handler := NewBillHandler(&billServiceStub{
		listFn: func(ctx context.Context, vendorID string, limit, offset int) ([]*domain.Document, error) {
			if vendorID != "vendor-1" {
				t.Fatalf("unexpected vendor %q", vendorID)
			}
			return []*domain.Document{{ID: "bill-1", Direction: domain.DirectionPayable, Status: domain.DocumentStatusDraft}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/bills?vendor_id=vendor-1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	var resp dto.ListResponse[dto.DocumentResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].StatusLabel != "unpaid" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBillHandler_PurchaseOrderFlow(t *testing.T) {
	handler := NewBillHandler(&billServiceStub{
		approveFn: func(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
			return &domain.PurchaseOrder{ID: id, Status: domain.PurchaseOrderStatusApproved}, nil
		},
		receiveFn: func(ctx context.Context, id string) (*domain.Document, error) {
			return &domain.Document{ID: "bill-9", Direction: domain.DirectionPayable, PurchaseOrderID: id, Status: domain.DocumentStatusDraft}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/purchase-orders/po-1/approve", nil), map[string]string{"id": "po-1"})
	rec := httptest.NewRecorder()
	handler.ApprovePurchaseOrder(rec, req)

	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"status":"approved"`)) {
		t.Fatalf("approve: unexpected response %d: %s", rec.Code, rec.Body.String())
	}

	req = withURLParams(httptest.NewRequest(http.MethodPost, "/purchase-orders/po-1/receive", nil), map[string]string{"id": "po-1"})
	rec = httptest.NewRecorder()
	handler.ReceivePurchaseOrder(rec, req)

	if rec.Code != http.StatusCreated || !bytes.Contains(rec.Body.Bytes(), []byte(`"purchase_order_id":"po-1"`)) {
		t.Fatalf("receive: unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}
