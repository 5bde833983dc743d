package usecase

import (
	"context"

	"github.com/iho/genfin/internal/domain"
)

// PayablesUseCase handles bills, vendor payments, vendor credit memos and purchase orders.
type PayablesUseCase struct {
	docs *documentEngine
}

// NewPayablesUseCase creates a new PayablesUseCase.
func NewPayablesUseCase(deps Deps) *PayablesUseCase {
	return &PayablesUseCase{
		docs: newDocumentEngine(newEngine(deps), domain.DirectionPayable),
	}
}

// CreateBill creates an unpaid (draft) bill from a vendor.
func (uc *PayablesUseCase) CreateBill(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	return uc.docs.create(ctx, input)
}

// PostBill moves a draft bill to Open and posts debit expense, credit AP.
func (uc *PayablesUseCase) PostBill(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.post(ctx, id, domain.EventTypeBillPosted)
}

// PayBill pays a bill electronically from a bank account.
func (uc *PayablesUseCase) PayBill(ctx context.Context, input ApplyPaymentInput) (*PaymentResult, error) {
	return uc.docs.applyPayment(ctx, input)
}

// ApplyCredit applies a vendor credit memo to a bill.
func (uc *PayablesUseCase) ApplyCredit(ctx context.Context, input ApplyCreditInput) (*CreditResult, error) {
	return uc.docs.applyCredit(ctx, input)
}

// VoidBill voids a bill that has nothing applied.
func (uc *PayablesUseCase) VoidBill(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.void(ctx, id, domain.EventTypeBillVoided)
}

// CreateVendorCredit records a credit memo received from a vendor.
func (uc *PayablesUseCase) CreateVendorCredit(ctx context.Context, input CreateCreditInput) (*domain.CreditMemo, error) {
	return uc.docs.createCredit(ctx, input)
}

// VoidCredit voids an unapplied vendor credit memo.
func (uc *PayablesUseCase) VoidCredit(ctx context.Context, id string) (*domain.CreditMemo, error) {
	return uc.docs.voidCredit(ctx, id)
}

// GetBill retrieves a bill by ID.
func (uc *PayablesUseCase) GetBill(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.get(ctx, id)
}

// ListBills lists a vendor's bills.
func (uc *PayablesUseCase) ListBills(ctx context.Context, vendorID string, limit, offset int) ([]*domain.Document, error) {
	return uc.docs.list(ctx, vendorID, limit, offset)
}

// GetCredit retrieves a vendor credit memo by ID.
func (uc *PayablesUseCase) GetCredit(ctx context.Context, id string) (*domain.CreditMemo, error) {
	return uc.docs.getCredit(ctx, id)
}

// ListPayments lists the payments and credits applied to a bill.
func (uc *PayablesUseCase) ListPayments(ctx context.Context, billID string) ([]*domain.Payment, error) {
	return uc.docs.listPayments(ctx, billID)
}

// CreatePurchaseOrderInput represents input for creating a purchase order.
type CreatePurchaseOrderInput struct {
	VendorID string
	Lines    []domain.DocumentLine
}

// CreatePurchaseOrder creates a draft purchase order.
func (uc *PayablesUseCase) CreatePurchaseOrder(ctx context.Context, input CreatePurchaseOrderInput) (*domain.PurchaseOrder, error) {
	// Order lines follow the same rules as bill lines.
	draft, err := domain.NewDocument("", domain.DirectionPayable, input.VendorID, input.Lines, uc.docs.Now())
	if err != nil {
		return nil, err
	}

	var po *domain.PurchaseOrder
	err = uc.docs.inTx(ctx, "purchase_order_create", func(ctx context.Context, tx Transaction) error {
		now := uc.docs.Now()
		po = &domain.PurchaseOrder{
			ID:        uc.docs.IDGen.Generate(),
			VendorID:  input.VendorID,
			Status:    domain.PurchaseOrderStatusDraft,
			Lines:     draft.Lines,
			Total:     draft.Total,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := uc.docs.Repos.PurchaseOrders.Create(ctx, tx, po); err != nil {
			return err
		}

		return uc.docs.emit(ctx, tx, domain.AggregateTypePurchaseOrder, po.ID, domain.EventTypePurchaseOrderCreated, map[string]any{
			"purchase_order_id": po.ID,
			"vendor_id":         po.VendorID,
			"total":             po.Total.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return po, nil
}

// ApprovePurchaseOrder moves a draft order to Approved.
func (uc *PayablesUseCase) ApprovePurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return uc.updatePurchaseOrder(ctx, id, "purchase_order_approve", domain.EventTypePurchaseOrderApproved, (*domain.PurchaseOrder).Approve)
}

// CancelPurchaseOrder abandons an order that has not been received.
func (uc *PayablesUseCase) CancelPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return uc.updatePurchaseOrder(ctx, id, "purchase_order_cancel", domain.EventTypePurchaseOrderCancelled, (*domain.PurchaseOrder).Cancel)
}

func (uc *PayablesUseCase) updatePurchaseOrder(ctx context.Context, id, op, eventType string, transition func(*domain.PurchaseOrder) error) (*domain.PurchaseOrder, error) {
	var po *domain.PurchaseOrder
	err := uc.docs.inTx(ctx, op, func(ctx context.Context, tx Transaction) error {
		var err error
		po, err = uc.docs.Repos.PurchaseOrders.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := transition(po); err != nil {
			return err
		}

		po.UpdatedAt = uc.docs.Now()
		if err := uc.docs.Repos.PurchaseOrders.Update(ctx, tx, po); err != nil {
			return err
		}

		return uc.docs.emit(ctx, tx, domain.AggregateTypePurchaseOrder, po.ID, eventType, map[string]any{
			"purchase_order_id": po.ID,
			"vendor_id":         po.VendorID,
			"status":            string(po.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	return po, nil
}

// ReceivePurchaseOrder converts an approved order into a draft bill with the order's lines.
func (uc *PayablesUseCase) ReceivePurchaseOrder(ctx context.Context, id string) (*domain.Document, error) {
	var bill *domain.Document
	err := uc.docs.inTx(ctx, "purchase_order_receive", func(ctx context.Context, tx Transaction) error {
		po, err := uc.docs.Repos.PurchaseOrders.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if po.Status != domain.PurchaseOrderStatusApproved {
			return po.Receive("")
		}

		bill, err = uc.docs.createInTx(ctx, tx, CreateDocumentInput{
			PartyID: po.VendorID,
			Number:  "PO-" + po.ID,
			Lines:   po.Lines,
		}, po.ID)
		if err != nil {
			return err
		}

		if err := po.Receive(bill.ID); err != nil {
			return err
		}

		po.UpdatedAt = uc.docs.Now()
		if err := uc.docs.Repos.PurchaseOrders.Update(ctx, tx, po); err != nil {
			return err
		}

		return uc.docs.emit(ctx, tx, domain.AggregateTypePurchaseOrder, po.ID, domain.EventTypePurchaseOrderReceived, map[string]any{
			"purchase_order_id": po.ID,
			"bill_id":           bill.ID,
			"vendor_id":         po.VendorID,
			"total":             po.Total.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return bill, nil
}

// GetPurchaseOrder retrieves a purchase order by ID.
func (uc *PayablesUseCase) GetPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	return uc.docs.Repos.PurchaseOrders.GetByID(ctx, id)
}
