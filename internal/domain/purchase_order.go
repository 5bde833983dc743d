package domain

import "time"

// PurchaseOrderStatus is the lifecycle state of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderStatusApproved  PurchaseOrderStatus = "approved"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

// PurchaseOrder is an order to a vendor that becomes a bill once received.
type PurchaseOrder struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	VendorID  string
	BillID    string
	Status    PurchaseOrderStatus
	Lines     []DocumentLine
	Total     Money
}

// Approve moves a draft order to Approved.
func (p *PurchaseOrder) Approve() error {
	if p.Status != PurchaseOrderStatusDraft {
		return NewStateTransitionError(EntityPurchaseOrder, p.ID, "only a draft PO can be approved")
	}
	p.Status = PurchaseOrderStatusApproved
	return nil
}

// Receive marks an approved order received and links the generated bill.
func (p *PurchaseOrder) Receive(billID string) error {
	switch p.Status {
	case PurchaseOrderStatusApproved:
	case PurchaseOrderStatusReceived:
		return NewStateTransitionError(EntityPurchaseOrder, p.ID, "PO has already been received")
	default:
		return NewStateTransitionError(EntityPurchaseOrder, p.ID, "PO must be approved before receiving")
	}

	p.Status = PurchaseOrderStatusReceived
	p.BillID = billID
	return nil
}

// Cancel abandons an order that has not been received.
func (p *PurchaseOrder) Cancel() error {
	if p.Status == PurchaseOrderStatusReceived || p.Status == PurchaseOrderStatusCancelled {
		return NewStateTransitionError(EntityPurchaseOrder, p.ID, "cannot cancel a "+string(p.Status)+" PO")
	}
	p.Status = PurchaseOrderStatusCancelled
	return nil
}
