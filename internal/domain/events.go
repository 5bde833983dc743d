package domain

import "time"

// Event types
const (
	EventTypeJournalPosted          = "journal.posted"
	EventTypeInvoiceSent            = "invoice.sent"
	EventTypeInvoiceVoided          = "invoice.voided"
	EventTypeBillPosted             = "bill.posted"
	EventTypeBillVoided             = "bill.voided"
	EventTypePaymentApplied         = "payment.applied"
	EventTypeCreditApplied          = "credit.applied"
	EventTypeCreditIssued           = "credit.issued"
	EventTypeCreditVoided           = "credit.voided"
	EventTypePurchaseOrderCreated   = "purchase_order.created"
	EventTypePurchaseOrderApproved  = "purchase_order.approved"
	EventTypePurchaseOrderCancelled = "purchase_order.cancelled"
	EventTypePurchaseOrderReceived  = "purchase_order.received"
	EventTypeCheckIssued            = "check.issued"
	EventTypeCheckPrinted           = "check.printed"
	EventTypeCheckVoided            = "check.voided"
	EventTypeTransferCreated        = "transfer.created"
	EventTypeBankTransactionAdded   = "bank_transaction.recorded"
	EventTypeReconciliationStarted  = "reconciliation.started"
	EventTypeReconciliationComplete = "reconciliation.completed"
	EventTypeReconciliationReopened = "reconciliation.reopened"
)

// Aggregate types
const (
	AggregateTypeJournal        = "journal"
	AggregateTypeDocument       = "document"
	AggregateTypeCreditMemo     = "credit_memo"
	AggregateTypePurchaseOrder  = "purchase_order"
	AggregateTypeCheck          = "check"
	AggregateTypeBankAccount    = "bank_account"
	AggregateTypeReconciliation = "reconciliation"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
