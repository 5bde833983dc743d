package usecase

import (
	"context"

	"github.com/iho/genfin/internal/domain"
)

// ReceivablesUseCase handles invoices, customer payments and customer credit memos.
type ReceivablesUseCase struct {
	docs *documentEngine
}

// NewReceivablesUseCase creates a new ReceivablesUseCase.
func NewReceivablesUseCase(deps Deps) *ReceivablesUseCase {
	return &ReceivablesUseCase{
		docs: newDocumentEngine(newEngine(deps), domain.DirectionReceivable),
	}
}

// CreateInvoice creates a draft invoice for a customer.
func (uc *ReceivablesUseCase) CreateInvoice(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	return uc.docs.create(ctx, input)
}

// SendInvoice moves a draft invoice to Open and posts debit AR, credit income.
func (uc *ReceivablesUseCase) SendInvoice(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.post(ctx, id, domain.EventTypeInvoiceSent)
}

// ApplyPayment records a customer payment deposited to a bank account.
func (uc *ReceivablesUseCase) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*PaymentResult, error) {
	return uc.docs.applyPayment(ctx, input)
}

// ApplyCredit applies a customer credit memo to an invoice.
func (uc *ReceivablesUseCase) ApplyCredit(ctx context.Context, input ApplyCreditInput) (*CreditResult, error) {
	return uc.docs.applyCredit(ctx, input)
}

// VoidInvoice voids an invoice that has nothing applied.
func (uc *ReceivablesUseCase) VoidInvoice(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.void(ctx, id, domain.EventTypeInvoiceVoided)
}

// CreateCustomerCredit issues a credit memo to a customer.
func (uc *ReceivablesUseCase) CreateCustomerCredit(ctx context.Context, input CreateCreditInput) (*domain.CreditMemo, error) {
	return uc.docs.createCredit(ctx, input)
}

// VoidCredit voids an unapplied customer credit memo.
func (uc *ReceivablesUseCase) VoidCredit(ctx context.Context, id string) (*domain.CreditMemo, error) {
	return uc.docs.voidCredit(ctx, id)
}

// GetInvoice retrieves an invoice by ID.
func (uc *ReceivablesUseCase) GetInvoice(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.get(ctx, id)
}

// ListInvoices lists a customer's invoices.
func (uc *ReceivablesUseCase) ListInvoices(ctx context.Context, customerID string, limit, offset int) ([]*domain.Document, error) {
	return uc.docs.list(ctx, customerID, limit, offset)
}

// GetCredit retrieves a customer credit memo by ID.
func (uc *ReceivablesUseCase) GetCredit(ctx context.Context, id string) (*domain.CreditMemo, error) {
	return uc.docs.getCredit(ctx, id)
}

// ListPayments lists the payments and credits applied to an invoice.
func (uc *ReceivablesUseCase) ListPayments(ctx context.Context, invoiceID string) ([]*domain.Payment, error) {
	return uc.docs.listPayments(ctx, invoiceID)
}
