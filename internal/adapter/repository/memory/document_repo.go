package memory

import (
	"context"
	"sort"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const entityDocument = "document"

// DocumentRepository implements usecase.DocumentRepository for invoices and bills.
type DocumentRepository struct {
	store *Store
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(store *Store) *DocumentRepository {
	return &DocumentRepository{store: store}
}

// Create stores a new document within a transaction.
func (r *DocumentRepository) Create(ctx context.Context, tx usecase.Transaction, doc *domain.Document) error {
	r.store.documents.put(asTx(tx), doc.ID, *doc)
	return nil
}

// GetByID retrieves a document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := r.store.documents.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(entityDocument, id)
	}

	return doc, nil
}

// GetByIDForUpdate locks and retrieves a document.
func (r *DocumentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Document, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, entityDocument, id); err != nil {
		return nil, err
	}

	doc, ok := r.store.documents.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(entityDocument, id)
	}

	return doc, nil
}

// Update stores the document's new state.
func (r *DocumentRepository) Update(ctx context.Context, tx usecase.Transaction, doc *domain.Document) error {
	mtx := asTx(tx)
	if !r.store.documents.exists(mtx, doc.ID) {
		return domain.NewNotFoundError(entityDocument, doc.ID)
	}

	r.store.documents.put(mtx, doc.ID, *doc)
	return nil
}

// ListByParty lists a party's documents of one direction, newest first.
func (r *DocumentRepository) ListByParty(ctx context.Context, direction domain.Direction, partyID string, limit, offset int) ([]*domain.Document, error) {
	docs := r.store.documents.list(nil, func(d *domain.Document) bool {
		return d.Direction == direction && d.PartyID == partyID
	})

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return page(docs, limit, offset), nil
}

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	store *Store
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

// Create stores a payment within a transaction.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	r.store.payments.put(asTx(tx), payment.ID, *payment)
	return nil
}

// Update stores the payment's new state.
func (r *PaymentRepository) Update(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	mtx := asTx(tx)
	if !r.store.payments.exists(mtx, payment.ID) {
		return domain.NewNotFoundError(domain.EntityPayment, payment.ID)
	}

	r.store.payments.put(mtx, payment.ID, *payment)
	return nil
}

// GetByCheck returns the bill payment made by a check.
func (r *PaymentRepository) GetByCheck(ctx context.Context, tx usecase.Transaction, checkID string) (*domain.Payment, error) {
	found := r.store.payments.list(asTx(tx), func(p *domain.Payment) bool {
		return p.CheckID == checkID
	})
	if len(found) == 0 {
		return nil, domain.NewNotFoundError(domain.EntityPayment, checkID)
	}

	return found[0], nil
}

// ListByDocument lists the payments applied to a document in the order applied.
func (r *PaymentRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Payment, error) {
	return r.store.payments.list(nil, func(p *domain.Payment) bool {
		return p.DocumentID == documentID
	}), nil
}

// CreditMemoRepository implements usecase.CreditMemoRepository.
type CreditMemoRepository struct {
	store *Store
}

// NewCreditMemoRepository creates a new CreditMemoRepository.
func NewCreditMemoRepository(store *Store) *CreditMemoRepository {
	return &CreditMemoRepository{store: store}
}

// Create stores a credit memo within a transaction.
func (r *CreditMemoRepository) Create(ctx context.Context, tx usecase.Transaction, credit *domain.CreditMemo) error {
	r.store.credits.put(asTx(tx), credit.ID, *credit)
	return nil
}

// GetByID retrieves a credit memo by ID.
func (r *CreditMemoRepository) GetByID(ctx context.Context, id string) (*domain.CreditMemo, error) {
	credit, ok := r.store.credits.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityCreditMemo, id)
	}

	return credit, nil
}

// GetByIDForUpdate locks and retrieves a credit memo.
func (r *CreditMemoRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.CreditMemo, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityCreditMemo, id); err != nil {
		return nil, err
	}

	credit, ok := r.store.credits.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityCreditMemo, id)
	}

	return credit, nil
}

// Update stores the credit memo's new state.
func (r *CreditMemoRepository) Update(ctx context.Context, tx usecase.Transaction, credit *domain.CreditMemo) error {
	mtx := asTx(tx)
	if !r.store.credits.exists(mtx, credit.ID) {
		return domain.NewNotFoundError(domain.EntityCreditMemo, credit.ID)
	}

	r.store.credits.put(mtx, credit.ID, *credit)
	return nil
}

// PurchaseOrderRepository implements usecase.PurchaseOrderRepository.
type PurchaseOrderRepository struct {
	store *Store
}

// NewPurchaseOrderRepository creates a new PurchaseOrderRepository.
func NewPurchaseOrderRepository(store *Store) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{store: store}
}

// Create stores a purchase order within a transaction.
func (r *PurchaseOrderRepository) Create(ctx context.Context, tx usecase.Transaction, po *domain.PurchaseOrder) error {
	r.store.purchaseOrders.put(asTx(tx), po.ID, *po)
	return nil
}

// GetByID retrieves a purchase order by ID.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	po, ok := r.store.purchaseOrders.get(nil, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityPurchaseOrder, id)
	}

	return po, nil
}

// GetByIDForUpdate locks and retrieves a purchase order.
func (r *PurchaseOrderRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.PurchaseOrder, error) {
	mtx := asTx(tx)
	if err := mtx.lock(ctx, domain.EntityPurchaseOrder, id); err != nil {
		return nil, err
	}

	po, ok := r.store.purchaseOrders.get(mtx, id)
	if !ok {
		return nil, domain.NewNotFoundError(domain.EntityPurchaseOrder, id)
	}

	return po, nil
}

// Update stores the purchase order's new state.
func (r *PurchaseOrderRepository) Update(ctx context.Context, tx usecase.Transaction, po *domain.PurchaseOrder) error {
	mtx := asTx(tx)
	if !r.store.purchaseOrders.exists(mtx, po.ID) {
		return domain.NewNotFoundError(domain.EntityPurchaseOrder, po.ID)
	}

	r.store.purchaseOrders.put(mtx, po.ID, *po)
	return nil
}
