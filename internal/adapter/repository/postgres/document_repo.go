package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

const entityDocument = "document"

const documentColumns = `id, direction, party_id, number, purchase_order_id, status, lines, total, balance_due,
	due_date, journal_entry_id, void_entry_id, created_at, updated_at`

// lineRow is the JSONB form of a document or purchase order line.
type lineRow struct {
	Description string `json:"description,omitempty"`
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
}

func encodeLines(lines []domain.DocumentLine) ([]byte, error) {
	rows := make([]lineRow, len(lines))
	for i, l := range lines {
		rows[i] = lineRow{Description: l.Description, AccountID: l.AccountID, Amount: l.Amount.Cents()}
	}
	return json.Marshal(rows)
}

func decodeLines(data []byte) ([]domain.DocumentLine, error) {
	var rows []lineRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}

	lines := make([]domain.DocumentLine, len(rows))
	for i, r := range rows {
		lines[i] = domain.DocumentLine{Description: r.Description, AccountID: r.AccountID, Amount: domain.Money(r.Amount)}
	}
	return lines, nil
}

// DocumentRepository implements usecase.DocumentRepository for invoices and bills.
type DocumentRepository struct {
	pool dbtx
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create stores a new document within a transaction.
func (r *DocumentRepository) Create(ctx context.Context, tx usecase.Transaction, doc *domain.Document) error {
	lines, err := encodeLines(doc.Lines)
	if err != nil {
		return err
	}

	_, err = conn(r.pool, tx).Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		doc.ID, string(doc.Direction), doc.PartyID, doc.Number, doc.PurchaseOrderID, string(doc.Status), lines,
		doc.Total.Cents(), doc.BalanceDue.Cents(), doc.DueDate, doc.JournalEntryID, doc.VoidEntryID,
		doc.CreatedAt, doc.UpdatedAt,
	)

	return mapError(err, entityDocument, doc.ID)
}

// GetByID retrieves a document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, entityDocument, id)
	}

	return doc, nil
}

// GetByIDForUpdate locks and retrieves a document.
func (r *DocumentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Document, error) {
	doc, err := scanDocument(conn(r.pool, tx).QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, entityDocument, id)
	}

	return doc, nil
}

// Update stores the document's status, balance and journal links. Lines are immutable.
func (r *DocumentRepository) Update(ctx context.Context, tx usecase.Transaction, doc *domain.Document) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE documents SET status = $2, balance_due = $3, journal_entry_id = $4, void_entry_id = $5, updated_at = $6
		 WHERE id = $1`,
		doc.ID, string(doc.Status), doc.BalanceDue.Cents(), doc.JournalEntryID, doc.VoidEntryID, doc.UpdatedAt,
	)
	if err != nil {
		return mapError(err, entityDocument, doc.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(entityDocument, doc.ID)
	}

	return nil
}

// ListByParty lists a party's documents of one direction, newest first.
func (r *DocumentRepository) ListByParty(ctx context.Context, direction domain.Direction, partyID string, limit, offset int) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE direction = $1 AND party_id = $2
		 ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`,
		string(direction), partyID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Document, error) {
		return scanDocument(row)
	})
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		d                 domain.Document
		direction, status string
		lines             []byte
		total, balanceDue int64
	)

	if err := row.Scan(&d.ID, &direction, &d.PartyID, &d.Number, &d.PurchaseOrderID, &status, &lines,
		&total, &balanceDue, &d.DueDate, &d.JournalEntryID, &d.VoidEntryID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}

	decoded, err := decodeLines(lines)
	if err != nil {
		return nil, err
	}

	d.Direction = domain.Direction(direction)
	d.Status = domain.DocumentStatus(status)
	d.Lines = decoded
	d.Total = domain.Money(total)
	d.BalanceDue = domain.Money(balanceDue)

	return &d, nil
}

const paymentColumns = `id, document_id, method, bank_account_id, bank_transaction_id, credit_memo_id, check_id,
	amount, reversed, journal_entry_id, date, created_at`

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	pool dbtx
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create records a payment within a transaction.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	_, err := conn(r.pool, tx).Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.DocumentID, string(p.Method), p.BankAccountID, p.BankTransactionID, p.CreditMemoID, p.CheckID,
		p.Amount.Cents(), p.Reversed, p.JournalEntryID, p.Date, p.CreatedAt,
	)

	return mapError(err, domain.EntityPayment, p.ID)
}

// Update stores the reversed flag.
func (r *PaymentRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	tag, err := conn(r.pool, tx).Exec(ctx, `UPDATE payments SET reversed = $2 WHERE id = $1`, p.ID, p.Reversed)
	if err != nil {
		return mapError(err, domain.EntityPayment, p.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityPayment, p.ID)
	}

	return nil
}

// GetByCheck returns the payment a check made, locking it.
func (r *PaymentRepository) GetByCheck(ctx context.Context, tx usecase.Transaction, checkID string) (*domain.Payment, error) {
	p, err := scanPayment(conn(r.pool, tx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE check_id = $1 FOR UPDATE`, checkID))
	if err != nil {
		return nil, mapError(err, domain.EntityPayment, checkID)
	}

	return p, nil
}

// ListByDocument lists a document's payments in the order they were made.
func (r *PaymentRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE document_id = $1 ORDER BY created_at, id`, documentID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		return scanPayment(row)
	})
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p      domain.Payment
		method string
		amount int64
	)

	if err := row.Scan(&p.ID, &p.DocumentID, &method, &p.BankAccountID, &p.BankTransactionID, &p.CreditMemoID,
		&p.CheckID, &amount, &p.Reversed, &p.JournalEntryID, &p.Date, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Method = domain.PaymentMethod(method)
	p.Amount = domain.Money(amount)

	return &p, nil
}

const creditColumns = `id, direction, holder_id, offset_account_id, memo, status, original_amount, remaining,
	journal_entry_id, void_entry_id, created_at, updated_at`

// CreditMemoRepository implements usecase.CreditMemoRepository.
type CreditMemoRepository struct {
	pool dbtx
}

// NewCreditMemoRepository creates a new CreditMemoRepository.
func NewCreditMemoRepository(pool *pgxpool.Pool) *CreditMemoRepository {
	return &CreditMemoRepository{pool: pool}
}

// Create stores a credit memo within a transaction.
func (r *CreditMemoRepository) Create(ctx context.Context, tx usecase.Transaction, c *domain.CreditMemo) error {
	_, err := conn(r.pool, tx).Exec(ctx,
		`INSERT INTO credit_memos (`+creditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, string(c.Direction), c.HolderID, c.OffsetAccountID, c.Memo, string(c.Status),
		c.OriginalAmount.Cents(), c.Remaining.Cents(), c.JournalEntryID, c.VoidEntryID, c.CreatedAt, c.UpdatedAt,
	)

	return mapError(err, domain.EntityCreditMemo, c.ID)
}

// GetByID retrieves a credit memo by ID.
func (r *CreditMemoRepository) GetByID(ctx context.Context, id string) (*domain.CreditMemo, error) {
	c, err := scanCredit(r.pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM credit_memos WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityCreditMemo, id)
	}

	return c, nil
}

// GetByIDForUpdate locks and retrieves a credit memo.
func (r *CreditMemoRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.CreditMemo, error) {
	c, err := scanCredit(conn(r.pool, tx).QueryRow(ctx,
		`SELECT `+creditColumns+` FROM credit_memos WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityCreditMemo, id)
	}

	return c, nil
}

// Update stores the remaining amount, status and void entry.
func (r *CreditMemoRepository) Update(ctx context.Context, tx usecase.Transaction, c *domain.CreditMemo) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE credit_memos SET status = $2, remaining = $3, void_entry_id = $4, updated_at = $5 WHERE id = $1`,
		c.ID, string(c.Status), c.Remaining.Cents(), c.VoidEntryID, c.UpdatedAt,
	)
	if err != nil {
		return mapError(err, domain.EntityCreditMemo, c.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityCreditMemo, c.ID)
	}

	return nil
}

func scanCredit(row pgx.Row) (*domain.CreditMemo, error) {
	var (
		c                   domain.CreditMemo
		direction, status   string
		original, remaining int64
	)

	if err := row.Scan(&c.ID, &direction, &c.HolderID, &c.OffsetAccountID, &c.Memo, &status, &original, &remaining,
		&c.JournalEntryID, &c.VoidEntryID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	c.Direction = domain.Direction(direction)
	c.Status = domain.CreditMemoStatus(status)
	c.OriginalAmount = domain.Money(original)
	c.Remaining = domain.Money(remaining)

	return &c, nil
}

const purchaseOrderColumns = `id, vendor_id, bill_id, status, lines, total, created_at, updated_at`

// PurchaseOrderRepository implements usecase.PurchaseOrderRepository.
type PurchaseOrderRepository struct {
	pool dbtx
}

// NewPurchaseOrderRepository creates a new PurchaseOrderRepository.
func NewPurchaseOrderRepository(pool *pgxpool.Pool) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{pool: pool}
}

// Create stores a purchase order within a transaction.
func (r *PurchaseOrderRepository) Create(ctx context.Context, tx usecase.Transaction, po *domain.PurchaseOrder) error {
	lines, err := encodeLines(po.Lines)
	if err != nil {
		return err
	}

	_, err = conn(r.pool, tx).Exec(ctx,
		`INSERT INTO purchase_orders (`+purchaseOrderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		po.ID, po.VendorID, po.BillID, string(po.Status), lines, po.Total.Cents(), po.CreatedAt, po.UpdatedAt,
	)

	return mapError(err, domain.EntityPurchaseOrder, po.ID)
}

// GetByID retrieves a purchase order by ID.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(r.pool.QueryRow(ctx,
		`SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityPurchaseOrder, id)
	}

	return po, nil
}

// GetByIDForUpdate locks and retrieves a purchase order.
func (r *PurchaseOrderRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(conn(r.pool, tx).QueryRow(ctx,
		`SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, domain.EntityPurchaseOrder, id)
	}

	return po, nil
}

// Update stores the status and the bill created on receipt.
func (r *PurchaseOrderRepository) Update(ctx context.Context, tx usecase.Transaction, po *domain.PurchaseOrder) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE purchase_orders SET status = $2, bill_id = $3, updated_at = $4 WHERE id = $1`,
		po.ID, string(po.Status), po.BillID, po.UpdatedAt,
	)
	if err != nil {
		return mapError(err, domain.EntityPurchaseOrder, po.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(domain.EntityPurchaseOrder, po.ID)
	}

	return nil
}

func scanPurchaseOrder(row pgx.Row) (*domain.PurchaseOrder, error) {
	var (
		po     domain.PurchaseOrder
		status string
		lines  []byte
		total  int64
	)

	if err := row.Scan(&po.ID, &po.VendorID, &po.BillID, &status, &lines, &total, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return nil, err
	}

	decoded, err := decodeLines(lines)
	if err != nil {
		return nil, err
	}

	po.Status = domain.PurchaseOrderStatus(status)
	po.Lines = decoded
	po.Total = domain.Money(total)

	return &po, nil
}
