package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/genfin/internal/domain"
)

// documentEngine holds the posting, payment, credit and void logic shared by
// invoices and bills. Direction decides which side of each entry the control
// account (AR or AP) lands on.
type documentEngine struct {
	engine

	direction domain.Direction
	control   string
}

func newDocumentEngine(e engine, direction domain.Direction) *documentEngine {
	control := e.Control.Receivable
	if direction == domain.DirectionPayable {
		control = e.Control.Payable
	}

	return &documentEngine{
		engine:    e,
		direction: direction,
		control:   control,
	}
}

// CreateDocumentInput represents input for creating an invoice or a bill.
type CreateDocumentInput struct {
	DueDate *time.Time
	PartyID string
	Number  string
	Lines   []domain.DocumentLine
}

// ApplyPaymentInput represents a payment against an invoice or a bill.
// With AllowPartial an amount above the balance due is reduced to it.
type ApplyPaymentInput struct {
	Date          time.Time
	DocumentID    string
	BankAccountID string
	Method        domain.PaymentMethod
	Amount        domain.Money
	AllowPartial  bool
}

// PaymentResult reports the document state after a payment.
type PaymentResult struct {
	Payment    *domain.Payment
	BalanceDue domain.Money
	Status     domain.DocumentStatus
}

// ApplyCreditInput represents a credit memo application. With AllowPartial
// the amount is reduced to min(balance due, credit remaining).
type ApplyCreditInput struct {
	DocumentID   string
	CreditID     string
	Amount       domain.Money
	AllowPartial bool
}

// CreditResult reports both sides after a credit application.
type CreditResult struct {
	Payment         *domain.Payment
	Applied         domain.Money
	BalanceDue      domain.Money
	CreditRemaining domain.Money
	Status          domain.DocumentStatus
}

// CreateCreditInput represents input for issuing a credit memo.
type CreateCreditInput struct {
	HolderID        string
	OffsetAccountID string
	Memo            string
	Amount          domain.Money
}

func (d *documentEngine) entity() string {
	return d.direction.Entity()
}

func (d *documentEngine) op(name string) string {
	return d.entity() + "_" + name
}

func (d *documentEngine) create(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	var doc *domain.Document
	err := d.inTx(ctx, d.op("create"), func(ctx context.Context, tx Transaction) error {
		var err error
		doc, err = d.createInTx(ctx, tx, input, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	if d.Metrics != nil {
		d.Metrics.DocumentsCreated.WithLabelValues(string(d.direction)).Inc()
	}

	return doc, nil
}

func (d *documentEngine) createInTx(ctx context.Context, tx Transaction, input CreateDocumentInput, purchaseOrderID string) (*domain.Document, error) {
	doc, err := domain.NewDocument(d.IDGen.Generate(), d.direction, input.PartyID, input.Lines, d.Now())
	if err != nil {
		return nil, err
	}

	accountIDs := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		accountIDs = append(accountIDs, line.AccountID)
	}

	if err := d.ledger.EnsureAccounts(ctx, accountIDs...); err != nil {
		return nil, err
	}

	doc.Number = input.Number
	doc.DueDate = input.DueDate
	doc.PurchaseOrderID = purchaseOrderID

	if err := d.Repos.Documents.Create(ctx, tx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// post moves a draft to Open and books it against the control account.
func (d *documentEngine) post(ctx context.Context, id, eventType string) (*domain.Document, error) {
	var doc *domain.Document
	err := d.inTx(ctx, d.op("post"), func(ctx context.Context, tx Transaction) error {
		var err error
		doc, err = d.lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := doc.Post(); err != nil {
			return err
		}

		now := d.Now()
		entry, err := d.ledger.Post(ctx, tx, PostEntryInput{
			PostedAt:   now,
			Memo:       d.entity() + " " + doc.ID,
			SourceType: d.entity(),
			SourceID:   doc.ID,
			Lines:      d.postingLines(doc),
		})
		if err != nil {
			return err
		}

		doc.JournalEntryID = &entry.ID
		doc.UpdatedAt = now

		if err := d.Repos.Documents.Update(ctx, tx, doc); err != nil {
			return err
		}

		return d.emit(ctx, tx, domain.AggregateTypeDocument, doc.ID, eventType, map[string]any{
			"document_id": doc.ID,
			"direction":   string(d.direction),
			"party_id":    doc.PartyID,
			"total":       doc.Total.String(),
			"entry_id":    entry.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	if d.Metrics != nil {
		d.Metrics.DocumentsPosted.WithLabelValues(string(d.direction)).Inc()
		d.Metrics.JournalEntriesPosted.WithLabelValues(d.entity()).Inc()
	}

	return doc, nil
}

// postingLines books a receivable as debit AR, credit each income line, and a
// payable as debit each expense line, credit AP.
func (d *documentEngine) postingLines(doc *domain.Document) []domain.JournalLine {
	lines := make([]domain.JournalLine, 0, len(doc.Lines)+1)

	if d.direction == domain.DirectionReceivable {
		lines = append(lines, domain.DebitLine(d.control, doc.Total))
	}

	for _, l := range doc.Lines {
		var line domain.JournalLine
		if d.direction == domain.DirectionReceivable {
			line = domain.CreditLine(l.AccountID, l.Amount)
		} else {
			line = domain.DebitLine(l.AccountID, l.Amount)
		}
		line.Memo = l.Description
		lines = append(lines, line)
	}

	if d.direction == domain.DirectionPayable {
		lines = append(lines, domain.CreditLine(d.control, doc.Total))
	}

	return lines
}

// cashLines moves amount between the control account and a bank cash account.
func (d *documentEngine) cashLines(cashAccountID string, amount domain.Money) []domain.JournalLine {
	if d.direction == domain.DirectionReceivable {
		return []domain.JournalLine{
			domain.DebitLine(cashAccountID, amount),
			domain.CreditLine(d.control, amount),
		}
	}

	return []domain.JournalLine{
		domain.DebitLine(d.control, amount),
		domain.CreditLine(cashAccountID, amount),
	}
}

func (d *documentEngine) validatePayment(input ApplyPaymentInput) error {
	if input.DocumentID == "" {
		return domain.NewValidationError(d.entity(), "document id is required")
	}

	if err := domain.ValidateAmount(domain.EntityPayment, input.Amount); err != nil {
		return err
	}

	if !input.Method.IsValid() || input.Method == domain.PaymentMethodCredit {
		return domain.NewValidationError(domain.EntityPayment, "invalid payment method "+string(input.Method))
	}

	if d.direction == domain.DirectionPayable && input.Method == domain.PaymentMethodCheck {
		return domain.NewValidationError(domain.EntityPayment, "bill payments by check are written through the check writer")
	}

	if input.BankAccountID == "" {
		return domain.NewValidationError(domain.EntityPayment, "bank account id is required")
	}

	return nil
}

// applyPayment serializes on the document row so two racing payments cannot
// both pass the balance check.
func (d *documentEngine) applyPayment(ctx context.Context, input ApplyPaymentInput) (*PaymentResult, error) {
	if err := d.validatePayment(input); err != nil {
		return nil, err
	}

	var result *PaymentResult
	err := d.inTx(ctx, d.op("payment"), func(ctx context.Context, tx Transaction) error {
		doc, err := d.lockDocument(ctx, tx, input.DocumentID)
		if err != nil {
			return err
		}

		if err := doc.CanAcceptPayment(); err != nil {
			return err
		}

		amount := input.Amount
		if input.AllowPartial {
			amount = domain.MinMoney(amount, doc.BalanceDue)
		}

		if err := doc.Apply(amount); err != nil {
			return err
		}

		bank, err := d.Repos.BankAccounts.GetByIDForUpdate(ctx, tx, input.BankAccountID)
		if err != nil {
			return err
		}

		now := d.Now()
		date := input.Date
		if date.IsZero() {
			date = now
		}

		payment := &domain.Payment{
			ID:            d.IDGen.Generate(),
			DocumentID:    doc.ID,
			Amount:        amount,
			Date:          date,
			Method:        input.Method,
			BankAccountID: bank.ID,
			CreatedAt:     now,
		}

		entry, err := d.ledger.Post(ctx, tx, PostEntryInput{
			PostedAt:   date,
			Memo:       "payment on " + d.entity() + " " + doc.ID,
			SourceType: domain.SourcePayment,
			SourceID:   payment.ID,
			Lines:      d.cashLines(bank.LedgerAccountID, amount),
		})
		if err != nil {
			return err
		}
		payment.JournalEntryID = &entry.ID

		txnType, signed := domain.BankTxnDeposit, amount
		if d.direction == domain.DirectionPayable {
			txnType, signed = domain.BankTxnTransfer, amount.Neg()
		}

		txn, err := d.recordBankTransaction(ctx, tx, bank, txnType, signed,
			string(input.Method)+" payment "+d.entity()+" "+doc.ID, domain.SourcePayment, payment.ID, entry.ID, date)
		if err != nil {
			return err
		}
		payment.BankTransactionID = txn.ID

		if err := d.Repos.Payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		doc.UpdatedAt = now
		if err := d.Repos.Documents.Update(ctx, tx, doc); err != nil {
			return err
		}

		result = &PaymentResult{Payment: payment, BalanceDue: doc.BalanceDue, Status: doc.Status}

		return d.emit(ctx, tx, domain.AggregateTypeDocument, doc.ID, domain.EventTypePaymentApplied, map[string]any{
			"document_id":     doc.ID,
			"payment_id":      payment.ID,
			"direction":       string(d.direction),
			"method":          string(payment.Method),
			"amount":          amount.String(),
			"balance_due":     doc.BalanceDue.String(),
			"status":          string(doc.Status),
			"bank_account_id": bank.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	if d.Metrics != nil {
		d.Metrics.PaymentsApplied.WithLabelValues(string(d.direction), string(input.Method)).Inc()
		d.Metrics.PaymentAmount.Observe(result.Payment.Amount.Decimal().InexactFloat64())
	}

	return result, nil
}

// applyCredit locks the document, then the credit memo, and decrements both.
// Credit applications post no entry: issuing the memo already moved the control account.
func (d *documentEngine) applyCredit(ctx context.Context, input ApplyCreditInput) (*CreditResult, error) {
	if input.DocumentID == "" || input.CreditID == "" {
		return nil, domain.NewValidationError(domain.EntityCreditMemo, "document id and credit id are required")
	}

	if err := domain.ValidateAmount(domain.EntityCreditMemo, input.Amount); err != nil {
		return nil, err
	}

	var result *CreditResult
	err := d.inTx(ctx, d.op("credit"), func(ctx context.Context, tx Transaction) error {
		doc, err := d.lockDocument(ctx, tx, input.DocumentID)
		if err != nil {
			return err
		}

		credit, err := d.Repos.Credits.GetByIDForUpdate(ctx, tx, input.CreditID)
		if err != nil {
			return err
		}

		if err := credit.CheckHolder(doc); err != nil {
			return err
		}

		if err := doc.CanAcceptPayment(); err != nil {
			return err
		}

		amount := input.Amount
		if input.AllowPartial {
			amount = domain.MinMoney(amount, doc.BalanceDue, credit.Remaining)
			if amount.IsZero() {
				amount = input.Amount
			}
		}

		if err := credit.Consume(amount); err != nil {
			return err
		}

		if err := doc.Apply(amount); err != nil {
			return err
		}

		now := d.Now()
		payment := &domain.Payment{
			ID:           d.IDGen.Generate(),
			DocumentID:   doc.ID,
			Amount:       amount,
			Date:         now,
			Method:       domain.PaymentMethodCredit,
			CreditMemoID: credit.ID,
			CreatedAt:    now,
		}

		if err := d.Repos.Payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		credit.UpdatedAt = now
		if err := d.Repos.Credits.Update(ctx, tx, credit); err != nil {
			return err
		}

		doc.UpdatedAt = now
		if err := d.Repos.Documents.Update(ctx, tx, doc); err != nil {
			return err
		}

		result = &CreditResult{
			Payment:         payment,
			Applied:         amount,
			BalanceDue:      doc.BalanceDue,
			CreditRemaining: credit.Remaining,
			Status:          doc.Status,
		}

		return d.emit(ctx, tx, domain.AggregateTypeCreditMemo, credit.ID, domain.EventTypeCreditApplied, map[string]any{
			"credit_id":        credit.ID,
			"document_id":      doc.ID,
			"amount":           amount.String(),
			"credit_remaining": credit.Remaining.String(),
			"balance_due":      doc.BalanceDue.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if d.Metrics != nil {
		d.Metrics.CreditsApplied.WithLabelValues(string(d.direction)).Inc()
	}

	return result, nil
}

// void reverses the posting entry of an Open document and moves it to Void.
// A draft has no entry and is voided without a posting.
func (d *documentEngine) void(ctx context.Context, id, eventType string) (*domain.Document, error) {
	var doc *domain.Document
	err := d.inTx(ctx, d.op("void"), func(ctx context.Context, tx Transaction) error {
		var err error
		doc, err = d.lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := doc.Void(); err != nil {
			return err
		}

		now := d.Now()
		if doc.JournalEntryID != nil {
			reversal, err := d.ledger.Reverse(ctx, tx, *doc.JournalEntryID, "void "+d.entity()+" "+doc.ID, now)
			if err != nil {
				return err
			}
			doc.VoidEntryID = &reversal.ID
		}

		doc.UpdatedAt = now
		if err := d.Repos.Documents.Update(ctx, tx, doc); err != nil {
			return err
		}

		return d.emit(ctx, tx, domain.AggregateTypeDocument, doc.ID, eventType, map[string]any{
			"document_id": doc.ID,
			"direction":   string(d.direction),
		})
	})
	if err != nil {
		return nil, err
	}

	if d.Metrics != nil {
		d.Metrics.DocumentsVoided.WithLabelValues(string(d.direction)).Inc()
	}

	return doc, nil
}

// createCredit issues a credit memo. A customer credit posts debit offset,
// credit AR; a vendor credit posts debit AP, credit offset.
func (d *documentEngine) createCredit(ctx context.Context, input CreateCreditInput) (*domain.CreditMemo, error) {
	if input.HolderID == "" {
		return nil, domain.NewValidationError(domain.EntityCreditMemo, d.direction.Party()+" id is required")
	}

	if input.OffsetAccountID == "" {
		return nil, domain.NewValidationError(domain.EntityCreditMemo, "offset account id is required")
	}

	if err := domain.ValidateAmount(domain.EntityCreditMemo, input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateMemo(domain.EntityCreditMemo, input.Memo); err != nil {
		return nil, err
	}

	var credit *domain.CreditMemo
	err := d.inTx(ctx, d.op("credit_issue"), func(ctx context.Context, tx Transaction) error {
		now := d.Now()
		credit = &domain.CreditMemo{
			ID:              d.IDGen.Generate(),
			Direction:       d.direction,
			HolderID:        input.HolderID,
			OffsetAccountID: input.OffsetAccountID,
			Memo:            input.Memo,
			Status:          domain.CreditMemoStatusOpen,
			OriginalAmount:  input.Amount,
			Remaining:       input.Amount,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		lines := []domain.JournalLine{
			domain.DebitLine(input.OffsetAccountID, input.Amount),
			domain.CreditLine(d.control, input.Amount),
		}
		if d.direction == domain.DirectionPayable {
			lines = []domain.JournalLine{
				domain.DebitLine(d.control, input.Amount),
				domain.CreditLine(input.OffsetAccountID, input.Amount),
			}
		}

		entry, err := d.ledger.Post(ctx, tx, PostEntryInput{
			PostedAt:   now,
			Memo:       "credit memo " + credit.ID,
			SourceType: domain.SourceCreditMemo,
			SourceID:   credit.ID,
			Lines:      lines,
		})
		if err != nil {
			return err
		}
		credit.JournalEntryID = &entry.ID

		if err := d.Repos.Credits.Create(ctx, tx, credit); err != nil {
			return err
		}

		return d.emit(ctx, tx, domain.AggregateTypeCreditMemo, credit.ID, domain.EventTypeCreditIssued, map[string]any{
			"credit_id": credit.ID,
			"direction": string(d.direction),
			"holder_id": credit.HolderID,
			"amount":    credit.OriginalAmount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if d.Metrics != nil {
		d.Metrics.JournalEntriesPosted.WithLabelValues(domain.SourceCreditMemo).Inc()
	}

	return credit, nil
}

func (d *documentEngine) voidCredit(ctx context.Context, id string) (*domain.CreditMemo, error) {
	var credit *domain.CreditMemo
	err := d.inTx(ctx, d.op("credit_void"), func(ctx context.Context, tx Transaction) error {
		var err error
		credit, err = d.Repos.Credits.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if credit.Direction != d.direction {
			return domain.NewNotFoundError(domain.EntityCreditMemo, id)
		}

		if err := credit.Void(); err != nil {
			return err
		}

		now := d.Now()
		if credit.JournalEntryID != nil {
			reversal, err := d.ledger.Reverse(ctx, tx, *credit.JournalEntryID, "void credit memo "+credit.ID, now)
			if err != nil {
				return err
			}
			credit.VoidEntryID = &reversal.ID
		}

		credit.UpdatedAt = now
		if err := d.Repos.Credits.Update(ctx, tx, credit); err != nil {
			return err
		}

		return d.emit(ctx, tx, domain.AggregateTypeCreditMemo, credit.ID, domain.EventTypeCreditVoided, map[string]any{
			"credit_id": credit.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	return credit, nil
}

func (d *documentEngine) get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := d.Repos.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, d.documentNotFound(id, err)
	}

	if doc.Direction != d.direction {
		return nil, domain.NewNotFoundError(d.entity(), id)
	}

	return doc, nil
}

func (d *documentEngine) list(ctx context.Context, partyID string, limit, offset int) ([]*domain.Document, error) {
	limit, offset = clampLimit(limit, offset)
	return d.Repos.Documents.ListByParty(ctx, d.direction, partyID, limit, offset)
}

func (d *documentEngine) getCredit(ctx context.Context, id string) (*domain.CreditMemo, error) {
	credit, err := d.Repos.Credits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if credit.Direction != d.direction {
		return nil, domain.NewNotFoundError(domain.EntityCreditMemo, id)
	}

	return credit, nil
}

func (d *documentEngine) listPayments(ctx context.Context, id string) ([]*domain.Payment, error) {
	if _, err := d.get(ctx, id); err != nil {
		return nil, err
	}

	return d.Repos.Payments.ListByDocument(ctx, id)
}

// lockDocument row-locks the document and hides documents of the other direction.
func (d *documentEngine) lockDocument(ctx context.Context, tx Transaction, id string) (*domain.Document, error) {
	doc, err := d.Repos.Documents.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, d.documentNotFound(id, err)
	}

	if doc.Direction != d.direction {
		return nil, domain.NewNotFoundError(d.entity(), id)
	}

	return doc, nil
}

func (d *documentEngine) documentNotFound(id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError(d.entity(), id)
	}
	return err
}
