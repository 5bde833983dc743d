// Package memory is an in-process implementation of the repositories.
//
// Committed rows live in a go-memdb database. A transaction stages its writes
// and applies them in a single memdb write transaction on commit, so other
// readers only ever see committed state. Row locks taken by the ForUpdate
// lookups are held until the transaction ends and are acquired under the
// caller's context deadline.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

var errTxDone = errors.New("memory: transaction already finished")

// tableNames lists every table in the store schema.
var tableNames = []string{
	"accounts", "journal", "documents", "payments", "credits", "purchase_orders", "checks",
	"bank_accounts", "bank_transactions", "transfers", "reconciliations", "outbox",
}

// Store holds committed rows for every repository in a go-memdb database.
type Store struct {
	db *memdb.MemDB

	lockMu sync.Mutex
	locks  map[string]*rowLock

	journalSeq atomic.Int64
	rowSeq     atomic.Uint64

	accounts        *table[domain.Account]
	journal         *table[domain.JournalEntry]
	documents       *table[domain.Document]
	payments        *table[domain.Payment]
	credits         *table[domain.CreditMemo]
	purchaseOrders  *table[domain.PurchaseOrder]
	checks          *table[domain.Check]
	bankAccounts    *table[domain.BankAccount]
	bankTxns        *table[domain.BankTransaction]
	transfers       *table[domain.Transfer]
	reconciliations *table[domain.ReconciliationSession]
	outbox          *table[domain.OutboxEvent]
}

// record is the stored form of a row. Seq keeps insertion order.
type record struct {
	ID  string
	Seq string
	Row any
}

func schema() *memdb.DBSchema {
	tables := make(map[string]*memdb.TableSchema, len(tableNames))
	for _, name := range tableNames {
		tables[name] = &memdb.TableSchema{
			Name: name,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"seq": {
					Name:    "seq",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Seq"},
				},
			},
		}
	}

	return &memdb.DBSchema{Tables: tables}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		panic(fmt.Sprintf("memory: invalid schema: %v", err))
	}

	s := &Store{db: db, locks: make(map[string]*rowLock)}

	s.accounts = newTable[domain.Account](s, "accounts")
	s.journal = newTable[domain.JournalEntry](s, "journal")
	s.documents = newTable[domain.Document](s, "documents")
	s.payments = newTable[domain.Payment](s, "payments")
	s.credits = newTable[domain.CreditMemo](s, "credits")
	s.purchaseOrders = newTable[domain.PurchaseOrder](s, "purchase_orders")
	s.checks = newTable[domain.Check](s, "checks")
	s.bankAccounts = newTable[domain.BankAccount](s, "bank_accounts")
	s.bankTxns = newTable[domain.BankTransaction](s, "bank_transactions")
	s.transfers = newTable[domain.Transfer](s, "transfers")
	s.reconciliations = newTable[domain.ReconciliationSession](s, "reconciliations")
	s.outbox = newTable[domain.OutboxEvent](s, "outbox")

	return s
}

// NewRepositories wires every memory repository over one store.
func NewRepositories(store *Store) usecase.Repositories {
	return usecase.Repositories{
		Accounts:         NewAccountRepository(store),
		Journal:          NewJournalRepository(store),
		Documents:        NewDocumentRepository(store),
		Payments:         NewPaymentRepository(store),
		Credits:          NewCreditMemoRepository(store),
		PurchaseOrders:   NewPurchaseOrderRepository(store),
		Checks:           NewCheckRepository(store),
		BankAccounts:     NewBankAccountRepository(store),
		BankTransactions: NewBankTransactionRepository(store),
		Transfers:        NewTransferRepository(store),
		Reconciliations:  NewReconciliationRepository(store),
		Outbox:           NewOutboxRepository(store),
	}
}

// rowLock is a row lock shared by its holder and waiters. It is dropped from
// the store once nobody references it.
type rowLock struct {
	ch   chan struct{}
	refs int
}

func (s *Store) retainLock(key string) *rowLock {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++

	return l
}

func (s *Store) releaseLock(key string, l *rowLock) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

func (s *Store) lockCount() int {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	return len(s.locks)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{
		store:   m.store,
		held:    make(map[string]*rowLock),
		writes:  make(map[string]map[string]any),
		created: make(map[string][]string),
	}, nil
}

// Tx is a unit of work against a Store. It is not safe for concurrent use.
type Tx struct {
	store   *Store
	held    map[string]*rowLock
	writes  map[string]map[string]any
	created map[string][]string
	applies []func(*memdb.Txn) error
	done    bool
}

// Commit applies the staged writes in one memdb transaction and releases the
// row locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	defer t.release()

	txn := t.store.db.Txn(true)
	defer txn.Abort()

	for _, apply := range t.applies {
		if err := apply(txn); err != nil {
			return fmt.Errorf("memory: commit: %w", err)
		}
	}

	txn.Commit()
	return nil
}

// Rollback discards the staged writes and releases the row locks.
// Rolling back a finished transaction does nothing.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.release()
	return nil
}

func (t *Tx) release() {
	for key, l := range t.held {
		<-l.ch
		t.store.releaseLock(key, l)
		delete(t.held, key)
	}
	t.writes = nil
	t.applies = nil
}

// lock takes the row lock for entity/id, waiting until ctx is done.
func (t *Tx) lock(ctx context.Context, entity, id string) error {
	if t.done {
		return errTxDone
	}

	key := entity + ":" + id
	if _, ok := t.held[key]; ok {
		return nil
	}

	l := t.store.retainLock(key)
	select {
	case l.ch <- struct{}{}:
		t.held[key] = l
		return nil
	case <-ctx.Done():
		t.store.releaseLock(key, l)
		return domain.NewConcurrencyConflict(entity, id, "timed out waiting for row lock")
	}
}

func (t *Tx) staged(table, id string) (any, bool) {
	if t == nil || t.writes == nil {
		return nil, false
	}

	v, ok := t.writes[table][id]
	return v, ok
}

func (t *Tx) stage(table, id string, row any, isNew bool, apply func(*memdb.Txn) error) {
	rows, ok := t.writes[table]
	if !ok {
		rows = make(map[string]any)
		t.writes[table] = rows
	}

	if _, seen := rows[id]; !seen && isNew {
		t.created[table] = append(t.created[table], id)
	}

	rows[id] = row
	t.applies = append(t.applies, apply)
}

func asTx(tx usecase.Transaction) *Tx {
	if tx == nil {
		return nil
	}
	return tx.(*Tx)
}

// table is a typed view over one memdb table.
type table[T any] struct {
	store *Store
	name  string
}

func newTable[T any](s *Store, name string) *table[T] {
	return &table[T]{store: s, name: name}
}

func (t *table[T]) committed(id string) (*record, bool) {
	raw, err := t.store.db.Txn(false).First(t.name, "id", id)
	if err != nil || raw == nil {
		return nil, false
	}
	return raw.(*record), true
}

// get returns a copy of the row as seen by tx, or committed state when tx is nil.
func (t *table[T]) get(tx *Tx, id string) (*T, bool) {
	if v, ok := tx.staged(t.name, id); ok {
		row := v.(T)
		return &row, true
	}

	rec, ok := t.committed(id)
	if !ok {
		return nil, false
	}

	row := rec.Row.(T)
	return &row, true
}

func (t *table[T]) exists(tx *Tx, id string) bool {
	_, ok := t.get(tx, id)
	return ok
}

// put stages a copy of row under id.
func (t *table[T]) put(tx *Tx, id string, row T) {
	_, committed := t.committed(id)

	tx.stage(t.name, id, row, !committed, func(txn *memdb.Txn) error {
		return t.insert(txn, id, row)
	})
}

// insert writes row keeping the sequence of an existing record.
func (t *table[T]) insert(txn *memdb.Txn, id string, row T) error {
	rec := &record{ID: id, Row: row}

	existing, err := txn.First(t.name, "id", id)
	if err != nil {
		return err
	}
	if existing != nil {
		rec.Seq = existing.(*record).Seq
	} else {
		rec.Seq = fmt.Sprintf("%020d", t.store.rowSeq.Add(1))
	}

	return txn.Insert(t.name, rec)
}

// list returns copies of the rows matching keep, committed rows first in
// insertion order, then rows created by tx.
func (t *table[T]) list(tx *Tx, keep func(*T) bool) []*T {
	var out []*T

	it, err := t.store.db.Txn(false).Get(t.name, "seq")
	if err == nil {
		for raw := it.Next(); raw != nil; raw = it.Next() {
			rec := raw.(*record)
			row := rec.Row.(T)
			if v, ok := tx.staged(t.name, rec.ID); ok {
				row = v.(T)
			}
			if keep(&row) {
				out = append(out, &row)
			}
		}
	}

	if tx == nil {
		return out
	}

	for _, id := range tx.created[t.name] {
		v, _ := tx.staged(t.name, id)
		row := v.(T)
		if keep(&row) {
			out = append(out, &row)
		}
	}

	return out
}

// modify rewrites a committed row outside any Tx.
func (t *table[T]) modify(id string, fn func(*T)) (bool, error) {
	txn := t.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(t.name, "id", id)
	if err != nil || raw == nil {
		return false, err
	}

	rec := *raw.(*record)
	row := rec.Row.(T)
	fn(&row)
	rec.Row = row

	if err := txn.Insert(t.name, &rec); err != nil {
		return false, err
	}

	txn.Commit()
	return true, nil
}

// deleteWhere removes committed rows matching match outside any Tx.
func (t *table[T]) deleteWhere(match func(*T) bool) error {
	txn := t.store.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(t.name, "id")
	if err != nil {
		return err
	}

	var doomed []*record
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(*record)
		row := rec.Row.(T)
		if match(&row) {
			doomed = append(doomed, rec)
		}
	}

	for _, rec := range doomed {
		if err := txn.Delete(t.name, rec); err != nil {
			return err
		}
	}

	txn.Commit()
	return nil
}

func page[T any](rows []*T, limit, offset int) []*T {
	if offset >= len(rows) {
		return []*T{}
	}

	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	return rows
}
