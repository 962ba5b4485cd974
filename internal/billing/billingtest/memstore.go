// Package billingtest provides an in-memory billing.Store for tests.
//
// Transactions are serialised on one mutex and work on a copy of the state
// that replaces the committed state only when fn succeeds.
package billingtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"franchise-billing/internal/billing"
)

type stockKey struct {
	ProductID   int64
	FranchiseID int64
}

type customerKey struct {
	FranchiseID int64
	Phone       string
}

type Customer struct {
	ID          int64
	FranchiseID int64
	Phone       string
	billing.CustomerFields
}

type state struct {
	nextID    int64
	stocks    map[stockKey]billing.StockLevel
	customers map[customerKey]Customer
	bills     []billing.BillRecord
	items     []billing.BillLineRecord
	movements []billing.StockMovement
}

func (s *state) clone() *state {
	c := &state{
		nextID:    s.nextID,
		stocks:    make(map[stockKey]billing.StockLevel, len(s.stocks)),
		customers: make(map[customerKey]Customer, len(s.customers)),
		bills:     append([]billing.BillRecord(nil), s.bills...),
		items:     append([]billing.BillLineRecord(nil), s.items...),
		movements: append([]billing.StockMovement(nil), s.movements...),
	}
	for k, v := range s.stocks {
		c.stocks[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	return c
}

type MemoryStore struct {
	mu    sync.Mutex
	state *state

	staleCounts int
	// FailOn, when set, is consulted before every write; a non-nil
	// return aborts the transaction with that error.
	FailOn func(op string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &state{
		stocks:    make(map[stockKey]billing.StockLevel),
		customers: make(map[customerKey]Customer),
	}}
}

// AddStock seeds a stock row.
func (m *MemoryStore) AddStock(franchiseID, productID int64, name string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.stocks[stockKey{productID, franchiseID}] = billing.StockLevel{
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		MinQuantity: 10,
	}
}

// SeedBill stores a bill row as if created earlier.
func (m *MemoryStore) SeedBill(franchiseID int64, number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID++
	m.state.bills = append(m.state.bills, billing.BillRecord{ID: m.state.nextID, FranchiseID: franchiseID, BillNumber: number})
}

// StaleCounts makes the next n bill counts under-report by one, as if a
// concurrent writer committed between the count and the insert.
func (m *MemoryStore) StaleCounts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleCounts = n
}

func (m *MemoryStore) Stock(franchiseID, productID int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.stocks[stockKey{productID, franchiseID}]
	return s.Quantity, ok
}

func (m *MemoryStore) Bills() []billing.BillRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]billing.BillRecord(nil), m.state.bills...)
}

func (m *MemoryStore) Items() []billing.BillLineRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]billing.BillLineRecord(nil), m.state.items...)
}

func (m *MemoryStore) Movements() []billing.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]billing.StockMovement(nil), m.state.movements...)
}

func (m *MemoryStore) Customers(franchiseID int64) []Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Customer
	for _, c := range m.state.customers {
		if c.FranchiseID == franchiseID {
			out = append(out, c)
		}
	}
	return out
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx billing.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: m, st: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = tx.st
	return nil
}

type memTx struct {
	store *MemoryStore
	st    *state
}

func (t *memTx) fail(op string) error {
	if t.store.FailOn != nil {
		return t.store.FailOn(op)
	}
	return nil
}

func (t *memTx) id() int64 {
	t.st.nextID++
	return t.st.nextID
}

func (t *memTx) LockStock(ctx context.Context, franchiseID int64, productIDs []int64) error {
	for i := 1; i < len(productIDs); i++ {
		if productIDs[i-1] >= productIDs[i] {
			return fmt.Errorf("lock order violated: %v", productIDs)
		}
	}
	return nil
}

func (t *memTx) GetStock(ctx context.Context, productID, franchiseID int64) (billing.StockLevel, bool, error) {
	s, ok := t.st.stocks[stockKey{productID, franchiseID}]
	return s, ok, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID, franchiseID int64, amount int) (int, error) {
	if err := t.fail("decrement_stock"); err != nil {
		return 0, err
	}
	key := stockKey{productID, franchiseID}
	s, ok := t.st.stocks[key]
	if !ok || s.Quantity < amount {
		return 0, billing.ErrInsufficientStock
	}
	s.Quantity -= amount
	t.st.stocks[key] = s
	return s.Quantity, nil
}

func (t *memTx) UpsertCustomer(ctx context.Context, franchiseID int64, phone string, fields billing.CustomerFields) (int64, error) {
	if err := t.fail("upsert_customer"); err != nil {
		return 0, err
	}
	key := customerKey{franchiseID, phone}
	c, ok := t.st.customers[key]
	if !ok {
		c = Customer{ID: t.id(), FranchiseID: franchiseID, Phone: phone}
	}
	c.Name = fields.Name
	if fields.Email != "" {
		c.Email = fields.Email
	}
	if fields.Address != "" {
		c.Address = fields.Address
	}
	t.st.customers[key] = c
	return c.ID, nil
}

func (t *memTx) CountBillsWithPrefix(ctx context.Context, franchiseID int64, prefix string) (int, error) {
	n := 0
	for _, b := range t.st.bills {
		if b.FranchiseID == franchiseID && strings.HasPrefix(b.BillNumber, prefix) {
			n++
		}
	}
	if t.store.staleCounts > 0 && n > 0 {
		t.store.staleCounts--
		n--
	}
	return n, nil
}

func (t *memTx) InsertBill(ctx context.Context, b *billing.BillRecord) (int64, error) {
	if err := t.fail("insert_bill"); err != nil {
		return 0, err
	}
	for _, existing := range t.st.bills {
		if existing.BillNumber == b.BillNumber {
			return 0, &billing.NumberingConflictError{BillNumber: b.BillNumber}
		}
	}
	rec := *b
	rec.ID = t.id()
	t.st.bills = append(t.st.bills, rec)
	return rec.ID, nil
}

func (t *memTx) InsertBillItem(ctx context.Context, item *billing.BillLineRecord) (int64, error) {
	if err := t.fail("insert_bill_item"); err != nil {
		return 0, err
	}
	rec := *item
	rec.ID = t.id()
	t.st.items = append(t.st.items, rec)
	return rec.ID, nil
}

func (t *memTx) InsertStockTransaction(ctx context.Context, mv *billing.StockMovement) (int64, error) {
	if err := t.fail("insert_stock_transaction"); err != nil {
		return 0, err
	}
	if mv.Type == "" {
		return 0, errors.New("transaction_type is required")
	}
	rec := *mv
	rec.ID = t.id()
	t.st.movements = append(t.st.movements, rec)
	return rec.ID, nil
}
