package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/billing/billingtest"
	"franchise-billing/internal/timeutil"

	"github.com/shopspring/decimal"
)

const (
	franchiseA = int64(1)
	franchiseB = int64(2)
)

var july15 = time.Date(2025, 7, 15, 11, 30, 0, 0, timeutil.IST)

func newEngine(store billing.Store, now time.Time) *billing.Engine {
	return billing.NewEngine(store, billing.EngineConfig{
		MaxAttempts: 5,
		TxTimeout:   time.Second,
		Now:         func() time.Time { return now },
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func tenantA() billing.Tenant {
	return billing.Tenant{FranchiseID: franchiseA, Code: "DIP"}
}

func line(productID int64, name string, qty int, mrp string) billing.LineInput {
	return billing.LineInput{ProductID: productID, Name: name, Quantity: qty, MRP: dec(mrp)}
}

func TestCreate_NumberFollowsExistingCount(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Masala Chips", 5)
	for i := 1; i <= 95; i++ {
		store.SeedBill(franchiseA, fmt.Sprintf("DIP/2025-26/07-%04d", i))
	}
	// other months and other tenants do not count
	store.SeedBill(franchiseA, "DIP/2025-26/06-0001")
	store.SeedBill(franchiseB, "GAR/2025-26/07-0001")

	bill, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(10, "Masala Chips", 1, "20")},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if bill.BillNumber != "DIP/2025-26/07-0096" {
		t.Errorf("BillNumber = %q, want DIP/2025-26/07-0096", bill.BillNumber)
	}
}

func TestCreate_FinancialYearBoundary(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 2, 1, 10, 0, 0, 0, timeutil.IST), "DIP/2024-25/02-0001"},
		{time.Date(2025, 4, 1, 10, 0, 0, 0, timeutil.IST), "DIP/2025-26/04-0001"},
	}
	for _, tt := range tests {
		store := billingtest.NewMemoryStore()
		store.AddStock(franchiseA, 10, "Masala Chips", 5)
		bill, err := newEngine(store, tt.now).Create(context.Background(), billing.CreateBillInput{
			Tenant: tenantA(),
			Items:  []billing.LineInput{line(10, "Masala Chips", 1, "20")},
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if bill.BillNumber != tt.want {
			t.Errorf("BillNumber = %q, want %q", bill.BillNumber, tt.want)
		}
	}
}

func TestCreate_TotalComputation(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)
	store.AddStock(franchiseA, 11, "Soda", 10)

	bill, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items: []billing.LineInput{
			{ProductID: 10, Name: "Chips", Quantity: 2, MRP: dec("45"), Total: decPtr("100")},
			{ProductID: 11, Name: "Soda", Quantity: 1, MRP: dec("50"), Total: decPtr("50")},
		},
		ServiceCharges: dec("20"),
		Discount:       dec("10"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !bill.TotalAmount.Equal(dec("160")) {
		t.Errorf("TotalAmount = %s, want 160", bill.TotalAmount)
	}

	stored := store.Bills()[0]
	if !stored.TotalAmount.Equal(dec("160")) || !stored.Subtotal.Equal(dec("150")) {
		t.Errorf("stored totals = %s / %s", stored.TotalAmount, stored.Subtotal)
	}
	if stored.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", stored.TotalItems)
	}
	if stored.Status != billing.StatusCompleted {
		t.Errorf("Status = %q", stored.Status)
	}

	items := store.Items()
	if !items[0].Total.Equal(dec("100")) || !items[1].Total.Equal(dec("50")) {
		t.Errorf("line totals = %s, %s", items[0].Total, items[1].Total)
	}
}

func TestCreate_LineTotalDefaultsToMRPTimesQuantity(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)

	bill, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(10, "Chips", 3, "12.50")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bill.TotalAmount.Equal(dec("37.50")) {
		t.Errorf("TotalAmount = %s, want 37.50", bill.TotalAmount)
	}
}

func TestCreate_WritesItemsStockAndSaleMovements(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)
	store.AddStock(franchiseA, 11, "Soda", 4)

	bill, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items: []billing.LineInput{
			line(11, "Soda", 4, "40"),
			line(10, "", 3, "20"),
		},
		Notes: "counter 2",
	})
	if err != nil {
		t.Fatal(err)
	}

	if q, _ := store.Stock(franchiseA, 10); q != 7 {
		t.Errorf("chips stock = %d, want 7", q)
	}
	if q, _ := store.Stock(franchiseA, 11); q != 0 {
		t.Errorf("soda stock = %d, want 0", q)
	}

	items := store.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ProductID != 11 || items[1].ProductID != 10 {
		t.Errorf("items not in request order: %+v", items)
	}
	if items[1].ProductName != "Chips" {
		t.Errorf("blank line name should fall back to catalog name, got %q", items[1].ProductName)
	}

	mvs := store.Movements()
	if len(mvs) != 2 {
		t.Fatalf("movements = %d, want 2", len(mvs))
	}
	for _, mv := range mvs {
		if mv.Type != billing.TxTypeSale || mv.Quantity >= 0 {
			t.Errorf("movement %+v is not a negative sale", mv)
		}
		if mv.ReferenceID == nil || *mv.ReferenceID != bill.ID || mv.ReferenceType != billing.ReferenceTypeBill {
			t.Errorf("movement %+v does not reference bill %d", mv, bill.ID)
		}
		if mv.Notes != "Sale via Bill #"+bill.BillNumber {
			t.Errorf("notes = %q", mv.Notes)
		}
	}
}

func TestCreate_AtomicOnStockShortfall(t *testing.T) {
	for failAt := 0; failAt < 3; failAt++ {
		t.Run(fmt.Sprintf("item_%d", failAt+1), func(t *testing.T) {
			store := billingtest.NewMemoryStore()
			items := []billing.LineInput{
				line(10, "Chips", 2, "20"),
				line(11, "Soda", 2, "40"),
				line(12, "Cookies", 2, "30"),
			}
			for i, it := range items {
				qty := 5
				if i == failAt {
					qty = 1
				}
				store.AddStock(franchiseA, it.ProductID, it.Name, qty)
			}

			_, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
				Tenant:        tenantA(),
				CustomerPhone: "9876543210",
				CustomerName:  "Asha",
				Items:         items,
			})

			var stockErr *billing.StockError
			if !errors.As(err, &stockErr) {
				t.Fatalf("error = %v, want StockError", err)
			}
			if stockErr.Available != 1 || stockErr.ProductName != items[failAt].Name {
				t.Errorf("StockError = %+v", stockErr)
			}
			if !strings.Contains(err.Error(), items[failAt].Name) || !strings.Contains(err.Error(), "Available: 1") {
				t.Errorf("message %q should name product and available quantity", err.Error())
			}

			assertNothingWritten(t, store)
			for i, it := range items {
				want := 5
				if i == failAt {
					want = 1
				}
				if q, _ := store.Stock(franchiseA, it.ProductID); q != want {
					t.Errorf("stock of %d = %d, want %d", it.ProductID, q, want)
				}
			}
		})
	}
}

func TestCreate_AtomicOnStorageFailure(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 5)
	store.AddStock(franchiseA, 11, "Soda", 5)

	calls := 0
	store.FailOn = func(op string) error {
		if op == "insert_stock_transaction" {
			calls++
			if calls == 2 {
				return errors.New("connection reset")
			}
		}
		return nil
	}

	_, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(10, "Chips", 1, "20"), line(11, "Soda", 1, "40")},
	})

	var storageErr *billing.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want StorageError", err)
	}
	if billing.IsRetryable(err) {
		t.Error("plain storage failure must not be retried")
	}
	assertNothingWritten(t, store)
	if q, _ := store.Stock(franchiseA, 10); q != 5 {
		t.Errorf("chips stock = %d, want 5", q)
	}
}

func TestCreate_TenantIsolation(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseB, 20, "Garg Special", 8)

	_, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(20, "Garg Special", 1, "99")},
	})

	var stockErr *billing.StockError
	if !errors.As(err, &stockErr) || !stockErr.NotFound {
		t.Fatalf("error = %v, want not-found StockError", err)
	}
	if q, _ := store.Stock(franchiseB, 20); q != 8 {
		t.Errorf("franchise B stock = %d, want 8", q)
	}
	assertNothingWritten(t, store)
}

func TestCreate_CustomerUpsertLastNameWins(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)
	store.AddStock(franchiseB, 10, "Chips", 10)
	engine := newEngine(store, july15)

	requests := []billing.CreateBillInput{
		{Tenant: tenantA(), CustomerPhone: "9876543210", CustomerName: "Asha", Items: []billing.LineInput{line(10, "Chips", 1, "20")}},
		{Tenant: tenantA(), CustomerPhone: "+91 98765 43210", CustomerName: "Asha Rani", Items: []billing.LineInput{line(10, "Chips", 1, "20")}},
		{Tenant: billing.Tenant{FranchiseID: franchiseB, Code: "GAR"}, CustomerPhone: "9876543210", CustomerName: "Other", Items: []billing.LineInput{line(10, "Chips", 1, "20")}},
	}
	var ids []*int64
	for _, req := range requests {
		bill, err := engine.Create(context.Background(), req)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, bill.CustomerID)
	}

	customers := store.Customers(franchiseA)
	if len(customers) != 1 {
		t.Fatalf("franchise A customers = %d, want 1", len(customers))
	}
	if customers[0].Name != "Asha Rani" {
		t.Errorf("customer name = %q, want Asha Rani", customers[0].Name)
	}
	if customers[0].Phone != "+919876543210" {
		t.Errorf("phone = %q, want E.164", customers[0].Phone)
	}
	if *ids[0] != *ids[1] {
		t.Errorf("same phone produced two customer ids: %d, %d", *ids[0], *ids[1])
	}
	if len(store.Customers(franchiseB)) != 1 || *ids[2] == *ids[0] {
		t.Error("franchise B must get its own customer row")
	}
}

func TestCreate_NoCustomerWithoutName(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)

	bill, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant:        tenantA(),
		CustomerPhone: "9876543210",
		Items:         []billing.LineInput{line(10, "Chips", 1, "20")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if bill.CustomerID != nil || len(store.Customers(franchiseA)) != 0 {
		t.Error("customer must only be upserted when phone and name are both given")
	}
	if store.Bills()[0].CustomerPhone != "+919876543210" {
		t.Errorf("bill phone = %q", store.Bills()[0].CustomerPhone)
	}
}

func TestCreate_Validation(t *testing.T) {
	ok := []billing.LineInput{line(10, "Chips", 1, "20")}
	tests := []struct {
		name string
		in   billing.CreateBillInput
	}{
		{"no items", billing.CreateBillInput{Tenant: tenantA()}},
		{"zero quantity", billing.CreateBillInput{Tenant: tenantA(), Items: []billing.LineInput{line(10, "Chips", 0, "20")}}},
		{"missing product", billing.CreateBillInput{Tenant: tenantA(), Items: []billing.LineInput{line(0, "Chips", 1, "20")}}},
		{"negative mrp", billing.CreateBillInput{Tenant: tenantA(), Items: []billing.LineInput{line(10, "Chips", 1, "-1")}}},
		{"negative total", billing.CreateBillInput{Tenant: tenantA(), Items: []billing.LineInput{{ProductID: 10, Quantity: 1, MRP: dec("1"), Total: decPtr("-5")}}}},
		{"negative discount", billing.CreateBillInput{Tenant: tenantA(), Items: ok, Discount: dec("-1")}},
		{"negative service charges", billing.CreateBillInput{Tenant: tenantA(), Items: ok, ServiceCharges: dec("-1")}},
		{"discount exceeds amount", billing.CreateBillInput{Tenant: tenantA(), Items: ok, Discount: dec("50")}},
		{"missing tenant", billing.CreateBillInput{Tenant: billing.Tenant{Code: "DIP"}, Items: ok}},
		{"bad code", billing.CreateBillInput{Tenant: billing.Tenant{FranchiseID: franchiseA, Code: "dip1"}, Items: ok}},
		{"bad phone", billing.CreateBillInput{Tenant: tenantA(), CustomerPhone: "12", CustomerName: "X", Items: ok}},
		{"bad email", billing.CreateBillInput{Tenant: tenantA(), CustomerEmail: "not-an-email", Items: ok}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := billingtest.NewMemoryStore()
			store.AddStock(franchiseA, 10, "Chips", 10)

			_, err := newEngine(store, july15).Create(context.Background(), tt.in)
			var ve *billing.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			assertNothingWritten(t, store)
		})
	}
}

func TestCreate_RetriesWhenBillNumberTaken(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)
	store.SeedBill(franchiseA, "DIP/2025-26/07-0001")
	store.StaleCounts(2)

	bill, err := newEngine(store, july15).Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(10, "Chips", 1, "20")},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if bill.BillNumber != "DIP/2025-26/07-0002" {
		t.Errorf("BillNumber = %q, want DIP/2025-26/07-0002", bill.BillNumber)
	}
	if len(store.Items()) != 1 || len(store.Movements()) != 1 {
		t.Error("failed attempts must not leave rows behind")
	}
	if q, _ := store.Stock(franchiseA, 10); q != 9 {
		t.Errorf("stock = %d, want 9", q)
	}
}

func TestCreate_RetryLimitSurfacesConflict(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)
	store.SeedBill(franchiseA, "DIP/2025-26/07-0001")
	store.StaleCounts(100)

	engine := billing.NewEngine(store, billing.EngineConfig{
		MaxAttempts: 3,
		Now:         func() time.Time { return july15 },
	})
	_, err := engine.Create(context.Background(), billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(10, "Chips", 1, "20")},
	})

	var nc *billing.NumberingConflictError
	if !errors.As(err, &nc) {
		t.Fatalf("error = %v, want NumberingConflictError", err)
	}
	if nc.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", nc.Attempts)
	}
	if len(store.Bills()) != 1 {
		t.Errorf("bills = %d, want only the seeded one", len(store.Bills()))
	}
	if q, _ := store.Stock(franchiseA, 10); q != 10 {
		t.Errorf("stock = %d, want 10", q)
	}
}

func TestCreate_CancelledContext(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(store, july15).Create(ctx, billing.CreateBillInput{
		Tenant: tenantA(),
		Items:  []billing.LineInput{line(10, "Chips", 1, "20")},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	assertNothingWritten(t, store)
}

func TestCreate_ConcurrentBillsNeverOversell(t *testing.T) {
	store := billingtest.NewMemoryStore()
	store.AddStock(franchiseA, 10, "Chips", 15)
	engine := newEngine(store, july15)

	const workers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		numbers  []string
		shortage int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bill, err := engine.Create(context.Background(), billing.CreateBillInput{
				Tenant: tenantA(),
				Items:  []billing.LineInput{line(10, "Chips", 1, "20")},
			})
			mu.Lock()
			defer mu.Unlock()
			var stockErr *billing.StockError
			switch {
			case err == nil:
				numbers = append(numbers, bill.BillNumber)
			case errors.As(err, &stockErr):
				shortage++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if q, _ := store.Stock(franchiseA, 10); q != 0 {
		t.Errorf("final stock = %d, want 0", q)
	}
	if len(numbers) != 15 || shortage != 5 {
		t.Errorf("successes = %d, shortages = %d; want 15 and 5", len(numbers), shortage)
	}

	sort.Strings(numbers)
	for i, n := range numbers {
		want := fmt.Sprintf("DIP/2025-26/07-%04d", i+1)
		if n != want {
			t.Errorf("numbers[%d] = %q, want %q (distinct, no gaps)", i, n, want)
		}
	}
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestCreate_NumberingLock(t *testing.T) {
	for _, lockErr := range []error{nil, errors.New("redis down")} {
		store := billingtest.NewMemoryStore()
		store.AddStock(franchiseA, 10, "Chips", 10)
		locker := &recordingLocker{err: lockErr}

		engine := billing.NewEngine(store, billing.EngineConfig{
			Locker: locker,
			Now:    func() time.Time { return july15 },
		})
		if _, err := engine.Create(context.Background(), billing.CreateBillInput{
			Tenant: tenantA(),
			Items:  []billing.LineInput{line(10, "Chips", 1, "20")},
		}); err != nil {
			t.Fatalf("Create() with lock error %v = %v", lockErr, err)
		}

		if len(locker.keys) != 1 || locker.keys[0] != "billing:numbering:1:DIP/2025-26/07-" {
			t.Errorf("lock keys = %v", locker.keys)
		}
		wantReleased := 1
		if lockErr != nil {
			wantReleased = 0
		}
		if locker.released != wantReleased {
			t.Errorf("released = %d, want %d", locker.released, wantReleased)
		}
	}
}

func assertNothingWritten(t *testing.T, store *billingtest.MemoryStore) {
	t.Helper()
	for _, b := range store.Bills() {
		if b.BillNumber != "" && b.Status != "" {
			t.Errorf("bill %s persisted", b.BillNumber)
		}
	}
	if n := len(store.Items()); n != 0 {
		t.Errorf("%d bill items persisted", n)
	}
	if n := len(store.Movements()); n != 0 {
		t.Errorf("%d stock transactions persisted", n)
	}
	if n := len(store.Customers(franchiseA)); n != 0 {
		t.Errorf("%d customers persisted", n)
	}
}
