package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TxTypeSale        = "sale"
	TxTypeStockUpdate = "stock_update"
	TxTypeStockAdd    = "stock_add"

	StatusCompleted = "completed"

	ReferenceTypeBill = "Bill"
)

// StockLevel is the stock row of one product for one franchise.
type StockLevel struct {
	ProductID   int64
	ProductName string
	Quantity    int
	MinQuantity int
}

type CustomerFields struct {
	Name    string
	Email   string
	Address string
}

type BillRecord struct {
	ID             int64
	FranchiseID    int64
	BillNumber     string
	CustomerID     *int64
	CustomerPhone  string
	CustomerName   string
	Subtotal       decimal.Decimal
	ServiceCharges decimal.Decimal
	Discount       decimal.Decimal
	TotalAmount    decimal.Decimal
	TotalItems     int
	BillDate       time.Time
	Status         string
	Notes          string
}

type BillLineRecord struct {
	ID             int64
	BillID         int64
	ProductID      int64
	ProductName    string
	Quantity       int
	MRP            decimal.Decimal
	Discount       decimal.Decimal
	ServiceCharges decimal.Decimal
	Total          decimal.Decimal
}

type StockMovement struct {
	ID            int64
	FranchiseID   int64
	ProductID     int64
	Type          string
	Quantity      int
	ReferenceID   *int64
	ReferenceType string
	Notes         string
}

// StockCatalog is the stock view the engine needs inside its transaction.
type StockCatalog interface {
	// LockStock takes row locks on the given products' stock rows. ids are
	// sorted ascending so concurrent bills lock in the same order.
	LockStock(ctx context.Context, franchiseID int64, productIDs []int64) error
	// GetStock returns ok=false when the franchise has no stock row for the product.
	GetStock(ctx context.Context, productID, franchiseID int64) (StockLevel, bool, error)
	// DecrementStock returns the new quantity, or ErrInsufficientStock.
	DecrementStock(ctx context.Context, productID, franchiseID int64, amount int) (int, error)
}

// CustomerDirectory upserts customers keyed by (phone, franchise).
type CustomerDirectory interface {
	UpsertCustomer(ctx context.Context, franchiseID int64, phone string, fields CustomerFields) (int64, error)
}

// BillWriter persists the bill rows. InsertBill reports a taken bill number
// as *NumberingConflictError.
type BillWriter interface {
	CountBillsWithPrefix(ctx context.Context, franchiseID int64, prefix string) (int, error)
	InsertBill(ctx context.Context, b *BillRecord) (int64, error)
	InsertBillItem(ctx context.Context, item *BillLineRecord) (int64, error)
	InsertStockTransaction(ctx context.Context, m *StockMovement) (int64, error)
}

type Tx interface {
	StockCatalog
	CustomerDirectory
	BillWriter
}

// Store runs fn inside one atomic transaction. A non-nil error from fn, a
// cancelled ctx or a failed commit discards every write made through tx.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// NumberingLocker serialises bill numbering for one key across instances.
// It only narrows the conflict window; the unique bill_number constraint
// remains the guarantee.
type NumberingLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
