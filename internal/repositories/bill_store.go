package repositories

import (
	"context"
	"errors"
	"fmt"

	"franchise-billing/internal/billing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	billNumberConstraint = "bills_bill_number_key"
)

// BillStore runs the bill engine's transactions on Postgres.
type BillStore struct {
	DB *pgxpool.Pool
}

func NewBillStore(db *pgxpool.Pool) *BillStore {
	return &BillStore{DB: db}
}

// WithinTx runs fn in a READ COMMITTED transaction. Stock rows are
// protected by explicit row locks, bill numbers by the unique constraint.
func (s *BillStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx billing.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapTxError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgBillTx{tx: tx}); err != nil {
		return mapTxError("bill transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError("commit bill", err)
	}
	return nil
}

// mapTxError marks Postgres contention errors as retryable and leaves
// billing errors untouched.
func mapTxError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return &billing.StorageError{Op: op, Err: err, Retryable: true}
		case pgUniqueViolation:
			if pgErr.ConstraintName == billNumberConstraint {
				return &billing.NumberingConflictError{}
			}
		}
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation
}

type pgBillTx struct {
	tx pgx.Tx
}

func (t *pgBillTx) LockStock(ctx context.Context, franchiseID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	rows, err := t.tx.Query(ctx,
		`SELECT id FROM stocks
         WHERE franchise_id = $1 AND product_id = ANY($2)
         ORDER BY product_id
         FOR UPDATE`,
		franchiseID, productIDs)
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

func (t *pgBillTx) GetStock(ctx context.Context, productID, franchiseID int64) (billing.StockLevel, bool, error) {
	var level billing.StockLevel
	err := t.tx.QueryRow(ctx,
		`SELECT s.product_id, p.name, s.quantity, s.min_quantity
         FROM stocks s
         JOIN products p ON p.id = s.product_id
         WHERE s.product_id = $1 AND s.franchise_id = $2`,
		productID, franchiseID,
	).Scan(&level.ProductID, &level.ProductName, &level.Quantity, &level.MinQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.StockLevel{}, false, nil
	}
	if err != nil {
		return billing.StockLevel{}, false, err
	}
	return level, true, nil
}

func (t *pgBillTx) DecrementStock(ctx context.Context, productID, franchiseID int64, amount int) (int, error) {
	var qty int
	err := t.tx.QueryRow(ctx,
		`UPDATE stocks
         SET quantity = quantity - $3, updated_at = CURRENT_TIMESTAMP
         WHERE product_id = $1 AND franchise_id = $2 AND quantity >= $3
         RETURNING quantity`,
		productID, franchiseID, amount,
	).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, billing.ErrInsufficientStock
	}
	return qty, err
}

func (t *pgBillTx) UpsertCustomer(ctx context.Context, franchiseID int64, phone string, fields billing.CustomerFields) (int64, error) {
	return upsertCustomer(ctx, t.tx, franchiseID, phone, fields)
}

func (t *pgBillTx) CountBillsWithPrefix(ctx context.Context, franchiseID int64, prefix string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM bills WHERE franchise_id = $1 AND bill_number LIKE $2`,
		franchiseID, prefix+"%",
	).Scan(&n)
	return n, err
}

func (t *pgBillTx) InsertBill(ctx context.Context, b *billing.BillRecord) (int64, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO bills(franchise_id, bill_number, customer_id, customer_phone, customer_name,
                           subtotal, service_charges, discount, total_amount, total_items,
                           bill_date, status, notes)
         VALUES($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
         RETURNING id`,
		b.FranchiseID, b.BillNumber, b.CustomerID, b.CustomerPhone, b.CustomerName,
		b.Subtotal, b.ServiceCharges, b.Discount, b.TotalAmount, b.TotalItems,
		b.BillDate, b.Status, b.Notes,
	).Scan(&b.ID)
	if isUniqueViolation(err, billNumberConstraint) {
		return 0, &billing.NumberingConflictError{BillNumber: b.BillNumber}
	}
	if err != nil {
		return 0, fmt.Errorf("insert bill: %w", err)
	}
	return b.ID, nil
}

func (t *pgBillTx) InsertBillItem(ctx context.Context, item *billing.BillLineRecord) (int64, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO bill_items(bill_id, product_id, product_name, quantity, mrp, discount, service_charges, total)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id`,
		item.BillID, item.ProductID, item.ProductName, item.Quantity,
		item.MRP, item.Discount, item.ServiceCharges, item.Total,
	).Scan(&item.ID)
	return item.ID, err
}

func (t *pgBillTx) InsertStockTransaction(ctx context.Context, m *billing.StockMovement) (int64, error) {
	return insertStockTransaction(ctx, t.tx, m)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertStockTransaction(ctx context.Context, q querier, m *billing.StockMovement) (int64, error) {
	err := q.QueryRow(ctx,
		`INSERT INTO stock_transactions(franchise_id, product_id, transaction_type, quantity,
                                        reference_id, reference_type, notes)
         VALUES($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
         RETURNING id`,
		m.FranchiseID, m.ProductID, m.Type, m.Quantity, m.ReferenceID, m.ReferenceType, m.Notes,
	).Scan(&m.ID)
	return m.ID, err
}
