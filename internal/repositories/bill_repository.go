package repositories

import (
	"context"
	"errors"
	"fmt"

	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BillRepository is the read side of bills; writes go through BillStore
type BillRepository struct {
	DB *pgxpool.Pool
}

func NewBillRepository(db *pgxpool.Pool) *BillRepository {
	return &BillRepository{DB: db}
}

// Customer name/phone fall back to the linked customer row
const billColumns = `b.id, b.franchise_id, b.bill_number, b.customer_id,
       COALESCE(b.customer_phone, c.phone, ''), COALESCE(b.customer_name, c.name, ''),
       b.subtotal, b.service_charges, b.discount, b.total_amount, b.total_items,
       b.bill_date, b.status, COALESCE(b.notes, ''), b.created_at`

func scanBill(row pgx.Row) (*models.Bill, error) {
	var b models.Bill
	err := row.Scan(&b.ID, &b.FranchiseID, &b.BillNumber, &b.CustomerID, &b.CustomerPhone, &b.CustomerName,
		&b.Subtotal, &b.ServiceCharges, &b.Discount, &b.TotalAmount, &b.TotalItems,
		&b.BillDate, &b.Status, &b.Notes, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns bills newest first; limit <= 0 means no limit
func (r *BillRepository) List(ctx context.Context, franchiseID int64, limit int) ([]*models.Bill, error) {
	query := `SELECT ` + billColumns + `
         FROM bills b
         LEFT JOIN customers c ON c.id = b.customer_id
         WHERE b.franchise_id = $1
         ORDER BY b.bill_date DESC, b.id DESC`
	args := []any{franchiseID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// Get returns a bill with its items, scoped to the franchise
func (r *BillRepository) Get(ctx context.Context, franchiseID, id int64) (*models.BillWithItems, error) {
	bill, err := scanBill(r.DB.QueryRow(ctx,
		`SELECT `+billColumns+`
         FROM bills b
         LEFT JOIN customers c ON c.id = b.customer_id
         WHERE b.id = $1 AND b.franchise_id = $2`, id, franchiseID))
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, bill_id, product_id, product_name, quantity, mrp, discount, service_charges, total
         FROM bill_items WHERE bill_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("load bill items: %w", err)
	}
	defer rows.Close()

	result := &models.BillWithItems{Bill: *bill, Items: []*models.BillItem{}}
	for rows.Next() {
		var it models.BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.MRP, &it.Discount, &it.ServiceCharges, &it.Total); err != nil {
			return nil, err
		}
		result.Items = append(result.Items, &it)
	}
	return result, rows.Err()
}
