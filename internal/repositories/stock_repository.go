package repositories

import (
	"context"
	"errors"
	"fmt"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNegativeStock = errors.New("stock quantity cannot go below zero")

type StockRepository struct {
	DB *pgxpool.Pool
}

func NewStockRepository(db *pgxpool.Pool) *StockRepository {
	return &StockRepository{DB: db}
}

func (r *StockRepository) List(ctx context.Context, franchiseID int64) ([]*models.StockItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT s.id, p.id, p.name, COALESCE(p.brand, ''), p.mrp, p.purchased_price, s.quantity, s.min_quantity
         FROM stocks s
         JOIN products p ON p.id = s.product_id
         WHERE s.franchise_id = $1
         ORDER BY p.name`, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.StockItem
	for rows.Next() {
		var it models.StockItem
		if err := rows.Scan(&it.StockID, &it.ProductID, &it.Name, &it.Brand, &it.MRP, &it.PurchasedPrice,
			&it.Quantity, &it.MinQuantity); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// Upsert sets the absolute quantity of a product and logs a stock_update
func (r *StockRepository) Upsert(ctx context.Context, franchiseID int64, req *models.UpsertStockRequest, minQuantity int, notes string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO stocks(franchise_id, product_id, quantity, min_quantity)
         SELECT $1, p.id, $3, $4 FROM products p WHERE p.id = $2 AND p.franchise_id = $1
         ON CONFLICT ON CONSTRAINT stocks_product_franchise_key DO UPDATE
         SET quantity = EXCLUDED.quantity, min_quantity = EXCLUDED.min_quantity, updated_at = CURRENT_TIMESTAMP`,
		franchiseID, req.ProductID, req.Quantity, minQuantity)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := insertStockTransaction(ctx, tx, &billing.StockMovement{
		FranchiseID: franchiseID,
		ProductID:   req.ProductID,
		Type:        billing.TxTypeStockUpdate,
		Quantity:    req.Quantity,
		Notes:       notes,
	}); err != nil {
		return fmt.Errorf("record stock update: %w", err)
	}

	return tx.Commit(ctx)
}

// AddQuantity increments a stock row by delta and logs a stock_add
func (r *StockRepository) AddQuantity(ctx context.Context, franchiseID, stockID int64, delta int) (*models.StockItem, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var it models.StockItem
	err = tx.QueryRow(ctx,
		`UPDATE stocks s
         SET quantity = s.quantity + $3, updated_at = CURRENT_TIMESTAMP
         FROM products p
         WHERE s.id = $1 AND s.franchise_id = $2 AND p.id = s.product_id
         RETURNING s.id, p.id, p.name, COALESCE(p.brand, ''), p.mrp, p.purchased_price, s.quantity, s.min_quantity`,
		stockID, franchiseID, delta,
	).Scan(&it.StockID, &it.ProductID, &it.Name, &it.Brand, &it.MRP, &it.PurchasedPrice, &it.Quantity, &it.MinQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if isCheckViolation(err) {
		return nil, ErrNegativeStock
	}
	if err != nil {
		return nil, fmt.Errorf("increment stock: %w", err)
	}

	if _, err := insertStockTransaction(ctx, tx, &billing.StockMovement{
		FranchiseID: franchiseID,
		ProductID:   it.ProductID,
		Type:        billing.TxTypeStockAdd,
		Quantity:    delta,
		Notes:       "Stock incremented via API",
	}); err != nil {
		return nil, fmt.Errorf("record stock add: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &it, nil
}

// Transactions returns the newest stock movements of one product
func (r *StockRepository) Transactions(ctx context.Context, franchiseID, productID int64, limit int) ([]*models.StockTransaction, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, product_id, transaction_type, quantity, reference_id,
                COALESCE(reference_type, ''), COALESCE(notes, ''), created_at
         FROM stock_transactions
         WHERE franchise_id = $1 AND product_id = $2
         ORDER BY created_at DESC, id DESC
         LIMIT $3`, franchiseID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StockTransaction
	for rows.Next() {
		var t models.StockTransaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.TransactionType, &t.Quantity, &t.ReferenceID,
			&t.ReferenceType, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
