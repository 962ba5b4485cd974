package repositories

import (
	"context"
	"fmt"

	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	DB *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{DB: db}
}

const productColumns = `p.id, p.franchise_id, p.name, COALESCE(p.brand, ''), p.mrp, p.purchased_price,
       COALESCE(p.description, ''), COALESCE(p.category, ''), COALESCE(s.quantity, 0), p.created_at`

func (r *ProductRepository) scanAll(ctx context.Context, sql string, args ...any) ([]*models.Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.FranchiseID, &p.Name, &p.Brand, &p.MRP, &p.PurchasedPrice,
			&p.Description, &p.Category, &p.Quantity, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// Create inserts the product together with an empty stock row
func (r *ProductRepository) Create(ctx context.Context, p *models.Product, minQuantity int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO products(franchise_id, name, brand, mrp, purchased_price, description, category)
         VALUES($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''))
         RETURNING id, created_at`,
		p.FranchiseID, p.Name, p.Brand, p.MRP, p.PurchasedPrice, p.Description, p.Category,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO stocks(franchise_id, product_id, quantity, min_quantity) VALUES($1, $2, 0, $3)`,
		p.FranchiseID, p.ID, minQuantity); err != nil {
		return fmt.Errorf("insert stock row: %w", err)
	}

	return tx.Commit(ctx)
}

// ListWithStock returns the franchise's products with their stock quantity
func (r *ProductRepository) ListWithStock(ctx context.Context, franchiseID int64) ([]*models.Product, error) {
	return r.scanAll(ctx,
		`SELECT `+productColumns+`
         FROM products p
         LEFT JOIN stocks s ON s.product_id = p.id AND s.franchise_id = p.franchise_id
         WHERE p.franchise_id = $1
         ORDER BY p.name`, franchiseID)
}

// Search matches name or brand case-insensitively
func (r *ProductRepository) Search(ctx context.Context, franchiseID int64, q string, limit int) ([]*models.Product, error) {
	return r.scanAll(ctx,
		`SELECT `+productColumns+`
         FROM products p
         LEFT JOIN stocks s ON s.product_id = p.id AND s.franchise_id = p.franchise_id
         WHERE p.franchise_id = $1 AND (p.name ILIKE $2 OR p.brand ILIKE $2)
         ORDER BY p.name
         LIMIT $3`, franchiseID, "%"+escapeLike(q)+"%", limit)
}

// Delete removes a product; its stock row and stock transactions go with it
func (r *ProductRepository) Delete(ctx context.Context, franchiseID, productID int64) error {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND franchise_id = $2`, productID, franchiseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
