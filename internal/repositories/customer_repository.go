package repositories

import (
	"context"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

// upsertCustomer keeps existing email/address when the new value is blank.
func upsertCustomer(ctx context.Context, q querier, franchiseID int64, phone string, fields billing.CustomerFields) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO customers(franchise_id, phone, name, email, address)
         VALUES($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
         ON CONFLICT ON CONSTRAINT customers_phone_franchise_key DO UPDATE
         SET name = EXCLUDED.name,
             email = COALESCE(EXCLUDED.email, customers.email),
             address = COALESCE(EXCLUDED.address, customers.address),
             updated_at = CURRENT_TIMESTAMP
         RETURNING id`,
		franchiseID, phone, fields.Name, fields.Email, fields.Address,
	).Scan(&id)
	return id, err
}

func (r *CustomerRepository) Upsert(ctx context.Context, franchiseID int64, phone string, fields billing.CustomerFields) (int64, error) {
	return upsertCustomer(ctx, r.DB, franchiseID, phone, fields)
}

func (r *CustomerRepository) List(ctx context.Context, franchiseID int64) ([]*models.Customer, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, franchise_id, phone, name, COALESCE(email, ''), COALESCE(address, ''), created_at, updated_at
         FROM customers WHERE franchise_id = $1 ORDER BY name`, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.FranchiseID, &c.Phone, &c.Name, &c.Email, &c.Address,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}
