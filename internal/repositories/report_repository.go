package repositories

import (
	"context"
	"time"

	"franchise-billing/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepository struct {
	DB *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{DB: db}
}

// SalesByDay groups completed bills by IST calendar day, newest first.
// Zero from/to leave that side of the range open.
func (r *ReportRepository) SalesByDay(ctx context.Context, franchiseID int64, from, to time.Time) ([]*models.SalesReportRow, error) {
	var fromArg, toArg *time.Time
	if !from.IsZero() {
		fromArg = &from
	}
	if !to.IsZero() {
		toArg = &to
	}

	rows, err := r.DB.Query(ctx,
		`SELECT TO_CHAR(bill_date AT TIME ZONE 'Asia/Kolkata', 'YYYY-MM-DD') AS day,
                COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(total_items), 0)
         FROM bills
         WHERE franchise_id = $1 AND status = 'completed'
           AND ($2::timestamptz IS NULL OR bill_date >= $2)
           AND ($3::timestamptz IS NULL OR bill_date <= $3)
         GROUP BY day
         ORDER BY day DESC`, franchiseID, fromArg, toArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SalesReportRow
	for rows.Next() {
		var row models.SalesReportRow
		if err := rows.Scan(&row.Date, &row.TotalBills, &row.TotalSales, &row.TotalItemsSold); err != nil {
			return nil, err
		}
		out = append(out, &row)
	}
	return out, rows.Err()
}

// StockLevels lists stock rows with their low-stock status, lowest first
func (r *ReportRepository) StockLevels(ctx context.Context, franchiseID int64) ([]*models.StockReportRow, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT p.name, COALESCE(p.brand, ''), s.quantity, s.min_quantity
         FROM stocks s
         JOIN products p ON p.id = s.product_id
         WHERE s.franchise_id = $1
         ORDER BY s.quantity, p.name`, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StockReportRow
	for rows.Next() {
		var row models.StockReportRow
		if err := rows.Scan(&row.Name, &row.Brand, &row.Quantity, &row.MinQuantity); err != nil {
			return nil, err
		}
		row.Status = models.StockStatusFor(row.Quantity, row.MinQuantity)
		out = append(out, &row)
	}
	return out, rows.Err()
}
