package models

import "github.com/shopspring/decimal"

type SalesReportRow struct {
	Date           string          `json:"date"`
	TotalBills     int             `json:"total_bills"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalItemsSold int             `json:"total_items_sold"`
}

const (
	StockStatusLow = "Low Stock"
	StockStatusOK  = "In Stock"
)

type StockReportRow struct {
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
	Status      string `json:"status"`
}

// StockStatusFor flags a product as low once it is at or below its minimum
func StockStatusFor(quantity, minQuantity int) string {
	if quantity <= minQuantity {
		return StockStatusLow
	}
	return StockStatusOK
}
