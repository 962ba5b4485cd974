package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is one flattened product+stock row
type StockItem struct {
	StockID        int64               `json:"stock_id"`
	ProductID      int64               `json:"product_id"`
	Name           string              `json:"name"`
	Brand          string              `json:"brand,omitempty"`
	MRP            decimal.Decimal     `json:"mrp"`
	PurchasedPrice decimal.NullDecimal `json:"purchased_price"`
	Quantity       int                 `json:"quantity"`
	MinQuantity    int                 `json:"min_quantity"`
}

type UpsertStockRequest struct {
	ProductID   int64  `json:"product_id" validate:"gt=0"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	MinQuantity *int   `json:"min_quantity" validate:"omitempty,gte=0"`
	Notes       string `json:"notes"`
}

type AddStockRequest struct {
	AddQuantity int `json:"add_quantity" validate:"required"`
}

type StockTransaction struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"product_id"`
	TransactionType string    `json:"transaction_type"`
	Quantity        int       `json:"quantity"`
	ReferenceID     *int64    `json:"reference_id,omitempty"`
	ReferenceType   string    `json:"reference_type,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
