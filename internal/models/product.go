package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int64               `json:"id"`
	FranchiseID    int64               `json:"franchise_id"`
	Name           string              `json:"name"`
	Brand          string              `json:"brand,omitempty"`
	MRP            decimal.Decimal     `json:"mrp"`
	PurchasedPrice decimal.NullDecimal `json:"purchased_price"`
	Description    string              `json:"description,omitempty"`
	Category       string              `json:"category,omitempty"`
	Quantity       int                 `json:"quantity"` // joined from stocks
	CreatedAt      time.Time           `json:"created_at"`
}

type CreateProductRequest struct {
	Name           string              `json:"name" validate:"required,max=200"`
	Brand          string              `json:"brand" validate:"max=100"`
	MRP            decimal.Decimal     `json:"mrp"`
	PurchasedPrice decimal.NullDecimal `json:"purchased_price"`
	Description    string              `json:"description"`
	Category       string              `json:"category" validate:"max=100"`
}
