package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Bill struct {
	ID             int64           `json:"id"`
	FranchiseID    int64           `json:"franchise_id"`
	BillNumber     string          `json:"bill_number"`
	CustomerID     *int64          `json:"customer_id,omitempty"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ServiceCharges decimal.Decimal `json:"service_charges"`
	Discount       decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalItems     int             `json:"total_items"`
	BillDate       time.Time       `json:"bill_date"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type BillItem struct {
	ID             int64           `json:"id"`
	BillID         int64           `json:"bill_id"`
	ProductID      *int64          `json:"product_id,omitempty"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	MRP            decimal.Decimal `json:"mrp"`
	Discount       decimal.Decimal `json:"discount"`
	ServiceCharges decimal.Decimal `json:"service_charges"`
	Total          decimal.Decimal `json:"total"`
}

type BillWithItems struct {
	Bill
	Items []*BillItem `json:"items"`
}

// ProductRef accepts product ids sent either as JSON numbers or strings
type ProductRef int64

func (p *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", string(data))
	}
	*p = ProductRef(n)
	return nil
}

type CreateBillItem struct {
	ProductID ProductRef       `json:"product_id"`
	ID        ProductRef       `json:"id"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	MRP       decimal.Decimal  `json:"mrp"`
	Total     *decimal.Decimal `json:"total"`
	Price     *decimal.Decimal `json:"price"`
}

// Ref returns product_id, falling back to id
func (i CreateBillItem) Ref() int64 {
	if i.ProductID != 0 {
		return int64(i.ProductID)
	}
	return int64(i.ID)
}

// LineTotal prefers price, then total; nil means mrp x quantity
func (i CreateBillItem) LineTotal() *decimal.Decimal {
	if i.Price != nil {
		return i.Price
	}
	return i.Total
}

// CreateBillRequest is the POST /api/bills body. Client-sent total_amount
// and total_items are ignored; the server computes both.
type CreateBillRequest struct {
	CustomerPhone   string           `json:"customer_phone"`
	CustomerName    string           `json:"customer_name"`
	CustomerEmail   string           `json:"customer_email"`
	CustomerAddress string           `json:"customer_address"`
	Items           []CreateBillItem `json:"items"`
	ServiceCharges  decimal.Decimal  `json:"service_charges"`
	Discount        decimal.Decimal  `json:"discount"`
	Notes           string           `json:"notes"`
}

type CreateBillResponse struct {
	ID         int64  `json:"id"`
	BillNumber string `json:"bill_number"`
	Message    string `json:"message"`
}

// WhatsAppInvoice is the shareable text form of a bill
type WhatsAppInvoice struct {
	BillNumber string `json:"bill_number"`
	Phone      string `json:"phone,omitempty"`
	Text       string `json:"text"`
	ShareURL   string `json:"share_url"`
}
