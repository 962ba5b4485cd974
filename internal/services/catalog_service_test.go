package services

import (
	"context"
	"errors"
	"testing"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/models"
	"franchise-billing/internal/repositories"

	"github.com/shopspring/decimal"
)

func newCatalog() (*CatalogService, *fakeProducts, *fakeStock, *fakeCustomers) {
	p, s, c := &fakeProducts{}, &fakeStock{}, &fakeCustomers{}
	return NewCatalogService(p, s, c, 0, ""), p, s, c
}

func TestCreateProduct(t *testing.T) {
	svc, products, _, _ := newCatalog()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, 3, &models.CreateProductRequest{Name: "  Choco Cone ", MRP: decimal.RequireFromString("40")})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Choco Cone" || p.FranchiseID != 3 {
		t.Errorf("product = %+v", p)
	}
	if products.minQty != DefaultMinQuantity {
		t.Errorf("min quantity = %d, want %d", products.minQty, DefaultMinQuantity)
	}

	_, err = svc.CreateProduct(ctx, 3, &models.CreateProductRequest{Name: "Bad", MRP: decimal.RequireFromString("-1")})
	var ve *billing.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("negative mrp err = %v", err)
	}

	_, err = svc.CreateProduct(ctx, 3, &models.CreateProductRequest{Name: "  "})
	if !errors.As(err, &ve) || ve.Fields["name"] != "required" {
		t.Errorf("blank name err = %v", err)
	}
}

func TestSearchProducts(t *testing.T) {
	svc, products, _, _ := newCatalog()
	for i := 0; i < 15; i++ {
		products.created = append(products.created, &models.Product{ID: int64(i + 1), Name: "Cone"})
	}

	got, err := svc.SearchProducts(context.Background(), 1, "cone")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != productSearchLimit {
		t.Errorf("results = %d, want %d", len(got), productSearchLimit)
	}

	empty, err := svc.SearchProducts(context.Background(), 1, "   ")
	if err != nil || len(empty) != 0 {
		t.Errorf("blank search = %v, %v", empty, err)
	}
}

func TestUpsertStockDefaults(t *testing.T) {
	svc, _, stock, _ := newCatalog()
	ctx := context.Background()

	if err := svc.UpsertStock(ctx, 1, &models.UpsertStockRequest{ProductID: 4, Quantity: 25}); err != nil {
		t.Fatal(err)
	}
	if stock.minQty != DefaultMinQuantity || stock.notes == "" {
		t.Errorf("min = %d, notes = %q", stock.minQty, stock.notes)
	}

	five := 5
	if err := svc.UpsertStock(ctx, 1, &models.UpsertStockRequest{ProductID: 4, Quantity: 25, MinQuantity: &five}); err != nil {
		t.Fatal(err)
	}
	if stock.minQty != 5 {
		t.Errorf("min = %d, want 5", stock.minQty)
	}

	if err := svc.UpsertStock(ctx, 1, &models.UpsertStockRequest{ProductID: 4, Quantity: -1}); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestAddStock(t *testing.T) {
	svc, _, _, _ := newCatalog()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, 1, 9, &models.AddStockRequest{AddQuantity: 10})
	if err != nil || item.Quantity != 15 {
		t.Errorf("AddStock = %+v, %v", item, err)
	}

	if _, err := svc.AddStock(ctx, 1, 9, &models.AddStockRequest{AddQuantity: -6}); !errors.Is(err, repositories.ErrNegativeStock) {
		t.Errorf("err = %v, want ErrNegativeStock", err)
	}

	if _, err := svc.AddStock(ctx, 1, 9, &models.AddStockRequest{}); err == nil {
		t.Error("expected error for zero add_quantity")
	}
}

func TestUpsertCustomerNormalisesPhone(t *testing.T) {
	svc, _, _, customers := newCatalog()
	ctx := context.Background()

	c, err := svc.UpsertCustomer(ctx, 1, &models.UpsertCustomerRequest{Phone: "98765 43210", Name: "Asha"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Phone != "+919876543210" {
		t.Errorf("phone = %q", c.Phone)
	}
	if customers.phones["+919876543210"].Name != "Asha" {
		t.Errorf("stored = %v", customers.phones)
	}

	if _, err := svc.UpsertCustomer(ctx, 1, &models.UpsertCustomerRequest{Phone: "12", Name: "Asha"}); err == nil {
		t.Error("expected error for invalid phone")
	}
}

func TestDeleteStockNotFound(t *testing.T) {
	svc, _, _, _ := newCatalog()
	if err := svc.DeleteStock(context.Background(), 1, 42); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
