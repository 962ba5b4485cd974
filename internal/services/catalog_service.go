package services

import (
	"context"
	"encoding/json"
	"strings"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/cache"
	"franchise-billing/internal/models"
)

const (
	DefaultMinQuantity = 10
	productSearchLimit = 10
	stockHistoryLimit  = 50
)

type ProductStore interface {
	Create(ctx context.Context, p *models.Product, minQuantity int) error
	ListWithStock(ctx context.Context, franchiseID int64) ([]*models.Product, error)
	Search(ctx context.Context, franchiseID int64, q string, limit int) ([]*models.Product, error)
	Delete(ctx context.Context, franchiseID, productID int64) error
}

type StockStore interface {
	List(ctx context.Context, franchiseID int64) ([]*models.StockItem, error)
	Upsert(ctx context.Context, franchiseID int64, req *models.UpsertStockRequest, minQuantity int, notes string) error
	AddQuantity(ctx context.Context, franchiseID, stockID int64, delta int) (*models.StockItem, error)
	Transactions(ctx context.Context, franchiseID, productID int64, limit int) ([]*models.StockTransaction, error)
}

type CustomerStore interface {
	Upsert(ctx context.Context, franchiseID int64, phone string, fields billing.CustomerFields) (int64, error)
	List(ctx context.Context, franchiseID int64) ([]*models.Customer, error)
}

// CatalogService serves products, stock and customers of one franchise.
// Product and stock lists are cached in Redis when it is available.
type CatalogService struct {
	Products    ProductStore
	Stock       StockStore
	Customers   CustomerStore
	MinQuantity int
	PhoneRegion string
}

func NewCatalogService(products ProductStore, stock StockStore, customers CustomerStore, minQuantity int, phoneRegion string) *CatalogService {
	if minQuantity <= 0 {
		minQuantity = DefaultMinQuantity
	}
	if phoneRegion == "" {
		phoneRegion = billing.DefaultPhoneRegion
	}
	return &CatalogService{
		Products:    products,
		Stock:       stock,
		Customers:   customers,
		MinQuantity: minQuantity,
		PhoneRegion: phoneRegion,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context, franchiseID int64) ([]*models.Product, error) {
	key := cache.ProductsKey(franchiseID)
	if data, ok := cache.GetCached(ctx, key); ok {
		var products []*models.Product
		if json.Unmarshal(data, &products) == nil {
			return products, nil
		}
	}

	products, err := s.Products.ListWithStock(ctx, franchiseID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(products); err == nil {
		cache.SetCached(ctx, key, data, cache.CatalogTTL)
	}
	return products, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, franchiseID int64, req *models.CreateProductRequest) (*models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.MRP.IsNegative() {
		return nil, invalid("mrp must not be negative")
	}
	if req.PurchasedPrice.Valid && req.PurchasedPrice.Decimal.IsNegative() {
		return nil, invalid("purchased_price must not be negative")
	}

	p := &models.Product{
		FranchiseID:    franchiseID,
		Name:           req.Name,
		Brand:          req.Brand,
		MRP:            req.MRP,
		PurchasedPrice: req.PurchasedPrice,
		Description:    strings.TrimSpace(req.Description),
		Category:       strings.TrimSpace(req.Category),
	}
	if err := s.Products.Create(ctx, p, s.MinQuantity); err != nil {
		return nil, err
	}
	cache.InvalidateCatalogCaches(ctx, franchiseID)
	return p, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, franchiseID int64, q string) ([]*models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*models.Product{}, nil
	}
	return s.Products.Search(ctx, franchiseID, q, productSearchLimit)
}

func (s *CatalogService) ListStock(ctx context.Context, franchiseID int64) ([]*models.StockItem, error) {
	key := cache.StockKey(franchiseID)
	if data, ok := cache.GetCached(ctx, key); ok {
		var items []*models.StockItem
		if json.Unmarshal(data, &items) == nil {
			return items, nil
		}
	}

	items, err := s.Stock.List(ctx, franchiseID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		cache.SetCached(ctx, key, data, cache.CatalogTTL)
	}
	return items, nil
}

// UpsertStock sets the absolute quantity of a product
func (s *CatalogService) UpsertStock(ctx context.Context, franchiseID int64, req *models.UpsertStockRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	minQty := s.MinQuantity
	if req.MinQuantity != nil {
		minQty = *req.MinQuantity
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		notes = "Stock updated via API"
	}
	if err := s.Stock.Upsert(ctx, franchiseID, req, minQty, notes); err != nil {
		return err
	}
	cache.InvalidateCatalogCaches(ctx, franchiseID)
	return nil
}

// AddStock increments a stock row; a negative amount is allowed as long as
// the quantity stays at or above zero
func (s *CatalogService) AddStock(ctx context.Context, franchiseID, stockID int64, req *models.AddStockRequest) (*models.StockItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	item, err := s.Stock.AddQuantity(ctx, franchiseID, stockID, req.AddQuantity)
	if err != nil {
		return nil, err
	}
	cache.InvalidateCatalogCaches(ctx, franchiseID)
	return item, nil
}

// DeleteStock removes a product together with its stock row and history
func (s *CatalogService) DeleteStock(ctx context.Context, franchiseID, productID int64) error {
	if err := s.Products.Delete(ctx, franchiseID, productID); err != nil {
		return err
	}
	cache.InvalidateCatalogCaches(ctx, franchiseID)
	return nil
}

func (s *CatalogService) StockHistory(ctx context.Context, franchiseID, productID int64) ([]*models.StockTransaction, error) {
	return s.Stock.Transactions(ctx, franchiseID, productID, stockHistoryLimit)
}

func (s *CatalogService) ListCustomers(ctx context.Context, franchiseID int64) ([]*models.Customer, error) {
	return s.Customers.List(ctx, franchiseID)
}

// UpsertCustomer creates or updates a customer keyed by normalised phone
func (s *CatalogService) UpsertCustomer(ctx context.Context, franchiseID int64, req *models.UpsertCustomerRequest) (*models.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	phone, err := billing.NormalizePhone(req.Phone, s.PhoneRegion)
	if err != nil {
		return nil, invalid("phone: " + err.Error())
	}

	fields := billing.CustomerFields{Name: req.Name, Email: req.Email, Address: strings.TrimSpace(req.Address)}
	id, err := s.Customers.Upsert(ctx, franchiseID, phone, fields)
	if err != nil {
		return nil, err
	}
	return &models.Customer{
		ID:          id,
		FranchiseID: franchiseID,
		Phone:       phone,
		Name:        fields.Name,
		Email:       fields.Email,
		Address:     fields.Address,
	}, nil
}
