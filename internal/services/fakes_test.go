package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/models"
	"franchise-billing/internal/repositories"
)

type fakeUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (f *fakeUsers) Get(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, login) || (u.Email != "" && strings.EqualFold(u.Email, login)) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = int64(len(f.users) + 1)
	f.users = append(f.users, u)
	return nil
}

func (f *fakeUsers) CountAdmins(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

// fakeFranchisees shares its users with a fakeUsers so registration and
// login see the same rows
type fakeFranchisees struct {
	users *fakeUsers
	list  []*models.Franchisee
}

func (f *fakeFranchisees) Register(ctx context.Context, fr *models.Franchisee, u *models.User) error {
	for _, existing := range f.list {
		if existing.Code == fr.Code || existing.Email == fr.Email {
			return repositories.ErrDuplicateFranchise
		}
	}
	fr.ID = int64(len(f.list) + 1)
	f.list = append(f.list, fr)
	u.FranchiseID = &fr.ID
	u.FranchiseStatus = fr.Status
	return f.users.Create(ctx, u)
}

func (f *fakeFranchisees) CodeInUse(ctx context.Context, code string) (bool, error) {
	for _, fr := range f.list {
		if fr.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFranchisees) Get(ctx context.Context, id int64) (*models.Franchisee, error) {
	for _, fr := range f.list {
		if fr.ID == id {
			return fr, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeFranchisees) List(ctx context.Context, status string) ([]*models.Franchisee, error) {
	var out []*models.Franchisee
	for _, fr := range f.list {
		if status == "" || fr.Status == status {
			out = append(out, fr)
		}
	}
	return out, nil
}

func (f *fakeFranchisees) Review(ctx context.Context, id int64, status, notes string, reviewerID int64) (*models.Franchisee, error) {
	fr, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if fr.Status != models.FranchiseStatusPending {
		return nil, repositories.ErrAlreadyReviewed
	}
	now := time.Now()
	fr.Status = status
	fr.AdminNotes = &notes
	fr.ReviewedBy = &reviewerID
	fr.ReviewedAt = &now
	for _, u := range f.users.users {
		if u.FranchiseID != nil && *u.FranchiseID == id {
			u.FranchiseStatus = status
		}
	}
	return fr, nil
}

type fakeCustomers struct {
	phones map[string]billing.CustomerFields
}

func (f *fakeCustomers) Upsert(ctx context.Context, franchiseID int64, phone string, fields billing.CustomerFields) (int64, error) {
	if f.phones == nil {
		f.phones = make(map[string]billing.CustomerFields)
	}
	f.phones[phone] = fields
	return int64(len(f.phones)), nil
}

func (f *fakeCustomers) List(ctx context.Context, franchiseID int64) ([]*models.Customer, error) {
	return nil, nil
}

type fakeProducts struct {
	created []*models.Product
	minQty  int
}

func (f *fakeProducts) Create(ctx context.Context, p *models.Product, minQuantity int) error {
	p.ID = int64(len(f.created) + 1)
	f.created = append(f.created, p)
	f.minQty = minQuantity
	return nil
}

func (f *fakeProducts) ListWithStock(ctx context.Context, franchiseID int64) ([]*models.Product, error) {
	return f.created, nil
}

func (f *fakeProducts) Search(ctx context.Context, franchiseID int64, q string, limit int) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.created {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Delete(ctx context.Context, franchiseID, productID int64) error {
	return repositories.ErrNotFound
}

type fakeStock struct {
	upserted *models.UpsertStockRequest
	minQty   int
	notes    string
}

func (f *fakeStock) List(ctx context.Context, franchiseID int64) ([]*models.StockItem, error) {
	return nil, nil
}

func (f *fakeStock) Upsert(ctx context.Context, franchiseID int64, req *models.UpsertStockRequest, minQuantity int, notes string) error {
	f.upserted, f.minQty, f.notes = req, minQuantity, notes
	return nil
}

func (f *fakeStock) AddQuantity(ctx context.Context, franchiseID, stockID int64, delta int) (*models.StockItem, error) {
	if delta < -5 {
		return nil, repositories.ErrNegativeStock
	}
	return &models.StockItem{StockID: stockID, Quantity: 5 + delta}, nil
}

func (f *fakeStock) Transactions(ctx context.Context, franchiseID, productID int64, limit int) ([]*models.StockTransaction, error) {
	return nil, nil
}
