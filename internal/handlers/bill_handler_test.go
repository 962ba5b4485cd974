package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/billing/billingtest"
	"franchise-billing/internal/middleware"
	"franchise-billing/internal/models"
	"franchise-billing/internal/repositories"
	"franchise-billing/internal/services"
	"franchise-billing/internal/timeutil"

	"github.com/gorilla/mux"
)

type storeBills struct {
	store *billingtest.MemoryStore
}

func (s storeBills) List(ctx context.Context, franchiseID int64, limit int) ([]*models.Bill, error) {
	var out []*models.Bill
	for _, b := range s.store.Bills() {
		if b.FranchiseID == franchiseID {
			out = append(out, &models.Bill{ID: b.ID, FranchiseID: b.FranchiseID, BillNumber: b.BillNumber, TotalAmount: b.TotalAmount})
		}
	}
	return out, nil
}

func (s storeBills) Get(ctx context.Context, franchiseID, id int64) (*models.BillWithItems, error) {
	for _, b := range s.store.Bills() {
		if b.ID == id && b.FranchiseID == franchiseID {
			return &models.BillWithItems{Bill: models.Bill{
				ID: b.ID, FranchiseID: b.FranchiseID, BillNumber: b.BillNumber,
				TotalAmount: b.TotalAmount, TotalItems: b.TotalItems, BillDate: b.BillDate,
			}}, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type oneFranchise struct{}

func (oneFranchise) Get(ctx context.Context, id int64) (*models.Franchisee, error) {
	if id != 1 {
		return nil, repositories.ErrNotFound
	}
	return &models.Franchisee{ID: 1, FranchiseName: "Dipdips Garg House", Code: "DIP"}, nil
}

// withTenant stands in for Authenticate and RequireTenant
func withTenant(fid int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUser(r.Context(), &models.User{ID: 7, Role: models.RoleFranchisee, FranchiseID: &fid})
			next.ServeHTTP(w, r.WithContext(middleware.WithFranchise(ctx, fid)))
		})
	}
}

func newBillRouter(t *testing.T) (*mux.Router, *billingtest.MemoryStore) {
	t.Helper()
	store := billingtest.NewMemoryStore()
	store.AddStock(1, 10, "Choco Cone", 5)

	fixed := time.Date(2025, 7, 15, 18, 30, 0, 0, timeutil.IST)
	engine := billing.NewEngine(store, billing.EngineConfig{Now: func() time.Time { return fixed }})
	h := NewBillHandler(services.NewBillService(engine, storeBills{store}, oneFranchise{}))

	r := mux.NewRouter()
	r.Use(withTenant(1))
	r.HandleFunc("/api/bills", h.CreateBill).Methods("POST")
	r.HandleFunc("/api/bills", h.ListBills).Methods("GET")
	r.HandleFunc("/api/bills/{id}", h.GetBill).Methods("GET")
	r.HandleFunc("/api/bills/{id}/pdf", h.InvoicePDF).Methods("GET")
	r.HandleFunc("/api/bills/{id}/whatsapp", h.SendWhatsApp).Methods("POST")
	return r, store
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateBill(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantStock  int
	}{
		{"created", `{"customer_name":"Asha","items":[{"product_id":10,"quantity":2,"mrp":40}]}`, http.StatusCreated, 3},
		{"string product id", `{"items":[{"product_id":"10","quantity":1,"mrp":40}]}`, http.StatusCreated, 4},
		{"not enough stock", `{"items":[{"product_id":10,"quantity":6,"mrp":40}]}`, http.StatusConflict, 5},
		{"unknown product", `{"items":[{"product_id":99,"quantity":1,"mrp":40}]}`, http.StatusConflict, 5},
		{"no items", `{"items":[]}`, http.StatusBadRequest, 5},
		{"zero quantity", `{"items":[{"product_id":10,"quantity":0,"mrp":40}]}`, http.StatusBadRequest, 5},
		{"malformed", `{"items":`, http.StatusBadRequest, 5},
		{"empty body", "", http.StatusBadRequest, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newBillRouter(t)
			rr := serve(r, "POST", "/api/bills", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if qty, _ := store.Stock(1, 10); qty != tt.wantStock {
				t.Errorf("stock = %d, want %d", qty, tt.wantStock)
			}
		})
	}
}

func TestCreateBillResponse(t *testing.T) {
	r, _ := newBillRouter(t)
	rr := serve(r, "POST", "/api/bills", `{"items":[{"product_id":10,"quantity":1,"mrp":40}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.CreateBillResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.BillNumber != "DIP/2025-26/07-0001" || resp.ID == 0 {
		t.Errorf("response = %+v", resp)
	}

	rr = serve(r, "POST", "/api/bills", `{"items":[{"product_id":10,"quantity":1,"mrp":40}]}`)
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.BillNumber != "DIP/2025-26/07-0002" {
		t.Errorf("second bill number = %q", resp.BillNumber)
	}
}

func TestBillReads(t *testing.T) {
	r, _ := newBillRouter(t)
	rr := serve(r, "POST", "/api/bills", `{"items":[{"product_id":10,"quantity":1,"mrp":40}]}`)
	var created models.CreateBillResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	if rr := serve(r, "GET", fmt.Sprintf("/api/bills/%d", created.ID), ""); rr.Code != http.StatusOK {
		t.Errorf("get status = %d", rr.Code)
	}
	if rr := serve(r, "GET", "/api/bills/999", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing bill status = %d, want 404", rr.Code)
	}
	if rr := serve(r, "GET", "/api/bills/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rr.Code)
	}
	if rr := serve(r, "GET", "/api/bills?limit=x", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rr.Code)
	}

	rr = serve(r, "GET", "/api/bills", "")
	var list []models.Bill
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Errorf("list = %s (%v)", rr.Body.String(), err)
	}

	rr = serve(r, "GET", fmt.Sprintf("/api/bills/%d/pdf", created.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("pdf status = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "bill-DIP-2025-26-07-0001.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Error("body is not a PDF")
	}
}

func TestSendWhatsAppWithoutProvider(t *testing.T) {
	r, _ := newBillRouter(t)
	serve(r, "POST", "/api/bills", `{"items":[{"product_id":10,"quantity":1,"mrp":40}]}`)

	rr := serve(r, "POST", "/api/bills/1/whatsapp", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestMissingTenant(t *testing.T) {
	h := NewBillHandler(nil)
	rr := httptest.NewRecorder()
	h.ListBills(rr, httptest.NewRequest("GET", "/api/bills", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
