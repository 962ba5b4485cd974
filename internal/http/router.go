package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"franchise-billing/internal/handlers"
	"franchise-billing/internal/middleware"
	"franchise-billing/internal/models"
	"franchise-billing/pkg/utils"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Admin   *handlers.AdminHandler
	Catalog *handlers.CatalogHandler
	Bills   *handlers.BillHandler
	Reports *handlers.ReportHandler
	Health  *handlers.HealthHandler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Health and metrics (no authentication)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public API routes - Authentication
	r.HandleFunc("/api/register", h.Auth.Register).Methods("POST")
	r.HandleFunc("/api/login", h.Auth.Login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/me", h.Auth.Me).Methods("GET")

	// Admin only - franchise approvals
	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(middleware.RequireRole(models.RoleAdmin))
	adminAPI.HandleFunc("/franchisees", h.Admin.ListFranchisees).Methods("GET")
	adminAPI.HandleFunc("/franchisees/{id}", h.Admin.GetFranchisee).Methods("GET")
	adminAPI.HandleFunc("/franchisees/{id}/approve", h.Admin.Approve).Methods("POST")
	adminAPI.HandleFunc("/franchisees/{id}/reject", h.Admin.Reject).Methods("POST")

	// Franchise scoped routes
	tenantAPI := api.NewRoute().Subrouter()
	tenantAPI.Use(middleware.RequireTenant)

	tenantAPI.HandleFunc("/products", h.Catalog.ListProducts).Methods("GET")
	tenantAPI.HandleFunc("/products", h.Catalog.CreateProduct).Methods("POST")
	tenantAPI.HandleFunc("/search/products", h.Catalog.SearchProducts).Methods("GET")

	tenantAPI.HandleFunc("/stock", h.Catalog.ListStock).Methods("GET")
	tenantAPI.HandleFunc("/stock", h.Catalog.UpsertStock).Methods("POST")
	tenantAPI.HandleFunc("/stock/{id}/add", h.Catalog.AddStock).Methods("PATCH")
	tenantAPI.HandleFunc("/stock/{id}/transactions", h.Catalog.StockHistory).Methods("GET")
	tenantAPI.HandleFunc("/stock/{id}", h.Catalog.DeleteStock).Methods("DELETE")

	tenantAPI.HandleFunc("/customers", h.Catalog.ListCustomers).Methods("GET")
	tenantAPI.HandleFunc("/customers", h.Catalog.UpsertCustomer).Methods("POST")

	tenantAPI.HandleFunc("/bills", h.Bills.CreateBill).Methods("POST")
	tenantAPI.HandleFunc("/bills", h.Bills.ListBills).Methods("GET")
	tenantAPI.HandleFunc("/bills/{id}", h.Bills.GetBill).Methods("GET")
	tenantAPI.HandleFunc("/bills/{id}/pdf", h.Bills.InvoicePDF).Methods("GET")
	tenantAPI.HandleFunc("/bills/{id}/whatsapp", h.Bills.WhatsAppInvoice).Methods("GET")
	tenantAPI.HandleFunc("/bills/{id}/whatsapp", h.Bills.SendWhatsApp).Methods("POST")

	tenantAPI.HandleFunc("/reports/sales", h.Reports.SalesReport).Methods("GET")
	tenantAPI.HandleFunc("/reports/stock", h.Reports.StockReport).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "Not found")
	})

	return r
}
