package handlers

import (
	"net/http"

	"franchise-billing/internal/models"
	"franchise-billing/internal/services"
	"franchise-billing/pkg/utils"
)

// CatalogHandler serves products, stock and customers of the current franchise
type CatalogHandler struct {
	Service *services.CatalogService
}

func NewCatalogHandler(s *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	products, err := h.Service.ListProducts(r.Context(), fid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	utils.JSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	var req models.CreateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Service.CreateProduct(r.Context(), fid, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	products, err := h.Service.SearchProducts(r.Context(), fid, r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	utils.JSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	items, err := h.Service.ListStock(r.Context(), fid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []*models.StockItem{}
	}
	utils.JSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) UpsertStock(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	var req models.UpsertStockRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Service.UpsertStock(r.Context(), fid, &req); err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Stock updated successfully"})
}

// AddStock handles PATCH /api/stock/{id}/add where id is the stock row id
func (h *CatalogHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid stock id")
		return
	}
	var req models.AddStockRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.Service.AddStock(r.Context(), fid, id, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Stock incremented successfully",
		"stock":   item,
	})
}

// DeleteStock handles DELETE /api/stock/{id} where id is the product id
func (h *CatalogHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	if err := h.Service.DeleteStock(r.Context(), fid, id); err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *CatalogHandler) StockHistory(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	txs, err := h.Service.StockHistory(r.Context(), fid, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*models.StockTransaction{}
	}
	utils.JSON(w, http.StatusOK, txs)
}

func (h *CatalogHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	customers, err := h.Service.ListCustomers(r.Context(), fid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if customers == nil {
		customers = []*models.Customer{}
	}
	utils.JSON(w, http.StatusOK, customers)
}

func (h *CatalogHandler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	var req models.UpsertCustomerRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Service.UpsertCustomer(r.Context(), fid, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}
