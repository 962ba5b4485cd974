package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"franchise-billing/internal/models"
	"franchise-billing/internal/services"
	"franchise-billing/pkg/utils"
)

type BillHandler struct {
	Service *services.BillService
}

func NewBillHandler(s *services.BillService) *BillHandler {
	return &BillHandler{Service: s}
}

// CreateBill runs the bill engine for the current franchise
func (h *BillHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	var req models.CreateBillRequest
	if !decode(w, r, &req) {
		return
	}

	bill, err := h.Service.Create(r.Context(), fid, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, models.CreateBillResponse{
		ID:         bill.ID,
		BillNumber: bill.BillNumber,
		Message:    "Bill created successfully",
	})
}

func (h *BillHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	bills, err := h.Service.List(r.Context(), fid, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if bills == nil {
		bills = []*models.Bill{}
	}
	utils.JSON(w, http.StatusOK, bills)
}

func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	fid, id, ok := h.billRef(w, r)
	if !ok {
		return
	}
	bill, err := h.Service.Get(r.Context(), fid, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, bill)
}

func (h *BillHandler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	fid, id, ok := h.billRef(w, r)
	if !ok {
		return
	}
	pdf, filename, err := h.Service.InvoicePDF(r.Context(), fid, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *BillHandler) WhatsAppInvoice(w http.ResponseWriter, r *http.Request) {
	fid, id, ok := h.billRef(w, r)
	if !ok {
		return
	}
	inv, err := h.Service.WhatsAppInvoice(r.Context(), fid, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

type sendWhatsAppRequest struct {
	Phone string `json:"phone"`
}

func (h *BillHandler) SendWhatsApp(w http.ResponseWriter, r *http.Request) {
	fid, id, ok := h.billRef(w, r)
	if !ok {
		return
	}
	var req sendWhatsAppRequest
	if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.Service.SendWhatsApp(r.Context(), fid, id, req.Phone)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Invoice sent on WhatsApp",
		"invoice": inv,
	})
}

func (h *BillHandler) billRef(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	fid, ok := tenant(w, r)
	if !ok {
		return 0, 0, false
	}
	id, ok := pathID(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid bill id")
		return 0, 0, false
	}
	return fid, id, true
}
