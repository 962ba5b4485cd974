package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"franchise-billing/internal/models"
	"franchise-billing/internal/services"
	"franchise-billing/internal/timeutil"
	"franchise-billing/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

func (h *ReportHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	rows, err := h.Service.Sales(r.Context(), fid, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []*models.SalesReportRow{}
	}

	if q.Get("format") == "xlsx" {
		data, err := services.SalesWorkbook(rows)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeWorkbook(w, "sales-report", data)
		return
	}
	utils.JSON(w, http.StatusOK, rows)
}

func (h *ReportHandler) StockReport(w http.ResponseWriter, r *http.Request) {
	fid, ok := tenant(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.Stock(r.Context(), fid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []*models.StockReportRow{}
	}

	if r.URL.Query().Get("format") == "xlsx" {
		data, err := services.StockWorkbook(rows)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeWorkbook(w, "stock-report", data)
		return
	}
	utils.JSON(w, http.StatusOK, rows)
}

func writeWorkbook(w http.ResponseWriter, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, timeutil.Now().Format(timeutil.DateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
