package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"franchise-billing/internal/models"
	"franchise-billing/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

type ReportStore interface {
	SalesByDay(ctx context.Context, franchiseID int64, from, to time.Time) ([]*models.SalesReportRow, error)
	StockLevels(ctx context.Context, franchiseID int64) ([]*models.StockReportRow, error)
}

// ReportService handles report generation
type ReportService struct {
	Repo ReportStore
}

func NewReportService(repo ReportStore) *ReportService {
	return &ReportService{Repo: repo}
}

// Sales groups completed bills by IST day. Dates are YYYY-MM-DD and
// inclusive; either may be empty.
func (s *ReportService) Sales(ctx context.Context, franchiseID int64, startDate, endDate string) ([]*models.SalesReportRow, error) {
	var from, to time.Time
	if startDate != "" {
		d, err := timeutil.ParseDate(startDate)
		if err != nil {
			return nil, invalid("start_date must be YYYY-MM-DD")
		}
		from = timeutil.StartOfDay(d)
	}
	if endDate != "" {
		d, err := timeutil.ParseDate(endDate)
		if err != nil {
			return nil, invalid("end_date must be YYYY-MM-DD")
		}
		to = timeutil.EndOfDay(d)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, invalid("end_date is before start_date")
	}
	return s.Repo.SalesByDay(ctx, franchiseID, from, to)
}

func (s *ReportService) Stock(ctx context.Context, franchiseID int64) ([]*models.StockReportRow, error) {
	return s.Repo.StockLevels(ctx, franchiseID)
}

// SalesWorkbook renders the sales report as an xlsx file
func SalesWorkbook(rows []*models.SalesReportRow) ([]byte, error) {
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		sales, _ := r.TotalSales.Float64()
		data = append(data, []interface{}{r.Date, r.TotalBills, sales, r.TotalItemsSold})
	}
	return writeWorkbook("Sales", []string{"Date", "Total Bills", "Total Sales", "Items Sold"}, data)
}

// StockWorkbook renders the stock report as an xlsx file
func StockWorkbook(rows []*models.StockReportRow) ([]byte, error) {
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.Name, r.Brand, r.Quantity, r.MinQuantity, r.Status})
	}
	return writeWorkbook("Stock", []string{"Name", "Brand", "Quantity", "Min Quantity", "Status"}, data)
}

func writeWorkbook(sheet string, headings []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, h := range headings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headings), 1)
	f.SetCellStyle(sheet, "A1", last, bold)

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
