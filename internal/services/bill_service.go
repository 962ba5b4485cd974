package services

import (
	"context"
	"strings"

	"franchise-billing/internal/billing"
	"franchise-billing/internal/cache"
	"franchise-billing/internal/logger"
	"franchise-billing/internal/models"
	"franchise-billing/internal/whatsapp"

	"github.com/sirupsen/logrus"
)

const maxBillListLimit = 500

type BillCreator interface {
	Create(ctx context.Context, in billing.CreateBillInput) (*billing.CreatedBill, error)
}

type BillReader interface {
	List(ctx context.Context, franchiseID int64, limit int) ([]*models.Bill, error)
	Get(ctx context.Context, franchiseID, id int64) (*models.BillWithItems, error)
}

type FranchiseLookup interface {
	Get(ctx context.Context, id int64) (*models.Franchisee, error)
}

// InvoiceArchiver stores rendered invoices out of band
type InvoiceArchiver interface {
	ArchiveAsync(franchiseID int64, filename string, pdf []byte)
}

type BillService struct {
	Engine      BillCreator
	Bills       BillReader
	Franchisees FranchiseLookup
	Archive     InvoiceArchiver
	WhatsApp    whatsapp.Provider
	log         *logrus.Entry
}

func NewBillService(engine BillCreator, bills BillReader, franchisees FranchiseLookup) *BillService {
	return &BillService{
		Engine:      engine,
		Bills:       bills,
		Franchisees: franchisees,
		log:         logger.For("bills"),
	}
}

// Create maps the request onto the bill engine. Totals sent by the client
// are ignored.
func (s *BillService) Create(ctx context.Context, franchiseID int64, req *models.CreateBillRequest) (*billing.CreatedBill, error) {
	code, err := s.franchiseCode(ctx, franchiseID)
	if err != nil {
		return nil, err
	}

	in := billing.CreateBillInput{
		Tenant:          billing.Tenant{FranchiseID: franchiseID, Code: code},
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		ServiceCharges:  req.ServiceCharges,
		Discount:        req.Discount,
		Notes:           strings.TrimSpace(req.Notes),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, billing.LineInput{
			ProductID: it.Ref(),
			Name:      strings.TrimSpace(it.Name),
			Quantity:  it.Quantity,
			MRP:       it.MRP,
			Total:     it.LineTotal(),
		})
	}

	bill, err := s.Engine.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	cache.InvalidateCatalogCaches(ctx, franchiseID)
	return bill, nil
}

// franchiseCode resolves the numbering code, caching it since it never
// changes after registration
func (s *BillService) franchiseCode(ctx context.Context, franchiseID int64) (string, error) {
	key := cache.FranchiseCodeKey(franchiseID)
	if data, ok := cache.GetCached(ctx, key); ok && billing.ValidCode(string(data)) {
		return string(data), nil
	}

	f, err := s.Franchisees.Get(ctx, franchiseID)
	if err != nil {
		return "", err
	}
	cache.SetCached(ctx, key, []byte(f.Code), cache.CodeTTL)
	return f.Code, nil
}

func (s *BillService) List(ctx context.Context, franchiseID int64, limit int) ([]*models.Bill, error) {
	if limit < 0 {
		return nil, invalid("limit must not be negative")
	}
	if limit > maxBillListLimit {
		limit = maxBillListLimit
	}
	return s.Bills.List(ctx, franchiseID, limit)
}

func (s *BillService) Get(ctx context.Context, franchiseID, id int64) (*models.BillWithItems, error) {
	return s.Bills.Get(ctx, franchiseID, id)
}

// InvoicePDF renders the bill and, when an archive is configured, copies it
// there in the background
func (s *BillService) InvoicePDF(ctx context.Context, franchiseID, id int64) ([]byte, string, error) {
	bill, err := s.Bills.Get(ctx, franchiseID, id)
	if err != nil {
		return nil, "", err
	}
	f, err := s.Franchisees.Get(ctx, franchiseID)
	if err != nil {
		return nil, "", err
	}

	pdf, err := RenderInvoicePDF(f.FranchiseName, bill)
	if err != nil {
		return nil, "", err
	}
	filename := InvoiceFilename(bill.BillNumber)
	if s.Archive != nil {
		s.Archive.ArchiveAsync(franchiseID, filename, pdf)
	}
	return pdf, filename, nil
}

// WhatsAppInvoice builds the shareable text and wa.me link for a bill
func (s *BillService) WhatsAppInvoice(ctx context.Context, franchiseID, id int64) (*models.WhatsAppInvoice, error) {
	bill, err := s.Bills.Get(ctx, franchiseID, id)
	if err != nil {
		return nil, err
	}
	f, err := s.Franchisees.Get(ctx, franchiseID)
	if err != nil {
		return nil, err
	}

	text := RenderInvoiceText(f.FranchiseName, bill)
	return &models.WhatsAppInvoice{
		BillNumber: bill.BillNumber,
		Phone:      bill.CustomerPhone,
		Text:       text,
		ShareURL:   whatsapp.ShareURL(bill.CustomerPhone, text),
	}, nil
}

// SendWhatsApp delivers the invoice text to the bill's customer, or to
// phone when given
func (s *BillService) SendWhatsApp(ctx context.Context, franchiseID, id int64, phone string) (*models.WhatsAppInvoice, error) {
	if s.WhatsApp == nil {
		return nil, whatsapp.ErrNotConfigured
	}
	inv, err := s.WhatsAppInvoice(ctx, franchiseID, id)
	if err != nil {
		return nil, err
	}

	to := inv.Phone
	if strings.TrimSpace(phone) != "" {
		to, err = billing.NormalizePhone(phone, billing.DefaultPhoneRegion)
		if err != nil {
			return nil, invalid("phone: " + err.Error())
		}
	}
	if to == "" {
		return nil, invalid("bill has no customer phone; send one in the request")
	}

	if err := s.WhatsApp.SendText(ctx, to, inv.Text); err != nil {
		s.log.WithFields(logrus.Fields{
			"franchise_id": franchiseID,
			"bill_id":      id,
			"provider":     s.WhatsApp.Name(),
		}).WithError(err).Warn("whatsapp send failed")
		return nil, err
	}
	inv.Phone = to
	return inv, nil
}
