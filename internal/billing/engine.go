package billing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"franchise-billing/internal/logger"
	"franchise-billing/internal/metrics"
	"franchise-billing/internal/timeutil"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 5
	DefaultTxTimeout   = 10 * time.Second
)

// Tenant identifies the franchise a bill belongs to.
type Tenant struct {
	FranchiseID int64  `validate:"gt=0"`
	Code        string `validate:"required,min=2,max=3,alpha,uppercase"`
}

type LineInput struct {
	ProductID int64  `validate:"gt=0"`
	Name      string `validate:"max=200"`
	Quantity  int    `validate:"gt=0"`
	MRP       decimal.Decimal
	// Total overrides MRP x Quantity when set.
	Total *decimal.Decimal
}

type CreateBillInput struct {
	Tenant          Tenant
	CustomerPhone   string `validate:"max=20"`
	CustomerName    string `validate:"max=150"`
	CustomerEmail   string `validate:"omitempty,email"`
	CustomerAddress string
	Items           []LineInput `validate:"required,min=1,dive"`
	ServiceCharges  decimal.Decimal
	Discount        decimal.Decimal
	Notes           string
}

type CreatedBill struct {
	ID          int64
	BillNumber  string
	TotalAmount decimal.Decimal
	TotalItems  int
	CustomerID  *int64
	BillDate    time.Time
}

type EngineConfig struct {
	MaxAttempts int
	TxTimeout   time.Duration
	PhoneRegion string
	// Locker is optional.
	Locker NumberingLocker
	// Now defaults to timeutil.Now.
	Now func() time.Time
}

// Engine creates bills: customer upsert, bill numbering, stock decrement and
// audit rows in one transaction, restarting the whole attempt when the bill
// number is taken by a concurrent writer.
type Engine struct {
	store       Store
	locker      NumberingLocker
	now         func() time.Time
	maxAttempts int
	txTimeout   time.Duration
	phoneRegion string
	validate    *validator.Validate
	log         *logrus.Entry
}

func NewEngine(store Store, cfg EngineConfig) *Engine {
	e := &Engine{
		store:       store,
		locker:      cfg.Locker,
		now:         cfg.Now,
		maxAttempts: cfg.MaxAttempts,
		txTimeout:   cfg.TxTimeout,
		phoneRegion: cfg.PhoneRegion,
		validate:    validator.New(),
		log:         logger.For("billing"),
	}
	if e.now == nil {
		e.now = timeutil.Now
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.txTimeout <= 0 {
		e.txTimeout = DefaultTxTimeout
	}
	if e.phoneRegion == "" {
		e.phoneRegion = DefaultPhoneRegion
	}
	return e
}

// preparedBill is the validated, normalised request with computed amounts.
type preparedBill struct {
	in         CreateBillInput
	phone      string
	name       string
	lineTotals []decimal.Decimal
	subtotal   decimal.Decimal
	total      decimal.Decimal
	totalItems int
	productIDs []int64
}

// Create runs the bill transaction. Errors are *ValidationError,
// *StockError, *NumberingConflictError or *StorageError.
func (e *Engine) Create(ctx context.Context, in CreateBillInput) (*CreatedBill, error) {
	start := time.Now()
	defer func() {
		metrics.BillCreateDuration.Observe(time.Since(start).Seconds())
	}()

	bill, err := e.create(ctx, in)
	if err != nil {
		kind := Kind(err)
		metrics.BillFailuresTotal.WithLabelValues(kind).Inc()
		entry := e.log.WithFields(logrus.Fields{
			"franchise_id": in.Tenant.FranchiseID,
			"kind":         kind,
		})
		if kind == "storage" || kind == "numbering_conflict" {
			entry.WithError(err).Error("bill creation failed")
		} else {
			entry.WithError(err).Info("bill rejected")
		}
		return nil, err
	}

	metrics.BillsCreatedTotal.Inc()
	e.log.WithFields(logrus.Fields{
		"franchise_id": in.Tenant.FranchiseID,
		"bill_id":      bill.ID,
		"bill_number":  bill.BillNumber,
		"total":        bill.TotalAmount.StringFixed(2),
	}).Info("bill created")
	return bill, nil
}

func (e *Engine) create(ctx context.Context, in CreateBillInput) (*CreatedBill, error) {
	p, err := e.prepare(in)
	if err != nil {
		return nil, err
	}

	if e.locker != nil {
		key := fmt.Sprintf("billing:numbering:%d:%s", in.Tenant.FranchiseID, BillNumberPrefix(in.Tenant.Code, e.now()))
		release, err := e.locker.Acquire(ctx, key)
		if err != nil {
			e.log.WithError(err).WithField("key", key).Warn("numbering lock not obtained; proceeding without it")
		} else {
			defer release()
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &StorageError{Op: "create bill", Err: err}
		}

		bill, err := e.attempt(ctx, p)
		if err == nil {
			return bill, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		reason := "contention"
		var nc *NumberingConflictError
		if errors.As(err, &nc) {
			reason = "bill_number_taken"
		}
		metrics.BillAttemptRetriesTotal.WithLabelValues(reason).Inc()
		e.log.WithFields(logrus.Fields{
			"franchise_id": in.Tenant.FranchiseID,
			"attempt":      attempt,
			"reason":       reason,
		}).Warn("bill attempt conflicted, retrying")

		if attempt < e.maxAttempts {
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return nil, &StorageError{Op: "create bill", Err: err}
			}
		}
	}

	var nc *NumberingConflictError
	if errors.As(lastErr, &nc) {
		return nil, &NumberingConflictError{BillNumber: nc.BillNumber, Attempts: e.maxAttempts}
	}
	return nil, lastErr
}

func (e *Engine) prepare(in CreateBillInput) (*preparedBill, error) {
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)

	if err := e.validate.Struct(in); err != nil {
		return nil, validationFromValidator(err)
	}
	if in.ServiceCharges.IsNegative() {
		return nil, newValidationError("service_charges must not be negative")
	}
	if in.Discount.IsNegative() {
		return nil, newValidationError("discount must not be negative")
	}

	p := &preparedBill{in: in, name: in.CustomerName}
	seen := make(map[int64]bool)
	for i, item := range in.Items {
		if item.MRP.IsNegative() {
			return nil, newValidationError("items[%d].mrp must not be negative", i)
		}
		line := item.MRP.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if item.Total != nil {
			if item.Total.IsNegative() {
				return nil, newValidationError("items[%d].total must not be negative", i)
			}
			line = *item.Total
		}
		p.lineTotals = append(p.lineTotals, line)
		p.subtotal = p.subtotal.Add(line)
		p.totalItems += item.Quantity
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			p.productIDs = append(p.productIDs, item.ProductID)
		}
	}
	sort.Slice(p.productIDs, func(i, j int) bool { return p.productIDs[i] < p.productIDs[j] })

	p.total = p.subtotal.Add(in.ServiceCharges).Sub(in.Discount)
	if p.total.IsNegative() {
		return nil, newValidationError("discount %s exceeds bill amount %s",
			in.Discount.StringFixed(2), p.subtotal.Add(in.ServiceCharges).StringFixed(2))
	}

	if in.CustomerPhone != "" {
		phone, err := NormalizePhone(in.CustomerPhone, e.phoneRegion)
		if err != nil {
			return nil, newValidationError("customer_phone: %v", err)
		}
		p.phone = phone
	}
	return p, nil
}

// attempt is one full numbering+create pass inside a single transaction.
func (e *Engine) attempt(ctx context.Context, p *preparedBill) (*CreatedBill, error) {
	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	in := p.in
	fid := in.Tenant.FranchiseID
	now := e.now()
	var created *CreatedBill

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var customerID *int64
		if p.phone != "" && p.name != "" {
			id, err := tx.UpsertCustomer(ctx, fid, p.phone, CustomerFields{
				Name:    p.name,
				Email:   in.CustomerEmail,
				Address: in.CustomerAddress,
			})
			if err != nil {
				return fmt.Errorf("upsert customer: %w", err)
			}
			customerID = &id
		}

		prefix := BillNumberPrefix(in.Tenant.Code, now)
		count, err := tx.CountBillsWithPrefix(ctx, fid, prefix)
		if err != nil {
			return fmt.Errorf("count bills: %w", err)
		}
		number := FormatBillNumber(in.Tenant.Code, now, count+1)

		bill := &BillRecord{
			FranchiseID:    fid,
			BillNumber:     number,
			CustomerID:     customerID,
			CustomerPhone:  p.phone,
			CustomerName:   p.name,
			Subtotal:       p.subtotal,
			ServiceCharges: in.ServiceCharges,
			Discount:       in.Discount,
			TotalAmount:    p.total,
			TotalItems:     p.totalItems,
			BillDate:       now,
			Status:         StatusCompleted,
			Notes:          in.Notes,
		}
		billID, err := tx.InsertBill(ctx, bill)
		if err != nil {
			return err
		}

		if err := tx.LockStock(ctx, fid, p.productIDs); err != nil {
			return fmt.Errorf("lock stock: %w", err)
		}

		for i := range in.Items {
			if err := e.sellLine(ctx, tx, p, i, billID, number); err != nil {
				return err
			}
		}

		created = &CreatedBill{
			ID:          billID,
			BillNumber:  number,
			TotalAmount: p.total,
			TotalItems:  p.totalItems,
			CustomerID:  customerID,
			BillDate:    now,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

// sellLine checks, records and decrements one line. Lines carry the
// bill-level service charges and discount alongside their own total.
func (e *Engine) sellLine(ctx context.Context, tx Tx, p *preparedBill, i int, billID int64, number string) error {
	item := p.in.Items[i]
	fid := p.in.Tenant.FranchiseID

	level, ok, err := tx.GetStock(ctx, item.ProductID, fid)
	if err != nil {
		return fmt.Errorf("get stock: %w", err)
	}
	name := item.Name
	if name == "" {
		name = level.ProductName
	}
	if !ok {
		if name == "" {
			name = fmt.Sprintf("product %d", item.ProductID)
		}
		return &StockError{ProductID: item.ProductID, ProductName: name, Requested: item.Quantity, NotFound: true}
	}
	if level.Quantity < item.Quantity {
		return &StockError{ProductID: item.ProductID, ProductName: name, Requested: item.Quantity, Available: level.Quantity}
	}

	if _, err := tx.InsertBillItem(ctx, &BillLineRecord{
		BillID:         billID,
		ProductID:      item.ProductID,
		ProductName:    name,
		Quantity:       item.Quantity,
		MRP:            item.MRP,
		Discount:       p.in.Discount,
		ServiceCharges: p.in.ServiceCharges,
		Total:          p.lineTotals[i],
	}); err != nil {
		return fmt.Errorf("insert bill item: %w", err)
	}

	if _, err := tx.DecrementStock(ctx, item.ProductID, fid, item.Quantity); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return &StockError{ProductID: item.ProductID, ProductName: name, Requested: item.Quantity, Available: level.Quantity}
		}
		return fmt.Errorf("decrement stock: %w", err)
	}

	ref := billID
	if _, err := tx.InsertStockTransaction(ctx, &StockMovement{
		FranchiseID:   fid,
		ProductID:     item.ProductID,
		Type:          TxTypeSale,
		Quantity:      -item.Quantity,
		ReferenceID:   &ref,
		ReferenceType: ReferenceTypeBill,
		Notes:         "Sale via Bill #" + number,
	}); err != nil {
		return fmt.Errorf("insert stock transaction: %w", err)
	}
	return nil
}

// classify keeps typed errors as they are and wraps anything else.
func classify(err error) error {
	var (
		st *StockError
		nc *NumberingConflictError
		se *StorageError
		ve *ValidationError
	)
	if errors.As(err, &st) || errors.As(err, &nc) || errors.As(err, &se) || errors.As(err, &ve) {
		return err
	}
	return &StorageError{Op: "create bill", Err: err}
}

func validationFromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.TrimPrefix(fe.Namespace(), "CreateBillInput.")] = fe.Tag()
	}
	ve := &ValidationError{Fields: fields}
	if tag, ok := fields["Items"]; ok && (tag == "required" || tag == "min") {
		ve.Message = "bill must contain at least one item"
	}
	return ve
}

func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 5 * time.Millisecond
	return base + time.Duration(rand.Int63n(int64(5*time.Millisecond)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
