package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/lifecycle"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/numbering"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

type ReceiptInput struct {
	Number        string          `json:"receipt_number" validate:"max=50"`
	ClientID      uint            `json:"client_id" validate:"required"`
	InvoiceID     *uint           `json:"invoice_id"`
	QuoteID       *uint           `json:"quote_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3,alpha"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash bank_transfer credit_card paypal other"`
	PaymentDate   models.Date     `json:"payment_date"`
	Reference     string          `json:"reference" validate:"max=255"`
	Notes         string          `json:"notes"`
}

type ReceiptService struct {
	*deps
	receipts *store.Store[models.Receipt, *models.Receipt]
}

func newReceiptService(d *deps) *ReceiptService {
	return &ReceiptService{deps: d, receipts: store.New[models.Receipt](d.db, "receipt", "Client")}
}

// validate checks in and the documents it points at. A referenced invoice or
// quote must belong to the owner and to the same client.
func (s *ReceiptService) validate(ctx context.Context, ownerID uint, in ReceiptInput) error {
	v := validation.Struct(in)
	validation.Positive("amount", in.Amount, v)
	if err := v.Err(); err != nil {
		return err
	}
	if err := ownedRef(ctx, s.db, &models.Client{}, "client_id", ownerID, in.ClientID); err != nil {
		return err
	}
	refs := []struct {
		id    *uint
		model any
		field string
	}{
		{in.InvoiceID, &models.Invoice{}, "invoice_id"},
		{in.QuoteID, &models.Quote{}, "quote_id"},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		var clientIDs []uint
		err := s.db.WithContext(ctx).Model(ref.model).
			Where("id = ? AND user_id = ?", *ref.id, ownerID).
			Pluck("client_id", &clientIDs).Error
		if err != nil {
			return translate(err, ref.field)
		}
		if len(clientIDs) == 0 {
			return apperr.Field(ref.field, "not_found")
		}
		if clientIDs[0] != in.ClientID {
			return apperr.Field(ref.field, "client_mismatch")
		}
	}
	return nil
}

func (s *ReceiptService) List(ctx context.Context, ownerID uint, opts store.ListOptions) ([]models.Receipt, int64, error) {
	return s.receipts.List(ctx, ownerID, opts)
}

func (s *ReceiptService) Get(ctx context.Context, ownerID, id uint) (*models.Receipt, error) {
	return s.receipts.Get(ctx, ownerID, id)
}

// Create records a payment. When the receipts of an invoice cover its total,
// the invoice is marked paid if its status allows it.
func (s *ReceiptService) Create(ctx context.Context, ownerID uint, in ReceiptInput) (*models.Receipt, error) {
	if err := s.validate(ctx, ownerID, in); err != nil {
		return nil, err
	}
	method, err := models.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	payDate := in.PaymentDate
	if payDate.IsZero() {
		payDate = s.today()
	}
	var id uint
	err = s.withNumber(ctx, ownerID, models.DocumentReceipt, in.Number, func(number string) error {
		r := &models.Receipt{
			ReceiptNumber: number,
			ClientID:      in.ClientID,
			InvoiceID:     in.InvoiceID,
			QuoteID:       in.QuoteID,
			Amount:        in.Amount.Round(2),
			Currency:      currencyOr(in.Currency, s.currency),
			PaymentMethod: method,
			PaymentDate:   payDate,
			Reference:     in.Reference,
			Notes:         in.Notes,
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.receipts.WithDB(tx).Create(ctx, ownerID, r); err != nil {
				return err
			}
			id = r.ID
			if r.InvoiceID != nil {
				return s.settle(ctx, tx, ownerID, *r.InvoiceID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

var errSettleRaced = &apperr.Error{
	Kind:    apperr.KindConflict,
	Code:    "settlement_conflict",
	Message: "invoice status changed while the receipt was recorded",
}

// settle marks the invoice paid once its receipts reach its total.
func (s *ReceiptService) settle(ctx context.Context, tx *gorm.DB, ownerID, invoiceID uint) error {
	var inv models.Invoice
	if err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", invoiceID, ownerID).First(&inv).Error; err != nil {
		return translate(err, "invoice")
	}
	if !lifecycle.Invoices.CanTransition(inv.Status, models.InvoiceStatusPaid) {
		return nil
	}
	var amounts []decimal.Decimal
	if err := tx.WithContext(ctx).Model(&models.Receipt{}).
		Where("user_id = ? AND invoice_id = ?", ownerID, invoiceID).
		Pluck("amount", &amounts).Error; err != nil {
		return translate(err, "receipt")
	}
	paid := decimal.Sum(decimal.Zero, amounts...)
	if paid.LessThan(inv.TotalAmount) {
		return nil
	}
	err := casStatus(ctx, tx, &models.Invoice{}, "invoice", ownerID, invoiceID, inv.Status, models.InvoiceStatusPaid, "paid_at", s.now().UTC())
	if errors.Is(err, errStatusChanged) {
		return errSettleRaced
	}
	if err != nil {
		return err
	}
	s.log.Info("invoice settled by receipts", zap.Uint("invoice_id", invoiceID), zap.String("paid", paid.StringFixed(2)))
	return nil
}

func (s *ReceiptService) Update(ctx context.Context, ownerID, id uint, in ReceiptInput) (*models.Receipt, error) {
	if err := s.validate(ctx, ownerID, in); err != nil {
		return nil, err
	}
	method, err := models.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	current, err := s.receipts.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]any{
		"client_id":      in.ClientID,
		"invoice_id":     in.InvoiceID,
		"quote_id":       in.QuoteID,
		"amount":         in.Amount.Round(2),
		"currency":       currencyOr(in.Currency, current.Currency),
		"payment_method": method,
		"reference":      in.Reference,
		"notes":          in.Notes,
	}
	if !in.PaymentDate.IsZero() {
		changes["payment_date"] = in.PaymentDate
	}
	number, renumbered := renumber(in.Number, current.ReceiptNumber)
	if renumbered {
		if err := s.numbers.ValidateExplicit(ctx, ownerID, models.DocumentReceipt, number); err != nil {
			return nil, err
		}
		changes["receipt_number"] = number
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.receipts.WithDB(tx).Update(ctx, ownerID, id, changes); err != nil {
			return err
		}
		if in.InvoiceID != nil {
			return s.settle(ctx, tx, ownerID, *in.InvoiceID)
		}
		return nil
	})
	if err != nil {
		if renumbered && numberCollision(err, models.DocumentReceipt) {
			return nil, numbering.NumberTaken(models.DocumentReceipt, number)
		}
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

func (s *ReceiptService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.receipts.Delete(ctx, ownerID, id)
}
