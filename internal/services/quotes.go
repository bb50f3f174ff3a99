package services

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/lifecycle"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/numbering"
	"github.com/Roquverse/flow-invoice-nexus/internal/store"
	"github.com/Roquverse/flow-invoice-nexus/internal/totals"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

type QuoteInput struct {
	Number         string              `json:"quote_number" validate:"max=50"`
	ClientID       uint                `json:"client_id" validate:"required"`
	ProjectID      *uint               `json:"project_id"`
	IssueDate      models.Date         `json:"issue_date"`
	ExpiryDate     models.Date         `json:"expiry_date"`
	Currency       string              `json:"currency" validate:"omitempty,len=3,alpha"`
	Items          []ItemInput         `json:"items" validate:"dive"`
	DiscountAmount decimal.NullDecimal `json:"discount_amount"`
	DiscountRate   decimal.NullDecimal `json:"discount_rate"`
	TaxAmount      decimal.NullDecimal `json:"tax_amount"`
	TaxRate        decimal.NullDecimal `json:"tax_rate"`
	Notes          string              `json:"notes"`
	Terms          string              `json:"terms"`
}

func (in QuoteInput) pricing() pricing {
	return pricing{items: in.Items, adj: totals.Adjustments{
		DiscountAmount: in.DiscountAmount,
		DiscountRate:   in.DiscountRate,
		TaxAmount:      in.TaxAmount,
		TaxRate:        in.TaxRate,
	}}
}

var quoteStamps = map[models.QuoteStatus]string{
	models.QuoteStatusSent:     "sent_at",
	models.QuoteStatusViewed:   "viewed_at",
	models.QuoteStatusAccepted: "accepted_at",
	models.QuoteStatusRejected: "rejected_at",
	models.QuoteStatusExpired:  "expired_at",
}

type QuoteService struct {
	*deps
	quotes   *store.Store[models.Quote, *models.Quote]
	invoices *InvoiceService
}

func newQuoteService(d *deps, invoices *InvoiceService) *QuoteService {
	return &QuoteService{deps: d, quotes: store.New[models.Quote](d.db, "quote", "Items", "Client", "Project"), invoices: invoices}
}

func (s *QuoteService) prepare(ctx context.Context, ownerID uint, in QuoteInput) (*prepared, error) {
	v := validation.Struct(in)
	issue, expiry := documentDates(in.IssueDate, in.ExpiryDate, "expiry_date", s.today(), v)
	lines, amounts, err := in.pricing().price(v)
	if err != nil {
		return nil, err
	}
	if err := ownedRef(ctx, s.db, &models.Client{}, "client_id", ownerID, in.ClientID); err != nil {
		return nil, err
	}
	if in.ProjectID != nil {
		if err := ownedRef(ctx, s.db, &models.Project{}, "project_id", ownerID, *in.ProjectID); err != nil {
			return nil, err
		}
	}
	return &prepared{issue: issue, due: expiry, currency: currencyOr(in.Currency, s.currency), lines: lines, amounts: amounts}, nil
}

func quoteItems(quoteID uint, lines []models.LineItem) []models.QuoteItem {
	items := make([]models.QuoteItem, len(lines))
	for i, l := range lines {
		items[i] = models.QuoteItem{QuoteID: quoteID, LineItem: l}
	}
	return items
}

func (s *QuoteService) List(ctx context.Context, ownerID uint, opts store.ListOptions) ([]models.Quote, int64, error) {
	list, n, err := s.quotes.List(ctx, ownerID, opts)
	for i := range list {
		sortQuoteItems(list[i].Items)
	}
	return list, n, err
}

func (s *QuoteService) Get(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	q, err := s.quotes.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	sortQuoteItems(q.Items)
	return q, nil
}

func (s *QuoteService) Create(ctx context.Context, ownerID uint, in QuoteInput) (*models.Quote, error) {
	p, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	var id uint
	err = s.withNumber(ctx, ownerID, models.DocumentQuote, in.Number, func(number string) error {
		q := &models.Quote{
			QuoteNumber: number,
			ClientID:    in.ClientID,
			ProjectID:   in.ProjectID,
			IssueDate:   p.issue,
			ExpiryDate:  p.due,
			Currency:    p.currency,
			Status:      models.QuoteStatusDraft,
			Amounts:     p.amounts,
			Notes:       in.Notes,
			Terms:       in.Terms,
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.quotes.WithDB(tx).Create(ctx, ownerID, q); err != nil {
				return err
			}
			if items := quoteItems(q.ID, p.lines); len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return translate(err, "quote_item")
				}
			}
			id = q.ID
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("quote created", zap.Uint("user_id", ownerID), zap.Uint("quote_id", id))
	return s.Get(ctx, ownerID, id)
}

// Update replaces the content of a draft quote.
func (s *QuoteService) Update(ctx context.Context, ownerID, id uint, in QuoteInput) (*models.Quote, error) {
	current, err := s.quotes.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !current.CanEdit() {
		return nil, apperr.InvalidState("not_editable", "only draft quotes can be edited")
	}
	p, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	changes := amountColumns(p.amounts)
	changes["client_id"] = in.ClientID
	changes["project_id"] = in.ProjectID
	changes["issue_date"] = p.issue
	changes["expiry_date"] = p.due
	changes["currency"] = p.currency
	changes["notes"] = in.Notes
	changes["terms"] = in.Terms
	number, renumbered := renumber(in.Number, current.QuoteNumber)
	if renumbered {
		if err := s.numbers.ValidateExplicit(ctx, ownerID, models.DocumentQuote, number); err != nil {
			return nil, err
		}
		changes["quote_number"] = number
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Quote{}).
			Where("id = ? AND user_id = ? AND status = ?", id, ownerID, models.QuoteStatusDraft).
			Updates(changes)
		if res.Error != nil {
			return translate(res.Error, "quote")
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("not_editable", "only draft quotes can be edited")
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return translate(err, "quote_item")
		}
		if items := quoteItems(id, p.lines); len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return translate(err, "quote_item")
			}
		}
		return nil
	})
	if err != nil {
		if renumbered && numberCollision(err, models.DocumentQuote) {
			return nil, numbering.NumberTaken(models.DocumentQuote, number)
		}
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

func (s *QuoteService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ok, err := s.quotes.WithDB(tx).Exists(ctx, ownerID, id); err != nil {
			return err
		} else if !ok {
			return apperr.NotFound("quote")
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return translate(err, "quote_item")
		}
		return s.quotes.WithDB(tx).Delete(ctx, ownerID, id)
	})
}

func (s *QuoteService) transition(ctx context.Context, ownerID, id uint, to models.QuoteStatus, check func(*models.Quote) error) (*models.Quote, error) {
	q, err := s.quotes.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if check != nil {
		err = check(q)
	} else {
		err = lifecycle.Quotes.Transition(q.Status, to)
	}
	if err != nil {
		return nil, err
	}
	if err := casStatus(ctx, s.db, &models.Quote{}, "quote", ownerID, id, q.Status, to, quoteStamps[to], s.now().UTC()); err != nil {
		return nil, err
	}
	s.log.Info("quote status changed", zap.Uint("quote_id", id),
		zap.String("from", string(q.Status)), zap.String("to", string(to)))
	return s.Get(ctx, ownerID, id)
}

func (s *QuoteService) MarkSent(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	return s.transition(ctx, ownerID, id, models.QuoteStatusSent, nil)
}

func (s *QuoteService) MarkViewed(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	return s.transition(ctx, ownerID, id, models.QuoteStatusViewed, nil)
}

func (s *QuoteService) Accept(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	return s.transition(ctx, ownerID, id, models.QuoteStatusAccepted, nil)
}

func (s *QuoteService) Reject(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	return s.transition(ctx, ownerID, id, models.QuoteStatusRejected, nil)
}

// Expire succeeds only once the expiry date has passed.
func (s *QuoteService) Expire(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	today := s.today()
	return s.transition(ctx, ownerID, id, models.QuoteStatusExpired, func(q *models.Quote) error {
		return lifecycle.CheckExpired(q.Status, q.ExpiryDate, today)
	})
}

// RefreshExpired expires every open quote past its expiry date.
func (s *QuoteService) RefreshExpired(ctx context.Context, ownerID uint) (int, error) {
	today := s.today()
	var open []models.Quote
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", ownerID, lifecycle.Quotes.Sources(models.QuoteStatusExpired)).
		Find(&open).Error
	if err != nil {
		return 0, translate(err, "quote")
	}
	moved := 0
	for _, q := range open {
		if lifecycle.CheckExpired(q.Status, q.ExpiryDate, today) != nil {
			continue
		}
		err := casStatus(ctx, s.db, &models.Quote{}, "quote", ownerID, q.ID, q.Status, models.QuoteStatusExpired, "expired_at", s.now().UTC())
		if err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				continue
			}
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// ConvertToInvoice creates a draft invoice from an accepted quote. A quote
// converts at most once.
func (s *QuoteService) ConvertToInvoice(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	q, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if q.Status != models.QuoteStatusAccepted {
		return nil, apperr.InvalidState("not_accepted", "only accepted quotes can be converted")
	}
	if q.ConvertedInvoiceID != nil {
		return nil, apperr.Conflict("already_converted", "quote was already converted to an invoice")
	}
	lines := make([]models.LineItem, len(q.Items))
	for i, it := range q.Items {
		lines[i] = it.LineItem
	}
	inv, err := s.invoices.Create(ctx, ownerID, InvoiceInput{
		ClientID:       q.ClientID,
		ProjectID:      q.ProjectID,
		Currency:       q.Currency,
		Items:          itemsFromLines(lines),
		DiscountAmount: decimal.NewNullDecimal(q.DiscountAmount),
		TaxAmount:      decimal.NewNullDecimal(q.TaxAmount),
		TaxRate:        q.TaxRate,
		Notes:          q.Notes,
		Terms:          q.Terms,
	})
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND user_id = ? AND converted_invoice_id IS NULL", id, ownerID).
		Update("converted_invoice_id", inv.ID)
	if res.Error == nil && res.RowsAffected == 1 {
		s.log.Info("quote converted", zap.Uint("quote_id", id), zap.Uint("invoice_id", inv.ID))
		return inv, nil
	}
	if err := s.invoices.Delete(ctx, ownerID, inv.ID); err != nil {
		s.log.Error("remove duplicate conversion invoice", zap.Uint("invoice_id", inv.ID), zap.Error(err))
	}
	if res.Error != nil {
		return nil, translate(res.Error, "quote")
	}
	return nil, apperr.Conflict("already_converted", "quote was already converted to an invoice")
}
