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

// InvoiceInput is the writable content of an invoice. A blank Number is
// generated; a given one is used as-is once checked to be free.
type InvoiceInput struct {
	Number         string              `json:"invoice_number" validate:"max=50"`
	ClientID       uint                `json:"client_id" validate:"required"`
	ProjectID      *uint               `json:"project_id"`
	IssueDate      models.Date         `json:"issue_date"`
	DueDate        models.Date         `json:"due_date"`
	Currency       string              `json:"currency" validate:"omitempty,len=3,alpha"`
	Items          []ItemInput         `json:"items" validate:"dive"`
	DiscountAmount decimal.NullDecimal `json:"discount_amount"`
	DiscountRate   decimal.NullDecimal `json:"discount_rate"`
	TaxAmount      decimal.NullDecimal `json:"tax_amount"`
	TaxRate        decimal.NullDecimal `json:"tax_rate"`
	Notes          string              `json:"notes"`
	Terms          string              `json:"terms"`
}

func (in InvoiceInput) pricing() pricing {
	return pricing{items: in.Items, adj: totals.Adjustments{
		DiscountAmount: in.DiscountAmount,
		DiscountRate:   in.DiscountRate,
		TaxAmount:      in.TaxAmount,
		TaxRate:        in.TaxRate,
	}}
}

var invoiceStamps = map[models.InvoiceStatus]string{
	models.InvoiceStatusSent:      "sent_at",
	models.InvoiceStatusViewed:    "viewed_at",
	models.InvoiceStatusPaid:      "paid_at",
	models.InvoiceStatusOverdue:   "overdue_at",
	models.InvoiceStatusCancelled: "cancelled_at",
}

type InvoiceService struct {
	*deps
	invoices *store.Store[models.Invoice, *models.Invoice]
}

func newInvoiceService(d *deps) *InvoiceService {
	return &InvoiceService{deps: d, invoices: store.New[models.Invoice](d.db, "invoice", "Items", "Client", "Project")}
}

// prepared is a validated invoice ready to be written.
type prepared struct {
	issue, due models.Date
	currency   string
	lines      []models.LineItem
	amounts    models.Amounts
}

func (s *InvoiceService) prepare(ctx context.Context, ownerID uint, in InvoiceInput) (*prepared, error) {
	v := validation.Struct(in)
	issue, due := documentDates(in.IssueDate, in.DueDate, "due_date", s.today(), v)
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
	return &prepared{issue: issue, due: due, currency: currencyOr(in.Currency, s.currency), lines: lines, amounts: amounts}, nil
}

func invoiceItems(invoiceID uint, lines []models.LineItem) []models.InvoiceItem {
	items := make([]models.InvoiceItem, len(lines))
	for i, l := range lines {
		items[i] = models.InvoiceItem{InvoiceID: invoiceID, LineItem: l}
	}
	return items
}

func (s *InvoiceService) List(ctx context.Context, ownerID uint, opts store.ListOptions) ([]models.Invoice, int64, error) {
	list, n, err := s.invoices.List(ctx, ownerID, opts)
	for i := range list {
		sortInvoiceItems(list[i].Items)
	}
	return list, n, err
}

func (s *InvoiceService) Get(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	sortInvoiceItems(inv.Items)
	return inv, nil
}

// Create stores a draft invoice with its items and computed totals.
func (s *InvoiceService) Create(ctx context.Context, ownerID uint, in InvoiceInput) (*models.Invoice, error) {
	p, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	var id uint
	err = s.withNumber(ctx, ownerID, models.DocumentInvoice, in.Number, func(number string) error {
		inv := &models.Invoice{
			InvoiceNumber: number,
			ClientID:      in.ClientID,
			ProjectID:     in.ProjectID,
			IssueDate:     p.issue,
			DueDate:       p.due,
			Currency:      p.currency,
			Status:        models.InvoiceStatusDraft,
			Amounts:       p.amounts,
			Notes:         in.Notes,
			Terms:         in.Terms,
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.invoices.WithDB(tx).Create(ctx, ownerID, inv); err != nil {
				return err
			}
			if items := invoiceItems(inv.ID, p.lines); len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return translate(err, "invoice_item")
				}
			}
			id = inv.ID
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("invoice created", zap.Uint("user_id", ownerID), zap.Uint("invoice_id", id))
	return s.Get(ctx, ownerID, id)
}

// Update replaces the content of a draft invoice. Sent invoices are frozen.
func (s *InvoiceService) Update(ctx context.Context, ownerID, id uint, in InvoiceInput) (*models.Invoice, error) {
	current, err := s.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !current.CanEdit() {
		return nil, apperr.InvalidState("not_editable", "only draft invoices can be edited")
	}
	p, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	changes := amountColumns(p.amounts)
	changes["client_id"] = in.ClientID
	changes["project_id"] = in.ProjectID
	changes["issue_date"] = p.issue
	changes["due_date"] = p.due
	changes["currency"] = p.currency
	changes["notes"] = in.Notes
	changes["terms"] = in.Terms
	number, renumbered := renumber(in.Number, current.InvoiceNumber)
	if renumbered {
		if err := s.numbers.ValidateExplicit(ctx, ownerID, models.DocumentInvoice, number); err != nil {
			return nil, err
		}
		changes["invoice_number"] = number
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND user_id = ? AND status = ?", id, ownerID, models.InvoiceStatusDraft).
			Updates(changes)
		if res.Error != nil {
			return translate(res.Error, "invoice")
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("not_editable", "only draft invoices can be edited")
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return translate(err, "invoice_item")
		}
		if items := invoiceItems(id, p.lines); len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return translate(err, "invoice_item")
			}
		}
		return nil
	})
	if err != nil {
		if renumbered && numberCollision(err, models.DocumentInvoice) {
			return nil, numbering.NumberTaken(models.DocumentInvoice, number)
		}
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes the invoice and its items.
func (s *InvoiceService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ok, err := s.invoices.WithDB(tx).Exists(ctx, ownerID, id); err != nil {
			return err
		} else if !ok {
			return apperr.NotFound("invoice")
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return translate(err, "invoice_item")
		}
		return s.invoices.WithDB(tx).Delete(ctx, ownerID, id)
	})
}

// transition moves the invoice to status to, after check accepts it.
func (s *InvoiceService) transition(ctx context.Context, ownerID, id uint, to models.InvoiceStatus, check func(*models.Invoice) error) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if check != nil {
		err = check(inv)
	} else {
		err = lifecycle.Invoices.Transition(inv.Status, to)
	}
	if err != nil {
		return nil, err
	}
	if err := casStatus(ctx, s.db, &models.Invoice{}, "invoice", ownerID, id, inv.Status, to, invoiceStamps[to], s.now().UTC()); err != nil {
		return nil, err
	}
	s.log.Info("invoice status changed", zap.Uint("invoice_id", id),
		zap.String("from", string(inv.Status)), zap.String("to", string(to)))
	return s.Get(ctx, ownerID, id)
}

func (s *InvoiceService) MarkSent(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, ownerID, id, models.InvoiceStatusSent, nil)
}

func (s *InvoiceService) MarkViewed(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, ownerID, id, models.InvoiceStatusViewed, nil)
}

func (s *InvoiceService) MarkPaid(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, ownerID, id, models.InvoiceStatusPaid, nil)
}

func (s *InvoiceService) Cancel(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, ownerID, id, models.InvoiceStatusCancelled, nil)
}

// MarkOverdue succeeds only once the due date has passed.
func (s *InvoiceService) MarkOverdue(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	today := s.today()
	return s.transition(ctx, ownerID, id, models.InvoiceStatusOverdue, func(inv *models.Invoice) error {
		return lifecycle.CheckOverdue(inv.Status, inv.DueDate, today)
	})
}

// RefreshOverdue marks every open invoice past its due date as overdue and
// returns how many moved.
func (s *InvoiceService) RefreshOverdue(ctx context.Context, ownerID uint) (int, error) {
	today := s.today()
	var open []models.Invoice
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", ownerID, lifecycle.Invoices.Sources(models.InvoiceStatusOverdue)).
		Find(&open).Error
	if err != nil {
		return 0, translate(err, "invoice")
	}
	moved := 0
	for _, inv := range open {
		if lifecycle.CheckOverdue(inv.Status, inv.DueDate, today) != nil {
			continue
		}
		err := casStatus(ctx, s.db, &models.Invoice{}, "invoice", ownerID, inv.ID, inv.Status, models.InvoiceStatusOverdue, "overdue_at", s.now().UTC())
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
