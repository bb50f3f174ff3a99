package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
	"github.com/Roquverse/flow-invoice-nexus/internal/totals"
	"github.com/Roquverse/flow-invoice-nexus/validation"
)

// DefaultTermDays is the gap between issue date and due or expiry date when
// none is given.
const DefaultTermDays = 30

// ItemInput is one line of an invoice or quote.
type ItemInput struct {
	Description  string              `json:"description" validate:"required,max=500"`
	Quantity     decimal.Decimal     `json:"quantity"`
	UnitPrice    decimal.Decimal     `json:"unit_price"`
	TaxRate      decimal.NullDecimal `json:"tax_rate"`
	DiscountRate decimal.NullDecimal `json:"discount_rate"`
}

// pricing is the part of a document input that drives its totals.
type pricing struct {
	items []ItemInput
	adj   totals.Adjustments
}

// price validates the lines and computes the document amounts. Quantities
// must be strictly positive.
func (p pricing) price(v validation.Violations) ([]models.LineItem, models.Amounts, error) {
	for i, it := range p.items {
		validation.Positive(fmt.Sprintf("items[%d].quantity", i), it.Quantity, v)
	}
	if err := v.Err(); err != nil {
		return nil, models.Amounts{}, err
	}
	in := make([]totals.Item, len(p.items))
	for i, it := range p.items {
		in[i] = totals.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice, TaxRate: it.TaxRate, DiscountRate: it.DiscountRate}
	}
	exact, err := totals.Compute(in, p.adj)
	if err != nil {
		return nil, models.Amounts{}, err
	}
	t := exact.Rounded()
	lines := make([]models.LineItem, len(p.items))
	for i, it := range p.items {
		lines[i] = models.LineItem{
			Description:  it.Description,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TaxRate:      it.TaxRate,
			DiscountRate: it.DiscountRate,
			Amount:       t.Lines[i],
			Position:     i,
		}
	}
	return lines, models.Amounts{
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		TaxRate:        p.adj.TaxRate,
		TaxAmount:      t.TaxAmount,
		TotalAmount:    t.Total,
	}, nil
}

func amountColumns(a models.Amounts) map[string]any {
	return map[string]any{
		"subtotal":        a.Subtotal,
		"discount_amount": a.DiscountAmount,
		"tax_rate":        a.TaxRate,
		"tax_amount":      a.TaxAmount,
		"total_amount":    a.TotalAmount,
	}
}

// itemsFromLines turns stored lines back into inputs, keeping their order.
func itemsFromLines(lines []models.LineItem) []ItemInput {
	out := make([]ItemInput, len(lines))
	for i, l := range lines {
		out[i] = ItemInput{
			Description:  l.Description,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TaxRate:      l.TaxRate,
			DiscountRate: l.DiscountRate,
		}
	}
	return out
}

func sortInvoiceItems(items []models.InvoiceItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
}

func sortQuoteItems(items []models.QuoteItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
}

// documentDates defaults the issue date to today and the term date to
// DefaultTermDays later, and rejects a term date before the issue date.
func documentDates(issue, term models.Date, termField string, today models.Date, v validation.Violations) (models.Date, models.Date) {
	if issue.IsZero() {
		issue = today
	}
	if term.IsZero() {
		term = issue.AddDays(DefaultTermDays)
	}
	if term.Before(issue) {
		v[termField] = "before_issue_date"
	}
	return issue, term
}

var errStatusChanged = &apperr.Error{Kind: apperr.KindConflict, Code: "status_changed"}

// casStatus moves a row of model from one status to another only if it still
// has the status that was checked. Returns a conflict when another request
// changed it first.
func casStatus(ctx context.Context, db *gorm.DB, model any, entity string, ownerID, id uint, from, to any, stampColumn string, at time.Time) error {
	changes := map[string]any{"status": to}
	if stampColumn != "" {
		changes[stampColumn] = at
	}
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND user_id = ? AND status = ?", id, ownerID, from).
		Updates(changes)
	if res.Error != nil {
		return translate(res.Error, entity)
	}
	if res.RowsAffected == 0 {
		return &apperr.Error{Kind: apperr.KindConflict, Code: errStatusChanged.Code, Message: entity + " status was changed by another request"}
	}
	return nil
}
