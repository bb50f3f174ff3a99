package export

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

var (
	titleStyle = props.Text{Size: 18, Style: fontstyle.Bold}
	labelStyle = props.Text{Size: 9, Style: fontstyle.Bold}
	bodyStyle  = props.Text{Size: 9}
	rightBody  = props.Text{Size: 9, Align: align.Right}
	rightLabel = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	return maroto.New(cfg)
}

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}

func rate(r decimal.NullDecimal) string {
	if !r.Valid {
		return ""
	}
	return r.Decimal.Mul(decimal.NewFromInt(100)).StringFixed(2) + " %"
}

// header writes the title, number and the client block.
func header(m core.Maroto, title, number string, client *models.Client, dates [][2]string) {
	m.AddRows(text.NewRow(12, title, titleStyle))
	m.AddRow(6, text.NewCol(3, "Number", labelStyle), text.NewCol(9, number, bodyStyle))
	for _, d := range dates {
		m.AddRow(6, text.NewCol(3, d[0], labelStyle), text.NewCol(9, d[1], bodyStyle))
	}
	m.AddRows(line.NewRow(4))
	if client == nil {
		m.AddRow(6, text.NewCol(12, "Client no longer exists", bodyStyle))
		return
	}
	m.AddRow(6, text.NewCol(12, client.BusinessName, labelStyle))
	if client.ContactName != "" {
		m.AddRow(5, text.NewCol(12, client.ContactName, bodyStyle))
	}
	if addr := client.FullAddress(); addr != "" {
		m.AddRow(15, text.NewCol(12, addr, bodyStyle))
	}
	if client.Email != "" {
		m.AddRow(5, text.NewCol(12, client.Email, bodyStyle))
	}
	if client.TaxID != "" {
		m.AddRow(5, text.NewCol(12, "Tax ID: "+client.TaxID, bodyStyle))
	}
	m.AddRows(line.NewRow(4))
}

func lines(m core.Maroto, items []models.LineItem, currency string) {
	m.AddRow(7,
		text.NewCol(5, "Description", labelStyle),
		text.NewCol(1, "Qty", rightLabel),
		text.NewCol(2, "Unit price", rightLabel),
		text.NewCol(1, "Disc.", rightLabel),
		text.NewCol(1, "Tax", rightLabel),
		text.NewCol(2, "Amount", rightLabel),
	)
	for _, it := range items {
		m.AddRow(6,
			text.NewCol(5, it.Description, bodyStyle),
			text.NewCol(1, it.Quantity.String(), rightBody),
			text.NewCol(2, money(it.UnitPrice, currency), rightBody),
			text.NewCol(1, rate(it.DiscountRate), rightBody),
			text.NewCol(1, rate(it.TaxRate), rightBody),
			text.NewCol(2, money(it.Amount, currency), rightBody),
		)
	}
	m.AddRows(line.NewRow(4))
}

func summary(m core.Maroto, a models.Amounts, currency string) {
	row := func(label, value string, style props.Text) {
		m.AddRow(6, text.NewCol(8, ""), text.NewCol(2, label, style), text.NewCol(2, value, rightBody))
	}
	row("Subtotal", money(a.Subtotal, currency), labelStyle)
	if !a.DiscountAmount.IsZero() {
		row("Discount", "-"+money(a.DiscountAmount, currency), labelStyle)
	}
	taxLabel := "Tax"
	if a.TaxRate.Valid {
		taxLabel += " (" + rate(a.TaxRate) + ")"
	}
	row(taxLabel, money(a.TaxAmount, currency), labelStyle)
	row("Total", money(a.TotalAmount, currency), labelStyle)
}

func footer(m core.Maroto, notes, terms string) {
	if notes != "" {
		m.AddRows(text.NewRow(8, "Notes", props.Text{Size: 9, Style: fontstyle.Bold, Top: 3}))
		m.AddRows(text.NewRow(12, notes, bodyStyle))
	}
	if terms != "" {
		m.AddRows(text.NewRow(8, "Terms", props.Text{Size: 9, Style: fontstyle.Bold, Top: 3}))
		m.AddRows(text.NewRow(12, terms, bodyStyle))
	}
}

func generate(m core.Maroto) ([]byte, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

// InvoicePDF renders an invoice with its items.
func InvoicePDF(inv *models.Invoice) ([]byte, error) {
	m := newDocument()
	header(m, "INVOICE", inv.InvoiceNumber, inv.Client, [][2]string{
		{"Issue date", inv.IssueDate.String()},
		{"Due date", inv.DueDate.String()},
		{"Status", string(inv.Status)},
	})
	items := make([]models.LineItem, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = it.LineItem
	}
	lines(m, items, inv.Currency)
	summary(m, inv.Amounts, inv.Currency)
	footer(m, inv.Notes, inv.Terms)
	return generate(m)
}

// QuotePDF renders a quote with its items.
func QuotePDF(q *models.Quote) ([]byte, error) {
	m := newDocument()
	header(m, "QUOTE", q.QuoteNumber, q.Client, [][2]string{
		{"Issue date", q.IssueDate.String()},
		{"Valid until", q.ExpiryDate.String()},
		{"Status", string(q.Status)},
	})
	items := make([]models.LineItem, len(q.Items))
	for i, it := range q.Items {
		items[i] = it.LineItem
	}
	lines(m, items, q.Currency)
	summary(m, q.Amounts, q.Currency)
	footer(m, q.Notes, q.Terms)
	return generate(m)
}

// ReceiptPDF renders a payment receipt.
func ReceiptPDF(r *models.Receipt) ([]byte, error) {
	m := newDocument()
	header(m, "RECEIPT", r.ReceiptNumber, r.Client, [][2]string{
		{"Payment date", r.PaymentDate.String()},
		{"Method", string(r.PaymentMethod)},
	})
	m.AddRow(8, text.NewCol(8, "Amount received", labelStyle), text.NewCol(4, money(r.Amount, r.Currency), rightLabel))
	if r.Reference != "" {
		m.AddRow(6, text.NewCol(3, "Reference", labelStyle), text.NewCol(9, r.Reference, bodyStyle))
	}
	footer(m, r.Notes, "")
	return generate(m)
}
