// Package totals derives document amounts from line items. It has no side effects.
package totals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Roquverse/flow-invoice-nexus/validation"
)

// MoneyPlaces is the number of decimal places amounts are rounded to.
const MoneyPlaces = 2

var one = decimal.NewFromInt(1)

// Item is the input view of a line.
type Item struct {
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.NullDecimal
	DiscountRate decimal.NullDecimal
}

// Adjustments are the document-level discount and tax. An explicit amount
// wins over the matching rate.
type Adjustments struct {
	DiscountAmount decimal.NullDecimal
	DiscountRate   decimal.NullDecimal
	TaxAmount      decimal.NullDecimal
	TaxRate        decimal.NullDecimal
}

// Totals are exact: no intermediate value is rounded. Rounded gives the
// money values that are stored and displayed.
type Totals struct {
	Lines          []decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Compute returns the line amounts and document totals.
//
// Each line is quantity x unit price, reduced by its discount rate and raised by
// its tax rate when present. The subtotal is the exact sum of lines. The document
// discount and tax are either explicit or the subtotal times their rate, and
// total = subtotal - discount + tax, never below zero.
func Compute(items []Item, adj Adjustments) (Totals, error) {
	v := validation.Violations{}
	for i, it := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		validation.NonNegative(prefix+".quantity", it.Quantity, v)
		validation.NonNegative(prefix+".unit_price", it.UnitPrice, v)
		checkRate(prefix+".tax_rate", it.TaxRate, v)
		checkRate(prefix+".discount_rate", it.DiscountRate, v)
	}
	checkAmount("discount_amount", adj.DiscountAmount, v)
	checkAmount("tax_amount", adj.TaxAmount, v)
	checkRate("discount_rate", adj.DiscountRate, v)
	checkRate("tax_rate", adj.TaxRate, v)
	if err := v.Err(); err != nil {
		return Totals{}, err
	}

	t := Totals{Lines: make([]decimal.Decimal, len(items))}
	for i, it := range items {
		t.Lines[i] = LineAmount(it)
		t.Subtotal = t.Subtotal.Add(t.Lines[i])
	}
	t.DiscountAmount = resolve(t.Subtotal, adj.DiscountAmount, adj.DiscountRate)
	t.TaxAmount = resolve(t.Subtotal, adj.TaxAmount, adj.TaxRate)
	t.Total = t.Subtotal.Sub(t.DiscountAmount).Add(t.TaxAmount)
	if t.Total.IsNegative() {
		t.Total = decimal.Zero
	}
	return t, nil
}

// LineAmount prices a single line. Inputs are assumed validated.
func LineAmount(it Item) decimal.Decimal {
	amount := it.Quantity.Mul(it.UnitPrice)
	if it.DiscountRate.Valid {
		amount = amount.Mul(one.Sub(it.DiscountRate.Decimal))
	}
	if it.TaxRate.Valid {
		amount = amount.Mul(one.Add(it.TaxRate.Decimal))
	}
	return amount
}

// Rounded returns t with every amount rounded to MoneyPlaces. The total is
// rebuilt from the rounded parts so that total = subtotal - discount + tax
// holds on the rounded values too.
func (t Totals) Rounded() Totals {
	r := Totals{
		Lines:          make([]decimal.Decimal, len(t.Lines)),
		Subtotal:       t.Subtotal.Round(MoneyPlaces),
		DiscountAmount: t.DiscountAmount.Round(MoneyPlaces),
		TaxAmount:      t.TaxAmount.Round(MoneyPlaces),
	}
	for i, l := range t.Lines {
		r.Lines[i] = l.Round(MoneyPlaces)
	}
	r.Total = r.Subtotal.Sub(r.DiscountAmount).Add(r.TaxAmount)
	if r.Total.IsNegative() {
		r.Total = decimal.Zero
	}
	return r
}

func resolve(subtotal decimal.Decimal, amount, rate decimal.NullDecimal) decimal.Decimal {
	switch {
	case amount.Valid:
		return amount.Decimal
	case rate.Valid:
		return subtotal.Mul(rate.Decimal)
	default:
		return decimal.Zero
	}
}

func checkRate(field string, rate decimal.NullDecimal, v validation.Violations) {
	if rate.Valid {
		validation.Range(field, rate.Decimal, decimal.Zero, one, v)
	}
}

func checkAmount(field string, amount decimal.NullDecimal, v validation.Violations) {
	if amount.Valid {
		validation.NonNegative(field, amount.Decimal, v)
	}
}
